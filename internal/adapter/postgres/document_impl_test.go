package postgres

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/user/catalog-etl/internal/entity"
)

func TestDocumentRepoRejectsUnknownTableBeforeQuerying(t *testing.T) {
	repo := NewDocumentRepo(nil)

	err := repo.Put(context.Background(), "pg_catalog.pg_user", "u", nil)
	assert.ErrorIs(t, err, entity.ErrInvalidTable)

	_, err = repo.GetAll(context.Background(), "search")
	assert.ErrorIs(t, err, entity.ErrInvalidTable)
}

func TestFailedURLRepoRejectsUnknownTable(t *testing.T) {
	repo := NewFailedURLRepo(nil)

	err := repo.SaveOrUpdate(context.Background(), &entity.FailedURL{URL: "u", Table: "users"})

	var se *entity.StorageError
	assert.ErrorAs(t, err, &se)
	assert.ErrorIs(t, err, entity.ErrInvalidTable)
}
