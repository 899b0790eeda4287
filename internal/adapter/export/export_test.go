package export

import (
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/user/catalog-etl/internal/entity"
	"github.com/xuri/excelize/v2"
)

func sampleRows() []entity.Row {
	a := entity.NewRow()
	a.Set(entity.ColHandle, "pole")
	a.Set(entity.ColTitle, `Flagpole, 20" "Deluxe"`)
	a.Set(entity.ColVariantPrice, "95.00")
	a.Set(entity.ColBodyHTML, "<p>line one</p>")
	b := entity.NewRow()
	b.Set(entity.ColHandle, "pole")
	b.Set(entity.ColImageSrc, "https://cdn/2.jpg")
	return []entity.Row{a, b}
}

func TestNewPicksWriterByExtension(t *testing.T) {
	assert.IsType(t, &XLSXWriter{}, New("out/products.XLSX"))
	assert.IsType(t, &CSVWriter{}, New("out/products.csv"))
	assert.IsType(t, &CSVWriter{}, New("products"))
}

func TestCSVWriter(t *testing.T) {
	path := filepath.Join(t.TempDir(), "products.csv")

	require.NoError(t, NewCSVWriter(path).Write(context.Background(), entity.Columns, sampleRows()))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	records, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)

	require.Len(t, records, 3)
	assert.Equal(t, entity.Columns, records[0])
	assert.Equal(t, `Flagpole, 20" "Deluxe"`, records[1][1])
	assert.Equal(t, "https://cdn/2.jpg", records[2][24])
	assert.Len(t, records[2], len(entity.Columns))
}

func TestCSVWriterLeavesNothingOnCancel(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "products.csv")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := NewCSVWriter(path).Write(ctx, entity.Columns, sampleRows())

	assert.ErrorIs(t, err, context.Canceled)
	entries, _ := os.ReadDir(dir)
	assert.Empty(t, entries)
}

func TestXLSXWriter(t *testing.T) {
	path := filepath.Join(t.TempDir(), "products.xlsx")

	require.NoError(t, NewXLSXWriter(path).Write(context.Background(), entity.Columns, sampleRows()))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows(sheetName)
	require.NoError(t, err)

	require.Len(t, rows, 3)
	assert.Equal(t, entity.Columns, rows[0])
	assert.Equal(t, "95.00", rows[1][20])
	assert.Equal(t, "pole", rows[2][0])
}
