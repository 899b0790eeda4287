package normalizer

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/user/catalog-etl/internal/entity"
)

// DefaultVariantDedupeColumns are blanked on every row of a product after its first.
var DefaultVariantDedupeColumns = []string{
	entity.ColTitle,
	entity.ColBodyHTML,
	entity.ColVendor,
	entity.ColProductCategory,
	entity.ColType,
	entity.ColTags,
	entity.ColPublished,
	entity.ColOption1Name,
	entity.ColOption2Name,
	entity.ColOption3Name,
	entity.ColCustomLabel0,
	entity.ColStatus,
}

// DefaultImageDedupeColumns are blanked on every extra image row of a variant:
// everything except the handle and the image columns.
var DefaultImageDedupeColumns = func() []string {
	keep := map[string]bool{
		entity.ColHandle:        true,
		entity.ColImageSrc:      true,
		entity.ColImagePosition: true,
		entity.ColImageAltText:  true,
	}
	var cols []string
	for _, c := range entity.Columns {
		if !keep[c] {
			cols = append(cols, c)
		}
	}
	return cols
}()

// LoadColumnList reads a dedupe column list: one column name per line. Only
// the first comma separated field of a line counts and blank lines are skipped.
func LoadColumnList(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open column list: %w", err)
	}
	defer f.Close()

	cols, err := ParseColumnList(f)
	if err != nil {
		return nil, fmt.Errorf("column list %s: %w", path, err)
	}
	return cols, nil
}

// ParseColumnList parses the column list format read by LoadColumnList and
// rejects names that are not export columns. A list without names yields an
// empty, non-nil slice, which disables blanking.
func ParseColumnList(r io.Reader) ([]string, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	cols := []string{}
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		if len(rec) == 0 {
			continue
		}
		name := strings.TrimSpace(strings.TrimPrefix(rec[0], "\ufeff"))
		if name == "" {
			continue
		}
		if _, ok := entity.ColumnIndex(name); !ok {
			return nil, fmt.Errorf("unknown column %q", name)
		}
		cols = append(cols, name)
	}
	return cols, nil
}
