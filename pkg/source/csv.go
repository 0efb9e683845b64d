package source

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/surrealdb/surrealmigrate/pkg/models"
	"github.com/surrealdb/surrealmigrate/pkg/transform"
)

// CSVOptions control how delimited text is read.
type CSVOptions struct {
	// Separator defaults to a comma.
	Separator rune
	// Headers replace the header row. When set, the first row is data.
	Headers []string
	// SkipLines drops this many lines before the header row.
	SkipLines int
	// Strict rejects rows whose column count differs from the header.
	Strict bool
	// MapHeaders renames a header. Returning "" drops the column.
	MapHeaders func(header string) string
	// MapValues converts a raw cell value.
	MapValues func(header, value string) any
	// MapRow maps each parsed row.
	MapRow transform.Func
}

// CSV reads documents from delimited text, one document per row.
type CSV struct {
	// Path is opened when Reader is nil.
	Path    string
	Reader  io.Reader
	Options CSVOptions
}

// Documents implements Source.
func (c *CSV) Documents(ctx context.Context) ([]models.Document, error) {
	r := c.Reader
	if r == nil {
		f, err := os.Open(c.Path)
		if err != nil {
			return nil, fmt.Errorf("failed to open %s: %w", c.Path, err)
		}
		defer f.Close()
		r = f
	}

	cr := csv.NewReader(r)
	if c.Options.Separator != 0 {
		cr.Comma = c.Options.Separator
	}
	cr.FieldsPerRecord = -1

	for i := 0; i < c.Options.SkipLines; i++ {
		if _, err := cr.Read(); err != nil {
			if errors.Is(err, io.EOF) {
				return nil, nil
			}
			return nil, fmt.Errorf("failed to skip line %d: %w", i+1, err)
		}
	}

	headers := c.Options.Headers
	if len(headers) == 0 {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read header row: %w", err)
		}
		headers = row
	}
	headers = c.mapHeaders(headers)

	var docs []models.Document
	for line := 1; ; line++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read row %d: %w", line, err)
		}
		if c.Options.Strict && len(row) != len(headers) {
			return nil, fmt.Errorf("row %d has %d columns, expected %d", line, len(row), len(headers))
		}

		doc := make(models.Document, len(headers))
		for i, h := range headers {
			if h == "" || i >= len(row) {
				continue
			}
			doc[h] = c.mapValue(h, row[i])
		}
		for i := len(headers); i < len(row); i++ {
			doc[fmt.Sprintf("_%d", i)] = c.mapValue("", row[i])
		}
		docs = append(docs, doc)
	}

	return mapAll(docs, c.Options.MapRow)
}

func (c *CSV) mapHeaders(headers []string) []string {
	out := make([]string, len(headers))
	for i, h := range headers {
		if c.Options.MapHeaders != nil {
			h = c.Options.MapHeaders(h)
		}
		out[i] = h
	}
	return out
}

func (c *CSV) mapValue(header, value string) any {
	if c.Options.MapValues != nil {
		return c.Options.MapValues(header, value)
	}
	return value
}
