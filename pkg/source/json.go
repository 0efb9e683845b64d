package source

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/goccy/go-json"

	"github.com/surrealdb/surrealmigrate/pkg/models"
	"github.com/surrealdb/surrealmigrate/pkg/transform"
)

// JSONFile reads documents from either a JSON array of objects or a
// stream of JSON objects (JSON lines).
type JSONFile struct {
	// Path is opened when Reader is nil.
	Path   string
	Reader io.Reader
	// MapRow maps each decoded document.
	MapRow transform.Func
}

// Documents implements Source.
func (j *JSONFile) Documents(ctx context.Context) ([]models.Document, error) {
	r := j.Reader
	if r == nil {
		f, err := os.Open(j.Path)
		if err != nil {
			return nil, fmt.Errorf("failed to open %s: %w", j.Path, err)
		}
		defer f.Close()
		r = f
	}

	br := bufio.NewReader(r)
	first, err := peekNonSpace(br)
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var docs []models.Document
	dec := json.NewDecoder(br)
	if first == '[' {
		if err := dec.Decode(&docs); err != nil {
			return nil, fmt.Errorf("failed to decode document array: %w", err)
		}
		return mapAll(docs, j.MapRow)
	}

	for n := 1; ; n++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		var doc models.Document
		err := dec.Decode(&doc)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to decode document %d: %w", n, err)
		}
		docs = append(docs, doc)
	}
	return mapAll(docs, j.MapRow)
}

func peekNonSpace(br *bufio.Reader) (byte, error) {
	for {
		b, err := br.ReadByte()
		if err != nil {
			return 0, err
		}
		switch b {
		case ' ', '\t', '\r', '\n':
			continue
		}
		return b, br.UnreadByte()
	}
}
