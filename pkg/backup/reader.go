package backup

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/fxamacker/cbor/v2"

	"github.com/surrealdb/surrealmigrate/pkg/models"
)

// Reader reads a backup file.
type Reader struct {
	file   *os.File
	dec    *cbor.Decoder
	header Header
}

// Open opens the backup file at path and reads its header.
func Open(path string) (*Reader, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open backup file: %w", err)
	}

	magic := make([]byte, len(Format))
	if _, err := io.ReadFull(file, magic); err != nil {
		file.Close()
		return nil, fmt.Errorf("failed to read magic header: %w", err)
	}
	if string(magic) != Format {
		file.Close()
		return nil, fmt.Errorf("%w: expected %s, got %q", ErrInvalidFormat, Format, magic)
	}

	dec := models.NewDecoder(file)
	var header Header
	if err := dec.Decode(&header); err != nil {
		file.Close()
		return nil, fmt.Errorf("failed to read backup header: %w", err)
	}

	return &Reader{file: file, dec: dec, header: header}, nil
}

// Header returns the backup header.
func (r *Reader) Header() Header {
	return r.header
}

// Next returns the next document, or io.EOF after the last one.
func (r *Reader) Next() (models.Document, error) {
	var doc models.Document
	if err := r.dec.Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, io.EOF
		}
		return nil, fmt.Errorf("failed to decode document: %w", err)
	}
	return doc, nil
}

func (r *Reader) Close() error {
	return r.file.Close()
}

// ReadAll reads every document of the backup at path.
func ReadAll(path string) (Header, []models.Document, error) {
	r, err := Open(path)
	if err != nil {
		return Header{}, nil, err
	}
	defer r.Close()

	docs := make([]models.Document, 0, r.header.Count)
	for {
		doc, err := r.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return Header{}, nil, err
		}
		docs = append(docs, doc)
	}
	if len(docs) != r.header.Count {
		return Header{}, nil, fmt.Errorf("backup header announced %d document(s) but %d were read", r.header.Count, len(docs))
	}
	return r.header, docs, nil
}

// Verify checks the backup at path against the checksum in its manifest.
func Verify(path string) (*Manifest, error) {
	m, err := ReadManifest(path)
	if err != nil {
		return nil, err
	}
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open backup file: %w", err)
	}
	defer file.Close()

	h := sha256.New()
	if _, err := io.Copy(h, file); err != nil {
		return nil, fmt.Errorf("failed to hash backup file: %w", err)
	}
	if sum := hex.EncodeToString(h.Sum(nil)); sum != m.SHA256 {
		return nil, fmt.Errorf("backup %s is corrupt: checksum %s does not match manifest %s", path, sum, m.SHA256)
	}
	return m, nil
}

// Source replays a backup as the input of a create migration, which
// restores documents removed by a delete migration.
type Source struct {
	Path string
	// SkipVerify skips the manifest checksum.
	SkipVerify bool
}

// Documents implements source.Source.
func (s *Source) Documents(ctx context.Context) ([]models.Document, error) {
	if !s.SkipVerify {
		if _, err := Verify(s.Path); err != nil {
			return nil, err
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	_, docs, err := ReadAll(s.Path)
	return docs, err
}
