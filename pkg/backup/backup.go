// Package backup writes and reads backup files of the documents a
// destructive migration is about to change.
//
// A backup file starts with the Format magic string, followed by a CBOR
// stream: one Header, then one document per item. A manifest with the
// file's size and SHA-256 is written next to it as <file>.manifest.json.
package backup

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"hash"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/fxamacker/cbor/v2"
	"github.com/goccy/go-json"

	"github.com/surrealdb/surrealmigrate/pkg/models"
)

// Format is the magic header of a backup file.
const Format = "SMBACKUP01"

// Extension is the file extension of backup files.
const Extension = ".smbak"

var ErrInvalidFormat = errors.New("not a backup file")

// Header describes the contents of a backup file.
type Header struct {
	RunID     string    `cbor:"run_id" json:"run_id"`
	Operation string    `cbor:"operation" json:"operation"`
	Namespace string    `cbor:"namespace" json:"namespace"`
	Database  string    `cbor:"database" json:"database"`
	Container string    `cbor:"container" json:"container"`
	CreatedAt time.Time `cbor:"created_at" json:"created_at"`
	Count     int       `cbor:"count" json:"count"`
}

// Manifest is written alongside a backup file.
type Manifest struct {
	Filename string `json:"filename"`
	Header
	Size   int64  `json:"size"`
	SHA256 string `json:"sha256"`
}

// HumanSize formats Size for display.
func (m *Manifest) HumanSize() string {
	return humanize.Bytes(uint64(m.Size))
}

// Writer streams documents into a backup file.
type Writer struct {
	path   string
	file   *os.File
	hash   hash.Hash
	enc    *cbor.Encoder
	header Header
	count  int
}

// Create creates a backup file at path and writes its header.
func Create(path string, header Header) (*Writer, error) {
	if header.CreatedAt.IsZero() {
		header.CreatedAt = time.Now().UTC()
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create backup directory: %w", err)
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, fmt.Errorf("failed to create backup file: %w", err)
	}

	h := sha256.New()
	w := io.MultiWriter(file, h)

	bw := &Writer{path: path, file: file, hash: h, enc: models.NewEncoder(w), header: header}
	if _, err := w.Write([]byte(Format)); err != nil {
		_ = bw.Abort()
		return nil, fmt.Errorf("failed to write magic header: %w", err)
	}
	if err := bw.enc.Encode(header); err != nil {
		_ = bw.Abort()
		return nil, fmt.Errorf("failed to write backup header: %w", err)
	}
	return bw, nil
}

// Write appends doc to the backup.
func (w *Writer) Write(doc models.Document) error {
	if err := w.enc.Encode(doc); err != nil {
		return fmt.Errorf("failed to write document %s: %w", doc, err)
	}
	w.count++
	return nil
}

// Close flushes the file and writes its manifest. When it fails the
// backup file is removed.
func (w *Writer) Close() (*Manifest, error) {
	m, err := w.finish()
	if err != nil {
		if rerr := os.Remove(w.path); rerr != nil && !errors.Is(rerr, fs.ErrNotExist) {
			return nil, errors.Join(err, fmt.Errorf("failed to remove partial backup: %w", rerr))
		}
		return nil, err
	}
	return m, nil
}

func (w *Writer) finish() (*Manifest, error) {
	if err := w.file.Sync(); err != nil {
		w.file.Close()
		return nil, fmt.Errorf("failed to sync backup file: %w", err)
	}
	info, err := w.file.Stat()
	if err != nil {
		w.file.Close()
		return nil, fmt.Errorf("failed to stat backup file: %w", err)
	}
	if err := w.file.Close(); err != nil {
		return nil, fmt.Errorf("failed to close backup file: %w", err)
	}
	if w.count != w.header.Count {
		return nil, fmt.Errorf("backup header announced %d document(s) but %d were written", w.header.Count, w.count)
	}

	m := &Manifest{
		Filename: filepath.Base(w.path),
		Header:   w.header,
		Size:     info.Size(),
		SHA256:   hex.EncodeToString(w.hash.Sum(nil)),
	}
	if err := WriteManifest(w.path, m); err != nil {
		return nil, err
	}
	return m, nil
}

// Abort closes and removes an unfinished backup file.
func (w *Writer) Abort() error {
	_ = w.file.Close()
	if err := os.Remove(w.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to remove partial backup: %w", err)
	}
	return nil
}

// WriteManifest writes m to <path>.manifest.json.
func WriteManifest(path string, m *Manifest) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal manifest: %w", err)
	}
	return os.WriteFile(path+".manifest.json", data, 0o600)
}

// ReadManifest reads the manifest of the backup at path.
func ReadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path + ".manifest.json")
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to unmarshal manifest: %w", err)
	}
	return &m, nil
}
