package surrealmigrate

import (
	"errors"
	"fmt"

	"github.com/surrealdb/surrealmigrate/pkg/store"
)

// Migration definition errors
var (
	ErrNilMigration        = errors.New("no migration given")
	ErrUnknownMigration    = errors.New("unknown migration type")
	ErrUnknownOperation    = errors.New("unknown operation type, expected create, update or delete")
	ErrMissingSource       = errors.New("create migration needs a document source")
	ErrMissingSelect       = errors.New("migration needs a selection query")
	ErrMissingTransform    = errors.New("update migration needs a transform")
	ErrMissingPartitionKey = errors.New("delete migration needs a partition key extractor")
	ErrMissingDocumentID   = errors.New("document has no id")
	ErrInvalidDocumentID   = errors.New("document id must be a non-empty string")
	ErrNilDocument         = errors.New("document is null")
)

// SelectionError is returned when the selection query fails. Nothing
// has been written.
type SelectionError struct {
	Query store.Query
	Err   error
}

func (e *SelectionError) Error() string {
	return fmt.Sprintf("selection query %q failed: %v", e.Query.Statement, e.Err)
}

func (e *SelectionError) Unwrap() error {
	return e.Err
}

// SourceError is returned when the input of a create migration cannot
// be read. Nothing has been written.
type SourceError struct {
	Err error
}

func (e *SourceError) Error() string {
	return fmt.Sprintf("failed to read input documents: %v", e.Err)
}

func (e *SourceError) Unwrap() error {
	return e.Err
}

// RollbackValidationError is returned when the inverse transform does
// not restore the sample document. Nothing has been written.
type RollbackValidationError struct {
	DocumentID string
	// Diff is the difference between the original and the restored document.
	Diff string
	// Err is set when a transform failed during validation.
	Err error
}

func (e *RollbackValidationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("rollback validation on document %s failed: %v", e.DocumentID, e.Err)
	}
	return fmt.Sprintf("rollback validation on document %s failed: inverse transform does not restore the original (-original +restored):\n%s", e.DocumentID, e.Diff)
}

func (e *RollbackValidationError) Unwrap() error {
	return e.Err
}

// TransformError is returned when a transform fails on a document.
// Nothing has been written.
type TransformError struct {
	DocumentID string
	Err        error
}

func (e *TransformError) Error() string {
	return fmt.Sprintf("transform of document %s failed: %v", e.DocumentID, e.Err)
}

func (e *TransformError) Unwrap() error {
	return e.Err
}

// BackupError is returned when the pre-write backup fails. Nothing has
// been written.
type BackupError struct {
	Err error
}

func (e *BackupError) Error() string {
	return fmt.Sprintf("backup failed: %v", e.Err)
}

func (e *BackupError) Unwrap() error {
	return e.Err
}
