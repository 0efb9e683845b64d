// Package store defines the document store primitives the migration
// engine consumes, and Container, the sanitizing facade over them.
//
// Concrete clients live in the subpackages:
//
//   - [github.com/surrealdb/surrealmigrate/pkg/store/surrealstore] talks to SurrealDB
//   - [github.com/surrealdb/surrealmigrate/pkg/store/memstore] is an in-memory store with failure injection
package store

import (
	"context"

	"github.com/surrealdb/surrealmigrate/pkg/models"
)

// Query is a selection expression with its bound variables.
type Query struct {
	Statement string         `yaml:"query" json:"query"`
	Vars      map[string]any `yaml:"vars,omitempty" json:"vars,omitempty"`
}

func (q Query) String() string {
	return q.Statement
}

// Finder runs selection queries and returns every matching document.
type Finder interface {
	Find(ctx context.Context, q Query) ([]models.Document, error)
}

// BulkClient submits an ordered batch of operations in one call.
//
// Implementations return exactly one result per operation, in the
// order the operations were submitted. A non-nil error means the batch
// as a whole could not be submitted.
type BulkClient interface {
	Bulk(ctx context.Context, ops []models.Operation) ([]models.OperationResult, error)
}

// ItemClient holds the single-item primitives.
//
// Create and Upsert return the stored resource, or nil when the store
// reported none.
type ItemClient interface {
	Create(ctx context.Context, doc models.Document) (models.Document, error)
	Upsert(ctx context.Context, doc models.Document) (models.Document, error)
	Delete(ctx context.Context, id, partitionKey string) error
}

// Client is the full set of primitives a container exposes.
type Client interface {
	Finder
	BulkClient
	ItemClient
}
