// Package source provides the inputs of create migrations.
//
// Every Source is drained completely before a migration asks for
// confirmation, so the operator is shown the exact document count.
package source

import (
	"context"
	"fmt"

	"github.com/surrealdb/surrealmigrate/pkg/models"
	"github.com/surrealdb/surrealmigrate/pkg/store"
	"github.com/surrealdb/surrealmigrate/pkg/transform"
)

// Source produces the documents to create.
type Source interface {
	Documents(ctx context.Context) ([]models.Document, error)
}

// Literal is an in-memory document list.
type Literal []models.Document

// Documents implements Source.
func (l Literal) Documents(context.Context) ([]models.Document, error) {
	return append([]models.Document(nil), l...), nil
}

// Store reads the documents to create from another container, for
// copying data between a source and a target store.
type Store struct {
	Finder store.Finder
	Query  store.Query
}

// Documents implements Source. Results are sanitized.
func (s *Store) Documents(ctx context.Context) ([]models.Document, error) {
	docs, err := s.Finder.Find(ctx, s.Query)
	if err != nil {
		return nil, fmt.Errorf("failed to read source documents: %w", err)
	}
	return models.SanitizeAll(docs), nil
}

// Mapped applies Map to every document of Source.
type Mapped struct {
	Source Source
	Map    transform.Func
}

// Documents implements Source.
func (m *Mapped) Documents(ctx context.Context) ([]models.Document, error) {
	docs, err := m.Source.Documents(ctx)
	if err != nil {
		return nil, err
	}
	return mapAll(docs, m.Map)
}

func mapAll(docs []models.Document, fn transform.Func) ([]models.Document, error) {
	if fn == nil {
		return docs, nil
	}
	out := make([]models.Document, 0, len(docs))
	for i, d := range docs {
		mapped, err := fn(d)
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", i+1, err)
		}
		out = append(out, mapped)
	}
	return out, nil
}
