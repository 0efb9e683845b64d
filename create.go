package surrealmigrate

import (
	"context"
	"fmt"
	"maps"

	"github.com/surrealdb/surrealmigrate/internal/phase"
	"github.com/surrealdb/surrealmigrate/pkg/models"
)

func (r *run) create(ctx context.Context, m *CreateMigration) error {
	docs, err := m.Source.Documents(ctx)
	if err != nil {
		return &SourceError{Err: err}
	}
	r.report.Selected = len(docs)
	if err := r.phase.Fire(phase.EventSelect); err != nil {
		return err
	}

	ops := make([]models.Operation, len(docs))
	for i, doc := range docs {
		if doc == nil {
			return &TransformError{DocumentID: fmt.Sprintf("#%d", i+1), Err: ErrNilDocument}
		}
		switch raw := doc[models.IDField]; {
		case raw != nil:
			if _, ok := doc.ID(); !ok {
				return &TransformError{DocumentID: fmt.Sprintf("#%d", i+1), Err: fmt.Errorf("%w, got %T %v", ErrInvalidDocumentID, raw, raw)}
			}
		case m.DisableIDGeneration:
			return &TransformError{DocumentID: fmt.Sprintf("#%d", i+1), Err: ErrMissingDocumentID}
		default:
			id, err := r.NewID()
			if err != nil {
				return fmt.Errorf("failed to generate document id: %w", err)
			}
			doc = maps.Clone(doc)
			doc.SetID(id)
		}
		ops[i] = models.NewCreate(doc)
	}

	ok, err := r.confirm(fmt.Sprintf("Operation type: Create. Documents count: %d. Proceed?", len(docs)))
	if err != nil || !ok {
		return err
	}

	return r.execute(ctx, "Creating documents", ops)
}
