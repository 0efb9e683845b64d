package surrealmigrate

import (
	"context"
	"fmt"

	"github.com/surrealdb/surrealmigrate/pkg/models"
)

func (r *run) delete(ctx context.Context, m *DeleteMigration) error {
	candidates, err := r.selectDocuments(ctx, m.Select)
	if err != nil {
		return err
	}

	ops := make([]models.Operation, len(candidates))
	for i, doc := range candidates {
		id, ok := doc.ID()
		if !ok {
			return &TransformError{DocumentID: fmt.Sprintf("#%d", i+1), Err: ErrMissingDocumentID}
		}
		ops[i] = models.NewDelete(id, m.PartitionKey(doc))
	}

	ok, err := r.confirm(fmt.Sprintf("Operation type: Delete. Found: %d documents. Proceed?", len(candidates)))
	if err != nil || !ok {
		return err
	}

	if err := r.backup(ctx, candidates); err != nil {
		return err
	}

	return r.execute(ctx, "Deleting documents", ops)
}
