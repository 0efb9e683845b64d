package surrealmigrate

import (
	"context"
	"errors"
	"fmt"

	"github.com/surrealdb/surrealmigrate/internal/phase"
	"github.com/surrealdb/surrealmigrate/pkg/models"
)

func (r *run) update(ctx context.Context, m *UpdateMigration) error {
	candidates, err := r.selectDocuments(ctx, m.Select)
	if err != nil {
		return err
	}

	ok, err := r.confirm(fmt.Sprintf("Operation type: Update. Found: %d documents. Proceed?", len(candidates)))
	if err != nil || !ok {
		return err
	}

	if len(candidates) == 0 {
		r.Logger.Info("No documents to update", "run", r.report.RunID)
		return r.phase.Fire(phase.EventPlan)
	}

	if m.Inverse != nil {
		if err := validateRollback(candidates[0], m); err != nil {
			return err
		}
		if err := r.phase.Fire(phase.EventValidate); err != nil {
			return err
		}
	}

	// Every transform runs before the first write, so a failing document
	// leaves the container untouched.
	ops := make([]models.Operation, len(candidates))
	for i, doc := range candidates {
		out, err := applyTransform(doc, m)
		if err != nil {
			return err
		}
		ops[i] = models.NewUpsert(out)
	}

	if err := r.backup(ctx, candidates); err != nil {
		return err
	}

	return r.execute(ctx, "Updating documents", ops)
}

func applyTransform(doc models.Document, m *UpdateMigration) (models.Document, error) {
	id, _ := doc.ID()
	work, err := doc.Clone()
	if err != nil {
		return nil, &TransformError{DocumentID: id, Err: err}
	}
	out, err := m.Transform(work)
	if err != nil {
		return nil, &TransformError{DocumentID: id, Err: err}
	}
	if out == nil {
		return nil, &TransformError{DocumentID: id, Err: errors.New("transform returned no document")}
	}
	if newID, ok := out.ID(); !ok || newID != id {
		return nil, &TransformError{DocumentID: id, Err: fmt.Errorf("transform must keep the document id, got %v", out[models.IDField])}
	}
	return out, nil
}

// validateRollback proves on original that m.Inverse undoes m.Transform.
func validateRollback(original models.Document, m *UpdateMigration) error {
	id, _ := original.ID()

	work, err := original.Clone()
	if err != nil {
		return &RollbackValidationError{DocumentID: id, Err: err}
	}
	forward, err := m.Transform(work)
	if err != nil {
		return &RollbackValidationError{DocumentID: id, Err: fmt.Errorf("transform: %w", err)}
	}
	restored, err := m.Inverse(forward)
	if err != nil {
		return &RollbackValidationError{DocumentID: id, Err: fmt.Errorf("inverse transform: %w", err)}
	}

	equal, err := models.Equal(original, restored)
	if err != nil {
		return &RollbackValidationError{DocumentID: id, Err: err}
	}
	if !equal {
		return &RollbackValidationError{DocumentID: id, Diff: models.Diff(original, restored)}
	}
	return nil
}
