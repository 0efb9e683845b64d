package surrealmigrate

import (
	"context"
	"fmt"
	"time"

	"github.com/gofrs/uuid"

	"github.com/surrealdb/surrealmigrate/internal/phase"
	"github.com/surrealdb/surrealmigrate/pkg/bulk"
	"github.com/surrealdb/surrealmigrate/pkg/confirm"
	"github.com/surrealdb/surrealmigrate/pkg/logger"
	"github.com/surrealdb/surrealmigrate/pkg/models"
	"github.com/surrealdb/surrealmigrate/pkg/store"
)

// Submitter writes an ordered list of operations. *bulk.Writer is the
// implementation used outside of tests.
type Submitter interface {
	Submit(ctx context.Context, ops []models.Operation) (bulk.Stats, error)
}

// Backup saves the documents a destructive run is about to change and
// returns where they were saved.
type Backup interface {
	Save(ctx context.Context, runID, operation string, docs []models.Document) (string, error)
}

// Engine runs migrations against one container.
type Engine struct {
	finder    store.Finder
	submitter Submitter
	confirmer confirm.Confirmer

	Logger logger.Logger
	// Backup, when set, receives the selected documents of update and
	// delete runs after confirmation and before any write.
	Backup Backup
	// DryRun selects and plans without asking for confirmation and
	// without writing.
	DryRun bool
	// NewID generates ids for created documents that have none.
	NewID func() (string, error)
}

// NewEngine returns an Engine that selects with finder, writes with
// submitter and asks confirmer before writing.
func NewEngine(finder store.Finder, submitter Submitter, confirmer confirm.Confirmer) *Engine {
	return &Engine{
		finder:    finder,
		submitter: submitter,
		confirmer: confirmer,
		Logger:    logger.Nop(),
		NewID:     newUUID,
	}
}

func newUUID() (string, error) {
	id, err := uuid.NewV4()
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

// Run executes m to completion or aborts it.
//
// A declined confirmation is not an error: the returned report has
// Declined set and nothing was written. The report is non-nil whenever
// m is a valid migration.
func (e *Engine) Run(ctx context.Context, m Migration) (*Report, error) {
	if m == nil {
		return nil, ErrNilMigration
	}
	if err := m.Validate(); err != nil {
		return nil, fmt.Errorf("invalid %s migration: %w", m.OperationType().Title(), err)
	}

	runID, err := e.NewID()
	if err != nil {
		return nil, fmt.Errorf("failed to generate run id: %w", err)
	}
	r := &run{
		Engine: e,
		phase:  phase.New(e.Logger),
		report: &Report{
			RunID:     runID,
			Operation: m.OperationType(),
			DryRun:    e.DryRun,
			StartedAt: time.Now(),
		},
	}

	switch m := m.(type) {
	case *CreateMigration:
		err = r.create(ctx, m)
	case *UpdateMigration:
		err = r.update(ctx, m)
	case *DeleteMigration:
		err = r.delete(ctx, m)
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnknownMigration, m)
	}

	if err != nil {
		r.phase.Abort()
		e.Logger.Error("Migration aborted", "run", runID, "operation", m.OperationType(), "err", err.Error())
	}
	r.report.Phase = r.phase.Current()
	r.report.Duration = time.Since(r.report.StartedAt)
	return r.report, err
}

// run is the state of one Engine.Run call.
type run struct {
	*Engine
	phase  *phase.Tracker
	report *Report
}

func (r *run) selectDocuments(ctx context.Context, q store.Query) ([]models.Document, error) {
	r.Logger.Debug("Selecting documents", "run", r.report.RunID, "query", q.Statement)
	docs, err := r.finder.Find(ctx, q)
	if err != nil {
		return nil, &SelectionError{Query: q, Err: err}
	}
	docs = models.SanitizeAll(docs)
	r.report.Selected = len(docs)
	return docs, r.phase.Fire(phase.EventSelect)
}

// confirm asks the operator and reports whether the run proceeds.
func (r *run) confirm(message string) (bool, error) {
	if r.DryRun {
		r.Logger.Info("Dry run, skipping confirmation", "run", r.report.RunID, "prompt", message)
		return true, r.phase.Fire(phase.EventRehearse)
	}

	ok, err := r.confirmer.Confirm(message)
	if err != nil {
		return false, fmt.Errorf("confirmation failed: %w", err)
	}
	if !ok {
		r.report.Declined = true
		r.Logger.Info("Operation declined", "run", r.report.RunID)
		return false, r.phase.Fire(phase.EventDecline)
	}
	return true, r.phase.Fire(phase.EventConfirm)
}

func (r *run) backup(ctx context.Context, docs []models.Document) error {
	if r.Backup == nil || r.DryRun || len(docs) == 0 {
		return nil
	}
	path, err := r.Backup.Save(ctx, r.report.RunID, string(r.report.Operation), docs)
	if err != nil {
		return &BackupError{Err: err}
	}
	r.report.BackupPath = path
	return nil
}

// execute hands ops to the submitter. title names the task in logs.
func (r *run) execute(ctx context.Context, title string, ops []models.Operation) error {
	r.report.Planned = len(ops)
	if err := r.phase.Fire(phase.EventPlan); err != nil {
		return err
	}
	if r.DryRun {
		r.Logger.Info("Dry run, nothing written", "run", r.report.RunID, "operations", len(ops))
		return nil
	}
	if err := r.phase.Fire(phase.EventExecute); err != nil {
		return err
	}

	r.Logger.Info(title, "run", r.report.RunID, "operations", len(ops))
	stats, err := r.submitter.Submit(ctx, ops)
	r.report.Bulk = stats
	if err != nil {
		return fmt.Errorf("%s failed after %d of %d operation(s): %w", title, stats.Succeeded, len(ops), err)
	}
	r.Logger.Info(title+" done", "run", r.report.RunID, "written", stats.Succeeded, "retries", stats.Retries)
	return r.phase.Fire(phase.EventComplete)
}
