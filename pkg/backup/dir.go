package backup

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/surrealdb/surrealmigrate/pkg/logger"
	"github.com/surrealdb/surrealmigrate/pkg/models"
)

// Dir saves one backup file per run into a directory.
type Dir struct {
	Path      string
	Namespace string
	Database  string
	Container string
	Logger    logger.Logger
}

// Filename returns the name of the backup file for a run.
func Filename(container, operation, runID string) string {
	return fmt.Sprintf("%s-%s-%s%s", container, strings.ToLower(operation), runID, Extension)
}

// Save writes docs to a new backup file and returns its path.
func (d *Dir) Save(ctx context.Context, runID, operation string, docs []models.Document) (string, error) {
	path := filepath.Join(d.Path, Filename(d.Container, operation, runID))

	w, err := Create(path, Header{
		RunID:     runID,
		Operation: operation,
		Namespace: d.Namespace,
		Database:  d.Database,
		Container: d.Container,
		Count:     len(docs),
	})
	if err != nil {
		return "", err
	}
	for _, doc := range docs {
		err := ctx.Err()
		if err == nil {
			err = w.Write(doc)
		}
		if err != nil {
			if aerr := w.Abort(); aerr != nil && d.Logger != nil {
				d.Logger.Warn("Failed to remove partial backup", "path", path, "err", aerr.Error())
			}
			return "", err
		}
	}
	m, err := w.Close()
	if err != nil {
		return "", err
	}

	if d.Logger != nil {
		d.Logger.Info("Backup written", "path", path, "documents", m.Count, "size", m.HumanSize())
	}
	return path, nil
}
