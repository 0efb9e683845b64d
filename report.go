package surrealmigrate

import (
	"time"

	"github.com/surrealdb/surrealmigrate/pkg/bulk"
)

// Report describes the outcome of a run. It is returned even when the
// run fails, and then describes how far it got.
type Report struct {
	RunID     string        `json:"run_id"`
	Operation OperationType `json:"operation"`
	// Selected is the number of documents read from the source or
	// matched by the selection query.
	Selected int `json:"selected"`
	// Planned is the number of operations handed to the bulk writer.
	Planned    int           `json:"planned"`
	Declined   bool          `json:"declined"`
	DryRun     bool          `json:"dry_run"`
	Phase      string        `json:"phase"`
	BackupPath string        `json:"backup_path,omitempty"`
	Bulk       bulk.Stats    `json:"bulk"`
	StartedAt  time.Time     `json:"started_at"`
	Duration   time.Duration `json:"duration"`
}

// Written is the number of operations the store committed.
func (r *Report) Written() int {
	return r.Bulk.Succeeded
}
