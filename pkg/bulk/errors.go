package bulk

import (
	"fmt"
	"strings"

	"github.com/surrealdb/surrealmigrate/pkg/models"
)

// Failure pairs an operation with the result that reported it failed.
type Failure struct {
	Operation models.Operation
	Result    models.OperationResult
}

func (f Failure) String() string {
	if f.Result.Message != "" {
		return fmt.Sprintf("%s: status %d: %s", f.Operation, f.Result.StatusCode, f.Result.Message)
	}
	return fmt.Sprintf("%s: status %d", f.Operation, f.Result.StatusCode)
}

func describe(failures []Failure) string {
	const shown = 3
	parts := make([]string, 0, shown)
	for i, f := range failures {
		if i == shown {
			parts = append(parts, fmt.Sprintf("and %d more", len(failures)-shown))
			break
		}
		parts = append(parts, f.String())
	}
	return strings.Join(parts, "; ")
}

// PartialFailureError reports the failed operations of one submission.
// It is passed to Retryer.NextDelay as the last error.
type PartialFailureError struct {
	Batch    int
	Failures []Failure
}

func (e *PartialFailureError) Error() string {
	return fmt.Sprintf("batch %d: %d operation(s) failed: %s", e.Batch, len(e.Failures), describe(e.Failures))
}

// PermanentFailureError is returned when a batch contains failures that
// retrying cannot fix.
type PermanentFailureError struct {
	Batch    int
	Failures []Failure
}

func (e *PermanentFailureError) Error() string {
	return fmt.Sprintf("batch %d: %d operation(s) failed permanently: %s", e.Batch, len(e.Failures), describe(e.Failures))
}

// RetriesExhaustedError is returned when failed operations still fail
// after the retryer gave up.
type RetriesExhaustedError struct {
	Batch    int
	Attempts int
	Last     *PartialFailureError
}

func (e *RetriesExhaustedError) Error() string {
	return fmt.Sprintf("batch %d: giving up after %d attempt(s): %v", e.Batch, e.Attempts, e.Last)
}

func (e *RetriesExhaustedError) Unwrap() error {
	return e.Last
}

// Remaining returns the operations that never succeeded.
func (e *RetriesExhaustedError) Remaining() []models.Operation {
	if e.Last == nil {
		return nil
	}
	ops := make([]models.Operation, len(e.Last.Failures))
	for i, f := range e.Last.Failures {
		ops[i] = f.Operation
	}
	return ops
}

// ResultMismatchError is returned when the store answers a batch with a
// different number of results than operations submitted.
type ResultMismatchError struct {
	Batch     int
	Submitted int
	Received  int
}

func (e *ResultMismatchError) Error() string {
	return fmt.Sprintf("batch %d: submitted %d operation(s) but received %d result(s)", e.Batch, e.Submitted, e.Received)
}

// SubmitError wraps a transport failure of the bulk primitive.
type SubmitError struct {
	Batch int
	Err   error
}

func (e *SubmitError) Error() string {
	return fmt.Sprintf("batch %d: bulk submit failed: %v", e.Batch, e.Err)
}

func (e *SubmitError) Unwrap() error {
	return e.Err
}
