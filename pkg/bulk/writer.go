// Package bulk submits large operation sets to a store's bulk primitive.
//
// A Writer splits the operations into batches of at most MaxBatchSize,
// submits the batches one after another and, when some operations of a
// batch fail, resubmits exactly those operations after waiting for the
// store's retry-after hint. Batches are independent: a failing batch
// never rolls back batches that were already committed.
package bulk

import (
	"context"
	"fmt"
	"time"

	"github.com/surrealdb/surrealmigrate/pkg/logger"
	"github.com/surrealdb/surrealmigrate/pkg/models"
	"github.com/surrealdb/surrealmigrate/pkg/store"
)

// Stats summarizes one Submit call.
type Stats struct {
	Batches    int `json:"batches"`
	Operations int `json:"operations"`
	Succeeded  int `json:"succeeded"`
	// Attempts counts every call to the bulk primitive, retries included.
	Attempts int           `json:"attempts"`
	Retries  int           `json:"retries"`
	Waited   time.Duration `json:"waited"`
}

// Writer drives a store.BulkClient.
type Writer struct {
	client store.BulkClient

	// BatchSize caps the number of operations per submission.
	// Defaults to MaxBatchSize.
	BatchSize int
	// Retryer bounds the resubmissions of a batch and supplies the delay
	// when the store gives no retry-after hint.
	Retryer Retryer
	// RetryAllFailures retries permanent failures too, until the
	// retryer gives up. By default a permanent failure ends the run.
	RetryAllFailures bool
	Logger           logger.Logger
	Metrics          *Metrics

	// sleep is replaced in tests.
	sleep func(ctx context.Context, d time.Duration) error
}

// New returns a Writer with the default batch size and retryer.
func New(client store.BulkClient) *Writer {
	return &Writer{
		client:    client,
		BatchSize: MaxBatchSize,
		Retryer:   NewExponentialBackoffRetryer(),
		Logger:    logger.Nop(),
		sleep:     sleep,
	}
}

// Submit writes ops in order. An empty ops is a no-op.
//
// The returned Stats are valid even when an error is returned; they
// describe what was committed before the failure.
func (w *Writer) Submit(ctx context.Context, ops []models.Operation) (Stats, error) {
	stats := Stats{Operations: len(ops)}
	if len(ops) == 0 {
		return stats, nil
	}

	batches := Chunk(ops, w.BatchSize)
	w.Logger.Debug("Submitting operations", "operations", len(ops), "batches", len(batches))

	for i, batch := range batches {
		stats.Batches++
		w.Metrics.batch()
		if err := w.submitBatch(ctx, i, batch, &stats); err != nil {
			return stats, err
		}
		w.Logger.Debug("Batch committed", "batch", i, "operations", len(batch))
	}
	return stats, nil
}

func (w *Writer) submitBatch(ctx context.Context, index int, batch []models.Operation, stats *Stats) error {
	w.Retryer.Reset()
	remaining := batch

	for attempt := 0; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("bulk write aborted at batch %d: %w", index, err)
		}

		stats.Attempts++
		results, err := w.client.Bulk(ctx, remaining)
		if err != nil {
			return &SubmitError{Batch: index, Err: err}
		}
		if len(results) != len(remaining) {
			return &ResultMismatchError{Batch: index, Submitted: len(remaining), Received: len(results)}
		}

		var failures []Failure
		permanent := 0
		for i, res := range results {
			class := res.Class()
			if class == models.ClassSuccess {
				stats.Succeeded++
				w.Metrics.succeeded(remaining[i].Kind)
				continue
			}
			w.Metrics.failed(class)
			if class == models.ClassPermanent {
				permanent++
			}
			failures = append(failures, Failure{Operation: remaining[i], Result: res})
		}
		if len(failures) == 0 {
			return nil
		}

		if permanent > 0 && !w.RetryAllFailures {
			return &PermanentFailureError{Batch: index, Failures: permanentOnly(failures)}
		}

		last := &PartialFailureError{Batch: index, Failures: failures}
		delay, ok := w.Retryer.NextDelay(attempt, last)
		if !ok {
			return &RetriesExhaustedError{Batch: index, Attempts: attempt + 1, Last: last}
		}
		if hint := maxRetryAfter(failures); hint > 0 {
			delay = hint
		}

		w.Logger.Warn("Retrying failed operations",
			"batch", index,
			"failed", len(failures),
			"attempt", attempt+1,
			"wait", delay.String(),
		)
		stats.Retries++
		stats.Waited += delay
		w.Metrics.retry(delay)

		if err := w.sleep(ctx, delay); err != nil {
			return fmt.Errorf("bulk write aborted at batch %d: %w", index, err)
		}

		remaining = make([]models.Operation, len(failures))
		for i, f := range failures {
			remaining[i] = f.Operation
		}
	}
}

func permanentOnly(failures []Failure) []Failure {
	var out []Failure
	for _, f := range failures {
		if f.Result.Class() == models.ClassPermanent {
			out = append(out, f)
		}
	}
	return out
}

func maxRetryAfter(failures []Failure) time.Duration {
	var d time.Duration
	for _, f := range failures {
		d = max(d, f.Result.RetryAfter)
	}
	return d
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
