package bulk

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/surrealdb/surrealmigrate/pkg/models"
	"github.com/surrealdb/surrealmigrate/pkg/store/memstore"
)

func createOps(n int) []models.Operation {
	ops := make([]models.Operation, n)
	for i := range ops {
		ops[i] = models.NewCreate(models.Document{"id": fmt.Sprintf("doc-%03d", i), "n": i})
	}
	return ops
}

func ids(ops []models.Operation) []string {
	out := make([]string, len(ops))
	for i, op := range ops {
		out[i] = op.ID
	}
	return out
}

// newTestWriter returns a writer that records sleeps instead of sleeping.
func newTestWriter(client *memstore.Store) (*Writer, *[]time.Duration) {
	var slept []time.Duration
	w := New(client)
	w.Retryer = NewFixedDelayRetryer(10*time.Millisecond, 5)
	w.sleep = func(ctx context.Context, d time.Duration) error {
		slept = append(slept, d)
		return ctx.Err()
	}
	return w, &slept
}

func TestChunk(t *testing.T) {
	for _, n := range []int{0, 1, 99, 100, 101, 250, 1000, 1001} {
		t.Run(fmt.Sprint(n), func(t *testing.T) {
			ops := createOps(n)
			batches := Chunk(ops, 100)

			assert.Len(t, batches, (n+99)/100)

			var joined []models.Operation
			for _, b := range batches {
				assert.LessOrEqual(t, len(b), 100)
				assert.NotEmpty(t, b)
				joined = append(joined, b...)
			}
			assert.Equal(t, ids(ops), ids(joined))
		})
	}
}

func TestChunkClampsSize(t *testing.T) {
	assert.Len(t, Chunk(createOps(250), 0), 3)
	assert.Len(t, Chunk(createOps(250), 1000), 3)
	assert.Len(t, Chunk(createOps(250), 50), 5)
}

func TestSubmitEmpty(t *testing.T) {
	mem := memstore.New("")
	w, _ := newTestWriter(mem)

	stats, err := w.Submit(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, Stats{}, stats)
	assert.Empty(t, mem.BulkCalls())
}

func TestSubmitRetriesOnlyFailedSubset(t *testing.T) {
	mem := memstore.New("")
	mem.InjectFailure(&memstore.Failure{
		Match:      memstore.MatchIDs("doc-130", "doc-117"),
		StatusCode: models.StatusTooManyRequests,
		RetryAfter: 500 * time.Millisecond,
		Times:      2,
	})
	w, slept := newTestWriter(mem)

	stats, err := w.Submit(context.Background(), createOps(250))
	require.NoError(t, err)

	calls := mem.BulkCalls()
	require.Len(t, calls, 4)
	assert.Len(t, calls[0], 100)
	assert.Len(t, calls[1], 100)
	assert.Equal(t, []string{"doc-117", "doc-130"}, ids(calls[2]), "only the failed operations, in their original order")
	assert.Len(t, calls[3], 50)

	assert.Equal(t, []time.Duration{500 * time.Millisecond}, *slept)
	assert.Equal(t, 250, mem.Len())
	assert.Equal(t, Stats{
		Batches:    3,
		Operations: 250,
		Succeeded:  250,
		Attempts:   4,
		Retries:    1,
		Waited:     500 * time.Millisecond,
	}, stats)
}

func TestSubmitWaitsForLongestHint(t *testing.T) {
	mem := memstore.New("")
	mem.InjectFailure(&memstore.Failure{Match: memstore.MatchIDs("doc-001"), StatusCode: 429, RetryAfter: time.Second, Times: 1})
	mem.InjectFailure(&memstore.Failure{Match: memstore.MatchIDs("doc-002"), StatusCode: 429, RetryAfter: 3 * time.Second, Times: 1})
	w, slept := newTestWriter(mem)

	_, err := w.Submit(context.Background(), createOps(5))
	require.NoError(t, err)
	assert.Equal(t, []time.Duration{3 * time.Second}, *slept)
}

func TestSubmitWithoutHintUsesRetryer(t *testing.T) {
	mem := memstore.New("")
	mem.InjectFailure(&memstore.Failure{Match: memstore.MatchIDs("doc-000"), StatusCode: models.StatusUnavailable, Times: 2})
	w, slept := newTestWriter(mem)

	_, err := w.Submit(context.Background(), createOps(3))
	require.NoError(t, err)
	assert.Equal(t, []time.Duration{10 * time.Millisecond, 10 * time.Millisecond}, *slept)
	assert.Len(t, mem.BulkCalls(), 3)
}

func TestSubmitRetriesExhausted(t *testing.T) {
	mem := memstore.New("")
	mem.InjectFailure(&memstore.Failure{Match: memstore.MatchIDs("doc-004"), StatusCode: models.StatusTooManyRequests})
	w, _ := newTestWriter(mem)
	w.Retryer = NewFixedDelayRetryer(0, 3)

	stats, err := w.Submit(context.Background(), createOps(150))
	require.Error(t, err)

	var exhausted *RetriesExhaustedError
	require.True(t, errors.As(err, &exhausted), "got %v", err)
	assert.Equal(t, 0, exhausted.Batch)
	assert.Equal(t, 4, exhausted.Attempts)
	assert.Equal(t, []string{"doc-004"}, ids(exhausted.Remaining()))

	var partial *PartialFailureError
	assert.True(t, errors.As(err, &partial))

	assert.Len(t, mem.BulkCalls(), 4, "the second batch is never submitted")
	assert.Equal(t, 99, stats.Succeeded)
}

func TestSubmitPermanentFailureStops(t *testing.T) {
	mem := memstore.New("")
	mem.Seed(models.Document{"id": "doc-001"})
	w, slept := newTestWriter(mem)

	_, err := w.Submit(context.Background(), createOps(120))

	var permanent *PermanentFailureError
	require.True(t, errors.As(err, &permanent), "got %v", err)
	require.Len(t, permanent.Failures, 1)
	assert.Equal(t, "doc-001", permanent.Failures[0].Operation.ID)
	assert.Equal(t, models.StatusConflict, permanent.Failures[0].Result.StatusCode)
	assert.Empty(t, *slept)
	assert.Len(t, mem.BulkCalls(), 1)
}

func TestSubmitRetryAllFailures(t *testing.T) {
	mem := memstore.New("")
	mem.InjectFailure(&memstore.Failure{Match: memstore.MatchIDs("doc-002"), StatusCode: models.StatusBadRequest, Times: 2})
	w, _ := newTestWriter(mem)
	w.RetryAllFailures = true

	stats, err := w.Submit(context.Background(), createOps(4))
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Retries)
	assert.Equal(t, 4, mem.Len())
}

func TestSubmitTransportError(t *testing.T) {
	mem := memstore.New("")
	cause := errors.New("connection reset")
	mem.BulkErr = cause
	w, _ := newTestWriter(mem)

	_, err := w.Submit(context.Background(), createOps(1))
	var submitErr *SubmitError
	require.True(t, errors.As(err, &submitErr))
	assert.ErrorIs(t, err, cause)
}

type shortClient struct{}

func (shortClient) Bulk(_ context.Context, ops []models.Operation) ([]models.OperationResult, error) {
	return make([]models.OperationResult, len(ops)-1), nil
}

func TestSubmitResultMismatch(t *testing.T) {
	w := New(shortClient{})

	_, err := w.Submit(context.Background(), createOps(3))
	var mismatch *ResultMismatchError
	require.True(t, errors.As(err, &mismatch))
	assert.Equal(t, 3, mismatch.Submitted)
	assert.Equal(t, 2, mismatch.Received)
}

func TestSubmitCancelledBetweenRetries(t *testing.T) {
	mem := memstore.New("")
	mem.InjectFailure(&memstore.Failure{StatusCode: models.StatusTooManyRequests})
	w, _ := newTestWriter(mem)

	ctx, cancel := context.WithCancel(context.Background())
	w.sleep = func(context.Context, time.Duration) error {
		cancel()
		return nil
	}

	_, err := w.Submit(ctx, createOps(3))
	require.ErrorIs(t, err, context.Canceled)
	assert.Len(t, mem.BulkCalls(), 1)
}

func TestSleepHonoursContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	err := sleep(ctx, time.Minute)
	require.ErrorIs(t, err, context.Canceled)
	assert.Less(t, time.Since(start), time.Second)

	require.NoError(t, sleep(context.Background(), time.Millisecond))
}

func TestMetrics(t *testing.T) {
	reg := prometheus.NewPedanticRegistry()
	mem := memstore.New("")
	mem.InjectFailure(&memstore.Failure{Match: memstore.MatchIDs("doc-000"), StatusCode: 429, RetryAfter: time.Millisecond, Times: 1})
	w, _ := newTestWriter(mem)
	w.Metrics = NewMetrics(reg)

	_, err := w.Submit(context.Background(), createOps(150))
	require.NoError(t, err)

	assert.Equal(t, float64(2), testutil.ToFloat64(w.Metrics.batches))
	assert.Equal(t, float64(150), testutil.ToFloat64(w.Metrics.operations.WithLabelValues("create")))
	assert.Equal(t, float64(1), testutil.ToFloat64(w.Metrics.failures.WithLabelValues("retryable")))
	assert.Equal(t, float64(1), testutil.ToFloat64(w.Metrics.retries))
}
