package memstore

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/surrealdb/surrealmigrate/pkg/models"
	"github.com/surrealdb/surrealmigrate/pkg/store"
)

func TestBulkAppliesInOrder(t *testing.T) {
	ctx := context.Background()
	s := New("tenantId")
	s.Seed(models.Document{"id": "old", "tenantId": "t"})

	results, err := s.Bulk(ctx, []models.Operation{
		models.NewCreate(models.Document{"id": "a", "tenantId": "t"}),
		models.NewCreate(models.Document{"id": "a", "tenantId": "t"}),
		models.NewUpsert(models.Document{"id": "old", "tenantId": "t", "v": 2}),
		models.NewDelete("old", "wrong"),
		models.NewDelete("old", "t"),
		models.NewDelete("missing", "t"),
	})
	require.NoError(t, err)

	codes := make([]int, len(results))
	for i, r := range results {
		codes[i] = r.StatusCode
	}
	assert.Equal(t, []int{201, 409, 200, 404, 204, 404}, codes)
	assert.Equal(t, 1, s.Len())
	assert.Len(t, s.BulkCalls(), 1)
}

func TestInjectedFailureTimes(t *testing.T) {
	ctx := context.Background()
	s := New("")
	s.InjectFailure(&Failure{
		Match:      MatchIDs("b"),
		StatusCode: models.StatusTooManyRequests,
		RetryAfter: 500 * time.Millisecond,
		Times:      1,
	})

	ops := []models.Operation{
		models.NewCreate(models.Document{"id": "a"}),
		models.NewCreate(models.Document{"id": "b"}),
	}
	results, err := s.Bulk(ctx, ops)
	require.NoError(t, err)
	assert.True(t, results[0].Succeeded())
	assert.Equal(t, models.StatusTooManyRequests, results[1].StatusCode)
	assert.Equal(t, 500*time.Millisecond, results[1].RetryAfter)

	results, err = s.Bulk(ctx, ops[1:])
	require.NoError(t, err)
	assert.True(t, results[0].Succeeded())
	assert.Equal(t, 2, s.Len())
}

func TestBulkTransportError(t *testing.T) {
	s := New("")
	s.BulkErr = errors.New("connection reset")

	_, err := s.Bulk(context.Background(), []models.Operation{models.NewDelete("a", "")})
	require.EqualError(t, err, "connection reset")
	assert.Len(t, s.BulkCalls(), 1)
}

func TestFindCustomSelector(t *testing.T) {
	s := New("")
	s.Seed(models.Document{"id": "1", "n": 1}, models.Document{"id": "2", "n": 2})
	s.Selector = func(_ store.Query, d models.Document) bool { return d["n"] == 2 }

	docs, err := s.Find(context.Background(), store.Query{Statement: "SELECT * FROM x WHERE n = 2"})
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "2", docs[0]["id"])
}

func TestSingleItemErrors(t *testing.T) {
	ctx := context.Background()
	s := New("")
	_, err := s.Create(ctx, models.Document{"id": "1"})
	require.NoError(t, err)

	_, err = s.Create(ctx, models.Document{"id": "1"})
	require.Error(t, err)

	require.Error(t, s.Delete(ctx, "nope", ""))
}
