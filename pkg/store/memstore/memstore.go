// Package memstore provides an in-memory partitioned document store for
// testing purposes.
//
// It implements store.Client and includes failure injection, so tests
// can make individual operations of a bulk batch fail with a chosen
// status code and retry-after hint, a fixed number of times or forever.
// Every bulk call is recorded and can be inspected afterwards.
//
// Stored documents carry store metadata fields (_rid, _etag, _ts, ...)
// the same way a real partitioned store returns them.
package memstore

import (
	"context"
	"fmt"
	"reflect"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/surrealdb/surrealmigrate/pkg/models"
	"github.com/surrealdb/surrealmigrate/pkg/store"
)

// Selector decides whether doc matches q.
type Selector func(q store.Query, doc models.Document) bool

// MatchVars is the default Selector. A document matches when every
// query variable equals the top-level field of the same name.
func MatchVars(q store.Query, doc models.Document) bool {
	for k, v := range q.Vars {
		got, ok := doc[k]
		if !ok || !reflect.DeepEqual(got, v) {
			return false
		}
	}
	return true
}

// Failure makes matching operations fail inside Bulk.
type Failure struct {
	// Match selects the operations this failure applies to.
	// If nil, every operation matches.
	Match func(op models.Operation) bool
	// StatusCode is reported for the failed operation.
	StatusCode int
	// RetryAfter is reported as the store's retry-after hint.
	RetryAfter time.Duration
	// Times is how many matching operations fail before the failure
	// stops applying. Zero means forever.
	Times int

	hits int
}

func (f *Failure) applies(op models.Operation) bool {
	if f.Times > 0 && f.hits >= f.Times {
		return false
	}
	return f.Match == nil || f.Match(op)
}

// MatchIDs returns a Failure matcher for the given document ids.
func MatchIDs(ids ...string) func(op models.Operation) bool {
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return func(op models.Operation) bool {
		_, ok := set[op.ID]
		return ok
	}
}

// Store is an in-memory store.Client.
type Store struct {
	mu sync.Mutex

	partitionKey string
	docs         map[string]models.Document
	failures     []*Failure
	bulkCalls    [][]models.Operation
	seq          int

	// Selector filters documents in Find. Defaults to MatchVars.
	Selector Selector
	// FindErr, when set, is returned by Find.
	FindErr error
	// BulkErr, when set, is returned by Bulk as a transport failure.
	BulkErr error
	// Now is used for the _ts metadata field.
	Now func() time.Time
}

// New returns an empty store partitioned by the partitionKey field.
// An empty partitionKey means the store is not partitioned.
func New(partitionKey string) *Store {
	return &Store{
		partitionKey: partitionKey,
		docs:         make(map[string]models.Document),
		Selector:     MatchVars,
		Now:          time.Now,
	}
}

// Seed stores docs directly, bypassing failure injection.
func (s *Store) Seed(docs ...models.Document) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, d := range docs {
		id, _ := d.ID()
		s.docs[id] = s.withMetadata(d)
	}
}

// InjectFailure registers a failure for subsequent Bulk calls.
func (s *Store) InjectFailure(f *Failure) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures = append(s.failures, f)
}

// BulkCalls returns a copy of every batch submitted to Bulk, in order.
func (s *Store) BulkCalls() [][]models.Operation {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([][]models.Operation, len(s.bulkCalls))
	for i, c := range s.bulkCalls {
		out[i] = append([]models.Operation(nil), c...)
	}
	return out
}

// Len returns the number of stored documents.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.docs)
}

// Get returns the stored document including its metadata fields.
func (s *Store) Get(id string) (models.Document, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.docs[id]
	return d, ok
}

// Find implements store.Finder. Results are ordered by id.
func (s *Store) Find(ctx context.Context, q store.Query) ([]models.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FindErr != nil {
		return nil, s.FindErr
	}

	ids := make([]string, 0, len(s.docs))
	for id := range s.docs {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var out []models.Document
	for _, id := range ids {
		d := s.docs[id]
		if s.Selector(q, d) {
			out = append(out, copyDoc(d))
		}
	}
	return out, nil
}

// Bulk implements store.BulkClient.
func (s *Store) Bulk(ctx context.Context, ops []models.Operation) ([]models.OperationResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.bulkCalls = append(s.bulkCalls, append([]models.Operation(nil), ops...))
	if s.BulkErr != nil {
		return nil, s.BulkErr
	}

	results := make([]models.OperationResult, len(ops))
	for i, op := range ops {
		if f := s.failureFor(op); f != nil {
			f.hits++
			results[i] = models.OperationResult{
				StatusCode: f.StatusCode,
				RetryAfter: f.RetryAfter,
				Message:    "injected failure",
			}
			continue
		}
		results[i] = s.apply(op)
	}
	return results, nil
}

// Create implements store.ItemClient.
func (s *Store) Create(ctx context.Context, doc models.Document) (models.Document, error) {
	return s.single(ctx, models.NewCreate(doc))
}

// Upsert implements store.ItemClient.
func (s *Store) Upsert(ctx context.Context, doc models.Document) (models.Document, error) {
	return s.single(ctx, models.NewUpsert(doc))
}

// Delete implements store.ItemClient.
func (s *Store) Delete(ctx context.Context, id, partitionKey string) error {
	_, err := s.single(ctx, models.NewDelete(id, partitionKey))
	return err
}

func (s *Store) single(ctx context.Context, op models.Operation) (models.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	res := s.apply(op)
	if !res.Succeeded() {
		return nil, fmt.Errorf("%s failed with status %d: %s", op, res.StatusCode, res.Message)
	}
	if op.Kind == models.OperationDelete {
		return nil, nil
	}
	return copyDoc(s.docs[op.ID]), nil
}

func (s *Store) failureFor(op models.Operation) *Failure {
	for _, f := range s.failures {
		if f.applies(op) {
			return f
		}
	}
	return nil
}

func (s *Store) apply(op models.Operation) models.OperationResult {
	if err := op.Validate(); err != nil {
		return models.OperationResult{StatusCode: models.StatusBadRequest, Message: err.Error()}
	}

	switch op.Kind {
	case models.OperationCreate:
		if _, exists := s.docs[op.ID]; exists {
			return models.OperationResult{StatusCode: models.StatusConflict, Message: "document already exists"}
		}
		s.docs[op.ID] = s.withMetadata(op.Document)
		return models.OperationResult{StatusCode: models.StatusCreated}
	case models.OperationUpsert:
		_, exists := s.docs[op.ID]
		s.docs[op.ID] = s.withMetadata(op.Document)
		if exists {
			return models.OperationResult{StatusCode: models.StatusOK}
		}
		return models.OperationResult{StatusCode: models.StatusCreated}
	default:
		d, exists := s.docs[op.ID]
		if !exists || (s.partitionKey != "" && op.PartitionKey != "" && fmt.Sprint(d[s.partitionKey]) != op.PartitionKey) {
			return models.OperationResult{StatusCode: models.StatusNotFound, Message: "document not found"}
		}
		delete(s.docs, op.ID)
		return models.OperationResult{StatusCode: models.StatusNoContent}
	}
}

func (s *Store) withMetadata(doc models.Document) models.Document {
	s.seq++
	d := copyDoc(doc)
	id, _ := d.ID()
	d["_rid"] = strconv.Itoa(s.seq)
	d["_self"] = "docs/" + id
	d["_etag"] = strconv.Quote(strconv.Itoa(s.seq))
	d["_attachments"] = "attachments/"
	d["_ts"] = s.Now().Unix()
	return d
}

func copyDoc(d models.Document) models.Document {
	out := make(models.Document, len(d))
	for k, v := range d {
		out[k] = v
	}
	return out
}

var _ store.Client = (*Store)(nil)
