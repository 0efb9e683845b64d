// Package surrealstore implements store.Client on a SurrealDB table.
//
// A batch is sent as a single query holding one statement per
// operation, so one round trip carries up to a full batch and every
// statement reports its own status.
package surrealstore

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"strings"

	surrealdb "github.com/surrealdb/surrealdb.go"
	sdbmodels "github.com/surrealdb/surrealdb.go/pkg/models"

	"github.com/surrealdb/surrealmigrate/pkg/logger"
	"github.com/surrealdb/surrealmigrate/pkg/models"
	"github.com/surrealdb/surrealmigrate/pkg/store"
)

// Config addresses one table.
type Config struct {
	Endpoint string
	Username string
	Password string

	Namespace string
	Database  string
	Table     string
	// PartitionKey is the field path deletes are checked against.
	PartitionKey string
}

// Store is a store.Client backed by a SurrealDB table.
type Store struct {
	db           *surrealdb.DB
	table        string
	partitionKey string
	log          logger.Logger
}

// Open connects, signs in and selects the namespace and database of cfg.
// The returned cleanup function closes the connection.
func Open(ctx context.Context, cfg Config, log logger.Logger) (*Store, func(), error) {
	if log == nil {
		log = logger.Nop()
	}

	db, err := surrealdb.FromEndpointURLString(ctx, cfg.Endpoint)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to SurrealDB: %w", err)
	}

	cleanup := func() {
		if closeErr := db.Close(ctx); closeErr != nil {
			log.Warn("Failed to close database connection", "endpoint", cfg.Endpoint, "err", closeErr.Error())
		}
	}

	if _, err = db.SignIn(ctx, &surrealdb.Auth{
		Username: cfg.Username,
		Password: cfg.Password,
	}); err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("failed to authenticate: %w", err)
	}

	if err = db.Use(ctx, cfg.Namespace, cfg.Database); err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("failed to use namespace %s database %s: %w", cfg.Namespace, cfg.Database, err)
	}

	log.Debug("Connected", "endpoint", cfg.Endpoint, "namespace", cfg.Namespace, "database", cfg.Database, "table", cfg.Table)
	return New(db, cfg.Table, cfg.PartitionKey, log), cleanup, nil
}

// New wraps an already connected db.
func New(db *surrealdb.DB, table, partitionKey string, log logger.Logger) *Store {
	if log == nil {
		log = logger.Nop()
	}
	return &Store{db: db, table: table, partitionKey: partitionKey, log: log}
}

// Find runs q and returns the rows of its last statement, so a
// selection may start with LET statements.
func (s *Store) Find(ctx context.Context, q store.Query) ([]models.Document, error) {
	vars := maps.Clone(q.Vars)
	if vars == nil {
		vars = map[string]any{}
	}
	if _, ok := vars["tb"]; !ok {
		vars["tb"] = s.table
	}

	res, err := surrealdb.Query[any](ctx, s.db, q.Statement, vars)
	if res == nil || len(*res) == 0 {
		if err == nil {
			err = errors.New("query returned no results")
		}
		return nil, fmt.Errorf("failed to run selection: %w", err)
	}
	for i, r := range *res {
		if msg, failed := statementError(r); failed {
			return nil, fmt.Errorf("statement %d failed: %s", i+1, msg)
		}
	}

	rows, err := toRows((*res)[len(*res)-1].Result)
	if err != nil {
		return nil, err
	}
	docs := make([]models.Document, len(rows))
	for i, row := range rows {
		if docs[i], err = fromRecord(row); err != nil {
			return nil, err
		}
	}
	return docs, nil
}

// Bulk implements store.BulkClient.
func (s *Store) Bulk(ctx context.Context, ops []models.Operation) ([]models.OperationResult, error) {
	if len(ops) == 0 {
		return nil, nil
	}

	sql, vars := s.bulkQuery(ops)
	res, err := surrealdb.Query[any](ctx, s.db, sql, vars)
	if res == nil {
		if err == nil {
			err = errors.New("query returned no results")
		}
		return nil, err
	}
	if err != nil {
		s.log.Debug("Bulk query reported statement errors", "err", err.Error())
	}
	if len(*res) != len(ops) {
		return nil, fmt.Errorf("got %d statement results for %d operations", len(*res), len(ops))
	}

	results := make([]models.OperationResult, len(ops))
	for i, r := range *res {
		results[i] = resultFor(ops[i], r)
	}
	return results, nil
}

func (s *Store) bulkQuery(ops []models.Operation) (string, map[string]any) {
	stmts := make([]string, len(ops))
	vars := map[string]any{"tb": s.table}
	for i, op := range ops {
		id := fmt.Sprintf("id%d", i)
		vars[id] = opID(op)

		switch op.Kind {
		case models.OperationCreate, models.OperationUpsert:
			doc := fmt.Sprintf("doc%d", i)
			vars[doc] = content(op.Document)
			verb := "CREATE"
			if op.Kind == models.OperationUpsert {
				verb = "UPSERT"
			}
			stmts[i] = fmt.Sprintf("%s type::thing($tb, $%s) CONTENT $%s RETURN NONE", verb, id, doc)
		default:
			if op.PartitionKey == "" || s.partitionKey == "" {
				stmts[i] = fmt.Sprintf("DELETE type::thing($tb, $%s) RETURN BEFORE", id)
				continue
			}
			pk := fmt.Sprintf("pk%d", i)
			vars[pk] = op.PartitionKey
			stmts[i] = fmt.Sprintf("DELETE type::thing($tb, $%s) WHERE <string>%s = $%s RETURN BEFORE", id, s.partitionKey, pk)
		}
	}
	return strings.Join(stmts, ";\n"), vars
}

// Create implements store.ItemClient.
func (s *Store) Create(ctx context.Context, doc models.Document) (models.Document, error) {
	return s.single(ctx, models.NewCreate(doc), "CREATE type::thing($tb, $id) CONTENT $doc")
}

// Upsert implements store.ItemClient.
func (s *Store) Upsert(ctx context.Context, doc models.Document) (models.Document, error) {
	return s.single(ctx, models.NewUpsert(doc), "UPSERT type::thing($tb, $id) CONTENT $doc")
}

func (s *Store) single(ctx context.Context, op models.Operation, sql string) (models.Document, error) {
	if err := op.Validate(); err != nil {
		return nil, err
	}
	res, err := surrealdb.Query[[]map[string]any](ctx, s.db, sql, map[string]any{
		"tb":  s.table,
		"id":  op.ID,
		"doc": content(op.Document),
	})
	if res == nil || len(*res) == 0 {
		if err == nil {
			err = errors.New("query returned no results")
		}
		return nil, fmt.Errorf("failed to %s document %s: %w", op.Kind, op.ID, err)
	}
	if msg, failed := statementError((*res)[0]); failed {
		return nil, fmt.Errorf("failed to %s document %s: %s", op.Kind, op.ID, msg)
	}
	rows := (*res)[0].Result
	if len(rows) == 0 {
		return nil, nil
	}
	return fromRecord(rows[0])
}

// Delete implements store.ItemClient.
func (s *Store) Delete(ctx context.Context, id, partitionKey string) error {
	results, err := s.Bulk(ctx, []models.Operation{models.NewDelete(id, partitionKey)})
	if err != nil {
		return err
	}
	if r := results[0]; !r.Succeeded() {
		return fmt.Errorf("failed to delete document %s: %d %s", id, r.StatusCode, r.Message)
	}
	return nil
}

func opID(op models.Operation) string {
	if op.Kind == models.OperationDelete {
		return op.ID
	}
	id, _ := op.Document.ID()
	return id
}

// content strips the id, which the record id already carries.
func content(doc models.Document) map[string]any {
	out := make(map[string]any, len(doc))
	for k, v := range doc {
		if k != models.IDField {
			out[k] = v
		}
	}
	return out
}

// ErrUnsupportedRecordKey is returned for records whose key is not a
// string. Documents address records by string key, and a numeric or
// composite key would name a different record once written back.
var ErrUnsupportedRecordKey = errors.New("only string record keys are supported")

// fromRecord turns a SurrealDB row into a document whose id is the key
// part of its record id.
func fromRecord(row map[string]any) (models.Document, error) {
	doc := models.Document(row)
	var rid *sdbmodels.RecordID
	switch id := row[models.IDField].(type) {
	case sdbmodels.RecordID:
		rid = &id
	case *sdbmodels.RecordID:
		rid = id
	}
	if rid == nil {
		return doc, nil
	}
	key, ok := rid.ID.(string)
	if !ok {
		return nil, fmt.Errorf("%w: %s has a %T key", ErrUnsupportedRecordKey, rid.String(), rid.ID)
	}
	doc[models.IDField] = key
	return doc, nil
}

func toRows(result any) ([]map[string]any, error) {
	switch v := result.(type) {
	case nil:
		return nil, nil
	case []any:
		rows := make([]map[string]any, 0, len(v))
		for i, item := range v {
			row, ok := item.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("row %d is %T, not an object", i+1, item)
			}
			rows = append(rows, row)
		}
		return rows, nil
	case map[string]any:
		return []map[string]any{v}, nil
	default:
		return nil, fmt.Errorf("selection returned %T, not a list of objects", result)
	}
}

func statementError[T any](r surrealdb.QueryResult[T]) (string, bool) {
	if r.Error != nil {
		return r.Error.Error(), true
	}
	if r.Status != "" && r.Status != "OK" {
		return fmt.Sprint(r.Result), true
	}
	return "", false
}

func resultFor(op models.Operation, r surrealdb.QueryResult[any]) models.OperationResult {
	if msg, failed := statementError(r); failed {
		return models.OperationResult{StatusCode: StatusFor(msg), Message: msg}
	}
	switch op.Kind {
	case models.OperationCreate:
		return models.OperationResult{StatusCode: models.StatusCreated}
	case models.OperationUpsert:
		return models.OperationResult{StatusCode: models.StatusOK}
	default:
		if rows, _ := r.Result.([]any); len(rows) == 0 {
			return models.OperationResult{StatusCode: models.StatusNotFound, Message: "document not found"}
		}
		return models.OperationResult{StatusCode: models.StatusNoContent}
	}
}

// StatusFor maps a failed statement's message to a status code.
func StatusFor(message string) int {
	msg := strings.ToLower(message)
	switch {
	case strings.Contains(msg, "already exists"):
		return models.StatusConflict
	case strings.Contains(msg, "not found"), strings.Contains(msg, "does not exist"):
		return models.StatusNotFound
	case strings.Contains(msg, "can be retried"),
		strings.Contains(msg, "conflict"),
		strings.Contains(msg, "resource busy"):
		return models.StatusTooManyRequests
	case strings.Contains(msg, "timeout"),
		strings.Contains(msg, "timed out"),
		strings.Contains(msg, "deadline"):
		return models.StatusRequestTimeout
	default:
		return models.StatusBadRequest
	}
}

var _ store.Client = (*Store)(nil)
