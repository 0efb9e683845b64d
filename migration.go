package surrealmigrate

import (
	"fmt"
	"strings"

	"github.com/surrealdb/surrealmigrate/internal/fieldpath"
	"github.com/surrealdb/surrealmigrate/pkg/models"
	"github.com/surrealdb/surrealmigrate/pkg/source"
	"github.com/surrealdb/surrealmigrate/pkg/store"
	"github.com/surrealdb/surrealmigrate/pkg/transform"
)

// OperationType names the kind of a migration.
type OperationType string

const (
	OperationCreate OperationType = "CREATE"
	OperationUpdate OperationType = "UPDATE"
	OperationDelete OperationType = "DELETE"
)

// ParseOperationType parses create, update or delete in any case.
func ParseOperationType(s string) (OperationType, error) {
	switch t := OperationType(strings.ToUpper(strings.TrimSpace(s))); t {
	case OperationCreate, OperationUpdate, OperationDelete:
		return t, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownOperation, s)
	}
}

// Title is the capitalized name used in confirmation prompts.
func (t OperationType) Title() string {
	if t == "" {
		return ""
	}
	s := strings.ToLower(string(t))
	return strings.ToUpper(s[:1]) + s[1:]
}

// Migration describes one run. It is implemented by *CreateMigration,
// *UpdateMigration and *DeleteMigration only.
type Migration interface {
	OperationType() OperationType
	Validate() error

	migration()
}

// CreateMigration inserts every document of Source.
type CreateMigration struct {
	Source source.Source
	// DisableIDGeneration rejects documents without an id instead of
	// assigning them a random one.
	DisableIDGeneration bool
}

func (*CreateMigration) OperationType() OperationType { return OperationCreate }
func (*CreateMigration) migration()                   {}

func (m *CreateMigration) Validate() error {
	if m.Source == nil {
		return ErrMissingSource
	}
	return nil
}

// UpdateMigration rewrites the documents Select matches with Transform.
//
// When Inverse is set, the run first proves on the first selected
// document that Inverse undoes Transform, and aborts without writing
// anything if it does not.
type UpdateMigration struct {
	Select    store.Query
	Transform transform.Func
	Inverse   transform.Func
}

func (*UpdateMigration) OperationType() OperationType { return OperationUpdate }
func (*UpdateMigration) migration()                   {}

func (m *UpdateMigration) Validate() error {
	if strings.TrimSpace(m.Select.Statement) == "" {
		return ErrMissingSelect
	}
	if m.Transform == nil {
		return ErrMissingTransform
	}
	return nil
}

// DeleteMigration removes the documents Select matches. PartitionKey
// derives the partition key each delete is addressed with.
type DeleteMigration struct {
	Select       store.Query
	PartitionKey func(doc models.Document) string
}

func (*DeleteMigration) OperationType() OperationType { return OperationDelete }
func (*DeleteMigration) migration()                   {}

func (m *DeleteMigration) Validate() error {
	if strings.TrimSpace(m.Select.Statement) == "" {
		return ErrMissingSelect
	}
	if m.PartitionKey == nil {
		return ErrMissingPartitionKey
	}
	return nil
}

// PartitionKeyField returns an extractor reading the partition key from
// field, or def when the field is missing or null.
func PartitionKeyField(field, def string) func(doc models.Document) string {
	return func(doc models.Document) string {
		v, ok := fieldpath.Get(doc, field)
		if !ok || v == nil {
			return def
		}
		if s, ok := v.(string); ok {
			return s
		}
		return fmt.Sprint(v)
	}
}
