package models

import (
	"errors"
	"fmt"
)

// OperationKind tags the variant of an Operation.
type OperationKind string

const (
	OperationCreate OperationKind = "create"
	OperationUpsert OperationKind = "upsert"
	OperationDelete OperationKind = "delete"
)

var (
	// ErrMissingPayload is returned when a create or upsert carries no document.
	ErrMissingPayload = errors.New("operation has no document payload")
	// ErrMissingID is returned when an operation cannot be addressed by id.
	ErrMissingID = errors.New("operation has no document id")
	// ErrUnknownKind is returned for an operation kind outside of create, upsert and delete.
	ErrUnknownKind = errors.New("unknown operation kind")
)

// Operation is one item-level write inside a bulk batch.
//
// Create and Upsert carry Document; Delete carries ID and PartitionKey.
type Operation struct {
	Kind         OperationKind
	Document     Document
	ID           string
	PartitionKey string
}

// NewCreate returns a create operation for doc.
func NewCreate(doc Document) Operation {
	id, _ := doc.ID()
	return Operation{Kind: OperationCreate, Document: doc, ID: id}
}

// NewUpsert returns an upsert operation for doc.
func NewUpsert(doc Document) Operation {
	id, _ := doc.ID()
	return Operation{Kind: OperationUpsert, Document: doc, ID: id}
}

// NewDelete returns a delete operation addressed by id and partition key.
func NewDelete(id, partitionKey string) Operation {
	return Operation{Kind: OperationDelete, ID: id, PartitionKey: partitionKey}
}

// Validate checks that the operation has the fields its kind needs.
func (o Operation) Validate() error {
	switch o.Kind {
	case OperationCreate, OperationUpsert:
		if o.Document == nil {
			return fmt.Errorf("%s: %w", o.Kind, ErrMissingPayload)
		}
		if _, ok := o.Document.ID(); !ok {
			return fmt.Errorf("%s: %w", o.Kind, ErrMissingID)
		}
	case OperationDelete:
		if o.ID == "" {
			return fmt.Errorf("%s: %w", o.Kind, ErrMissingID)
		}
	default:
		return fmt.Errorf("%q: %w", o.Kind, ErrUnknownKind)
	}
	return nil
}

func (o Operation) String() string {
	if o.Kind == OperationDelete {
		return fmt.Sprintf("%s %s (partition %q)", o.Kind, o.ID, o.PartitionKey)
	}
	return fmt.Sprintf("%s %s", o.Kind, o.ID)
}
