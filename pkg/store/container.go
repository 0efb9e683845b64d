package store

import (
	"context"
	"fmt"

	"github.com/surrealdb/surrealmigrate/pkg/models"
)

// MissingResourceError is returned when a single-item create or upsert
// reports no resulting resource.
type MissingResourceError struct {
	Op       models.OperationKind
	Document models.Document
}

func (e *MissingResourceError) Error() string {
	return fmt.Sprintf("failed to %s document %s", e.Op, e.Document)
}

// Container wraps a Client so every document it hands back is
// sanitized. Outgoing payloads are passed through as they are.
type Container struct {
	client Client
}

// NewContainer returns a Container backed by client.
func NewContainer(client Client) *Container {
	return &Container{client: client}
}

// Client returns the underlying client.
func (c *Container) Client() Client {
	return c.client
}

// Find runs q and returns the sanitized matches.
func (c *Container) Find(ctx context.Context, q Query) ([]models.Document, error) {
	docs, err := c.client.Find(ctx, q)
	if err != nil {
		return nil, err
	}
	return models.SanitizeAll(docs), nil
}

// Bulk forwards ops to the client's bulk primitive.
func (c *Container) Bulk(ctx context.Context, ops []models.Operation) ([]models.OperationResult, error) {
	return c.client.Bulk(ctx, ops)
}

// Create stores doc and returns the sanitized resource.
func (c *Container) Create(ctx context.Context, doc models.Document) (models.Document, error) {
	res, err := c.client.Create(ctx, doc)
	if err != nil {
		return nil, err
	}
	if res == nil {
		return nil, &MissingResourceError{Op: models.OperationCreate, Document: doc}
	}
	return models.Sanitize(res), nil
}

// Upsert creates or replaces doc and returns the sanitized resource.
func (c *Container) Upsert(ctx context.Context, doc models.Document) (models.Document, error) {
	res, err := c.client.Upsert(ctx, doc)
	if err != nil {
		return nil, err
	}
	if res == nil {
		return nil, &MissingResourceError{Op: models.OperationUpsert, Document: doc}
	}
	return models.Sanitize(res), nil
}

// Delete removes the document addressed by id and partitionKey.
func (c *Container) Delete(ctx context.Context, id, partitionKey string) error {
	return c.client.Delete(ctx, id, partitionKey)
}

var _ Client = (*Container)(nil)
