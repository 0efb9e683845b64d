// Package models holds the value types shared by the store adapters,
// the bulk writer and the migration engine.
package models

import (
	"fmt"
	"sort"
)

// IDField is the field that carries a document's unique identifier.
const IDField = "id"

// Document is an open mapping of field name to value.
//
// A document handed to caller code never carries store metadata,
// see Sanitize.
type Document map[string]any

// ID returns the document identifier and whether it is a non-empty string.
func (d Document) ID() (string, bool) {
	v, ok := d[IDField]
	if !ok {
		return "", false
	}
	id, ok := v.(string)
	if !ok || id == "" {
		return "", false
	}
	return id, true
}

// SetID sets the document identifier.
func (d Document) SetID(id string) {
	d[IDField] = id
}

// Keys returns the field names in lexical order.
func (d Document) Keys() []string {
	keys := make([]string, 0, len(d))
	for k := range d {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// String is used in log lines and error messages.
func (d Document) String() string {
	if id, ok := d.ID(); ok {
		return fmt.Sprintf("Document(%s)", id)
	}
	return fmt.Sprintf("Document(%d fields)", len(d))
}
