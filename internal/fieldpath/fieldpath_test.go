package fieldpath

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGet(t *testing.T) {
	doc := map[string]any{
		"id":      "1",
		"address": map[string]any{"city": "Berlin"},
	}

	v, ok := Get(doc, "address.city")
	require.True(t, ok)
	assert.Equal(t, "Berlin", v)

	_, ok = Get(doc, "address.zip")
	assert.False(t, ok)

	_, ok = Get(doc, "id.value")
	assert.False(t, ok)

	_, ok = Get(doc, "")
	assert.False(t, ok)
}

func TestSet(t *testing.T) {
	doc := map[string]any{"id": "1"}

	require.NoError(t, Set(doc, "meta.owner.name", "ana"))
	assert.Equal(t, map[string]any{"owner": map[string]any{"name": "ana"}}, doc["meta"])

	require.NoError(t, Set(doc, "status", "active"))
	assert.Equal(t, "active", doc["status"])

	err := Set(doc, "id.value", 1)
	assert.True(t, errors.Is(err, ErrNotAnObject))

	assert.Error(t, Set(doc, "", 1))
}

func TestUnset(t *testing.T) {
	doc := map[string]any{"a": map[string]any{"b": 1, "c": 2}, "d": 3}

	Unset(doc, "a.b")
	Unset(doc, "d")
	Unset(doc, "missing.path")

	assert.Equal(t, map[string]any{"a": map[string]any{"c": 2}}, doc)
}
