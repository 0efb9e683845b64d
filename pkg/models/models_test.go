package models

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizeRemovesMetadata(t *testing.T) {
	doc := Document{
		"id":           "a",
		"tenantId":     "t1",
		"_rid":         "rid",
		"_self":        "dbs/x/colls/y/docs/z",
		"_etag":        "\"0000\"",
		"_attachments": "attachments/",
		"_ts":          int64(1700000000),
		"_custom":      "kept",
	}

	got := Sanitize(doc)

	for _, f := range MetadataFields {
		assert.NotContains(t, got, f)
	}
	assert.Equal(t, Document{"id": "a", "tenantId": "t1", "_custom": "kept"}, got)
	assert.Contains(t, doc, "_rid", "input must not be modified")
}

func TestSanitizeNil(t *testing.T) {
	assert.Nil(t, Sanitize(nil))
	assert.Empty(t, SanitizeAll(nil))
}

func TestDocumentID(t *testing.T) {
	id, ok := Document{"id": "x"}.ID()
	assert.True(t, ok)
	assert.Equal(t, "x", id)

	_, ok = Document{"id": 5}.ID()
	assert.False(t, ok)

	_, ok = Document{"id": ""}.ID()
	assert.False(t, ok)

	_, ok = Document{}.ID()
	assert.False(t, ok)
}

func TestOperationValidate(t *testing.T) {
	testCases := []struct {
		name string
		op   Operation
		want error
	}{
		{"create", NewCreate(Document{"id": "1"}), nil},
		{"create without id", NewCreate(Document{"name": "x"}), ErrMissingID},
		{"upsert without payload", Operation{Kind: OperationUpsert}, ErrMissingPayload},
		{"delete", NewDelete("1", "tenant"), nil},
		{"delete without id", NewDelete("", "tenant"), ErrMissingID},
		{"unknown", Operation{Kind: "patch"}, ErrUnknownKind},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.op.Validate()
			if tc.want == nil {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, errors.Is(err, tc.want), "got %v", err)
		})
	}
}

func TestClassify(t *testing.T) {
	for _, code := range []int{200, 201, 204} {
		assert.Equal(t, ClassSuccess, Classify(code), code)
	}
	for _, code := range []int{408, 429, 449, 500, 503} {
		assert.Equal(t, ClassRetryable, Classify(code), code)
	}
	for _, code := range []int{0, 400, 404, 409, 412, 413} {
		assert.Equal(t, ClassPermanent, Classify(code), code)
	}
	assert.True(t, OperationResult{StatusCode: 204}.Succeeded())
	assert.Equal(t, "retryable", ClassRetryable.String())
}

func TestCloneIsDeep(t *testing.T) {
	orig := Document{
		"id":     "a",
		"count":  5,
		"nested": map[string]any{"tags": []any{"x", "y"}},
		"at":     time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
	}

	clone, err := orig.Clone()
	require.NoError(t, err)

	clone["nested"].(map[string]any)["tags"] = []any{"z"}
	clone["count"] = int64(6)

	assert.Equal(t, []any{"x", "y"}, orig["nested"].(map[string]any)["tags"])
	assert.Equal(t, 5, orig["count"])

	at, ok := clone["at"].(time.Time)
	require.True(t, ok, "time values survive cloning, got %T", clone["at"])
	assert.True(t, at.Equal(orig["at"].(time.Time)))
}

func TestEqual(t *testing.T) {
	a := Document{"id": "a", "count": 5, "nested": map[string]any{"k": "v"}}
	b := Document{"nested": map[string]any{"k": "v"}, "count": int64(5), "id": "a"}

	eq, err := Equal(a, b)
	require.NoError(t, err)
	assert.True(t, eq)

	b["count"] = 6
	eq, err = Equal(a, b)
	require.NoError(t, err)
	assert.False(t, eq)
	assert.NotEmpty(t, Diff(a, b))
}
