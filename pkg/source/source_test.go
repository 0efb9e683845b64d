package source

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/surrealdb/surrealmigrate/pkg/models"
	"github.com/surrealdb/surrealmigrate/pkg/store"
	"github.com/surrealdb/surrealmigrate/pkg/store/memstore"
	"github.com/surrealdb/surrealmigrate/pkg/transform"
)

func TestLiteral(t *testing.T) {
	lit := Literal{{"id": "1"}, {"id": "2"}}
	docs, err := lit.Documents(context.Background())
	require.NoError(t, err)
	assert.Len(t, docs, 2)
}

func TestCSV(t *testing.T) {
	input := "# exported 2024-01-01\nName;Count;Tenant\nana;3;t1\nbob;4;t2\n"
	src := &CSV{
		Reader: strings.NewReader(input),
		Options: CSVOptions{
			Separator:  ';',
			SkipLines:  1,
			MapHeaders: strings.ToLower,
			MapValues: func(header, value string) any {
				if header == "count" {
					n, _ := strconv.Atoi(value)
					return n
				}
				return value
			},
			MapRow: transform.Chain(
				transform.Copy("name", "id"),
				transform.Rename("tenant", "tenantId"),
			),
		},
	}

	docs, err := src.Documents(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []models.Document{
		{"id": "ana", "name": "ana", "count": 3, "tenantId": "t1"},
		{"id": "bob", "name": "bob", "count": 4, "tenantId": "t2"},
	}, docs)
}

func TestCSVHeadersAndExtraColumns(t *testing.T) {
	src := &CSV{
		Reader:  strings.NewReader("1,a,extra\n2,b\n"),
		Options: CSVOptions{Headers: []string{"id", "name"}},
	}

	docs, err := src.Documents(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []models.Document{
		{"id": "1", "name": "a", "_2": "extra"},
		{"id": "2", "name": "b"},
	}, docs)
}

func TestCSVStrict(t *testing.T) {
	src := &CSV{
		Reader:  strings.NewReader("id,name\n1,a\n2\n"),
		Options: CSVOptions{Strict: true},
	}
	_, err := src.Documents(context.Background())
	assert.ErrorContains(t, err, "row 2 has 1 columns, expected 2")
}

func TestCSVDropsMappedOutColumns(t *testing.T) {
	src := &CSV{
		Reader: strings.NewReader("id,secret\n1,x\n"),
		Options: CSVOptions{MapHeaders: func(h string) string {
			if h == "secret" {
				return ""
			}
			return h
		}},
	}
	docs, err := src.Documents(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []models.Document{{"id": "1"}}, docs)
}

func TestCSVFromPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.csv")
	require.NoError(t, os.WriteFile(path, []byte("id\n1\n2\n3\n"), 0o600))

	docs, err := (&CSV{Path: path}).Documents(context.Background())
	require.NoError(t, err)
	assert.Len(t, docs, 3)

	_, err = (&CSV{Path: filepath.Join(t.TempDir(), "missing.csv")}).Documents(context.Background())
	assert.Error(t, err)
}

func TestCSVEmpty(t *testing.T) {
	docs, err := (&CSV{Reader: strings.NewReader("")}).Documents(context.Background())
	require.NoError(t, err)
	assert.Empty(t, docs)
}

func TestJSONFileArray(t *testing.T) {
	src := &JSONFile{Reader: strings.NewReader(` [{"id":"1","n":1},{"id":"2","n":2}]`)}
	docs, err := src.Documents(context.Background())
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "2", docs[1]["id"])
	assert.Equal(t, float64(2), docs[1]["n"])
}

func TestJSONFileLines(t *testing.T) {
	src := &JSONFile{
		Reader: strings.NewReader("{\"id\":\"1\"}\n{\"id\":\"2\"}\n"),
		MapRow: transform.Set("imported", true),
	}
	docs, err := src.Documents(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []models.Document{
		{"id": "1", "imported": true},
		{"id": "2", "imported": true},
	}, docs)

	_, err = (&JSONFile{Reader: strings.NewReader("{\"id\":")}).Documents(context.Background())
	assert.Error(t, err)
}

func TestStoreSource(t *testing.T) {
	mem := memstore.New("")
	mem.Seed(models.Document{"id": "1", "type": "a"}, models.Document{"id": "2", "type": "b"})

	src := &Store{Finder: mem, Query: store.Query{Statement: "SELECT * FROM items WHERE type = $type", Vars: map[string]any{"type": "a"}}}
	docs, err := src.Documents(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []models.Document{{"id": "1", "type": "a"}}, docs)

	mem.FindErr = errors.New("boom")
	_, err = src.Documents(context.Background())
	assert.ErrorContains(t, err, "boom")
}

func TestMapped(t *testing.T) {
	src := &Mapped{
		Source: Literal{{"id": "1", "n": "x"}},
		Map:    transform.Increment("n", 1),
	}
	_, err := src.Documents(context.Background())
	assert.ErrorContains(t, err, "record 1")
}
