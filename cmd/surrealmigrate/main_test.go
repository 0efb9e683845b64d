package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/surrealdb/surrealmigrate"
	"github.com/surrealdb/surrealmigrate/pkg/bulk"
)

func runMain(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	args = append(args, "--env-file", filepath.Join(t.TempDir(), "none.env"))
	code := Main(context.Background(), args, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func TestVersion(t *testing.T) {
	code, out, _ := runMain(t, "version")
	assert.Equal(t, exitOK, code)
	assert.Contains(t, out, "surrealmigrate dev")
}

func TestInitDoesNotOverwrite(t *testing.T) {
	dir := t.TempDir()

	code, out, _ := runMain(t, "init", "--dir", dir)
	require.Equal(t, exitOK, code)
	assert.Contains(t, out, "Created "+filepath.Join(dir, ".env"))

	path := filepath.Join(dir, "migration.yaml")
	require.NoError(t, os.WriteFile(path, []byte("operation: delete\n"), 0o600))

	code, out, _ = runMain(t, "init", "--dir", dir)
	require.Equal(t, exitOK, code)
	assert.Contains(t, out, "Skipped "+path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "operation: delete\n", string(data))
}

func TestValidate(t *testing.T) {
	dir := t.TempDir()
	code, _, _ := runMain(t, "init", "--dir", dir)
	require.Equal(t, exitOK, code)

	code, out, _ := runMain(t, "validate", "-f", filepath.Join(dir, "migration.yaml"))
	assert.Equal(t, exitOK, code)
	assert.Contains(t, out, "update migration is valid")

	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("operation: update\n"), 0o600))
	code, _, errOut := runMain(t, "validate", "-f", bad)
	assert.Equal(t, exitUsage, code)
	assert.Contains(t, errOut, "select")
}

func TestRunRejectsIncompleteConfig(t *testing.T) {
	dir := t.TempDir()
	code, _, _ := runMain(t, "init", "--dir", dir)
	require.Equal(t, exitOK, code)

	code, _, errOut := runMain(t, "run", "-f", filepath.Join(dir, "migration.yaml"))
	assert.Equal(t, exitUsage, code)
	assert.Contains(t, errOut, surrealmigrate.ErrMissingNamespace.Error())

	code, _, errOut = runMain(t, "run", "-f", filepath.Join(dir, "migration.yaml"),
		"--namespace", "app", "--database", "main", "--container", "items", "--batch-size", "500")
	assert.Equal(t, exitUsage, code)
	assert.Contains(t, errOut, "batch size")
}

func TestUnknownFlag(t *testing.T) {
	code, _, _ := runMain(t, "run", "--no-such-flag")
	assert.Equal(t, exitUsage, code)
}

func testReport() *surrealmigrate.Report {
	return &surrealmigrate.Report{
		RunID:      "run-1",
		Operation:  surrealmigrate.OperationDelete,
		Selected:   1250,
		Planned:    1250,
		Phase:      "executed",
		BackupPath: "backups/items-delete-run-1.smbak",
		Bulk:       bulk.Stats{Batches: 13, Operations: 1250, Succeeded: 1250, Retries: 2, Waited: 1500 * time.Millisecond},
		Duration:   3 * time.Second,
	}
}

func TestPrintReportTable(t *testing.T) {
	var out bytes.Buffer
	c := newCLI(&out, &out)

	require.NoError(t, c.printReport(testReport(), false))
	s := out.String()
	assert.Contains(t, s, "run-1")
	assert.Contains(t, s, "Delete")
	assert.Contains(t, s, "1,250")
	assert.Contains(t, s, "1.5s")
	assert.Contains(t, s, "items-delete-run-1.smbak")
}

func TestPrintReportJSON(t *testing.T) {
	var out bytes.Buffer
	c := newCLI(&out, &out)

	require.NoError(t, c.printReport(testReport(), true))

	var got map[string]any
	require.NoError(t, json.Unmarshal(out.Bytes(), &got))
	assert.Equal(t, "run-1", got["run_id"])
	assert.Equal(t, "DELETE", got["operation"])
	assert.EqualValues(t, 1250, got["selected"])
}
