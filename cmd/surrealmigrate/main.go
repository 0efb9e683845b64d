// Command surrealmigrate runs bulk document migrations against a
// SurrealDB table.
//
//	surrealmigrate init
//	surrealmigrate validate -f migration.yaml
//	surrealmigrate run -f migration.yaml --namespace app --database main --container items
//
// Settings come from flags, SURREALMIGRATE_* environment variables and a
// .env file, in that order of precedence.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
)

// Exit codes
const (
	exitOK    = 0
	exitError = 1
	exitUsage = 2
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	os.Exit(Main(context.Background(), os.Args[1:], os.Stdout, os.Stderr))
}

// Main runs the command line and returns the process exit code.
func Main(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	root := newCLI(stdout, stderr).rootCommand()
	root.SetArgs(args)

	err := root.ExecuteContext(ctx)
	if err == nil {
		return exitOK
	}
	fmt.Fprintf(stderr, "Error: %v\n", err)

	var usage *usageError
	if errors.As(err, &usage) {
		return exitUsage
	}
	return exitError
}

// usageError marks errors caused by flags, configuration or the
// migration definition rather than by the run itself.
type usageError struct {
	err error
}

func (e *usageError) Error() string { return e.err.Error() }

func (e *usageError) Unwrap() error { return e.err }

func usage(err error) error {
	if err == nil {
		return nil
	}
	return &usageError{err: err}
}
