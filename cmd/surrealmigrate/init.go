package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/surrealdb/surrealmigrate/pkg/migrationfile"
)

func (c *cli) initCommand() *cobra.Command {
	var dir string

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a starter .env and migration.yaml",
		Long:  "Write a starter .env and migration.yaml. Existing files are left untouched.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			for _, f := range []struct{ name, content string }{
				{".env", migrationfile.EnvTemplate},
				{"migration.yaml", migrationfile.Template},
			} {
				path := filepath.Join(dir, f.name)
				created, err := writeNew(path, f.content)
				if err != nil {
					return err
				}
				if created {
					cmd.Printf("Created %s\n", path)
				} else {
					cmd.Printf("Skipped %s, it already exists\n", path)
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&dir, "dir", ".", "Directory to write the files to")
	return cmd
}

// writeNew writes content to path unless path exists.
func writeNew(path, content string) (bool, error) {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if errors.Is(err, fs.ErrExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to create %s: %w", path, err)
	}
	if _, err := f.WriteString(content); err != nil {
		f.Close()
		return false, fmt.Errorf("failed to write %s: %w", path, err)
	}
	return true, f.Close()
}
