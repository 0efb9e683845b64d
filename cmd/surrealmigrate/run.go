package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/cheynewallace/tabby"
	"github.com/dustin/go-humanize"
	"github.com/goccy/go-json"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/surrealdb/surrealmigrate"
	"github.com/surrealdb/surrealmigrate/pkg/logger"
	"github.com/surrealdb/surrealmigrate/pkg/migrationfile"
)

func (c *cli) runCommand(defaults *surrealmigrate.Config) *cobra.Command {
	var (
		file   string
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a migration",
		Example: `  surrealmigrate run -f migration.yaml
  surrealmigrate run -f migration.yaml --dry-run
  surrealmigrate run -f migration.yaml --yes --backup-dir backups --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := surrealmigrate.LoadConfig(c.v)
			if err := cfg.Validate(); err != nil {
				return usage(err)
			}
			def, err := loadDefinition(file, cfg)
			if err != nil {
				return err
			}

			log, err := c.newLogger(cfg)
			if err != nil {
				return usage(err)
			}
			defer log.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			report, err := surrealmigrate.Do(ctx, cfg, log, def.Plan(cfg.Target.PartitionKey))
			if report != nil {
				if perr := c.printReport(report, asJSON); perr != nil && err == nil {
					err = perr
				}
			}
			return err
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&file, "file", "f", "migration.yaml", "Migration definition")
	flags.BoolVar(&asJSON, "json", false, "Print the run report as JSON")
	flags.BoolP(surrealmigrate.FlagName(surrealmigrate.KeyYes), "y", false, "Answer yes to the confirmation prompt")
	flags.Bool(surrealmigrate.FlagName(surrealmigrate.KeyDryRun), false, "Select and plan without writing")
	flags.Int(surrealmigrate.FlagName(surrealmigrate.KeyBatchSize), defaults.BatchSize, "Operations per bulk request (at most 100)")
	flags.Int(surrealmigrate.FlagName(surrealmigrate.KeyMaxRetries), defaults.MaxRetries, "Resubmissions of a batch before giving up")
	flags.Duration(surrealmigrate.FlagName(surrealmigrate.KeyInitialBackoff), defaults.InitialBackoff, "First retry delay when the store gives no hint")
	flags.Duration(surrealmigrate.FlagName(surrealmigrate.KeyMaxBackoff), defaults.MaxBackoff, "Largest retry delay")
	flags.Bool(surrealmigrate.FlagName(surrealmigrate.KeyRetryAllFailures), false, "Retry permanent failures too")
	flags.String(surrealmigrate.FlagName(surrealmigrate.KeyBackupDir), "", "Back up documents before updating or deleting them")
	flags.String(surrealmigrate.FlagName(surrealmigrate.KeyLockFile), "", "Refuse to run while another run holds this file")
	flags.String(surrealmigrate.FlagName(surrealmigrate.KeyMetricsFile), "", "Write bulk metrics to this file")
	for _, key := range []string{
		surrealmigrate.KeyEndpoint, surrealmigrate.KeyNamespace, surrealmigrate.KeyDatabase, surrealmigrate.KeyContainer,
	} {
		flags.String(surrealmigrate.FlagName("source."+key), "", "Source store "+key+" for inputs of type store")
	}

	return cmd
}

func (c *cli) validateCommand() *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Check a migration definition without connecting",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := surrealmigrate.LoadConfig(c.v)
			def, err := loadDefinition(file, cfg)
			if err != nil {
				return err
			}
			cmd.Printf("%s: %s migration is valid\n", file, def.Operation)
			return nil
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "migration.yaml", "Migration definition")
	return cmd
}

func loadDefinition(file string, cfg *surrealmigrate.Config) (*migrationfile.Definition, error) {
	def, err := migrationfile.Load(file)
	if err != nil {
		return nil, usage(err)
	}
	if err := def.Validate(cfg.Target.PartitionKey); err != nil {
		return nil, usage(fmt.Errorf("%s: %w", file, err))
	}
	return def, nil
}

func (c *cli) newLogger(cfg *surrealmigrate.Config) (*logger.LogData, error) {
	build := logger.New().WithLevel(cfg.LogLevel)
	if cfg.LogFile != "" {
		return build.FromPath(cfg.LogFile).Make()
	}
	build = build.FromBuffer(c.stderr)
	if f, ok := c.stderr.(*os.File); ok && isatty.IsTerminal(f.Fd()) {
		build = build.Console()
	}
	return build.Make()
}

func (c *cli) printReport(r *surrealmigrate.Report, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(c.stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(r)
	}

	t := tabby.NewCustom(tabwriter.NewWriter(c.stdout, 0, 0, 2, ' ', 0))
	t.AddHeader("Run", r.RunID)
	t.AddLine("Operation", r.Operation.Title())
	t.AddLine("Phase", r.Phase)
	t.AddLine("Selected", humanize.Comma(int64(r.Selected)))
	t.AddLine("Planned", humanize.Comma(int64(r.Planned)))
	t.AddLine("Written", humanize.Comma(int64(r.Written())))
	t.AddLine("Batches", r.Bulk.Batches)
	t.AddLine("Retries", r.Bulk.Retries)
	if r.Bulk.Waited > 0 {
		t.AddLine("Waited", r.Bulk.Waited.Round(time.Millisecond))
	}
	if r.BackupPath != "" {
		t.AddLine("Backup", r.BackupPath)
	}
	if r.Declined {
		t.AddLine("Declined", "nothing was written")
	}
	if r.DryRun {
		t.AddLine("Dry run", "nothing was written")
	}
	t.AddLine("Duration", r.Duration.Round(time.Millisecond))
	t.Print()
	return nil
}
