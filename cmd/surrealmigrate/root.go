package main

import (
	"io"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/surrealdb/surrealmigrate"
)

type cli struct {
	v       *viper.Viper
	stdout  io.Writer
	stderr  io.Writer
	envFile string
}

func newCLI(stdout, stderr io.Writer) *cli {
	return &cli{
		v:      surrealmigrate.NewViper(),
		stdout: stdout,
		stderr: stderr,
	}
}

func (c *cli) rootCommand() *cobra.Command {
	defaults := surrealmigrate.NewConfig()

	root := &cobra.Command{
		Use:   "surrealmigrate",
		Short: "Bulk create, update and delete documents in a SurrealDB table",
		Long: `surrealmigrate selects documents, asks for confirmation and writes them in
batches of up to 100, retrying only the operations the store rejected as
transient.

Configuration sources (in order of precedence):
1. Command line flags
2. Environment variables (SURREALMIGRATE_*, SURREALMIGRATE_SOURCE_* for the source store)
3. The .env file (see --env-file)
4. Defaults`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := surrealmigrate.BindFlags(c.v, cmd.Flags()); err != nil {
				return usage(err)
			}
			return usage(surrealmigrate.ReadDotEnv(c.v, c.envFile))
		},
	}
	root.SetOut(c.stdout)
	root.SetErr(c.stderr)
	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return usage(err)
	})

	flags := root.PersistentFlags()
	flags.StringVar(&c.envFile, "env-file", ".env", "dotenv file to read settings from")

	flags.String(surrealmigrate.FlagName(surrealmigrate.KeyEndpoint), defaults.Target.Endpoint, "SurrealDB server endpoint")
	flags.String(surrealmigrate.FlagName(surrealmigrate.KeyUsername), defaults.Target.Username, "Authentication username")
	flags.String(surrealmigrate.FlagName(surrealmigrate.KeyPassword), defaults.Target.Password, "Authentication password")
	flags.String(surrealmigrate.FlagName(surrealmigrate.KeyNamespace), "", "Namespace of the target container")
	flags.String(surrealmigrate.FlagName(surrealmigrate.KeyDatabase), "", "Database of the target container")
	flags.String(surrealmigrate.FlagName(surrealmigrate.KeyContainer), "", "Target container (table)")
	flags.String(surrealmigrate.FlagName(surrealmigrate.KeyPartitionKey), defaults.Target.PartitionKey, "Field deletes are addressed by")
	flags.String(surrealmigrate.FlagName(surrealmigrate.KeyLogFile), "", "Write JSON logs to this file instead of the console")
	flags.String(surrealmigrate.FlagName(surrealmigrate.KeyLogLevel), defaults.LogLevel, "Log level (debug|info|warn|error)")

	root.AddCommand(
		c.runCommand(defaults),
		c.validateCommand(),
		c.initCommand(),
		c.versionCommand(),
	)
	return root
}

func (c *cli) versionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			cmd.Printf("surrealmigrate %s\n", version)
		},
	}
}
