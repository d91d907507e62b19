package cli

import (
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/mlagent-labs/mlagent/internal/config"
	"github.com/mlagent-labs/mlagent/internal/logging"
)

var (
	buildVersion string
	buildCommit  string
	buildDate    string

	logLevel string
	log      zerolog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "mlagent",
	Short: "ML model registry agent",
	Long: `mlagent ingests resource-package manifests at install time and manages
the persistent registry of machine-learning models, pipelines, and resources.
The lifecycle subcommands are invoked by the host package manager; the daemon
subcommand runs the registry service itself.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		config.Load()
		level := config.LogLevel()
		if logLevel != "" {
			level = logLevel
		}
		log = logging.Init("mlagent", level)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error)")
}

// Execute runs the root command with build info injected via ldflags.
func Execute(version, commit, date string) error {
	buildVersion = version
	buildCommit = commit
	buildDate = date
	return rootCmd.Execute()
}
