package cli

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/mlagent-labs/mlagent/internal/config"
	"github.com/mlagent-labs/mlagent/internal/registry"
)

var daemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Run the registry daemon",
	Long: `Run the registry service on its unix socket. Lifecycle hooks and query
commands connect to this daemon; without it they fall back to opening the
registry database file directly.`,
	Args: cobra.NoArgs,
	RunE: runDaemon,
}

func init() {
	rootCmd.AddCommand(daemonCmd)
}

func runDaemon(cmd *cobra.Command, args []string) error {
	if err := config.EnsureDir(); err != nil {
		return err
	}

	store, err := registry.Open(config.DB())
	if err != nil {
		return fmt.Errorf("opening registry db: %w", err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv := registry.NewServer(store, log)
	return srv.Run(ctx, config.Socket())
}
