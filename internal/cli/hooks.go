package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mlagent-labs/mlagent/internal/config"
	"github.com/mlagent-labs/mlagent/internal/lifecycle"
	"github.com/mlagent-labs/mlagent/internal/pkginfo"
	"github.com/mlagent-labs/mlagent/internal/registry"
)

var hookMeta []string

// hook describes one package-manager lifecycle entry point.
type hook struct {
	name  string
	short string
	run   func(r *lifecycle.Runner, pkgID, appID string, metadata []string) error
}

var hooks = []hook{
	{"install", "Ingest a package's manifest after installation", (*lifecycle.Runner).Install},
	{"uninstall", "Lifecycle hook after package removal", (*lifecycle.Runner).Uninstall},
	{"upgrade", "Re-ingest a package's manifest after upgrade", (*lifecycle.Runner).Upgrade},
	{"recoverinstall", "Recovery hook after a failed install", (*lifecycle.Runner).RecoverInstall},
	{"recoverupgrade", "Recovery hook after a failed upgrade", (*lifecycle.Runner).RecoverUpgrade},
	{"recoveruninstall", "Recovery hook after a failed uninstall", (*lifecycle.Runner).RecoverUninstall},
	{"clean", "Lifecycle hook after a completed installation", (*lifecycle.Runner).Clean},
	{"undo", "Lifecycle hook after an aborted installation", (*lifecycle.Runner).Undo},
}

func init() {
	for _, h := range hooks {
		cmd := &cobra.Command{
			Use:   h.name + " <pkgid> [appid]",
			Short: h.short,
			Args:  cobra.RangeArgs(1, 2),
			RunE: func(cmd *cobra.Command, args []string) error {
				pkgID := args[0]
				appID := ""
				if len(args) > 1 {
					appID = args[1]
				}

				runner := lifecycle.NewRunner(
					pkginfo.NewDirInspector(config.PkgInfoRoot()),
					connectRegistry,
					log,
				)
				return h.run(runner, pkgID, appID, hookMeta)
			},
		}
		cmd.Flags().StringArrayVar(&hookMeta, "meta", nil, "Opaque metadata key=value pairs from the host")
		rootCmd.AddCommand(cmd)
	}
}

// connectRegistry acquires the registry handle for one hook invocation.
func connectRegistry() (lifecycle.RegistryHandle, error) {
	return openRegistry()
}

// openRegistry connects to the daemon socket when a daemon is up,
// otherwise it opens the registry database file directly.
func openRegistry() (registry.Registry, error) {
	client := registry.Dial(config.Socket())
	if err := client.Health(); err == nil {
		return client, nil
	}
	client.Close()

	store, err := registry.Open(config.DB())
	if err != nil {
		return nil, fmt.Errorf("no daemon on %s and opening db directly failed: %w", config.Socket(), err)
	}
	log.Debug().Str("db", config.DB()).Msg("daemon not reachable, using registry db directly")
	return store, nil
}
