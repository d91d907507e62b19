package cli

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

var (
	modelGetVersion   uint
	modelGetActivated bool
	modelDeleteForce  bool
)

var modelCmd = &cobra.Command{
	Use:   "model",
	Short: "Query and manage registered models",
}

var modelGetCmd = &cobra.Command{
	Use:   "get <name>",
	Short: "Print registered model versions",
	Args:  cobra.ExactArgs(1),
	RunE:  runModelGet,
}

var modelActivateCmd = &cobra.Command{
	Use:   "activate <name> <version>",
	Short: "Activate one version of a model",
	Args:  cobra.ExactArgs(2),
	RunE:  runModelActivate,
}

var modelDeleteCmd = &cobra.Command{
	Use:   "delete <name> [version]",
	Short: "Delete a model version, or all versions of a name",
	Args:  cobra.RangeArgs(1, 2),
	RunE:  runModelDelete,
}

func init() {
	modelGetCmd.Flags().UintVar(&modelGetVersion, "version", 0, "Get a specific version")
	modelGetCmd.Flags().BoolVar(&modelGetActivated, "activated", false, "Get the activated version only")
	modelDeleteCmd.Flags().BoolVar(&modelDeleteForce, "force", false, "Delete even if the version is active")

	modelCmd.AddCommand(modelGetCmd, modelActivateCmd, modelDeleteCmd)
	rootCmd.AddCommand(modelCmd)
}

func runModelGet(cmd *cobra.Command, args []string) error {
	reg, err := openRegistry()
	if err != nil {
		return err
	}
	defer reg.Close()

	name := args[0]
	var out any
	switch {
	case modelGetActivated:
		out, err = reg.GetActivatedModel(name)
	case modelGetVersion != 0:
		out, err = reg.GetModel(name, modelGetVersion)
	default:
		out, err = reg.GetAllModels(name)
	}
	if err != nil {
		return err
	}
	return printJSON(cmd, out)
}

func runModelActivate(cmd *cobra.Command, args []string) error {
	version, err := parseVersionArg(args[1])
	if err != nil {
		return err
	}

	reg, err := openRegistry()
	if err != nil {
		return err
	}
	defer reg.Close()

	if err := reg.ActivateModel(args[0], version); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Activated %s version %d\n", args[0], version)
	return nil
}

func runModelDelete(cmd *cobra.Command, args []string) error {
	var version uint
	if len(args) > 1 {
		v, err := parseVersionArg(args[1])
		if err != nil {
			return err
		}
		version = v
	}

	reg, err := openRegistry()
	if err != nil {
		return err
	}
	defer reg.Close()

	if err := reg.DeleteModel(args[0], version, modelDeleteForce); err != nil {
		return err
	}
	if version == 0 {
		fmt.Fprintf(cmd.OutOrStdout(), "Deleted all versions of %s\n", args[0])
	} else {
		fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s version %d\n", args[0], version)
	}
	return nil
}

func parseVersionArg(arg string) (uint, error) {
	version, err := strconv.ParseUint(arg, 10, 32)
	if err != nil || version == 0 {
		return 0, fmt.Errorf("invalid version %q", arg)
	}
	return uint(version), nil
}

func printJSON(cmd *cobra.Command, v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling output: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(out))
	return nil
}
