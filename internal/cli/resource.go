package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var resourceCmd = &cobra.Command{
	Use:   "resource",
	Short: "Query and manage registered resources",
}

var resourceGetCmd = &cobra.Command{
	Use:   "get <name>",
	Short: "Print a registered resource and its paths",
	Args:  cobra.ExactArgs(1),
	RunE:  runResourceGet,
}

var resourceDeleteCmd = &cobra.Command{
	Use:   "delete <name>",
	Short: "Delete a registered resource",
	Args:  cobra.ExactArgs(1),
	RunE:  runResourceDelete,
}

func init() {
	resourceCmd.AddCommand(resourceGetCmd, resourceDeleteCmd)
	rootCmd.AddCommand(resourceCmd)
}

func runResourceGet(cmd *cobra.Command, args []string) error {
	reg, err := openRegistry()
	if err != nil {
		return err
	}
	defer reg.Close()

	r, err := reg.GetResource(args[0])
	if err != nil {
		return err
	}
	return printJSON(cmd, r)
}

func runResourceDelete(cmd *cobra.Command, args []string) error {
	reg, err := openRegistry()
	if err != nil {
		return err
	}
	defer reg.Close()

	if err := reg.DeleteResource(args[0]); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Deleted resource %s\n", args[0])
	return nil
}
