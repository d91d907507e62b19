package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var pipelineCmd = &cobra.Command{
	Use:   "pipeline",
	Short: "Query and manage registered pipelines",
}

var pipelineGetCmd = &cobra.Command{
	Use:   "get <name>",
	Short: "Print a registered pipeline description",
	Args:  cobra.ExactArgs(1),
	RunE:  runPipelineGet,
}

var pipelineSetCmd = &cobra.Command{
	Use:   "set <name> <description>",
	Short: "Set a pipeline description",
	Args:  cobra.ExactArgs(2),
	RunE:  runPipelineSet,
}

var pipelineDeleteCmd = &cobra.Command{
	Use:   "delete <name>",
	Short: "Delete a registered pipeline",
	Args:  cobra.ExactArgs(1),
	RunE:  runPipelineDelete,
}

func init() {
	pipelineCmd.AddCommand(pipelineGetCmd, pipelineSetCmd, pipelineDeleteCmd)
	rootCmd.AddCommand(pipelineCmd)
}

func runPipelineGet(cmd *cobra.Command, args []string) error {
	reg, err := openRegistry()
	if err != nil {
		return err
	}
	defer reg.Close()

	p, err := reg.GetPipeline(args[0])
	if err != nil {
		return err
	}
	return printJSON(cmd, p)
}

func runPipelineSet(cmd *cobra.Command, args []string) error {
	reg, err := openRegistry()
	if err != nil {
		return err
	}
	defer reg.Close()

	if err := reg.SetPipelineDescription(args[0], args[1]); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Pipeline %s set\n", args[0])
	return nil
}

func runPipelineDelete(cmd *cobra.Command, args []string) error {
	reg, err := openRegistry()
	if err != nil {
		return err
	}
	defer reg.Close()

	if err := reg.DeletePipeline(args[0]); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Deleted pipeline %s\n", args[0])
	return nil
}
