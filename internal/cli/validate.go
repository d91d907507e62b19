package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mlagent-labs/mlagent/internal/manifest"
)

var validateCmd = &cobra.Command{
	Use:   "validate <rpk_config.json>",
	Short: "Lint a package manifest against the schema",
	Long: `Validate a manifest file against the rpk_config JSON schema. This is a
packaging aid: install-time ingestion only checks field presence and skips
items that a strict schema would reject.`,
	Args: cobra.ExactArgs(1),
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
	result, err := manifest.ValidateFile(args[0])
	if err != nil {
		return err
	}

	if result.Valid {
		fmt.Fprintf(cmd.OutOrStdout(), "%s is valid\n", args[0])
		return nil
	}

	fmt.Fprintf(cmd.OutOrStdout(), "%s has %d issue(s):\n", args[0], len(result.Issues))
	for _, issue := range result.Issues {
		path := issue.Path
		if path == "" {
			path = "/"
		}
		fmt.Fprintf(cmd.OutOrStdout(), "  %s: %s (%s)\n", path, issue.Message, issue.Keyword)
	}
	return fmt.Errorf("manifest validation failed")
}
