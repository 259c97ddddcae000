package cli

import (
	"strings"

	"github.com/spf13/cobra"
)

// opsCommand creates the ops command listing registered operators.
func (c *CLI) opsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "ops",
		Short: "List the operators available to manifests",
		RunE: func(cmd *cobra.Command, args []string) error {
			transformers, estimators := c.Registry.Names()

			printKeyValue("transformers", strings.Join(transformers, ", "))
			printKeyValue("estimators", strings.Join(estimators, ", "))
			return nil
		},
	}
}
