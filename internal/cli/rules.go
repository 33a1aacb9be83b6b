package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matzehuels/dmlopt/pkg/hop/rewrite"
)

// rulesCommand creates the rules command that lists the rule catalog.
func (c *CLI) rulesCommand() *cobra.Command {
	var names bool

	cmd := &cobra.Command{
		Use:   "rules",
		Short: "List the rewrite rules in application order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			catalog := rewrite.RuleNames(rewrite.DefaultRules())
			if names {
				for _, name := range catalog {
					fmt.Fprintln(cmd.OutOrStdout(), name)
				}
				return nil
			}

			disabled := make(map[string]bool)
			for _, name := range c.cfg().Rules.Disabled {
				disabled[name] = true
			}
			// Fail on unknown names the same way a run would.
			if _, err := rewrite.Without(rewrite.DefaultRules(), c.cfg().Rules.Disabled...); err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), StyleTitle.Render("Rewrite rules"))
			fmt.Fprintln(cmd.OutOrStdout(), renderCatalogTable(catalog, disabled))
			return nil
		},
	}

	cmd.Flags().BoolVar(&names, "names", false, "print bare rule names, one per line")

	return cmd
}
