package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"whatsapp-flow-editor/internal/blocks"
)

// NewBlocksCommand lists the block catalog.
func NewBlocksCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "blocks",
		Short: "List the block types available in the editor palette",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			defs := blocks.Default().All()
			return rootOpts.formatter(cmd).Success(defs, func(w io.Writer) {
				for _, def := range defs {
					fmt.Fprintf(w, "%-24s %-12s %s\n", def.Type, def.Category, def.Label)
					for _, f := range def.ConfigFields {
						req := ""
						if f.Required {
							req = " *"
						}
						fmt.Fprintf(w, "    %-20s %s%s\n", f.Key, f.Kind, req)
					}
				}
			})
		},
	}
}
