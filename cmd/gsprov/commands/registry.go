package commands

import (
	"github.com/spf13/cobra"

	"github.com/imamik/gsprov/cmd/gsprov/handlers"
)

// Registry returns the registry command group.
func Registry() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "registry",
		Short: "Inspect recorded installations",
	}

	var all bool
	list := &cobra.Command{
		Use:   "list",
		Short: "List installations of the configured product",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handlers.RegistryList(cmd.Context(), globalsFrom(cmd), all)
		},
	}
	list.Flags().BoolVar(&all, "all", false, "Include every product")

	cmd.AddCommand(list)
	return cmd
}
