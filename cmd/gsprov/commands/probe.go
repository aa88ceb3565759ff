package commands

import (
	"github.com/spf13/cobra"

	"github.com/imamik/gsprov/cmd/gsprov/handlers"
)

// Probe returns the probe command.
func Probe() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "probe",
		Short: "Show detected OS, architecture, package manager and firewall",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handlers.Probe(cmd.Context(), globalsFrom(cmd), asJSON)
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the snapshot as JSON")

	return cmd
}
