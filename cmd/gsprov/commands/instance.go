package commands

import (
	"github.com/spf13/cobra"

	"github.com/imamik/gsprov/cmd/gsprov/handlers"
)

// InstanceID returns the instance-id command.
func InstanceID() *cobra.Command {
	return &cobra.Command{
		Use:   "instance-id",
		Short: "Print a new random instance identifier",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			return handlers.InstanceID()
		},
	}
}
