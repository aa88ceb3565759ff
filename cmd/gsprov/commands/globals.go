package commands

import (
	"github.com/spf13/cobra"

	"github.com/imamik/gsprov/cmd/gsprov/handlers"
)

// globalsFrom reads the persistent flags visible to cmd.
func globalsFrom(cmd *cobra.Command) handlers.Globals {
	var g handlers.Globals
	flags := cmd.Flags()
	g.ProductPath, _ = flags.GetString("config")
	g.SettingsPath, _ = flags.GetString("settings")
	g.Debug, _ = flags.GetBool("debug")
	return g
}
