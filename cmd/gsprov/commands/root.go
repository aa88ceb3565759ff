// Package commands defines the CLI command structure and flag bindings.
//
// This package contains cobra command definitions that handle argument parsing,
// flag binding, and validation. Command execution is delegated to handler
// functions in the handlers package.
package commands

import (
	"github.com/spf13/cobra"

	"github.com/imamik/gsprov/cmd/gsprov/handlers"
	"github.com/imamik/gsprov/internal/provisioning"
)

// Root returns the root command for the gsprov CLI.
//
// Without a subcommand it installs the configured product, or removes it
// with --uninstall.
func Root() *cobra.Command {
	var (
		g    handlers.Globals
		opts provisioning.Options
	)

	cmd := &cobra.Command{
		Use:   "gsprov",
		Short: "Install and remove dedicated game servers on Linux hosts",
		Long: `gsprov provisions a dedicated game server as a systemd service.

An install creates the service account, installs system packages, opens the
game port, downloads the server and its management script, writes the
systemd units and records the installation. Uninstall reverses these steps
after an optional backup. Both are safe to re-run.

Examples:
  sudo gsprov --instance-id $(gsprov instance-id) --instance-name "Survival"
  sudo gsprov --instance-id 3f2a9c1e-... --uninstall`,
		SilenceErrors: true,
		SilenceUsage:  true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if opts.InstanceID == "" {
				_ = cmd.Usage()
				return handlers.ErrInstanceRequired
			}
			return runRoot(cmd.Context(), g, opts)
		},
	}

	pf := cmd.PersistentFlags()
	pf.StringVarP(&g.ProductPath, "config", "c", "", "Path to a product definition (default: embedded Hytale server)")
	pf.StringVar(&g.SettingsPath, "settings", "", "Path to host settings (default: /etc/gsprov/settings.yaml if present)")
	pf.BoolVar(&g.Debug, "debug", false, "Verbose logging")

	f := cmd.Flags()
	f.BoolVar(&opts.Uninstall, "uninstall", false, "Remove the instance instead of installing it")
	f.StringVar(&opts.OverrideDir, "dir", "", "Installation directory (default: product default, suffixed per instance)")
	f.BoolVar(&opts.SkipFirewall, "skip-firewall", false, "Do not offer to install a firewall when none is active (the game port is still opened in an active one)")
	f.BoolVar(&opts.NonInteractive, "non-interactive", false, "Never prompt; accept defaults")
	f.StringVar(&opts.Branch, "branch", "latest", "Game release branch (latest or pre-release)")
	f.StringVar(&opts.ManagerBranch, "manager-branch", "main", "Source branch of the management script")
	f.StringVar(&opts.InstanceID, "instance-id", "", "Instance identifier (required)")
	f.StringVar(&opts.InstanceName, "instance-name", "", "Display name of the instance")

	cmd.AddCommand(Probe())
	cmd.AddCommand(Firewall())
	cmd.AddCommand(Registry())
	cmd.AddCommand(InstanceID())
	cmd.AddCommand(Version())

	return cmd
}

// runRoot is replaceable in tests.
var runRoot = handlers.Run
