package commands

import (
	"github.com/spf13/cobra"

	"github.com/imamik/gsprov/cmd/gsprov/handlers"
	"github.com/imamik/gsprov/internal/platform/firewall"
)

// Firewall returns the firewall command group.
func Firewall() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "firewall",
		Short: "Open or close ports on the host firewall",
		Long: `Manage a single rule on whichever firewall the host uses (firewalld, ufw or
iptables).

Ports may be a single port, a comma list (80,443) or a range (8000:8010).
Rules in the trusted zone accept all traffic from --source and take no port.

Examples:
  sudo gsprov firewall allow --port 5520 --protocol udp
  sudo gsprov firewall allow --zone trusted --source 10.0.0.0/8
  sudo gsprov firewall remove --port 5520 --protocol udp`,
	}

	cmd.AddCommand(firewallRule(handlers.FirewallAllow, "Open a port or trust a source"))
	cmd.AddCommand(firewallRule(handlers.FirewallRemove, "Close a port or untrust a source"))

	return cmd
}

func firewallRule(action handlers.FirewallAction, short string) *cobra.Command {
	var rule firewall.Rule

	cmd := &cobra.Command{
		Use:   string(action),
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handlers.Firewall(cmd.Context(), globalsFrom(cmd), action, rule)
		},
	}

	f := cmd.Flags()
	f.StringVar(&rule.Port, "port", "", "Port, comma list or colon range")
	f.StringVar(&rule.Protocol, "protocol", "tcp", "tcp or udp")
	f.StringVar(&rule.Source, "source", firewall.SourceAny, "Source address or CIDR")
	f.StringVar(&rule.Zone, "zone", firewall.ZonePublic, "Zone (public or trusted)")
	f.StringVar(&rule.Comment, "comment", "", "Rule comment where the backend supports it")

	return cmd
}
