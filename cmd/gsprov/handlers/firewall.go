package handlers

import (
	"context"
	"fmt"

	"github.com/imamik/gsprov/internal/platform/firewall"
	"github.com/imamik/gsprov/internal/ui/style"
)

// FirewallAction selects what the firewall command does with a rule.
type FirewallAction string

const (
	FirewallAllow  FirewallAction = "allow"
	FirewallRemove FirewallAction = "remove"
)

// Firewall opens or closes a single rule on the detected firewall backend.
func Firewall(ctx context.Context, g Globals, action FirewallAction, rule firewall.Rule) error {
	if !isRoot() {
		return fmt.Errorf("changing firewall rules requires root; re-run with sudo")
	}
	settings, err := loadSettings(g.SettingsPath)
	if err != nil {
		return err
	}
	runner := newRunner()
	snap, err := detectHost(ctx, runner, settings)
	if err != nil {
		return fmt.Errorf("failed to probe host: %w", err)
	}
	mgr := firewall.NewManager(runner, snap)

	n := rule.Normalized()
	switch action {
	case FirewallAllow:
		err = mgr.Allow(ctx, rule)
	case FirewallRemove:
		err = mgr.Remove(ctx, rule)
	default:
		return fmt.Errorf("unknown firewall action %q", action)
	}
	if err != nil {
		return err
	}

	target := n.Source
	if !n.Trusted() {
		target = fmt.Sprintf("%s/%s from %s", n.Port, n.Protocol, n.Source)
	}
	fmt.Fprintln(stdout, style.Success.Render(fmt.Sprintf("%s: %s %s (zone %s)", mgr.Backend(), action, target, n.Zone)))
	return nil
}
