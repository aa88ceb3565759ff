package install

import (
	"errors"
	"fmt"

	"github.com/imamik/gsprov/internal/host"
	"github.com/imamik/gsprov/internal/platform/firewall"
	"github.com/imamik/gsprov/internal/provisioning"
)

// FirewallBootstrap offers to install a firewall on hosts that have none
// active. Existing installs already made this choice and are left alone.
type FirewallBootstrap struct{}

// NewFirewallBootstrap creates the firewall-bootstrap phase.
func NewFirewallBootstrap() *FirewallBootstrap { return &FirewallBootstrap{} }

// Name implements the Phase interface.
func (p *FirewallBootstrap) Name() string { return "firewall-bootstrap" }

// Provision implements the Phase interface.
func (p *FirewallBootstrap) Provision(ctx *provisioning.Context) error {
	skip := func(reason string) error {
		provisioning.LogResourceSkipped(ctx.Observer, p.Name(), "firewall", "", reason)
		ctx.State.Skip(p.Name())
		return nil
	}

	switch {
	case ctx.Options.SkipFirewall:
		return skip("disabled by --skip-firewall")
	case ctx.Instance.Existing:
		return skip("existing installation")
	case ctx.Snapshot.ActiveFirewall != host.FirewallNone:
		provisioning.LogResourceExists(ctx.Observer, p.Name(), "firewall", ctx.Snapshot.ActiveFirewall.String())
		return nil
	case ctx.Packages == nil:
		return skip("no supported package manager to install one with")
	}

	ok, err := ctx.Confirm("No firewall is active. Install and enable one?",
		"SSH (22/tcp) is allowed before the firewall is switched on.", true)
	if err != nil {
		return err
	}
	if !ok {
		return skip("declined")
	}

	backend, err := firewall.Bootstrap(ctx, ctx.Runner, ctx.Snapshot, ctx.Packages)
	if errors.Is(err, firewall.ErrNoFirewall) {
		provisioning.LogWarning(ctx.Observer, p.Name(), fmt.Sprintf("no firewall action taken: %v", err))
		return skip("no firewall available for this distribution")
	}
	if err != nil {
		return &provisioning.ActionError{Step: "install firewall", Err: err}
	}

	// The snapshot describes the host as probed; only the manager moves on.
	snap := ctx.Snapshot
	snap.AvailableFirewall = backend
	ctx.Firewall = firewall.NewManager(ctx.Runner, snap)
	ctx.State.FirewallBootstrapped = true
	provisioning.LogResourceCreated(ctx.Observer, p.Name(), "firewall", backend.String())
	return nil
}

// OpenGamePort allows the product's port through the host firewall. A host
// without a firewall is not an error.
type OpenGamePort struct{}

// NewOpenGamePort creates the open-game-port phase.
func NewOpenGamePort() *OpenGamePort { return &OpenGamePort{} }

// Name implements the Phase interface.
func (p *OpenGamePort) Name() string { return "open-game-port" }

// Provision implements the Phase interface.
func (p *OpenGamePort) Provision(ctx *provisioning.Context) error {
	rule := firewall.Rule{
		Port:     ctx.Product.Port,
		Protocol: ctx.Product.Protocol,
		Comment:  fmt.Sprintf("Allow %s %s", ctx.Product.Name, ctx.Instance.Service),
	}
	resource := rule.Port + "/" + rule.Protocol

	if ctx.Firewall == nil {
		provisioning.LogResourceSkipped(ctx.Observer, p.Name(), "firewall rule", resource, "no firewall")
		ctx.State.Skip(p.Name())
		return nil
	}

	err := ctx.Firewall.Allow(ctx, rule)
	switch {
	case errors.Is(err, firewall.ErrNoFirewall):
		provisioning.LogWarning(ctx.Observer, p.Name(), fmt.Sprintf("no firewall action taken for %s: %v", resource, err))
		ctx.State.Skip(p.Name())
		return nil
	case errors.Is(err, firewall.ErrInvalidRule):
		return err
	case err != nil:
		return &provisioning.ActionError{Step: "open port " + resource, Err: err}
	}

	ctx.State.PortOpened = true
	provisioning.LogResourceCreated(ctx.Observer, p.Name(), "firewall rule", resource)
	return nil
}
