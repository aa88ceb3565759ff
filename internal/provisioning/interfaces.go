package provisioning

import (
	"context"

	"github.com/imamik/gsprov/internal/host"
	"github.com/imamik/gsprov/internal/platform/account"
	"github.com/imamik/gsprov/internal/platform/fetch"
	"github.com/imamik/gsprov/internal/platform/firewall"
)

// Phase defines the interface for a provisioning phase.
type Phase interface {
	// Name returns the human-readable name of this phase.
	Name() string

	// Provision executes the provisioning logic for this phase.
	Provision(ctx *Context) error
}

// Firewall opens and closes ports. Implemented by firewall.Manager.
type Firewall interface {
	Backend() host.FirewallBackend
	Allow(ctx context.Context, r firewall.Rule) error
	Remove(ctx context.Context, r firewall.Rule) error
}

// Fetcher downloads files atomically. Implemented by fetch.Fetcher.
type Fetcher interface {
	Fetch(ctx context.Context, url, dest string, policy fetch.Policy) (bool, error)
}

// Accounts creates service users. Implemented by account.Manager.
type Accounts interface {
	Ensure(ctx context.Context, name, home string) (account.Account, error)
}

// UnitManager writes and controls systemd units. Implemented by
// systemd.Manager.
type UnitManager interface {
	IsActive(ctx context.Context, unit string) bool
	DaemonReload(ctx context.Context) error
	Enable(ctx context.Context, units ...string) error
	DisableNow(ctx context.Context, units ...string) error
	UnitExists(name string) bool
	WriteUnit(name, content string) error
	RemoveUnit(name string) error
	Path(name string) string
}
