package provisioning

import (
	"context"

	"github.com/go-logr/logr"

	"github.com/imamik/gsprov/internal/config"
	"github.com/imamik/gsprov/internal/host"
	"github.com/imamik/gsprov/internal/instance"
	"github.com/imamik/gsprov/internal/manager"
	"github.com/imamik/gsprov/internal/metrics"
	"github.com/imamik/gsprov/internal/platform/account"
	"github.com/imamik/gsprov/internal/platform/pkgmgr"
	"github.com/imamik/gsprov/internal/platform/shell"
	"github.com/imamik/gsprov/internal/registry"
	"github.com/imamik/gsprov/internal/ui/prompt"
)

// State holds the shared results of provisioning phases.
// It is progressively populated as each phase completes and is passed
// to subsequent phases that need earlier results.
type State struct {
	// Account is the service user (populated by create-user).
	Account account.Account

	// FirewallBootstrapped is set when this run installed a firewall.
	FirewallBootstrapped bool
	// PortOpened is false when no firewall was available.
	PortOpened bool

	// Downloader is the vendor download tool (populated by fetch-binaries).
	Downloader string

	// UnitsWritten lists unit files written by generate-units.
	UnitsWritten []string

	// Skipped names steps that found nothing to do.
	Skipped []string
}

// Skip records a step that found nothing to do.
func (s *State) Skip(step string) {
	s.Skipped = append(s.Skipped, step)
}

// Context wraps all dependencies and state needed for a provisioning phase.
type Context struct {
	context.Context

	Product  *config.Product
	Settings config.Settings
	Options  Options
	Snapshot host.Snapshot
	Instance *instance.Context
	State    *State

	Runner   shell.Runner
	Packages pkgmgr.Installer // nil when the package manager is unsupported
	Firewall Firewall
	Fetcher  Fetcher
	Units    UnitManager
	Registry registry.Repository
	Manager  *manager.Client
	Accounts Accounts
	Prompter prompt.Prompter

	Observer Observer
	Metrics  *metrics.Recorder

	// IsRoot reports elevated privilege; replaceable in tests.
	IsRoot func() bool
}

// NewContext creates a provisioning context with the process-independent
// defaults filled in. Host-facing dependencies are set by the caller.
func NewContext(ctx context.Context, product *config.Product, settings config.Settings, opts Options) *Context {
	return &Context{
		Context:  ctx,
		Product:  product,
		Settings: settings,
		Options:  opts,
		State:    &State{},
		Prompter: prompt.NewTerminal(opts.NonInteractive),
		Observer: NewLogObserver(logr.Discard()),
		Metrics:  metrics.NewRecorder(),
		IsRoot:   host.IsRoot,
	}
}

// Operation is the name of the running operation.
func (c *Context) Operation() string {
	return c.Options.Operation()
}

// Interactive reports whether the operator can answer questions.
func (c *Context) Interactive() bool {
	return !c.Options.NonInteractive && c.Prompter != nil && c.Prompter.Interactive()
}

// ManagerFor returns the management script client of inst. Only templated
// installs pass the service name, so a single install keeps the script's
// own default.
func ManagerFor(runner shell.Runner, product *config.Product, inst *instance.Context) *manager.Client {
	service := ""
	if inst.Templated() {
		service = inst.Service
	}
	return manager.New(runner, inst.Dir, product.Manager.Script, service)
}

// Confirm asks the operator, answering def when the run is
// non-interactive.
func (c *Context) Confirm(title, description string, def bool) (bool, error) {
	if c.Options.NonInteractive || c.Prompter == nil {
		return def, nil
	}
	return c.Prompter.Confirm(c, title, description, def)
}
