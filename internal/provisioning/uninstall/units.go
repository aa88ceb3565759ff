package uninstall

import (
	"fmt"

	"github.com/imamik/gsprov/internal/platform/systemd"
	"github.com/imamik/gsprov/internal/provisioning"
)

// StopDisableUnits stops and disables the instance's socket and service.
type StopDisableUnits struct{}

// NewStopDisableUnits creates the stop-disable-units phase.
func NewStopDisableUnits() *StopDisableUnits { return &StopDisableUnits{} }

// Name implements the Phase interface.
func (p *StopDisableUnits) Name() string { return "stop-disable-units" }

// Provision implements the Phase interface.
func (p *StopDisableUnits) Provision(ctx *provisioning.Context) error {
	inst := ctx.Instance
	if !ctx.Units.UnitExists(inst.TemplateServiceFile()) && !ctx.Units.UnitExists(inst.TemplateSocketFile()) {
		return skip(ctx, p.Name(), "unit", inst.ServiceUnit(), "unit files not installed")
	}
	if err := ctx.Units.DisableNow(ctx, inst.SocketUnit(), inst.ServiceUnit()); err != nil {
		return &provisioning.ActionError{Step: "disable " + inst.ServiceUnit(), Err: err}
	}
	ctx.Observer.Printf("[Uninstall] Stopped and disabled %s and %s", inst.SocketUnit(), inst.ServiceUnit())
	return nil
}

// RemoveUnits deletes the unit files. Shared templates are kept while
// another instance of the product is still registered.
type RemoveUnits struct{}

// NewRemoveUnits creates the remove-units phase.
func NewRemoveUnits() *RemoveUnits { return &RemoveUnits{} }

// Name implements the Phase interface.
func (p *RemoveUnits) Name() string { return "remove-units" }

// Provision implements the Phase interface.
func (p *RemoveUnits) Provision(ctx *provisioning.Context) error {
	inst := ctx.Instance
	var files []string

	if inst.Templated() {
		files = append(files, inst.Units(systemd.UnitParams{}).DropInDir())

		siblings, err := p.siblings(ctx)
		if err != nil {
			return err
		}
		if siblings > 0 {
			provisioning.LogResourceSkipped(ctx.Observer, p.Name(), "unit template", inst.TemplateServiceFile(),
				fmt.Sprintf("still used by %d other instance(s)", siblings))
		} else {
			files = append(files, inst.TemplateServiceFile(), inst.TemplateSocketFile())
		}
	} else {
		files = append(files, inst.TemplateServiceFile(), inst.TemplateSocketFile())
	}

	removed := 0
	for _, name := range files {
		if !ctx.Units.UnitExists(name) {
			provisioning.LogResourceSkipped(ctx.Observer, p.Name(), "unit", name, "not present")
			continue
		}
		if err := ctx.Units.RemoveUnit(name); err != nil {
			return err
		}
		removed++
		provisioning.LogResourceDeleted(ctx.Observer, p.Name(), "unit", ctx.Units.Path(name))
	}

	if removed == 0 {
		ctx.State.Skip(p.Name())
		return nil
	}
	if err := ctx.Units.DaemonReload(ctx); err != nil {
		return &provisioning.ActionError{Step: "reload systemd", Err: err}
	}
	return nil
}

func (p *RemoveUnits) siblings(ctx *provisioning.Context) (int, error) {
	recs, err := ctx.Registry.List(ctx, ctx.Instance.Key.GUID)
	if err != nil {
		return 0, fmt.Errorf("failed to list installs of %s: %w", ctx.Instance.Key.GUID, err)
	}
	n := 0
	for _, rec := range recs {
		if ctx.Instance.Sibling(rec) {
			n++
		}
	}
	return n, nil
}
