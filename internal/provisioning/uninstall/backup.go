package uninstall

import (
	"fmt"

	"github.com/imamik/gsprov/internal/provisioning"
)

// Backup offers a final backup through the management script. A failed
// backup stops the uninstall so no data is lost.
type Backup struct{}

// NewBackup creates the backup phase.
func NewBackup() *Backup { return &Backup{} }

// Name implements the Phase interface.
func (p *Backup) Name() string { return "backup" }

// Provision implements the Phase interface.
func (p *Backup) Provision(ctx *provisioning.Context) error {
	if !ctx.Instance.Existing {
		return skip(ctx, p.Name(), "backup", ctx.Instance.Service, "no install record")
	}
	if ctx.Manager == nil || !ctx.Manager.Exists() {
		return skip(ctx, p.Name(), "backup", ctx.Instance.Service, "management script not found")
	}

	ok, err := ctx.Confirm(fmt.Sprintf("Back up %s before uninstalling?", ctx.Instance.Service),
		"The backup is kept by the management script outside the install directory.", true)
	if err != nil {
		return err
	}
	if !ok {
		return skip(ctx, p.Name(), "backup", ctx.Instance.Service, "declined")
	}

	ctx.Observer.Printf("[Uninstall] Backing up %s...", ctx.Instance.Service)
	if err := ctx.Manager.Backup(ctx); err != nil {
		return &provisioning.ActionError{Step: "backup", Err: err}
	}
	provisioning.LogResourceCreated(ctx.Observer, p.Name(), "backup", ctx.Instance.Service)
	return nil
}

func skip(ctx *provisioning.Context, phase, resourceType, resource, reason string) error {
	provisioning.LogResourceSkipped(ctx.Observer, phase, resourceType, resource, reason)
	ctx.State.Skip(phase)
	return nil
}
