package install

import (
	"fmt"

	"github.com/imamik/gsprov/internal/provisioning"
)

// RegisterInstance records the installation so later runs find it.
type RegisterInstance struct{}

// NewRegisterInstance creates the register-instance phase.
func NewRegisterInstance() *RegisterInstance { return &RegisterInstance{} }

// Name implements the Phase interface.
func (p *RegisterInstance) Name() string { return "register-instance" }

// Provision implements the Phase interface.
func (p *RegisterInstance) Provision(ctx *provisioning.Context) error {
	rec := ctx.Instance.Record()
	if err := ctx.Registry.Put(ctx, rec); err != nil {
		return fmt.Errorf("failed to register %s: %w", rec.Key, err)
	}
	if ctx.Instance.Existing {
		provisioning.LogResourceExists(ctx.Observer, p.Name(), "registry record", rec.Key.String())
	} else {
		provisioning.LogResourceCreated(ctx.Observer, p.Name(), "registry record", rec.Key.String())
	}
	return nil
}
