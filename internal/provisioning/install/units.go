package install

import (
	"fmt"
	"path/filepath"

	"github.com/imamik/gsprov/internal/platform/systemd"
	"github.com/imamik/gsprov/internal/provisioning"
)

// GenerateUnits writes the service and socket units and enables them.
// Templated installs also get a drop-in carrying their own paths.
type GenerateUnits struct{}

// NewGenerateUnits creates the generate-units phase.
func NewGenerateUnits() *GenerateUnits { return &GenerateUnits{} }

// Name implements the Phase interface.
func (p *GenerateUnits) Name() string { return "generate-units" }

// UnitParams builds the unit parameters of the installation in ctx.
func UnitParams(ctx *provisioning.Context) systemd.UnitParams {
	description := ctx.Product.Description
	if description == "" {
		description = ctx.Product.Name
	}
	return ctx.Instance.Units(systemd.UnitParams{
		Description:      description,
		InstanceName:     ctx.Options.InstanceName,
		User:             ctx.Product.User,
		Group:            ctx.Product.User,
		WorkingDirectory: filepath.Join(ctx.Instance.Dir, ctx.Product.AppDir),
		ExecStart:        ctx.Product.ExecStart,
		ExecStartPost:    systemd.CommandLine(ctx.Manager.PostStartArgs()),
		ExecStop:         systemd.CommandLine(ctx.Manager.PreStopArgs()),
	})
}

// Provision implements the Phase interface.
func (p *GenerateUnits) Provision(ctx *provisioning.Context) error {
	params := UnitParams(ctx)

	service, err := systemd.RenderService(params)
	if err != nil {
		return err
	}
	socket, err := systemd.RenderSocket(params)
	if err != nil {
		return err
	}
	files := map[string]string{
		params.ServiceFile(): service,
		params.SocketFile():  socket,
	}
	order := []string{params.ServiceFile(), params.SocketFile()}

	if params.Templated() {
		dropIn, err := systemd.RenderDropIn(params)
		if err != nil {
			return err
		}
		name := filepath.Join(params.DropInDir(), systemd.DropInName)
		files[name] = dropIn
		order = append(order, name)
	}

	for _, name := range order {
		if err := ctx.Units.WriteUnit(name, files[name]); err != nil {
			return err
		}
		ctx.State.UnitsWritten = append(ctx.State.UnitsWritten, name)
		provisioning.LogResourceCreated(ctx.Observer, p.Name(), "unit", ctx.Units.Path(name))
	}

	if err := ctx.Units.DaemonReload(ctx); err != nil {
		return &provisioning.ActionError{Step: "reload systemd", Err: err}
	}
	if err := ctx.Units.Enable(ctx, params.SocketUnit(), params.ServiceUnit()); err != nil {
		return &provisioning.ActionError{Step: fmt.Sprintf("enable %s", params.ServiceUnit()), Err: err}
	}
	return nil
}
