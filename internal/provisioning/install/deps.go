package install

import (
	"fmt"

	"github.com/imamik/gsprov/internal/host"
	"github.com/imamik/gsprov/internal/provisioning"
)

// MinFreeBytes is the free space below which a warning is printed. Game
// files and backups easily take this much.
const MinFreeBytes = 8 << 30

// InstallDeps installs the product's system packages.
type InstallDeps struct {
	// FreeSpace reports available bytes; replaceable in tests.
	FreeSpace func(path string) (uint64, error)
}

// NewInstallDeps creates the install-deps phase.
func NewInstallDeps() *InstallDeps {
	return &InstallDeps{FreeSpace: host.FreeSpace}
}

// Name implements the Phase interface.
func (p *InstallDeps) Name() string { return "install-deps" }

// Provision implements the Phase interface.
func (p *InstallDeps) Provision(ctx *provisioning.Context) error {
	p.checkSpace(ctx)

	if ctx.Packages == nil {
		return &host.UnsupportedError{Capability: "package manager", Value: ctx.Snapshot.PackageManager.String()}
	}

	backend := ctx.Packages.Backend().String()
	names := ctx.Product.PackagesFor(backend)
	if len(names) == 0 {
		provisioning.LogResourceSkipped(ctx.Observer, p.Name(), "packages", backend, "none listed for this package manager")
		return nil
	}

	ctx.Observer.Printf("[Install] Installing %d packages with %s...", len(names), backend)
	if err := ctx.Packages.Install(ctx, names...); err != nil {
		return &provisioning.ActionError{Step: "install packages", Err: err}
	}
	return nil
}

func (p *InstallDeps) checkSpace(ctx *provisioning.Context) {
	if p.FreeSpace == nil {
		return
	}
	free, err := p.FreeSpace(ctx.Instance.Dir)
	if err != nil {
		ctx.Observer.Printf("[Install] Could not determine free space in %s: %v", ctx.Instance.Dir, err)
		return
	}
	if free < MinFreeBytes {
		provisioning.LogWarning(ctx.Observer, p.Name(),
			fmt.Sprintf("only %d MiB free in %s; the server may run out of space", free>>20, ctx.Instance.Dir))
	}
}
