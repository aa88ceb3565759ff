package uninstall

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/imamik/gsprov/internal/provisioning"
)

// RemoveFiles deletes the recorded install directory. Without a record
// nothing is deleted, whatever directory was resolved.
type RemoveFiles struct{}

// NewRemoveFiles creates the remove-files phase.
func NewRemoveFiles() *RemoveFiles { return &RemoveFiles{} }

// Name implements the Phase interface.
func (p *RemoveFiles) Name() string { return "remove-files" }

// Provision implements the Phase interface.
func (p *RemoveFiles) Provision(ctx *provisioning.Context) error {
	dir := ctx.Instance.Dir
	if !ctx.Instance.Existing {
		return skip(ctx, p.Name(), "directory", dir, "no install record")
	}
	if !filepath.IsAbs(dir) || filepath.Dir(dir) == dir {
		return fmt.Errorf("refusing to remove %q", dir)
	}
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return skip(ctx, p.Name(), "directory", dir, "not present")
	}
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("failed to remove %s: %w", dir, err)
	}
	provisioning.LogResourceDeleted(ctx.Observer, p.Name(), "directory", dir)
	return nil
}

// UnregisterInstance deletes the registry record.
type UnregisterInstance struct{}

// NewUnregisterInstance creates the unregister-instance phase.
func NewUnregisterInstance() *UnregisterInstance { return &UnregisterInstance{} }

// Name implements the Phase interface.
func (p *UnregisterInstance) Name() string { return "unregister-instance" }

// Provision implements the Phase interface.
func (p *UnregisterInstance) Provision(ctx *provisioning.Context) error {
	key := ctx.Instance.Key
	if !ctx.Instance.Existing {
		return skip(ctx, p.Name(), "registry record", key.String(), "not registered")
	}
	if err := ctx.Registry.Delete(ctx, key); err != nil {
		return fmt.Errorf("failed to unregister %s: %w", key, err)
	}
	provisioning.LogResourceDeleted(ctx.Observer, p.Name(), "registry record", key.String())
	return nil
}
