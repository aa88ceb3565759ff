package install

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/imamik/gsprov/internal/platform/shell"
	"github.com/imamik/gsprov/internal/provisioning"
)

// CreateUser ensures the service account and the install directories.
type CreateUser struct{}

// NewCreateUser creates the create-user phase.
func NewCreateUser() *CreateUser { return &CreateUser{} }

// Name implements the Phase interface.
func (p *CreateUser) Name() string { return "create-user" }

// Provision implements the Phase interface.
func (p *CreateUser) Provision(ctx *provisioning.Context) error {
	name := ctx.Product.User
	home := filepath.Dir(ctx.Product.DefaultDir)

	acct, err := ctx.Accounts.Ensure(ctx, name, home)
	if err != nil {
		return &provisioning.ActionError{Step: "create user " + name, Err: err}
	}
	ctx.State.Account = acct
	if acct.Created {
		provisioning.LogResourceCreated(ctx.Observer, p.Name(), "user", name)
	} else {
		provisioning.LogResourceExists(ctx.Observer, p.Name(), "user", name)
	}

	dirs := []string{ctx.Instance.Dir, filepath.Join(ctx.Instance.Dir, ctx.Product.AppDir)}
	for _, dir := range dirs {
		if _, err := os.Stat(dir); err == nil {
			provisioning.LogResourceExists(ctx.Observer, p.Name(), "directory", dir)
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create %s: %w", dir, err)
		}
		provisioning.LogResourceCreated(ctx.Observer, p.Name(), "directory", dir)
	}

	return chown(ctx, false, dirs...)
}

// chown hands paths to the service user.
func chown(ctx *provisioning.Context, recursive bool, paths ...string) error {
	owner := ctx.Product.User + ":" + ctx.Product.User
	args := []string{owner}
	if recursive {
		args = []string{"-R", owner}
	}
	args = append(args, paths...)
	if _, err := ctx.Runner.Run(ctx, shell.Command{Name: "chown", Args: args}); err != nil {
		return &provisioning.ActionError{Step: "set ownership", Err: err}
	}
	return nil
}
