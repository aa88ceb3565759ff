package install

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/imamik/gsprov/internal/manager"
	"github.com/imamik/gsprov/internal/platform/fetch"
	"github.com/imamik/gsprov/internal/platform/shell"
	"github.com/imamik/gsprov/internal/provisioning"
)

// Management script configuration keys.
const (
	ConfigGameBranch   = "Game Branch"
	ConfigInstanceName = "Instance Name"
)

// InstallManager fetches the management script for the chosen source branch
// and prepares its virtualenv. The script is always refreshed.
type InstallManager struct{}

// NewInstallManager creates the install-manager phase.
func NewInstallManager() *InstallManager { return &InstallManager{} }

// Name implements the Phase interface.
func (p *InstallManager) Name() string { return "install-manager" }

// Provision implements the Phase interface.
func (p *InstallManager) Provision(ctx *provisioning.Context) error {
	url, err := ctx.Product.ManagerURL(ctx.Options.ManagerBranch)
	if err != nil {
		return err
	}
	script := ctx.Manager.Path
	if _, err := ctx.Fetcher.Fetch(ctx, url, script, fetch.Overwrite); err != nil {
		return &provisioning.ActionError{Step: "download " + url, Err: err}
	}
	if err := os.Chmod(script, 0o755); err != nil {
		return fmt.Errorf("failed to make %s executable: %w", script, err)
	}
	provisioning.LogResourceCreated(ctx.Observer, p.Name(), "management script", script)

	venv := filepath.Join(ctx.Instance.Dir, manager.VenvDir)
	if exists(ctx.Manager.Interpreter) {
		provisioning.LogResourceExists(ctx.Observer, p.Name(), "virtualenv", venv)
	} else {
		cmd := shell.Command{Name: "python3", Args: []string{"-m", "venv", venv}}
		if _, err := ctx.Runner.Run(ctx, cmd); err != nil {
			return &provisioning.ActionError{Step: "create virtualenv", Err: err}
		}
		provisioning.LogResourceCreated(ctx.Observer, p.Name(), "virtualenv", venv)
	}

	reqs := ctx.Product.Manager.Requirements
	if len(reqs) == 0 {
		return nil
	}
	pip := filepath.Join(venv, "bin", "pip")
	cmd := shell.Command{Name: pip, Args: append([]string{"install", "--upgrade"}, reqs...), Stream: true}
	if _, err := ctx.Runner.Run(ctx, cmd); err != nil {
		return &provisioning.ActionError{Step: "install " + strings.Join(reqs, " "), Err: err}
	}
	return nil
}

// SetBranchConfig stores the release branch, and the display name when one
// was given, in the script's configuration.
type SetBranchConfig struct{}

// NewSetBranchConfig creates the set-branch-config phase.
func NewSetBranchConfig() *SetBranchConfig { return &SetBranchConfig{} }

// Name implements the Phase interface.
func (p *SetBranchConfig) Name() string { return "set-branch-config" }

// Provision implements the Phase interface.
func (p *SetBranchConfig) Provision(ctx *provisioning.Context) error {
	branch := ctx.Options.Branch
	if !ctx.Product.HasBranch(branch) {
		return fmt.Errorf("unknown branch %q, expected one of %s", branch, strings.Join(ctx.Product.Branches, ", "))
	}
	if err := ctx.Manager.SetConfig(ctx, ConfigGameBranch, branch); err != nil {
		return &provisioning.ActionError{Step: "set game branch", Err: err}
	}
	ctx.Observer.Printf("[Install] %s set to %s", ConfigGameBranch, branch)

	if name := strings.TrimSpace(ctx.Options.InstanceName); name != "" {
		if err := ctx.Manager.SetConfig(ctx, ConfigInstanceName, name); err != nil {
			return &provisioning.ActionError{Step: "set instance name", Err: err}
		}
	}
	return nil
}

// ApplyManagedUpdate lets the management script download the game files,
// then hands the whole directory to the service user.
type ApplyManagedUpdate struct{}

// NewApplyManagedUpdate creates the apply-managed-update phase.
func NewApplyManagedUpdate() *ApplyManagedUpdate { return &ApplyManagedUpdate{} }

// Name implements the Phase interface.
func (p *ApplyManagedUpdate) Name() string { return "apply-managed-update" }

// Provision implements the Phase interface.
func (p *ApplyManagedUpdate) Provision(ctx *provisioning.Context) error {
	ctx.Observer.Printf("[Install] Downloading game files, this can take a while...")
	if err := ctx.Manager.Update(ctx); err != nil {
		return &provisioning.ActionError{Step: "managed update", Err: err}
	}
	return chown(ctx, true, ctx.Instance.Dir)
}

// PostInstall runs the first-run wizard as the service user, or tells the
// operator how to when nobody is at the terminal.
type PostInstall struct{}

// NewPostInstall creates the postinstall phase.
func NewPostInstall() *PostInstall { return &PostInstall{} }

// Name implements the Phase interface.
func (p *PostInstall) Name() string { return "postinstall" }

// Provision implements the Phase interface.
func (p *PostInstall) Provision(ctx *provisioning.Context) error {
	runner := *ctx.Manager
	runner.User = ctx.Product.User

	if !ctx.Interactive() {
		ctx.Observer.Printf("[Install] Finish setup by running: sudo -u %s %s",
			ctx.Product.User, strings.Join(runner.Argv("--first-run"), " "))
		return nil
	}
	if err := runner.FirstRun(ctx); err != nil {
		return &provisioning.ActionError{Step: "first run", Err: err}
	}
	return nil
}
