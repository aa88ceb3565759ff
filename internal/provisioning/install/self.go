package install

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/imamik/gsprov/internal/provisioning"
)

// InstallerName is the copy of the installer kept in the install directory.
const InstallerName = "installer"

// RegisterSelfInstaller copies the running installer into the install
// directory so it can be rerun from there for updates or uninstalling.
type RegisterSelfInstaller struct{}

// NewRegisterSelfInstaller creates the register-self-installer phase.
func NewRegisterSelfInstaller() *RegisterSelfInstaller { return &RegisterSelfInstaller{} }

// Name implements the Phase interface.
func (p *RegisterSelfInstaller) Name() string { return "register-self-installer" }

// Provision implements the Phase interface.
func (p *RegisterSelfInstaller) Provision(ctx *provisioning.Context) error {
	src := ctx.Options.Executable
	dest := filepath.Join(ctx.Instance.Dir, InstallerName)
	if src == "" {
		provisioning.LogResourceSkipped(ctx.Observer, p.Name(), "installer", dest, "running executable unknown")
		return nil
	}
	if same, _ := sameFile(src, dest); same {
		provisioning.LogResourceExists(ctx.Observer, p.Name(), "installer", dest)
		return nil
	}
	if err := copyExecutable(src, dest); err != nil {
		return fmt.Errorf("failed to copy installer to %s: %w", dest, err)
	}
	provisioning.LogResourceCreated(ctx.Observer, p.Name(), "installer", dest)
	return nil
}

func sameFile(a, b string) (bool, error) {
	ai, err := os.Stat(a)
	if err != nil {
		return false, err
	}
	bi, err := os.Stat(b)
	if err != nil {
		return false, err
	}
	return os.SameFile(ai, bi), nil
}

// copyExecutable replaces dest atomically; a running copy at dest keeps its
// old inode.
func copyExecutable(src, dest string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	tmp, err := os.CreateTemp(filepath.Dir(dest), "."+filepath.Base(dest)+".*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, in); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Chmod(0o755); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), dest)
}
