// Package pkgmgr installs OS packages through the host's package manager.
//
// There is one Installer per backend; New selects it from the backend the
// host probe detected. Every backend runs non-interactively.
package pkgmgr

import (
	"context"
	"fmt"
	"strings"

	"github.com/imamik/gsprov/internal/host"
	"github.com/imamik/gsprov/internal/platform/shell"
)

// Installer installs packages with one specific package manager.
type Installer interface {
	// Backend returns the backend this installer drives.
	Backend() host.PackageBackend

	// Install installs the named packages. Already installed packages are
	// left alone by every backend, so repeated calls are safe.
	Install(ctx context.Context, names ...string) error
}

// New returns the Installer for backend, or a *host.UnsupportedError.
func New(backend host.PackageBackend, runner shell.Runner) (Installer, error) {
	switch backend {
	case host.PackageApt:
		return &Apt{runner: runner}, nil
	case host.PackageDnf:
		return &RPM{runner: runner, tool: "dnf", backend: backend}, nil
	case host.PackageYum:
		return &RPM{runner: runner, tool: "yum", backend: backend}, nil
	case host.PackagePacman:
		return &simple{runner: runner, backend: backend, name: "pacman", args: []string{"-S", "--noconfirm", "--needed"}}, nil
	case host.PackageZypper:
		return &simple{runner: runner, backend: backend, name: "zypper", args: []string{"--non-interactive", "install"}}, nil
	case host.PackagePkg:
		return &simple{runner: runner, backend: backend, name: "pkg", args: []string{"install", "-y"}}, nil
	}
	return nil, &host.UnsupportedError{Capability: "package manager", Value: backend.String()}
}

// Apt drives apt-get on Debian-family hosts.
type Apt struct {
	runner shell.Runner
}

// aptEnv suppresses debconf and needrestart prompts.
var aptEnv = []string{"DEBIAN_FRONTEND=noninteractive", "NEEDRESTART_MODE=a"}

// Backend implements Installer.
func (a *Apt) Backend() host.PackageBackend { return host.PackageApt }

// Install refreshes the package index and installs names, keeping existing
// conffiles rather than prompting.
func (a *Apt) Install(ctx context.Context, names ...string) error {
	if len(names) == 0 {
		return nil
	}
	if _, err := a.runner.Run(ctx, shell.Command{Name: "apt-get", Args: []string{"update"}, Env: aptEnv, Stream: true}); err != nil {
		return fmt.Errorf("apt-get update failed: %w", err)
	}
	args := []string{
		"install", "-y",
		"-o", "Dpkg::Options::=--force-confdef",
		"-o", "Dpkg::Options::=--force-confold",
	}
	args = append(args, names...)
	if _, err := a.runner.Run(ctx, shell.Command{Name: "apt-get", Args: args, Env: aptEnv, Stream: true}); err != nil {
		return fmt.Errorf("apt-get install %s failed: %w", strings.Join(names, " "), err)
	}
	return nil
}

// RPM drives dnf or yum on RHEL-family hosts.
type RPM struct {
	runner  shell.Runner
	tool    string
	backend host.PackageBackend
}

// Backend implements Installer.
func (r *RPM) Backend() host.PackageBackend { return r.backend }

// Install implements Installer.
func (r *RPM) Install(ctx context.Context, names ...string) error {
	if len(names) == 0 {
		return nil
	}
	args := append([]string{"install", "-y"}, names...)
	if _, err := r.runner.Run(ctx, shell.Command{Name: r.tool, Args: args, Stream: true}); err != nil {
		return fmt.Errorf("%s install %s failed: %w", r.tool, strings.Join(names, " "), err)
	}
	return nil
}

// simple covers backends that need no more than a fixed flag set.
type simple struct {
	runner  shell.Runner
	backend host.PackageBackend
	name    string
	args    []string
}

func (s *simple) Backend() host.PackageBackend { return s.backend }

func (s *simple) Install(ctx context.Context, names ...string) error {
	if len(names) == 0 {
		return nil
	}
	args := append(append([]string{}, s.args...), names...)
	if _, err := s.runner.Run(ctx, shell.Command{Name: s.name, Args: args, Stream: true}); err != nil {
		return fmt.Errorf("%s install %s failed: %w", s.name, strings.Join(names, " "), err)
	}
	return nil
}
