package firewall

import (
	"context"
	"fmt"

	"github.com/imamik/gsprov/internal/host"
	"github.com/imamik/gsprov/internal/platform/shell"
)

// PackageInstaller is the slice of pkgmgr.Installer Bootstrap needs.
type PackageInstaller interface {
	Install(ctx context.Context, names ...string) error
}

// Bootstrap installs and enables a firewall suited to the distribution and
// returns the backend that is now active. SSH is allowed before ufw is
// switched on so the operator keeps their session.
func Bootstrap(ctx context.Context, runner shell.Runner, snap host.Snapshot, pkgs PackageInstaller) (host.FirewallBackend, error) {
	switch {
	case snap.IsLike("debian"):
		if err := pkgs.Install(ctx, "ufw"); err != nil {
			return host.FirewallNone, err
		}
		steps := [][]string{
			{"allow", "22/tcp", "comment", "Allow SSH"},
			{"--force", "enable"},
		}
		for _, args := range steps {
			if _, err := runner.Run(ctx, shell.Command{Name: "ufw", Args: args}); err != nil {
				return host.FirewallNone, fmt.Errorf("failed to enable ufw: %w", err)
			}
		}
		return host.FirewallUFW, nil

	case snap.OS.IsLikeAny("rhel", "centos", "fedora", "suse", "opensuse"):
		if err := pkgs.Install(ctx, "firewalld"); err != nil {
			return host.FirewallNone, err
		}
		if _, err := runner.Run(ctx, shell.Command{Name: "systemctl", Args: []string{"enable", "--now", "firewalld"}}); err != nil {
			return host.FirewallNone, fmt.Errorf("failed to enable firewalld: %w", err)
		}
		return host.FirewallFirewalld, nil
	}
	return host.FirewallNone, fmt.Errorf("%w: no firewall package known for %q", ErrNoFirewall, snap.OS.ID)
}
