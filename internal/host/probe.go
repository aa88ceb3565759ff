package host

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/shirou/gopsutil/v3/host"

	"github.com/imamik/gsprov/internal/platform/shell"
)

// DefaultUnitDirs are searched for firewall service definitions.
var DefaultUnitDirs = []string{
	"/etc/systemd/system",
	"/usr/lib/systemd/system",
	"/lib/systemd/system",
}

// Snapshot holds the immutable per-run host facts. It is computed once by
// Probe.Detect and never mutated afterwards.
type Snapshot struct {
	OS       OSInfo
	Version  int
	Arch     string // Go-style architecture, e.g. "amd64"
	Hostname string

	// AvailableFirewall is the backend rules are written to.
	AvailableFirewall FirewallBackend
	// ActiveFirewall is the backend currently enforcing rules, used to decide
	// whether a firewall should be offered for installation.
	ActiveFirewall FirewallBackend

	PackageManager PackageBackend
}

// IsLike is a shortcut for s.OS.IsLike.
func (s Snapshot) IsLike(family string) bool {
	return s.OS.IsLike(family)
}

// HostInfoFunc returns the kernel architecture and hostname.
type HostInfoFunc func(ctx context.Context) (arch, hostname string, err error)

// Probe detects host capabilities.
type Probe struct {
	Runner        shell.Runner
	OSReleasePath string
	UnitDirs      []string
	HostInfo      HostInfoFunc
}

// NewProbe returns a Probe reading the real host.
func NewProbe(runner shell.Runner, osReleasePath string) *Probe {
	if osReleasePath == "" {
		osReleasePath = DefaultOSReleasePath
	}
	return &Probe{
		Runner:        runner,
		OSReleasePath: osReleasePath,
		UnitDirs:      DefaultUnitDirs,
		HostInfo:      gopsutilHostInfo,
	}
}

// Detect computes the Snapshot. Unrecognized backends are recorded, not
// reported: whether they are fatal depends on the step that needs them.
func (p *Probe) Detect(ctx context.Context) (Snapshot, error) {
	osInfo, err := ParseOSRelease(p.OSReleasePath)
	if err != nil {
		return Snapshot{}, err
	}

	snap := Snapshot{
		OS:      osInfo,
		Version: osInfo.MajorVersion(),
	}

	if p.HostInfo != nil {
		arch, hostname, err := p.HostInfo(ctx)
		if err != nil {
			return Snapshot{}, fmt.Errorf("failed to read host info: %w", err)
		}
		snap.Arch = NormalizeArch(arch)
		snap.Hostname = hostname
	}

	snap.AvailableFirewall = p.AvailableFirewall()
	snap.ActiveFirewall = p.ActiveFirewall(ctx)
	snap.PackageManager = p.PackageManager(osInfo, snap.Version)
	return snap, nil
}

type firewallCandidate struct {
	backend FirewallBackend
	binary  string
	unit    string
}

// Fixed priority order for both availability and active-state probing.
var firewallCandidates = []firewallCandidate{
	{FirewallFirewalld, "firewall-cmd", "firewalld.service"},
	{FirewallUFW, "ufw", "ufw.service"},
	{FirewallIPTables, "iptables", "iptables.service"},
}

// AvailableFirewall returns the first backend whose control executable is in
// PATH or whose service unit is installed.
func (p *Probe) AvailableFirewall() FirewallBackend {
	for _, c := range firewallCandidates {
		if _, err := p.Runner.LookPath(c.binary); err == nil {
			return c.backend
		}
		if p.unitInstalled(c.unit) {
			return c.backend
		}
	}
	if _, err := p.Runner.LookPath("nft"); err == nil {
		return FirewallUnsupported
	}
	return FirewallNone
}

// ActiveFirewall returns the first backend that is currently running.
func (p *Probe) ActiveFirewall(ctx context.Context) FirewallBackend {
	for _, c := range firewallCandidates {
		if p.firewallActive(ctx, c.backend) {
			return c.backend
		}
	}
	return FirewallNone
}

func (p *Probe) firewallActive(ctx context.Context, b FirewallBackend) bool {
	switch b {
	case FirewallFirewalld:
		res, err := p.Runner.Run(ctx, shell.Command{Name: "firewall-cmd", Args: []string{"--state"}})
		return err == nil && strings.TrimSpace(res.Stdout) == "running"
	case FirewallUFW:
		res, err := p.Runner.Run(ctx, shell.Command{Name: "ufw", Args: []string{"status"}})
		return err == nil && strings.Contains(res.Stdout, "Status: active")
	case FirewallIPTables:
		return shell.Succeeded(ctx, p.Runner, shell.Command{Name: "systemctl", Args: []string{"is-active", "--quiet", "iptables"}})
	}
	return false
}

func (p *Probe) unitInstalled(unit string) bool {
	for _, dir := range p.UnitDirs {
		if _, err := os.Stat(filepath.Join(dir, unit)); err == nil {
			return true
		}
	}
	return false
}

// PackageManager picks the package backend from the OS family, falling back
// to whichever package tool is in PATH for distributions we do not know.
func (p *Probe) PackageManager(osInfo OSInfo, version int) PackageBackend {
	if b := PackageManagerFor(osInfo, version); b != PackageUnsupported {
		return b
	}
	fallbacks := []struct {
		binary  string
		backend PackageBackend
	}{
		{"apt-get", PackageApt},
		{"dnf", PackageDnf},
		{"yum", PackageYum},
		{"pacman", PackagePacman},
		{"zypper", PackageZypper},
		{"pkg", PackagePkg},
	}
	for _, f := range fallbacks {
		if _, err := p.Runner.LookPath(f.binary); err == nil {
			return f.backend
		}
	}
	return PackageUnsupported
}

// PackageManagerFor maps an OS family and major version to its backend.
// RHEL-family hosts use dnf from major version 9 onwards and yum before.
func PackageManagerFor(osInfo OSInfo, version int) PackageBackend {
	switch {
	case osInfo.IsLike("debian"):
		return PackageApt
	case osInfo.IsLike("fedora") && !osInfo.IsLikeAny("rhel", "centos"):
		return PackageDnf
	case osInfo.IsLikeAny("rhel", "centos", "fedora"):
		if version >= 9 {
			return PackageDnf
		}
		return PackageYum
	case osInfo.IsLike("arch"):
		return PackagePacman
	case osInfo.IsLikeAny("suse", "opensuse"):
		return PackageZypper
	case osInfo.IsLike("freebsd"):
		return PackagePkg
	}
	return PackageUnsupported
}

// NormalizeArch maps kernel architecture names to Go-style names.
func NormalizeArch(arch string) string {
	switch arch {
	case "x86_64", "amd64":
		return "amd64"
	case "aarch64", "arm64":
		return "arm64"
	}
	return arch
}

func gopsutilHostInfo(ctx context.Context) (string, string, error) {
	info, err := host.InfoWithContext(ctx)
	if err != nil {
		return "", "", err
	}
	return info.KernelArch, info.Hostname, nil
}
