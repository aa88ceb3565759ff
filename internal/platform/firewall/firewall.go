// Package firewall opens and closes ports across ufw, firewalld and iptables.
//
// Callers describe a Rule once; the Manager translates it for whichever
// backend the host probe found. A host without a usable firewall is a soft
// condition: Allow and Remove return an error wrapping ErrNoFirewall and the
// caller decides whether that matters.
package firewall

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/imamik/gsprov/internal/host"
	"github.com/imamik/gsprov/internal/platform/shell"
)

// ErrNoFirewall is wrapped when no supported firewall backend is present.
var ErrNoFirewall = errors.New("no supported firewall found")

// Saved-rules locations for the iptables backend.
const (
	DebianRulesFile = "/etc/iptables/rules.v4"
	RedHatRulesFile = "/etc/sysconfig/iptables"
)

// Manager applies rules with one backend.
type Manager struct {
	runner  shell.Runner
	backend host.FirewallBackend
	os      host.OSInfo

	// WriteFile persists iptables rules; replaceable in tests.
	WriteFile func(name string, data []byte, perm os.FileMode) error
	// RulesFile overrides the distribution default for iptables persistence.
	RulesFile string
}

// NewManager returns a Manager for the backend available on the host.
func NewManager(runner shell.Runner, snap host.Snapshot) *Manager {
	return &Manager{
		runner:    runner,
		backend:   snap.AvailableFirewall,
		os:        snap.OS,
		WriteFile: writeFileAll,
	}
}

// Backend returns the backend rules are dispatched to.
func (m *Manager) Backend() host.FirewallBackend {
	return m.backend
}

// Allow validates r and opens it on the host firewall.
func (m *Manager) Allow(ctx context.Context, r Rule) error {
	if err := r.Validate(); err != nil {
		return err
	}
	r = r.Normalized()

	switch m.backend {
	case host.FirewallUFW:
		return m.run(ctx, "ufw", ufwArgs("allow", r, true))
	case host.FirewallFirewalld:
		return m.firewalldAllow(ctx, r)
	case host.FirewallIPTables:
		return m.iptablesAllow(ctx, r)
	}
	return m.noFirewall()
}

// Remove validates r and deletes the matching rule from the host firewall.
func (m *Manager) Remove(ctx context.Context, r Rule) error {
	if err := r.Validate(); err != nil {
		return err
	}
	r = r.Normalized()

	switch m.backend {
	case host.FirewallUFW:
		return m.run(ctx, "ufw", append([]string{"delete"}, ufwArgs("allow", r, false)...))
	case host.FirewallFirewalld:
		return m.firewalldRemove(ctx, r)
	case host.FirewallIPTables:
		return m.iptablesRemove(ctx, r)
	}
	return m.noFirewall()
}

func (m *Manager) noFirewall() error {
	if m.backend == host.FirewallUnsupported {
		return fmt.Errorf("%w: %v", ErrNoFirewall, &host.UnsupportedError{Capability: "firewall", Value: "nftables"})
	}
	return ErrNoFirewall
}

func ufwArgs(action string, r Rule, withComment bool) []string {
	var args []string
	switch {
	case r.Zone == ZoneTrusted:
		args = []string{action, "from", r.Source}
	case r.Source == SourceAny:
		args = []string{action, r.Port + "/" + r.Protocol}
	default:
		args = []string{action, "from", r.Source, "to", "any", "port", r.Port, "proto", r.Protocol}
	}
	if withComment && r.Comment != "" {
		args = append(args, "comment", r.Comment)
	}
	return args
}

// firewalld takes ranges as lo-hi and cannot accept a port list in a single
// --add-port, so lists become one call per member.
func (m *Manager) firewalldAllow(ctx context.Context, r Rule) error {
	zone := "--zone=" + r.Zone
	if r.Source != SourceAny {
		if err := m.run(ctx, "firewall-cmd", []string{"--permanent", zone, "--add-source=" + r.Source}); err != nil {
			return err
		}
	}
	for _, p := range firewalldPorts(r) {
		if err := m.run(ctx, "firewall-cmd", []string{"--permanent", zone, "--add-port=" + p}); err != nil {
			return err
		}
	}
	return m.run(ctx, "firewall-cmd", []string{"--reload"})
}

func (m *Manager) firewalldRemove(ctx context.Context, r Rule) error {
	zone := "--zone=" + r.Zone
	if r.Zone == ZoneTrusted {
		if err := m.run(ctx, "firewall-cmd", []string{"--permanent", zone, "--remove-source=" + r.Source}); err != nil {
			return err
		}
	}
	for _, p := range firewalldPorts(r) {
		if err := m.run(ctx, "firewall-cmd", []string{"--permanent", zone, "--remove-port=" + p}); err != nil {
			return err
		}
	}
	return m.run(ctx, "firewall-cmd", []string{"--reload"})
}

func firewalldPorts(r Rule) []string {
	if r.Zone == ZoneTrusted {
		return nil
	}
	var out []string
	for _, p := range r.Ports() {
		out = append(out, strings.ReplaceAll(p, ":", "-")+"/"+r.Protocol)
	}
	return out
}

// iptablesSpec is the rule body shared by -A, -C and -D.
func iptablesSpec(r Rule) []string {
	if r.Zone == ZoneTrusted {
		return []string{"INPUT", "-s", r.Source, "-j", "ACCEPT"}
	}
	spec := []string{"INPUT", "-p", r.Protocol}
	if r.Source != SourceAny {
		spec = append(spec, "-s", r.Source)
	}
	if r.IsMulti() {
		spec = append(spec, "-m", "multiport", "--dports", r.Port)
	} else {
		spec = append(spec, "--dport", r.Port)
	}
	spec = append(spec, "-j", "ACCEPT")
	if r.Comment != "" {
		spec = append(spec, "-m", "comment", "--comment", r.Comment)
	}
	return spec
}

func (m *Manager) iptablesAllow(ctx context.Context, r Rule) error {
	spec := iptablesSpec(r)
	if shell.Succeeded(ctx, m.runner, shell.Command{Name: "iptables", Args: append([]string{"-C"}, spec...)}) {
		return nil
	}
	if err := m.run(ctx, "iptables", append([]string{"-A"}, spec...)); err != nil {
		return err
	}
	return m.iptablesPersist(ctx)
}

func (m *Manager) iptablesRemove(ctx context.Context, r Rule) error {
	spec := iptablesSpec(r)
	if !shell.Succeeded(ctx, m.runner, shell.Command{Name: "iptables", Args: append([]string{"-C"}, spec...)}) {
		return nil
	}
	if err := m.run(ctx, "iptables", append([]string{"-D"}, spec...)); err != nil {
		return err
	}
	return m.iptablesPersist(ctx)
}

func (m *Manager) iptablesPersist(ctx context.Context) error {
	res, err := m.runner.Run(ctx, shell.Command{Name: "iptables-save"})
	if err != nil {
		return fmt.Errorf("failed to save iptables rules: %w", err)
	}
	path := m.rulesFile()
	if err := m.WriteFile(path, []byte(res.Stdout), 0o600); err != nil {
		return fmt.Errorf("failed to persist iptables rules to %s: %w", path, err)
	}
	return nil
}

func (m *Manager) rulesFile() string {
	if m.RulesFile != "" {
		return m.RulesFile
	}
	if m.os.IsLike("debian") {
		return DebianRulesFile
	}
	return RedHatRulesFile
}

func (m *Manager) run(ctx context.Context, name string, args []string) error {
	if _, err := m.runner.Run(ctx, shell.Command{Name: name, Args: args}); err != nil {
		return fmt.Errorf("firewall command failed: %w", err)
	}
	return nil
}

func writeFileAll(name string, data []byte, perm os.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(name), 0o755); err != nil {
		return err
	}
	return os.WriteFile(name, data, perm)
}
