// Package systemd renders service and socket units and drives systemctl.
package systemd

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/imamik/gsprov/internal/platform/shell"
)

// DefaultUnitDir is where administrator-installed units live.
const DefaultUnitDir = "/etc/systemd/system"

// Manager writes unit files and calls systemctl.
type Manager struct {
	Runner  shell.Runner
	UnitDir string
}

// NewManager returns a Manager writing into unitDir, or DefaultUnitDir when
// unitDir is empty.
func NewManager(runner shell.Runner, unitDir string) *Manager {
	if unitDir == "" {
		unitDir = DefaultUnitDir
	}
	return &Manager{Runner: runner, UnitDir: unitDir}
}

// IsActive reports whether unit is active. Any failure to query counts as
// inactive.
func (m *Manager) IsActive(ctx context.Context, unit string) bool {
	return shell.Succeeded(ctx, m.Runner, shell.Command{Name: "systemctl", Args: []string{"is-active", "--quiet", unit}})
}

// DaemonReload makes systemd pick up changed unit files.
func (m *Manager) DaemonReload(ctx context.Context) error {
	return m.systemctl(ctx, "daemon-reload")
}

// Enable enables units so they start at boot.
func (m *Manager) Enable(ctx context.Context, units ...string) error {
	if len(units) == 0 {
		return nil
	}
	return m.systemctl(ctx, append([]string{"enable"}, units...)...)
}

// DisableNow stops units and disables them.
func (m *Manager) DisableNow(ctx context.Context, units ...string) error {
	if len(units) == 0 {
		return nil
	}
	return m.systemctl(ctx, append([]string{"disable", "--now"}, units...)...)
}

// Path returns the absolute path of a file in the unit directory.
func (m *Manager) Path(name string) string {
	return filepath.Join(m.UnitDir, name)
}

// UnitExists reports whether the unit file or drop-in directory name exists.
func (m *Manager) UnitExists(name string) bool {
	_, err := os.Stat(m.Path(name))
	return err == nil
}

// WriteUnit atomically writes content to name in the unit directory. The name
// may include a drop-in directory, e.g. "svc@a.service.d/gsprov.conf".
func (m *Manager) WriteUnit(name, content string) error {
	if err := checkName(name); err != nil {
		return err
	}
	path := m.Path(name)
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("failed to write unit %s: %w", name, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.WriteString(content); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write unit %s: %w", name, err)
	}
	if err := tmp.Chmod(0o644); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write unit %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write unit %s: %w", name, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to install unit %s: %w", name, err)
	}
	return nil
}

// RemoveUnit deletes a unit file or drop-in directory. A missing file is not
// an error.
func (m *Manager) RemoveUnit(name string) error {
	if err := checkName(name); err != nil {
		return err
	}
	err := os.RemoveAll(m.Path(name))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to remove unit %s: %w", name, err)
	}
	return nil
}

func (m *Manager) systemctl(ctx context.Context, args ...string) error {
	if _, err := m.Runner.Run(ctx, shell.Command{Name: "systemctl", Args: args}); err != nil {
		return fmt.Errorf("systemctl %s failed: %w", args[0], err)
	}
	return nil
}

func checkName(name string) error {
	clean := filepath.Clean(name)
	if name == "" || clean == "." || filepath.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, "../") {
		return fmt.Errorf("invalid unit name %q", name)
	}
	return nil
}
