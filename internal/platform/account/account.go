// Package account manages the system user that owns an installation.
package account

import (
	"context"
	"errors"
	"fmt"
	"os/user"
	"strconv"

	"github.com/imamik/gsprov/internal/platform/shell"
)

// Account identifies a system user and its primary group.
type Account struct {
	Name    string
	Home    string
	UID     int
	GID     int
	Created bool
}

// LookupFunc resolves a user by name. It returns user.UnknownUserError when
// the user does not exist.
type LookupFunc func(name string) (*user.User, error)

// Manager creates service accounts.
type Manager struct {
	Runner shell.Runner
	Lookup LookupFunc
	Shell  string
}

// NewManager returns a Manager using the host user database.
func NewManager(runner shell.Runner) *Manager {
	return &Manager{Runner: runner, Lookup: user.Lookup, Shell: "/usr/sbin/nologin"}
}

// Ensure returns the account called name, creating it as a system user with a
// same-named group and home directory home when it does not exist yet.
func (m *Manager) Ensure(ctx context.Context, name, home string) (Account, error) {
	u, err := m.Lookup(name)
	if err == nil {
		return fromUser(u, false)
	}
	var unknown user.UnknownUserError
	if !errors.As(err, &unknown) {
		return Account{}, fmt.Errorf("failed to look up user %s: %w", name, err)
	}

	args := []string{"--system", "--user-group", "--home-dir", home, "--shell", m.shell(), name}
	if _, err := m.Runner.Run(ctx, shell.Command{Name: "useradd", Args: args}); err != nil {
		return Account{}, fmt.Errorf("failed to create user %s: %w", name, err)
	}

	u, err = m.Lookup(name)
	if err != nil {
		return Account{}, fmt.Errorf("user %s not found after useradd: %w", name, err)
	}
	return fromUser(u, true)
}

func (m *Manager) shell() string {
	if m.Shell == "" {
		return "/usr/sbin/nologin"
	}
	return m.Shell
}

func fromUser(u *user.User, created bool) (Account, error) {
	uid, err := strconv.Atoi(u.Uid)
	if err != nil {
		return Account{}, fmt.Errorf("invalid uid %q for %s: %w", u.Uid, u.Username, err)
	}
	gid, err := strconv.Atoi(u.Gid)
	if err != nil {
		return Account{}, fmt.Errorf("invalid gid %q for %s: %w", u.Gid, u.Username, err)
	}
	return Account{Name: u.Username, Home: u.HomeDir, UID: uid, GID: gid, Created: created}, nil
}
