// Package instance resolves where an installation lives and what its units
// are called.
//
// Resolution order: an override directory wins when it agrees with the
// registry and is refused when it does not; without an override a recorded
// directory wins; otherwise the default is used, suffixed per instance.
package instance

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/imamik/gsprov/internal/platform/systemd"
	"github.com/imamik/gsprov/internal/registry"
)

// SuffixLength is how many characters of the instance id are appended to
// the default directory.
const SuffixLength = 8

// Params are the inputs of Resolve.
type Params struct {
	GUID        string
	Service     string // base service name, e.g. "hytale-server"
	InstanceID  string // empty for a single-instance install
	OverrideDir string // operator-supplied directory, may be empty
	DefaultDir  string // directory used when nothing else applies
}

// Context is the resolved view of one installation. It is derived on every
// run and never persisted.
type Context struct {
	Key          registry.Key
	Dir          string
	BaseService  string
	Service      string // "name" or "name@instance"
	UnitTemplate string // "name" or "name@"
	InstanceID   string
	Existing     bool // a registry record was found
}

// ConflictError is returned when an override directory disagrees with the
// recorded one.
type ConflictError struct {
	Key      registry.Key
	Recorded string
	Override string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s is already installed in %s, which differs from the requested directory %s; uninstall it first or omit the directory",
		e.Key, e.Recorded, e.Override)
}

// Resolve computes the Context for p. The registry is only read.
func Resolve(ctx context.Context, repo registry.Repository, p Params) (*Context, error) {
	if p.Service == "" {
		return nil, errors.New("service name is required")
	}
	key := registry.Key{GUID: p.GUID, Instance: p.InstanceID}
	if err := key.Validate(); err != nil {
		return nil, err
	}
	if p.InstanceID != "" {
		if err := systemd.ValidateInstance(p.InstanceID); err != nil {
			return nil, err
		}
	}

	c := &Context{
		Key:          key,
		BaseService:  p.Service,
		Service:      p.Service,
		UnitTemplate: p.Service,
		InstanceID:   p.InstanceID,
	}
	if p.InstanceID != "" {
		c.Service = p.Service + "@" + p.InstanceID
		c.UnitTemplate = p.Service + "@"
	}

	rec, found, err := repo.Get(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("failed to look up %s: %w", key, err)
	}
	c.Existing = found

	switch {
	case p.OverrideDir != "":
		override, err := cleanDir(p.OverrideDir)
		if err != nil {
			return nil, err
		}
		if found && filepath.Clean(rec.Dir) != override {
			return nil, &ConflictError{Key: key, Recorded: rec.Dir, Override: override}
		}
		c.Dir = override
	case found:
		c.Dir = filepath.Clean(rec.Dir)
	default:
		def, err := cleanDir(p.DefaultDir)
		if err != nil {
			return nil, err
		}
		c.Dir = def + Suffix(p.InstanceID)
	}
	return c, nil
}

// Suffix is "-" plus the first SuffixLength characters of id, or "" when id
// is empty.
func Suffix(id string) string {
	if id == "" {
		return ""
	}
	if r := []rune(id); len(r) > SuffixLength {
		id = string(r[:SuffixLength])
	}
	return "-" + id
}

func cleanDir(dir string) (string, error) {
	if dir == "" {
		return "", errors.New("install directory is empty")
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("invalid install directory %q: %w", dir, err)
	}
	return abs, nil
}

// Templated reports whether the units are instance templates.
func (c *Context) Templated() bool {
	return c.InstanceID != ""
}

// Record is the registry entry describing this installation.
func (c *Context) Record() registry.Record {
	return registry.Record{Key: c.Key, Dir: c.Dir}
}

// Units completes base with this installation's service and instance names.
func (c *Context) Units(base systemd.UnitParams) systemd.UnitParams {
	base.Service = c.BaseService
	base.Instance = c.InstanceID
	return base
}

// ServiceUnit is the concrete service unit, e.g. "hytale-server@abc.service".
func (c *Context) ServiceUnit() string {
	return c.Service + ".service"
}

// SocketUnit is the concrete socket unit.
func (c *Context) SocketUnit() string {
	return c.Service + ".socket"
}

// TemplateServiceFile is the service unit file on disk, shared by every
// instance when templated.
func (c *Context) TemplateServiceFile() string {
	return c.UnitTemplate + ".service"
}

// TemplateSocketFile is the socket unit file on disk.
func (c *Context) TemplateSocketFile() string {
	return c.UnitTemplate + ".socket"
}

// SocketPath is the console FIFO of the running server.
func (c *Context) SocketPath() string {
	return "/var/run/" + c.Service + ".sock"
}

// Sibling reports whether rec belongs to another instance of the same
// product.
func (c *Context) Sibling(rec registry.Record) bool {
	return rec.Key.GUID == c.Key.GUID && rec.Key != c.Key
}
