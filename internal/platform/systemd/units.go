package systemd

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"slices"
	"strings"
	"text/template"
	"time"
)

//go:embed templates/*.tmpl
var templatesFS embed.FS

var unitTemplates = template.Must(template.ParseFS(templatesFS, "templates/*.tmpl"))

// RestartCooldown throttles restarts of a failing server.
const RestartCooldown = 1800 * time.Second

// DropInName is the file written into an instance's drop-in directory.
const DropInName = "gsprov.conf"

// UnitParams describes one installation's service and socket.
//
// With Instance set, the units are rendered as templates (name@.service)
// shared by every instance of Service, and the per-instance paths move into
// a drop-in for name@instance.service.
type UnitParams struct {
	Description  string
	InstanceName string // operator-facing name, shown in the unit description
	Service      string
	Instance     string

	User  string
	Group string

	WorkingDirectory string
	ExecStart        string
	ExecStartPost    string
	ExecStop         string

	RestartSec time.Duration
}

// Validate checks the fields every unit needs.
func (p UnitParams) Validate() error {
	var missing []string
	for name, v := range map[string]string{
		"service":           p.Service,
		"user":              p.User,
		"group":             p.Group,
		"working directory": p.WorkingDirectory,
		"exec start":        p.ExecStart,
	} {
		if strings.TrimSpace(v) == "" {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		slices.Sort(missing)
		return fmt.Errorf("unit parameters incomplete: missing %s", strings.Join(missing, ", "))
	}
	if strings.ContainsAny(p.Service, "@/ ") {
		return errors.New("service name must not contain '@', '/' or spaces")
	}
	if p.Instance != "" {
		return ValidateInstance(p.Instance)
	}
	return nil
}

// ErrInvalidInstance is returned for an instance id that cannot be used as
// a systemd instance name without escaping.
var ErrInvalidInstance = errors.New("invalid instance id")

// maxUnitName is systemd's limit on a full unit name.
const maxUnitName = 255

// ValidateInstance checks that id is usable verbatim as the instance part of
// a unit name: ASCII letters, digits, ':', '_', '.' and '-' only.
func ValidateInstance(id string) error {
	if id == "" {
		return fmt.Errorf("%w: empty", ErrInvalidInstance)
	}
	if len(id) > maxUnitName {
		return fmt.Errorf("%w: longer than %d characters", ErrInvalidInstance, maxUnitName)
	}
	for _, r := range id {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		case r == ':' || r == '_' || r == '.' || r == '-':
		default:
			return fmt.Errorf("%w %q: character %q is not allowed in a unit name", ErrInvalidInstance, id, r)
		}
	}
	return nil
}

// Templated reports whether the units are instance templates.
func (p UnitParams) Templated() bool {
	return p.Instance != ""
}

// UnitDescription is the Description of the service unit file. Template
// files are shared by every instance, so they carry the product description
// only.
func (p UnitParams) UnitDescription() string {
	if p.Templated() || p.InstanceName == "" {
		return p.Description
	}
	return p.Description + " (" + p.InstanceName + ")"
}

// InstanceDescription is the Description an instance's drop-in sets for its
// own service.
func (p UnitParams) InstanceDescription() string {
	name := p.InstanceName
	if name == "" {
		name = p.Instance
	}
	return p.Description + " (" + name + ")"
}

// ServiceFile is the service unit file name, e.g. "hytale.service" or
// "hytale@.service".
func (p UnitParams) ServiceFile() string {
	return p.stem() + ".service"
}

// SocketFile is the socket unit file name.
func (p UnitParams) SocketFile() string {
	return p.stem() + ".socket"
}

// ServiceUnit is the concrete unit to enable or query, e.g.
// "hytale@abc.service".
func (p UnitParams) ServiceUnit() string {
	return p.concrete() + ".service"
}

// SocketUnit is the concrete socket unit to enable or query.
func (p UnitParams) SocketUnit() string {
	return p.concrete() + ".socket"
}

// SocketPath is the console FIFO of the concrete unit.
func (p UnitParams) SocketPath() string {
	return "/var/run/" + p.concrete() + ".sock"
}

// DropInDir is the drop-in directory of the concrete service.
func (p UnitParams) DropInDir() string {
	return p.concrete() + ".service.d"
}

// ServiceRef, SocketRef and SocketPathRef are the names used inside unit
// files, where templates refer to their own instance through %i.
func (p UnitParams) ServiceRef() string { return p.self() + ".service" }

func (p UnitParams) SocketRef() string { return p.self() + ".socket" }

func (p UnitParams) SocketPathRef() string { return "/var/run/" + p.self() + ".sock" }

// RestartSeconds is RestartSec in whole seconds, defaulting to RestartCooldown.
func (p UnitParams) RestartSeconds() int {
	if p.RestartSec <= 0 {
		return int(RestartCooldown / time.Second)
	}
	return int(p.RestartSec / time.Second)
}

func (p UnitParams) stem() string {
	if p.Templated() {
		return p.Service + "@"
	}
	return p.Service
}

func (p UnitParams) concrete() string {
	if p.Templated() {
		return p.Service + "@" + p.Instance
	}
	return p.Service
}

func (p UnitParams) self() string {
	if p.Templated() {
		return p.Service + "@%i"
	}
	return p.Service
}

// RenderService renders the service unit.
func RenderService(p UnitParams) (string, error) {
	return render("service.tmpl", p)
}

// RenderSocket renders the socket unit.
func RenderSocket(p UnitParams) (string, error) {
	return render("socket.tmpl", p)
}

// RenderDropIn renders the per-instance override of a templated service.
func RenderDropIn(p UnitParams) (string, error) {
	if !p.Templated() {
		return "", errors.New("drop-ins are only rendered for instance templates")
	}
	return render("dropin.tmpl", p)
}

func render(name string, p UnitParams) (string, error) {
	if err := p.Validate(); err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := unitTemplates.ExecuteTemplate(&buf, name, p); err != nil {
		return "", fmt.Errorf("failed to render %s: %w", name, err)
	}
	return buf.String(), nil
}

// CommandLine joins argv for Exec* directives, quoting arguments that
// contain whitespace or quotes.
func CommandLine(argv []string) string {
	parts := make([]string, len(argv))
	for i, a := range argv {
		if a == "" || strings.ContainsAny(a, " \t\"'\\") {
			a = `"` + strings.NewReplacer(`\`, `\\`, `"`, `\"`).Replace(a) + `"`
		}
		parts[i] = a
	}
	return strings.Join(parts, " ")
}
