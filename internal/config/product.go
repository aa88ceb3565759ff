package config

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"
	"text/template"

	"gopkg.in/yaml.v3"
)

//go:embed products/hytale.yaml
var defaultProduct []byte

// Product describes the server application being provisioned.
type Product struct {
	GUID        string `yaml:"guid"`
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	Service     string `yaml:"service"`
	User        string `yaml:"user"`
	DefaultDir  string `yaml:"default_dir"`
	AppDir      string `yaml:"app_dir"`

	Port     string `yaml:"port"`
	Protocol string `yaml:"protocol"`

	// Packages maps a package backend name (apt, dnf, ...) to the packages
	// the product needs on it.
	Packages map[string][]string `yaml:"packages"`

	Downloader Downloader `yaml:"downloader"`
	Manager    Manager    `yaml:"manager"`

	ExecStart string   `yaml:"exec_start"`
	Branches  []string `yaml:"branches"`
}

// Downloader is the vendor tool that fetches game files.
type Downloader struct {
	URL     string `yaml:"url"`
	Archive string `yaml:"archive"`
	Binary  string `yaml:"binary"` // template, {{ .Arch }}
}

// Manager is the product's management script.
type Manager struct {
	URL          string   `yaml:"url"` // template, {{ .Branch }}
	Script       string   `yaml:"script"`
	Requirements []string `yaml:"requirements"`
}

// DefaultProduct returns the built-in product definition.
func DefaultProduct() (*Product, error) {
	return ParseProduct(defaultProduct)
}

// LoadProduct reads, defaults and validates a product file. An empty path
// loads the built-in definition.
func LoadProduct(path string) (*Product, error) {
	if path == "" {
		return DefaultProduct()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read product file: %w", err)
	}
	return ParseProduct(data)
}

// ParseProduct parses, defaults and validates YAML.
func ParseProduct(data []byte) (*Product, error) {
	var p Product
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	p.applyDefaults()
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("product validation failed: %w", err)
	}
	return &p, nil
}

func (p *Product) applyDefaults() {
	if p.Protocol == "" {
		p.Protocol = "tcp"
	}
	if p.AppDir == "" {
		p.AppDir = "AppFiles"
	}
	if p.Manager.Script == "" {
		p.Manager.Script = "manage.py"
	}
	if p.User == "" {
		p.User = p.Service
	}
	if p.Description == "" {
		p.Description = p.Name
	}
	if len(p.Branches) == 0 {
		p.Branches = []string{"latest"}
	}
}

// Validate checks required fields.
func (p *Product) Validate() error {
	var errs []error
	required := []struct{ name, value string }{
		{"guid", p.GUID},
		{"name", p.Name},
		{"service", p.Service},
		{"default_dir", p.DefaultDir},
		{"exec_start", p.ExecStart},
		{"manager.url", p.Manager.URL},
	}
	for _, f := range required {
		if strings.TrimSpace(f.value) == "" {
			errs = append(errs, fmt.Errorf("%s is required", f.name))
		}
	}
	if strings.ContainsAny(p.Service, "@/ ") {
		errs = append(errs, fmt.Errorf("service %q must not contain '@', '/' or spaces", p.Service))
	}
	if p.Protocol != "tcp" && p.Protocol != "udp" {
		errs = append(errs, fmt.Errorf("protocol must be tcp or udp, got %q", p.Protocol))
	}
	if p.Downloader.URL != "" && p.Downloader.Binary == "" {
		errs = append(errs, errors.New("downloader.binary is required with downloader.url"))
	}
	for _, tpl := range []string{p.Downloader.Binary, p.Manager.URL} {
		if _, err := template.New("").Option("missingkey=error").Parse(tpl); err != nil {
			errs = append(errs, fmt.Errorf("invalid template %q: %w", tpl, err))
		}
	}
	return errors.Join(errs...)
}

// HasBranch reports whether branch is one the product publishes.
func (p *Product) HasBranch(branch string) bool {
	return slices.Contains(p.Branches, branch)
}

// PackagesFor returns the packages needed on a package backend.
func (p *Product) PackagesFor(backend string) []string {
	return p.Packages[backend]
}

// ManagerURL is the management script URL for a code branch.
func (p *Product) ManagerURL(branch string) (string, error) {
	return expand(p.Manager.URL, map[string]string{"Branch": branch})
}

// DownloaderBinary is the downloader executable name for an architecture.
func (p *Product) DownloaderBinary(arch string) (string, error) {
	return expand(p.Downloader.Binary, map[string]string{"Arch": arch})
}

func expand(text string, data map[string]string) (string, error) {
	tpl, err := template.New("").Option("missingkey=error").Parse(text)
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := tpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to expand %q: %w", text, err)
	}
	return buf.String(), nil
}
