package testing

import (
	"path/filepath"
	"testing"

	"github.com/imamik/gsprov/internal/config"
	"github.com/imamik/gsprov/internal/host"
	"github.com/imamik/gsprov/internal/instance"
	"github.com/imamik/gsprov/internal/platform/firewall"
	"github.com/imamik/gsprov/internal/platform/pkgmgr"
	"github.com/imamik/gsprov/internal/platform/shell"
	"github.com/imamik/gsprov/internal/platform/systemd"
	"github.com/imamik/gsprov/internal/provisioning"
	"github.com/imamik/gsprov/internal/registry"
	"github.com/imamik/gsprov/internal/ui/prompt"
)

// ManagerScript is the content FakeFetcher serves for the management script.
const ManagerScript = "#!/usr/bin/env python3\n"

// HostFixture is a fake Debian host with ufw active. Every external command
// succeeds unless the test scripts Runner otherwise; systemd units report
// inactive.
type HostFixture struct {
	t    *testing.T
	Root string

	Product  *config.Product
	Settings config.Settings
	Snapshot host.Snapshot

	Runner   *shell.Fake
	Registry registry.Repository
	Units    *systemd.Manager
	Fetcher  *FakeFetcher
	Accounts *MockAccounts
	Prompter *prompt.Static
	Observer *provisioning.RecordingObserver

	// Executable stands in for the running installer binary.
	Executable string
}

// NewHostFixture creates a HostFixture rooted in a temporary directory.
func NewHostFixture(t *testing.T) *HostFixture {
	t.Helper()
	root := t.TempDir()
	product := NewProductBuilder().
		WithDefaultDir(filepath.Join(root, "home", "hytale", "hytale-server")).
		Build()

	settings := config.DefaultSettings()
	settings.RegistryDir = filepath.Join(root, "var", "lib", "warlock")
	settings.UnitDir = filepath.Join(root, "etc", "systemd", "system")

	runner := shell.NewFake("systemctl", "python3", "ufw", "curl").
		Fail("systemctl is-active", 3, "")

	binary, err := product.DownloaderBinary("amd64")
	if err != nil {
		t.Fatalf("downloader binary: %v", err)
	}
	managerURL, err := product.ManagerURL("main")
	if err != nil {
		t.Fatalf("manager url: %v", err)
	}
	fetcher := NewFakeFetcher().
		Serve(product.Downloader.URL, ZipArchive(t, map[string]string{
			binary:          "#!/bin/sh\n",
			"QUICKSTART.md": "read me\n",
		})).
		Serve(managerURL, []byte(ManagerScript))

	return &HostFixture{
		t:        t,
		Root:     root,
		Product:  product,
		Settings: settings,
		Snapshot: host.Snapshot{
			OS:                host.OSInfo{ID: "ubuntu", Like: []string{"debian"}, VersionID: "24.04"},
			Version:           24,
			Arch:              "amd64",
			Hostname:          "game-01",
			AvailableFirewall: host.FirewallUFW,
			ActiveFirewall:    host.FirewallUFW,
			PackageManager:    host.PackageApt,
		},
		Runner:     runner,
		Registry:   registry.NewMemory(),
		Units:      systemd.NewManager(runner, settings.UnitDir),
		Fetcher:    fetcher,
		Accounts:   NewMockAccounts(product.User),
		Prompter:   &prompt.Static{UseDefault: true},
		Observer:   provisioning.NewRecordingObserver(),
		Executable: WriteFile(t, filepath.Join(root, "usr", "local", "bin", "gsprov"), "gsprov binary\n"),
	}
}

// UseS3Registry replaces the fixture's registry with one kept in store and
// scoped to the fixture's hostname.
func (f *HostFixture) UseS3Registry(store registry.ObjectStore) {
	f.t.Helper()
	repo, err := registry.NewS3Repository(store, "gsprov", f.Snapshot.Hostname)
	if err != nil {
		f.t.Fatalf("s3 registry: %v", err)
	}
	f.Registry = repo
}

// InstallOptions are non-interactive install options for instanceID.
func (f *HostFixture) InstallOptions(instanceID string) provisioning.Options {
	return provisioning.Options{
		NonInteractive: true,
		Branch:         "latest",
		ManagerBranch:  "main",
		InstanceID:     instanceID,
		Executable:     f.Executable,
	}
}

// UninstallOptions are non-interactive uninstall options for instanceID.
func (f *HostFixture) UninstallOptions(instanceID string) provisioning.Options {
	return provisioning.Options{
		Uninstall:      true,
		NonInteractive: true,
		InstanceID:     instanceID,
	}
}

// Context resolves the instance against the fixture's registry and returns
// a context wired to the fixture's fakes.
func (f *HostFixture) Context(opts provisioning.Options) (*provisioning.Context, error) {
	f.t.Helper()
	ctx := TestContext(f.t)

	inst, err := instance.Resolve(ctx, f.Registry, instance.Params{
		GUID:        f.Product.GUID,
		Service:     f.Product.Service,
		InstanceID:  opts.InstanceID,
		OverrideDir: opts.OverrideDir,
		DefaultDir:  f.Product.DefaultDir,
	})
	if err != nil {
		return nil, err
	}

	pc := provisioning.NewContext(ctx, f.Product, f.Settings, opts)
	pc.Snapshot = f.Snapshot
	pc.Instance = inst
	pc.Runner = f.Runner
	if pkgs, err := pkgmgr.New(f.Snapshot.PackageManager, f.Runner); err == nil {
		pc.Packages = pkgs
	}
	pc.Firewall = firewall.NewManager(f.Runner, f.Snapshot)
	pc.Fetcher = f.Fetcher
	pc.Units = f.Units
	pc.Registry = f.Registry
	pc.Manager = provisioning.ManagerFor(f.Runner, f.Product, inst)
	pc.Accounts = f.Accounts
	pc.Prompter = f.Prompter
	pc.Observer = f.Observer
	pc.IsRoot = func() bool { return true }
	return pc, nil
}

// MustContext is Context that fails the test on error.
func (f *HostFixture) MustContext(opts provisioning.Options) *provisioning.Context {
	f.t.Helper()
	ctx, err := f.Context(opts)
	if err != nil {
		f.t.Fatalf("resolve instance: %v", err)
	}
	return ctx
}
