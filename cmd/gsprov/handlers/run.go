package handlers

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/imamik/gsprov/internal/instance"
	"github.com/imamik/gsprov/internal/platform/firewall"
	"github.com/imamik/gsprov/internal/platform/pkgmgr"
	"github.com/imamik/gsprov/internal/platform/systemd"
	"github.com/imamik/gsprov/internal/provisioning"
	"github.com/imamik/gsprov/internal/provisioning/install"
	"github.com/imamik/gsprov/internal/provisioning/uninstall"
	"github.com/imamik/gsprov/internal/ui/style"
	"github.com/imamik/gsprov/internal/util/prerequisites"
)

// ErrInstanceRequired is returned when --instance-id is missing.
var ErrInstanceRequired = errors.New("--instance-id is required")

// Run installs or uninstalls one instance of the product.
func Run(ctx context.Context, g Globals, opts provisioning.Options) error {
	log, flush := newLogger(g)
	defer flush()

	if strings.TrimSpace(opts.InstanceID) == "" {
		return ErrInstanceRequired
	}
	opts.OverrideDir = provisioning.StripQuotes(opts.OverrideDir)

	product, settings, err := load(g)
	if err != nil {
		return err
	}
	if !opts.Uninstall && !product.HasBranch(opts.Branch) {
		return fmt.Errorf("unknown branch %q, expected one of %s", opts.Branch, strings.Join(product.Branches, ", "))
	}
	if !opts.Uninstall && opts.Executable == "" {
		if exe, err := executable(); err == nil {
			opts.Executable = exe
		}
	}

	runner := newRunner()
	if err := prerequisites.Check(runner, prerequisites.HostTools()).Error(); err != nil {
		return &provisioning.PreconditionError{Reason: err.Error(), Remedy: "gsprov only supports systemd hosts"}
	}
	snap, err := detectHost(ctx, runner, settings)
	if err != nil {
		return fmt.Errorf("failed to probe host: %w", err)
	}

	repo, err := newRegistry(ctx, settings, snap.Hostname)
	if err != nil {
		return err
	}
	inst, err := instance.Resolve(ctx, repo, instance.Params{
		GUID:        product.GUID,
		Service:     product.Service,
		InstanceID:  opts.InstanceID,
		OverrideDir: opts.OverrideDir,
		DefaultDir:  product.DefaultDir,
	})
	if err != nil {
		return err
	}

	pc := provisioning.NewContext(ctx, product, settings, opts)
	pc.Snapshot = snap
	pc.Instance = inst
	pc.Runner = runner
	pc.Registry = repo
	pc.Units = systemd.NewManager(runner, settings.UnitDir)
	pc.Firewall = firewall.NewManager(runner, snap)
	pc.Manager = provisioning.ManagerFor(runner, product, inst)
	pc.Accounts = newAccounts(runner)
	pc.Prompter = newPrompter(opts.NonInteractive)
	pc.IsRoot = isRoot
	pc.Observer = provisioning.NewLogObserver(log).WithFields(map[string]string{"service": inst.Service})
	if pkgs, err := pkgmgr.New(snap.PackageManager, runner); err == nil {
		pc.Packages = pkgs
	}

	phases := uninstall.Phases()
	if !opts.Uninstall {
		fetcher, err := newFetcher(settings.FetchBackend, runner, log)
		if err != nil {
			return err
		}
		pc.Fetcher = fetcher
		phases = install.Phases()
	}

	printSummary(pc)
	if err := provisioning.Execute(pc, phases); err != nil {
		return err
	}
	fmt.Fprintln(stdout, style.Success.Render(fmt.Sprintf("%s of %s finished", pc.Operation(), inst.Service)))
	return nil
}

func printSummary(pc *provisioning.Context) {
	existing := "no"
	if pc.Instance.Existing {
		existing = "yes"
	}
	lines := []string{
		style.Title.Render(fmt.Sprintf("%s %s", pc.Product.Name, pc.Operation())),
		style.KV("Service", pc.Instance.Service),
		style.KV("Directory", pc.Instance.Dir),
		style.KV("Registered", existing),
		style.KV("OS", fmt.Sprintf("%s %d (%s)", pc.Snapshot.OS.ID, pc.Snapshot.Version, pc.Snapshot.Arch)),
		style.KV("Package manager", pc.Snapshot.PackageManager.String()),
		style.KV("Firewall", pc.Snapshot.AvailableFirewall.String()),
	}
	if !pc.Options.Uninstall {
		lines = append(lines, style.KV("Branch", pc.Options.Branch))
	}
	fmt.Fprintln(stdout, strings.Join(lines, "\n"))
}
