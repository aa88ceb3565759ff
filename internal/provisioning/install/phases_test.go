package install

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/imamik/gsprov/internal/host"
	"github.com/imamik/gsprov/internal/platform/account"
	"github.com/imamik/gsprov/internal/platform/firewall"
	"github.com/imamik/gsprov/internal/provisioning"
	gstest "github.com/imamik/gsprov/internal/testing"
	"github.com/imamik/gsprov/internal/ui/prompt"
)

func TestCreateUser(t *testing.T) {
	t.Parallel()

	t.Run("creates user and directories", func(t *testing.T) {
		t.Parallel()
		h := gstest.NewHostFixture(t)
		ctx := h.MustContext(h.InstallOptions(instanceID))

		require.NoError(t, NewCreateUser().Provision(ctx))
		assert.DirExists(t, filepath.Join(ctx.Instance.Dir, "AppFiles"))
		assert.True(t, ctx.State.Account.Created)
		assert.True(t, h.Runner.Ran("chown hytale:hytale "+ctx.Instance.Dir))
		h.Accounts.AssertCalled(t, "Ensure", mock.Anything, "hytale", filepath.Dir(h.Product.DefaultDir))
		assert.Len(t, h.Observer.OfType(provisioning.EventResourceCreated), 3)
	})

	t.Run("account failure is fatal", func(t *testing.T) {
		t.Parallel()
		h := gstest.NewHostFixture(t)
		accounts := &gstest.MockAccounts{}
		accounts.On("Ensure", mock.Anything, "hytale", mock.Anything).
			Return(account.Account{}, errors.New("useradd: exit status 9"))
		h.Accounts = accounts
		ctx := h.MustContext(h.InstallOptions(instanceID))

		err := NewCreateUser().Provision(ctx)
		var act *provisioning.ActionError
		require.ErrorAs(t, err, &act)
		assert.Equal(t, "create user hytale", act.Step)
		assert.NoDirExists(t, ctx.Instance.Dir)
	})
}

func TestInstallDeps(t *testing.T) {
	t.Parallel()

	t.Run("unsupported package manager", func(t *testing.T) {
		t.Parallel()
		h := gstest.NewHostFixture(t)
		ctx := h.MustContext(h.InstallOptions(instanceID))
		ctx.Packages = nil

		err := (&InstallDeps{}).Provision(ctx)
		var unsupported *host.UnsupportedError
		require.ErrorAs(t, err, &unsupported)
		assert.Equal(t, "package manager", unsupported.Capability)
	})

	t.Run("install failure", func(t *testing.T) {
		t.Parallel()
		h := gstest.NewHostFixture(t)
		h.Runner.Fail("apt-get install", 100, "E: Unable to locate package")
		ctx := h.MustContext(h.InstallOptions(instanceID))

		err := (&InstallDeps{}).Provision(ctx)
		var act *provisioning.ActionError
		require.ErrorAs(t, err, &act)
		assert.Contains(t, err.Error(), "Unable to locate package")
	})

	t.Run("low disk space warns", func(t *testing.T) {
		t.Parallel()
		h := gstest.NewHostFixture(t)
		ctx := h.MustContext(h.InstallOptions(instanceID))
		p := &InstallDeps{FreeSpace: func(string) (uint64, error) { return 1 << 30, nil }}

		require.NoError(t, p.Provision(ctx))
		warnings := h.Observer.OfType(provisioning.EventWarning)
		require.Len(t, warnings, 1)
		assert.Contains(t, warnings[0].Message, "only 1024 MiB free")
	})

	t.Run("nothing listed", func(t *testing.T) {
		t.Parallel()
		h := gstest.NewHostFixture(t)
		h.Product = gstest.NewProductBuilder().WithDefaultDir(h.Product.DefaultDir).WithPackages("apt").Build()
		ctx := h.MustContext(h.InstallOptions(instanceID))

		require.NoError(t, (&InstallDeps{}).Provision(ctx))
		assert.False(t, h.Runner.Ran("apt-get"))
	})
}

func TestFirewallBootstrap(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name         string
		setup        func(h *gstest.HostFixture, opts *provisioning.Options)
		bootstrapped bool
		asked        int
	}{
		{
			name: "skip flag",
			setup: func(h *gstest.HostFixture, opts *provisioning.Options) {
				h.Snapshot.ActiveFirewall = host.FirewallNone
				opts.SkipFirewall = true
			},
		},
		{
			name: "firewall already active",
		},
		{
			name: "declined",
			setup: func(h *gstest.HostFixture, opts *provisioning.Options) {
				h.Snapshot.ActiveFirewall = host.FirewallNone
				h.Prompter = &prompt.Static{Answer: false}
				opts.NonInteractive = false
			},
			asked: 1,
		},
		{
			name: "confirmed",
			setup: func(h *gstest.HostFixture, opts *provisioning.Options) {
				h.Snapshot.ActiveFirewall = host.FirewallNone
				h.Prompter = &prompt.Static{Answer: true}
				opts.NonInteractive = false
			},
			bootstrapped: true,
			asked:        1,
		},
		{
			name: "non-interactive defaults to yes",
			setup: func(h *gstest.HostFixture, _ *provisioning.Options) {
				h.Snapshot.ActiveFirewall = host.FirewallNone
			},
			bootstrapped: true,
		},
		{
			name: "no firewall for distribution",
			setup: func(h *gstest.HostFixture, _ *provisioning.Options) {
				h.Snapshot.ActiveFirewall = host.FirewallNone
				h.Snapshot.OS = host.OSInfo{ID: "arch"}
				h.Snapshot.PackageManager = host.PackagePacman
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			h := gstest.NewHostFixture(t)
			opts := h.InstallOptions(instanceID)
			if tt.setup != nil {
				tt.setup(h, &opts)
			}
			ctx := h.MustContext(opts)

			require.NoError(t, NewFirewallBootstrap().Provision(ctx))
			assert.Equal(t, tt.bootstrapped, ctx.State.FirewallBootstrapped)
			assert.Len(t, h.Prompter.Asked, tt.asked)
			assert.Equal(t, tt.bootstrapped, h.Runner.Ran("ufw --force enable"))
			if tt.bootstrapped {
				assert.Equal(t, host.FirewallUFW, ctx.Firewall.Backend())
				assert.True(t, h.Runner.Ran("ufw allow 22/tcp comment Allow SSH"))
			}
		})
	}

	t.Run("existing install is never asked", func(t *testing.T) {
		t.Parallel()
		h := gstest.NewHostFixture(t)
		first := h.MustContext(h.InstallOptions(instanceID))
		require.NoError(t, NewRegisterInstance().Provision(first))

		h.Snapshot.ActiveFirewall = host.FirewallNone
		h.Prompter = &prompt.Static{Answer: true}
		opts := h.InstallOptions(instanceID)
		opts.NonInteractive = false
		ctx := h.MustContext(opts)

		require.NoError(t, NewFirewallBootstrap().Provision(ctx))
		assert.Empty(t, h.Prompter.Asked)
		assert.False(t, ctx.State.FirewallBootstrapped)
	})
}

func TestOpenGamePort(t *testing.T) {
	t.Parallel()

	t.Run("no firewall is soft", func(t *testing.T) {
		t.Parallel()
		h := gstest.NewHostFixture(t)
		h.Snapshot.AvailableFirewall = host.FirewallNone
		ctx := h.MustContext(h.InstallOptions(instanceID))

		require.NoError(t, NewOpenGamePort().Provision(ctx))
		assert.False(t, ctx.State.PortOpened)
		assert.Contains(t, ctx.State.Skipped, "open-game-port")
		assert.Len(t, h.Observer.OfType(provisioning.EventWarning), 1)
	})

	t.Run("iptables multiport range", func(t *testing.T) {
		t.Parallel()
		h := gstest.NewHostFixture(t)
		h.Product = gstest.NewProductBuilder().WithDefaultDir(h.Product.DefaultDir).WithPort("5520:5530", "udp").Build()
		h.Snapshot.AvailableFirewall = host.FirewallIPTables
		h.Runner.Fail("iptables -C", 1, "")
		ctx := h.MustContext(h.InstallOptions(instanceID))
		fw := firewall.NewManager(h.Runner, h.Snapshot)
		fw.WriteFile = func(string, []byte, os.FileMode) error { return nil }
		ctx.Firewall = fw

		require.NoError(t, NewOpenGamePort().Provision(ctx))
		assert.True(t, h.Runner.Ran("iptables -A INPUT -p udp -m multiport --dports 5520:5530 -j ACCEPT"))
	})

	t.Run("backend failure is fatal", func(t *testing.T) {
		t.Parallel()
		h := gstest.NewHostFixture(t)
		h.Runner.Fail("ufw allow", 1, "ERROR: problem running ufw")
		ctx := h.MustContext(h.InstallOptions(instanceID))

		err := NewOpenGamePort().Provision(ctx)
		var act *provisioning.ActionError
		require.ErrorAs(t, err, &act)
		assert.Equal(t, "open port 5520/udp", act.Step)
	})
}

func TestFetchBinaries(t *testing.T) {
	t.Parallel()

	t.Run("download failure", func(t *testing.T) {
		t.Parallel()
		h := gstest.NewHostFixture(t)
		h.Fetcher.Fail(h.Product.Downloader.URL, errors.New("connection reset"))
		ctx := h.MustContext(h.InstallOptions(instanceID))

		err := NewFetchBinaries().Provision(ctx)
		var act *provisioning.ActionError
		require.ErrorAs(t, err, &act)
		assert.Contains(t, err.Error(), "connection reset")
	})

	t.Run("architecture missing from archive", func(t *testing.T) {
		t.Parallel()
		h := gstest.NewHostFixture(t)
		h.Snapshot.Arch = "riscv64"
		ctx := h.MustContext(h.InstallOptions(instanceID))

		err := NewFetchBinaries().Provision(ctx)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "hytale-downloader-linux-riscv64")
	})

	t.Run("re-extracts a missing binary from a kept archive", func(t *testing.T) {
		t.Parallel()
		h := gstest.NewHostFixture(t)
		ctx := h.MustContext(h.InstallOptions(instanceID))
		require.NoError(t, NewFetchBinaries().Provision(ctx))
		require.NoError(t, os.Remove(ctx.State.Downloader))

		require.NoError(t, NewFetchBinaries().Provision(ctx))
		assert.FileExists(t, ctx.State.Downloader)
		assert.Equal(t, 1, h.Fetcher.Transfers(h.Product.Downloader.URL))
	})
}

func TestSetBranchConfig(t *testing.T) {
	t.Parallel()

	t.Run("branch and name", func(t *testing.T) {
		t.Parallel()
		h := gstest.NewHostFixture(t)
		opts := h.InstallOptions(instanceID)
		opts.Branch = "pre-release"
		opts.InstanceName = "Friday Night"
		ctx := h.MustContext(opts)
		gstest.WriteFile(t, ctx.Manager.Path, gstest.ManagerScript)

		require.NoError(t, NewSetBranchConfig().Provision(ctx))
		prefix := ctx.Manager.Interpreter + " " + ctx.Manager.Path + " --service hytale-server@" + instanceID
		assert.True(t, h.Runner.Ran(prefix+" --set-config Game Branch pre-release"))
		assert.True(t, h.Runner.Ran(prefix+" --set-config Instance Name Friday Night"))
	})

	t.Run("unknown branch", func(t *testing.T) {
		t.Parallel()
		h := gstest.NewHostFixture(t)
		opts := h.InstallOptions(instanceID)
		opts.Branch = "nightly"
		ctx := h.MustContext(opts)

		err := NewSetBranchConfig().Provision(ctx)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "latest, pre-release")
	})
}

func TestPostInstall(t *testing.T) {
	t.Parallel()

	t.Run("non-interactive prints the command", func(t *testing.T) {
		t.Parallel()
		h := gstest.NewHostFixture(t)
		ctx := h.MustContext(h.InstallOptions(instanceID))

		require.NoError(t, NewPostInstall().Provision(ctx))
		assert.False(t, h.Runner.Ran("sudo"))
		lines := h.Observer.Lines()
		require.NotEmpty(t, lines)
		assert.Contains(t, lines[len(lines)-1], "sudo -u hytale")
		assert.Contains(t, lines[len(lines)-1], "--first-run")
	})

	t.Run("interactive runs first-run as the service user", func(t *testing.T) {
		t.Parallel()
		h := gstest.NewHostFixture(t)
		h.Prompter = &prompt.Static{Answer: true}
		opts := h.InstallOptions(instanceID)
		opts.NonInteractive = false
		ctx := h.MustContext(opts)
		gstest.WriteFile(t, ctx.Manager.Path, gstest.ManagerScript)

		require.NoError(t, NewPostInstall().Provision(ctx))
		assert.True(t, h.Runner.Ran("sudo -u hytale -- "+ctx.Manager.Interpreter+" "+ctx.Manager.Path+" --service hytale-server@"+instanceID+" --first-run"))
	})
}

func TestRegisterSelfInstaller(t *testing.T) {
	t.Parallel()

	t.Run("no executable", func(t *testing.T) {
		t.Parallel()
		h := gstest.NewHostFixture(t)
		opts := h.InstallOptions(instanceID)
		opts.Executable = ""
		ctx := h.MustContext(opts)

		require.NoError(t, NewRegisterSelfInstaller().Provision(ctx))
		assert.NoFileExists(t, filepath.Join(ctx.Instance.Dir, InstallerName))
	})

	t.Run("running from the install directory", func(t *testing.T) {
		t.Parallel()
		h := gstest.NewHostFixture(t)
		ctx := h.MustContext(h.InstallOptions(instanceID))
		dest := gstest.WriteFile(t, filepath.Join(ctx.Instance.Dir, InstallerName), "current\n")
		ctx.Options.Executable = dest

		require.NoError(t, NewRegisterSelfInstaller().Provision(ctx))
		assert.Len(t, h.Observer.OfType(provisioning.EventResourceExists), 1)
	})
}
