package pkgmgr

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imamik/gsprov/internal/host"
	"github.com/imamik/gsprov/internal/platform/shell"
)

func TestNew_Commands(t *testing.T) {
	t.Parallel()
	tests := []struct {
		backend host.PackageBackend
		want    []string
	}{
		{host.PackageApt, []string{
			"apt-get update",
			"apt-get install -y -o Dpkg::Options::=--force-confdef -o Dpkg::Options::=--force-confold curl unzip",
		}},
		{host.PackageDnf, []string{"dnf install -y curl unzip"}},
		{host.PackageYum, []string{"yum install -y curl unzip"}},
		{host.PackagePacman, []string{"pacman -S --noconfirm --needed curl unzip"}},
		{host.PackageZypper, []string{"zypper --non-interactive install curl unzip"}},
		{host.PackagePkg, []string{"pkg install -y curl unzip"}},
	}
	for _, tt := range tests {
		t.Run(tt.backend.String(), func(t *testing.T) {
			runner := shell.NewFake()
			inst, err := New(tt.backend, runner)
			require.NoError(t, err)
			assert.Equal(t, tt.backend, inst.Backend())

			require.NoError(t, inst.Install(context.Background(), "curl", "unzip"))
			assert.Equal(t, tt.want, runner.Lines())
		})
	}
}

func TestApt_NonInteractiveEnv(t *testing.T) {
	t.Parallel()
	runner := shell.NewFake()
	inst, err := New(host.PackageApt, runner)
	require.NoError(t, err)
	require.NoError(t, inst.Install(context.Background(), "python3"))

	for _, c := range runner.Commands {
		assert.Contains(t, c.Env, "DEBIAN_FRONTEND=noninteractive")
		assert.True(t, c.Stream)
	}
}

func TestNew_Unsupported(t *testing.T) {
	t.Parallel()
	_, err := New(host.PackageUnsupported, shell.NewFake())
	require.Error(t, err)

	var unsupported *host.UnsupportedError
	require.True(t, errors.As(err, &unsupported))
	assert.Equal(t, "package manager", unsupported.Capability)
}

func TestInstall_EmptyIsNoop(t *testing.T) {
	t.Parallel()
	for _, b := range []host.PackageBackend{host.PackageApt, host.PackageDnf, host.PackagePacman} {
		runner := shell.NewFake()
		inst, err := New(b, runner)
		require.NoError(t, err)
		require.NoError(t, inst.Install(context.Background()))
		assert.Empty(t, runner.Commands)
	}
}

func TestInstall_FailureIsWrapped(t *testing.T) {
	t.Parallel()
	runner := shell.NewFake().Fail("dnf install", 1, "No match for argument: nope")
	inst, err := New(host.PackageDnf, runner)
	require.NoError(t, err)

	err = inst.Install(context.Background(), "nope")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "dnf install nope failed")

	var exitErr *shell.ExitError
	assert.True(t, errors.As(err, &exitErr))
}

func TestApt_UpdateFailureStopsInstall(t *testing.T) {
	t.Parallel()
	runner := shell.NewFake().Fail("apt-get update", 100, "temporary failure resolving")
	inst, err := New(host.PackageApt, runner)
	require.NoError(t, err)

	err = inst.Install(context.Background(), "curl")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "apt-get update failed")
	assert.False(t, runner.Ran("apt-get install"))
}
