package provisioning

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imamik/gsprov/internal/config"
	"github.com/imamik/gsprov/internal/instance"
	"github.com/imamik/gsprov/internal/platform/shell"
	"github.com/imamik/gsprov/internal/platform/systemd"
)

// funcPhase adapts a function to the Phase interface.
type funcPhase struct {
	name string
	fn   func(*Context) error
}

func (p funcPhase) Name() string                 { return p.name }
func (p funcPhase) Provision(ctx *Context) error { return p.fn(ctx) }

func phaseFunc(name string, fn func(*Context) error) Phase {
	return funcPhase{name: name, fn: fn}
}

func newTestContext(t *testing.T, runner *shell.Fake) (*Context, *RecordingObserver) {
	t.Helper()
	ctx := NewContext(context.Background(), nil, config.DefaultSettings(), Options{})
	obs := NewRecordingObserver()
	ctx.Observer = obs
	ctx.IsRoot = func() bool { return true }
	ctx.Runner = runner
	ctx.Units = systemd.NewManager(runner, t.TempDir())
	ctx.Instance = &instance.Context{
		BaseService:  "hytale-server",
		Service:      "hytale-server@abc12345",
		UnitTemplate: "hytale-server@",
		InstanceID:   "abc12345",
	}
	return ctx, obs
}

// inactive makes every systemctl is-active probe report a stopped unit.
func inactive() *shell.Fake {
	return shell.NewFake().Fail("systemctl is-active", 3, "")
}

func TestRunPhases_Success(t *testing.T) {
	t.Parallel()
	ctx, obs := newTestContext(t, inactive())
	var executed []string
	phases := []Phase{
		phaseFunc("create-user", func(_ *Context) error { executed = append(executed, "create-user"); return nil }),
		phaseFunc("install-deps", func(_ *Context) error { executed = append(executed, "install-deps"); return nil }),
		phaseFunc("generate-units", func(_ *Context) error { executed = append(executed, "generate-units"); return nil }),
	}

	require.NoError(t, RunPhases(ctx, phases))
	assert.Equal(t, []string{"create-user", "install-deps", "generate-units"}, executed)
	assert.Len(t, obs.OfType(EventPhaseStarted), 3)
	assert.Len(t, obs.OfType(EventPhaseCompleted), 3)
	assert.Equal(t, "3/3", obs.OfType(EventPhaseCompleted)[2].Fields["step"])
}

func TestRunPhases_StopsOnError(t *testing.T) {
	t.Parallel()
	ctx, obs := newTestContext(t, inactive())
	var executed []string
	boom := errors.New("download failed")
	phases := []Phase{
		phaseFunc("create-user", func(_ *Context) error { executed = append(executed, "create-user"); return nil }),
		phaseFunc("fetch-binaries", func(_ *Context) error { return boom }),
		phaseFunc("generate-units", func(_ *Context) error { executed = append(executed, "generate-units"); return nil }),
	}

	err := RunPhases(ctx, phases)
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, "fetch-binaries phase failed: download failed", err.Error())
	assert.Equal(t, []string{"create-user"}, executed)
	assert.Len(t, obs.OfType(EventPhaseFailed), 1)
}

func TestRunPhases_Empty(t *testing.T) {
	t.Parallel()
	ctx, _ := newTestContext(t, inactive())
	require.NoError(t, RunPhases(ctx, nil))
}

func TestCheckGuards(t *testing.T) {
	t.Parallel()

	t.Run("not root", func(t *testing.T) {
		t.Parallel()
		ctx, obs := newTestContext(t, inactive())
		ctx.IsRoot = func() bool { return false }

		err := CheckGuards(ctx)
		var pre *PreconditionError
		require.ErrorAs(t, err, &pre)
		assert.Contains(t, err.Error(), "root")
		assert.Len(t, obs.OfType(EventGuardFailed), 1)
	})

	t.Run("socket active", func(t *testing.T) {
		t.Parallel()
		runner := inactive().On("systemctl is-active --quiet hytale-server@abc12345.socket", shell.Result{})
		ctx, _ := newTestContext(t, runner)

		err := CheckGuards(ctx)
		var pre *PreconditionError
		require.ErrorAs(t, err, &pre)
		assert.Contains(t, pre.Reason, "hytale-server@abc12345.socket is currently running")
		assert.Contains(t, pre.Remedy, "systemctl stop hytale-server@abc12345.socket hytale-server@abc12345.service")
	})

	t.Run("service active", func(t *testing.T) {
		t.Parallel()
		runner := inactive().On("systemctl is-active --quiet hytale-server@abc12345.service", shell.Result{})
		ctx, _ := newTestContext(t, runner)
		assert.Error(t, CheckGuards(ctx))
	})

	t.Run("all clear", func(t *testing.T) {
		t.Parallel()
		ctx, _ := newTestContext(t, inactive())
		assert.NoError(t, CheckGuards(ctx))
	})
}

func TestExecute_GuardFailureRunsNothing(t *testing.T) {
	t.Parallel()
	ctx, _ := newTestContext(t, inactive())
	ctx.IsRoot = func() bool { return false }
	ran := false

	err := Execute(ctx, []Phase{phaseFunc("create-user", func(_ *Context) error { ran = true; return nil })})
	require.Error(t, err)
	assert.False(t, ran)
}

func TestExecute_WritesMetricsTextfile(t *testing.T) {
	t.Parallel()
	ctx, _ := newTestContext(t, inactive())
	ctx.Settings.MetricsTextfile = filepath.Join(t.TempDir(), "gsprov.prom")

	require.NoError(t, Execute(ctx, []Phase{phaseFunc("register-instance", func(_ *Context) error { return nil })}))

	data, err := os.ReadFile(ctx.Settings.MetricsTextfile)
	require.NoError(t, err)
	assert.Contains(t, string(data), `phase="register-instance"`)
	assert.Contains(t, string(data), `gsprov_last_run_success{operation="install",service="hytale-server@abc12345"} 1`)
}

func TestErrors(t *testing.T) {
	t.Parallel()
	inner := errors.New("exit status 2")
	act := &ActionError{Step: "apt-get install", Err: inner}
	assert.ErrorIs(t, act, inner)
	assert.Equal(t, "apt-get install: exit status 2", act.Error())

	assert.Equal(t, "x; y", (&PreconditionError{Reason: "x", Remedy: "y"}).Error())
	assert.Equal(t, "x", (&PreconditionError{Reason: "x"}).Error())
}

func TestStripQuotes(t *testing.T) {
	t.Parallel()
	tests := map[string]string{
		`"/srv/game"`: "/srv/game",
		`'/srv/game'`: "/srv/game",
		`/srv/game`:   "/srv/game",
		`"/srv/game`:  `"/srv/game`,
		`  "/a b"  `:  "/a b",
		`"`:           `"`,
	}
	for in, want := range tests {
		assert.Equal(t, want, StripQuotes(in), in)
	}
}

func TestOptions_Operation(t *testing.T) {
	t.Parallel()
	assert.Equal(t, OperationInstall, Options{}.Operation())
	assert.Equal(t, OperationUninstall, Options{Uninstall: true}.Operation())
}
