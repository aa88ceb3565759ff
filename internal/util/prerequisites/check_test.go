package prerequisites

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imamik/gsprov/internal/platform/shell"
)

func TestCheck(t *testing.T) {
	t.Parallel()

	runner := shell.NewFake("systemctl")
	results := Check(runner, HostTools())

	require.Len(t, results.Results, 1)
	assert.True(t, results.Results[0].Found)
	assert.Equal(t, "/usr/bin/systemctl", results.Results[0].Path)
	assert.False(t, results.HasErrors())
	assert.NoError(t, results.Error())
}

func TestCheckMissingTool(t *testing.T) {
	t.Parallel()

	results := Check(shell.NewFake(), HostTools())

	require.Len(t, results.Missing, 1)
	assert.True(t, results.HasErrors())
	err := results.Error()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "systemctl")
}

func TestCheckOptionalMissing(t *testing.T) {
	t.Parallel()

	results := Check(shell.NewFake(), OptionalTools())

	assert.Len(t, results.Missing, len(OptionalTools()))
	assert.False(t, results.HasErrors())
	assert.NoError(t, results.Error())
}

func TestCheckAll_FillVersions(t *testing.T) {
	t.Parallel()

	runner := shell.NewFake("systemctl", "python3", "iptables").
		On("systemctl --version", shell.Result{Stdout: "systemd 255 (255.4-1ubuntu8)\n+PAM +AUDIT\n"}).
		On("python3 --version", shell.Result{Stdout: "Python 3.12.3\n"}).
		Fail("iptables --version", 1, "")

	results := CheckAll(runner)
	results.FillVersions(context.Background(), runner)

	versions := map[string]string{}
	for _, r := range results.Results {
		if r.Found {
			versions[r.Tool.Name] = r.Version
		}
	}
	assert.Equal(t, map[string]string{
		"systemctl": "systemd 255 (255.4-1ubuntu8)",
		"python3":   "Python 3.12.3",
		"iptables":  "",
	}, versions)
	assert.False(t, results.HasErrors())
	assert.False(t, runner.Ran("curl"), "missing tools are not invoked")
}
