package systemd

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imamik/gsprov/internal/platform/shell"
)

func plainParams() UnitParams {
	return UnitParams{
		Description:      "Hytale Dedicated Server",
		Service:          "hytale-server",
		User:             "hytale",
		Group:            "hytale",
		WorkingDirectory: "/home/hytale/hytale-server/AppFiles",
		ExecStart:        "/usr/bin/java -jar Server/HytaleServer.jar --assets Assets.zip",
		ExecStartPost:    "/home/hytale/hytale-server/.venv/bin/python3 /home/hytale/hytale-server/manage.py --post-start",
		ExecStop:         "/home/hytale/hytale-server/.venv/bin/python3 /home/hytale/hytale-server/manage.py --pre-stop",
	}
}

func templatedParams() UnitParams {
	p := plainParams()
	p.Instance = "abc12345-0000-4000-8000-000000000000"
	p.WorkingDirectory = "/home/hytale/hytale-server-abc12345/AppFiles"
	return p
}

func TestUnitNames(t *testing.T) {
	t.Parallel()
	plain := plainParams()
	assert.Equal(t, "hytale-server.service", plain.ServiceFile())
	assert.Equal(t, "hytale-server.socket", plain.SocketFile())
	assert.Equal(t, "hytale-server.service", plain.ServiceUnit())
	assert.Equal(t, "/var/run/hytale-server.sock", plain.SocketPath())

	tpl := templatedParams()
	assert.Equal(t, "hytale-server@.service", tpl.ServiceFile())
	assert.Equal(t, "hytale-server@.socket", tpl.SocketFile())
	assert.Equal(t, "hytale-server@abc12345-0000-4000-8000-000000000000.service", tpl.ServiceUnit())
	assert.Equal(t, "hytale-server@abc12345-0000-4000-8000-000000000000.socket", tpl.SocketUnit())
	assert.Equal(t, "hytale-server@abc12345-0000-4000-8000-000000000000.service.d", tpl.DropInDir())
	assert.Equal(t, "/var/run/hytale-server@abc12345-0000-4000-8000-000000000000.sock", tpl.SocketPath())
}

func TestRenderService_Plain(t *testing.T) {
	t.Parallel()
	out, err := RenderService(plainParams())
	require.NoError(t, err)

	for _, line := range []string{
		"Requires=hytale-server.socket",
		"After=network.target hytale-server.socket",
		"User=hytale",
		"Group=hytale",
		"WorkingDirectory=/home/hytale/hytale-server/AppFiles",
		"ExecStart=/usr/bin/java -jar Server/HytaleServer.jar --assets Assets.zip",
		"ExecStartPost=/home/hytale/hytale-server/.venv/bin/python3 /home/hytale/hytale-server/manage.py --post-start",
		"ExecStop=/home/hytale/hytale-server/.venv/bin/python3 /home/hytale/hytale-server/manage.py --pre-stop",
		"StandardInput=socket",
		"StandardOutput=journal",
		"Restart=on-failure",
		"RestartSec=1800s",
		"WantedBy=multi-user.target",
	} {
		assert.Contains(t, out, line+"\n")
	}
}

func TestRenderService_TemplateKeepsPathsInDropIn(t *testing.T) {
	t.Parallel()
	p := templatedParams()

	svc, err := RenderService(p)
	require.NoError(t, err)
	assert.Contains(t, svc, "Requires=hytale-server@%i.socket\n")
	assert.NotContains(t, svc, "WorkingDirectory=")
	assert.NotContains(t, svc, "ExecStart=")

	dropIn, err := RenderDropIn(p)
	require.NoError(t, err)
	assert.Contains(t, dropIn, "WorkingDirectory=/home/hytale/hytale-server-abc12345/AppFiles\n")
	assert.Contains(t, dropIn, "ExecStart=/usr/bin/java")
	assert.Contains(t, dropIn, "--pre-stop\n")
}

func TestRenderSocket(t *testing.T) {
	t.Parallel()

	out, err := RenderSocket(plainParams())
	require.NoError(t, err)
	assert.Contains(t, out, "ListenFIFO=/var/run/hytale-server.sock\n")
	assert.Contains(t, out, "PartOf=hytale-server.service\n")
	assert.Contains(t, out, "SocketUser=hytale\n")
	assert.Contains(t, out, "SocketGroup=hytale\n")
	assert.Contains(t, out, "RemoveOnStop=true\n")
	assert.Contains(t, out, "[Install]\nWantedBy=sockets.target\n")

	out, err = RenderSocket(templatedParams())
	require.NoError(t, err)
	assert.Contains(t, out, "ListenFIFO=/var/run/hytale-server@%i.sock\n")
	assert.Contains(t, out, "PartOf=hytale-server@%i.service\n")
}

func TestRender_Validation(t *testing.T) {
	t.Parallel()
	p := plainParams()
	p.User = ""
	p.ExecStart = ""
	_, err := RenderService(p)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing exec start, user")

	p = plainParams()
	p.Service = "bad@name"
	_, err = RenderSocket(p)
	require.Error(t, err)

	_, err = RenderDropIn(plainParams())
	require.Error(t, err)
}

func TestRender_Descriptions(t *testing.T) {
	t.Parallel()

	plain := plainParams()
	plain.InstanceName = "Friday Night"
	svc, err := RenderService(plain)
	require.NoError(t, err)
	assert.Contains(t, svc, "Description=Hytale Dedicated Server (Friday Night)\n")

	// The template file is shared, so only the drop-in names the instance.
	tpl := templatedParams()
	tpl.InstanceName = "Friday Night"
	svc, err = RenderService(tpl)
	require.NoError(t, err)
	assert.Contains(t, svc, "Description=Hytale Dedicated Server\n")
	assert.NotContains(t, svc, "Friday Night")

	dropIn, err := RenderDropIn(tpl)
	require.NoError(t, err)
	assert.Contains(t, dropIn, "[Unit]\nDescription=Hytale Dedicated Server (Friday Night)\n")

	tpl.InstanceName = ""
	dropIn, err = RenderDropIn(tpl)
	require.NoError(t, err)
	assert.Contains(t, dropIn, "Description=Hytale Dedicated Server (abc12345-0000-4000-8000-000000000000)\n")
}

func TestValidateInstance(t *testing.T) {
	t.Parallel()
	for _, id := range []string{"abc12345-0000-4000-8000-000000000000", "ab", "eu_1.a:b"} {
		assert.NoError(t, ValidateInstance(id), id)
	}
	for _, id := range []string{"", "has space", "a@b", "a/b", "tab\there", "café", strings.Repeat("a", 256)} {
		assert.ErrorIs(t, ValidateInstance(id), ErrInvalidInstance, id)
	}

	p := templatedParams()
	p.Instance = "bad id"
	_, err := RenderDropIn(p)
	assert.ErrorIs(t, err, ErrInvalidInstance)
}

func TestRestartSeconds(t *testing.T) {
	t.Parallel()
	p := plainParams()
	assert.Equal(t, 1800, p.RestartSeconds())
	p.RestartSec = 90 * time.Second
	assert.Equal(t, 90, p.RestartSeconds())
}

func TestManager_WriteAndRemove(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	m := NewManager(shell.NewFake(), dir)

	require.NoError(t, m.WriteUnit("svc.service", "[Unit]\n"))
	assert.True(t, m.UnitExists("svc.service"))
	info, err := os.Stat(filepath.Join(dir, "svc.service"))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o644), info.Mode().Perm())

	require.NoError(t, m.WriteUnit("svc@a.service.d/gsprov.conf", "[Service]\n"))
	assert.True(t, m.UnitExists("svc@a.service.d"))

	require.NoError(t, m.RemoveUnit("svc.service"))
	require.NoError(t, m.RemoveUnit("svc@a.service.d"))
	require.NoError(t, m.RemoveUnit("never-existed.socket"))
	assert.False(t, m.UnitExists("svc.service"))
	assert.False(t, m.UnitExists("svc@a.service.d"))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestManager_RejectsEscapingNames(t *testing.T) {
	t.Parallel()
	m := NewManager(shell.NewFake(), t.TempDir())
	for _, name := range []string{"", ".", "../x.service", "/etc/passwd"} {
		assert.Error(t, m.RemoveUnit(name), name)
		assert.Error(t, m.WriteUnit(name, "x"), name)
	}
}

func TestManager_Systemctl(t *testing.T) {
	t.Parallel()
	runner := shell.NewFake().Fail("systemctl is-active --quiet b.service", 3, "")
	m := NewManager(runner, "")
	ctx := context.Background()

	assert.Equal(t, DefaultUnitDir, m.UnitDir)
	assert.True(t, m.IsActive(ctx, "a.service"))
	assert.False(t, m.IsActive(ctx, "b.service"))
	require.NoError(t, m.DaemonReload(ctx))
	require.NoError(t, m.Enable(ctx, "a.socket", "a.service"))
	require.NoError(t, m.DisableNow(ctx, "a.service"))
	require.NoError(t, m.Enable(ctx))

	assert.Equal(t, []string{
		"systemctl is-active --quiet a.service",
		"systemctl is-active --quiet b.service",
		"systemctl daemon-reload",
		"systemctl enable a.socket a.service",
		"systemctl disable --now a.service",
	}, runner.Lines())
}

func TestManager_SystemctlFailure(t *testing.T) {
	t.Parallel()
	runner := shell.NewFake().Fail("systemctl enable", 1, "Failed to enable unit")
	m := NewManager(runner, "")
	err := m.Enable(context.Background(), "x.service")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "systemctl enable failed")
}

func TestCommandLine(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "/opt/x/python3 /opt/x/manage.py --pre-stop",
		CommandLine([]string{"/opt/x/python3", "/opt/x/manage.py", "--pre-stop"}))
	assert.Equal(t, `/usr/bin/python3 "/srv/my game/manage.py" --set-config "Game Branch" ""`,
		CommandLine([]string{"/usr/bin/python3", "/srv/my game/manage.py", "--set-config", "Game Branch", ""}))
	assert.Equal(t, `say "a \"quoted\" word"`, CommandLine([]string{"say", `a "quoted" word`}))
}
