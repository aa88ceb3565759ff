// Package manager invokes the product's own management script, which owns
// game-specific work such as updates, backups and in-game notifications.
package manager

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/imamik/gsprov/internal/platform/shell"
)

// Client runs one installation's management script.
type Client struct {
	// Path is the script, e.g. /home/hytale/hytale-server/manage.py.
	Path string
	// Interpreter runs Path; empty executes Path directly.
	Interpreter string
	// Service selects one instance of a templated install, e.g.
	// "hytale-server@abc". Empty manages the only instance.
	Service string
	// User, when set, runs the script through sudo as that user.
	User   string
	Runner shell.Runner
}

// VenvDir is the virtualenv created next to the script.
const VenvDir = ".venv"

// New returns a Client for the script in dir using the virtualenv python.
func New(runner shell.Runner, dir, script, service string) *Client {
	return &Client{
		Path:        filepath.Join(dir, script),
		Interpreter: filepath.Join(dir, VenvDir, "bin", "python3"),
		Service:     service,
		Runner:      runner,
	}
}

// Exists reports whether the script is present.
func (c *Client) Exists() bool {
	info, err := os.Stat(c.Path)
	return err == nil && !info.IsDir()
}

// Argv is the full command line for running the script with args.
func (c *Client) Argv(args ...string) []string {
	var argv []string
	if c.Interpreter != "" {
		argv = append(argv, c.Interpreter)
	}
	argv = append(argv, c.Path)
	if c.Service != "" {
		argv = append(argv, "--service", c.Service)
	}
	return append(argv, args...)
}

// Update installs the configured game branch.
func (c *Client) Update(ctx context.Context) error {
	return c.run(ctx, true, "--update")
}

// FirstRun runs the interactive first-run wizard.
func (c *Client) FirstRun(ctx context.Context) error {
	return c.run(ctx, true, "--first-run")
}

// Backup archives the game files.
func (c *Client) Backup(ctx context.Context) error {
	return c.run(ctx, true, "--backup")
}

// SetConfig sets one configuration option.
func (c *Client) SetConfig(ctx context.Context, key, value string) error {
	return c.run(ctx, false, "--set-config", key, value)
}

// PreStopArgs is the ExecStop command line.
func (c *Client) PreStopArgs() []string {
	return c.Argv("--pre-stop")
}

// PostStartArgs is the ExecStartPost command line.
func (c *Client) PostStartArgs() []string {
	return c.Argv("--post-start")
}

// ErrMissing is returned when the script has not been installed.
var ErrMissing = errors.New("management script not installed")

func (c *Client) run(ctx context.Context, stream bool, args ...string) error {
	if !c.Exists() {
		return fmt.Errorf("%w: %s", ErrMissing, c.Path)
	}
	cmd := c.command(stream, args...)
	if _, err := c.Runner.Run(ctx, cmd); err != nil {
		return fmt.Errorf("%s failed: %w", args[0], err)
	}
	return nil
}

func (c *Client) command(stream bool, args ...string) shell.Command {
	argv := c.Argv(args...)
	if c.User != "" {
		argv = append([]string{"-u", c.User, "--"}, argv...)
		return shell.Command{Name: "sudo", Args: argv, Dir: filepath.Dir(c.Path), Stream: stream}
	}
	return shell.Command{Name: argv[0], Args: argv[1:], Dir: filepath.Dir(c.Path), Stream: stream}
}
