// Package shell runs the external host tools the provisioner depends on.
//
// Every privileged action (package managers, firewall CLIs, systemctl, useradd,
// the downstream management script) goes through the Runner interface so the
// layers above stay backend-agnostic and can be exercised with Fake.
package shell

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
)

// Command describes a single external invocation.
type Command struct {
	Name string
	Args []string

	// Env is appended to the current process environment.
	Env []string

	// Dir is the working directory; empty means the current directory.
	Dir string

	// Stream mirrors stdout/stderr to the operator's terminal while still
	// capturing them. Used for long-running steps like package installs.
	Stream bool
}

// String renders the command line for logs and error messages.
func (c Command) String() string {
	if len(c.Args) == 0 {
		return c.Name
	}
	return c.Name + " " + strings.Join(c.Args, " ")
}

// Result holds the captured output of a finished command.
type Result struct {
	ExitCode int
	Stdout   string
	Stderr   string
}

// ExitError is returned when a command ran but exited non-zero.
type ExitError struct {
	Command  string
	ExitCode int
	Stderr   string
}

func (e *ExitError) Error() string {
	msg := fmt.Sprintf("%s: exit status %d", e.Command, e.ExitCode)
	if s := strings.TrimSpace(e.Stderr); s != "" {
		msg += ": " + s
	}
	return msg
}

// ErrNotFound is returned when the executable is not in PATH.
var ErrNotFound = exec.ErrNotFound

// Runner executes external commands.
type Runner interface {
	// Run executes cmd and blocks until it exits. A non-zero exit yields a
	// populated Result together with an *ExitError.
	Run(ctx context.Context, cmd Command) (Result, error)

	// LookPath reports the absolute path of an executable.
	LookPath(name string) (string, error)
}

// Exec is the os/exec backed Runner.
type Exec struct {
	Stdout io.Writer
	Stderr io.Writer
}

// NewExec returns a Runner that streams to the process stdout/stderr when asked.
func NewExec() *Exec {
	return &Exec{Stdout: os.Stdout, Stderr: os.Stderr}
}

// Run implements Runner.
func (e *Exec) Run(ctx context.Context, c Command) (Result, error) {
	// #nosec G204 - commands are assembled from fixed backend tables, not free-form input
	cmd := exec.CommandContext(ctx, c.Name, c.Args...)
	cmd.Dir = c.Dir
	if len(c.Env) > 0 {
		cmd.Env = append(os.Environ(), c.Env...)
	}

	var stdout, stderr bytes.Buffer
	if c.Stream {
		cmd.Stdout = io.MultiWriter(&stdout, e.Stdout)
		cmd.Stderr = io.MultiWriter(&stderr, e.Stderr)
	} else {
		cmd.Stdout = &stdout
		cmd.Stderr = &stderr
	}

	err := cmd.Run()
	res := Result{Stdout: stdout.String(), Stderr: stderr.String()}
	if err == nil {
		return res, nil
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		res.ExitCode = exitErr.ExitCode()
		return res, &ExitError{Command: c.String(), ExitCode: res.ExitCode, Stderr: res.Stderr}
	}
	return res, fmt.Errorf("failed to run %s: %w", c.Name, err)
}

// LookPath implements Runner.
func (e *Exec) LookPath(name string) (string, error) {
	return exec.LookPath(name)
}

// Succeeded reports whether cmd ran and exited zero. Used for status probes
// where a non-zero exit is an answer rather than a failure.
func Succeeded(ctx context.Context, r Runner, cmd Command) bool {
	_, err := r.Run(ctx, cmd)
	return err == nil
}
