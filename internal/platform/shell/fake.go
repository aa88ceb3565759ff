package shell

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

// Response is a scripted reply for Fake.
type Response struct {
	Result Result
	Err    error
}

// Fake is a recording Runner for tests. Responses are matched by the longest
// registered prefix of the rendered command line; unmatched commands succeed
// with empty output.
type Fake struct {
	mu        sync.Mutex
	responses map[string]Response
	paths     map[string]string
	Commands  []Command
}

// NewFake returns a Fake with the given executables available in PATH.
func NewFake(executables ...string) *Fake {
	f := &Fake{
		responses: make(map[string]Response),
		paths:     make(map[string]string),
	}
	for _, name := range executables {
		f.paths[name] = "/usr/bin/" + name
	}
	return f
}

// On registers a response for every command line starting with prefix.
func (f *Fake) On(prefix string, res Result) *Fake {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.responses[prefix] = Response{Result: res}
	return f
}

// Fail makes every command line starting with prefix exit with code.
func (f *Fake) Fail(prefix string, code int, stderr string) *Fake {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.responses[prefix] = Response{
		Result: Result{ExitCode: code, Stderr: stderr},
		Err:    &ExitError{Command: prefix, ExitCode: code, Stderr: stderr},
	}
	return f
}

// Run implements Runner.
func (f *Fake) Run(_ context.Context, cmd Command) (Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Commands = append(f.Commands, cmd)

	line := cmd.String()
	best := ""
	for prefix := range f.responses {
		if strings.HasPrefix(line, prefix) && len(prefix) > len(best) {
			best = prefix
		}
	}
	if best == "" {
		return Result{}, nil
	}
	resp := f.responses[best]
	return resp.Result, resp.Err
}

// LookPath implements Runner.
func (f *Fake) LookPath(name string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if p, ok := f.paths[name]; ok {
		return p, nil
	}
	return "", fmt.Errorf("%s: %w", name, ErrNotFound)
}

// Lines returns every recorded command rendered as a single string.
func (f *Fake) Lines() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	lines := make([]string, 0, len(f.Commands))
	for _, c := range f.Commands {
		lines = append(lines, c.String())
	}
	return lines
}

// Ran reports whether any recorded command line starts with prefix.
func (f *Fake) Ran(prefix string) bool {
	for _, line := range f.Lines() {
		if strings.HasPrefix(line, prefix) {
			return true
		}
	}
	return false
}
