// Package prompt asks the operator yes/no questions.
package prompt

import (
	"context"
	"os"

	"github.com/charmbracelet/huh"
	"github.com/mattn/go-isatty"
)

// Prompter asks a yes/no question. def is returned whenever nobody can
// answer.
type Prompter interface {
	Confirm(ctx context.Context, title, description string, def bool) (bool, error)
	Interactive() bool
}

// Terminal prompts on the controlling terminal with huh.
type Terminal struct {
	// NonInteractive forces every question to its default.
	NonInteractive bool
	// IsTTY reports whether stdin and stdout are terminals; replaceable in tests.
	IsTTY func() bool
}

// NewTerminal returns a Terminal prompter.
func NewTerminal(nonInteractive bool) *Terminal {
	return &Terminal{NonInteractive: nonInteractive, IsTTY: stdioIsTerminal}
}

// Interactive reports whether questions will actually be asked.
func (t *Terminal) Interactive() bool {
	if t.NonInteractive {
		return false
	}
	if t.IsTTY == nil {
		return stdioIsTerminal()
	}
	return t.IsTTY()
}

// Confirm implements Prompter.
func (t *Terminal) Confirm(ctx context.Context, title, description string, def bool) (bool, error) {
	if !t.Interactive() {
		return def, nil
	}
	answer := def
	err := huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title(title).
				Description(description).
				Affirmative("Yes").
				Negative("No").
				Value(&answer),
		),
	).RunWithContext(ctx)
	if err != nil {
		return def, err
	}
	return answer, nil
}

func stdioIsTerminal() bool {
	in, out := os.Stdin.Fd(), os.Stdout.Fd()
	return (isatty.IsTerminal(in) || isatty.IsCygwinTerminal(in)) &&
		(isatty.IsTerminal(out) || isatty.IsCygwinTerminal(out))
}

// Static answers every question the same way and records the titles.
type Static struct {
	Answer bool
	// UseDefault returns def instead of Answer.
	UseDefault bool
	Asked      []string
}

// Interactive implements Prompter.
func (s *Static) Interactive() bool { return !s.UseDefault }

// Confirm implements Prompter.
func (s *Static) Confirm(_ context.Context, title, _ string, def bool) (bool, error) {
	s.Asked = append(s.Asked, title)
	if s.UseDefault {
		return def, nil
	}
	return s.Answer, nil
}
