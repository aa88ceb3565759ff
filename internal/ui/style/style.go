// Package style holds the terminal styles used by the CLI.
package style

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
)

var (
	colorGreen  = lipgloss.Color("#22c55e")
	colorRed    = lipgloss.Color("#ef4444")
	colorYellow = lipgloss.Color("#eab308")
	colorBlue   = lipgloss.Color("#3b82f6")
	colorDim    = lipgloss.Color("#6b7280")

	// Title is used for the banner printed before a run.
	Title = lipgloss.NewStyle().Bold(true).Foreground(colorBlue)

	// Label is the left column of key/value summaries.
	Label = lipgloss.NewStyle().Foreground(colorDim).Width(18)

	// Success marks a finished run.
	Success = lipgloss.NewStyle().Bold(true).Foreground(colorGreen)

	// Warning marks soft failures.
	Warning = lipgloss.NewStyle().Foreground(colorYellow)

	// Error marks fatal errors.
	Error = lipgloss.NewStyle().Bold(true).Foreground(colorRed)
)

// KV renders one summary line.
func KV(key string, value any) string {
	return Label.Render(key) + " " + fmt.Sprint(value)
}

// Fatal renders an error for stderr.
func Fatal(err error) string {
	return Error.Render("Error:") + " " + err.Error()
}
