// Package prerequisites checks that the host tools gsprov drives are present.
package prerequisites

import (
	"context"
	"fmt"
	"strings"

	"github.com/imamik/gsprov/internal/platform/shell"
	"github.com/imamik/gsprov/internal/util/async"
)

// Tool represents a host executable that may be required.
type Tool struct {
	// Name is the binary name to look for in PATH.
	Name string

	// Required indicates if this tool is mandatory.
	Required bool

	// Description explains what the tool is used for.
	Description string
}

// HostTools returns the tools an install or uninstall needs.
func HostTools() []Tool {
	return []Tool{
		{
			Name:        "systemctl",
			Required:    true,
			Description: "Manages the server's systemd units",
		},
	}
}

// OptionalTools returns tools that are used when present.
func OptionalTools() []Tool {
	return []Tool{
		{Name: "python3", Description: "Runs the management script; installed with the product's packages"},
		{Name: "curl", Description: "Download backend"},
		{Name: "wget", Description: "Download backend"},
		{Name: "firewall-cmd", Description: "firewalld backend"},
		{Name: "ufw", Description: "ufw backend"},
		{Name: "iptables", Description: "iptables backend"},
	}
}

// CheckResult contains the result of checking a single tool.
type CheckResult struct {
	Tool    Tool
	Found   bool
	Path    string
	Version string
}

// CheckResults contains the results of checking multiple tools.
type CheckResults struct {
	Results []CheckResult
	Missing []Tool
}

// HasErrors returns true if any required tools are missing.
func (r *CheckResults) HasErrors() bool {
	for _, tool := range r.Missing {
		if tool.Required {
			return true
		}
	}
	return false
}

// Error returns an error if any required tools are missing.
func (r *CheckResults) Error() error {
	var missing []string
	for _, tool := range r.Missing {
		if tool.Required {
			missing = append(missing, fmt.Sprintf("%s (%s)", tool.Name, tool.Description))
		}
	}
	if len(missing) == 0 {
		return nil
	}
	return fmt.Errorf("missing required tools: %s", strings.Join(missing, ", "))
}

// Check looks every tool up in PATH.
func Check(runner shell.Runner, tools []Tool) *CheckResults {
	results := &CheckResults{}

	for _, tool := range tools {
		result := CheckResult{Tool: tool}

		path, err := runner.LookPath(tool.Name)
		if err == nil {
			result.Found = true
			result.Path = path
		} else {
			results.Missing = append(results.Missing, tool)
		}

		results.Results = append(results.Results, result)
	}

	return results
}

// CheckAll checks host tools and optional tools.
func CheckAll(runner shell.Runner) *CheckResults {
	host := HostTools()
	optional := OptionalTools()
	all := make([]Tool, 0, len(host)+len(optional))
	all = append(all, host...)
	all = append(all, optional...)
	return Check(runner, all)
}

// FillVersions records the version line of every found tool, best effort.
func (r *CheckResults) FillVersions(ctx context.Context, runner shell.Runner) {
	var tasks []async.Task
	for i := range r.Results {
		res := &r.Results[i]
		if !res.Found {
			continue
		}
		tasks = append(tasks, async.Task{Name: res.Tool.Name, Func: func(ctx context.Context) error {
			res.Version = toolVersion(ctx, runner, res.Tool.Name)
			return nil
		}})
	}
	_ = async.Run(ctx, tasks, versionQueries)
}

const versionQueries = 4

// toolVersion returns the first line of "<name> --version", or "" when the
// tool does not answer.
func toolVersion(ctx context.Context, runner shell.Runner, name string) string {
	res, err := runner.Run(ctx, shell.Command{Name: name, Args: []string{"--version"}})
	if err != nil {
		return ""
	}
	out := res.Stdout
	if strings.TrimSpace(out) == "" {
		out = res.Stderr
	}
	first, _, _ := strings.Cut(strings.TrimSpace(out), "\n")
	return strings.TrimSpace(first)
}
