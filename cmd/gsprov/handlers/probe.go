package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/imamik/gsprov/internal/host"
	"github.com/imamik/gsprov/internal/ui/style"
	"github.com/imamik/gsprov/internal/util/prerequisites"
)

// ProbeReport is the JSON form of a host snapshot.
type ProbeReport struct {
	OS                string   `json:"os"`
	OSLike            []string `json:"os_like,omitempty"`
	Version           int      `json:"version"`
	Arch              string   `json:"arch"`
	Hostname          string   `json:"hostname"`
	PackageManager    string   `json:"package_manager"`
	AvailableFirewall string   `json:"available_firewall"`
	ActiveFirewall    string   `json:"active_firewall"`
	Tools             []Tool   `json:"tools"`
}

// Tool is one checked host executable.
type Tool struct {
	Name     string `json:"name"`
	Required bool   `json:"required"`
	Path     string `json:"path,omitempty"`
	Version  string `json:"version,omitempty"`
}

func newProbeReport(s host.Snapshot, tools *prerequisites.CheckResults) ProbeReport {
	report := ProbeReport{
		OS:                s.OS.ID,
		OSLike:            s.OS.Like,
		Version:           s.Version,
		Arch:              s.Arch,
		Hostname:          s.Hostname,
		PackageManager:    s.PackageManager.String(),
		AvailableFirewall: s.AvailableFirewall.String(),
		ActiveFirewall:    s.ActiveFirewall.String(),
	}
	for _, r := range tools.Results {
		report.Tools = append(report.Tools, Tool{Name: r.Tool.Name, Required: r.Tool.Required, Path: r.Path, Version: r.Version})
	}
	return report
}

// Probe prints the host capability snapshot.
func Probe(ctx context.Context, g Globals, asJSON bool) error {
	settings, err := loadSettings(g.SettingsPath)
	if err != nil {
		return err
	}
	runner := newRunner()
	snap, err := detectHost(ctx, runner, settings)
	if err != nil {
		return fmt.Errorf("failed to probe host: %w", err)
	}
	tools := prerequisites.CheckAll(runner)
	tools.FillVersions(ctx, runner)
	report := newProbeReport(snap, tools)

	if asJSON {
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	}

	osLine := fmt.Sprintf("%s %d", report.OS, report.Version)
	if len(report.OSLike) > 0 {
		osLine += fmt.Sprintf(" (like %s)", strings.Join(report.OSLike, ", "))
	}
	fmt.Fprintln(stdout, strings.Join([]string{
		style.Title.Render("Host"),
		style.KV("OS", osLine),
		style.KV("Architecture", report.Arch),
		style.KV("Hostname", report.Hostname),
		style.KV("Package manager", report.PackageManager),
		style.KV("Firewall", report.AvailableFirewall),
		style.KV("Active firewall", report.ActiveFirewall),
	}, "\n"))

	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("TOOL", "PATH", "VERSION")
	for _, tool := range report.Tools {
		path := tool.Path
		switch {
		case path == "" && tool.Required:
			path = style.Error.Render("missing (required)")
		case path == "":
			path = "-"
		}
		t.Row(tool.Name, path, tool.Version)
	}
	fmt.Fprintln(stdout, t.Render())
	return tools.Error()
}
