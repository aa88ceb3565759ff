package handlers

import (
	"context"
	"fmt"
	"sort"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/imamik/gsprov/internal/config"
)

// RegistryList prints the installations recorded for this host. With all
// set, records of every product are listed, otherwise only the configured
// product's.
func RegistryList(ctx context.Context, g Globals, all bool) error {
	product, settings, err := load(g)
	if err != nil {
		return err
	}
	var hostname string
	if settings.RegistryBackend == config.RegistryS3 {
		snap, err := detectHost(ctx, newRunner(), settings)
		if err != nil {
			return fmt.Errorf("failed to probe host: %w", err)
		}
		hostname = snap.Hostname
	}
	repo, err := newRegistry(ctx, settings, hostname)
	if err != nil {
		return err
	}
	guid := product.GUID
	if all {
		guid = ""
	}
	records, err := repo.List(ctx, guid)
	if err != nil {
		return fmt.Errorf("failed to list installations: %w", err)
	}
	if len(records) == 0 {
		fmt.Fprintln(stdout, "No installations recorded.")
		return nil
	}
	sort.Slice(records, func(i, j int) bool { return records[i].Key.Name() < records[j].Key.Name() })

	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("PRODUCT", "INSTANCE", "DIRECTORY")
	for _, rec := range records {
		inst := rec.Key.Instance
		if inst == "" {
			inst = "-"
		}
		t.Row(rec.Key.GUID, inst, rec.Dir)
	}
	fmt.Fprintln(stdout, t.Render())
	return nil
}
