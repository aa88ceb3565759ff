// Package uninstall removes one server installation.
//
// Every step treats an absent resource as already removed, so uninstalling
// twice, or uninstalling something never installed, succeeds:
//
//	backup → stop-disable-units → remove-units → remove-files → unregister-instance
//
// The service account and the firewall rule stay; other instances of the
// product share both.
package uninstall

import "github.com/imamik/gsprov/internal/provisioning"

// Phases returns the uninstall sequence.
func Phases() []provisioning.Phase {
	return []provisioning.Phase{
		NewBackup(),
		NewStopDisableUnits(),
		NewRemoveUnits(),
		NewRemoveFiles(),
		NewUnregisterInstance(),
	}
}
