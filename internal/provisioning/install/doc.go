// Package install provisions one server installation.
//
// Phases run in a fixed order and each re-checks what already exists, so an
// interrupted install is recovered by running it again:
//
//	create-user → install-deps → firewall-bootstrap → fetch-binaries →
//	install-manager → set-branch-config → register-self-installer →
//	apply-managed-update → open-game-port → generate-units →
//	register-instance → postinstall
package install

import "github.com/imamik/gsprov/internal/provisioning"

// Phases returns the install sequence.
func Phases() []provisioning.Phase {
	return []provisioning.Phase{
		NewCreateUser(),
		NewInstallDeps(),
		NewFirewallBootstrap(),
		NewFetchBinaries(),
		NewInstallManager(),
		NewSetBranchConfig(),
		NewRegisterSelfInstaller(),
		NewApplyManagedUpdate(),
		NewOpenGamePort(),
		NewGenerateUnits(),
		NewRegisterInstance(),
		NewPostInstall(),
	}
}
