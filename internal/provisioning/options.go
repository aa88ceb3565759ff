package provisioning

import "strings"

// Operations.
const (
	OperationInstall   = "install"
	OperationUninstall = "uninstall"
)

// Options are the operator's choices for one run, taken from the command
// line.
type Options struct {
	Uninstall      bool
	SkipFirewall   bool
	NonInteractive bool

	// OverrideDir replaces the default install directory.
	OverrideDir string
	// Branch is the game release branch, e.g. "latest".
	Branch string
	// ManagerBranch is the source branch of the management script.
	ManagerBranch string

	InstanceID   string
	InstanceName string

	// Executable is the running installer, copied into the install
	// directory so the operator can rerun it from there.
	Executable string
}

// Operation is the run's operation name used in logs and metrics.
func (o Options) Operation() string {
	if o.Uninstall {
		return OperationUninstall
	}
	return OperationInstall
}

// StripQuotes removes one pair of surrounding single or double quotes, which
// wrapper scripts tend to leave on path arguments.
func StripQuotes(s string) string {
	s = strings.TrimSpace(s)
	if len(s) >= 2 {
		if (s[0] == '"' && s[len(s)-1] == '"') || (s[0] == '\'' && s[len(s)-1] == '\'') {
			return s[1 : len(s)-1]
		}
	}
	return s
}
