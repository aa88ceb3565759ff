package host

import "fmt"

// FirewallBackend identifies the host firewall subsystem.
type FirewallBackend int

const (
	// FirewallNone means no firewall tooling was found.
	FirewallNone FirewallBackend = iota
	FirewallUFW
	FirewallFirewalld
	FirewallIPTables
	// FirewallUnsupported means a firewall exists that no backend can drive.
	FirewallUnsupported
)

func (b FirewallBackend) String() string {
	switch b {
	case FirewallNone:
		return "none"
	case FirewallUFW:
		return "ufw"
	case FirewallFirewalld:
		return "firewalld"
	case FirewallIPTables:
		return "iptables"
	default:
		return "unsupported"
	}
}

// PackageBackend identifies the host package manager.
type PackageBackend int

const (
	PackageUnsupported PackageBackend = iota
	PackageApt
	PackageDnf
	PackageYum
	PackagePacman
	PackageZypper
	PackagePkg
)

func (b PackageBackend) String() string {
	switch b {
	case PackageApt:
		return "apt"
	case PackageDnf:
		return "dnf"
	case PackageYum:
		return "yum"
	case PackagePacman:
		return "pacman"
	case PackageZypper:
		return "zypper"
	case PackagePkg:
		return "pkg"
	default:
		return "unsupported"
	}
}

// IssueURL is where operators are asked to report unrecognized hosts.
const IssueURL = "https://github.com/imamik/gsprov/issues"

// UnsupportedError reports a host capability no backend recognizes. It is
// only fatal when the current step actually needs the capability.
type UnsupportedError struct {
	Capability string // "package manager", "operating system", "firewall"
	Value      string
}

func (e *UnsupportedError) Error() string {
	return fmt.Sprintf("unsupported %s %q; please open an issue at %s", e.Capability, e.Value, IssueURL)
}
