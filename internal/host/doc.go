// Package host detects the capabilities of the machine being provisioned.
//
// Detection happens once per run and produces an immutable Snapshot: the OS
// identity from os-release, its normalized major version, and which firewall
// and package-manager backends are present. Backends are closed enums with an
// explicit unsupported member so callers have to handle hosts nobody wrote a
// backend for.
package host
