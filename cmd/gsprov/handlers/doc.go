// Package handlers implements the business logic for CLI commands.
//
// Each handler loads the product definition and host settings, builds the
// host-facing dependencies and delegates to the provisioning packages.
// Constructors are package variables so tests can swap in fakes.
package handlers
