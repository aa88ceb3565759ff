// Package testing provides test utilities, builders, and fixtures for the
// provisioning phases.
//
// This package centralizes common testing patterns to avoid duplication across test files:
//   - ProductBuilder: Fluent builder for product definitions
//   - HostFixture: a fake host (commands, registry, unit directory, downloads)
//     that hands out fully wired provisioning contexts
//   - FakeFetcher, MockAccounts: shared fakes for downloads and user creation
//
// Usage:
//
//	host := testing.NewHostFixture(t)
//	ctx, err := host.Context(host.InstallOptions("abc12345"))
//	err = provisioning.RunPhases(ctx, install.Phases())
package testing
