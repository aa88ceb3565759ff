// Package provisioning runs the install and uninstall sequences for one
// server installation.
//
// # Subpackages
//
//   - install/: account, packages, binaries, management script, units, registration
//   - uninstall/: backup, unit teardown, file removal, unregistration
//
// # Core Types
//
// Context carries product definition, settings, operator options, the host
// snapshot, the resolved instance and every host-facing dependency.
// Phase defines a step with Name() and Provision() methods.
// Execute checks the guards and then runs the phases in order; the first
// failure stops the run and nothing already done is rolled back.
package provisioning
