// Package config loads the product definition and the host settings.
//
// A [Product] describes one game server: its service name, install layout,
// packages per package manager, download locations and the management
// script. The Hytale dedicated server is embedded as the default product.
// [Settings] are per-host knobs (registry backend, unit directory, download
// backend) read from an optional YAML file and GSPROV_* environment
// variables.
package config
