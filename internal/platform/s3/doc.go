// Package s3 stores small objects in one bucket of an S3-compatible service.
//
// It backs the shared installation registry: operators running many hosts
// can keep every install record in one bucket instead of per-host files.
// Endpoints other than AWS (MinIO, Hetzner, Ceph) work with path-style
// addressing.
package s3
