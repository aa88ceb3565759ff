package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeSettings(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "settings.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadSettings_File(t *testing.T) {
	path := writeSettings(t, `
registry_backend: s3
unit_dir: /run/systemd/system
fetch_backend: curl
s3:
  endpoint: https://minio.internal:9000
  bucket: fleet
`)
	s, err := LoadSettings(path)
	require.NoError(t, err)
	assert.Equal(t, RegistryS3, s.RegistryBackend)
	assert.Equal(t, "/run/systemd/system", s.UnitDir)
	assert.Equal(t, "curl", s.FetchBackend)
	assert.Equal(t, "fleet", s.S3.Bucket)
	assert.Equal(t, "gsprov", s.S3.Prefix)
	assert.Equal(t, "/var/lib/warlock", s.RegistryDir)
}

func TestLoadSettings_EnvOverrides(t *testing.T) {
	t.Setenv("GSPROV_REGISTRY_DIR", "/tmp/registry")
	t.Setenv("GSPROV_S3_REGION", "eu-central-1")
	path := writeSettings(t, "registry_dir: /from/file\n")

	s, err := LoadSettings(path)
	require.NoError(t, err)
	assert.Equal(t, "/tmp/registry", s.RegistryDir)
	assert.Equal(t, "eu-central-1", s.S3.Region)
}

func TestLoadSettings_MissingExplicitFile(t *testing.T) {
	_, err := LoadSettings(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestSettings_Validate(t *testing.T) {
	t.Parallel()
	s := DefaultSettings()
	require.NoError(t, s.Validate())

	s.RegistryBackend = RegistryS3
	assert.ErrorContains(t, s.Validate(), "s3.bucket is required")

	s = DefaultSettings()
	s.RegistryBackend = "etcd"
	assert.ErrorContains(t, s.Validate(), "registry_backend")

	s = DefaultSettings()
	s.FetchBackend = "ftp"
	assert.ErrorContains(t, s.Validate(), "fetch_backend")
}
