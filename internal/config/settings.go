package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/spf13/viper"
)

// DefaultSettingsFile is read when present.
const DefaultSettingsFile = "/etc/gsprov/settings.yaml"

// EnvPrefix prefixes environment overrides, e.g. GSPROV_REGISTRY_DIR.
const EnvPrefix = "GSPROV"

// Registry backends.
const (
	RegistryFile = "file"
	RegistryS3   = "s3"
)

// Settings are host-level knobs that rarely change between runs.
type Settings struct {
	RegistryBackend string     `mapstructure:"registry_backend"`
	RegistryDir     string     `mapstructure:"registry_dir"`
	UnitDir         string     `mapstructure:"unit_dir"`
	OSReleasePath   string     `mapstructure:"os_release_path"`
	FetchBackend    string     `mapstructure:"fetch_backend"`
	MetricsTextfile string     `mapstructure:"metrics_textfile"`
	S3              S3Settings `mapstructure:"s3"`
}

// S3Settings configure the shared registry bucket.
type S3Settings struct {
	Endpoint  string `mapstructure:"endpoint"`
	Region    string `mapstructure:"region"`
	Bucket    string `mapstructure:"bucket"`
	Prefix    string `mapstructure:"prefix"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	PathStyle bool   `mapstructure:"path_style"`
}

// DefaultSettings returns the values used when nothing is configured.
func DefaultSettings() Settings {
	return Settings{
		RegistryBackend: RegistryFile,
		RegistryDir:     "/var/lib/warlock",
		UnitDir:         "/etc/systemd/system",
		OSReleasePath:   "/etc/os-release",
		FetchBackend:    "auto",
		S3:              S3Settings{Region: "us-east-1", Prefix: "gsprov", PathStyle: true},
	}
}

// LoadSettings reads path (or DefaultSettingsFile when empty) and GSPROV_*
// environment variables. A missing default file is not an error; a missing
// explicit file is.
func LoadSettings(path string) (Settings, error) {
	v := viper.New()
	setDefaults(v, DefaultSettings())

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	explicit := path != ""
	if !explicit {
		path = DefaultSettingsFile
	}
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if explicit || !(errors.As(err, &notFound) || isNotExist(err)) {
			return Settings{}, fmt.Errorf("failed to read settings %s: %w", path, err)
		}
	}

	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return Settings{}, fmt.Errorf("failed to decode settings: %w", err)
	}
	if err := s.Validate(); err != nil {
		return Settings{}, err
	}
	return s, nil
}

// Validate checks backend names and required S3 fields.
func (s Settings) Validate() error {
	switch s.RegistryBackend {
	case RegistryFile:
	case RegistryS3:
		if s.S3.Bucket == "" {
			return errors.New("s3.bucket is required when registry_backend is s3")
		}
	default:
		return fmt.Errorf("registry_backend must be %q or %q, got %q", RegistryFile, RegistryS3, s.RegistryBackend)
	}
	switch s.FetchBackend {
	case "auto", "http", "curl", "wget":
	default:
		return fmt.Errorf("fetch_backend must be auto, http, curl or wget, got %q", s.FetchBackend)
	}
	return nil
}

// setDefaults registers every key so AutomaticEnv can override it.
func setDefaults(v *viper.Viper, d Settings) {
	v.SetDefault("registry_backend", d.RegistryBackend)
	v.SetDefault("registry_dir", d.RegistryDir)
	v.SetDefault("unit_dir", d.UnitDir)
	v.SetDefault("os_release_path", d.OSReleasePath)
	v.SetDefault("fetch_backend", d.FetchBackend)
	v.SetDefault("metrics_textfile", d.MetricsTextfile)
	v.SetDefault("s3.endpoint", d.S3.Endpoint)
	v.SetDefault("s3.region", d.S3.Region)
	v.SetDefault("s3.bucket", d.S3.Bucket)
	v.SetDefault("s3.prefix", d.S3.Prefix)
	v.SetDefault("s3.access_key", d.S3.AccessKey)
	v.SetDefault("s3.secret_key", d.S3.SecretKey)
	v.SetDefault("s3.path_style", d.S3.PathStyle)
}

func isNotExist(err error) bool {
	return errors.Is(err, fs.ErrNotExist)
}
