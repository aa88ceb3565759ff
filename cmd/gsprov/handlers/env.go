package handlers

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/go-logr/logr"

	"github.com/imamik/gsprov/internal/config"
	"github.com/imamik/gsprov/internal/host"
	"github.com/imamik/gsprov/internal/logging"
	"github.com/imamik/gsprov/internal/platform/account"
	"github.com/imamik/gsprov/internal/platform/fetch"
	"github.com/imamik/gsprov/internal/platform/s3"
	"github.com/imamik/gsprov/internal/platform/shell"
	"github.com/imamik/gsprov/internal/provisioning"
	"github.com/imamik/gsprov/internal/registry"
	"github.com/imamik/gsprov/internal/ui/prompt"
	"github.com/imamik/gsprov/internal/util/retry"
)

// Globals are the flags shared by every command.
type Globals struct {
	ProductPath  string
	SettingsPath string
	Debug        bool
}

// Factory function variables - can be replaced in tests.
var (
	loadProduct  = config.LoadProduct
	loadSettings = config.LoadSettings

	newRunner = func() shell.Runner { return shell.NewExec() }

	detectHost = func(ctx context.Context, runner shell.Runner, settings config.Settings) (host.Snapshot, error) {
		return host.NewProbe(runner, settings.OSReleasePath).Detect(ctx)
	}

	newRegistry = openRegistry

	newFetcher = func(backend string, runner shell.Runner, log logr.Logger) (provisioning.Fetcher, error) {
		return fetch.New(backend, runner, &http.Client{Timeout: 30 * time.Minute},
			fetch.WithRetry(retry.OnRetry(func(attempt int, err error) {
				log.Info("download failed, retrying", "attempt", attempt, "error", err.Error())
			})))
	}

	newAccounts = func(runner shell.Runner) provisioning.Accounts { return account.NewManager(runner) }

	newPrompter = func(nonInteractive bool) prompt.Prompter { return prompt.NewTerminal(nonInteractive) }

	isRoot     = host.IsRoot
	executable = os.Executable

	// stdout and stderr receive command output and logs.
	stdout io.Writer = os.Stdout
	stderr io.Writer = os.Stderr
)

// newLogger builds the process logger on stderr.
func newLogger(g Globals) (logr.Logger, func()) {
	return logging.New(logging.Options{Debug: g.Debug, Output: stderr})
}

// load reads the product definition and settings.
func load(g Globals) (*config.Product, config.Settings, error) {
	product, err := loadProduct(g.ProductPath)
	if err != nil {
		return nil, config.Settings{}, err
	}
	settings, err := loadSettings(g.SettingsPath)
	if err != nil {
		return nil, config.Settings{}, err
	}
	return product, settings, nil
}

// openRegistry returns the repository selected by settings. A shared S3
// bucket is scoped to hostname so that hosts never see each other's records.
func openRegistry(ctx context.Context, settings config.Settings, hostname string) (registry.Repository, error) {
	switch settings.RegistryBackend {
	case config.RegistryS3:
		if err := registry.ValidateHost(hostname); err != nil {
			return nil, fmt.Errorf("failed to open S3 registry: %w", err)
		}
		client, err := s3.NewClient(ctx, s3.Options{
			Endpoint:  settings.S3.Endpoint,
			Region:    settings.S3.Region,
			Bucket:    settings.S3.Bucket,
			AccessKey: settings.S3.AccessKey,
			SecretKey: settings.S3.SecretKey,
			PathStyle: settings.S3.PathStyle,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to open S3 registry: %w", err)
		}
		repo, err := registry.NewS3Repository(client, settings.S3.Prefix, hostname)
		if err != nil {
			return nil, err
		}
		return repo, nil
	case config.RegistryFile, "":
		return registry.NewFileRepository(settings.RegistryDir), nil
	}
	return nil, fmt.Errorf("unknown registry backend %q", settings.RegistryBackend)
}
