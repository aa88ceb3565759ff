// Package fetch downloads files atomically.
//
// A download lands in a temporary file beside its destination and is renamed
// into place only after the whole body arrived, so an interrupted transfer
// never leaves a truncated file where a later step expects a complete one.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/imamik/gsprov/internal/platform/shell"
	"github.com/imamik/gsprov/internal/util/retry"
)

// Policy decides what happens when the destination already exists.
type Policy int

const (
	// SkipExisting leaves an existing destination untouched.
	SkipExisting Policy = iota
	// Overwrite always downloads and replaces the destination.
	Overwrite
)

func (p Policy) String() string {
	if p == Overwrite {
		return "overwrite"
	}
	return "skip-existing"
}

// Backend names accepted by New.
const (
	BackendAuto = "auto"
	BackendHTTP = "http"
	BackendCurl = "curl"
	BackendWget = "wget"
)

// ErrNoTransport is returned when the requested download tool is unavailable.
var ErrNoTransport = errors.New("no download transport available")

// Transport writes the body of url to path, replacing any content.
type Transport interface {
	Name() string
	Download(ctx context.Context, url, path string) error
}

// Fetcher downloads files through one Transport.
type Fetcher struct {
	transport Transport
	retryOpts []retry.Option
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithRetry overrides the retry policy for each download.
func WithRetry(opts ...retry.Option) Option {
	return func(f *Fetcher) { f.retryOpts = append(f.retryOpts, opts...) }
}

// NewWithTransport returns a Fetcher using t.
func NewWithTransport(t Transport, opts ...Option) *Fetcher {
	f := &Fetcher{transport: t}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// New picks a transport by backend name. "auto" and "" try http, curl and
// wget in that order; the command transports require their tool in PATH.
func New(backend string, runner shell.Runner, client *http.Client, opts ...Option) (*Fetcher, error) {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Minute}
	}
	candidates := map[string]Transport{
		BackendHTTP: &HTTPTransport{Client: client},
		BackendCurl: &CommandTransport{Runner: runner, Tool: BackendCurl},
		BackendWget: &CommandTransport{Runner: runner, Tool: BackendWget},
	}

	order := []string{BackendHTTP, BackendCurl, BackendWget}
	switch b := strings.ToLower(strings.TrimSpace(backend)); b {
	case "", BackendAuto:
	case BackendHTTP, BackendCurl, BackendWget:
		order = []string{b}
	default:
		return nil, fmt.Errorf("%w: unknown backend %q", ErrNoTransport, backend)
	}

	for _, name := range order {
		t := candidates[name]
		if ct, ok := t.(*CommandTransport); ok {
			if runner == nil {
				continue
			}
			if _, err := runner.LookPath(ct.Tool); err != nil {
				continue
			}
		}
		return NewWithTransport(t, opts...), nil
	}
	return nil, fmt.Errorf("%w: tried %s", ErrNoTransport, strings.Join(order, ", "))
}

// Transport returns the name of the transport in use.
func (f *Fetcher) Transport() string {
	return f.transport.Name()
}

// Fetch downloads url to dest. It reports whether a download took place;
// under SkipExisting an existing dest returns false and no error.
func (f *Fetcher) Fetch(ctx context.Context, url, dest string, policy Policy) (bool, error) {
	if policy == SkipExisting {
		if _, err := os.Stat(dest); err == nil {
			return false, nil
		}
	}

	dir := filepath.Dir(dest)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return false, fmt.Errorf("failed to create %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(dest)+".*.part")
	if err != nil {
		return false, fmt.Errorf("failed to create temporary file: %w", err)
	}
	tmpPath := tmp.Name()
	_ = tmp.Close()
	committed := false
	defer func() {
		if !committed {
			_ = os.Remove(tmpPath)
		}
	}()

	err = retry.Do(ctx, func(ctx context.Context) error {
		return f.transport.Download(ctx, url, tmpPath)
	}, f.retryOpts...)
	if err != nil {
		return false, fmt.Errorf("failed to download %s via %s: %w", url, f.transport.Name(), err)
	}

	if err := syncFile(tmpPath); err != nil {
		return false, err
	}
	if err := os.Chmod(tmpPath, 0o644); err != nil {
		return false, fmt.Errorf("failed to set mode on %s: %w", tmpPath, err)
	}
	if err := os.Rename(tmpPath, dest); err != nil {
		return false, fmt.Errorf("failed to move download into %s: %w", dest, err)
	}
	committed = true
	return true, nil
}

func syncFile(path string) error {
	fh, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return fmt.Errorf("failed to reopen %s: %w", path, err)
	}
	defer fh.Close()
	if err := fh.Sync(); err != nil {
		return fmt.Errorf("failed to sync %s: %w", path, err)
	}
	return nil
}
