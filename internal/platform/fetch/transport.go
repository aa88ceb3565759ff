package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/imamik/gsprov/internal/platform/shell"
	"github.com/imamik/gsprov/internal/util/retry"
)

// StatusError is returned for a non-2xx response.
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("GET %s returned HTTP %d", e.URL, e.StatusCode)
}

// HTTPTransport downloads with net/http.
type HTTPTransport struct {
	Client    *http.Client
	UserAgent string
}

// Name implements Transport.
func (t *HTTPTransport) Name() string { return BackendHTTP }

// Download implements Transport. Client errors (4xx) are permanent; server
// errors and broken connections are retried by the Fetcher.
func (t *HTTPTransport) Download(ctx context.Context, url, path string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return retry.Permanent(fmt.Errorf("invalid url %q: %w", url, err))
	}
	if t.UserAgent != "" {
		req.Header.Set("User-Agent", t.UserAgent)
	}

	resp, err := t.Client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		serr := &StatusError{URL: url, StatusCode: resp.StatusCode}
		if resp.StatusCode >= 400 && resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
			return retry.Permanent(serr)
		}
		return serr
	}

	out, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return retry.Permanent(err)
	}
	n, err := io.Copy(out, resp.Body)
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return fmt.Errorf("transfer interrupted after %d bytes: %w", n, err)
	}
	if resp.ContentLength >= 0 && n != resp.ContentLength {
		return fmt.Errorf("short body: got %d of %d bytes", n, resp.ContentLength)
	}
	return nil
}

// CommandTransport shells out to curl or wget.
type CommandTransport struct {
	Runner shell.Runner
	Tool   string
}

// Name implements Transport.
func (t *CommandTransport) Name() string { return t.Tool }

// Download implements Transport.
func (t *CommandTransport) Download(ctx context.Context, url, path string) error {
	var args []string
	switch t.Tool {
	case BackendCurl:
		args = []string{"-fsSL", "-o", path, url}
	case BackendWget:
		args = []string{"-q", "-O", path, url}
	default:
		return retry.Permanent(fmt.Errorf("%w: unknown tool %q", ErrNoTransport, t.Tool))
	}
	if _, err := t.Runner.Run(ctx, shell.Command{Name: t.Tool, Args: args}); err != nil {
		return err
	}
	return nil
}
