package fetch

import (
	"archive/zip"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imamik/gsprov/internal/platform/shell"
	"github.com/imamik/gsprov/internal/util/retry"
)

func fastRetry(attempts int) Option {
	return WithRetry(retry.Attempts(attempts), retry.Delay(time.Millisecond))
}

func newHTTPFetcher(attempts int) *Fetcher {
	return NewWithTransport(&HTTPTransport{Client: http.DefaultClient}, fastRetry(attempts))
}

func TestFetch_Downloads(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("#!/usr/bin/env python3\n"))
	}))
	defer srv.Close()

	dest := filepath.Join(t.TempDir(), "sub", "manage.py")
	fetched, err := newHTTPFetcher(1).Fetch(context.Background(), srv.URL, dest, Overwrite)
	require.NoError(t, err)
	assert.True(t, fetched)

	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, "#!/usr/bin/env python3\n", string(data))

	entries, err := os.ReadDir(filepath.Dir(dest))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temporary file left behind")
}

func TestFetch_SkipExisting(t *testing.T) {
	t.Parallel()
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		_, _ = w.Write([]byte("new"))
	}))
	defer srv.Close()

	dest := filepath.Join(t.TempDir(), "downloader.zip")
	require.NoError(t, os.WriteFile(dest, []byte("old"), 0o644))

	f := newHTTPFetcher(1)
	fetched, err := f.Fetch(context.Background(), srv.URL, dest, SkipExisting)
	require.NoError(t, err)
	assert.False(t, fetched)
	assert.Zero(t, hits.Load())

	fetched, err = f.Fetch(context.Background(), srv.URL, dest, Overwrite)
	require.NoError(t, err)
	assert.True(t, fetched)
	data, _ := os.ReadFile(dest)
	assert.Equal(t, "new", string(data))
}

func TestFetch_InterruptedTransferLeavesDestinationUntouched(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Length", "1000")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(strings.Repeat("x", 10)))
	}))
	defer srv.Close()

	dir := t.TempDir()
	dest := filepath.Join(dir, "manage.py")
	require.NoError(t, os.WriteFile(dest, []byte("previous"), 0o755))

	fetched, err := newHTTPFetcher(2).Fetch(context.Background(), srv.URL, dest, Overwrite)
	require.Error(t, err)
	assert.False(t, fetched)

	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, "previous", string(data))

	entries, _ := os.ReadDir(dir)
	assert.Len(t, entries, 1)
}

func TestFetch_StatusHandling(t *testing.T) {
	t.Parallel()

	t.Run("404 is not retried", func(t *testing.T) {
		t.Parallel()
		var hits atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			hits.Add(1)
			w.WriteHeader(http.StatusNotFound)
		}))
		defer srv.Close()

		dest := filepath.Join(t.TempDir(), "f")
		_, err := newHTTPFetcher(3).Fetch(context.Background(), srv.URL, dest, Overwrite)
		require.Error(t, err)
		var serr *StatusError
		require.ErrorAs(t, err, &serr)
		assert.Equal(t, http.StatusNotFound, serr.StatusCode)
		assert.Equal(t, int32(1), hits.Load())
		assert.NoFileExists(t, dest)
	})

	t.Run("503 is retried", func(t *testing.T) {
		t.Parallel()
		var hits atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			if hits.Add(1) < 3 {
				w.WriteHeader(http.StatusServiceUnavailable)
				return
			}
			_, _ = w.Write([]byte("ok"))
		}))
		defer srv.Close()

		dest := filepath.Join(t.TempDir(), "f")
		fetched, err := newHTTPFetcher(3).Fetch(context.Background(), srv.URL, dest, Overwrite)
		require.NoError(t, err)
		assert.True(t, fetched)
		assert.Equal(t, int32(3), hits.Load())
	})
}

func TestNew_SelectsTransport(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		backend string
		path    []string
		want    string
		wantErr bool
	}{
		{name: "auto prefers http", backend: "auto", want: "http"},
		{name: "empty is auto", backend: "", want: "http"},
		{name: "curl in path", backend: "curl", path: []string{"curl"}, want: "curl"},
		{name: "wget in path", backend: "WGET", path: []string{"wget"}, want: "wget"},
		{name: "curl missing", backend: "curl", wantErr: true},
		{name: "unknown", backend: "ftp", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			f, err := New(tt.backend, shell.NewFake(tt.path...), nil)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrNoTransport)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, f.Transport())
		})
	}
}

func TestCommandTransport(t *testing.T) {
	t.Parallel()
	for _, tool := range []string{BackendCurl, BackendWget} {
		t.Run(tool, func(t *testing.T) {
			t.Parallel()
			runner := shell.NewFake(tool)
			f, err := New(tool, runner, nil, fastRetry(1))
			require.NoError(t, err)

			dest := filepath.Join(t.TempDir(), "manage.py")
			fetched, err := f.Fetch(context.Background(), "https://example.com/manage.py", dest, Overwrite)
			require.NoError(t, err)
			assert.True(t, fetched)
			assert.FileExists(t, dest)

			require.Len(t, runner.Commands, 1)
			cmd := runner.Commands[0]
			assert.Equal(t, tool, cmd.Name)
			assert.Equal(t, "https://example.com/manage.py", cmd.Args[len(cmd.Args)-1])
		})
	}
}

func TestCommandTransport_FailureKeepsDestination(t *testing.T) {
	t.Parallel()
	runner := shell.NewFake("curl").Fail("curl", 22, "The requested URL returned error: 500")
	f, err := New("curl", runner, nil, fastRetry(2))
	require.NoError(t, err)

	dest := filepath.Join(t.TempDir(), "manage.py")
	_, err = f.Fetch(context.Background(), "https://example.com/manage.py", dest, Overwrite)
	require.Error(t, err)
	assert.NoFileExists(t, dest)
	assert.Len(t, runner.Commands, 2)
}

func writeZip(t *testing.T, path string, entries map[string]os.FileMode) {
	t.Helper()
	fh, err := os.Create(path)
	require.NoError(t, err)
	zw := zip.NewWriter(fh)
	for name, mode := range entries {
		hdr := &zip.FileHeader{Name: name, Method: zip.Deflate}
		hdr.SetMode(mode)
		w, err := zw.CreateHeader(hdr)
		require.NoError(t, err)
		_, err = w.Write([]byte("content of " + name))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	require.NoError(t, fh.Close())
}

func TestExtractZip(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	archive := filepath.Join(dir, "downloader.zip")
	writeZip(t, archive, map[string]os.FileMode{
		"hytale-downloader-linux-amd64": 0o755,
		"docs/QUICKSTART.md":            0o644,
	})

	out := filepath.Join(dir, "AppFiles")
	files, err := ExtractZip(archive, out)
	require.NoError(t, err)
	assert.Len(t, files, 2)

	info, err := os.Stat(filepath.Join(out, "hytale-downloader-linux-amd64"))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o755), info.Mode().Perm())

	data, err := os.ReadFile(filepath.Join(out, "docs", "QUICKSTART.md"))
	require.NoError(t, err)
	assert.Equal(t, "content of docs/QUICKSTART.md", string(data))
}

func TestExtractZip_RejectsTraversal(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	archive := filepath.Join(dir, "evil.zip")
	writeZip(t, archive, map[string]os.FileMode{"../../etc/passwd": 0o644})

	_, err := ExtractZip(archive, filepath.Join(dir, "out"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "escapes")
	assert.NoFileExists(t, filepath.Join(dir, "etc", "passwd"))
}
