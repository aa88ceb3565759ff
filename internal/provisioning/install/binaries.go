package install

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/imamik/gsprov/internal/platform/fetch"
	"github.com/imamik/gsprov/internal/provisioning"
)

// FetchBinaries downloads and unpacks the vendor downloader into the app
// directory. An archive already on disk is reused.
type FetchBinaries struct{}

// NewFetchBinaries creates the fetch-binaries phase.
func NewFetchBinaries() *FetchBinaries { return &FetchBinaries{} }

// Name implements the Phase interface.
func (p *FetchBinaries) Name() string { return "fetch-binaries" }

// Provision implements the Phase interface.
func (p *FetchBinaries) Provision(ctx *provisioning.Context) error {
	dl := ctx.Product.Downloader
	appDir := filepath.Join(ctx.Instance.Dir, ctx.Product.AppDir)
	archive := filepath.Join(appDir, dl.Archive)

	fetched, err := ctx.Fetcher.Fetch(ctx, dl.URL, archive, fetch.SkipExisting)
	if err != nil {
		return &provisioning.ActionError{Step: "download " + dl.URL, Err: err}
	}
	if fetched {
		provisioning.LogResourceCreated(ctx.Observer, p.Name(), "archive", archive)
	} else {
		provisioning.LogResourceExists(ctx.Observer, p.Name(), "archive", archive)
	}

	name, err := ctx.Product.DownloaderBinary(ctx.Snapshot.Arch)
	if err != nil {
		return err
	}
	binary := filepath.Join(appDir, name)

	if fetched || !exists(binary) {
		files, err := fetch.ExtractZip(archive, appDir)
		if err != nil {
			return &provisioning.ActionError{Step: "extract " + archive, Err: err}
		}
		ctx.Observer.Printf("[Install] Extracted %d files from %s", len(files), filepath.Base(archive))
	}
	if !exists(binary) {
		return fmt.Errorf("%s does not contain %s; is %s supported?", dl.Archive, name, ctx.Snapshot.Arch)
	}
	if err := os.Chmod(binary, 0o755); err != nil {
		return fmt.Errorf("failed to make %s executable: %w", binary, err)
	}

	ctx.State.Downloader = binary
	return nil
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
