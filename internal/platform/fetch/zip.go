package fetch

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// ExtractZip unpacks archive into destDir and returns the extracted file
// paths. Entries escaping destDir are rejected. File modes from the archive
// are kept so bundled executables stay executable.
func ExtractZip(archive, destDir string) ([]string, error) {
	r, err := zip.OpenReader(archive)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", archive, err)
	}
	defer r.Close()

	root, err := filepath.Abs(destDir)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", root, err)
	}

	var files []string
	for _, f := range r.File {
		target := filepath.Join(root, filepath.FromSlash(f.Name))
		if target != root && !strings.HasPrefix(target, root+string(os.PathSeparator)) {
			return files, fmt.Errorf("archive entry %q escapes %s", f.Name, destDir)
		}

		if f.FileInfo().IsDir() {
			if err := os.MkdirAll(target, 0o755); err != nil {
				return files, err
			}
			continue
		}
		if err := extractFile(f, target); err != nil {
			return files, err
		}
		files = append(files, target)
	}
	return files, nil
}

func extractFile(f *zip.File, target string) error {
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return err
	}
	mode := f.Mode().Perm()
	if mode == 0 {
		mode = 0o644
	}

	src, err := f.Open()
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", f.Name, err)
	}
	defer src.Close()

	dst, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, mode)
	if err != nil {
		return err
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		return fmt.Errorf("failed to extract %s: %w", f.Name, err)
	}
	if err := dst.Close(); err != nil {
		return err
	}
	return os.Chmod(target, mode)
}
