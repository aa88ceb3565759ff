package registry

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// DefaultDir is where per-host records live.
const DefaultDir = "/var/lib/warlock"

// FileRepository keeps one file per record whose whole content is the
// install directory.
type FileRepository struct {
	Dir string
}

// NewFileRepository returns a repository rooted at dir, or DefaultDir.
func NewFileRepository(dir string) *FileRepository {
	if dir == "" {
		dir = DefaultDir
	}
	return &FileRepository{Dir: dir}
}

func (r *FileRepository) path(k Key) string {
	return filepath.Join(r.Dir, k.Name())
}

// Get implements Repository.
func (r *FileRepository) Get(_ context.Context, key Key) (Record, bool, error) {
	if err := key.Validate(); err != nil {
		return Record{}, false, err
	}
	data, err := os.ReadFile(r.path(key))
	if errors.Is(err, fs.ErrNotExist) {
		return Record{}, false, nil
	}
	if err != nil {
		return Record{}, false, fmt.Errorf("failed to read registry record %s: %w", key, err)
	}
	dir := strings.TrimSpace(string(data))
	if dir == "" {
		return Record{}, false, nil
	}
	return Record{Key: key, Dir: dir}, true, nil
}

// Put implements Repository. The record is written to a temporary file and
// renamed so readers never see a partial directory.
func (r *FileRepository) Put(_ context.Context, rec Record) error {
	if err := validateRecord(rec); err != nil {
		return err
	}
	if err := os.MkdirAll(r.Dir, 0o755); err != nil {
		return fmt.Errorf("failed to create registry directory %s: %w", r.Dir, err)
	}

	tmp, err := os.CreateTemp(r.Dir, "."+rec.Key.Name()+".*")
	if err != nil {
		return fmt.Errorf("failed to write registry record %s: %w", rec.Key, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.WriteString(rec.Dir); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write registry record %s: %w", rec.Key, err)
	}
	if err := tmp.Chmod(0o644); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write registry record %s: %w", rec.Key, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write registry record %s: %w", rec.Key, err)
	}
	if err := os.Rename(tmp.Name(), r.path(rec.Key)); err != nil {
		return fmt.Errorf("failed to commit registry record %s: %w", rec.Key, err)
	}
	return nil
}

// Delete implements Repository.
func (r *FileRepository) Delete(_ context.Context, key Key) error {
	if err := key.Validate(); err != nil {
		return err
	}
	if err := os.Remove(r.path(key)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to delete registry record %s: %w", key, err)
	}
	return nil
}

// List implements Repository.
func (r *FileRepository) List(ctx context.Context, guid string) ([]Record, error) {
	entries, err := os.ReadDir(r.Dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list registry %s: %w", r.Dir, err)
	}

	var out []Record
	for _, e := range entries {
		if e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		k, ok := ParseName(e.Name())
		if !ok || !matchesGUID(k, guid) {
			continue
		}
		rec, found, err := r.Get(ctx, k)
		if err != nil {
			return nil, err
		}
		if found {
			out = append(out, rec)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key.Name() < out[j].Key.Name() })
	return out, nil
}
