package registry

import (
	"context"
	"errors"
	"fmt"
	"path"
	"sort"
	"strings"

	"github.com/imamik/gsprov/internal/platform/s3"
)

// ObjectStore is the part of the s3 client the registry uses.
type ObjectStore interface {
	Put(ctx context.Context, key string, data []byte) error
	Get(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
	List(ctx context.Context, prefix string) ([]string, error)
}

// S3Repository keeps records as objects under Prefix/Host, named like the
// files of FileRepository. A bucket may be shared by several hosts; each
// repository only sees the records of its own host. Get treats
// s3.ErrNotFound as a missing record.
type S3Repository struct {
	Store  ObjectStore
	Prefix string
	Host   string
}

// ErrInvalidHost is returned for a host name that cannot scope object keys.
var ErrInvalidHost = errors.New("invalid registry host")

// NewS3Repository returns a repository storing the records of host under
// prefix.
func NewS3Repository(store ObjectStore, prefix, host string) (*S3Repository, error) {
	host = strings.TrimSpace(host)
	if err := ValidateHost(host); err != nil {
		return nil, err
	}
	return &S3Repository{Store: store, Prefix: strings.Trim(prefix, "/"), Host: host}, nil
}

// ValidateHost checks that host can be used as one path segment of an
// object key.
func ValidateHost(host string) error {
	if host == "" || host == "." || host == ".." || strings.ContainsAny(host, "/\\ ") {
		return fmt.Errorf("%w %q", ErrInvalidHost, host)
	}
	return nil
}

// keyPrefix is the common prefix of every object of this host.
func (r *S3Repository) keyPrefix() string {
	return path.Join(r.Prefix, r.Host) + "/"
}

func (r *S3Repository) objectKey(k Key) string {
	return r.keyPrefix() + k.Name()
}

// Get implements Repository.
func (r *S3Repository) Get(ctx context.Context, key Key) (Record, bool, error) {
	if err := key.Validate(); err != nil {
		return Record{}, false, err
	}
	data, err := r.Store.Get(ctx, r.objectKey(key))
	if errors.Is(err, s3.ErrNotFound) {
		return Record{}, false, nil
	}
	if err != nil {
		return Record{}, false, err
	}
	dir := strings.TrimSpace(string(data))
	if dir == "" {
		return Record{}, false, nil
	}
	return Record{Key: key, Dir: dir}, true, nil
}

// Put implements Repository.
func (r *S3Repository) Put(ctx context.Context, rec Record) error {
	if err := validateRecord(rec); err != nil {
		return err
	}
	return r.Store.Put(ctx, r.objectKey(rec.Key), []byte(rec.Dir))
}

// Delete implements Repository.
func (r *S3Repository) Delete(ctx context.Context, key Key) error {
	if err := key.Validate(); err != nil {
		return err
	}
	return r.Store.Delete(ctx, r.objectKey(key))
}

// List implements Repository.
func (r *S3Repository) List(ctx context.Context, guid string) ([]Record, error) {
	prefix := r.keyPrefix()
	keys, err := r.Store.List(ctx, prefix+guid)
	if err != nil {
		return nil, err
	}

	var out []Record
	for _, objKey := range keys {
		k, ok := ParseName(strings.TrimPrefix(objKey, prefix))
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
