// Package registry records where each product instance is installed.
//
// A record maps (product GUID, instance id) to an absolute install directory.
// Its presence means "installed"; its absence means "not installed for this
// instance". Storage is behind Repository so the per-host file layout can be
// swapped for a shared bucket without touching the resolver.
package registry

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Suffix ends every record name.
const Suffix = ".app"

// ErrInvalidKey is wrapped when a key cannot be turned into a record name.
var ErrInvalidKey = errors.New("invalid registry key")

// Key identifies one installation.
type Key struct {
	GUID     string
	Instance string
}

// Name is the record name: "<guid>.app" or "<guid>@<instance>.app".
func (k Key) Name() string {
	if k.Instance == "" {
		return k.GUID + Suffix
	}
	return k.GUID + "@" + k.Instance + Suffix
}

func (k Key) String() string {
	return k.Name()
}

// Validate rejects keys that would escape the registry or be ambiguous.
func (k Key) Validate() error {
	if k.GUID == "" {
		return fmt.Errorf("%w: product GUID is empty", ErrInvalidKey)
	}
	if strings.ContainsAny(k.GUID, "/@\\") || k.GUID == "." || k.GUID == ".." {
		return fmt.Errorf("%w: product GUID %q", ErrInvalidKey, k.GUID)
	}
	if strings.ContainsAny(k.Instance, "/\\") || k.Instance == ".." {
		return fmt.Errorf("%w: instance id %q", ErrInvalidKey, k.Instance)
	}
	return nil
}

// ParseName is the inverse of Key.Name.
func ParseName(name string) (Key, bool) {
	base, ok := strings.CutSuffix(name, Suffix)
	if !ok || base == "" {
		return Key{}, false
	}
	guid, instance, _ := strings.Cut(base, "@")
	k := Key{GUID: guid, Instance: instance}
	if k.Validate() != nil {
		return Key{}, false
	}
	return k, true
}

// Record is one installation.
type Record struct {
	Key Key
	Dir string
}

// Repository stores records.
type Repository interface {
	// Get returns the record for key and whether it exists.
	Get(ctx context.Context, key Key) (Record, bool, error)
	// Put creates or replaces a record.
	Put(ctx context.Context, rec Record) error
	// Delete removes a record; a missing record is not an error.
	Delete(ctx context.Context, key Key) error
	// List returns every record of guid, or of every product when guid is
	// empty.
	List(ctx context.Context, guid string) ([]Record, error)
}

func validateRecord(rec Record) error {
	if err := rec.Key.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(rec.Dir) == "" {
		return fmt.Errorf("%w: empty directory for %s", ErrInvalidKey, rec.Key)
	}
	return nil
}

func matchesGUID(k Key, guid string) bool {
	return guid == "" || k.GUID == guid
}
