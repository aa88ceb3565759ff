package testing

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/stretchr/testify/mock"

	"github.com/imamik/gsprov/internal/platform/account"
	"github.com/imamik/gsprov/internal/platform/fetch"
	"github.com/imamik/gsprov/internal/platform/s3"
)

// MockAccounts is a mock implementation of the provisioning.Accounts interface.
type MockAccounts struct {
	mock.Mock
}

// Ensure creates or looks up a user.
func (m *MockAccounts) Ensure(ctx context.Context, name, home string) (account.Account, error) {
	args := m.Called(ctx, name, home)
	return args.Get(0).(account.Account), args.Error(1)
}

// NewMockAccounts returns a MockAccounts that creates name on first use
// and finds it afterwards.
func NewMockAccounts(name string) *MockAccounts {
	m := &MockAccounts{}
	m.On("Ensure", mock.Anything, name, mock.Anything).
		Return(account.Account{Name: name, UID: os.Getuid(), GID: os.Getgid(), Created: true}, nil).Once()
	m.On("Ensure", mock.Anything, name, mock.Anything).
		Return(account.Account{Name: name, UID: os.Getuid(), GID: os.Getgid()}, nil)
	return m
}

// FetchCall records one FakeFetcher.Fetch.
type FetchCall struct {
	URL    string
	Dest   string
	Policy fetch.Policy
	// Transferred is false when the destination was kept.
	Transferred bool
}

// FakeFetcher serves fixed content per URL and writes it to the
// destination the same way fetch.Fetcher would.
type FakeFetcher struct {
	mu      sync.Mutex
	content map[string][]byte
	errs    map[string]error
	Calls   []FetchCall
}

// NewFakeFetcher returns an empty FakeFetcher.
func NewFakeFetcher() *FakeFetcher {
	return &FakeFetcher{content: map[string][]byte{}, errs: map[string]error{}}
}

// Serve makes url return data.
func (f *FakeFetcher) Serve(url string, data []byte) *FakeFetcher {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.content[url] = data
	return f
}

// Fail makes url fail with err.
func (f *FakeFetcher) Fail(url string, err error) *FakeFetcher {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errs[url] = err
	return f
}

// Fetch implements provisioning.Fetcher.
func (f *FakeFetcher) Fetch(_ context.Context, url, dest string, policy fetch.Policy) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	call := FetchCall{URL: url, Dest: dest, Policy: policy}
	if policy == fetch.SkipExisting {
		if _, err := os.Stat(dest); err == nil {
			f.Calls = append(f.Calls, call)
			return false, nil
		}
	}
	if err, ok := f.errs[url]; ok {
		f.Calls = append(f.Calls, call)
		return false, err
	}
	data, ok := f.content[url]
	if !ok {
		f.Calls = append(f.Calls, call)
		return false, &fetch.StatusError{URL: url, StatusCode: 404}
	}
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return false, err
	}
	if err := os.WriteFile(dest, data, 0o644); err != nil {
		return false, fmt.Errorf("fake fetch: %w", err)
	}
	call.Transferred = true
	f.Calls = append(f.Calls, call)
	return true, nil
}

// Transfers counts the calls that wrote a file.
func (f *FakeFetcher) Transfers(url string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.Calls {
		if c.URL == url && c.Transferred {
			n++
		}
	}
	return n
}

// ObjectStore is an in-memory bucket satisfying registry.ObjectStore. One
// store may back the registries of several fixtures.
type ObjectStore struct {
	mu      sync.Mutex
	objects map[string][]byte
}

// NewObjectStore returns an empty ObjectStore.
func NewObjectStore() *ObjectStore {
	return &ObjectStore{objects: map[string][]byte{}}
}

// Put stores data under key.
func (s *ObjectStore) Put(_ context.Context, key string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[key] = append([]byte(nil), data...)
	return nil
}

// Get returns the object at key or s3.ErrNotFound.
func (s *ObjectStore) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.objects[key]
	if !ok {
		return nil, s3.ErrNotFound
	}
	return append([]byte(nil), data...), nil
}

// Delete removes key.
func (s *ObjectStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.objects, key)
	return nil
}

// List returns the sorted keys starting with prefix.
func (s *ObjectStore) List(_ context.Context, prefix string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var keys []string
	for k := range s.objects {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys, nil
}
