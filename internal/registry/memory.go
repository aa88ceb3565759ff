package registry

import (
	"context"
	"sort"
	"sync"
)

// Memory is an in-process Repository, used by dry runs and tests.
type Memory struct {
	mu      sync.Mutex
	records map[Key]string
}

// NewMemory returns a Memory holding recs.
func NewMemory(recs ...Record) *Memory {
	m := &Memory{records: make(map[Key]string)}
	for _, r := range recs {
		m.records[r.Key] = r.Dir
	}
	return m
}

// Get implements Repository.
func (m *Memory) Get(_ context.Context, key Key) (Record, bool, error) {
	if err := key.Validate(); err != nil {
		return Record{}, false, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	dir, ok := m.records[key]
	if !ok {
		return Record{}, false, nil
	}
	return Record{Key: key, Dir: dir}, true, nil
}

// Put implements Repository.
func (m *Memory) Put(_ context.Context, rec Record) error {
	if err := validateRecord(rec); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[rec.Key] = rec.Dir
	return nil
}

// Delete implements Repository.
func (m *Memory) Delete(_ context.Context, key Key) error {
	if err := key.Validate(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.records, key)
	return nil
}

// List implements Repository.
func (m *Memory) List(_ context.Context, guid string) ([]Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Record
	for k, dir := range m.records {
		if matchesGUID(k, guid) {
			out = append(out, Record{Key: k, Dir: dir})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key.Name() < out[j].Key.Name() })
	return out, nil
}
