package storage

import (
	"context"
	"sync"

	"github.com/kagura-engine/kagura/pkg/session"
)

// MockStore is an in-memory Store for tests. Loads return copies so callers
// cannot mutate committed state behind its back.
type MockStore struct {
	mu       sync.Mutex
	settings *Settings
	records  map[string][]*session.Context
	visited  map[string][]string

	// SaveAllErr, when set, is returned by SaveAll without committing.
	SaveAllErr error
}

var _ Store = (*MockStore)(nil)

func NewMockStore() *MockStore {
	return &MockStore{
		records: make(map[string][]*session.Context),
		visited: make(map[string][]string),
	}
}

func (m *MockStore) Ping(ctx context.Context) error { return nil }

func (m *MockStore) Close() error { return nil }

func (m *MockStore) LoadSettings(ctx context.Context) (*Settings, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.settings == nil {
		return nil, nil
	}
	dup := *m.settings
	return &dup, nil
}

func (m *MockStore) LoadRecords(ctx context.Context, game string) ([]*session.Context, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	recs := make([]*session.Context, len(m.records[game]))
	for i, r := range m.records[game] {
		recs[i] = r.Clone()
	}
	return recs, nil
}

func (m *MockStore) LoadVisited(ctx context.Context, game string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.visited[game]...), nil
}

func (m *MockStore) SaveAll(ctx context.Context, game string, settings *Settings, records []*session.Context, visited []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.SaveAllErr != nil {
		return m.SaveAllErr
	}

	if settings != nil {
		dup := *settings
		m.settings = &dup
	}
	recs := make([]*session.Context, len(records))
	for i, r := range records {
		recs[i] = r.Clone()
	}
	m.records[game] = recs
	m.visited[game] = append([]string(nil), visited...)
	return nil
}
