package position

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/webzook/wintail/pkg/wintail"
)

// MemoryStore keeps positions in process memory. Nothing survives a restart.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]Entry
	now     func() time.Time
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]Entry), now: time.Now}
}

func (m *MemoryStore) Get(_ context.Context, sourceID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[sourceID]
	if !ok {
		return 0, wintail.ErrOffsetNotFound
	}
	return e.Offset, nil
}

func (m *MemoryStore) Set(_ context.Context, sourceID string, offset int64) error {
	if err := validOffset(offset); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[sourceID] = Entry{SourceID: sourceID, Offset: offset, UpdatedAt: m.now().UTC()}
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, sourceID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, sourceID)
	return nil
}

func (m *MemoryStore) List(context.Context) ([]Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Entry, 0, len(m.entries))
	for _, e := range m.entries {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SourceID < out[j].SourceID })
	return out, nil
}

func (m *MemoryStore) Close() error { return nil }
