package mirror

import (
	"context"
	"sort"
	"sync"
)

// MemoryStore keeps snapshots in process. Used when REDIS_ADDR is unset.
// Nothing outside the process can read it.
type MemoryStore struct {
	mu   sync.RWMutex
	docs map[string]Snapshot
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{docs: map[string]Snapshot{}}
}

// IsLocal reports whether writes to s stay inside this process.
func IsLocal(s Store) bool {
	if s == nil {
		return true
	}
	_, ok := s.(*MemoryStore)
	return ok
}

func (m *MemoryStore) Upsert(_ context.Context, snap Snapshot) error {
	cp := snap
	cp.Parameters = append([]Entry{}, snap.Parameters...)
	m.mu.Lock()
	m.docs[snap.ReportID] = cp
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) Get(_ context.Context, reportID string) (*Snapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	snap, ok := m.docs[reportID]
	if !ok {
		return nil, nil
	}
	snap.Parameters = append([]Entry{}, snap.Parameters...)
	return &snap, nil
}

func (m *MemoryStore) ListByStatus(_ context.Context, status string) ([]StatusEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := make([]string, 0, len(m.docs))
	for id := range m.docs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	out := []StatusEntry{}
	for _, id := range ids {
		for _, e := range m.docs[id].Parameters {
			if e.Status == status {
				out = append(out, StatusEntry{ReportID: id, Entry: e})
			}
		}
	}
	return out, nil
}
