package history

import (
	"context"
	"sync"

	"go-soilsync/models"
)

// MemoryStore 进程内存储，重启后丢失
type MemoryStore struct {
	mu      sync.RWMutex
	max     int
	entries map[string][]models.HistoryEntry
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore 创建内存存储
func NewMemoryStore(max int) *MemoryStore {
	return &MemoryStore{
		max:     normalizeMax(max),
		entries: make(map[string][]models.HistoryEntry),
	}
}

func (s *MemoryStore) Append(_ context.Context, entry models.HistoryEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	list := s.entries[entry.UserID]
	next := make([]models.HistoryEntry, 0, min(len(list)+1, s.max))
	next = append(next, entry)
	for _, e := range list {
		if len(next) == s.max {
			break
		}
		next = append(next, e)
	}
	s.entries[entry.UserID] = next
	return nil
}

func (s *MemoryStore) List(_ context.Context, owner string, limit int) ([]models.HistoryEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	list := s.entries[owner]
	limit = normalizeLimit(limit, s.max)
	if limit > len(list) {
		limit = len(list)
	}
	out := make([]models.HistoryEntry, limit)
	copy(out, list[:limit])
	return out, nil
}

func (s *MemoryStore) Get(_ context.Context, owner, id string) (models.HistoryEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, e := range s.entries[owner] {
		if e.ID == id {
			return e, nil
		}
	}
	return models.HistoryEntry{}, models.ErrNotFound
}

func (s *MemoryStore) MaxEntries() int { return s.max }

func (s *MemoryStore) Close() error { return nil }
