package store

import (
	"sync"

	"github.com/nearspot/locationd/internal/domain"
)

// Memory is an in-memory implementation of domain.SnapshotStore and
// domain.HistoryStore with the same ring semantics as Bolt. Used by tests
// and by loccheck, which has no use for a database file.
type Memory struct {
	mu       sync.RWMutex
	snapshot *domain.LocationSnapshot
	records  []domain.UpdateRecord
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{}
}

func (s *Memory) Get() (domain.LocationSnapshot, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.snapshot == nil {
		return domain.LocationSnapshot{}, false, nil
	}
	return *s.snapshot, true, nil
}

func (s *Memory) Put(snapshot domain.LocationSnapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshot = &snapshot
	return nil
}

func (s *Memory) Append(record domain.UpdateRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, record)
	if over := len(s.records) - domain.HistoryLimit; over > 0 {
		s.records = append([]domain.UpdateRecord(nil), s.records[over:]...)
	}
	return nil
}

func (s *Memory) Recent(n int) ([]domain.UpdateRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if n <= 0 {
		return nil, nil
	}
	if n > len(s.records) {
		n = len(s.records)
	}
	out := make([]domain.UpdateRecord, 0, n)
	for i := len(s.records) - 1; i >= len(s.records)-n; i-- {
		out = append(out, s.records[i])
	}
	return out, nil
}
