package storage

import (
	"sort"
	"sync"

	"github.com/ftahirops/xtune/model"
)

// MemoryStore is a process-local Store. Records do not survive a restart.
type MemoryStore struct {
	mu      sync.Mutex
	records map[string]map[model.Device]model.ElevatorRecord
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]map[model.Device]model.ElevatorRecord)}
}

func (s *MemoryStore) Get(namespace string, device model.Device) (model.ElevatorRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[namespace][device]
	if !ok {
		return model.ElevatorRecord{}, ErrNotFound
	}
	return rec, nil
}

func (s *MemoryStore) Set(namespace string, rec model.ElevatorRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	ns, ok := s.records[namespace]
	if !ok {
		ns = make(map[model.Device]model.ElevatorRecord)
		s.records[namespace] = ns
	}
	ns[rec.Device] = rec
	return nil
}

func (s *MemoryStore) Delete(namespace string, device model.Device) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records[namespace], device)
	return nil
}

func (s *MemoryStore) List(namespace string) ([]model.ElevatorRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return sortedRecords(s.records[namespace]), nil
}

func (s *MemoryStore) Close() error { return nil }

func sortedRecords(m map[model.Device]model.ElevatorRecord) []model.ElevatorRecord {
	out := make([]model.ElevatorRecord, 0, len(m))
	for _, rec := range m {
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Device < out[j].Device })
	return out
}
