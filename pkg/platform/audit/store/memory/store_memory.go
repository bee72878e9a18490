package memory

import (
	"context"
	"sync"

	id "healthnet/pkg/domain"
	audit "healthnet/pkg/platform/audit"
)

type InMemoryStore struct {
	mu     sync.RWMutex
	events map[id.WorkerID][]audit.Event
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{events: make(map[id.WorkerID][]audit.Event)}
}

func (s *InMemoryStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = make(map[id.WorkerID][]audit.Event)
}

func (s *InMemoryStore) Append(_ context.Context, event audit.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events[event.WorkerID] = append(s.events[event.WorkerID], event)
	return nil
}

func (s *InMemoryStore) ListByWorker(_ context.Context, workerID id.WorkerID) ([]audit.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]audit.Event{}, s.events[workerID]...), nil
}

// ListAction returns every event with the given action across all workers.
func (s *InMemoryStore) ListAction(_ context.Context, action audit.AuditEvent) []audit.Event {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []audit.Event
	for _, workerEvents := range s.events {
		for _, e := range workerEvents {
			if e.Action == string(action) {
				out = append(out, e)
			}
		}
	}
	return out
}
