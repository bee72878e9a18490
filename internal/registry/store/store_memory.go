package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"healthnet/internal/registry/models"
	id "healthnet/pkg/domain"
	"healthnet/pkg/platform/sentinel"
	txcontext "healthnet/pkg/platform/tx"
)

// InMemoryStore keeps candidate records per source in ascending id order.
// Claim is a compare-and-set under the store mutex.
type InMemoryStore struct {
	mu      sync.RWMutex
	records map[models.Source][]*models.Record
	nextID  id.RecordID
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{records: make(map[models.Source][]*models.Record)}
}

// Insert adds an imported record and returns its id. A zero ID is assigned
// from a process-wide sequence.
func (s *InMemoryStore) Insert(_ context.Context, record models.Record) (id.RecordID, error) {
	if !record.Source.IsValid() {
		return 0, sentinel.ErrInvalidState
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if record.ID.IsZero() {
		s.nextID++
		record.ID = s.nextID
	} else if record.ID > s.nextID {
		s.nextID = record.ID
	}
	if record.ImportedAt.IsZero() {
		record.ImportedAt = time.Now()
	}
	list := s.records[record.Source]
	for _, existing := range list {
		if existing.ID == record.ID {
			return 0, sentinel.ErrConflict
		}
	}
	stored := record
	list = append(list, &stored)
	sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })
	s.records[record.Source] = list
	return record.ID, nil
}

func (s *InMemoryStore) ListUnclaimed(_ context.Context, source models.Source, filter models.Filter, afterID id.RecordID, limit int) ([]models.Record, error) {
	if filter.Field != "" && !source.Provides(filter.Field) {
		return nil, nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []models.Record
	for _, r := range s.records[source] {
		if r.ID <= afterID || r.IsClaimed() || !filter.Matches(*r) {
			continue
		}
		out = append(out, copyRecord(r))
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

// Claim sets ClaimedBy when the record is unclaimed and the worker holds no
// other record of the source. Inside a unit of work carrying an undo log the
// claim is released again if the unit rolls back.
func (s *InMemoryStore) Claim(ctx context.Context, source models.Source, recordID id.RecordID, workerID id.WorkerID) error {
	if err := s.claim(source, recordID, workerID); err != nil {
		return err
	}
	txcontext.OnRollback(ctx, func() {
		_ = s.Release(context.Background(), source, recordID, workerID)
	})
	return nil
}

func (s *InMemoryStore) claim(source models.Source, recordID id.RecordID, workerID id.WorkerID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var target *models.Record
	for _, r := range s.records[source] {
		if r.ID == recordID {
			target = r
		}
		if r.ClaimedBy != nil && *r.ClaimedBy == workerID {
			return sentinel.ErrAlreadyUsed
		}
	}
	if target == nil {
		return sentinel.ErrNotFound
	}
	if target.IsClaimed() {
		return sentinel.ErrAlreadyUsed
	}
	claimant := workerID
	target.ClaimedBy = &claimant
	return nil
}

// Release clears a claim held by workerID. It undoes a claim whose enclosing
// unit of work failed to complete.
func (s *InMemoryStore) Release(_ context.Context, source models.Source, recordID id.RecordID, workerID id.WorkerID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.records[source] {
		if r.ID == recordID {
			if r.ClaimedBy == nil || *r.ClaimedBy != workerID {
				return sentinel.ErrInvalidState
			}
			r.ClaimedBy = nil
			return nil
		}
	}
	return sentinel.ErrNotFound
}

func (s *InMemoryStore) FindClaimedBy(_ context.Context, source models.Source, workerID id.WorkerID) (*models.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, r := range s.records[source] {
		if r.ClaimedBy != nil && *r.ClaimedBy == workerID {
			found := copyRecord(r)
			return &found, nil
		}
	}
	return nil, sentinel.ErrNotFound
}

func (s *InMemoryStore) FindByID(_ context.Context, source models.Source, recordID id.RecordID) (*models.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, r := range s.records[source] {
		if r.ID == recordID {
			found := copyRecord(r)
			return &found, nil
		}
	}
	return nil, sentinel.ErrNotFound
}

func copyRecord(r *models.Record) models.Record {
	out := *r
	if r.ClaimedBy != nil {
		claimant := *r.ClaimedBy
		out.ClaimedBy = &claimant
	}
	return out
}
