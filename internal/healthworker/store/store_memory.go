package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"healthnet/internal/healthworker/models"
	id "healthnet/pkg/domain"
	"healthnet/pkg/platform/sentinel"
	txcontext "healthnet/pkg/platform/tx"
)

type InMemoryStore struct {
	mu      sync.RWMutex
	workers map[id.WorkerID]*models.Worker
	nextID  id.WorkerID
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{workers: make(map[id.WorkerID]*models.Worker)}
}

// Create stores a new worker. A zero ID is assigned from the store sequence.
func (s *InMemoryStore) Create(_ context.Context, w *models.Worker) (id.WorkerID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if w.ID.IsZero() {
		s.nextID++
		w.ID = s.nextID
	} else if w.ID > s.nextID {
		s.nextID = w.ID
	}
	if _, exists := s.workers[w.ID]; exists {
		return 0, sentinel.ErrConflict
	}
	s.workers[w.ID] = clone(w)
	return w.ID, nil
}

func (s *InMemoryStore) FindByID(_ context.Context, workerID id.WorkerID) (*models.Worker, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	w, ok := s.workers[workerID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return clone(w), nil
}

// FindForUpdate is FindByID; row locking is provided by the sharded tx.
func (s *InMemoryStore) FindForUpdate(ctx context.Context, workerID id.WorkerID) (*models.Worker, error) {
	return s.FindByID(ctx, workerID)
}

// SetAutoVerified moves an unverified worker to tier. It fails with
// ErrInvalidState when the worker has already left TierUnverified.
func (s *InMemoryStore) SetAutoVerified(ctx context.Context, workerID id.WorkerID, tier models.VerificationTier, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	w, ok := s.workers[workerID]
	if !ok {
		return sentinel.ErrNotFound
	}
	before := clone(w)
	if err := w.ApplyAutoVerification(tier, at); err != nil {
		return sentinel.ErrInvalidState
	}
	s.restoreOnRollback(ctx, before)
	return nil
}

func (s *InMemoryStore) SetManualVerified(ctx context.Context, workerID id.WorkerID, notes string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	w, ok := s.workers[workerID]
	if !ok {
		return sentinel.ErrNotFound
	}
	s.restoreOnRollback(ctx, clone(w))
	w.ApplyManualVerification(notes, at)
	return nil
}

// UpdateMembership persists only the closed user group fields of w.
func (s *InMemoryStore) UpdateMembership(ctx context.Context, w *models.Worker) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.workers[w.ID]
	if !ok {
		return sentinel.ErrNotFound
	}
	s.restoreOnRollback(ctx, clone(stored))
	stored.ClosedUserGroup = w.ClosedUserGroup
	stored.AddedToClosedUserGroupAt = copyTime(w.AddedToClosedUserGroupAt)
	stored.RequestedClosedUserGroupAt = copyTime(w.RequestedClosedUserGroupAt)
	stored.UpdatedAt = w.UpdatedAt
	return nil
}

func (s *InMemoryStore) ListUnverifiedIDs(_ context.Context, afterID id.WorkerID, limit int) ([]id.WorkerID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []id.WorkerID
	for workerID, w := range s.workers {
		if workerID > afterID && w.IsUnverified() {
			out = append(out, workerID)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// restoreOnRollback puts snapshot back if the surrounding unit of work fails.
func (s *InMemoryStore) restoreOnRollback(ctx context.Context, snapshot *models.Worker) {
	txcontext.OnRollback(ctx, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.workers[snapshot.ID] = snapshot
	})
}

func clone(w *models.Worker) *models.Worker {
	out := *w
	out.VerifiedAt = copyTime(w.VerifiedAt)
	out.AddedToClosedUserGroupAt = copyTime(w.AddedToClosedUserGroupAt)
	out.RequestedClosedUserGroupAt = copyTime(w.RequestedClosedUserGroupAt)
	return &out
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
