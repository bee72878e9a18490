package tx

import (
	"context"
	"sync"
)

type undoKey struct{}

// UndoLog collects compensations registered by in-memory stores during a unit
// of work. It stands in for a database rollback.
type UndoLog struct {
	mu  sync.Mutex
	fns []func()
}

// WithUndoLog returns a context carrying a fresh undo log.
func WithUndoLog(ctx context.Context) (context.Context, *UndoLog) {
	log := &UndoLog{}
	return context.WithValue(ctx, undoKey{}, log), log
}

// OnRollback registers fn with the undo log in ctx. It reports false when ctx
// carries no log, in which case fn is discarded.
func OnRollback(ctx context.Context, fn func()) bool {
	log, ok := ctx.Value(undoKey{}).(*UndoLog)
	if !ok {
		return false
	}
	log.mu.Lock()
	log.fns = append(log.fns, fn)
	log.mu.Unlock()
	return true
}

// Rollback runs registered compensations in reverse order and clears the log.
func (l *UndoLog) Rollback() {
	l.mu.Lock()
	fns := l.fns
	l.fns = nil
	l.mu.Unlock()
	for i := len(fns) - 1; i >= 0; i-- {
		fns[i]()
	}
}
