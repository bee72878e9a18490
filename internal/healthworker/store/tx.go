package store

import (
	"context"
	"database/sql"
	"strconv"
	"sync"
	"time"

	id "healthnet/pkg/domain"
	dErrors "healthnet/pkg/domain-errors"
	txcontext "healthnet/pkg/platform/tx"
)

// WorkerTx runs a unit of work that reads and mutates one worker together
// with the candidate records it claims.
type WorkerTx interface {
	RunInTx(ctx context.Context, workerID id.WorkerID, fn func(ctx context.Context) error) error
}

// numWorkerShards spreads workers over independent locks so that parallel
// batches only contend when they hash to the same shard.
const numWorkerShards = 128

// ShardedTx serializes units of work per worker with sharded mutexes. Stores
// that register compensations on the context's undo log are rolled back when
// fn fails.
type ShardedTx struct {
	shards  [numWorkerShards]sync.Mutex
	timeout time.Duration
}

func NewShardedTx(timeout time.Duration) *ShardedTx {
	if timeout <= 0 {
		timeout = txcontext.DefaultTimeout
	}
	return &ShardedTx{timeout: timeout}
}

func (t *ShardedTx) RunInTx(ctx context.Context, workerID id.WorkerID, fn func(ctx context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.timeout)
		defer cancel()
	}

	shard := hashWorker(workerID) % numWorkerShards
	t.shards[shard].Lock()
	defer t.shards[shard].Unlock()

	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}

	ctx, undo := txcontext.WithUndoLog(ctx)
	if err := fn(ctx); err != nil {
		undo.Rollback()
		return err
	}
	return nil
}

// hashWorker uses FNV-1a over the decimal id.
func hashWorker(workerID id.WorkerID) uint32 {
	const (
		fnvOffset = 2166136261
		fnvPrime  = 16777619
	)
	s := strconv.FormatInt(int64(workerID), 10)
	h := uint32(fnvOffset)
	for i := 0; i < len(s); i++ {
		h ^= uint32(s[i])
		h *= fnvPrime
	}
	return h
}

// PostgresTx runs units of work in a database transaction. Worker rows are
// locked by FindForUpdate.
type PostgresTx struct {
	runner *txcontext.Postgres
}

func NewPostgresTx(db *sql.DB, timeout time.Duration) *PostgresTx {
	return &PostgresTx{runner: txcontext.NewPostgres(db, timeout)}
}

func (t *PostgresTx) RunInTx(ctx context.Context, _ id.WorkerID, fn func(ctx context.Context) error) error {
	return t.runner.Run(ctx, fn)
}
