// Package batch sweeps unverified health workers through the verification
// engine.
package batch

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"healthnet/internal/verification/metrics"
	id "healthnet/pkg/domain"
)

type WorkerLister interface {
	ListUnverifiedIDs(ctx context.Context, afterID id.WorkerID, limit int) ([]id.WorkerID, error)
}

type Verifier interface {
	AttemptAutoVerify(ctx context.Context, workerID id.WorkerID) (bool, error)
}

// Batch result labels.
const (
	ResultVerified  = "verified"
	ResultUnmatched = "unmatched"
	ResultSkipped   = "skipped"
	ResultFailed    = "failed"
)

const (
	defaultConcurrency = 4
	defaultPageSize    = 200
	defaultLeaseTTL    = 30 * time.Second
	releaseTimeout     = 2 * time.Second
)

// Summary counts what one run did.
type Summary struct {
	Attempted int
	Verified  int
	Unmatched int
	Skipped   int
	Failed    int
}

type Runner struct {
	workers     WorkerLister
	verifier    Verifier
	leaser      Leaser
	logger      *slog.Logger
	metrics     *metrics.Metrics
	concurrency int
	pageSize    int
	leaseTTL    time.Duration
}

type Option func(*Runner)

func WithLogger(logger *slog.Logger) Option {
	return func(r *Runner) {
		r.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Runner) {
		r.metrics = m
	}
}

func WithLeaser(l Leaser) Option {
	return func(r *Runner) {
		r.leaser = l
	}
}

func WithConcurrency(n int) Option {
	return func(r *Runner) {
		if n > 0 {
			r.concurrency = n
		}
	}
}

func WithPageSize(n int) Option {
	return func(r *Runner) {
		if n > 0 {
			r.pageSize = n
		}
	}
}

func WithLeaseTTL(ttl time.Duration) Option {
	return func(r *Runner) {
		if ttl > 0 {
			r.leaseTTL = ttl
		}
	}
}

func NewRunner(workers WorkerLister, verifier Verifier, opts ...Option) *Runner {
	r := &Runner{
		workers:     workers,
		verifier:    verifier,
		leaser:      NewMemoryLeaser(),
		logger:      slog.Default(),
		concurrency: defaultConcurrency,
		pageSize:    defaultPageSize,
		leaseTTL:    defaultLeaseTTL,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run attempts every currently unverified worker once. Per-worker failures
// are counted in the summary; only listing failures and cancellation end the
// run early.
func (r *Runner) Run(ctx context.Context) (Summary, error) {
	start := time.Now()
	var (
		mu      sync.Mutex
		summary Summary
	)
	record := func(result string) {
		mu.Lock()
		defer mu.Unlock()
		switch result {
		case ResultVerified:
			summary.Attempted++
			summary.Verified++
		case ResultUnmatched:
			summary.Attempted++
			summary.Unmatched++
		case ResultFailed:
			summary.Attempted++
			summary.Failed++
		case ResultSkipped:
			summary.Skipped++
		}
		if r.metrics != nil {
			r.metrics.IncrementBatchWorker(result)
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.concurrency)

	var listErr error
	var after id.WorkerID
	for {
		if gctx.Err() != nil {
			break
		}
		page, err := r.workers.ListUnverifiedIDs(gctx, after, r.pageSize)
		if err != nil {
			listErr = err
			break
		}
		for _, workerID := range page {
			after = workerID
			g.Go(func() error {
				if gctx.Err() != nil {
					return nil
				}
				record(r.attempt(gctx, workerID))
				return nil
			})
		}
		if len(page) < r.pageSize {
			break
		}
	}
	_ = g.Wait()

	if listErr == nil {
		listErr = ctx.Err()
	}
	r.logger.InfoContext(ctx, "verification batch finished",
		"attempted", summary.Attempted,
		"verified", summary.Verified,
		"unmatched", summary.Unmatched,
		"skipped", summary.Skipped,
		"failed", summary.Failed,
		"duration_ms", time.Since(start).Milliseconds(),
		"error", listErr,
	)
	return summary, listErr
}

func (r *Runner) attempt(ctx context.Context, workerID id.WorkerID) string {
	release, ok, err := r.leaser.Acquire(ctx, workerID, r.leaseTTL)
	if err != nil {
		r.logger.WarnContext(ctx, "failed to acquire verification lease", "worker_id", workerID, "error", err)
		return ResultFailed
	}
	if !ok {
		return ResultSkipped
	}
	defer func() {
		releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), releaseTimeout)
		defer cancel()
		if err := release(releaseCtx); err != nil {
			r.logger.WarnContext(ctx, "failed to release verification lease", "worker_id", workerID, "error", err)
		}
	}()

	verified, err := r.verifier.AttemptAutoVerify(ctx, workerID)
	if err != nil {
		r.logger.ErrorContext(ctx, "auto verification failed", "worker_id", workerID, "error", err)
		return ResultFailed
	}
	if verified {
		return ResultVerified
	}
	return ResultUnmatched
}
