// Package verification reconciles a health worker's self-reported identity
// against the candidate registries and records how the worker was verified.
package verification

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	hw "healthnet/internal/healthworker/models"
	registry "healthnet/internal/registry/models"
	"healthnet/internal/verification/metrics"
	id "healthnet/pkg/domain"
	dErrors "healthnet/pkg/domain-errors"
	audit "healthnet/pkg/platform/audit"
	"healthnet/pkg/platform/sentinel"
	"healthnet/pkg/requestcontext"
)

type WorkerStore interface {
	FindByID(ctx context.Context, workerID id.WorkerID) (*hw.Worker, error)
	FindForUpdate(ctx context.Context, workerID id.WorkerID) (*hw.Worker, error)
	SetAutoVerified(ctx context.Context, workerID id.WorkerID, tier hw.VerificationTier, at time.Time) error
	SetManualVerified(ctx context.Context, workerID id.WorkerID, notes string, at time.Time) error
}

type RecordStore interface {
	ListUnclaimed(ctx context.Context, source registry.Source, filter registry.Filter, afterID id.RecordID, limit int) ([]registry.Record, error)
	Claim(ctx context.Context, source registry.Source, recordID id.RecordID, workerID id.WorkerID) error
	FindClaimedBy(ctx context.Context, source registry.Source, workerID id.WorkerID) (*registry.Record, error)
}

type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// TxRunner scopes a unit of work to one worker.
type TxRunner interface {
	RunInTx(ctx context.Context, workerID id.WorkerID, fn func(ctx context.Context) error) error
}

const defaultPageSize = 100

var (
	// errSettled aborts a unit of work because the worker left
	// TierUnverified concurrently.
	errSettled = errors.New("worker already verified")
	// errClaimLost aborts a unit of work because the candidate was claimed
	// concurrently.
	errClaimLost = errors.New("candidate claimed concurrently")
)

type Service struct {
	workers        WorkerStore
	records        RecordStore
	tx             TxRunner
	logger         *slog.Logger
	auditPublisher AuditPublisher
	metrics        *metrics.Metrics
	tracer         trace.Tracer
	pageSize       int
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithAuditPublisher(publisher AuditPublisher) Option {
	return func(s *Service) {
		s.auditPublisher = publisher
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithPageSize sets how many candidates are fetched per query.
func WithPageSize(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.pageSize = n
		}
	}
}

func WithTracer(tracer trace.Tracer) Option {
	return func(s *Service) {
		s.tracer = tracer
	}
}

func New(workers WorkerStore, records RecordStore, tx TxRunner, opts ...Option) *Service {
	s := &Service{
		workers:  workers,
		records:  records,
		tx:       tx,
		logger:   slog.Default(),
		pageSize: defaultPageSize,
		tracer:   otel.Tracer("healthnet/verification"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// AttemptAutoVerify tries each strategy in priority order and binds the first
// matching unclaimed candidate to the worker. It returns true when the worker
// is verified after the call (including when it already was) and false when
// nothing matched; in that case no data is changed.
func (s *Service) AttemptAutoVerify(ctx context.Context, workerID id.WorkerID) (verified bool, err error) {
	start := time.Now()
	ctx, span := s.tracer.Start(ctx, "verification.AttemptAutoVerify",
		trace.WithAttributes(attribute.Int64("worker.id", int64(workerID))))
	alreadyVerified := false
	defer func() {
		outcome := metrics.OutcomeUnmatched
		switch {
		case err != nil:
			outcome = metrics.OutcomeError
			span.RecordError(err)
			span.SetStatus(codes.Error, "auto verification failed")
		case alreadyVerified:
			outcome = metrics.OutcomeAlreadyVerified
		case verified:
			outcome = metrics.OutcomeVerified
		}
		span.SetAttributes(attribute.String("verification.outcome", outcome))
		span.End()
		s.observeAttempt(outcome, start)
	}()

	w, err := s.workers.FindByID(ctx, workerID)
	if err != nil {
		return false, translateWorkerErr(err)
	}
	if !w.IsUnverified() {
		alreadyVerified = true
		return true, nil
	}

	for _, st := range strategies {
		filter, ok := st.filter(w)
		if !ok {
			continue
		}
		matched, err := s.runStrategy(ctx, w, st, filter)
		if err != nil {
			return false, err
		}
		if matched {
			return true, nil
		}
	}
	return false, nil
}

// runStrategy scans each source of st in order, lowest record id first.
func (s *Service) runStrategy(ctx context.Context, w *hw.Worker, st strategy, filter registry.Filter) (bool, error) {
	ctx, span := s.tracer.Start(ctx, "verification.strategy",
		trace.WithAttributes(attribute.String("strategy", st.name)))
	defer span.End()

	for _, source := range st.sources {
		var after id.RecordID
		for {
			page, err := s.records.ListUnclaimed(ctx, source, filter, after, s.pageSize)
			if err != nil {
				return false, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list candidates")
			}
			for _, rec := range page {
				after = rec.ID
				if st.accept != nil && !st.accept(w, rec) {
					continue
				}
				bound, err := s.bind(ctx, w.ID, st, rec)
				if err != nil {
					return false, err
				}
				switch bound {
				case bindMatched:
					span.SetAttributes(attribute.String("source", string(source)))
					return true, nil
				case bindSettled:
					return true, nil
				}
			}
			if len(page) < s.pageSize {
				break
			}
		}
	}
	return false, nil
}

type bindResult int

const (
	bindLost bindResult = iota
	bindMatched
	bindSettled
)

// bind claims rec for the worker and moves the worker to st.tier in one unit
// of work. The worker is re-read under lock so a concurrent verification is
// seen as settled rather than overwritten.
func (s *Service) bind(ctx context.Context, workerID id.WorkerID, st strategy, rec registry.Record) (bindResult, error) {
	err := s.tx.RunInTx(ctx, workerID, func(ctx context.Context) error {
		current, err := s.workers.FindForUpdate(ctx, workerID)
		if err != nil {
			return err
		}
		if !current.IsUnverified() {
			return errSettled
		}
		if err := s.records.Claim(ctx, rec.Source, rec.ID, workerID); err != nil {
			if errors.Is(err, sentinel.ErrAlreadyUsed) || errors.Is(err, sentinel.ErrNotFound) {
				return errClaimLost
			}
			return err
		}
		now := requestcontext.Now(ctx)
		if err := s.workers.SetAutoVerified(ctx, workerID, st.tier, now); err != nil {
			if errors.Is(err, sentinel.ErrInvalidState) {
				return errSettled
			}
			return err
		}
		return s.emit(ctx, audit.EventWorkerAutoVerified, workerID,
			"tier", st.tier.String(),
			"strategy", st.name,
			"source", string(rec.Source),
			"record_id", int64(rec.ID),
		)
	})
	switch {
	case err == nil:
		s.logger.InfoContext(ctx, "worker auto verified",
			"worker_id", workerID,
			"strategy", st.name,
			"source", rec.Source,
			"record_id", rec.ID,
		)
		if s.metrics != nil {
			s.metrics.IncrementMatch(st.tier.String(), string(rec.Source))
		}
		return bindMatched, nil
	case errors.Is(err, errClaimLost):
		if s.metrics != nil {
			s.metrics.IncrementClaimConflict(string(rec.Source))
		}
		return bindLost, nil
	case errors.Is(err, errSettled):
		return bindSettled, nil
	case dErrors.HasCode(err, dErrors.CodeTimeout):
		return bindLost, err
	default:
		return bindLost, translateWorkerErr(err)
	}
}

// MatchedName returns the name on the record that verified a name-matched
// worker. ok is false for workers verified any other way or not at all.
func (s *Service) MatchedName(ctx context.Context, workerID id.WorkerID) (name string, ok bool, err error) {
	w, err := s.workers.FindByID(ctx, workerID)
	if err != nil {
		return "", false, translateWorkerErr(err)
	}
	if w.VerificationTier != hw.TierName {
		return "", false, nil
	}
	for _, source := range registry.AllSources {
		rec, err := s.records.FindClaimedBy(ctx, source, workerID)
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				continue
			}
			return "", false, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load claimed record")
		}
		return rec.Name, true, nil
	}
	return "", false, nil
}

// MarkManuallyVerified records a human-operated verification. Repeating it
// for an already manually verified worker without new notes changes nothing.
func (s *Service) MarkManuallyVerified(ctx context.Context, workerID id.WorkerID, notes string) error {
	err := s.tx.RunInTx(ctx, workerID, func(ctx context.Context) error {
		current, err := s.workers.FindForUpdate(ctx, workerID)
		if err != nil {
			return err
		}
		if current.VerificationTier == hw.TierManual && notes == "" {
			return nil
		}
		if err := s.workers.SetManualVerified(ctx, workerID, notes, requestcontext.Now(ctx)); err != nil {
			return err
		}
		return s.emit(ctx, audit.EventWorkerManuallyVerified, workerID,
			"previous_tier", current.VerificationTier.String(),
			"has_notes", notes != "",
		)
	})
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeTimeout) {
			return err
		}
		return translateWorkerErr(err)
	}
	return nil
}

func (s *Service) emit(ctx context.Context, action audit.AuditEvent, workerID id.WorkerID, attrs ...any) error {
	if s.auditPublisher == nil {
		return nil
	}
	return audit.LogAudit(ctx, s.logger, s.auditPublisher, action, workerID, attrs...)
}

func (s *Service) observeAttempt(outcome string, start time.Time) {
	if s.metrics == nil {
		return
	}
	s.metrics.IncrementAttempt(outcome)
	s.metrics.ObserveAttempt(start)
}

func translateWorkerErr(err error) error {
	if errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.New(dErrors.CodeNotFound, "health worker not found")
	}
	var domainErr *dErrors.Error
	if errors.As(err, &domainErr) {
		return err
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, "verification store failure")
}
