// Package membership manages health workers' closed user group enrolment.
package membership

import (
	"context"
	"errors"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	hw "healthnet/internal/healthworker/models"
	id "healthnet/pkg/domain"
	dErrors "healthnet/pkg/domain-errors"
	audit "healthnet/pkg/platform/audit"
	"healthnet/pkg/platform/sentinel"
	"healthnet/pkg/requestcontext"
)

type WorkerStore interface {
	FindByID(ctx context.Context, workerID id.WorkerID) (*hw.Worker, error)
	FindForUpdate(ctx context.Context, workerID id.WorkerID) (*hw.Worker, error)
	UpdateMembership(ctx context.Context, w *hw.Worker) error
}

type TxRunner interface {
	RunInTx(ctx context.Context, workerID id.WorkerID, fn func(ctx context.Context) error) error
}

type Sender interface {
	SendSMS(ctx context.Context, to, text string) error
}

type Messages interface {
	Activation(lang string) string
	Deactivation(lang string) string
}

type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

type Metrics struct {
	Changes              *prometheus.CounterVec
	NotificationFailures prometheus.Counter
}

func NewMetrics() *Metrics {
	return &Metrics{
		Changes: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "healthnet_closed_user_group_changes_total",
			Help: "Closed user group membership changes by direction",
		}, []string{"change"}),
		NotificationFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "healthnet_closed_user_group_notification_failures_total",
			Help: "Membership SMS notifications that could not be delivered",
		}),
	}
}

type Service struct {
	workers        WorkerStore
	tx             TxRunner
	sender         Sender
	messages       Messages
	logger         *slog.Logger
	auditPublisher AuditPublisher
	metrics        *Metrics
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

func WithMetrics(m *Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func New(workers WorkerStore, tx TxRunner, sender Sender, messages Messages, opts ...Option) *Service {
	s := &Service{
		workers:  workers,
		tx:       tx,
		sender:   sender,
		messages: messages,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SetClosedUserGroup moves the worker into or out of the closed user group.
// The worker is told by SMS before the change is saved; a failed SMS is
// logged and does not stop the change. Setting the current state again does
// nothing.
func (s *Service) SetClosedUserGroup(ctx context.Context, workerID id.WorkerID, enabled bool) error {
	w, err := s.workers.FindByID(ctx, workerID)
	if err != nil {
		return translateErr(err)
	}
	if !w.CanToggleMembership(enabled) {
		return nil
	}

	s.notify(ctx, w, enabled)

	err = s.tx.RunInTx(ctx, workerID, func(ctx context.Context) error {
		current, err := s.workers.FindForUpdate(ctx, workerID)
		if err != nil {
			return err
		}
		if !current.CanToggleMembership(enabled) {
			return nil
		}
		current.ApplyMembership(enabled, requestcontext.Now(ctx))
		if err := s.workers.UpdateMembership(ctx, current); err != nil {
			return err
		}
		return s.emit(ctx, audit.EventClosedUserGroupChange, workerID,
			"phone", current.VodacomPhone,
			"change", enabled,
			"id", int64(workerID),
		)
	})
	if err != nil {
		return translateErr(err)
	}
	if s.metrics != nil {
		s.metrics.Changes.WithLabelValues(changeLabel(enabled)).Inc()
	}
	return nil
}

// RequestClosedUserGroup records that the worker asked to join the closed
// user group. Only the first request is kept.
func (s *Service) RequestClosedUserGroup(ctx context.Context, workerID id.WorkerID) error {
	err := s.tx.RunInTx(ctx, workerID, func(ctx context.Context) error {
		current, err := s.workers.FindForUpdate(ctx, workerID)
		if err != nil {
			return err
		}
		if !current.ApplyMembershipRequest(requestcontext.Now(ctx)) {
			return nil
		}
		if err := s.workers.UpdateMembership(ctx, current); err != nil {
			return err
		}
		return s.emit(ctx, audit.EventClosedUserGroupRequested, workerID,
			"phone", current.VodacomPhone,
			"id", int64(workerID),
		)
	})
	return translateErr(err)
}

func (s *Service) notify(ctx context.Context, w *hw.Worker, enabled bool) {
	var text string
	if enabled {
		text = s.messages.Activation(w.Language)
	} else {
		text = s.messages.Deactivation(w.Language)
	}
	err := s.sender.SendSMS(ctx, w.VodacomPhone, text)
	if err == nil {
		return
	}
	s.logger.WarnContext(ctx, "closed user group notification failed",
		"worker_id", w.ID,
		"change", enabled,
		"error", err,
	)
	if s.metrics != nil {
		s.metrics.NotificationFailures.Inc()
	}
	if emitErr := s.emit(ctx, audit.EventNotificationFailed, w.ID,
		"phone", w.VodacomPhone,
		"change", enabled,
		"reason", err.Error(),
	); emitErr != nil {
		s.logger.WarnContext(ctx, "failed to record notification failure", "worker_id", w.ID, "error", emitErr)
	}
}

func (s *Service) emit(ctx context.Context, action audit.AuditEvent, workerID id.WorkerID, attrs ...any) error {
	if s.auditPublisher == nil {
		return nil
	}
	return audit.LogAudit(ctx, s.logger, s.auditPublisher, action, workerID, attrs...)
}

func changeLabel(enabled bool) string {
	if enabled {
		return "added"
	}
	return "removed"
}

func translateErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.New(dErrors.CodeNotFound, "health worker not found")
	}
	var domainErr *dErrors.Error
	if errors.As(err, &domainErr) {
		return err
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, "failed to update closed user group membership")
}
