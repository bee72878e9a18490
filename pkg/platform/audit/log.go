package audit

import (
	"context"
	"log/slog"

	"healthnet/pkg/attrs"
	id "healthnet/pkg/domain"
	"healthnet/pkg/requestcontext"
)

// Emitter is the append side of a publisher.
type Emitter interface {
	Emit(ctx context.Context, event Event) error
}

// LogAudit writes an audit line to the structured logger and emits the event.
// attrList uses slog key/value pairs; they become the event's Fields.
// Emission failures are logged and returned.
func LogAudit(ctx context.Context, logger *slog.Logger, emitter Emitter, action AuditEvent, workerID id.WorkerID, attrList ...any) error {
	requestID := requestcontext.RequestID(ctx)
	actor := requestcontext.ActorID(ctx)

	args := append([]any{}, attrList...)
	if requestID != "" {
		args = append(args, "request_id", requestID)
	}
	args = append(args, "event", string(action), "log_type", "audit")

	if logger != nil {
		logger.InfoContext(ctx, string(action), args...)
	}
	if emitter == nil {
		return nil
	}

	err := emitter.Emit(ctx, Event{
		WorkerID:  workerID,
		Action:    string(action),
		Fields:    attrs.ToMap(attrList),
		RequestID: requestID,
		ActorID:   actor,
	})
	if err != nil && logger != nil {
		logger.ErrorContext(ctx, "audit emit failed",
			"event", string(action),
			"worker_id", workerID,
			"phone_present", attrs.ExtractString(attrList, "phone") != "",
			"error", err,
		)
	}
	return err
}
