package audit

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "healthnet/pkg/domain"
	"healthnet/pkg/requestcontext"
)

type captureEmitter struct {
	events []Event
	err    error
}

func (c *captureEmitter) Emit(_ context.Context, e Event) error {
	c.events = append(c.events, e)
	return c.err
}

func TestLogAudit(t *testing.T) {
	t.Run("emits event with fields and request metadata", func(t *testing.T) {
		var buf bytes.Buffer
		logger := slog.New(slog.NewJSONHandler(&buf, nil))
		emitter := &captureEmitter{}
		ctx := requestcontext.WithRequestID(context.Background(), "req-1")
		ctx = requestcontext.WithActorID(ctx, "admin-7")

		err := LogAudit(ctx, logger, emitter, EventClosedUserGroupChange, id.WorkerID(3),
			"phone", "+27000", "change", true, "id", int64(3))
		require.NoError(t, err)

		require.Len(t, emitter.events, 1)
		e := emitter.events[0]
		assert.Equal(t, id.WorkerID(3), e.WorkerID)
		assert.Equal(t, "closed-user-group-change", e.Action)
		assert.Equal(t, "req-1", e.RequestID)
		assert.Equal(t, "admin-7", e.ActorID)
		assert.Equal(t, map[string]any{"phone": "+27000", "change": true, "id": int64(3)}, e.Fields)
		assert.Contains(t, buf.String(), `"log_type":"audit"`)
	})

	t.Run("returns emitter error", func(t *testing.T) {
		emitter := &captureEmitter{err: errors.New("down")}
		err := LogAudit(context.Background(), slog.New(slog.DiscardHandler), emitter, EventWorkerAutoVerified, id.WorkerID(1))
		assert.Error(t, err)
	})

	t.Run("nil emitter only logs", func(t *testing.T) {
		assert.NoError(t, LogAudit(context.Background(), nil, nil, EventWorkerAutoVerified, id.WorkerID(1)))
	})
}

func TestAuditEventCategory(t *testing.T) {
	assert.Equal(t, CategoryCompliance, EventClosedUserGroupChange.Category())
	assert.Equal(t, CategoryOperations, EventClosedUserGroupRequested.Category())
	assert.Equal(t, CategoryOperations, AuditEvent("unknown").Category())
}
