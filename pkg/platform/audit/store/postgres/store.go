package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	id "healthnet/pkg/domain"
	audit "healthnet/pkg/platform/audit"
	txcontext "healthnet/pkg/platform/tx"
)

// Store implements audit.Store using the transactional outbox pattern.
// Events are written to the outbox table inside the caller's transaction when
// one is present, and published to Kafka by the outbox relay.
type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// payload is the JSON document published to Kafka.
// Field names match audit.Event so consumers can decode it directly.
type payload struct {
	ID        string         `json:"ID"`
	Category  string         `json:"Category"`
	Timestamp string         `json:"Timestamp"`
	WorkerID  int64          `json:"WorkerID,omitempty"`
	Action    string         `json:"Action"`
	Fields    map[string]any `json:"Fields,omitempty"`
	RequestID string         `json:"RequestID,omitempty"`
	ActorID   string         `json:"ActorID,omitempty"`
}

// Append writes an audit event to the outbox table.
func (s *Store) Append(ctx context.Context, event audit.Event) error {
	eventID := event.ID
	if eventID == uuid.Nil {
		eventID = uuid.New()
	}
	ts := event.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}

	body, err := json.Marshal(payload{
		ID:        eventID.String(),
		Category:  string(audit.AuditEvent(event.Action).Category()),
		Timestamp: ts.Format(time.RFC3339Nano),
		WorkerID:  int64(event.WorkerID),
		Action:    event.Action,
		Fields:    event.Fields,
		RequestID: event.RequestID,
		ActorID:   event.ActorID,
	})
	if err != nil {
		return fmt.Errorf("marshal audit payload: %w", err)
	}

	aggregateType := "audit"
	aggregateID := eventID.String()
	if !event.WorkerID.IsZero() {
		aggregateType = "worker"
		aggregateID = event.WorkerID.String()
	}

	query := `
		INSERT INTO outbox (id, aggregate_type, aggregate_id, event_type, payload, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err = txcontext.Executor(ctx, s.db).ExecContext(ctx, query,
		eventID,
		aggregateType,
		aggregateID,
		event.Action,
		body,
		ts,
	)
	if err != nil {
		return fmt.Errorf("insert outbox entry: %w", err)
	}
	return nil
}

// ListByWorker decodes the outbox entries recorded for a worker, oldest first.
// Published entries are kept, so this covers the full history.
func (s *Store) ListByWorker(ctx context.Context, workerID id.WorkerID) ([]audit.Event, error) {
	query := `
		SELECT payload
		FROM outbox
		WHERE aggregate_type = 'worker' AND aggregate_id = $1
		ORDER BY created_at ASC, id ASC
	`
	rows, err := txcontext.Executor(ctx, s.db).QueryContext(ctx, query, workerID.String())
	if err != nil {
		return nil, fmt.Errorf("query outbox: %w", err)
	}
	defer rows.Close()

	var events []audit.Event
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scan outbox payload: %w", err)
		}
		event, err := Decode(raw)
		if err != nil {
			return nil, err
		}
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate outbox: %w", err)
	}
	return events, nil
}

// Decode parses an outbox payload back into an audit.Event.
func Decode(raw []byte) (audit.Event, error) {
	var p payload
	if err := json.Unmarshal(raw, &p); err != nil {
		return audit.Event{}, fmt.Errorf("decode audit payload: %w", err)
	}
	event := audit.Event{
		Category:  audit.EventCategory(p.Category),
		WorkerID:  id.WorkerID(p.WorkerID),
		Action:    p.Action,
		Fields:    p.Fields,
		RequestID: p.RequestID,
		ActorID:   p.ActorID,
	}
	if parsed, err := uuid.Parse(p.ID); err == nil {
		event.ID = parsed
	}
	if ts, err := time.Parse(time.RFC3339Nano, p.Timestamp); err == nil {
		event.Timestamp = ts
	}
	return event, nil
}
