package audit

import (
	"context"
	"time"

	"github.com/google/uuid"

	id "healthnet/pkg/domain"
)

// EventCategory classifies audit events by their primary purpose.
// This drives retention and routing downstream of the outbox.
type EventCategory string

const (
	// CategoryCompliance covers events with programme-eligibility significance:
	// a worker gaining or losing closed user group benefits, or being verified.
	CategoryCompliance EventCategory = "compliance"

	// CategoryOperations covers routine activity useful for debugging.
	CategoryOperations EventCategory = "operations"
)

// Event is emitted from domain logic to capture key actions. Keep it
// transport-agnostic so stores and sinks can fan out.
type Event struct {
	ID        uuid.UUID
	Category  EventCategory
	Timestamp time.Time
	WorkerID  id.WorkerID
	Action    string
	// Fields carries the event-specific payload, e.g. phone and new state for
	// closed user group changes.
	Fields    map[string]any
	RequestID string
	// ActorID is the operator who triggered the action, empty for automatic
	// transitions.
	ActorID string
}

type AuditEvent string

const (
	EventClosedUserGroupChange    AuditEvent = "closed-user-group-change"
	EventClosedUserGroupRequested AuditEvent = "closed_user_group_requested"
	EventWorkerAutoVerified       AuditEvent = "worker_auto_verified"
	EventWorkerManuallyVerified   AuditEvent = "worker_manually_verified"
	EventNotificationFailed       AuditEvent = "notification_failed"
)

var eventCategories = map[AuditEvent]EventCategory{
	EventClosedUserGroupChange:  CategoryCompliance,
	EventWorkerAutoVerified:     CategoryCompliance,
	EventWorkerManuallyVerified: CategoryCompliance,

	EventClosedUserGroupRequested: CategoryOperations,
	EventNotificationFailed:       CategoryOperations,
}

// Category returns the EventCategory for this audit event.
// Unknown events default to CategoryOperations.
func (e AuditEvent) Category() EventCategory {
	if cat, ok := eventCategories[e]; ok {
		return cat
	}
	return CategoryOperations
}

// Store persists audit events. Implementations must be append-only.
type Store interface {
	Append(ctx context.Context, event Event) error
	ListByWorker(ctx context.Context, workerID id.WorkerID) ([]Event, error)
}
