package events

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Type names an event
type Type string

const (
	DemoRequested       Type = "demo.requested"
	PatientCreated      Type = "patient.created"
	ClaimCreated        Type = "claim.created"
	AppealStatusChanged Type = "appeal.status_changed"
)

// Event is a fact emitted after a request has done its primary work. Delivery is best
// effort and at most once.
type Event struct {
	ID             string      `json:"id"`
	Type           Type        `json:"type"`
	OrganizationID string      `json:"organization_id,omitempty"`
	OccurredAt     time.Time   `json:"occurred_at"`
	Data           interface{} `json:"data"`
}

// New creates an event stamped with a fresh id and the current time
func New(t Type, orgID string, data interface{}) Event {
	return Event{
		ID:             uuid.New().String(),
		Type:           t,
		OrganizationID: orgID,
		OccurredAt:     time.Now().UTC(),
		Data:           data,
	}
}

// Publisher accepts events without blocking. It reports whether the event was queued.
type Publisher interface {
	Publish(ctx context.Context, e Event) bool
}

// NopPublisher drops every event
type NopPublisher struct{}

// Publish implements Publisher
func (NopPublisher) Publish(context.Context, Event) bool { return false }

// AppealStatusChange is the data of an AppealStatusChanged event
type AppealStatusChange struct {
	AppealID  string `json:"appeal_id"`
	ClaimID   string `json:"claim_id"`
	OldStatus string `json:"old_status"`
	NewStatus string `json:"new_status"`
	ActorID   string `json:"actor_id"`
}
