package shared

import (
	"time"

	"github.com/google/uuid"
)

// DomainEvent is a fact about one aggregate of one tenant, published after
// the change that produced it has committed.
type DomainEvent interface {
	EventID() uuid.UUID
	EventType() string
	OccurredAt() time.Time
	AggregateID() uuid.UUID
	TenantID() uuid.UUID
}

// EventEnvelope carries the fields every event shares. Concrete events
// embed it and add their payload.
type EventEnvelope struct {
	ID        uuid.UUID `json:"event_id"`
	Type      string    `json:"event_type"`
	At        time.Time `json:"occurred_at"`
	Aggregate uuid.UUID `json:"aggregate_id"`
	Tenant    uuid.UUID `json:"tenant_id"`
}

// NewEnvelope stamps a new event of eventType about aggregateID
func NewEnvelope(eventType string, aggregateID, tenantID uuid.UUID) EventEnvelope {
	return EventEnvelope{
		ID:        uuid.New(),
		Type:      eventType,
		At:        time.Now().UTC(),
		Aggregate: aggregateID,
		Tenant:    tenantID,
	}
}

func (e EventEnvelope) EventID() uuid.UUID     { return e.ID }
func (e EventEnvelope) EventType() string      { return e.Type }
func (e EventEnvelope) OccurredAt() time.Time  { return e.At }
func (e EventEnvelope) AggregateID() uuid.UUID { return e.Aggregate }
func (e EventEnvelope) TenantID() uuid.UUID    { return e.Tenant }
