package shared

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// DomainEvent is a fact raised by an aggregate
type DomainEvent interface {
	EventID() uuid.UUID
	EventType() string
	AggregateID() uuid.UUID
	TenantID() uuid.UUID
}

// EventHandler reacts to published events
type EventHandler interface {
	Handle(ctx context.Context, event DomainEvent) error
	// EventTypes lists the types the handler wants; empty means all of them
	EventTypes() []string
}

// EventPublisher hands events to their handlers
type EventPublisher interface {
	Publish(ctx context.Context, events ...DomainEvent) error
}

// EventHeader identifies an event. Concrete events embed it next to their payload.
type EventHeader struct {
	ID            uuid.UUID `json:"event_id"`
	Type          string    `json:"event_type"`
	AggregateKind string    `json:"aggregate_type"`
	SourceID      uuid.UUID `json:"aggregate_id"`
	Tenant        uuid.UUID `json:"tenant_id"`
	RaisedAt      time.Time `json:"raised_at"`
}

// NewEventHeader stamps a new event of eventType raised by the given aggregate
func NewEventHeader(eventType, aggregateKind string, aggregateID, tenantID uuid.UUID) EventHeader {
	return EventHeader{
		ID:            uuid.New(),
		Type:          eventType,
		AggregateKind: aggregateKind,
		SourceID:      aggregateID,
		Tenant:        tenantID,
		RaisedAt:      time.Now(),
	}
}

func (h *EventHeader) EventID() uuid.UUID     { return h.ID }
func (h *EventHeader) EventType() string      { return h.Type }
func (h *EventHeader) AggregateID() uuid.UUID { return h.SourceID }
func (h *EventHeader) TenantID() uuid.UUID    { return h.Tenant }
