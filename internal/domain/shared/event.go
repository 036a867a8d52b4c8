package shared

import (
	"time"

	"github.com/google/uuid"
)

// DomainEvent is the interface all domain events implement
type DomainEvent interface {
	EventID() uuid.UUID
	EventType() string
	OccurredAt() time.Time
	AggregateID() uuid.UUID
	AggregateType() string
	TenantID() uuid.UUID
}

// BaseDomainEvent provides common fields for domain events
type BaseDomainEvent struct {
	ID         uuid.UUID
	Type       string
	AggID      uuid.UUID
	AggType    string
	Tenant     uuid.UUID
	OccurredOn time.Time
}

// EventID returns the unique event identifier
func (e *BaseDomainEvent) EventID() uuid.UUID {
	return e.ID
}

// EventType returns the event type name
func (e *BaseDomainEvent) EventType() string {
	return e.Type
}

// OccurredAt returns when the event occurred
func (e *BaseDomainEvent) OccurredAt() time.Time {
	return e.OccurredOn
}

// AggregateID returns the ID of the aggregate that emitted the event
func (e *BaseDomainEvent) AggregateID() uuid.UUID {
	return e.AggID
}

// AggregateType returns the aggregate type name
func (e *BaseDomainEvent) AggregateType() string {
	return e.AggType
}

// TenantID returns the tenant the event belongs to
func (e *BaseDomainEvent) TenantID() uuid.UUID {
	return e.Tenant
}

// NewBaseDomainEvent creates a new base domain event
func NewBaseDomainEvent(eventType, aggType string, aggID, tenantID uuid.UUID) BaseDomainEvent {
	return BaseDomainEvent{
		ID:         uuid.New(),
		Type:       eventType,
		AggID:      aggID,
		AggType:    aggType,
		Tenant:     tenantID,
		OccurredOn: time.Now(),
	}
}
