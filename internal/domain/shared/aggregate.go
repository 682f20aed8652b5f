package shared

import "github.com/google/uuid"

// TenantAggregateRoot is embedded by aggregates owned by one tenant. Version is
// the optimistic lock column. Events raised by a mutation stay queued on the
// aggregate until the transaction that saved it has committed.
type TenantAggregateRoot struct {
	BaseEntity
	TenantID uuid.UUID     `gorm:"type:uuid;not null;index"`
	Version  int           `gorm:"not null;default:1"`
	pending  []DomainEvent `gorm:"-"`
}

// NewTenantAggregateRoot starts an aggregate at version 1
func NewTenantAggregateRoot(tenantID uuid.UUID) TenantAggregateRoot {
	return TenantAggregateRoot{
		BaseEntity: NewBaseEntity(),
		TenantID:   tenantID,
		Version:    1,
	}
}

// IncrementVersion moves the lock version past a successful save
func (a *TenantAggregateRoot) IncrementVersion() {
	a.Version++
}

// Raise queues an event
func (a *TenantAggregateRoot) Raise(event DomainEvent) {
	a.pending = append(a.pending, event)
}

// PendingEvents returns the events raised since the last ClearEvents
func (a *TenantAggregateRoot) PendingEvents() []DomainEvent {
	return a.pending
}

// ClearEvents drops the queue, normally right after it was collected for publishing
func (a *TenantAggregateRoot) ClearEvents() {
	a.pending = nil
}
