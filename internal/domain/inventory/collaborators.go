package inventory

import (
	"context"

	"github.com/google/uuid"
)

// ItemInfo is what the engine needs to know about a catalog item
type ItemInfo struct {
	Ref    ItemRef
	Name   string
	Active bool
}

// LocationInfo is what the engine needs to know about a stock location
type LocationInfo struct {
	ID     uuid.UUID
	Name   string
	Active bool
}

// ItemLookup resolves items owned by the catalog.
// Implementations return shared.ErrNotFound for unknown items.
type ItemLookup interface {
	GetItem(ctx context.Context, tenantID uuid.UUID, item ItemRef) (*ItemInfo, error)
}

// LocationLookup resolves stock locations.
// Implementations return shared.ErrNotFound for unknown locations.
type LocationLookup interface {
	GetLocation(ctx context.Context, tenantID, locationID uuid.UUID) (*LocationInfo, error)
}

// SequenceGenerator hands out gap-tolerant, strictly increasing numbers per
// (tenant, scope, period). The first call for a new period returns 1.
type SequenceGenerator interface {
	Next(ctx context.Context, tenantID uuid.UUID, scope, period string) (int64, error)
}

// ReservationPolicy decides how long reservations of a tenant may stay active
type ReservationPolicy interface {
	ExpiryDays(tenantID uuid.UUID) int
}

// DefaultReservationExpiryDays applies when nothing else is configured
const DefaultReservationExpiryDays = 7

// StaticReservationPolicy is a ReservationPolicy with a default and per-tenant overrides
type StaticReservationPolicy struct {
	DefaultDays int
	Overrides   map[uuid.UUID]int
}

// NewStaticReservationPolicy creates a policy. Non-positive values fall back to
// DefaultReservationExpiryDays.
func NewStaticReservationPolicy(defaultDays int, overrides map[uuid.UUID]int) *StaticReservationPolicy {
	if defaultDays <= 0 {
		defaultDays = DefaultReservationExpiryDays
	}
	return &StaticReservationPolicy{DefaultDays: defaultDays, Overrides: overrides}
}

// ExpiryDays returns the expiry of a tenant
func (p *StaticReservationPolicy) ExpiryDays(tenantID uuid.UUID) int {
	if days, ok := p.Overrides[tenantID]; ok && days > 0 {
		return days
	}
	return p.DefaultDays
}

var _ ReservationPolicy = (*StaticReservationPolicy)(nil)
