package inventory

import (
	"time"

	"github.com/erp/stockengine/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ReservationStatus is the lifecycle state of a reservation
type ReservationStatus string

const (
	ReservationActive    ReservationStatus = "active"
	ReservationFulfilled ReservationStatus = "fulfilled"
	ReservationReleased  ReservationStatus = "released"
	ReservationExpired   ReservationStatus = "expired"
)

// String returns the string representation of ReservationStatus
func (s ReservationStatus) String() string {
	return string(s)
}

// IsValid returns true if the status is known
func (s ReservationStatus) IsValid() bool {
	switch s {
	case ReservationActive, ReservationFulfilled, ReservationReleased, ReservationExpired:
		return true
	}
	return false
}

// ReservationStateMachine holds every allowed reservation transition
var ReservationStateMachine = shared.NewStateMachine("reservation", map[ReservationStatus][]ReservationStatus{
	ReservationActive: {ReservationFulfilled, ReservationReleased, ReservationExpired},
})

// Reservation holds stock against a pending order without removing it
type Reservation struct {
	shared.BaseEntity
	TenantID   uuid.UUID         `gorm:"type:uuid;not null;index:idx_reservation_tenant_status,priority:1"`
	ItemKind   ItemKind          `gorm:"type:varchar(10);not null"`
	ItemID     uuid.UUID         `gorm:"type:uuid;not null;index"`
	LocationID uuid.UUID         `gorm:"type:uuid;not null"`
	Quantity   decimal.Decimal   `gorm:"type:decimal(18,4);not null"`
	Status     ReservationStatus `gorm:"type:varchar(20);not null;index:idx_reservation_tenant_status,priority:2"`
	SourceType string            `gorm:"type:varchar(40);index:idx_reservation_source,priority:1"`
	SourceID   string            `gorm:"type:varchar(64);index:idx_reservation_source,priority:2"`
	UserID     uuid.UUID         `gorm:"type:uuid;not null"`
	ResolvedAt *time.Time
	ResolvedBy *uuid.UUID `gorm:"type:uuid"`
}

// TableName returns the table name for GORM
func (Reservation) TableName() string {
	return "inventory_reservations"
}

// NewReservation creates an active reservation
func NewReservation(
	tenantID uuid.UUID,
	key BalanceKey,
	quantity decimal.Decimal,
	sourceType, sourceID string,
	userID uuid.UUID,
) (*Reservation, error) {
	if tenantID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_TENANT", "Tenant ID cannot be empty")
	}
	if err := key.Item.Validate(); err != nil {
		return nil, err
	}
	if key.LocationID == uuid.Nil {
		return nil, ErrLocationRequired
	}
	if err := ValidateQuantity(quantity); err != nil {
		return nil, err
	}
	if userID == uuid.Nil {
		return nil, ErrUserRequired
	}
	if (sourceType == "") != (sourceID == "") {
		return nil, shared.ErrInvalidInput.WithMessage("Source document needs both type and id")
	}

	return &Reservation{
		BaseEntity: shared.NewBaseEntity(),
		TenantID:   tenantID,
		ItemKind:   key.Item.Kind,
		ItemID:     key.Item.ID,
		LocationID: key.LocationID,
		Quantity:   quantity,
		Status:     ReservationActive,
		SourceType: sourceType,
		SourceID:   sourceID,
		UserID:     userID,
	}, nil
}

// Item returns the item reference of the reservation
func (r *Reservation) Item() ItemRef {
	return ItemRef{Kind: r.ItemKind, ID: r.ItemID}
}

// Key returns the balance key the reservation holds stock on
func (r *Reservation) Key() BalanceKey {
	return BalanceKey{Item: r.Item(), LocationID: r.LocationID}
}

// IsActive returns true while the reservation still holds stock
func (r *Reservation) IsActive() bool {
	return r.Status == ReservationActive
}

// IsExpiredAt reports whether an active reservation is older than maxAge at the given time
func (r *Reservation) IsExpiredAt(now time.Time, maxAge time.Duration) bool {
	return r.IsActive() && !r.CreatedAt.Add(maxAge).After(now)
}

// Fulfill marks the reservation as shipped
func (r *Reservation) Fulfill(userID uuid.UUID) error {
	return r.resolve(ReservationFulfilled, userID)
}

// Release marks the reservation as cancelled by a user
func (r *Reservation) Release(userID uuid.UUID) error {
	return r.resolve(ReservationReleased, userID)
}

// Expire marks the reservation as released by the expiry sweep
func (r *Reservation) Expire(userID uuid.UUID) error {
	return r.resolve(ReservationExpired, userID)
}

func (r *Reservation) resolve(to ReservationStatus, userID uuid.UUID) error {
	if err := ReservationStateMachine.Transition(r.Status, to); err != nil {
		return err
	}
	now := time.Now()
	r.Status = to
	r.ResolvedAt = &now
	if userID != uuid.Nil {
		r.ResolvedBy = &userID
	}
	r.Touch(now)
	return nil
}
