package shared

import (
	"time"

	"github.com/google/uuid"
)

// BaseEntity holds the identity and timestamps shared by persisted records
type BaseEntity struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

// NewBaseEntity creates an entity with a fresh ID, created and updated now
func NewBaseEntity() BaseEntity {
	now := time.Now()
	return BaseEntity{
		ID:        uuid.New(),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Touch advances UpdatedAt. The new value is strictly greater than the previous
// one even when the wall clock has not moved or went backwards.
func (e *BaseEntity) Touch(now time.Time) {
	if !now.After(e.UpdatedAt) {
		now = e.UpdatedAt.Add(time.Microsecond)
	}
	e.UpdatedAt = now
}
