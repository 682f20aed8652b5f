package persistence

import (
	"context"
	"fmt"
	"time"

	"github.com/erp/stockengine/internal/domain/inventory"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// DocumentSequence is one counter row of document_sequences
type DocumentSequence struct {
	TenantID  uuid.UUID `gorm:"type:uuid;primaryKey"`
	Scope     string    `gorm:"type:varchar(40);primaryKey"`
	Period    string    `gorm:"type:varchar(20);primaryKey"`
	Value     int64     `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (DocumentSequence) TableName() string {
	return "document_sequences"
}

const nextSequenceSQL = `INSERT INTO document_sequences (tenant_id, scope, period, value, updated_at)
VALUES (?, ?, ?, 1, ?)
ON CONFLICT (tenant_id, scope, period)
DO UPDATE SET value = document_sequences.value + 1, updated_at = excluded.updated_at
RETURNING value`

// GormSequenceGenerator hands out numbers from the document_sequences table.
// The upsert is a single statement, so concurrent callers never share a value.
type GormSequenceGenerator struct {
	db *gorm.DB
}

// NewGormSequenceGenerator creates a new GormSequenceGenerator
func NewGormSequenceGenerator(db *gorm.DB) *GormSequenceGenerator {
	return &GormSequenceGenerator{db: db}
}

// Next returns the next value of (tenant, scope, period), starting at 1
func (g *GormSequenceGenerator) Next(ctx context.Context, tenantID uuid.UUID, scope, period string) (int64, error) {
	var value int64
	if err := g.db.WithContext(ctx).
		Raw(nextSequenceSQL, tenantID, scope, period, time.Now()).
		Scan(&value).Error; err != nil {
		return 0, fmt.Errorf("failed to advance sequence %s/%s: %w", scope, period, err)
	}
	if value < 1 {
		return 0, fmt.Errorf("sequence %s/%s returned no value", scope, period)
	}
	return value, nil
}

var _ inventory.SequenceGenerator = (*GormSequenceGenerator)(nil)
