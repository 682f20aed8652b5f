package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/erp/stockengine/internal/domain/inventory"
	"github.com/erp/stockengine/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// GormLedgerRepository implements LedgerRepository using GORM.
// It only ever inserts and selects; the table also rejects UPDATE and DELETE.
type GormLedgerRepository struct {
	db *gorm.DB
}

// NewGormLedgerRepository creates a new GormLedgerRepository
func NewGormLedgerRepository(db *gorm.DB) *GormLedgerRepository {
	return &GormLedgerRepository{db: db}
}

// Append validates and inserts entries in order. Timestamps within one call are
// made strictly increasing so that the ledger order is the append order.
func (r *GormLedgerRepository) Append(ctx context.Context, entries ...*inventory.LedgerEntry) error {
	if len(entries) == 0 {
		return nil
	}
	var previous time.Time
	for _, entry := range entries {
		if err := entry.Validate(); err != nil {
			return err
		}
		if entry.CreatedAt.IsZero() {
			entry.CreatedAt = time.Now()
		}
		if !previous.IsZero() && !entry.CreatedAt.After(previous) {
			entry.CreatedAt = previous.Add(time.Microsecond)
		}
		previous = entry.CreatedAt
	}

	err := r.db.WithContext(ctx).Create(entries).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return shared.ErrAlreadyExists.WithMessage("Ledger entry already exists")
	}
	return err
}

// FindByID finds an entry
func (r *GormLedgerRepository) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*inventory.LedgerEntry, error) {
	var entry inventory.LedgerEntry
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		First(&entry).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &entry, nil
}

// Find returns a page of entries matching the filter
func (r *GormLedgerRepository) Find(ctx context.Context, tenantID uuid.UUID, filter inventory.LedgerFilter) ([]inventory.LedgerEntry, int64, error) {
	query := r.db.WithContext(ctx).Model(&inventory.LedgerEntry{}).Where("tenant_id = ?", tenantID)
	if filter.Item != nil {
		query = query.Where("item_kind = ? AND item_id = ?", filter.Item.Kind, filter.Item.ID)
	}
	if filter.LocationID != nil {
		query = query.Where("location_id = ?", *filter.LocationID)
	}
	if filter.MovementType != nil {
		query = query.Where("movement_type = ?", *filter.MovementType)
	}
	if filter.DocumentType != "" {
		query = query.Where("document_type = ?", filter.DocumentType)
	}
	if filter.DocumentID != "" {
		query = query.Where("document_id = ?", filter.DocumentID)
	}
	if filter.UserID != nil {
		query = query.Where("user_id = ?", *filter.UserID)
	}
	if filter.From != nil {
		query = query.Where("created_at >= ?", *filter.From)
	}
	if filter.To != nil {
		query = query.Where("created_at <= ?", *filter.To)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var entries []inventory.LedgerEntry
	if err := applyPage(query, filter.Filter, LedgerSortFields, "created_at").Find(&entries).Error; err != nil {
		return nil, 0, err
	}
	return entries, total, nil
}

// Latest returns the newest entry of a balance, optionally restricted to a bucket
func (r *GormLedgerRepository) Latest(ctx context.Context, tenantID uuid.UUID, key inventory.BalanceKey, bucket inventory.Bucket) (*inventory.LedgerEntry, error) {
	query := whereBalanceKey(r.db.WithContext(ctx), tenantID, key)
	if bucket != "" {
		query = query.Where("bucket = ?", bucket)
	}

	var entry inventory.LedgerEntry
	if err := query.Order("created_at DESC").Take(&entry).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &entry, nil
}

// Timeline returns every entry of a balance, oldest first
func (r *GormLedgerRepository) Timeline(ctx context.Context, tenantID uuid.UUID, key inventory.BalanceKey) ([]inventory.LedgerEntry, error) {
	var entries []inventory.LedgerEntry
	if err := whereBalanceKey(r.db.WithContext(ctx), tenantID, key).
		Order("created_at ASC").
		Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

type bucketTotal struct {
	Bucket  inventory.Bucket
	Total   decimal.Decimal
	Entries int64
}

// Replay sums the signed quantities of a balance per bucket
func (r *GormLedgerRepository) Replay(ctx context.Context, tenantID uuid.UUID, key inventory.BalanceKey) (*inventory.ReplayTotals, error) {
	var rows []bucketTotal
	if err := whereBalanceKey(r.db.WithContext(ctx).Model(&inventory.LedgerEntry{}), tenantID, key).
		Select("bucket, COALESCE(SUM(quantity), 0) AS total, COUNT(*) AS entries").
		Group("bucket").
		Scan(&rows).Error; err != nil {
		return nil, err
	}

	totals := &inventory.ReplayTotals{Available: decimal.Zero, Reserved: decimal.Zero}
	for _, row := range rows {
		switch row.Bucket {
		case inventory.BucketAvailable:
			totals.Available = row.Total
		case inventory.BucketReserved:
			totals.Reserved = row.Total
		}
		totals.Entries += row.Entries
	}
	return totals, nil
}

var _ inventory.LedgerRepository = (*GormLedgerRepository)(nil)
