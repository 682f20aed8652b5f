package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/erp/stockengine/internal/domain/inventory"
	"github.com/erp/stockengine/internal/domain/shared"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormAdjustmentRepository implements AdjustmentRepository using GORM
type GormAdjustmentRepository struct {
	db *gorm.DB
}

// NewGormAdjustmentRepository creates a new GormAdjustmentRepository
func NewGormAdjustmentRepository(db *gorm.DB) *GormAdjustmentRepository {
	return &GormAdjustmentRepository{db: db}
}

// Create inserts an adjustment. A reused number fails with ErrAlreadyExists.
func (r *GormAdjustmentRepository) Create(ctx context.Context, adjustment *inventory.Adjustment) error {
	err := r.db.WithContext(ctx).Create(adjustment).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return shared.ErrAlreadyExists.WithMessage("Adjustment number " + adjustment.Number + " already exists")
	}
	return err
}

// FindByID finds an adjustment
func (r *GormAdjustmentRepository) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*inventory.Adjustment, error) {
	return r.findOne(ctx, "tenant_id = ? AND id = ?", tenantID, id)
}

// FindByNumber finds an adjustment by its document number
func (r *GormAdjustmentRepository) FindByNumber(ctx context.Context, tenantID uuid.UUID, number string) (*inventory.Adjustment, error) {
	return r.findOne(ctx, "tenant_id = ? AND number = ?", tenantID, number)
}

func (r *GormAdjustmentRepository) findOne(ctx context.Context, where string, args ...any) (*inventory.Adjustment, error) {
	var adjustment inventory.Adjustment
	if err := r.db.WithContext(ctx).Where(where, args...).First(&adjustment).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &adjustment, nil
}

// List returns a page of adjustments and the total count
func (r *GormAdjustmentRepository) List(ctx context.Context, tenantID uuid.UUID, filter inventory.AdjustmentFilter) ([]inventory.Adjustment, int64, error) {
	query := r.db.WithContext(ctx).Model(&inventory.Adjustment{}).Where("tenant_id = ?", tenantID)
	if filter.From != nil {
		query = query.Where("adjustment_date >= ?", *filter.From)
	}
	if filter.To != nil {
		query = query.Where("adjustment_date <= ?", *filter.To)
	}
	if filter.LocationID != nil {
		query = query.Where("location_id = ?", *filter.LocationID)
	}
	if filter.Direction != nil {
		query = query.Where("direction = ?", *filter.Direction)
	}
	if filter.Reason != nil {
		query = query.Where("reason = ?", *filter.Reason)
	}
	if filter.UserID != nil {
		query = query.Where("user_id = ?", *filter.UserID)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var adjustments []inventory.Adjustment
	if err := applyPage(query, filter.Filter, AdjustmentSortFields, "adjustment_date").Find(&adjustments).Error; err != nil {
		return nil, 0, err
	}
	return adjustments, total, nil
}

// GroupByItemLocation counts adjustments dated at or after since, per item and location
func (r *GormAdjustmentRepository) GroupByItemLocation(ctx context.Context, tenantID uuid.UUID, since time.Time) ([]inventory.AdjustmentGroup, error) {
	var groups []inventory.AdjustmentGroup
	if err := r.db.WithContext(ctx).
		Model(&inventory.Adjustment{}).
		Select(`item_kind, item_id, location_id,
			COUNT(*) AS count,
			COALESCE(SUM(CASE WHEN direction = ? THEN quantity ELSE 0 END), 0) AS total_increase,
			COALESCE(SUM(CASE WHEN direction = ? THEN quantity ELSE 0 END), 0) AS total_decrease,
			MAX(adjustment_date) AS last_adjusted`,
			inventory.AdjustmentIncrease, inventory.AdjustmentDecrease).
		Where("tenant_id = ? AND adjustment_date >= ?", tenantID, since).
		Group("item_kind, item_id, location_id").
		Scan(&groups).Error; err != nil {
		return nil, err
	}
	return groups, nil
}

var _ inventory.AdjustmentRepository = (*GormAdjustmentRepository)(nil)
