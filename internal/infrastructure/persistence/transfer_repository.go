package persistence

import (
	"context"
	"errors"

	"github.com/erp/stockengine/internal/domain/inventory"
	"github.com/erp/stockengine/internal/domain/shared"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormTransferRepository implements TransferRepository using GORM
type GormTransferRepository struct {
	db *gorm.DB
}

// NewGormTransferRepository creates a new GormTransferRepository
func NewGormTransferRepository(db *gorm.DB) *GormTransferRepository {
	return &GormTransferRepository{db: db}
}

// Create inserts a new transfer
func (r *GormTransferRepository) Create(ctx context.Context, transfer *inventory.Transfer) error {
	err := r.db.WithContext(ctx).Create(transfer).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return shared.ErrAlreadyExists
	}
	return err
}

// Save persists the cancellation fields of a transfer
func (r *GormTransferRepository) Save(ctx context.Context, transfer *inventory.Transfer) error {
	result := r.db.WithContext(ctx).
		Model(&inventory.Transfer{}).
		Where("tenant_id = ? AND id = ?", transfer.TenantID, transfer.ID).
		Updates(map[string]any{
			"status":       transfer.Status,
			"cancelled_at": transfer.CancelledAt,
			"cancelled_by": transfer.CancelledBy,
			"updated_at":   transfer.UpdatedAt,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// FindByID finds a transfer
func (r *GormTransferRepository) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*inventory.Transfer, error) {
	return r.find(r.db.WithContext(ctx), tenantID, id)
}

// FindByIDForUpdate finds a transfer and locks its row
func (r *GormTransferRepository) FindByIDForUpdate(ctx context.Context, tenantID, id uuid.UUID) (*inventory.Transfer, error) {
	return r.find(r.db.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}), tenantID, id)
}

func (r *GormTransferRepository) find(query *gorm.DB, tenantID, id uuid.UUID) (*inventory.Transfer, error) {
	var transfer inventory.Transfer
	if err := query.Where("tenant_id = ? AND id = ?", tenantID, id).First(&transfer).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &transfer, nil
}

// List returns a page of transfers and the total count
func (r *GormTransferRepository) List(ctx context.Context, tenantID uuid.UUID, filter inventory.TransferFilter) ([]inventory.Transfer, int64, error) {
	query := r.db.WithContext(ctx).Model(&inventory.Transfer{}).Where("tenant_id = ?", tenantID)
	if filter.Item != nil {
		query = query.Where("item_kind = ? AND item_id = ?", filter.Item.Kind, filter.Item.ID)
	}
	if filter.LocationID != nil {
		query = query.Where("(from_location_id = ? OR to_location_id = ?)", *filter.LocationID, *filter.LocationID)
	}
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
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

	var transfers []inventory.Transfer
	if err := applyPage(query, filter.Filter, TransferSortFields, "created_at").Find(&transfers).Error; err != nil {
		return nil, 0, err
	}
	return transfers, total, nil
}

var _ inventory.TransferRepository = (*GormTransferRepository)(nil)
