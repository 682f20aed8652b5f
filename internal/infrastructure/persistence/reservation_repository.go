package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/erp/stockengine/internal/domain/inventory"
	"github.com/erp/stockengine/internal/domain/shared"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormReservationRepository implements ReservationRepository using GORM
type GormReservationRepository struct {
	db *gorm.DB
}

// NewGormReservationRepository creates a new GormReservationRepository
func NewGormReservationRepository(db *gorm.DB) *GormReservationRepository {
	return &GormReservationRepository{db: db}
}

// Create inserts a new reservation
func (r *GormReservationRepository) Create(ctx context.Context, reservation *inventory.Reservation) error {
	err := r.db.WithContext(ctx).Create(reservation).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return shared.ErrAlreadyExists
	}
	return err
}

// Save persists the resolution of a reservation
func (r *GormReservationRepository) Save(ctx context.Context, reservation *inventory.Reservation) error {
	result := r.db.WithContext(ctx).
		Model(&inventory.Reservation{}).
		Where("tenant_id = ? AND id = ?", reservation.TenantID, reservation.ID).
		Updates(map[string]any{
			"status":      reservation.Status,
			"resolved_at": reservation.ResolvedAt,
			"resolved_by": reservation.ResolvedBy,
			"updated_at":  reservation.UpdatedAt,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// FindByID finds a reservation
func (r *GormReservationRepository) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*inventory.Reservation, error) {
	return r.find(r.db.WithContext(ctx), tenantID, id)
}

// FindByIDForUpdate finds a reservation and locks its row
func (r *GormReservationRepository) FindByIDForUpdate(ctx context.Context, tenantID, id uuid.UUID) (*inventory.Reservation, error) {
	return r.find(r.db.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}), tenantID, id)
}

func (r *GormReservationRepository) find(query *gorm.DB, tenantID, id uuid.UUID) (*inventory.Reservation, error) {
	var reservation inventory.Reservation
	if err := query.Where("tenant_id = ? AND id = ?", tenantID, id).First(&reservation).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &reservation, nil
}

// List returns a page of reservations and the total count
func (r *GormReservationRepository) List(ctx context.Context, tenantID uuid.UUID, filter inventory.ReservationFilter) ([]inventory.Reservation, int64, error) {
	query := r.db.WithContext(ctx).Model(&inventory.Reservation{}).Where("tenant_id = ?", tenantID)
	if filter.Item != nil {
		query = query.Where("item_kind = ? AND item_id = ?", filter.Item.Kind, filter.Item.ID)
	}
	if filter.LocationID != nil {
		query = query.Where("location_id = ?", *filter.LocationID)
	}
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.SourceType != "" {
		query = query.Where("source_type = ?", filter.SourceType)
	}
	if filter.SourceID != "" {
		query = query.Where("source_id = ?", filter.SourceID)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var reservations []inventory.Reservation
	if err := applyPage(query, filter.Filter, ReservationSortFields, "created_at").Find(&reservations).Error; err != nil {
		return nil, 0, err
	}
	return reservations, total, nil
}

// FindActiveCreatedBefore returns ids of active reservations created before the cutoff, oldest first
func (r *GormReservationRepository) FindActiveCreatedBefore(ctx context.Context, tenantID uuid.UUID, cutoff time.Time, limit int) ([]uuid.UUID, error) {
	query := r.db.WithContext(ctx).
		Model(&inventory.Reservation{}).
		Where("tenant_id = ? AND status = ? AND created_at <= ?", tenantID, inventory.ReservationActive, cutoff).
		Order("created_at ASC, id ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}

	var ids []uuid.UUID
	if err := query.Pluck("id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

// TenantsWithActive returns every tenant that holds at least one active reservation
func (r *GormReservationRepository) TenantsWithActive(ctx context.Context) ([]uuid.UUID, error) {
	var tenants []uuid.UUID
	if err := r.db.WithContext(ctx).
		Model(&inventory.Reservation{}).
		Where("status = ?", inventory.ReservationActive).
		Distinct("tenant_id").
		Order("tenant_id").
		Pluck("tenant_id", &tenants).Error; err != nil {
		return nil, err
	}
	return tenants, nil
}

var _ inventory.ReservationRepository = (*GormReservationRepository)(nil)
