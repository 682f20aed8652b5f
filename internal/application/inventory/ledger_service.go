package inventory

import (
	"context"
	"time"

	"github.com/erp/stockengine/internal/domain/inventory"
	"github.com/erp/stockengine/internal/domain/shared"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// LedgerService answers queries over the movement ledger. Entries are only ever
// written by the mutation services, inside their transactions.
type LedgerService struct {
	ledgerRepo  inventory.LedgerRepository
	balanceRepo inventory.BalanceRepository
	logger      *zap.Logger
}

// NewLedgerService creates a new LedgerService
func NewLedgerService(
	ledgerRepo inventory.LedgerRepository,
	balanceRepo inventory.BalanceRepository,
	logger *zap.Logger,
) *LedgerService {
	return &LedgerService{
		ledgerRepo:  ledgerRepo,
		balanceRepo: balanceRepo,
		logger:      logger,
	}
}

// Query returns a page of entries matching every set field of the query
func (s *LedgerService) Query(ctx context.Context, tenantID uuid.UUID, query LedgerQuery) ([]LedgerEntryResponse, int64, error) {
	if query.Item != nil {
		if err := query.Item.Validate(); err != nil {
			return nil, 0, err
		}
	}
	if query.MovementType != nil && !query.MovementType.IsValid() {
		return nil, 0, shared.ErrInvalidInput.WithMessage("Unknown movement type")
	}
	if query.From != nil && query.To != nil && query.To.Before(*query.From) {
		return nil, 0, shared.ErrInvalidInput.WithMessage("End of the date range is before its start")
	}

	entries, total, err := s.ledgerRepo.Find(ctx, tenantID, query.filter())
	if err != nil {
		return nil, 0, err
	}
	return ToLedgerEntryResponses(entries), total, nil
}

// ByItem returns the entries of an item across locations
func (s *LedgerService) ByItem(ctx context.Context, tenantID uuid.UUID, item inventory.ItemRef, page, pageSize int) ([]LedgerEntryResponse, int64, error) {
	return s.Query(ctx, tenantID, LedgerQuery{Item: &item, Page: page, PageSize: pageSize})
}

// ByLocation returns the entries of a location
func (s *LedgerService) ByLocation(ctx context.Context, tenantID, locationID uuid.UUID, page, pageSize int) ([]LedgerEntryResponse, int64, error) {
	return s.Query(ctx, tenantID, LedgerQuery{LocationID: &locationID, Page: page, PageSize: pageSize})
}

// ByType returns the entries of one movement type
func (s *LedgerService) ByType(ctx context.Context, tenantID uuid.UUID, movementType inventory.MovementType, page, pageSize int) ([]LedgerEntryResponse, int64, error) {
	return s.Query(ctx, tenantID, LedgerQuery{MovementType: &movementType, Page: page, PageSize: pageSize})
}

// ByDocument returns every entry written for a business document, oldest first
func (s *LedgerService) ByDocument(ctx context.Context, tenantID uuid.UUID, documentType, documentID string) ([]LedgerEntryResponse, error) {
	if documentType == "" || documentID == "" {
		return nil, shared.ErrInvalidInput.WithMessage("Document type and id are required")
	}
	entries, _, err := s.Query(ctx, tenantID, LedgerQuery{
		DocumentType: documentType,
		DocumentID:   documentID,
		PageSize:     500,
		OrderDir:     "asc",
	})
	return entries, err
}

// ByUser returns the entries written by a user
func (s *LedgerService) ByUser(ctx context.Context, tenantID, userID uuid.UUID, page, pageSize int) ([]LedgerEntryResponse, int64, error) {
	return s.Query(ctx, tenantID, LedgerQuery{UserID: &userID, Page: page, PageSize: pageSize})
}

// ByDateRange returns the entries created in [from, to]
func (s *LedgerService) ByDateRange(ctx context.Context, tenantID uuid.UUID, from, to time.Time, page, pageSize int) ([]LedgerEntryResponse, int64, error) {
	return s.Query(ctx, tenantID, LedgerQuery{From: &from, To: &to, Page: page, PageSize: pageSize})
}

// Timeline returns every entry of an item at a location, oldest first
func (s *LedgerService) Timeline(ctx context.Context, tenantID uuid.UUID, item inventory.ItemRef, locationID uuid.UUID) ([]LedgerEntryResponse, error) {
	key, err := inventory.NewBalanceKey(item, locationID)
	if err != nil {
		return nil, err
	}
	entries, err := s.ledgerRepo.Timeline(ctx, tenantID, key)
	if err != nil {
		return nil, err
	}
	return ToLedgerEntryResponses(entries), nil
}

// Latest returns the newest entry of an item at a location
func (s *LedgerService) Latest(ctx context.Context, tenantID uuid.UUID, item inventory.ItemRef, locationID uuid.UUID) (*LedgerEntryResponse, error) {
	key, err := inventory.NewBalanceKey(item, locationID)
	if err != nil {
		return nil, err
	}
	entry, err := s.ledgerRepo.Latest(ctx, tenantID, key, "")
	if err != nil {
		return nil, err
	}
	response := ToLedgerEntryResponse(entry)
	return &response, nil
}

// ValidateBalanceConsistency replays both buckets of a balance and compares them
// with the cached quantities. A disagreement is reported, never corrected.
func (s *LedgerService) ValidateBalanceConsistency(ctx context.Context, tenantID uuid.UUID, item inventory.ItemRef, locationID uuid.UUID) (*ConsistencyReport, error) {
	key, err := inventory.NewBalanceKey(item, locationID)
	if err != nil {
		return nil, err
	}

	b, err := s.balanceRepo.GetOrCreate(ctx, tenantID, key)
	if err != nil {
		return nil, err
	}
	totals, err := s.ledgerRepo.Replay(ctx, tenantID, key)
	if err != nil {
		return nil, err
	}

	report := &ConsistencyReport{
		Item:              item,
		LocationID:        locationID,
		CachedAvailable:   b.QuantityAvailable,
		ReplayedAvailable: totals.Available,
		CachedReserved:    b.QuantityReserved,
		ReplayedReserved:  totals.Reserved,
		Entries:           totals.Entries,
		CheckedAt:         time.Now(),
	}
	report.Consistent = report.CachedAvailable.Equal(report.ReplayedAvailable) &&
		report.CachedReserved.Equal(report.ReplayedReserved)

	if !report.Consistent {
		s.logger.Error("Balance disagrees with its ledger",
			zap.String("tenant_id", tenantID.String()),
			zap.String("balance", key.String()),
			zap.String("cached_available", report.CachedAvailable.String()),
			zap.String("replayed_available", report.ReplayedAvailable.String()),
			zap.String("cached_reserved", report.CachedReserved.String()),
			zap.String("replayed_reserved", report.ReplayedReserved.String()),
		)
	}
	return report, nil
}
