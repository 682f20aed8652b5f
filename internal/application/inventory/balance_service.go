package inventory

import (
	"context"
	"errors"
	"fmt"

	"github.com/erp/stockengine/internal/domain/inventory"
	"github.com/erp/stockengine/internal/domain/shared"
	"github.com/erp/stockengine/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// BalanceService owns single-balance stock mutations and balance queries.
// Reserved quantity is never changed here: every hold belongs to a reservation
// record owned by ReservationService.
type BalanceService struct {
	commitHooks
	collaborators
	balanceRepo inventory.BalanceRepository
	txScope     TransactionScope
}

// NewBalanceService creates a new BalanceService
func NewBalanceService(
	balanceRepo inventory.BalanceRepository,
	txScope TransactionScope,
	logger *zap.Logger,
) *BalanceService {
	return &BalanceService{
		commitHooks: commitHooks{logger: logger},
		balanceRepo: balanceRepo,
		txScope:     txScope,
	}
}

// GetBalance returns the balance of an item at a location, creating the zero row if needed
func (s *BalanceService) GetBalance(ctx context.Context, tenantID uuid.UUID, item inventory.ItemRef, locationID uuid.UUID) (*BalanceResponse, error) {
	key, err := inventory.NewBalanceKey(item, locationID)
	if err != nil {
		return nil, err
	}

	b, err := s.balanceRepo.GetOrCreate(ctx, tenantID, key)
	if err != nil {
		return nil, err
	}
	response := ToBalanceResponse(b)
	return &response, nil
}

// ListBalances returns a page of balances
func (s *BalanceService) ListBalances(ctx context.Context, tenantID uuid.UUID, query BalanceQuery) ([]BalanceResponse, int64, error) {
	filter := inventory.BalanceFilter{
		Filter: shared.Filter{
			Page:     query.Page,
			PageSize: query.PageSize,
			OrderBy:  query.OrderBy,
			OrderDir: query.OrderDir,
		}.Normalize(),
		Item:         query.Item,
		LocationID:   query.LocationID,
		OnlyInStock:  query.OnlyInStock,
		BelowMinimum: query.BelowMinimum,
	}

	balances, total, err := s.balanceRepo.List(ctx, tenantID, filter)
	if err != nil {
		return nil, 0, err
	}
	return ToBalanceResponses(balances), total, nil
}

// BelowMinimum returns every balance whose quantity for sale is under its minimum level
func (s *BalanceService) BelowMinimum(ctx context.Context, tenantID uuid.UUID) ([]BalanceResponse, error) {
	balances, err := s.balanceRepo.FindBelowMinimum(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	return ToBalanceResponses(balances), nil
}

// Increase adds stock. The movement type defaults to entry.
func (s *BalanceService) Increase(ctx context.Context, tenantID uuid.UUID, req MutationRequest) (*MutationResponse, error) {
	return s.mutate(ctx, tenantID, "increase", req, inventory.MovementEntry, increaseTypes,
		func(b *inventory.Balance) (inventory.BucketChange, error) {
			return b.Increase(req.Quantity)
		})
}

// Decrease removes stock, limited by quantity for sale. The movement type defaults to exit.
func (s *BalanceService) Decrease(ctx context.Context, tenantID uuid.UUID, req MutationRequest) (*MutationResponse, error) {
	return s.mutate(ctx, tenantID, "decrease", req, inventory.MovementExit, decreaseTypes,
		func(b *inventory.Balance) (inventory.BucketChange, error) {
			return b.Decrease(req.Quantity)
		})
}

// SetLevels sets or clears the minimum and maximum levels of a balance
func (s *BalanceService) SetLevels(ctx context.Context, tenantID uuid.UUID, req SetLevelsRequest) (*BalanceResponse, error) {
	key, err := inventory.NewBalanceKey(req.Item, req.LocationID)
	if err != nil {
		return nil, err
	}

	var result *inventory.Balance
	err = s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		b, err := repos.BalanceRepo().GetForUpdate(ctx, tenantID, key)
		if err != nil {
			return err
		}
		if err := b.SetLevels(req.Minimum, req.Maximum); err != nil {
			return err
		}
		if err := repos.BalanceRepo().Save(ctx, b); err != nil {
			return err
		}
		result = b
		return nil
	})
	if err != nil {
		return nil, err
	}

	response := ToBalanceResponse(result)
	return &response, nil
}

// ReceivePurchase adds purchased stock and blends its unit cost into the weighted
// average cost of the item at the location, in one transaction
func (s *BalanceService) ReceivePurchase(ctx context.Context, tenantID uuid.UUID, req ReceiveRequest) (*ReceiveResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "inventory", "receive_purchase")
	defer span.End()
	telemetry.SetAttributes(span,
		telemetry.SpanAttrTenantID, tenantID.String(),
		telemetry.SpanAttrItem, req.Item.String(),
		telemetry.SpanAttrQuantity, req.Quantity.String(),
	)

	key, err := inventory.NewBalanceKey(req.Item, req.LocationID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	if err := inventory.ValidateQuantity(req.Quantity); err != nil {
		return nil, err
	}
	if err := inventory.ValidateUnitCost(req.UnitCost); err != nil {
		return nil, err
	}
	if req.UserID == uuid.Nil {
		return nil, inventory.ErrUserRequired
	}
	if (req.DocumentType == "") != (req.DocumentID == "") {
		return nil, shared.ErrInvalidInput.WithMessage("Document reference needs both type and id")
	}
	if err := s.requireActive(ctx, tenantID, req.Item, req.LocationID); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	var (
		w      *stockWriter
		entry  *inventory.LedgerEntry
		record *inventory.CostRecord
	)
	err = s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		w = newStockWriter(ctx, repos, tenantID, req.UserID)
		b, err := w.lock(key)
		if err != nil {
			return err
		}

		record, err = repos.CostRepo().FindByKey(ctx, tenantID, key)
		if errors.Is(err, shared.ErrNotFound) {
			record = inventory.NewCostRecord(tenantID, key)
		} else if err != nil {
			return err
		}
		if err := record.ApplyReceipt(b.QuantityAvailable, req.Quantity, req.UnitCost); err != nil {
			return err
		}

		change, err := b.Increase(req.Quantity)
		if err != nil {
			return err
		}
		entry, err = w.record(b, inventory.MovementPurchase, change,
			documentOption(req.DocumentType, req.DocumentID),
			inventory.WithReason(req.Reason),
			inventory.WithUnitCost(req.UnitCost),
		)
		if err != nil {
			return err
		}
		if err := repos.CostRepo().Save(ctx, record); err != nil {
			return err
		}
		return w.save()
	})
	if err != nil {
		s.onFailure(ctx, tenantID, "receive_purchase", err)
		telemetry.RecordError(span, err)
		return nil, err
	}

	s.afterCommit(ctx, w)
	telemetry.SetOK(span)

	s.logger.Info("Purchase received",
		zap.String("tenant_id", tenantID.String()),
		zap.String("item", req.Item.String()),
		zap.String("location_id", req.LocationID.String()),
		zap.String("quantity", req.Quantity.String()),
		zap.String("average_cost", record.AverageCost.String()),
	)

	return &ReceiveResponse{
		Balance:      ToBalanceResponse(w.locked[key]),
		Entry:        ToLedgerEntryResponse(entry),
		AverageCost:  record.AverageCost,
		LastUnitCost: record.LastUnitCost,
	}, nil
}

var (
	increaseTypes = []inventory.MovementType{
		inventory.MovementEntry,
		inventory.MovementPurchase,
		inventory.MovementTransferIn,
		inventory.MovementAdjustment,
		inventory.MovementBOMDisassembly,
	}
	decreaseTypes = []inventory.MovementType{
		inventory.MovementExit,
		inventory.MovementSale,
		inventory.MovementTransferOut,
		inventory.MovementAdjustment,
		inventory.MovementBOMAssembly,
	}
)

type mutation func(b *inventory.Balance) (inventory.BucketChange, error)

// mutate runs one balance mutation: lock, verify, mutate, append the entry, save.
// allowed lists the movement types a caller may pick; nil means the default only.
func (s *BalanceService) mutate(
	ctx context.Context,
	tenantID uuid.UUID,
	operation string,
	req MutationRequest,
	defaultType inventory.MovementType,
	allowed []inventory.MovementType,
	apply mutation,
) (*MutationResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "inventory", operation)
	defer span.End()
	telemetry.SetAttributes(span,
		telemetry.SpanAttrTenantID, tenantID.String(),
		telemetry.SpanAttrItem, req.Item.String(),
		telemetry.SpanAttrLocationID, req.LocationID.String(),
		telemetry.SpanAttrQuantity, req.Quantity.String(),
	)

	key, movement, err := s.validate(req, defaultType, allowed)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	if err := s.requireActive(ctx, tenantID, req.Item, req.LocationID); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	var w *stockWriter
	err = s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		w = newStockWriter(ctx, repos, tenantID, req.UserID)
		b, err := w.lock(key)
		if err != nil {
			return err
		}

		change, err := apply(b)
		if err != nil {
			return err
		}
		if _, err := w.record(b, movement, change,
			documentOption(req.DocumentType, req.DocumentID),
			inventory.WithReason(req.Reason),
		); err != nil {
			return err
		}
		return w.save()
	})
	if err != nil {
		s.onFailure(ctx, tenantID, operation, err)
		telemetry.RecordError(span, err)
		return nil, err
	}

	s.afterCommit(ctx, w)
	telemetry.SetOK(span)

	s.logger.Debug("Balance mutated",
		zap.String("operation", operation),
		zap.String("tenant_id", tenantID.String()),
		zap.String("balance", key.String()),
		zap.String("quantity", req.Quantity.String()),
	)

	return &MutationResponse{
		Balance: ToBalanceResponse(w.locked[key]),
		Entries: entryResponses(w.entries),
	}, nil
}

func (s *BalanceService) validate(
	req MutationRequest,
	defaultType inventory.MovementType,
	allowed []inventory.MovementType,
) (inventory.BalanceKey, inventory.MovementType, error) {
	key, err := req.Key()
	if err != nil {
		return inventory.BalanceKey{}, "", err
	}
	if err := inventory.ValidateQuantity(req.Quantity); err != nil {
		return inventory.BalanceKey{}, "", err
	}
	if req.UserID == uuid.Nil {
		return inventory.BalanceKey{}, "", inventory.ErrUserRequired
	}

	movement := req.MovementType
	if movement == "" {
		movement = defaultType
	}
	if movement != defaultType && !containsType(allowed, movement) {
		return inventory.BalanceKey{}, "", shared.ErrInvalidInput.WithMessage(
			fmt.Sprintf("Movement type %q is not allowed here", movement))
	}
	if (req.DocumentType == "") != (req.DocumentID == "") {
		return inventory.BalanceKey{}, "", shared.ErrInvalidInput.WithMessage("Document reference needs both type and id")
	}
	return key, movement, nil
}

func containsType(types []inventory.MovementType, t inventory.MovementType) bool {
	for _, candidate := range types {
		if candidate == t {
			return true
		}
	}
	return false
}

func documentOption(documentType, documentID string) inventory.LedgerOption {
	if documentType == "" {
		return func(*inventory.LedgerEntry) {}
	}
	return inventory.WithDocument(documentType, documentID)
}
