package inventory

import (
	"context"

	"github.com/erp/stockengine/internal/domain/inventory"
	"github.com/erp/stockengine/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// BOMService manages virtual kits: products without stock of their own whose
// availability is derived from their components
type BOMService struct {
	commitHooks
	collaborators
	bomRepo     inventory.BOMRepository
	balanceRepo inventory.BalanceRepository
	txScope     TransactionScope
}

// NewBOMService creates a new BOMService
func NewBOMService(
	bomRepo inventory.BOMRepository,
	balanceRepo inventory.BalanceRepository,
	txScope TransactionScope,
	logger *zap.Logger,
) *BOMService {
	return &BOMService{
		commitHooks: commitHooks{logger: logger},
		bomRepo:     bomRepo,
		balanceRepo: balanceRepo,
		txScope:     txScope,
	}
}

// SetComponent creates a component link or replaces its required quantity
func (s *BOMService) SetComponent(ctx context.Context, tenantID uuid.UUID, req SetComponentRequest) (*ComponentResponse, error) {
	component, err := inventory.NewBOMComponent(tenantID, req.ParentID, req.ComponentID, req.QuantityRequired)
	if err != nil {
		return nil, err
	}
	for _, id := range []uuid.UUID{req.ParentID, req.ComponentID} {
		if err := s.requireActiveItem(ctx, tenantID, inventory.ProductItem(id)); err != nil {
			return nil, err
		}
	}
	if err := s.bomRepo.Upsert(ctx, component); err != nil {
		return nil, err
	}
	response := ToComponentResponse(component)
	return &response, nil
}

// RemoveComponent deletes a component link
func (s *BOMService) RemoveComponent(ctx context.Context, tenantID, parentID, componentID uuid.UUID) error {
	return s.bomRepo.Delete(ctx, tenantID, parentID, componentID)
}

// Components lists the components of a kit
func (s *BOMService) Components(ctx context.Context, tenantID, parentID uuid.UUID) ([]ComponentResponse, error) {
	components, err := s.bomRepo.FindByParent(ctx, tenantID, parentID)
	if err != nil {
		return nil, err
	}
	out := make([]ComponentResponse, len(components))
	for i := range components {
		out[i] = ToComponentResponse(&components[i])
	}
	return out, nil
}

// AvailableKits returns how many kits can be built from component stock for sale.
// With a nil location, component stock is summed across all locations first.
func (s *BOMService) AvailableKits(ctx context.Context, tenantID, parentID uuid.UUID, locationID *uuid.UUID) (*AvailableKitsResponse, error) {
	components, err := s.bomRepo.FindByParent(ctx, tenantID, parentID)
	if err != nil {
		return nil, err
	}
	if len(components) == 0 {
		return nil, inventory.ErrConfiguration.WithMessage("Kit has no components")
	}

	ids := make([]uuid.UUID, len(components))
	for i, c := range components {
		ids[i] = c.ComponentProductID
	}
	stock, err := s.balanceRepo.SumForSaleByProducts(ctx, tenantID, ids, locationID)
	if err != nil {
		return nil, err
	}

	kits, err := inventory.AvailableKits(components, stock)
	if err != nil {
		return nil, err
	}

	response := &AvailableKitsResponse{
		ParentID:      parentID,
		LocationID:    locationID,
		AvailableKits: kits,
		Components:    make([]ComponentAvailability, len(components)),
	}
	for i, c := range components {
		onHand := stock[c.ComponentProductID]
		response.Components[i] = ComponentAvailability{
			ComponentID:      c.ComponentProductID,
			QuantityRequired: c.QuantityRequired,
			QuantityForSale:  onHand,
			BuildableKits:    onHand.Div(c.QuantityRequired).Floor(),
		}
	}
	return response, nil
}

// AssembleKits consumes the component stock of a number of kits at a location
func (s *BOMService) AssembleKits(ctx context.Context, tenantID uuid.UUID, req KitRequest) (*KitResponse, error) {
	return s.kitOperation(ctx, tenantID, req, inventory.MovementBOMAssembly)
}

// DisassembleKits returns the component stock of a number of kits to a location
func (s *BOMService) DisassembleKits(ctx context.Context, tenantID uuid.UUID, req KitRequest) (*KitResponse, error) {
	return s.kitOperation(ctx, tenantID, req, inventory.MovementBOMDisassembly)
}

func (s *BOMService) kitOperation(ctx context.Context, tenantID uuid.UUID, req KitRequest, movement inventory.MovementType) (*KitResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "inventory", string(movement))
	defer span.End()

	if !req.Kits.IsPositive() || !req.Kits.Equal(req.Kits.Floor()) {
		return nil, inventory.ErrInvalidQuantity.WithMessage("Kits must be a positive whole number")
	}
	if req.LocationID == uuid.Nil {
		return nil, inventory.ErrLocationRequired
	}
	if req.UserID == uuid.Nil {
		return nil, inventory.ErrUserRequired
	}

	components, err := s.bomRepo.FindByParent(ctx, tenantID, req.ParentID)
	if err != nil {
		return nil, err
	}
	if len(components) == 0 {
		return nil, inventory.ErrConfiguration.WithMessage("Kit has no components")
	}
	if err := s.requireActiveLocations(ctx, tenantID, req.LocationID); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	keys := make([]inventory.BalanceKey, len(components))
	for i, c := range components {
		if err := s.requireActiveItem(ctx, tenantID, c.Item()); err != nil {
			telemetry.RecordError(span, err)
			return nil, err
		}
		keys[i] = inventory.BalanceKey{Item: c.Item(), LocationID: req.LocationID}
	}

	var w *stockWriter
	err = s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		w = newStockWriter(ctx, repos, tenantID, req.UserID)
		if err := w.lockAll(keys...); err != nil {
			return err
		}

		doc := inventory.WithDocument(inventory.DocumentTypeBOM, req.ParentID.String())
		for i, c := range components {
			b := w.locked[keys[i]]
			quantity := c.QuantityFor(req.Kits)

			var change inventory.BucketChange
			var err error
			if movement == inventory.MovementBOMAssembly {
				change, err = b.Decrease(quantity)
			} else {
				change, err = b.Increase(quantity)
			}
			if err != nil {
				return err
			}
			if _, err := w.record(b, movement, change, doc, inventory.WithReason(req.Reason)); err != nil {
				return err
			}
		}
		return w.save()
	})
	if err != nil {
		s.onFailure(ctx, tenantID, string(movement), err)
		telemetry.RecordError(span, err)
		return nil, err
	}

	s.afterCommit(ctx, w)
	telemetry.SetOK(span)

	s.logger.Info("Kit components moved",
		zap.String("tenant_id", tenantID.String()),
		zap.String("movement", string(movement)),
		zap.String("parent_id", req.ParentID.String()),
		zap.String("kits", req.Kits.String()),
	)

	return &KitResponse{
		ParentID:   req.ParentID,
		LocationID: req.LocationID,
		Kits:       req.Kits,
		Entries:    entryResponses(w.entries),
	}, nil
}
