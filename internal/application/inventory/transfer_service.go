package inventory

import (
	"context"

	"github.com/erp/stockengine/internal/domain/inventory"
	"github.com/erp/stockengine/internal/domain/shared"
	"github.com/erp/stockengine/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// TransferService moves stock between locations
type TransferService struct {
	commitHooks
	collaborators
	transferRepo inventory.TransferRepository
	txScope      TransactionScope
}

// NewTransferService creates a new TransferService
func NewTransferService(
	transferRepo inventory.TransferRepository,
	txScope TransactionScope,
	items inventory.ItemLookup,
	locations inventory.LocationLookup,
	logger *zap.Logger,
) *TransferService {
	return &TransferService{
		commitHooks:   commitHooks{logger: logger},
		collaborators: collaborators{items: items, locations: locations},
		transferRepo:  transferRepo,
		txScope:       txScope,
	}
}

// Transfer moves stock from one location to another. Both balance rows are locked
// in key order; the origin is decreased, the destination increased, and two ledger
// entries sharing the transfer id are written together with the transfer record.
func (s *TransferService) Transfer(ctx context.Context, tenantID uuid.UUID, req TransferRequest) (*TransferResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "inventory", "transfer")
	defer span.End()
	telemetry.SetAttributes(span,
		telemetry.SpanAttrTenantID, tenantID.String(),
		telemetry.SpanAttrItem, req.Item.String(),
		"from_location_id", req.FromLocationID.String(),
		"to_location_id", req.ToLocationID.String(),
		telemetry.SpanAttrQuantity, req.Quantity.String(),
	)

	transfer, err := inventory.NewTransfer(tenantID, req.Item, req.FromLocationID, req.ToLocationID, req.Quantity, req.Reason, req.UserID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	if err := s.requireActiveItem(ctx, tenantID, req.Item); err != nil {
		return nil, err
	}
	if err := s.requireActiveLocations(ctx, tenantID, req.FromLocationID, req.ToLocationID); err != nil {
		return nil, err
	}

	var w *stockWriter
	err = s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		w = newStockWriter(ctx, repos, tenantID, req.UserID)
		if err := move(w, transfer.FromKey(), transfer.ToKey(), transfer.Quantity,
			inventory.DocumentTypeTransfer, transfer.ID.String(), transfer.Reason); err != nil {
			return err
		}
		if err := repos.TransferRepo().Create(ctx, transfer); err != nil {
			return err
		}
		return w.save()
	})
	if err != nil {
		s.onFailure(ctx, tenantID, "transfer", err)
		telemetry.RecordError(span, err)
		return nil, err
	}

	s.afterCommit(ctx, w)
	telemetry.SetOK(span)

	s.logger.Info("Stock transferred",
		zap.String("tenant_id", tenantID.String()),
		zap.String("transfer_id", transfer.ID.String()),
		zap.String("item", req.Item.String()),
		zap.String("quantity", req.Quantity.String()),
	)

	response := ToTransferResponse(transfer)
	response.Entries = entryResponses(w.entries)
	return &response, nil
}

// Cancel reverses a completed transfer: the quantity goes back from the destination
// to the origin under a transfer_cancellation document, then the transfer is
// marked cancelled. Fails with insufficient quantity if the destination no longer
// holds the stock.
func (s *TransferService) Cancel(ctx context.Context, tenantID, transferID, userID uuid.UUID) (*TransferResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "inventory", "cancel_transfer")
	defer span.End()

	if userID == uuid.Nil {
		return nil, inventory.ErrUserRequired
	}

	var (
		w        *stockWriter
		transfer *inventory.Transfer
	)
	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		var err error
		transfer, err = repos.TransferRepo().FindByIDForUpdate(ctx, tenantID, transferID)
		if err != nil {
			return err
		}
		if err := transfer.Cancel(userID); err != nil {
			return err
		}

		w = newStockWriter(ctx, repos, tenantID, userID)
		if err := move(w, transfer.ToKey(), transfer.FromKey(), transfer.Quantity,
			inventory.DocumentTypeTransferCancellation, transfer.ID.String(), "cancel transfer"); err != nil {
			return err
		}
		if err := repos.TransferRepo().Save(ctx, transfer); err != nil {
			return err
		}
		return w.save()
	})
	if err != nil {
		s.onFailure(ctx, tenantID, "cancel_transfer", err)
		telemetry.RecordError(span, err)
		return nil, err
	}

	s.afterCommit(ctx, w)
	telemetry.SetOK(span)

	s.logger.Info("Transfer cancelled",
		zap.String("tenant_id", tenantID.String()),
		zap.String("transfer_id", transferID.String()),
		zap.String("user_id", userID.String()),
	)

	response := ToTransferResponse(transfer)
	response.Entries = entryResponses(w.entries)
	return &response, nil
}

// GetTransfer returns a transfer
func (s *TransferService) GetTransfer(ctx context.Context, tenantID, transferID uuid.UUID) (*TransferResponse, error) {
	transfer, err := s.transferRepo.FindByID(ctx, tenantID, transferID)
	if err != nil {
		return nil, err
	}
	response := ToTransferResponse(transfer)
	return &response, nil
}

// ListTransfers returns a page of transfers, newest first
func (s *TransferService) ListTransfers(ctx context.Context, tenantID uuid.UUID, query TransferQuery) ([]TransferResponse, int64, error) {
	filter := inventory.TransferFilter{
		Filter:     shared.Filter{Page: query.Page, PageSize: query.PageSize}.Normalize(),
		Item:       query.Item,
		LocationID: query.LocationID,
		Status:     query.Status,
		From:       query.From,
		To:         query.To,
	}

	transfers, total, err := s.transferRepo.List(ctx, tenantID, filter)
	if err != nil {
		return nil, 0, err
	}
	out := make([]TransferResponse, len(transfers))
	for i := range transfers {
		out[i] = ToTransferResponse(&transfers[i])
	}
	return out, total, nil
}

// move locks both balances in key order, then decreases from and increases to
func move(w *stockWriter, from, to inventory.BalanceKey, quantity decimal.Decimal, documentType, documentID, reason string) error {
	if err := w.lockAll(from, to); err != nil {
		return err
	}
	origin, destination := w.locked[from], w.locked[to]

	out, err := origin.Decrease(quantity)
	if err != nil {
		return err
	}
	in, err := destination.Increase(quantity)
	if err != nil {
		return err
	}

	doc := inventory.WithDocument(documentType, documentID)
	if _, err := w.record(origin, inventory.MovementTransferOut, out, doc, inventory.WithReason(reason)); err != nil {
		return err
	}
	_, err = w.record(destination, inventory.MovementTransferIn, in, doc, inventory.WithReason(reason))
	return err
}
