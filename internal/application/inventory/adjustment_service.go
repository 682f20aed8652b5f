package inventory

import (
	"context"
	"fmt"
	"time"

	"github.com/erp/stockengine/internal/domain/inventory"
	"github.com/erp/stockengine/internal/domain/shared"
	"github.com/erp/stockengine/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// AdjustmentConfig holds numbering and reporting settings of adjustments
type AdjustmentConfig struct {
	NumberPrefix      string
	FrequentWindow    time.Duration
	FrequentThreshold int64
}

// DefaultAdjustmentConfig returns the default adjustment configuration
func DefaultAdjustmentConfig() AdjustmentConfig {
	return AdjustmentConfig{
		NumberPrefix:      inventory.DefaultAdjustmentPrefix,
		FrequentWindow:    inventory.DefaultFrequentAdjustmentWindow,
		FrequentThreshold: inventory.DefaultFrequentAdjustmentThreshold,
	}
}

// AdjustmentService records numbered manual stock corrections
type AdjustmentService struct {
	commitHooks
	collaborators
	adjustmentRepo inventory.AdjustmentRepository
	txScope        TransactionScope
	sequences      inventory.SequenceGenerator
	config         AdjustmentConfig
}

// NewAdjustmentService creates a new AdjustmentService. Zero config fields take
// their defaults. With nil sequences numbers come from the transaction's
// SequenceRepo and stay gap-free; an external generator such as Redis keeps a
// number drawn by a transaction that later rolls back.
func NewAdjustmentService(
	adjustmentRepo inventory.AdjustmentRepository,
	txScope TransactionScope,
	sequences inventory.SequenceGenerator,
	config AdjustmentConfig,
	logger *zap.Logger,
) *AdjustmentService {
	defaults := DefaultAdjustmentConfig()
	if config.NumberPrefix == "" {
		config.NumberPrefix = defaults.NumberPrefix
	}
	if config.FrequentWindow <= 0 {
		config.FrequentWindow = defaults.FrequentWindow
	}
	if config.FrequentThreshold <= 0 {
		config.FrequentThreshold = defaults.FrequentThreshold
	}

	return &AdjustmentService{
		commitHooks:    commitHooks{logger: logger},
		adjustmentRepo: adjustmentRepo,
		txScope:        txScope,
		sequences:      sequences,
		config:         config,
	}
}

// Adjust applies a manual correction. The balance row is locked, the quantity
// applied, the adjustment number drawn, and one adjustment ledger entry written
// with the adjustment record, all in one transaction.
func (s *AdjustmentService) Adjust(ctx context.Context, tenantID uuid.UUID, req AdjustRequest) (*AdjustmentResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "inventory", "adjust")
	defer span.End()
	telemetry.SetAttributes(span,
		telemetry.SpanAttrTenantID, tenantID.String(),
		telemetry.SpanAttrItem, req.Item.String(),
		"direction", string(req.Direction),
		"reason", string(req.Reason),
	)

	date := time.Now()
	if req.Date != nil {
		date = *req.Date
	}
	in := inventory.AdjustmentInput{
		Key:         inventory.BalanceKey{Item: req.Item, LocationID: req.LocationID},
		Direction:   req.Direction,
		Quantity:    req.Quantity,
		Reason:      req.Reason,
		Description: req.Description,
		UserID:      req.UserID,
		Date:        date,
	}
	if err := in.Validate(); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	if err := s.requireActive(ctx, tenantID, req.Item, req.LocationID); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	var (
		w          *stockWriter
		adjustment *inventory.Adjustment
	)
	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		w = newStockWriter(ctx, repos, tenantID, req.UserID)
		b, err := w.lock(in.Key)
		if err != nil {
			return err
		}

		var change inventory.BucketChange
		if in.Direction == inventory.AdjustmentIncrease {
			change, err = b.Increase(in.Quantity)
		} else {
			change, err = b.Decrease(in.Quantity)
		}
		if err != nil {
			return err
		}

		sequences := s.sequences
		if sequences == nil {
			sequences = repos.SequenceRepo()
		}
		period := inventory.AdjustmentPeriod(date)
		seq, err := sequences.Next(ctx, tenantID, inventory.AdjustmentSequenceScope, period)
		if err != nil {
			return fmt.Errorf("failed to draw adjustment number: %w", err)
		}
		number := inventory.FormatAdjustmentNumber(s.config.NumberPrefix, period, seq)

		adjustment, err = inventory.NewAdjustment(tenantID, number, in, change)
		if err != nil {
			return err
		}
		if _, err := w.record(b, inventory.MovementAdjustment, change,
			inventory.WithDocument(inventory.DocumentTypeAdjustment, adjustment.ID.String()),
			inventory.WithReason(adjustment.LedgerReason()),
		); err != nil {
			return err
		}
		if err := repos.AdjustmentRepo().Create(ctx, adjustment); err != nil {
			return err
		}
		return w.save()
	})
	if err != nil {
		s.onFailure(ctx, tenantID, "adjust", err)
		telemetry.RecordError(span, err)
		return nil, err
	}

	s.afterCommit(ctx, w)
	telemetry.SetOK(span)

	s.logger.Info("Stock adjusted",
		zap.String("tenant_id", tenantID.String()),
		zap.String("number", adjustment.Number),
		zap.String("item", req.Item.String()),
		zap.String("direction", string(req.Direction)),
		zap.String("quantity", req.Quantity.String()),
		zap.String("reason", string(req.Reason)),
	)

	response := ToAdjustmentResponse(adjustment)
	return &response, nil
}

// ListAdjustments returns a page of adjustments, newest first
func (s *AdjustmentService) ListAdjustments(ctx context.Context, tenantID uuid.UUID, query AdjustmentQuery) ([]AdjustmentResponse, int64, error) {
	if query.Direction != nil && !query.Direction.IsValid() {
		return nil, 0, shared.ErrInvalidInput.WithMessage("Unknown adjustment direction")
	}
	if query.Reason != nil && !query.Reason.IsValid() {
		return nil, 0, inventory.ErrInvalidReason
	}

	filter := inventory.AdjustmentFilter{
		Filter: shared.Filter{
			Page:     query.Page,
			PageSize: query.PageSize,
			OrderBy:  "adjustment_date",
		}.Normalize(),
		From:       query.From,
		To:         query.To,
		LocationID: query.LocationID,
		Direction:  query.Direction,
		Reason:     query.Reason,
		UserID:     query.UserID,
	}

	adjustments, total, err := s.adjustmentRepo.List(ctx, tenantID, filter)
	if err != nil {
		return nil, 0, err
	}
	out := make([]AdjustmentResponse, len(adjustments))
	for i := range adjustments {
		out[i] = ToAdjustmentResponse(&adjustments[i])
	}
	return out, total, nil
}

// FrequentAdjustments groups the adjustments of the trailing window by item and
// location and flags groups at or above the threshold
func (s *AdjustmentService) FrequentAdjustments(ctx context.Context, tenantID uuid.UUID, now time.Time) (*FrequentAdjustmentReport, error) {
	since := now.Add(-s.config.FrequentWindow)

	groups, err := s.adjustmentRepo.GroupByItemLocation(ctx, tenantID, since)
	if err != nil {
		return nil, err
	}

	report := &FrequentAdjustmentReport{
		Since:     since,
		Until:     now,
		Threshold: s.config.FrequentThreshold,
		Lines:     make([]FrequentAdjustmentLine, 0, len(groups)),
	}
	for _, line := range inventory.FlagFrequentAdjustments(groups, s.config.FrequentThreshold) {
		if line.Flagged {
			report.Flagged++
		}
		report.Lines = append(report.Lines, FrequentAdjustmentLine{
			Item:          inventory.ItemRef{Kind: line.ItemKind, ID: line.ItemID},
			LocationID:    line.LocationID,
			Count:         line.Count,
			TotalIncrease: line.TotalIncrease,
			TotalDecrease: line.TotalDecrease,
			LastAdjusted:  line.LastAdjusted,
			Flagged:       line.Flagged,
		})
	}
	return report, nil
}
