package inventory

import (
	"context"
	"time"

	"github.com/erp/stockengine/internal/domain/inventory"
	"github.com/erp/stockengine/internal/domain/shared"
	"github.com/erp/stockengine/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// defaultSweepBatchSize bounds the reservations read by one sweep query
const defaultSweepBatchSize = 500

// ReservationService manages reservations of stock for pending orders and
// releases those left active past the tenant's expiry
type ReservationService struct {
	commitHooks
	collaborators
	reservationRepo inventory.ReservationRepository
	txScope         TransactionScope
	policy          inventory.ReservationPolicy
	batchSize       int
}

// NewReservationService creates a new ReservationService
func NewReservationService(
	reservationRepo inventory.ReservationRepository,
	txScope TransactionScope,
	policy inventory.ReservationPolicy,
	logger *zap.Logger,
) *ReservationService {
	if policy == nil {
		policy = inventory.NewStaticReservationPolicy(inventory.DefaultReservationExpiryDays, nil)
	}
	return &ReservationService{
		commitHooks:     commitHooks{logger: logger},
		reservationRepo: reservationRepo,
		txScope:         txScope,
		policy:          policy,
		batchSize:       defaultSweepBatchSize,
	}
}

// SetSweepBatchSize changes how many expired reservations one sweep query reads
func (s *ReservationService) SetSweepBatchSize(n int) {
	if n > 0 {
		s.batchSize = n
	}
}

// Reserve holds stock for a source document and records the reservation.
// Release, Fulfill and the expiry sweep skip the reference checks so holds on a
// retired item or location can still be resolved.
func (s *ReservationService) Reserve(ctx context.Context, tenantID uuid.UUID, req ReserveRequest) (*ReservationResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "inventory", "create_reservation")
	defer span.End()

	key, err := inventory.NewBalanceKey(req.Item, req.LocationID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	reservation, err := inventory.NewReservation(tenantID, key, req.Quantity, req.SourceType, req.SourceID, req.UserID)
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
		change, err := b.Reserve(req.Quantity)
		if err != nil {
			return err
		}
		if _, err := w.record(b, inventory.MovementReserve, change, reservationDocument(reservation)); err != nil {
			return err
		}
		if err := repos.ReservationRepo().Create(ctx, reservation); err != nil {
			return err
		}
		return w.save()
	})
	if err != nil {
		s.onFailure(ctx, tenantID, "reserve", err)
		telemetry.RecordError(span, err)
		return nil, err
	}

	s.afterCommit(ctx, w)
	telemetry.SetOK(span)

	response := ToReservationResponse(reservation)
	return &response, nil
}

// Release cancels an active reservation and returns its stock to sale
func (s *ReservationService) Release(ctx context.Context, tenantID, reservationID, userID uuid.UUID) (*ReservationResponse, error) {
	return s.resolve(ctx, tenantID, reservationID, userID, "release_reservation",
		func(r *inventory.Reservation, w *stockWriter, b *inventory.Balance) error {
			change, err := b.Release(r.Quantity)
			if err != nil {
				return err
			}
			if _, err := w.record(b, inventory.MovementRelease, change, reservationDocument(r)); err != nil {
				return err
			}
			return r.Release(userID)
		})
}

// Fulfill confirms the order behind a reservation: the reserved stock leaves the
// location with a release entry and a sale entry. The reservation row is locked
// before the balance row, the same order the expiry sweep uses.
func (s *ReservationService) Fulfill(ctx context.Context, tenantID, reservationID, userID uuid.UUID) (*ReservationResponse, error) {
	return s.resolve(ctx, tenantID, reservationID, userID, "fulfill_reservation",
		func(r *inventory.Reservation, w *stockWriter, b *inventory.Balance) error {
			changes, err := b.FulfillReservation(r.Quantity)
			if err != nil {
				return err
			}
			types := []inventory.MovementType{inventory.MovementRelease, inventory.MovementSale}
			for i, change := range changes {
				if _, err := w.record(b, types[i], change, reservationDocument(r)); err != nil {
					return err
				}
			}
			return r.Fulfill(userID)
		})
}

type resolution func(r *inventory.Reservation, w *stockWriter, b *inventory.Balance) error

func (s *ReservationService) resolve(
	ctx context.Context,
	tenantID, reservationID, userID uuid.UUID,
	operation string,
	apply resolution,
) (*ReservationResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "inventory", operation)
	defer span.End()

	if userID == uuid.Nil {
		return nil, inventory.ErrUserRequired
	}

	var (
		w           *stockWriter
		reservation *inventory.Reservation
	)
	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		var err error
		reservation, err = repos.ReservationRepo().FindByIDForUpdate(ctx, tenantID, reservationID)
		if err != nil {
			return err
		}
		if !reservation.IsActive() {
			return shared.ErrInvalidStateTransition.WithMessage(
				"Reservation is already " + reservation.Status.String())
		}

		w = newStockWriter(ctx, repos, tenantID, userID)
		b, err := w.lock(reservation.Key())
		if err != nil {
			return err
		}
		if err := apply(reservation, w, b); err != nil {
			return err
		}
		if err := repos.ReservationRepo().Save(ctx, reservation); err != nil {
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

	response := ToReservationResponse(reservation)
	return &response, nil
}

// Get returns a reservation
func (s *ReservationService) Get(ctx context.Context, tenantID, reservationID uuid.UUID) (*ReservationResponse, error) {
	reservation, err := s.reservationRepo.FindByID(ctx, tenantID, reservationID)
	if err != nil {
		return nil, err
	}
	response := ToReservationResponse(reservation)
	return &response, nil
}

// List returns a page of reservations, newest first
func (s *ReservationService) List(ctx context.Context, tenantID uuid.UUID, query ReservationQuery) ([]ReservationResponse, int64, error) {
	if query.Status != nil && !query.Status.IsValid() {
		return nil, 0, shared.ErrInvalidInput.WithMessage("Unknown reservation status")
	}
	filter := inventory.ReservationFilter{
		Filter:     shared.Filter{Page: query.Page, PageSize: query.PageSize}.Normalize(),
		Item:       query.Item,
		LocationID: query.LocationID,
		Status:     query.Status,
		SourceType: query.SourceType,
		SourceID:   query.SourceID,
	}

	reservations, total, err := s.reservationRepo.List(ctx, tenantID, filter)
	if err != nil {
		return nil, 0, err
	}
	out := make([]ReservationResponse, len(reservations))
	for i := range reservations {
		out[i] = ToReservationResponse(&reservations[i])
	}
	return out, total, nil
}

// TenantsWithActiveReservations returns the tenants the expiry sweep has to visit
func (s *ReservationService) TenantsWithActiveReservations(ctx context.Context) ([]uuid.UUID, error) {
	return s.reservationRepo.TenantsWithActive(ctx)
}

// ReleaseExpired releases every active reservation of a tenant created before
// now minus the tenant's expiry. Each reservation is handled in its own
// transaction; one failure does not stop the sweep. Running it twice is harmless:
// reservations that are no longer active are skipped.
func (s *ReservationService) ReleaseExpired(ctx context.Context, tenantID uuid.UUID, now time.Time) (*SweepStats, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "inventory", "release_expired_reservations")
	defer span.End()

	maxAge := time.Duration(s.policy.ExpiryDays(tenantID)) * 24 * time.Hour
	stats := &SweepStats{
		TenantID:    tenantID,
		Cutoff:      now.Add(-maxAge),
		ProcessedAt: time.Now(),
	}
	telemetry.SetAttributes(span, telemetry.SpanAttrTenantID, tenantID.String(), "cutoff", stats.Cutoff.String())

	for {
		ids, err := s.reservationRepo.FindActiveCreatedBefore(ctx, tenantID, stats.Cutoff, s.batchSize)
		if err != nil {
			s.logger.Error("Failed to find expired reservations",
				zap.String("tenant_id", tenantID.String()),
				zap.Error(err),
			)
			telemetry.RecordError(span, err)
			return nil, err
		}
		stats.Found += len(ids)

		progressed := false
		for _, id := range ids {
			expired, err := s.expireOne(ctx, tenantID, id, now, maxAge)
			switch {
			case err != nil:
				s.logger.Error("Failed to release expired reservation",
					zap.String("tenant_id", tenantID.String()),
					zap.String("reservation_id", id.String()),
					zap.Error(err),
				)
				stats.Failed++
			case expired:
				stats.Expired++
				progressed = true
			default:
				stats.Skipped++
			}
		}
		if len(ids) < s.batchSize || !progressed {
			break
		}
	}

	s.metrics.RecordReservationsExpired(ctx, tenantID, int64(stats.Expired))
	if stats.Found > 0 {
		s.logger.Info("Completed reservation expiry sweep",
			zap.String("tenant_id", tenantID.String()),
			zap.Int("found", stats.Found),
			zap.Int("expired", stats.Expired),
			zap.Int("skipped", stats.Skipped),
			zap.Int("failed", stats.Failed),
		)
	}
	telemetry.SetOK(span)
	return stats, nil
}

// expireOne locks the reservation, re-checks it, then locks the balance and
// releases the stock. Returns false when the reservation was resolved meanwhile.
func (s *ReservationService) expireOne(ctx context.Context, tenantID, reservationID uuid.UUID, now time.Time, maxAge time.Duration) (bool, error) {
	expired := false
	var w *stockWriter
	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		reservation, err := repos.ReservationRepo().FindByIDForUpdate(ctx, tenantID, reservationID)
		if err != nil {
			return err
		}
		if !reservation.IsExpiredAt(now, maxAge) {
			return nil
		}

		w = newStockWriter(ctx, repos, tenantID, inventory.SystemUserID)
		b, err := w.lock(reservation.Key())
		if err != nil {
			return err
		}
		change, err := b.Release(reservation.Quantity)
		if err != nil {
			return err
		}
		if _, err := w.record(b, inventory.MovementRelease, change,
			reservationDocument(reservation),
			inventory.WithReason(inventory.ReasonAutoReleaseExpired),
		); err != nil {
			return err
		}
		if err := reservation.Expire(inventory.SystemUserID); err != nil {
			return err
		}
		if err := repos.ReservationRepo().Save(ctx, reservation); err != nil {
			return err
		}
		if err := w.save(); err != nil {
			return err
		}
		expired = true
		return nil
	})
	if err != nil {
		s.onFailure(ctx, tenantID, "expire_reservation", err)
		return false, err
	}
	if expired {
		s.afterCommit(ctx, w)
	}
	return expired, nil
}

func reservationDocument(r *inventory.Reservation) inventory.LedgerOption {
	return inventory.WithDocument(inventory.DocumentTypeReservation, r.ID.String())
}
