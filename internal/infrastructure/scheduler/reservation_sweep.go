package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	appinventory "github.com/erp/stockengine/internal/application/inventory"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ReservationSweeper is the part of the reservation service the sweep drives
type ReservationSweeper interface {
	TenantsWithActiveReservations(ctx context.Context) ([]uuid.UUID, error)
	ReleaseExpired(ctx context.Context, tenantID uuid.UUID, now time.Time) (*appinventory.SweepStats, error)
}

// Lease coordinates the sweep across instances. TryAcquire returns ok=false
// without error when another instance holds it.
type Lease interface {
	TryAcquire(ctx context.Context, name string, ttl time.Duration) (release func(context.Context) error, ok bool, err error)
}

// JobSubmitter queues jobs. *Scheduler implements it.
type JobSubmitter interface {
	SubmitJob(job *Job) error
}

// SweepLeaseName is the lease shared by every instance running the sweep
const SweepLeaseName = "reservation-sweep"

// ReservationSweepExecutor runs RESERVATION_SWEEP jobs
type ReservationSweepExecutor struct {
	sweeper ReservationSweeper
	logger  *zap.Logger
}

// NewReservationSweepExecutor creates the executor
func NewReservationSweepExecutor(sweeper ReservationSweeper, logger *zap.Logger) *ReservationSweepExecutor {
	return &ReservationSweepExecutor{sweeper: sweeper, logger: logger}
}

// Execute releases the expired reservations of the job's tenant
func (e *ReservationSweepExecutor) Execute(ctx context.Context, job *Job) error {
	if job.Kind != JobKindReservationSweep {
		return fmt.Errorf("%w: %s", ErrUnknownJobKind, job.Kind)
	}

	stats, err := e.sweeper.ReleaseExpired(ctx, job.TenantID, job.ScheduledAt)
	if err != nil {
		return err
	}

	if stats.Expired > 0 || stats.Failed > 0 {
		e.logger.Info("Expired reservations released",
			zap.String("tenant_id", job.TenantID.String()),
			zap.Time("cutoff", stats.Cutoff),
			zap.Int("found", stats.Found),
			zap.Int("expired", stats.Expired),
			zap.Int("skipped", stats.Skipped),
			zap.Int("failed", stats.Failed),
		)
	}
	if stats.Failed > 0 {
		return fmt.Errorf("%d reservations of tenant %s could not be released", stats.Failed, job.TenantID)
	}
	return nil
}

// ReservationSweepConfig holds the trigger's timing
type ReservationSweepConfig struct {
	Interval   time.Duration
	LeaseTTL   time.Duration
	MaxRetries int
}

// ReservationSweepTrigger submits one sweep job per tenant with active
// reservations on every tick
type ReservationSweepTrigger struct {
	config    ReservationSweepConfig
	scheduler JobSubmitter
	sweeper   ReservationSweeper
	lease     Lease
	logger    *zap.Logger
	now       func() time.Time

	cancel       context.CancelFunc
	wg           sync.WaitGroup
	mu           sync.Mutex
	isRunning    bool
	releaseLease func(context.Context) error
}

// NewReservationSweepTrigger creates the trigger. lease may be nil when only
// one instance runs the sweep.
func NewReservationSweepTrigger(
	config ReservationSweepConfig,
	scheduler JobSubmitter,
	sweeper ReservationSweeper,
	lease Lease,
	logger *zap.Logger,
) *ReservationSweepTrigger {
	if config.Interval <= 0 {
		config.Interval = time.Hour
	}
	if config.LeaseTTL <= 0 {
		config.LeaseTTL = config.Interval
	}
	return &ReservationSweepTrigger{
		config:    config,
		scheduler: scheduler,
		sweeper:   sweeper,
		lease:     lease,
		logger:    logger,
		now:       time.Now,
	}
}

// Start starts the ticker loop
func (t *ReservationSweepTrigger) Start(ctx context.Context) error {
	t.mu.Lock()
	if t.isRunning {
		t.mu.Unlock()
		return nil
	}
	t.isRunning = true
	t.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	t.cancel = cancel

	t.wg.Add(1)
	go t.runLoop(ctx)

	t.logger.Info("Reservation sweep trigger started",
		zap.Duration("interval", t.config.Interval),
		zap.Bool("lease", t.lease != nil),
	)
	return nil
}

// Stop stops the loop and hands back a held lease
func (t *ReservationSweepTrigger) Stop(ctx context.Context) error {
	t.mu.Lock()
	if !t.isRunning {
		t.mu.Unlock()
		return nil
	}
	t.isRunning = false
	t.mu.Unlock()

	if t.cancel != nil {
		t.cancel()
	}

	done := make(chan struct{})
	go func() {
		t.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}

	t.mu.Lock()
	release := t.releaseLease
	t.releaseLease = nil
	t.mu.Unlock()
	if release != nil {
		if err := release(ctx); err != nil {
			t.logger.Warn("Failed to release sweep lease", zap.Error(err))
		}
	}

	t.logger.Info("Reservation sweep trigger stopped")
	return nil
}

func (t *ReservationSweepTrigger) runLoop(ctx context.Context) {
	defer t.wg.Done()

	ticker := time.NewTicker(t.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := t.RunOnce(ctx); err != nil {
				t.logger.Error("Reservation sweep round failed", zap.Error(err))
			}
		}
	}
}

// RunOnce performs one sweep round and returns how many jobs were submitted.
// Tenants whose previous job is still queued or running are skipped.
func (t *ReservationSweepTrigger) RunOnce(ctx context.Context) (int, error) {
	if t.lease != nil {
		release, ok, err := t.lease.TryAcquire(ctx, SweepLeaseName, t.config.LeaseTTL)
		if err != nil {
			return 0, err
		}
		if !ok {
			t.logger.Debug("Sweep lease held by another instance")
			return 0, nil
		}
		t.mu.Lock()
		t.releaseLease = release
		t.mu.Unlock()
	}

	tenantIDs, err := t.sweeper.TenantsWithActiveReservations(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list tenants with active reservations: %w", err)
	}

	now := t.now()
	submitted := 0
	for _, tenantID := range tenantIDs {
		job := NewJob(JobKindReservationSweep, tenantID, now, t.config.MaxRetries)
		err := t.scheduler.SubmitJob(job)
		switch {
		case err == nil:
			submitted++
		case errors.Is(err, ErrJobAlreadyQueued):
			t.logger.Debug("Sweep still running for tenant", zap.String("tenant_id", tenantID.String()))
		default:
			t.logger.Warn("Failed to submit sweep job",
				zap.String("tenant_id", tenantID.String()),
				zap.Error(err),
			)
		}
	}

	t.logger.Debug("Reservation sweep round submitted",
		zap.Int("tenants", len(tenantIDs)),
		zap.Int("submitted", submitted),
	)
	return submitted, nil
}

var _ JobSubmitter = (*Scheduler)(nil)
