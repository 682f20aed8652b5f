package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"

	inventoryapp "github.com/erp/stockengine/internal/application/inventory"
	"github.com/erp/stockengine/internal/domain/inventory"
	"github.com/erp/stockengine/internal/domain/shared"
	"github.com/erp/stockengine/internal/infrastructure/auth"
	"github.com/erp/stockengine/internal/infrastructure/cache"
	"github.com/erp/stockengine/internal/infrastructure/config"
	"github.com/erp/stockengine/internal/infrastructure/event"
	"github.com/erp/stockengine/internal/infrastructure/logger"
	"github.com/erp/stockengine/internal/infrastructure/persistence"
	"github.com/erp/stockengine/internal/infrastructure/scheduler"
	"github.com/erp/stockengine/internal/infrastructure/telemetry"
	"github.com/erp/stockengine/internal/interfaces/http/handler"
	"github.com/erp/stockengine/internal/interfaces/http/middleware"
	"github.com/erp/stockengine/internal/interfaces/http/router"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// version is overridden at build time with -ldflags "-X main.version=..."
var version = "dev"

//	@title			Stock Engine API
//	@version		1.0
//	@description	Inventory balances, stock ledger, transfers, adjustments, reservations and kits.

//	@BasePath	/api/v1

//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				Bearer token authentication. Format: "Bearer {token}"

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	log, err := logger.New(logger.Config{
		Level:   cfg.Log.Level,
		Format:  cfg.Log.Format,
		Output:  cfg.Log.Output,
		Service: cfg.App.Name,
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() { _ = log.Sync() }()

	log.Info("Starting stock engine",
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
		zap.String("version", version),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Telemetry
	tracerProvider, err := telemetry.NewTracerProvider(ctx, telemetry.Config{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		ServiceName:       cfg.Telemetry.ServiceName,
		ServiceVersion:    version,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize tracer provider", zap.Error(err))
	}
	defer shutdown(log, "tracer provider", tracerProvider.Shutdown)

	meterProvider, err := telemetry.NewMeterProvider(ctx, telemetry.MetricsConfig{
		Enabled:           cfg.Telemetry.MetricsEnabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ExportInterval:    cfg.Telemetry.MetricsInterval,
		ServiceName:       cfg.Telemetry.ServiceName,
		ServiceVersion:    version,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize meter provider", zap.Error(err))
	}
	defer shutdown(log, "meter provider", meterProvider.Shutdown)

	logsProvider, err := telemetry.NewLoggerProvider(ctx, telemetry.LogsConfig{
		Enabled:           cfg.Telemetry.LogsEnabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ServiceName:       cfg.Telemetry.ServiceName,
		ServiceVersion:    version,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize logger provider", zap.Error(err))
	}
	defer shutdown(log, "logger provider", logsProvider.Shutdown)
	log = logsProvider.Bridge(log, logger.ParseLevel(cfg.Log.Level))

	profiler, err := telemetry.NewProfiler(telemetry.ProfilerConfig{
		Enabled:           cfg.Profiling.Enabled,
		ServerAddress:     cfg.Profiling.ServerAddress,
		ApplicationName:   cfg.Telemetry.ServiceName,
		BasicAuthUser:     cfg.Profiling.BasicAuthUser,
		BasicAuthPassword: cfg.Profiling.BasicAuthPassword,
		ProfileTypes:      cfg.Profiling.ProfileTypes,
	}, log)
	if err != nil {
		log.Fatal("Failed to start profiler", zap.Error(err))
	}
	defer shutdown(log, "profiler", profiler.Stop)
	if profiler.IsEnabled() && cfg.Profiling.SpanProfiles {
		tracerProvider.EnableSpanProfiles()
	}

	// Database
	dbOpts := []persistence.Option{
		persistence.WithLogger(log, cfg.Log.Level),
		persistence.WithSlowQueryThreshold(cfg.Telemetry.DBSlowQueryThresh),
	}
	if cfg.Telemetry.Enabled && cfg.Telemetry.DBTraceEnabled {
		dbOpts = append(dbOpts, persistence.WithTracing(telemetry.NewDBTracingPlugin(telemetry.DBTracingConfig{
			Enabled:         true,
			LogFullSQL:      cfg.Telemetry.DBLogFullSQL,
			SlowQueryThresh: cfg.Telemetry.DBSlowQueryThresh,
		}, log)))
	}
	db, err := persistence.NewDatabase(&cfg.Database, dbOpts...)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	log.Info("Database connected", zap.String("host", cfg.Database.Host), zap.String("dbname", cfg.Database.DBName))

	// Redis is optional; the sequence backend, the sweep lease and the
	// idempotency store all share one client when it is enabled
	var redisClient *redis.Client
	if cfg.Redis.Enabled {
		redisClient, err = cache.NewRedisClient(ctx, cfg.Redis)
		if err != nil {
			log.Warn("Redis unavailable", zap.String("addr", cfg.Redis.Addr()), zap.Error(err))
			redisClient = nil
		} else {
			defer func() { _ = redisClient.Close() }()
		}
	}

	inventoryMetrics, err := telemetry.NewInventoryMetrics(telemetry.InventoryMetricsConfig{
		Meter:           meterProvider.Meter("stockengine/inventory"),
		Logger:          log,
		CollectInterval: cfg.Telemetry.MetricsInterval,
		Provider:        persistence.NewGormInventoryGaugeProvider(db.DB),
	})
	if err != nil {
		log.Fatal("Failed to initialize inventory metrics", zap.Error(err))
	}
	if meterProvider.IsEnabled() {
		inventoryMetrics.StartPeriodicCollection(ctx, cfg.Telemetry.MetricsInterval)
		defer inventoryMetrics.Stop()
	}

	// Events
	eventBus := event.NewInMemoryEventBus(log)
	belowMinimum := inventoryapp.NewStockBelowMinimumHandler(log, inventoryMetrics)
	eventBus.Subscribe(belowMinimum, belowMinimum.EventTypes()...)
	if err := eventBus.Start(ctx); err != nil {
		log.Fatal("Failed to start event bus", zap.Error(err))
	}
	defer shutdown(log, "event bus", eventBus.Stop)

	services := newServices(cfg, db, redisClient, log)
	for _, hooks := range services.hooked() {
		hooks.SetEventPublisher(eventBus)
		hooks.SetMetrics(inventoryMetrics)
	}

	// Reservation expiry sweep
	if cfg.Reservation.SweepEnabled {
		pool := scheduler.NewScheduler(scheduler.Config{
			Workers:    cfg.Scheduler.Workers,
			QueueSize:  cfg.Scheduler.QueueSize,
			JobTimeout: cfg.Scheduler.JobTimeout,
		}, scheduler.NewReservationSweepExecutor(services.reservations, log), log)
		if err := pool.Start(ctx); err != nil {
			log.Fatal("Failed to start scheduler", zap.Error(err))
		}
		defer shutdown(log, "scheduler", pool.Stop)

		var lease scheduler.Lease
		if redisClient != nil {
			lease = cache.NewRedisLease(redisClient)
		}
		trigger := scheduler.NewReservationSweepTrigger(scheduler.ReservationSweepConfig{
			Interval:   cfg.Reservation.SweepInterval,
			LeaseTTL:   cfg.Reservation.SweepLeaseTTL,
			MaxRetries: 3,
		}, pool, services.reservations, lease, log)
		if err := trigger.Start(ctx); err != nil {
			log.Fatal("Failed to start reservation sweep", zap.Error(err))
		}
		defer shutdown(log, "reservation sweep", trigger.Stop)
	}

	// Idempotency store
	storeOpts := []cache.IdempotencyStoreFactoryOption{cache.WithLogger(log), cache.WithInMemoryFallback(true)}
	if redisClient != nil {
		storeOpts = append(storeOpts, cache.WithRedisClient(redisClient))
	}
	idempotencyStore, err := cache.NewIdempotencyStoreFactory(cfg.Redis, storeOpts...).CreateStore(ctx)
	if err != nil {
		log.Fatal("Failed to create idempotency store", zap.Error(err))
	}
	defer func() { _ = idempotencyStore.Close() }()

	// HTTP
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	middleware.SetupValidator()

	engine := gin.New()
	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			log.Warn("Failed to set trusted proxies", zap.Error(err))
		}
	}
	engine.Use(
		middleware.RequestID(),
		logger.GinMiddleware(log),
		logger.Recovery(log),
		middleware.Tracing(middleware.TracingConfig{
			ServiceName: cfg.Telemetry.ServiceName,
			Enabled:     cfg.Telemetry.Enabled,
		}),
		middleware.BodyLimit(cfg.HTTP.MaxBodySize),
	)

	systemHandler := handler.NewSystemHandler(cfg.App.Name, version, db)
	engine.GET("/health", systemHandler.Health)

	var verifier *auth.TokenVerifier
	if cfg.Auth.JWTEnabled {
		verifier = auth.NewTokenVerifier(cfg.Auth)
	}

	r := router.NewRouter(engine, router.WithAPIMiddleware(
		middleware.Identity(middleware.IdentityConfig{
			Verifier:  verifier,
			SkipPaths: []string{"/api/v1/system/info", "/api/v1/system/ping"},
			Logger:    log,
		}),
		middleware.SpanEnricher(),
		middleware.ProfilingLabels(profiler.IsEnabled()),
		middleware.HTTPMetrics(middleware.HTTPMetricsConfig{
			MeterProvider: meterProvider,
			Enabled:       meterProvider.IsEnabled(),
			Logger:        log,
		}),
		middleware.Idempotency(middleware.IdempotencyConfig{
			Store:  idempotencyStore,
			TTL:    cfg.HTTP.IdempotencyTTL,
			Logger: log,
		}),
	))

	systemRoutes := router.NewDomainGroup("system", "/system")
	systemRoutes.GET("/info", systemHandler.GetSystemInfo)
	systemRoutes.GET("/ping", systemHandler.Ping)

	r.Register(router.NewInventoryRoutes(router.InventoryHandlers{
		Balances:     handler.NewBalanceHandler(services.balances),
		Ledger:       handler.NewLedgerHandler(services.ledger),
		Transfers:    handler.NewTransferHandler(services.transfers),
		Adjustments:  handler.NewAdjustmentHandler(services.adjustments),
		Reservations: handler.NewReservationHandler(services.reservations),
		BOM:          handler.NewBOMHandler(services.bom),
	})).Register(systemRoutes)
	r.Setup()

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("Server stopped", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}
	log.Info("Server exited")
}

// appServices holds the inventory application services
type appServices struct {
	balances     *inventoryapp.BalanceService
	ledger       *inventoryapp.LedgerService
	transfers    *inventoryapp.TransferService
	adjustments  *inventoryapp.AdjustmentService
	reservations *inventoryapp.ReservationService
	bom          *inventoryapp.BOMService
}

// commitHookSetter is implemented by the services that publish events and
// record metrics after a commit
type commitHookSetter interface {
	SetEventPublisher(publisher shared.EventPublisher)
	SetMetrics(metrics *telemetry.InventoryMetrics)
}

func (s *appServices) hooked() []commitHookSetter {
	return []commitHookSetter{s.balances, s.transfers, s.adjustments, s.reservations, s.bom}
}

// lookupSetter is implemented by the services that verify items and locations
// before moving stock
type lookupSetter interface {
	SetLookups(items inventory.ItemLookup, locations inventory.LocationLookup)
}

func (s *appServices) referenceChecked() []lookupSetter {
	return []lookupSetter{s.balances, s.adjustments, s.reservations, s.bom}
}

func newServices(cfg *config.Config, db *persistence.Database, redisClient *redis.Client, log *zap.Logger) *appServices {
	txScope := persistence.NewGormTransactionScope(db.DB)
	balanceRepo := persistence.NewGormBalanceRepository(db.DB)

	// nil numbers adjustments inside their own transaction
	var sequences inventory.SequenceGenerator
	if cfg.Inventory.SequenceBackend == config.SequenceBackendRedis {
		if redisClient != nil {
			sequences = cache.NewRedisSequenceGenerator(redisClient)
		} else {
			log.Warn("Redis sequence backend requested without a Redis connection, numbering from the database")
		}
	}

	var (
		items     inventory.ItemLookup
		locations inventory.LocationLookup
	)
	if cfg.Inventory.VerifyReferences {
		lookup := persistence.NewGormReferenceLookup(db.DB)
		items, locations = lookup, lookup
	}

	reservations := inventoryapp.NewReservationService(
		persistence.NewGormReservationRepository(db.DB), txScope,
		inventory.NewStaticReservationPolicy(cfg.Reservation.ExpiryDays, cfg.Reservation.TenantExpiryDays), log)
	reservations.SetSweepBatchSize(cfg.Reservation.SweepBatchSize)

	services := &appServices{
		balances: inventoryapp.NewBalanceService(balanceRepo, txScope, log),
		ledger: inventoryapp.NewLedgerService(
			persistence.NewGormLedgerRepository(db.DB), balanceRepo, log),
		transfers: inventoryapp.NewTransferService(
			persistence.NewGormTransferRepository(db.DB), txScope, items, locations, log),
		adjustments: inventoryapp.NewAdjustmentService(
			persistence.NewGormAdjustmentRepository(db.DB), txScope, sequences,
			inventoryapp.AdjustmentConfig{
				NumberPrefix:      cfg.Inventory.AdjustmentPrefix,
				FrequentWindow:    cfg.Inventory.FrequentAdjustmentWindow,
				FrequentThreshold: cfg.Inventory.FrequentAdjustmentThreshold,
			}, log),
		reservations: reservations,
		bom: inventoryapp.NewBOMService(
			persistence.NewGormBOMRepository(db.DB), balanceRepo, txScope, log),
	}
	for _, svc := range services.referenceChecked() {
		svc.SetLookups(items, locations)
	}
	return services
}

func shutdown(log *zap.Logger, name string, fn func(context.Context) error) {
	if err := fn(context.Background()); err != nil {
		log.Error("Error stopping "+name, zap.Error(err))
	}
}
