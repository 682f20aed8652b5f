//go:build integration

// Package integration runs the inventory engine against real PostgreSQL and
// Redis containers started with testcontainers.
package integration

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	inventoryapp "github.com/erp/stockengine/internal/application/inventory"
	"github.com/erp/stockengine/internal/domain/inventory"
	"github.com/erp/stockengine/internal/infrastructure/logger"
	"github.com/erp/stockengine/internal/infrastructure/migration"
	"github.com/erp/stockengine/internal/infrastructure/persistence"
	"github.com/erp/stockengine/migrations"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
	gormpostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

var (
	sharedContainer    testcontainers.Container
	sharedContainerMu  sync.Mutex
	sharedContainerDSN string
)

// TestDB is a migrated database of the shared PostgreSQL container
type TestDB struct {
	DB    *gorm.DB
	SqlDB *sql.DB
	DSN   string
	t     *testing.T
}

// NewTestDB connects to the shared container, starting and migrating it on
// first use. Tests isolate their data by tenant; CleanTables resets everything.
func NewTestDB(t *testing.T) *TestDB {
	t.Helper()

	sharedContainerMu.Lock()
	defer sharedContainerMu.Unlock()

	ctx := context.Background()
	if sharedContainer == nil {
		container, err := tcpostgres.Run(ctx,
			"postgres:16-alpine",
			tcpostgres.WithDatabase("stockengine_test"),
			tcpostgres.WithUsername("postgres"),
			tcpostgres.WithPassword("postgres"),
			testcontainers.WithWaitStrategy(
				wait.ForLog("database system is ready to accept connections").
					WithOccurrence(2).
					WithStartupTimeout(60*time.Second)),
		)
		require.NoError(t, err, "Failed to start PostgreSQL container")

		dsn, err := container.ConnectionString(ctx, "sslmode=disable")
		require.NoError(t, err, "Failed to get connection string")

		_, sqlDB := connectToDatabase(t, dsn)
		runMigrations(t, sqlDB)
		require.NoError(t, sqlDB.Close())

		sharedContainer = container
		sharedContainerDSN = dsn
	}

	db, sqlDB := connectToDatabase(t, sharedContainerDSN)
	tdb := &TestDB{DB: db, SqlDB: sqlDB, DSN: sharedContainerDSN, t: t}
	t.Cleanup(func() {
		_ = sqlDB.Close()
	})
	return tdb
}

// CleanTables truncates every table except the migration bookkeeping
func (tdb *TestDB) CleanTables() {
	tdb.t.Helper()

	var tables []string
	err := tdb.DB.Raw(`
		SELECT tablename FROM pg_tables
		WHERE schemaname = 'public'
		AND tablename != 'schema_migrations'
	`).Scan(&tables).Error
	require.NoError(tdb.t, err, "Failed to get table names")

	for _, table := range tables {
		if err := tdb.DB.Exec(fmt.Sprintf("TRUNCATE TABLE %s CASCADE", table)).Error; err != nil {
			tdb.t.Logf("Warning: Failed to truncate table %s: %v", table, err)
		}
	}
}

// CreateCatalogItem registers a product or variant for reference checks
func (tdb *TestDB) CreateCatalogItem(tenantID uuid.UUID, item inventory.ItemRef) {
	tdb.t.Helper()
	err := tdb.DB.Exec(`
		INSERT INTO catalog_items (tenant_id, item_kind, item_id, name)
		VALUES (?, ?, ?, ?)
		ON CONFLICT DO NOTHING
	`, tenantID, string(item.Kind), item.ID, "Item "+item.ID.String()[:8]).Error
	require.NoError(tdb.t, err, "Failed to create catalog item")
}

// CreateStockLocation registers a location for reference checks
func (tdb *TestDB) CreateStockLocation(tenantID, locationID uuid.UUID) {
	tdb.t.Helper()
	err := tdb.DB.Exec(`
		INSERT INTO stock_locations (id, tenant_id, name)
		VALUES (?, ?, ?)
		ON CONFLICT DO NOTHING
	`, locationID, tenantID, "Location").Error
	require.NoError(tdb.t, err, "Failed to create stock location")
}

// CleanupSharedContainer terminates the shared container. Call it from TestMain.
func CleanupSharedContainer() {
	sharedContainerMu.Lock()
	defer sharedContainerMu.Unlock()

	if sharedContainer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		_ = sharedContainer.Terminate(ctx)
		sharedContainer = nil
		sharedContainerDSN = ""
	}
}

func connectToDatabase(t *testing.T, dsn string) (*gorm.DB, *sql.DB) {
	t.Helper()

	level := gormlogger.Silent
	if os.Getenv("TEST_DB_DEBUG") != "" {
		level = gormlogger.Info
	}
	db, err := gorm.Open(gormpostgres.Open(dsn), &gorm.Config{
		Logger: logger.NewGormLogger(zaptest.NewLogger(t), level, logger.WithSQL(true)),
	})
	require.NoError(t, err, "Failed to connect to database")

	sqlDB, err := db.DB()
	require.NoError(t, err, "Failed to get underlying SQL DB")
	sqlDB.SetMaxOpenConns(20)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(5 * time.Minute)
	return db, sqlDB
}

func runMigrations(t *testing.T, sqlDB *sql.DB) {
	t.Helper()

	m, err := migration.NewFromFS(sqlDB, migrations.FS, zap.NewNop())
	require.NoError(t, err, "Failed to create migrator")
	require.NoError(t, m.Up(), "Failed to run migrations")
}

// NewTestRedis starts a throwaway Redis container and returns a client to it
func NewTestRedis(t *testing.T) *redis.Client {
	t.Helper()

	ctx := context.Background()
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor: wait.ForLog("Ready to accept connections").
				WithStartupTimeout(30 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err, "Failed to start Redis container")
	t.Cleanup(func() {
		if err := container.Terminate(context.Background()); err != nil {
			t.Logf("Warning: Failed to terminate Redis container: %v", err)
		}
	})

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "6379/tcp")
	require.NoError(t, err)

	client := redis.NewClient(&redis.Options{Addr: fmt.Sprintf("%s:%s", host, port.Port())})
	t.Cleanup(func() { _ = client.Close() })
	require.NoError(t, client.Ping(ctx).Err())
	return client
}

// Engine wires the application services over the GORM repositories of db
type Engine struct {
	Balances     *inventoryapp.BalanceService
	Ledger       *inventoryapp.LedgerService
	Transfers    *inventoryapp.TransferService
	Adjustments  *inventoryapp.AdjustmentService
	Reservations *inventoryapp.ReservationService
	BOM          *inventoryapp.BOMService
}

// EngineOption customises NewEngine
type EngineOption func(*engineOptions)

type engineOptions struct {
	sequences   inventory.SequenceGenerator
	verifyRefs  bool
	expiryDays  int
	adjustments inventoryapp.AdjustmentConfig
}

// WithSequences replaces the in-transaction database sequence
func WithSequences(g inventory.SequenceGenerator) EngineOption {
	return func(o *engineOptions) { o.sequences = g }
}

// WithReferenceChecks makes every stock move verify items and locations
func WithReferenceChecks() EngineOption {
	return func(o *engineOptions) { o.verifyRefs = true }
}

// WithExpiryDays sets the reservation lifetime
func WithExpiryDays(days int) EngineOption {
	return func(o *engineOptions) { o.expiryDays = days }
}

// NewEngine builds the services the way the server does
func NewEngine(t *testing.T, tdb *TestDB, opts ...EngineOption) *Engine {
	t.Helper()

	o := engineOptions{
		expiryDays: inventory.DefaultReservationExpiryDays,
		adjustments: inventoryapp.AdjustmentConfig{
			NumberPrefix:      "ADJ",
			FrequentWindow:    7 * 24 * time.Hour,
			FrequentThreshold: 3,
		},
	}
	for _, opt := range opts {
		opt(&o)
	}

	log := zaptest.NewLogger(t)
	db := tdb.DB
	txScope := persistence.NewGormTransactionScope(db)
	balanceRepo := persistence.NewGormBalanceRepository(db)

	var (
		items     inventory.ItemLookup
		locations inventory.LocationLookup
	)
	if o.verifyRefs {
		lookup := persistence.NewGormReferenceLookup(db)
		items, locations = lookup, lookup
	}

	engine := &Engine{
		Balances:    inventoryapp.NewBalanceService(balanceRepo, txScope, log),
		Ledger:      inventoryapp.NewLedgerService(persistence.NewGormLedgerRepository(db), balanceRepo, log),
		Transfers:   inventoryapp.NewTransferService(persistence.NewGormTransferRepository(db), txScope, items, locations, log),
		Adjustments: inventoryapp.NewAdjustmentService(persistence.NewGormAdjustmentRepository(db), txScope, o.sequences, o.adjustments, log),
		Reservations: inventoryapp.NewReservationService(persistence.NewGormReservationRepository(db), txScope,
			inventory.NewStaticReservationPolicy(o.expiryDays, nil), log),
		BOM: inventoryapp.NewBOMService(persistence.NewGormBOMRepository(db), balanceRepo, txScope, log),
	}
	engine.Balances.SetLookups(items, locations)
	engine.Adjustments.SetLookups(items, locations)
	engine.Reservations.SetLookups(items, locations)
	engine.BOM.SetLookups(items, locations)
	return engine
}
