package persistence

import (
	"context"
	"fmt"
	"time"

	"github.com/erp/stockengine/internal/infrastructure/config"
	"github.com/erp/stockengine/internal/infrastructure/logger"
	"github.com/erp/stockengine/internal/infrastructure/telemetry"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Database holds the database connection and provides methods for database operations
type Database struct {
	DB *gorm.DB
}

type databaseOptions struct {
	logger        *zap.Logger
	logLevel      gormlogger.LogLevel
	slowThreshold time.Duration
	logSQL        bool
	tracing       *telemetry.DBTracingPlugin
}

// Option configures NewDatabase
type Option func(*databaseOptions)

// WithLogger routes GORM logs through zap at the given application log level
func WithLogger(l *zap.Logger, level string) Option {
	return func(o *databaseOptions) {
		o.logger = l
		o.logLevel = logger.MapGormLogLevel(level)
	}
}

// WithSlowQueryThreshold sets when a statement is logged as slow
func WithSlowQueryThreshold(d time.Duration) Option {
	return func(o *databaseOptions) { o.slowThreshold = d }
}

// WithSQLLogging controls whether statement text reaches the logs
func WithSQLLogging(enabled bool) Option {
	return func(o *databaseOptions) { o.logSQL = enabled }
}

// WithTracing registers the database tracing plugin after connecting
func WithTracing(plugin *telemetry.DBTracingPlugin) Option {
	return func(o *databaseOptions) { o.tracing = plugin }
}

// NewDatabase connects to PostgreSQL, applies pool settings and pings the server
func NewDatabase(cfg *config.DatabaseConfig, opts ...Option) (*Database, error) {
	return Open(postgres.Open(cfg.DSN()), cfg, opts...)
}

// Open builds a Database over any GORM dialector. Pool settings from cfg are
// applied when cfg is not nil.
func Open(dialector gorm.Dialector, cfg *config.DatabaseConfig, opts ...Option) (*Database, error) {
	o := databaseOptions{
		logLevel:      gormlogger.Silent,
		slowThreshold: 200 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(&o)
	}

	gormCfg := &gorm.Config{
		SkipDefaultTransaction: true,
		PrepareStmt:            cfg != nil,
		TranslateError:         true,
		Logger:                 gormlogger.Discard,
	}
	if o.logger != nil {
		gormCfg.Logger = logger.NewGormLogger(o.logger, o.logLevel,
			logger.WithSlowThreshold(o.slowThreshold),
			logger.WithSQL(o.logSQL),
		)
	}

	db, err := gorm.Open(dialector, gormCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	if cfg != nil {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
		sqlDB.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetime) * time.Minute)
		sqlDB.SetConnMaxIdleTime(time.Duration(cfg.ConnMaxIdleTime) * time.Minute)
	}

	if o.tracing != nil {
		if err := o.tracing.Register(db); err != nil {
			return nil, fmt.Errorf("failed to register database tracing: %w", err)
		}
	}

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Database{DB: db}, nil
}

// Close closes the database connection
func (d *Database) Close() error {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	return sqlDB.Close()
}

// Ping checks if the database connection is alive
func (d *Database) Ping(ctx context.Context) error {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	return sqlDB.PingContext(ctx)
}

// ConnectionStats holds database connection pool statistics
type ConnectionStats struct {
	MaxOpenConnections int           `json:"max_open_connections"`
	OpenConnections    int           `json:"open_connections"`
	InUse              int           `json:"in_use"`
	Idle               int           `json:"idle"`
	WaitCount          int64         `json:"wait_count"`
	WaitDuration       time.Duration `json:"wait_duration"`
}

// Stats returns database connection pool statistics
func (d *Database) Stats() (ConnectionStats, error) {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return ConnectionStats{}, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	stats := sqlDB.Stats()
	return ConnectionStats{
		MaxOpenConnections: stats.MaxOpenConnections,
		OpenConnections:    stats.OpenConnections,
		InUse:              stats.InUse,
		Idle:               stats.Idle,
		WaitCount:          stats.WaitCount,
		WaitDuration:       stats.WaitDuration,
	}, nil
}
