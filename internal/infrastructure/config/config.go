package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cast"
	"github.com/spf13/viper"
)

// Sequence backends for adjustment numbering
const (
	SequenceBackendDatabase = "database"
	SequenceBackendRedis    = "redis"
)

// Config holds all application configuration
type Config struct {
	App         AppConfig
	HTTP        HTTPConfig
	Database    DatabaseConfig
	Redis       RedisConfig
	Log         LogConfig
	Telemetry   TelemetryConfig
	Profiling   ProfilingConfig
	Auth        AuthConfig
	Inventory   InventoryConfig
	Reservation ReservationConfig
	Scheduler   SchedulerConfig
}

// AppConfig holds application-specific settings
type AppConfig struct {
	Name string
	Env  string
	Port string
}

// HTTPConfig holds HTTP server configuration
type HTTPConfig struct {
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
	MaxHeaderBytes  int
	MaxBodySize     int64
	IdempotencyTTL  time.Duration
	TrustedProxies  []string
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	DBName          string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime int // in minutes
	ConnMaxIdleTime int // in minutes
}

// RedisConfig holds Redis connection settings
type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
}

// Addr returns host:port for the redis client
func (r *RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, console
	Output string // stdout, stderr, or file path
}

// TelemetryConfig holds OpenTelemetry configuration
type TelemetryConfig struct {
	Enabled           bool
	CollectorEndpoint string
	SamplingRatio     float64
	ServiceName       string
	Insecure          bool
	DBTraceEnabled    bool
	DBLogFullSQL      bool
	DBSlowQueryThresh time.Duration
	MetricsEnabled    bool
	MetricsInterval   time.Duration
	LogsEnabled       bool
}

// ProfilingConfig holds Pyroscope continuous profiling settings
type ProfilingConfig struct {
	Enabled           bool
	ServerAddress     string
	BasicAuthUser     string
	BasicAuthPassword string
	ProfileTypes      []string
	SpanProfiles      bool
}

// AuthConfig controls how tenant and user identity are taken from requests.
// With JWTEnabled the bearer token claims win over the X-Tenant-ID / X-User-ID headers.
type AuthConfig struct {
	JWTEnabled  bool
	JWTSecret   string
	JWTIssuer   string
	TenantClaim string
	UserClaim   string
}

// InventoryConfig holds stock engine settings
type InventoryConfig struct {
	AdjustmentPrefix            string
	FrequentAdjustmentWindow    time.Duration
	FrequentAdjustmentThreshold int64
	SequenceBackend             string // database or redis
	// VerifyReferences checks items and locations against the catalog_items and
	// stock_locations reference tables before stock moves
	VerifyReferences bool
}

// ReservationConfig holds reservation expiry and sweep settings
type ReservationConfig struct {
	ExpiryDays       int
	TenantExpiryDays map[uuid.UUID]int
	SweepEnabled     bool
	SweepInterval    time.Duration
	SweepLeaseTTL    time.Duration
	SweepBatchSize   int
}

// SchedulerConfig holds background worker pool configuration
type SchedulerConfig struct {
	Workers    int
	QueueSize  int
	JobTimeout time.Duration
}

// Load loads configuration from TOML file and environment variables
// Priority (highest to lowest):
// 1. Environment variables with STOCK_ prefix (e.g., STOCK_DATABASE_PASSWORD)
// 2. config.toml
// 3. Built-in defaults
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/stockengine")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	v.SetEnvPrefix("STOCK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return fromViper(v)
}

func fromViper(v *viper.Viper) (*Config, error) {
	tenantDays, err := parseTenantDays(v.GetStringMap("reservation.tenant_expiry_days"))
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		App: AppConfig{
			Name: v.GetString("app.name"),
			Env:  v.GetString("app.env"),
			Port: v.GetString("app.port"),
		},
		HTTP: HTTPConfig{
			ReadTimeout:     v.GetDuration("http.read_timeout"),
			WriteTimeout:    v.GetDuration("http.write_timeout"),
			IdleTimeout:     v.GetDuration("http.idle_timeout"),
			ShutdownTimeout: v.GetDuration("http.shutdown_timeout"),
			MaxHeaderBytes:  v.GetInt("http.max_header_bytes"),
			MaxBodySize:     v.GetInt64("http.max_body_size"),
			IdempotencyTTL:  v.GetDuration("http.idempotency_ttl"),
			TrustedProxies:  v.GetStringSlice("http.trusted_proxies"),
		},
		Database: DatabaseConfig{
			Host:            v.GetString("database.host"),
			Port:            v.GetInt("database.port"),
			User:            v.GetString("database.user"),
			Password:        v.GetString("database.password"),
			DBName:          v.GetString("database.dbname"),
			SSLMode:         v.GetString("database.sslmode"),
			MaxOpenConns:    v.GetInt("database.max_open_conns"),
			MaxIdleConns:    v.GetInt("database.max_idle_conns"),
			ConnMaxLifetime: v.GetInt("database.conn_max_lifetime"),
			ConnMaxIdleTime: v.GetInt("database.conn_max_idle_time"),
		},
		Redis: RedisConfig{
			Enabled:  v.GetBool("redis.enabled"),
			Host:     v.GetString("redis.host"),
			Port:     v.GetInt("redis.port"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
			Output: v.GetString("log.output"),
		},
		Telemetry: TelemetryConfig{
			Enabled:           v.GetBool("telemetry.enabled"),
			CollectorEndpoint: v.GetString("telemetry.collector_endpoint"),
			SamplingRatio:     v.GetFloat64("telemetry.sampling_ratio"),
			ServiceName:       v.GetString("telemetry.service_name"),
			Insecure:          v.GetBool("telemetry.insecure"),
			DBTraceEnabled:    v.GetBool("telemetry.db_trace_enabled"),
			DBLogFullSQL:      v.GetBool("telemetry.db_log_full_sql"),
			DBSlowQueryThresh: v.GetDuration("telemetry.db_slow_query_threshold"),
			MetricsEnabled:    v.GetBool("telemetry.metrics_enabled"),
			MetricsInterval:   v.GetDuration("telemetry.metrics_interval"),
			LogsEnabled:       v.GetBool("telemetry.logs_enabled"),
		},
		Profiling: ProfilingConfig{
			Enabled:           v.GetBool("profiling.enabled"),
			ServerAddress:     v.GetString("profiling.server_address"),
			BasicAuthUser:     v.GetString("profiling.basic_auth_user"),
			BasicAuthPassword: v.GetString("profiling.basic_auth_password"),
			ProfileTypes:      v.GetStringSlice("profiling.profile_types"),
			SpanProfiles:      v.GetBool("profiling.span_profiles"),
		},
		Auth: AuthConfig{
			JWTEnabled:  v.GetBool("auth.jwt_enabled"),
			JWTSecret:   v.GetString("auth.jwt_secret"),
			JWTIssuer:   v.GetString("auth.jwt_issuer"),
			TenantClaim: v.GetString("auth.tenant_claim"),
			UserClaim:   v.GetString("auth.user_claim"),
		},
		Inventory: InventoryConfig{
			AdjustmentPrefix:            v.GetString("inventory.adjustment_prefix"),
			FrequentAdjustmentWindow:    v.GetDuration("inventory.frequent_adjustment_window"),
			FrequentAdjustmentThreshold: v.GetInt64("inventory.frequent_adjustment_threshold"),
			SequenceBackend:             v.GetString("inventory.sequence_backend"),
			VerifyReferences:            v.GetBool("inventory.verify_references"),
		},
		Reservation: ReservationConfig{
			ExpiryDays:       v.GetInt("reservation.expiry_days"),
			TenantExpiryDays: tenantDays,
			SweepEnabled:     v.GetBool("reservation.sweep_enabled"),
			SweepInterval:    v.GetDuration("reservation.sweep_interval"),
			SweepLeaseTTL:    v.GetDuration("reservation.sweep_lease_ttl"),
			SweepBatchSize:   v.GetInt("reservation.sweep_batch_size"),
		},
		Scheduler: SchedulerConfig{
			Workers:    v.GetInt("scheduler.workers"),
			QueueSize:  v.GetInt("scheduler.queue_size"),
			JobTimeout: v.GetDuration("scheduler.job_timeout"),
		},
	}

	applyDefaults(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// parseTenantDays reads the [reservation.tenant_expiry_days] table, keyed by tenant id
func parseTenantDays(raw map[string]any) (map[uuid.UUID]int, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	out := make(map[uuid.UUID]int, len(raw))
	for key, value := range raw {
		tenantID, err := uuid.Parse(key)
		if err != nil {
			return nil, fmt.Errorf("reservation.tenant_expiry_days: invalid tenant id %q: %w", key, err)
		}
		days, err := cast.ToIntE(value)
		if err != nil {
			return nil, fmt.Errorf("reservation.tenant_expiry_days: invalid days for tenant %s: %w", key, err)
		}
		out[tenantID] = days
	}
	return out, nil
}

// applyDefaults sets default values for any empty config fields
func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "stockengine"
	}
	if cfg.App.Env == "" {
		cfg.App.Env = "development"
	}
	if cfg.App.Port == "" {
		cfg.App.Port = "8080"
	}
	if cfg.HTTP.ReadTimeout == 0 {
		cfg.HTTP.ReadTimeout = 15 * time.Second
	}
	if cfg.HTTP.WriteTimeout == 0 {
		cfg.HTTP.WriteTimeout = 15 * time.Second
	}
	if cfg.HTTP.IdleTimeout == 0 {
		cfg.HTTP.IdleTimeout = 60 * time.Second
	}
	if cfg.HTTP.ShutdownTimeout == 0 {
		cfg.HTTP.ShutdownTimeout = 30 * time.Second
	}
	if cfg.HTTP.MaxHeaderBytes == 0 {
		cfg.HTTP.MaxHeaderBytes = 1 << 20 // 1MB
	}
	if cfg.HTTP.MaxBodySize == 0 {
		cfg.HTTP.MaxBodySize = 1 << 20 // 1MB
	}
	if cfg.HTTP.IdempotencyTTL == 0 {
		cfg.HTTP.IdempotencyTTL = 24 * time.Hour
	}
	if cfg.Database.Host == "" {
		cfg.Database.Host = "localhost"
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = 5432
	}
	if cfg.Database.User == "" {
		cfg.Database.User = "postgres"
	}
	if cfg.Database.DBName == "" {
		cfg.Database.DBName = "stockengine"
	}
	if cfg.Database.SSLMode == "" {
		cfg.Database.SSLMode = "disable"
	}
	if cfg.Database.MaxOpenConns == 0 {
		cfg.Database.MaxOpenConns = 25
	}
	if cfg.Database.MaxIdleConns == 0 {
		cfg.Database.MaxIdleConns = 5
	}
	if cfg.Database.ConnMaxLifetime == 0 {
		cfg.Database.ConnMaxLifetime = 60
	}
	if cfg.Database.ConnMaxIdleTime == 0 {
		cfg.Database.ConnMaxIdleTime = 30
	}
	if cfg.Redis.Host == "" {
		cfg.Redis.Host = "localhost"
	}
	if cfg.Redis.Port == 0 {
		cfg.Redis.Port = 6379
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "console"
	}
	if cfg.Log.Output == "" {
		cfg.Log.Output = "stdout"
	}
	if cfg.Telemetry.CollectorEndpoint == "" {
		cfg.Telemetry.CollectorEndpoint = "localhost:4317"
	}
	if cfg.Telemetry.SamplingRatio == 0 {
		cfg.Telemetry.SamplingRatio = 1.0
	}
	if cfg.Telemetry.ServiceName == "" {
		cfg.Telemetry.ServiceName = cfg.App.Name
	}
	if cfg.Telemetry.DBSlowQueryThresh == 0 {
		cfg.Telemetry.DBSlowQueryThresh = 200 * time.Millisecond
	}
	if cfg.Telemetry.MetricsInterval == 0 {
		cfg.Telemetry.MetricsInterval = time.Minute
	}
	if cfg.Auth.JWTIssuer == "" {
		cfg.Auth.JWTIssuer = "erp-backend"
	}
	if cfg.Auth.TenantClaim == "" {
		cfg.Auth.TenantClaim = "tenant_id"
	}
	if cfg.Auth.UserClaim == "" {
		cfg.Auth.UserClaim = "user_id"
	}
	if cfg.Inventory.AdjustmentPrefix == "" {
		cfg.Inventory.AdjustmentPrefix = "ADJ"
	}
	if cfg.Inventory.FrequentAdjustmentWindow == 0 {
		cfg.Inventory.FrequentAdjustmentWindow = 30 * 24 * time.Hour
	}
	if cfg.Inventory.FrequentAdjustmentThreshold == 0 {
		cfg.Inventory.FrequentAdjustmentThreshold = 3
	}
	if cfg.Inventory.SequenceBackend == "" {
		cfg.Inventory.SequenceBackend = SequenceBackendDatabase
	}
	if cfg.Reservation.ExpiryDays == 0 {
		cfg.Reservation.ExpiryDays = 7
	}
	if cfg.Reservation.SweepInterval == 0 {
		cfg.Reservation.SweepInterval = time.Hour
	}
	if cfg.Reservation.SweepLeaseTTL == 0 {
		cfg.Reservation.SweepLeaseTTL = 10 * time.Minute
	}
	if cfg.Reservation.SweepBatchSize == 0 {
		cfg.Reservation.SweepBatchSize = 100
	}
	if cfg.Scheduler.Workers == 0 {
		cfg.Scheduler.Workers = 2
	}
	if cfg.Scheduler.QueueSize == 0 {
		cfg.Scheduler.QueueSize = 16
	}
	if cfg.Scheduler.JobTimeout == 0 {
		cfg.Scheduler.JobTimeout = 15 * time.Minute
	}
}

// validate performs validation on the configuration
func (c *Config) validate() error {
	if c.Database.MaxOpenConns <= 0 {
		return fmt.Errorf("database.max_open_conns must be positive")
	}
	if c.Database.MaxIdleConns < 0 {
		return fmt.Errorf("database.max_idle_conns cannot be negative")
	}
	if c.Database.MaxIdleConns > c.Database.MaxOpenConns {
		return fmt.Errorf("database.max_idle_conns (%d) cannot exceed database.max_open_conns (%d)",
			c.Database.MaxIdleConns, c.Database.MaxOpenConns)
	}

	switch c.Inventory.SequenceBackend {
	case SequenceBackendDatabase:
	case SequenceBackendRedis:
		if !c.Redis.Enabled {
			return fmt.Errorf("inventory.sequence_backend=redis requires redis.enabled")
		}
	default:
		return fmt.Errorf("inventory.sequence_backend must be %q or %q, got %q",
			SequenceBackendDatabase, SequenceBackendRedis, c.Inventory.SequenceBackend)
	}
	if c.Inventory.FrequentAdjustmentThreshold < 1 {
		return fmt.Errorf("inventory.frequent_adjustment_threshold must be at least 1")
	}
	if c.Reservation.ExpiryDays < 1 {
		return fmt.Errorf("reservation.expiry_days must be at least 1")
	}
	for tenantID, days := range c.Reservation.TenantExpiryDays {
		if days < 1 {
			return fmt.Errorf("reservation.tenant_expiry_days for tenant %s must be at least 1", tenantID)
		}
	}
	if c.Scheduler.Workers < 1 {
		return fmt.Errorf("scheduler.workers must be at least 1")
	}

	if c.Auth.JWTEnabled && c.Auth.JWTSecret == "" {
		return fmt.Errorf("auth.jwt_secret is required when auth.jwt_enabled is true")
	}

	if c.App.Env == "production" {
		if c.Auth.JWTEnabled && len(c.Auth.JWTSecret) < 32 {
			return fmt.Errorf("auth.jwt_secret must be at least 32 characters in production")
		}
		if c.Database.Password == "" {
			return fmt.Errorf("database.password is required in production")
		}
		if c.Database.SSLMode == "disable" {
			return fmt.Errorf("database.sslmode cannot be 'disable' in production")
		}
		if c.Telemetry.DBLogFullSQL {
			return fmt.Errorf("telemetry.db_log_full_sql must be false in production to prevent sensitive data exposure in traces")
		}
	}

	if c.Profiling.Enabled && c.Profiling.ServerAddress == "" {
		return fmt.Errorf("profiling.server_address is required when profiling.enabled is true")
	}

	if c.Telemetry.SamplingRatio < 0.0 || c.Telemetry.SamplingRatio > 1.0 {
		return fmt.Errorf("telemetry.sampling_ratio must be between 0.0 and 1.0, got %f", c.Telemetry.SamplingRatio)
	}

	return nil
}

// DSN returns the database connection string with properly escaped values
func (d *DatabaseConfig) DSN() string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(d.User, d.Password),
		Host:   fmt.Sprintf("%s:%d", d.Host, d.Port),
		Path:   d.DBName,
	}
	q := u.Query()
	q.Set("sslmode", d.SSLMode)
	u.RawQuery = q.Encode()
	return u.String()
}
