package config

import (
	"os"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clearStockEnv unsets every STOCK_ variable for the duration of the test
func clearStockEnv(t *testing.T) {
	t.Helper()
	for _, kv := range os.Environ() {
		key, _, _ := strings.Cut(kv, "=")
		if strings.HasPrefix(key, "STOCK_") {
			t.Setenv(key, "")
			os.Unsetenv(key)
		}
	}
}

func loadTOML(t *testing.T, body string) (*Config, error) {
	t.Helper()
	v := viper.New()
	v.SetConfigType("toml")
	require.NoError(t, v.ReadConfig(strings.NewReader(body)))
	return fromViper(v)
}

func TestLoad(t *testing.T) {
	t.Run("loads default values when env vars not set", func(t *testing.T) {
		clearStockEnv(t)

		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, "stockengine", cfg.App.Name)
		assert.Equal(t, "development", cfg.App.Env)
		assert.Equal(t, "8080", cfg.App.Port)
		assert.Equal(t, "localhost", cfg.Database.Host)
		assert.Equal(t, 5432, cfg.Database.Port)
		assert.Equal(t, "stockengine", cfg.Database.DBName)
		assert.Equal(t, 25, cfg.Database.MaxOpenConns)
		assert.Equal(t, "ADJ", cfg.Inventory.AdjustmentPrefix)
		assert.Equal(t, 30*24*time.Hour, cfg.Inventory.FrequentAdjustmentWindow)
		assert.Equal(t, int64(3), cfg.Inventory.FrequentAdjustmentThreshold)
		assert.Equal(t, SequenceBackendDatabase, cfg.Inventory.SequenceBackend)
		assert.Equal(t, 7, cfg.Reservation.ExpiryDays)
		assert.Equal(t, time.Hour, cfg.Reservation.SweepInterval)
		assert.Equal(t, 2, cfg.Scheduler.Workers)
		assert.Equal(t, "stockengine", cfg.Telemetry.ServiceName)
	})

	t.Run("loads values from environment variables with STOCK prefix", func(t *testing.T) {
		clearStockEnv(t)
		t.Setenv("STOCK_APP_PORT", "9000")
		t.Setenv("STOCK_DATABASE_HOST", "db.internal")
		t.Setenv("STOCK_DATABASE_PORT", "5433")
		t.Setenv("STOCK_INVENTORY_ADJUSTMENT_PREFIX", "COR")
		t.Setenv("STOCK_RESERVATION_EXPIRY_DAYS", "3")
		t.Setenv("STOCK_RESERVATION_SWEEP_INTERVAL", "15m")
		t.Setenv("STOCK_SCHEDULER_WORKERS", "4")

		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, "9000", cfg.App.Port)
		assert.Equal(t, "db.internal", cfg.Database.Host)
		assert.Equal(t, 5433, cfg.Database.Port)
		assert.Equal(t, "COR", cfg.Inventory.AdjustmentPrefix)
		assert.Equal(t, 3, cfg.Reservation.ExpiryDays)
		assert.Equal(t, 15*time.Minute, cfg.Reservation.SweepInterval)
		assert.Equal(t, 4, cfg.Scheduler.Workers)
	})

	t.Run("rejects idle conns above open conns", func(t *testing.T) {
		clearStockEnv(t)
		t.Setenv("STOCK_DATABASE_MAX_OPEN_CONNS", "5")
		t.Setenv("STOCK_DATABASE_MAX_IDLE_CONNS", "10")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "cannot exceed")
	})
}

func TestFromViper_TenantExpiryDays(t *testing.T) {
	tenantID := uuid.New()

	cfg, err := loadTOML(t, `
[reservation]
expiry_days = 10

[reservation.tenant_expiry_days]
"`+tenantID.String()+`" = 2
`)
	require.NoError(t, err)
	assert.Equal(t, 10, cfg.Reservation.ExpiryDays)
	assert.Equal(t, map[uuid.UUID]int{tenantID: 2}, cfg.Reservation.TenantExpiryDays)

	_, err = loadTOML(t, `
[reservation.tenant_expiry_days]
not-a-tenant = 2
`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid tenant id")

	_, err = loadTOML(t, `
[reservation.tenant_expiry_days]
"`+tenantID.String()+`" = 0
`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "must be at least 1")
}

func TestFromViper_Validation(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr string
	}{
		{
			name:    "unknown sequence backend",
			body:    "[inventory]\nsequence_backend = \"etcd\"\n",
			wantErr: "inventory.sequence_backend must be",
		},
		{
			name:    "redis sequences need redis",
			body:    "[inventory]\nsequence_backend = \"redis\"\n",
			wantErr: "requires redis.enabled",
		},
		{
			name:    "jwt without secret",
			body:    "[auth]\njwt_enabled = true\n",
			wantErr: "auth.jwt_secret is required",
		},
		{
			name:    "sampling ratio out of range",
			body:    "[telemetry]\nsampling_ratio = 1.5\n",
			wantErr: "sampling_ratio must be between",
		},
		{
			name:    "profiling without server",
			body:    "[profiling]\nenabled = true\n",
			wantErr: "profiling.server_address is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := loadTOML(t, tt.body)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}

	t.Run("redis sequences with redis enabled", func(t *testing.T) {
		cfg, err := loadTOML(t, "[redis]\nenabled = true\n[inventory]\nsequence_backend = \"redis\"\n")
		require.NoError(t, err)
		assert.Equal(t, "localhost:6379", cfg.Redis.Addr())
	})

	t.Run("profiling types", func(t *testing.T) {
		cfg, err := loadTOML(t, "[profiling]\nenabled = true\nserver_address = \"http://pyroscope:4040\"\nprofile_types = [\"cpu\", \"goroutines\"]\n")
		require.NoError(t, err)
		assert.Equal(t, []string{"cpu", "goroutines"}, cfg.Profiling.ProfileTypes)
	})
}

func TestFromViper_ProductionValidation(t *testing.T) {
	base := `
[app]
env = "production"

[database]
password = "secure-password"
sslmode = "require"
`

	t.Run("passes with valid production config", func(t *testing.T) {
		cfg, err := loadTOML(t, base)
		require.NoError(t, err)
		assert.Equal(t, "production", cfg.App.Env)
	})

	t.Run("requires database.password in production", func(t *testing.T) {
		_, err := loadTOML(t, "[app]\nenv = \"production\"\n[database]\nsslmode = \"require\"\n")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "database.password is required in production")
	})

	t.Run("requires SSL enabled in production", func(t *testing.T) {
		_, err := loadTOML(t, "[app]\nenv = \"production\"\n[database]\npassword = \"x\"\n")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "database.sslmode cannot be 'disable' in production")
	})

	t.Run("requires long jwt secret in production", func(t *testing.T) {
		_, err := loadTOML(t, base+"\n[auth]\njwt_enabled = true\njwt_secret = \"short\"\n")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "at least 32 characters")
	})

	t.Run("rejects full SQL logging in production", func(t *testing.T) {
		_, err := loadTOML(t, base+"\n[telemetry]\ndb_log_full_sql = true\n")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "db_log_full_sql must be false")
	})
}

func TestDatabaseConfig_DSN(t *testing.T) {
	t.Run("generates valid DSN", func(t *testing.T) {
		cfg := DatabaseConfig{
			Host:     "localhost",
			Port:     5432,
			User:     "testuser",
			Password: "testpass",
			DBName:   "testdb",
			SSLMode:  "disable",
		}

		dsn := cfg.DSN()
		assert.Contains(t, dsn, "localhost:5432")
		assert.Contains(t, dsn, "testuser")
		assert.Contains(t, dsn, "/testdb")
		assert.Contains(t, dsn, "sslmode=disable")
	})

	t.Run("escapes special characters in password", func(t *testing.T) {
		cfg := DatabaseConfig{
			Host:     "localhost",
			Port:     5432,
			User:     "user",
			Password: "pass@word#123",
			DBName:   "db",
			SSLMode:  "disable",
		}

		assert.Contains(t, cfg.DSN(), "pass%40word%23123")
	})
}
