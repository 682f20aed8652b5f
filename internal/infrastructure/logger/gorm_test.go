package logger

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	gormlogger "gorm.io/gorm/logger"
)

func newObservedGormLogger(level gormlogger.LogLevel, opts ...GormLoggerOption) (*GormLogger, *observer.ObservedLogs) {
	core, recorded := observer.New(zapcore.DebugLevel)
	return NewGormLogger(zap.New(core), level, opts...), recorded
}

func query(sql string, rows int64) func() (string, int64) {
	return func() (string, int64) { return sql, rows }
}

func TestGormLogger_Options(t *testing.T) {
	l, _ := newObservedGormLogger(gormlogger.Info,
		WithSlowThreshold(500*time.Millisecond),
		WithIgnoreRecordNotFoundError(false),
		WithSQL(false),
	)

	assert.Equal(t, 500*time.Millisecond, l.slowThreshold)
	assert.False(t, l.ignoreRecordNotFoundError)
	assert.False(t, l.logSQL)
}

func TestGormLogger_LogModeReturnsCopy(t *testing.T) {
	l, _ := newObservedGormLogger(gormlogger.Info)

	changed, ok := l.LogMode(gormlogger.Warn).(*GormLogger)
	require.True(t, ok)
	assert.Equal(t, gormlogger.Warn, changed.logLevel)
	assert.Equal(t, gormlogger.Info, l.logLevel)
}

func TestGormLogger_Messages(t *testing.T) {
	l, recorded := newObservedGormLogger(gormlogger.Warn)
	ctx := context.Background()

	l.Info(ctx, "hidden %d", 1)
	l.Warn(ctx, "pool %s", "saturated")
	l.Error(ctx, "broken %s", "pipe")

	entries := recorded.All()
	require.Len(t, entries, 2)
	assert.Equal(t, "pool saturated", entries[0].Message)
	assert.Equal(t, "broken pipe", entries[1].Message)
}

func TestGormLogger_Trace(t *testing.T) {
	ctx := WithIdentity(WithRequestID(context.Background(), "req-7"), "tenant-7", "")

	t.Run("error", func(t *testing.T) {
		l, recorded := newObservedGormLogger(gormlogger.Warn)
		l.Trace(ctx, time.Now(), query("UPDATE stock_balances", 0), errors.New("deadlock detected"))

		entries := recorded.FilterMessage("SQL Error").All()
		require.Len(t, entries, 1)
		fields := entries[0].ContextMap()
		assert.Equal(t, "req-7", fields["request_id"])
		assert.Equal(t, "tenant-7", fields["tenant_id"])
		assert.Equal(t, "UPDATE stock_balances", fields["sql"])
	})

	t.Run("record not found is ignored", func(t *testing.T) {
		l, recorded := newObservedGormLogger(gormlogger.Warn)
		l.Trace(ctx, time.Now(), query("SELECT 1", 0), gormlogger.ErrRecordNotFound)
		assert.Zero(t, recorded.Len())
	})

	t.Run("slow query", func(t *testing.T) {
		l, recorded := newObservedGormLogger(gormlogger.Warn, WithSlowThreshold(time.Millisecond))
		l.Trace(ctx, time.Now().Add(-time.Second), query("SELECT * FROM stock_ledger", 10), nil)

		entries := recorded.FilterMessage("Slow SQL").All()
		require.Len(t, entries, 1)
		assert.Equal(t, zapcore.WarnLevel, entries[0].Level)
	})

	t.Run("normal query at info", func(t *testing.T) {
		l, recorded := newObservedGormLogger(gormlogger.Info, WithSQL(false))
		l.Trace(ctx, time.Now(), query("SELECT 1", 1), nil)

		entries := recorded.FilterMessage("SQL Query").All()
		require.Len(t, entries, 1)
		_, hasSQL := entries[0].ContextMap()["sql"]
		assert.False(t, hasSQL)
	})

	t.Run("silent", func(t *testing.T) {
		l, recorded := newObservedGormLogger(gormlogger.Silent)
		l.Trace(ctx, time.Now(), query("SELECT 1", 1), errors.New("x"))
		assert.Zero(t, recorded.Len())
	})
}

func TestMapGormLogLevel(t *testing.T) {
	assert.Equal(t, gormlogger.Silent, MapGormLogLevel("silent"))
	assert.Equal(t, gormlogger.Error, MapGormLogLevel("error"))
	assert.Equal(t, gormlogger.Warn, MapGormLogLevel("warn"))
	assert.Equal(t, gormlogger.Info, MapGormLogLevel("debug"))
	assert.Equal(t, gormlogger.Warn, MapGormLogLevel("unknown"))
}
