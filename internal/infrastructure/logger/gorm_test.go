package logger

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	gormlogger "gorm.io/gorm/logger"
)

func newObservedGormLogger(level gormlogger.LogLevel) (*GormLogger, *observer.ObservedLogs) {
	core, recorded := observer.New(zapcore.DebugLevel)
	return NewGormLogger(zap.New(core), level, 100*time.Millisecond), recorded
}

func query(sql string) func() (string, int64) {
	return func() (string, int64) { return sql, 2 }
}

func TestGormLogger_Trace(t *testing.T) {
	ctx := WithRequestID(context.Background(), "req-7")

	t.Run("errors are logged with the request id", func(t *testing.T) {
		l, recorded := newObservedGormLogger(gormlogger.Warn)
		l.Trace(ctx, time.Now(), query("SELECT 1"), errors.New("connection reset"))

		entry := findEntry(t, recorded, "SQL Error")
		assert.Equal(t, "req-7", entry.ContextMap()["request_id"])
		assert.Equal(t, "connection reset", entry.ContextMap()["error"])
	})

	t.Run("record not found is ignored", func(t *testing.T) {
		l, recorded := newObservedGormLogger(gormlogger.Info)
		l.Trace(ctx, time.Now(), query("SELECT 1"), gormlogger.ErrRecordNotFound)
		assert.Equal(t, 0, recorded.Len())
	})

	t.Run("slow queries warn", func(t *testing.T) {
		l, recorded := newObservedGormLogger(gormlogger.Warn)
		l.Trace(ctx, time.Now().Add(-time.Second), query("SELECT * FROM fato_apagar"), nil)

		entry := findEntry(t, recorded, "Slow SQL")
		assert.Equal(t, zapcore.WarnLevel, entry.Level)
	})

	t.Run("fast queries only at info level", func(t *testing.T) {
		l, recorded := newObservedGormLogger(gormlogger.Warn)
		l.Trace(ctx, time.Now(), query("SELECT 1"), nil)
		assert.Equal(t, 0, recorded.Len())

		info := l.LogMode(gormlogger.Info)
		info.Trace(ctx, time.Now(), query("SELECT 1"), nil)
		assert.Equal(t, 1, recorded.FilterMessage("SQL Query").Len())
	})

	t.Run("silent logs nothing", func(t *testing.T) {
		l, recorded := newObservedGormLogger(gormlogger.Silent)
		l.Trace(ctx, time.Now(), query("SELECT 1"), errors.New("x"))
		l.Error(ctx, "boom %d", 1)
		assert.Equal(t, 0, recorded.Len())
	})
}

func TestMapGormLogLevel(t *testing.T) {
	assert.Equal(t, gormlogger.Silent, MapGormLogLevel("silent"))
	assert.Equal(t, gormlogger.Error, MapGormLogLevel("error"))
	assert.Equal(t, gormlogger.Warn, MapGormLogLevel("warn"))
	assert.Equal(t, gormlogger.Info, MapGormLogLevel("debug"))
	assert.Equal(t, gormlogger.Warn, MapGormLogLevel("unknown"))
}
