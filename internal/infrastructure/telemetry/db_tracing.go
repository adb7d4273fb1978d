package telemetry

import (
	"context"
	"errors"
	"time"

	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// DBTracingConfig holds configuration for warehouse query tracing
type DBTracingConfig struct {
	Enabled         bool
	DBSystem        string        // "postgresql" or "sqlite"
	LogFullSQL      bool          // include bound values in spans; never in production
	SlowQueryThresh time.Duration // queries slower than this get a slow_query event
	TracerProvider  trace.TracerProvider
}

type queryStartKey struct{}

// InstrumentDB registers otelgorm on db plus the slow query callbacks.
// It is a no-op when tracing is disabled.
func InstrumentDB(db *gorm.DB, cfg DBTracingConfig, logger *zap.Logger) error {
	if !cfg.Enabled {
		return nil
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.SlowQueryThresh <= 0 {
		cfg.SlowQueryThresh = 200 * time.Millisecond
	}

	opts := []otelgorm.Option{otelgorm.WithDBName(cfg.DBSystem)}
	if !cfg.LogFullSQL {
		opts = append(opts, otelgorm.WithoutQueryVariables())
	}
	if cfg.TracerProvider != nil {
		opts = append(opts, otelgorm.WithTracerProvider(cfg.TracerProvider))
	}
	if err := db.Use(otelgorm.NewPlugin(opts...)); err != nil {
		return err
	}

	// The slow query hooks run before otelgorm's after hooks so the
	// attributes land on the span before it ends.
	slow := slowQueryCallback(cfg.SlowQueryThresh)
	cb := db.Callback()
	hooks := []struct {
		name     string
		register func(string, func(*gorm.DB)) error
		fn       func(*gorm.DB)
	}{
		{"cashflow:start_create", cb.Create().Before("gorm:create").Register, markQueryStart},
		{"cashflow:slow_create", cb.Create().After("gorm:create").Before("otel:after:create").Register, slow},
		{"cashflow:start_query", cb.Query().Before("gorm:query").Register, markQueryStart},
		{"cashflow:slow_query", cb.Query().After("gorm:query").Before("otel:after:select").Register, slow},
		{"cashflow:start_update", cb.Update().Before("gorm:update").Register, markQueryStart},
		{"cashflow:slow_update", cb.Update().After("gorm:update").Before("otel:after:update").Register, slow},
		{"cashflow:start_delete", cb.Delete().Before("gorm:delete").Register, markQueryStart},
		{"cashflow:slow_delete", cb.Delete().After("gorm:delete").Before("otel:after:delete").Register, slow},
		{"cashflow:start_row", cb.Row().Before("gorm:row").Register, markQueryStart},
		{"cashflow:slow_row", cb.Row().After("gorm:row").Before("otel:after:row").Register, slow},
		{"cashflow:start_raw", cb.Raw().Before("gorm:raw").Register, markQueryStart},
		{"cashflow:slow_raw", cb.Raw().After("gorm:raw").Before("otel:after:raw").Register, slow},
	}
	for _, h := range hooks {
		if err := h.register(h.name, h.fn); err != nil {
			return err
		}
	}

	logger.Info("Database tracing enabled",
		zap.String("db_system", cfg.DBSystem),
		zap.Bool("log_full_sql", cfg.LogFullSQL),
		zap.Duration("slow_query_threshold", cfg.SlowQueryThresh),
	)
	return nil
}

func markQueryStart(db *gorm.DB) {
	if db.Statement.Context != nil {
		db.Statement.Context = context.WithValue(db.Statement.Context, queryStartKey{}, time.Now())
	}
}

func slowQueryCallback(threshold time.Duration) func(*gorm.DB) {
	return func(db *gorm.DB) {
		ctx := db.Statement.Context
		if ctx == nil {
			return
		}
		span := trace.SpanFromContext(ctx)
		if !span.IsRecording() {
			return
		}

		span.SetAttributes(attribute.Int64("db.rows_affected", db.Statement.RowsAffected))
		if db.Statement.Table != "" {
			span.SetAttributes(attribute.String("db.sql.table", db.Statement.Table))
		}
		if db.Error != nil && !errors.Is(db.Error, gorm.ErrRecordNotFound) {
			span.SetStatus(codes.Error, db.Error.Error())
			span.RecordError(db.Error)
		}

		start, ok := ctx.Value(queryStartKey{}).(time.Time)
		if !ok {
			return
		}
		if elapsed := time.Since(start); elapsed > threshold {
			span.SetAttributes(
				attribute.Bool("db.slow_query", true),
				attribute.Int64("db.query_duration_ms", elapsed.Milliseconds()),
			)
			span.AddEvent("slow_query_warning", trace.WithAttributes(
				attribute.Int64("threshold_ms", threshold.Milliseconds()),
			))
		}
	}
}
