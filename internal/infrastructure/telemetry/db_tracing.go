// Package telemetry provides OpenTelemetry integration for distributed tracing.
package telemetry

import (
	"context"
	"time"

	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// DBTracingConfig holds configuration for database tracing.
type DBTracingConfig struct {
	Enabled          bool          // Enable database tracing
	LogFullSQL       bool          // Include full SQL statements in spans (dev only, security risk in prod)
	SlowQueryThresh  time.Duration // Threshold for marking queries as slow (default: 200ms)
	DBSystem         string        // Database system name (default: "postgresql")
	WithoutVariables bool          // Exclude query variables from SQL statement (for security)
}

// DefaultDBTracingConfig returns default configuration for database tracing.
func DefaultDBTracingConfig() DBTracingConfig {
	return DBTracingConfig{
		Enabled:          false,
		LogFullSQL:       false,
		SlowQueryThresh:  200 * time.Millisecond,
		DBSystem:         "postgresql",
		WithoutVariables: true,
	}
}

// DBTracingPlugin wraps otelgorm plugin with custom slow query detection.
type DBTracingPlugin struct {
	config DBTracingConfig
	logger *zap.Logger
}

// NewDBTracingPlugin creates a new database tracing plugin with the given configuration.
func NewDBTracingPlugin(cfg DBTracingConfig, logger *zap.Logger) *DBTracingPlugin {
	return &DBTracingPlugin{
		config: cfg,
		logger: logger,
	}
}

// RegisterOtelGorm registers the otelgorm plugin with the given GORM DB instance,
// plus custom callbacks for slow query detection and error marking.
func (p *DBTracingPlugin) RegisterOtelGorm(db *gorm.DB) error {
	if !p.config.Enabled {
		p.logger.Debug("Database tracing disabled, skipping otelgorm registration")
		return nil
	}

	opts := []otelgorm.Option{
		otelgorm.WithDBName(p.config.DBSystem),
	}

	if !p.config.LogFullSQL {
		// Don't include query parameters in spans for security
		opts = append(opts, otelgorm.WithoutQueryVariables())
	}

	plugin := otelgorm.NewPlugin(opts...)
	if err := db.Use(plugin); err != nil {
		return err
	}

	if err := p.registerTimingCallbacks(db); err != nil {
		return err
	}

	p.logger.Info("Database tracing enabled",
		zap.Bool("log_full_sql", p.config.LogFullSQL),
		zap.Duration("slow_query_threshold", p.config.SlowQueryThresh),
		zap.String("db_system", p.config.DBSystem),
	)

	return nil
}

// registerTimingCallbacks hooks every GORM operation with a start-time marker
// and an after callback that annotates the active span.
func (p *DBTracingPlugin) registerTimingCallbacks(db *gorm.DB) error {
	before := func(db *gorm.DB) {
		if db.Statement.Context != nil {
			db.Statement.Context = context.WithValue(db.Statement.Context, queryStartTimeKey, time.Now())
		}
	}

	registrations := []func() error{
		func() error {
			return db.Callback().Create().Before("gorm:create").Register("otel_timing:before_create", before)
		},
		func() error {
			return db.Callback().Create().After("gorm:create").Register("otel_timing:after_create", p.afterCallback)
		},
		func() error {
			return db.Callback().Query().Before("gorm:query").Register("otel_timing:before_query", before)
		},
		func() error {
			return db.Callback().Query().After("gorm:query").Register("otel_timing:after_query", p.afterCallback)
		},
		func() error {
			return db.Callback().Update().Before("gorm:update").Register("otel_timing:before_update", before)
		},
		func() error {
			return db.Callback().Update().After("gorm:update").Register("otel_timing:after_update", p.afterCallback)
		},
		func() error {
			return db.Callback().Delete().Before("gorm:delete").Register("otel_timing:before_delete", before)
		},
		func() error {
			return db.Callback().Delete().After("gorm:delete").Register("otel_timing:after_delete", p.afterCallback)
		},
		func() error {
			return db.Callback().Row().Before("gorm:row").Register("otel_timing:before_row", before)
		},
		func() error {
			return db.Callback().Row().After("gorm:row").Register("otel_timing:after_row", p.afterCallback)
		},
		func() error {
			return db.Callback().Raw().Before("gorm:raw").Register("otel_timing:before_raw", before)
		},
		func() error {
			return db.Callback().Raw().After("gorm:raw").Register("otel_timing:after_raw", p.afterCallback)
		},
	}

	for _, register := range registrations {
		if err := register(); err != nil {
			return err
		}
	}

	return nil
}

// afterCallback annotates the active span with row counts, errors and slow
// query markers once a database operation completes.
func (p *DBTracingPlugin) afterCallback(db *gorm.DB) {
	ctx := db.Statement.Context
	if ctx == nil {
		return
	}

	span := trace.SpanFromContext(ctx)
	if span == nil || !span.IsRecording() {
		return
	}

	if db.Statement.RowsAffected >= 0 {
		span.SetAttributes(attribute.Int64("db.rows_affected", db.Statement.RowsAffected))
	}

	if db.Statement.Table != "" {
		span.SetAttributes(attribute.String("db.sql.table", db.Statement.Table))
	}

	// ErrRecordNotFound is expected behavior, not a failure
	if db.Error != nil && db.Error != gorm.ErrRecordNotFound {
		span.SetStatus(codes.Error, db.Error.Error())
		span.RecordError(db.Error)
	}

	if startTime, ok := ctx.Value(queryStartTimeKey).(time.Time); ok {
		elapsed := time.Since(startTime)
		if elapsed > p.config.SlowQueryThresh {
			span.SetAttributes(attribute.Bool("db.slow_query", true))
			span.SetAttributes(attribute.Int64("db.query_duration_ms", elapsed.Milliseconds()))
			span.AddEvent("slow_query_warning", trace.WithAttributes(
				attribute.Int64("duration_ms", elapsed.Milliseconds()),
				attribute.Int64("threshold_ms", p.config.SlowQueryThresh.Milliseconds()),
			))
		}
	}
}

// queryStartTimeKey is the context key for storing query start time.
type contextKey string

const queryStartTimeKey contextKey = "otel_query_start_time"
