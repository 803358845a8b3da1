package telemetry

import (
	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// DBTracingConfig holds configuration for database tracing.
type DBTracingConfig struct {
	Enabled    bool
	LogFullSQL bool   // include query variables in spans (dev only)
	DBSystem   string // default: "postgresql"
}

// RegisterDBTracing installs the otelgorm plugin on db, plus a callback that
// tags each statement span with the tenant-scoped table it touched.
func RegisterDBTracing(db *gorm.DB, cfg DBTracingConfig, logger *zap.Logger) error {
	if !cfg.Enabled {
		logger.Debug("Database tracing disabled, skipping otelgorm registration")
		return nil
	}

	dbSystem := cfg.DBSystem
	if dbSystem == "" {
		dbSystem = "postgresql"
	}

	opts := []otelgorm.Option{
		otelgorm.WithDBName(dbSystem),
	}
	if !cfg.LogFullSQL {
		opts = append(opts, otelgorm.WithoutQueryVariables())
	}
	if err := db.Use(otelgorm.NewPlugin(opts...)); err != nil {
		return err
	}

	if err := db.Callback().Query().After("gorm:query").Register("otel_table:query", tagTable); err != nil {
		return err
	}
	if err := db.Callback().Update().After("gorm:update").Register("otel_table:update", tagTable); err != nil {
		return err
	}
	if err := db.Callback().Create().After("gorm:create").Register("otel_table:create", tagTable); err != nil {
		return err
	}

	logger.Info("Database tracing enabled",
		zap.Bool("log_full_sql", cfg.LogFullSQL),
		zap.String("db_system", dbSystem),
	)
	return nil
}

func tagTable(db *gorm.DB) {
	if db.Statement == nil || db.Statement.Context == nil {
		return
	}
	span := trace.SpanFromContext(db.Statement.Context)
	if !span.IsRecording() {
		return
	}
	if db.Statement.Table != "" {
		span.SetAttributes(attribute.String("db.sql.table", db.Statement.Table))
	}
	span.SetAttributes(attribute.Int64("db.rows_affected", db.Statement.RowsAffected))
}
