package logger

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"
	gormlogger "gorm.io/gorm/logger"
)

// SQLLogConfig tunes which statements SQLLogger records
type SQLLogConfig struct {
	Level         gormlogger.LogLevel
	SlowThreshold time.Duration // zero disables slow-query warnings
}

// SQLLogger writes gorm's statement log through zap. Every entry carries
// the tenant and request bound to the statement's context.
type SQLLogger struct {
	log *zap.Logger
	cfg SQLLogConfig
}

// NewSQLLogger returns a gorm logger writing to log under the "sql" name
func NewSQLLogger(log *zap.Logger, cfg SQLLogConfig) *SQLLogger {
	return &SQLLogger{log: log.Named("sql"), cfg: cfg}
}

// SQLLogLevel maps the log.level setting onto gorm's coarser levels.
// debug and info trace every statement; anything unknown keeps warnings.
func SQLLogLevel(level string) gormlogger.LogLevel {
	switch strings.ToLower(level) {
	case "silent":
		return gormlogger.Silent
	case "error":
		return gormlogger.Error
	case "info", "debug":
		return gormlogger.Info
	}
	return gormlogger.Warn
}

func (l *SQLLogger) LogMode(level gormlogger.LogLevel) gormlogger.Interface {
	clone := *l
	clone.cfg.Level = level
	return &clone
}

func (l *SQLLogger) Info(ctx context.Context, msg string, args ...any) {
	l.printf(ctx, gormlogger.Info, msg, args)
}

func (l *SQLLogger) Warn(ctx context.Context, msg string, args ...any) {
	l.printf(ctx, gormlogger.Warn, msg, args)
}

func (l *SQLLogger) Error(ctx context.Context, msg string, args ...any) {
	l.printf(ctx, gormlogger.Error, msg, args)
}

func (l *SQLLogger) printf(ctx context.Context, level gormlogger.LogLevel, msg string, args []any) {
	if l.cfg.Level < level {
		return
	}
	sugar := l.log.With(ContextFields(ctx)...).Sugar()
	switch level {
	case gormlogger.Error:
		sugar.Errorf(msg, args...)
	case gormlogger.Warn:
		sugar.Warnf(msg, args...)
	default:
		sugar.Infof(msg, args...)
	}
}

// Trace records one executed statement. Missing rows are not errors here,
// and lock or uniqueness conflicts are expected under concurrent stock
// changes, so those go out as warnings.
func (l *SQLLogger) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	if l.cfg.Level <= gormlogger.Silent {
		return
	}
	elapsed := time.Since(begin)
	slow := l.cfg.SlowThreshold > 0 && elapsed > l.cfg.SlowThreshold

	var msg string
	var level gormlogger.LogLevel
	switch {
	case err != nil && errors.Is(err, gormlogger.ErrRecordNotFound):
		return
	case err != nil && isContention(err):
		msg, level = "SQL contention", gormlogger.Warn
	case err != nil:
		msg, level = "SQL error", gormlogger.Error
	case slow:
		msg, level = "Slow SQL", gormlogger.Warn
	default:
		msg, level = "SQL", gormlogger.Info
	}
	if l.cfg.Level < level {
		return
	}

	sql, rows := fc()
	fields := append(ContextFields(ctx),
		zap.String("sql", sql),
		zap.Int64("rows", rows),
		zap.Duration("elapsed", elapsed),
	)
	switch level {
	case gormlogger.Error:
		l.log.Error(msg, append(fields, zap.Error(err))...)
	case gormlogger.Warn:
		if err != nil {
			fields = append(fields, zap.Error(err))
		}
		if slow {
			fields = append(fields, zap.Duration("threshold", l.cfg.SlowThreshold))
		}
		l.log.Warn(msg, fields...)
	default:
		l.log.Debug(msg, fields...)
	}
}

// postgres codes raised when concurrent writers collide
var contentionCodes = map[string]bool{
	"55P03": true, // lock_not_available
	"40001": true, // serialization_failure
	"40P01": true, // deadlock_detected
	"23505": true, // unique_violation
}

func isContention(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && contentionCodes[pgErr.Code]
}
