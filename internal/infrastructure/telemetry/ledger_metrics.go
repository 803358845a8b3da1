package telemetry

import (
	"context"
	"errors"
	"time"

	"github.com/erp/stockledger/internal/domain/shared"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// LedgerMetrics records stock ledger activity. A nil *LedgerMetrics
// records nothing, so the ledger can run without metrics wired.
type LedgerMetrics struct {
	operations metric.Int64Counter
	units      metric.Int64Counter
	lowStock   metric.Int64Counter
	duration   metric.Float64Histogram
	lockWait   metric.Float64Histogram
}

// ErrMeterNil is returned when meter is nil.
var ErrMeterNil = errors.New("NewLedgerMetrics: meter cannot be nil")

// NewLedgerMetrics creates the ledger instruments on meter.
func NewLedgerMetrics(meter metric.Meter) (*LedgerMetrics, error) {
	if meter == nil {
		return nil, ErrMeterNil
	}
	in := NewInstruments(meter)
	m := &LedgerMetrics{
		operations: in.Counter("ledger.operations.total", "Stock ledger operations by outcome", "{operation}"),
		units:      in.Counter("ledger.units.moved", "Absolute units moved by committed movements", "{unit}"),
		lowStock:   in.Counter("ledger.low_stock.total", "Movements that left an item at or below its threshold", "{event}"),
		duration:   in.Seconds("ledger.operation.duration", "Stock ledger operation latency", LedgerDurationBuckets),
		lockWait:   in.Seconds("ledger.lock.wait", "Time spent waiting for the per-item lock", LedgerDurationBuckets),
	}
	if err := in.Err(); err != nil {
		return nil, err
	}
	return m, nil
}

// RecordOperation records one finished ledger operation. A nil receiver is a no-op.
func (m *LedgerMetrics) RecordOperation(ctx context.Context, operation string, elapsed time.Duration, err error) {
	if m == nil {
		return
	}
	attrs := []attribute.KeyValue{AttrOperation.String(operation)}
	if err != nil {
		attrs = append(attrs, AttrOutcome.String("error"), AttrErrorCode.String(errorCode(err)))
	} else {
		attrs = append(attrs, AttrOutcome.String("ok"))
	}
	m.operations.Add(ctx, 1, metric.WithAttributes(attrs...))
	RecordSeconds(ctx, m.duration, elapsed, AttrOperation.String(operation))
}

// RecordMovement records a committed movement
func (m *LedgerMetrics) RecordMovement(ctx context.Context, movementType string, units int64, lowStock bool) {
	if m == nil {
		return
	}
	m.units.Add(ctx, units, metric.WithAttributes(AttrMovement.String(movementType)))
	if lowStock {
		m.lowStock.Add(ctx, 1)
	}
}

// RecordLockWait records how long an operation waited for its item lock
func (m *LedgerMetrics) RecordLockWait(ctx context.Context, waited time.Duration) {
	if m == nil {
		return
	}
	RecordSeconds(ctx, m.lockWait, waited)
}

func errorCode(err error) string {
	if code := shared.CodeOf(err); code != "" {
		return code
	}
	return "INTERNAL"
}
