package telemetry

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.uber.org/zap"
)

type MetricsConfig struct {
	Enabled           bool
	CollectorEndpoint string
	ExportInterval    time.Duration // zero means one minute
	ServiceName       string
	Insecure          bool
}

// MeterProvider pushes metrics to the collector on a fixed interval.
type MeterProvider struct {
	provider *sdkmetric.MeterProvider
	logger   *zap.Logger
}

func NewMeterProvider(ctx context.Context, cfg MetricsConfig, logger *zap.Logger) (*MeterProvider, error) {
	mp := &MeterProvider{logger: logger}
	if !cfg.Enabled {
		logger.Info("Metrics disabled")
		return mp, nil
	}

	interval := cfg.ExportInterval
	if interval <= 0 {
		interval = time.Minute
	}
	opts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithEndpoint(cfg.CollectorEndpoint)}
	if cfg.Insecure {
		opts = append(opts, otlpmetricgrpc.WithInsecure())
	}
	exporter, err := otlpmetricgrpc.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create metric exporter: %w", err)
	}
	res, err := newResource(cfg.ServiceName)
	if err != nil {
		return nil, err
	}

	reader := sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(interval))
	mp.provider = sdkmetric.NewMeterProvider(sdkmetric.WithResource(res), sdkmetric.WithReader(reader))
	otel.SetMeterProvider(mp.provider)

	logger.Info("Metrics enabled",
		zap.String("collector_endpoint", cfg.CollectorEndpoint),
		zap.Duration("export_interval", interval))
	return mp, nil
}

// Shutdown exports what is buffered, then stops the reader.
func (mp *MeterProvider) Shutdown(ctx context.Context) error {
	if mp.provider == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, shutdownTimeout)
	defer cancel()
	if err := mp.provider.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown meter provider: %w", err)
	}
	return nil
}

// Meter falls back to the global no-op meter when metrics are disabled.
func (mp *MeterProvider) Meter(name string, opts ...metric.MeterOption) metric.Meter {
	if mp.provider != nil {
		return mp.provider.Meter(name, opts...)
	}
	return otel.GetMeterProvider().Meter(name, opts...)
}

func (mp *MeterProvider) IsEnabled() bool {
	return mp.provider != nil
}

// Instruments creates instruments on one meter and keeps the first
// creation error, so a set of instruments is checked once with Err.
type Instruments struct {
	meter metric.Meter
	err   error
}

// NewInstruments starts an instrument set on meter
func NewInstruments(meter metric.Meter) *Instruments {
	return &Instruments{meter: meter}
}

// Counter creates a monotonic int64 counter
func (in *Instruments) Counter(name, description, unit string) metric.Int64Counter {
	c, err := in.meter.Int64Counter(name, metric.WithDescription(description), metric.WithUnit(unit))
	in.keep(name, err)
	return c
}

// Gauge creates an int64 up-down counter for values that rise and fall
func (in *Instruments) Gauge(name, description, unit string) metric.Int64UpDownCounter {
	g, err := in.meter.Int64UpDownCounter(name, metric.WithDescription(description), metric.WithUnit(unit))
	in.keep(name, err)
	return g
}

// Seconds creates a latency histogram in seconds over buckets
func (in *Instruments) Seconds(name, description string, buckets []float64) metric.Float64Histogram {
	h, err := in.meter.Float64Histogram(name,
		metric.WithDescription(description),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(buckets...),
	)
	in.keep(name, err)
	return h
}

// Err returns the first instrument creation failure
func (in *Instruments) Err() error {
	return in.err
}

func (in *Instruments) keep(name string, err error) {
	if err != nil && in.err == nil {
		in.err = fmt.Errorf("instrument %s: %w", name, err)
	}
}

// RecordSeconds records d on a seconds histogram
func RecordSeconds(ctx context.Context, h metric.Float64Histogram, d time.Duration, attrs ...attribute.KeyValue) {
	h.Record(ctx, d.Seconds(), metric.WithAttributes(attrs...))
}

// Attribute keys shared by the ledger and HTTP instruments
var (
	AttrTenantID  = attribute.Key("tenant_id")
	AttrOperation = attribute.Key("operation")
	AttrMovement  = attribute.Key("movement_type")
	AttrErrorCode = attribute.Key("error_code")
	AttrOutcome   = attribute.Key("outcome")

	AttrHTTPMethod     = attribute.Key("http_method")
	AttrHTTPRoute      = attribute.Key("http_route")
	AttrHTTPStatusCode = attribute.Key("http_status_code")
)

// Latency buckets in seconds. Ledger operations are in-process plus one
// short transaction; HTTP adds serialization and the network.
var (
	LedgerDurationBuckets = []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5}
	HTTPDurationBuckets   = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10}
)
