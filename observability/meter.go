package observability

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"github.com/kbukum/testserver/logger"
)

// InitMeter installs a meter provider exporting over OTLP/HTTP.
// The caller shuts the provider down on exit.
func InitMeter(ctx context.Context, cfg Config, log *logger.Logger) (*sdkmetric.MeterProvider, error) {
	opts := []otlpmetrichttp.Option{otlpmetrichttp.WithEndpoint(cfg.Endpoint)}
	if cfg.Insecure {
		opts = append(opts, otlpmetrichttp.WithInsecure())
	}
	exporter, err := otlpmetrichttp.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating metric exporter: %w", err)
	}

	res, err := newResource(cfg)
	if err != nil {
		return nil, fmt.Errorf("creating resource: %w", err)
	}

	var readerOpts []sdkmetric.PeriodicReaderOption
	if cfg.Interval > 0 {
		readerOpts = append(readerOpts, sdkmetric.WithInterval(cfg.Interval))
	}
	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter, readerOpts...)),
		sdkmetric.WithResource(res),
	)
	otel.SetMeterProvider(mp)

	if log != nil {
		log.Info("meter initialized", logger.Fields(
			"endpoint", cfg.Endpoint,
			"interval", cfg.Interval.String(),
		))
	}
	return mp, nil
}

// Meter returns the harness meter from the global provider.
func Meter() metric.Meter {
	return otel.Meter(InstrumentationName)
}

// Instruments are the harness metrics.
type Instruments struct {
	requests        metric.Int64Counter
	requestDuration metric.Float64Histogram
	startups        metric.Float64Histogram
	restarts        metric.Int64Counter
}

// NewInstruments creates the instruments on meter. A nil meter yields no-op
// instruments.
func NewInstruments(meter metric.Meter) (*Instruments, error) {
	if meter == nil {
		meter = noop.NewMeterProvider().Meter(InstrumentationName)
	}

	requests, err := meter.Int64Counter("testserver.requests",
		metric.WithDescription("Requests served by the harness"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating testserver.requests counter: %w", err)
	}
	requestDuration, err := meter.Float64Histogram("testserver.request.duration",
		metric.WithDescription("Duration of served requests"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating testserver.request.duration histogram: %w", err)
	}
	startups, err := meter.Float64Histogram("testserver.startup.duration",
		metric.WithDescription("Time from start request until the listener is bound"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating testserver.startup.duration histogram: %w", err)
	}
	restarts, err := meter.Int64Counter("testserver.restarts",
		metric.WithDescription("Completed and failed restart cycles"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating testserver.restarts counter: %w", err)
	}

	return &Instruments{
		requests:        requests,
		requestDuration: requestDuration,
		startups:        startups,
		restarts:        restarts,
	}, nil
}

// NopInstruments returns instruments that record nothing.
func NopInstruments() *Instruments {
	ins, _ := NewInstruments(nil)
	return ins
}

// RecordRequest records one served request.
func (i *Instruments) RecordRequest(ctx context.Context, method string, status int, d time.Duration) {
	i.requests.Add(ctx, 1, metric.WithAttributes(
		attribute.String("method", method),
		attribute.String(AttrStatus, strconv.Itoa(status)),
	))
	i.requestDuration.Record(ctx, d.Seconds(), metric.WithAttributes(attribute.String("method", method)))
}

// RecordStartup records how long a bind took.
func (i *Instruments) RecordStartup(ctx context.Context, addr string, d time.Duration) {
	i.startups.Record(ctx, d.Seconds(), metric.WithAttributes(attribute.String(AttrAddr, addr)))
}

// RecordRestart records one restart cycle and whether it succeeded.
func (i *Instruments) RecordRestart(ctx context.Context, addr string, ok bool) {
	result := "ok"
	if !ok {
		result = "failed"
	}
	i.restarts.Add(ctx, 1, metric.WithAttributes(
		attribute.String(AttrAddr, addr),
		attribute.String("result", result),
	))
}
