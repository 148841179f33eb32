// Package observability sets up OpenTelemetry tracing and metrics for the
// harness.
//
// InitTracer and InitMeter install OTLP/HTTP exporting providers as the
// global providers. Setup does both when observability is enabled and
// returns one shutdown function. Instruments holds the counters and
// histograms the engine and the lifecycle controller record into; built on a
// no-op meter they cost nothing.
package observability
