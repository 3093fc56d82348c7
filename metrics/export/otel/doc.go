// Package otel publishes authcore metrics through OpenTelemetry.
//
// [NewOTelExporter] registers an Int64ObservableCounter per counter and an
// Int64ObservableGauge per latency bucket. One callback reads
// Service.MetricsSnapshot on each collection cycle. Callers own the
// MeterProvider.
package otel
