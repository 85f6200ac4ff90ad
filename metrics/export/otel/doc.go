// Package otel publishes authcore metrics through an OpenTelemetry Meter.
//
// Every engine counter becomes an Int64ObservableCounter. The latency
// histogram is reported as cumulative bucket counts on one observable gauge,
// keyed by an "le" attribute, plus a _count gauge. All instruments are read
// by a single callback per collection, so the caller owns the
// MeterProvider and its export interval.
package otel
