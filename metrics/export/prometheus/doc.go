// Package prometheus serves authcore metrics in the Prometheus text
// exposition format.
//
// Counters are named authcore_*_total; the single histogram is
// authcore_authenticate_latency_seconds. Nothing is registered globally:
// callers mount [Exporter.Handler] where they want it.
package prometheus
