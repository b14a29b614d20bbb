// Package observability bundles the hub's operational surfaces:
// structured JSON logging, Prometheus metrics, OpenTelemetry providers,
// health probes and graceful shutdown.
//
// The session core reports through these surfaces but never depends on
// their availability: a nil Metrics or logger degrades to silence, not
// failure.
package observability
