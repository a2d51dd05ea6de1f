// Package observability provides an OpenTelemetry metrics extension for
// conveyor. MetricsExtension implements the ext lifecycle hooks and
// records system-wide counters for produce, consume, dead-letter and job
// events.
//
// For per-message tracing and handler metrics, see the middleware
// package: middleware.Tracing() and middleware.Metrics().
package observability
