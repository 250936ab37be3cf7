// Package metric provides Prometheus metrics for respkv.
//
// This package implements metrics collection and exposition:
//
//   - prometheus.go: Prometheus registry and HTTP handler
//   - collector.go: collector reading key counts from the store
//
// Metrics include:
//
//   - Connection gauges and counters
//   - Command counters and latency histograms by command name
//   - Protocol error and rate limit counters
//   - Key and expiration counts
//
// Metrics are exposed at /metrics by the admin HTTP server.
package metric
