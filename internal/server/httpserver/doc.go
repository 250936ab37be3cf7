// Package httpserver provides the respkv admin HTTP endpoint.
//
// It serves operational routes only, never key-value data:
//
//   - GET /metrics: Prometheus exposition
//   - GET /healthz: liveness
//   - GET /readyz: readiness (503 while the server is not accepting)
//   - GET /version: build information
//
// Every route passes through Recover, RequestID and AccessLog, and
// optionally through a client IP allowlist.
package httpserver
