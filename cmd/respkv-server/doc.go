// Package main provides the entry point for respkv-server.
//
// The server provides:
//
//   - a RESP2 listener serving PING, GET and SET with PX expiration
//   - an optional admin HTTP listener with health, readiness, version
//     and Prometheus metrics
//
// Usage:
//
//	respkv-server [flags]
//	respkv-server -config /path/to/config.yaml
//
// Configuration is read from the file and RESPKV_* environment variables.
// Changes to the file's log level apply without a restart.
package main
