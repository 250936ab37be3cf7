// Package tlsroots provides TLS certificate management.
//
//   - roots.go: trusted roots and client/server tls.Config construction
//   - watcher.go: server key pair hot-reload via fsnotify
//
// The tlstest subpackage writes throwaway key pairs for tests.
package tlsroots
