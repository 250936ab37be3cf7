// Package logger provides structured logging for respkv.
//
// It wraps the standard library log/slog:
//
//   - logger.go: Logger interface, configuration and dynamic level
//   - context.go: context propagation of the logger and connection ID
//   - truncate.go: clipping of oversized attribute values
//
// Stored values can be arbitrarily large. String, byte slice and
// fmt.Stringer attributes longer than Config.MaxValueLen are clipped, so
// logging a whole request frame at debug level stays readable.
package logger
