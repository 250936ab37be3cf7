// Package redisserver serves the respkv key-value store over RESP2.
//
// A Server accepts TCP connections and runs one handler goroutine per
// connection. Each handler reads a frame, applies it as a command against
// the shared store, writes the reply and only then reads the next frame.
//
// Supported commands:
//   - PING [message]
//   - GET key
//   - SET key value [PX milliseconds]
//
// Anything else is answered with an error reply and the connection stays
// open. Malformed frames and malformed arguments close the connection.
//
// Shutdown is broadcast to every handler. A handler blocked reading from
// its socket stops immediately; a handler that is executing a command or
// writing a reply finishes it first.
package redisserver
