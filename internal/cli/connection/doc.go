// Package connection provides the respkv-cli connection to a server.
//
//   - client.go: RESP client over TCP, one request in flight at a time
//   - manager.go: the current connection of an interactive session
//
// Dialing retries with exponential backoff until the context expires,
// so the CLI can be started while the server is still coming up.
package connection
