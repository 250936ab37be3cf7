// Package repl provides interactive mode for respkv-cli.
//
//   - repl.go: main loop and local command dispatch
//   - tokenize.go: splitting input lines into arguments
//   - completer.go: command name completion used by help
//   - history.go: history persistence
//
// Lines that are not local commands (connect, disconnect, help, history,
// exit, quit) are sent to the server as a command array.
package repl
