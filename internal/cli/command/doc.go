// Package command provides CLI command definitions for respkv-cli.
//
// This package defines all CLI commands using urfave/cli/v2:
//
//   - root.go: root command, global flags and settings resolution
//   - kv.go: ping, get and set
//   - repl.go: interactive mode, also the default without a command
//   - config.go: config show and config init
//
// Commands follow a consistent pattern: resolve settings, dial, send one
// request, format the reply to the app writer.
package command
