// Package config provides respkv-cli configuration.
//
//   - spec.go: CLIConfig struct (~/.respkv/cli.yaml)
//   - loader.go: loading with environment overrides, and saving
//
// Priority: flags > RESPKV_CLI_* environment > file > defaults. Flags are
// applied by the command package.
package config
