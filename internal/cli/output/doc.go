// Package output renders server replies for respkv-cli.
//
//   - formatter.go: Formatter interface and factory
//   - text.go: redis-cli style text
//   - json.go: JSON output formatting
//   - yaml.go: YAML output formatting
//   - spinner.go: progress indicator for slow connects
package output
