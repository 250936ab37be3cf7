package config

import "time"

// CLIConfig is the configuration for respkv-cli.
type CLIConfig struct {
	// Server is the default server address.
	Server string `koanf:"server" yaml:"server"`

	// Output is the default output format: text, json or yaml.
	Output string `koanf:"output" yaml:"output"`

	// Timeout bounds dialing and each command round trip.
	Timeout time.Duration `koanf:"timeout" yaml:"timeout"`

	// TLS enables TLS. CACert, when set, replaces the system roots.
	TLS    bool   `koanf:"tls" yaml:"tls,omitempty"`
	CACert string `koanf:"cacert" yaml:"cacert,omitempty"`

	// History is the REPL history file. Empty uses ~/.respkv/history.
	History string `koanf:"history" yaml:"history,omitempty"`
}

// Default returns the default CLI configuration.
func Default() *CLIConfig {
	return &CLIConfig{
		Server:  "127.0.0.1:6379",
		Output:  "text",
		Timeout: 5 * time.Second,
	}
}
