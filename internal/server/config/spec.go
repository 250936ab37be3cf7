package config

import "time"

// ServerConfig is the root configuration for respkv-server.
type ServerConfig struct {
	Server   ServerSection   `koanf:"server"`
	Protocol ProtocolSection `koanf:"protocol"`
	Log      LogSection      `koanf:"log"`
}

// ServerSection configures server endpoints.
type ServerSection struct {
	Redis RedisConfig `koanf:"redis"`
	Admin AdminConfig `koanf:"admin"`

	// ShutdownTimeout bounds how long shutdown waits for sessions to
	// finish their current command.
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

// RedisConfig configures the RESP listener.
type RedisConfig struct {
	Addr string `koanf:"addr"`

	ReadTimeout  time.Duration `koanf:"read_timeout"`
	WriteTimeout time.Duration `koanf:"write_timeout"`

	// IdleTimeout closes connections that send nothing for this long.
	// Zero disables it.
	IdleTimeout time.Duration `koanf:"idle_timeout"`

	// RateLimit is the per client IP command rate (commands/second).
	// Zero disables rate limiting.
	RateLimit float64 `koanf:"rate_limit"`
	RateBurst int     `koanf:"rate_burst"`

	MaxConnections int `koanf:"max_connections"`

	// UnixSocket, when set, also serves RESP on this socket path.
	UnixSocket string `koanf:"unix_socket"`

	TLS TLSConfig `koanf:"tls"`
}

// TLSConfig enables TLS on the TCP listener when both files are set.
// The key pair is reloaded when either file changes.
type TLSConfig struct {
	CertFile string `koanf:"cert_file"`
	KeyFile  string `koanf:"key_file"`
}

// Enabled reports whether TLS is configured.
func (c TLSConfig) Enabled() bool {
	return c.CertFile != "" && c.KeyFile != ""
}

// AdminConfig configures the admin HTTP endpoint (metrics, health).
// An empty Addr disables it.
type AdminConfig struct {
	Addr string `koanf:"addr"`

	// Allow restricts admin clients to these IPs or CIDR blocks.
	Allow []string `koanf:"allow"`
}

// ProtocolSection bounds what the frame decoder accepts.
type ProtocolSection struct {
	MaxDepth    int `koanf:"max_depth"`
	MaxArrayLen int `koanf:"max_array_len"`
	MaxBulkLen  int `koanf:"max_bulk_len"`
	MaxLineLen  int `koanf:"max_line_len"`
}

// LogSection configures logging.
type LogSection struct {
	Level       string `koanf:"level"`
	Format      string `koanf:"format"`
	AddSource   bool   `koanf:"add_source"`
	MaxValueLen int    `koanf:"max_value_len"`
}
