package config

import (
	"time"

	"github.com/yndnr/respkv/pkg/resp"
)

// Default configuration values.
const (
	DefaultRedisAddr      = "127.0.0.1:6379"
	DefaultAdminAddr      = "127.0.0.1:9121"
	DefaultReadTimeout    = 30 * time.Second
	DefaultWriteTimeout   = 30 * time.Second
	DefaultRateBurst      = 100
	DefaultMaxConnections = 10000

	DefaultShutdownTimeout = 30 * time.Second

	DefaultLogLevel    = "info"
	DefaultLogFormat   = "json"
	DefaultMaxValueLen = 256
)

// Default returns the default server configuration.
func Default() *ServerConfig {
	return &ServerConfig{
		Server: ServerSection{
			Redis: RedisConfig{
				Addr:           DefaultRedisAddr,
				ReadTimeout:    DefaultReadTimeout,
				WriteTimeout:   DefaultWriteTimeout,
				RateBurst:      DefaultRateBurst,
				MaxConnections: DefaultMaxConnections,
			},
			Admin: AdminConfig{
				Addr: DefaultAdminAddr,
			},
			ShutdownTimeout: DefaultShutdownTimeout,
		},
		Protocol: ProtocolSection{
			MaxDepth:    resp.DefaultMaxDepth,
			MaxArrayLen: resp.DefaultMaxArrayLen,
			MaxBulkLen:  resp.DefaultMaxBulkLen,
			MaxLineLen:  resp.DefaultMaxLineLen,
		},
		Log: LogSection{
			Level:       DefaultLogLevel,
			Format:      DefaultLogFormat,
			MaxValueLen: DefaultMaxValueLen,
		},
	}
}

// Decoder returns a frame decoder bounded by the protocol section.
func (p ProtocolSection) Decoder() *resp.Decoder {
	return &resp.Decoder{
		MaxDepth:    p.MaxDepth,
		MaxArrayLen: p.MaxArrayLen,
		MaxBulkLen:  p.MaxBulkLen,
		MaxLineLen:  p.MaxLineLen,
	}
}
