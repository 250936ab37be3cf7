package config

import (
	"errors"
	"fmt"
	"net"
	"strings"
)

// ErrInvalidConfig is wrapped by every validation failure.
var ErrInvalidConfig = errors.New("invalid config")

// Verify validates the configuration.
func Verify(cfg *ServerConfig) error {
	if err := verifyServer(&cfg.Server); err != nil {
		return err
	}
	if err := verifyProtocol(&cfg.Protocol); err != nil {
		return err
	}
	return verifyLog(&cfg.Log)
}

func verifyServer(cfg *ServerSection) error {
	if err := verifyAddr("server.redis.addr", cfg.Redis.Addr); err != nil {
		return err
	}
	if cfg.Admin.Addr != "" {
		if err := verifyAddr("server.admin.addr", cfg.Admin.Addr); err != nil {
			return err
		}
		if cfg.Admin.Addr == cfg.Redis.Addr {
			return invalid("server.admin.addr conflicts with server.redis.addr (%s)", cfg.Admin.Addr)
		}
	}
	for _, entry := range cfg.Admin.Allow {
		if !validAllowEntry(entry) {
			return invalid("server.admin.allow: %q is neither an IP nor a CIDR block", entry)
		}
	}

	if cfg.Redis.ReadTimeout < 0 {
		return invalid("server.redis.read_timeout must not be negative")
	}
	if cfg.Redis.WriteTimeout < 0 {
		return invalid("server.redis.write_timeout must not be negative")
	}
	if cfg.Redis.IdleTimeout < 0 {
		return invalid("server.redis.idle_timeout must not be negative")
	}
	if cfg.ShutdownTimeout <= 0 {
		return invalid("server.shutdown_timeout must be positive")
	}

	if cfg.Redis.RateLimit < 0 {
		return invalid("server.redis.rate_limit must not be negative")
	}
	if cfg.Redis.RateLimit > 0 && cfg.Redis.RateBurst < 1 {
		return invalid("server.redis.rate_burst must be at least 1 when rate limiting is enabled")
	}
	if cfg.Redis.MaxConnections < 1 {
		return invalid("server.redis.max_connections must be at least 1")
	}

	if tls := cfg.Redis.TLS; (tls.CertFile == "") != (tls.KeyFile == "") {
		return invalid("server.redis.tls needs both cert_file and key_file")
	}
	return nil
}

func verifyAddr(key, addr string) error {
	if addr == "" {
		return invalid("%s is required", key)
	}
	if _, _, err := net.SplitHostPort(addr); err != nil {
		return invalid("%s: %v", key, err)
	}
	return nil
}

func validAllowEntry(entry string) bool {
	if strings.Contains(entry, "/") {
		_, _, err := net.ParseCIDR(entry)
		return err == nil
	}
	return net.ParseIP(entry) != nil
}

func verifyProtocol(cfg *ProtocolSection) error {
	limits := []struct {
		key   string
		value int
	}{
		{"protocol.max_depth", cfg.MaxDepth},
		{"protocol.max_array_len", cfg.MaxArrayLen},
		{"protocol.max_bulk_len", cfg.MaxBulkLen},
		{"protocol.max_line_len", cfg.MaxLineLen},
	}
	for _, l := range limits {
		if l.value < 1 {
			return invalid("%s must be at least 1", l.key)
		}
	}
	return nil
}

func verifyLog(cfg *LogSection) error {
	switch strings.ToLower(cfg.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return invalid("log.level %q is not one of debug, info, warn, error", cfg.Level)
	}
	switch strings.ToLower(cfg.Format) {
	case "json", "text":
	default:
		return invalid("log.format %q is not one of json, text", cfg.Format)
	}
	return nil
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidConfig, fmt.Sprintf(format, args...))
}
