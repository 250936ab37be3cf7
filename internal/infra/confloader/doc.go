// Package confloader loads respkv configuration.
//
// It uses koanf to merge configuration sources into a typed struct:
//
//   - loader.go: YAML file and environment variable loading
//   - provider.go: in-memory map provider (flags, tests)
//   - watcher.go: fsnotify watcher for configuration file changes
//
// Priority (highest to lowest):
//
//  1. Environment variables (RESPKV_ prefix)
//  2. Configuration file
//  3. Values already present in the target struct (defaults)
//
// Environment variable names nest with a double underscore, so that
// single underscores stay part of the key:
//
//	RESPKV_SERVER__REDIS__READ_TIMEOUT=10s -> server.redis.read_timeout
package confloader
