// Package main provides the entry point for respkv-cli.
//
// respkv-cli is the command-line client for respkv, supporting both
// single-command mode and interactive REPL mode.
//
// Usage:
//
//	respkv-cli [-s host:port] [-o text|json|yaml] ping|get|set|repl|config ...
//	respkv-cli                 # interactive mode
package main
