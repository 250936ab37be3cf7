// Package buildinfo reports the version of the running respkv binary.
//
// Version, Commit and BuildTime are injected with ldflags:
//
//	go build -ldflags "-X github.com/yndnr/respkv/internal/infra/buildinfo.Version=v0.3.0"
//
// When they are not injected, the Go toolchain's embedded build
// information (module version, vcs revision and time) is used instead.
package buildinfo
