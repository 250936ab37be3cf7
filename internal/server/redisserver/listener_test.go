package redisserver

import (
	"bufio"
	"context"
	"crypto/tls"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/yndnr/respkv/internal/infra/tlsroots"
	"github.com/yndnr/respkv/internal/infra/tlsroots/tlstest"
	"github.com/yndnr/respkv/internal/server/localserver"
	"github.com/yndnr/respkv/pkg/resp"
)

func TestServer_TLS(t *testing.T) {
	certFile, keyFile := tlstest.WriteKeyPair(t, t.TempDir(), "respkv-test")
	certs, err := tlsroots.NewWatcher(certFile, keyFile)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { certs.Stop() })

	ts := startServer(t, &Config{TLS: tlsroots.ServerConfig(certs)}, newStore(t))

	clientCfg, err := tlsroots.ClientConfig(certFile, "localhost")
	if err != nil {
		t.Fatal(err)
	}
	conn, err := tls.Dial("tcp", ts.addr, clientCfg)
	if err != nil {
		t.Fatalf("tls dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	c := &client{t: t, conn: conn, br: bufio.NewReader(conn)}
	c.send("SET", "k", "v")
	c.expect(resp.Simple("OK"))
	c.send("GET", "k")
	c.expect(resp.BulkString("v"))
}

func TestServer_TLSRejectsPlaintext(t *testing.T) {
	certFile, keyFile := tlstest.WriteKeyPair(t, t.TempDir(), "respkv-test")
	certs, err := tlsroots.NewWatcher(certFile, keyFile)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { certs.Stop() })

	ts := startServer(t, &Config{TLS: tlsroots.ServerConfig(certs)}, newStore(t))

	conn, err := net.DialTimeout("tcp", ts.addr, time.Second)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { conn.Close() })

	c := &client{t: t, conn: conn, br: bufio.NewReader(conn)}
	c.send("PING")
	if f, err := c.read(); err == nil && f.Equal(resp.Simple("PONG")) {
		t.Fatal("plaintext PING answered on a TLS listener")
	}
}

func TestServer_UnixSocket(t *testing.T) {
	dir, err := os.MkdirTemp("", "respkv")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.RemoveAll(dir) })
	path := filepath.Join(dir, "r.sock")

	ln, err := localserver.Listen(path, localserver.DefaultPerm)
	if err != nil {
		t.Fatalf("Listen() error = %v", err)
	}

	db := newStore(t)
	srv := New(&Config{RateLimit: 1, RateBurst: 1}, db)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Run(ctx, ln) }()
	t.Cleanup(func() {
		cancel()
		<-done
		shutdownCtx, stop := context.WithTimeout(context.Background(), 2*time.Second)
		defer stop()
		_ = srv.Shutdown(shutdownCtx)
	})

	conn, err := net.Dial("unix", path)
	if err != nil {
		t.Fatalf("dial unix: %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	// Unix peers share one limiter bucket; the first command fits the burst.
	c := &client{t: t, conn: conn, br: bufio.NewReader(conn)}
	c.send("SET", "k", "v")
	c.expect(resp.Simple("OK"))

	if got, ok := db.Get("k"); !ok || string(got) != "v" {
		t.Errorf("store value = %q, %v", got, ok)
	}
}
