package command

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/yndnr/respkv/internal/infra/tlsroots"
	"github.com/yndnr/respkv/internal/infra/tlsroots/tlstest"
	"github.com/yndnr/respkv/internal/server/redisserver"
	"github.com/yndnr/respkv/internal/storage/memory"
)

func TestPing_TLS(t *testing.T) {
	certFile, keyFile := tlstest.WriteKeyPair(t, t.TempDir(), "respkv")
	certs, err := tlsroots.NewWatcher(certFile, keyFile)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { certs.Stop() })

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	db := memory.New()
	srv := redisserver.New(&redisserver.Config{TLS: tlsroots.ServerConfig(certs)}, db)
	ctx, cancel := context.WithCancel(context.Background())
	go srv.Run(ctx, ln)
	t.Cleanup(func() {
		cancel()
		shutdownCtx, stop := context.WithTimeout(context.Background(), 2*time.Second)
		defer stop()
		_ = srv.Shutdown(shutdownCtx)
		db.Close()
	})

	res := run(t, "", "-s", ln.Addr().String(), "--cacert", certFile, "--sni", "localhost", "ping")
	if res.err != nil {
		t.Fatalf("ping over tls: %v", res.err)
	}
	if res.stdout != "PONG\n" {
		t.Errorf("stdout = %q, want PONG", res.stdout)
	}
}

func TestTLS_MissingCACert(t *testing.T) {
	res := run(t, "", "--cacert", "/nonexistent/ca.pem", "ping")
	if res.err == nil {
		t.Fatal("expected error for missing CA file")
	}
}
