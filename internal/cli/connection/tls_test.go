package connection

import (
	"context"
	"crypto/tls"
	"testing"
	"time"

	"github.com/yndnr/respkv/internal/infra/tlsroots"
	"github.com/yndnr/respkv/internal/infra/tlsroots/tlstest"
	"github.com/yndnr/respkv/pkg/resp"
)

func tlsListener(t *testing.T) (addr, caFile string, requests <-chan resp.Frame) {
	t.Helper()
	certFile, keyFile := tlstest.WriteKeyPair(t, t.TempDir(), "server")
	certs, err := tlsroots.NewWatcher(certFile, keyFile)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { certs.Stop() })

	ln := listen(t)
	requests = fakeServer(t, tls.NewListener(ln, tlsroots.ServerConfig(certs)), resp.Simple("PONG"))
	return ln.Addr().String(), certFile, requests
}

func TestDial_TLS(t *testing.T) {
	addr, caFile, requests := tlsListener(t)

	clientCfg, err := tlsroots.ClientConfig(caFile, "localhost")
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	c, err := Dial(ctx, addr, &DialOptions{TLS: clientCfg})
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	defer c.Close()

	reply, err := c.Do(ctx, "PING")
	if err != nil {
		t.Fatalf("Do() error = %v", err)
	}
	if !reply.Equal(resp.Simple("PONG")) {
		t.Errorf("reply = %v, want PONG", reply)
	}
	if got := <-requests; !got.Equal(resp.Array(resp.BulkString("PING"))) {
		t.Errorf("server received %v", got)
	}
}

func TestDial_TLSUntrustedServerFailsFast(t *testing.T) {
	addr, _, _ := tlsListener(t)

	// System roots do not trust the self-signed certificate.
	clientCfg, err := tlsroots.ClientConfig("", "localhost")
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	start := time.Now()
	if _, err := Dial(ctx, addr, &DialOptions{TLS: clientCfg}); err == nil {
		t.Fatal("Dial() should fail certificate verification")
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Errorf("verification failure retried for %v, want permanent", elapsed)
	}
}
