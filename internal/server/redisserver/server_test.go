package redisserver

import (
	"bufio"
	"context"
	"errors"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"

	"github.com/yndnr/respkv/internal/storage/memory"
	"github.com/yndnr/respkv/internal/telemetry/metric"
	"github.com/yndnr/respkv/pkg/resp"
)

type testServer struct {
	srv    *Server
	addr   string
	cancel context.CancelFunc
	done   chan error
}

func startServer(t *testing.T, cfg *Config, db Store, opts ...Option) *testServer {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}

	srv := New(cfg, db, opts...)
	ctx, cancel := context.WithCancel(context.Background())
	ts := &testServer{srv: srv, addr: ln.Addr().String(), cancel: cancel, done: make(chan error, 1)}
	go func() {
		ts.done <- srv.Run(ctx, ln)
	}()

	t.Cleanup(func() {
		cancel()
		shutdownCtx, stop := context.WithTimeout(context.Background(), 2*time.Second)
		defer stop()
		_ = srv.Shutdown(shutdownCtx)
	})
	return ts
}

func newStore(t *testing.T) *memory.Store {
	t.Helper()
	s := memory.New()
	t.Cleanup(s.Close)
	return s
}

type client struct {
	t    *testing.T
	conn net.Conn
	br   *bufio.Reader
	buf  []byte
}

func dial(t *testing.T, addr string) *client {
	t.Helper()
	c, err := net.Dial("tcp", addr)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return &client{t: t, conn: c, br: bufio.NewReader(c)}
}

func (c *client) send(args ...string) {
	c.t.Helper()
	c.sendRaw(resp.Encode(request(args...)))
}

func (c *client) sendRaw(b []byte) {
	c.t.Helper()
	if _, err := c.conn.Write(b); err != nil {
		c.t.Fatalf("write: %v", err)
	}
}

// read returns the next reply frame, or an error once the server closed
// the connection.
func (c *client) read() (resp.Frame, error) {
	_ = c.conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	chunk := make([]byte, 512)
	for {
		if len(c.buf) > 0 {
			f, n, err := resp.Decode(c.buf)
			if err == nil {
				c.buf = c.buf[n:]
				return f, nil
			}
			if !errors.Is(err, resp.ErrIncomplete) {
				return resp.Frame{}, err
			}
		}
		n, err := c.br.Read(chunk)
		c.buf = append(c.buf, chunk[:n]...)
		if err != nil && n == 0 {
			return resp.Frame{}, err
		}
	}
}

func (c *client) expect(want resp.Frame) {
	c.t.Helper()
	got, err := c.read()
	if err != nil {
		c.t.Fatalf("read reply: %v", err)
	}
	if !got.Equal(want) {
		c.t.Fatalf("reply = %v, want %v", got, want)
	}
}

func (c *client) expectClosed() {
	c.t.Helper()
	_, err := c.read()
	if err == nil {
		c.t.Fatal("expected connection to be closed, got another reply")
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		c.t.Fatal("connection still open after 2s")
	}
}

func TestServer_Scenarios(t *testing.T) {
	ts := startServer(t, &Config{}, newStore(t))
	c := dial(t, ts.addr)

	c.send("PING")
	c.expect(resp.Simple("PONG"))

	c.send("PING", "hello")
	c.expect(resp.BulkString("hello"))

	c.send("SET", "a", "1")
	c.expect(resp.Simple("OK"))
	c.send("GET", "a")
	c.expect(resp.BulkString("1"))

	c.send("GET", "missing")
	c.expect(resp.Null())

	c.send("SET", "b", "1", "PX", "50")
	c.expect(resp.Simple("OK"))
	time.Sleep(100 * time.Millisecond)
	c.send("GET", "b")
	c.expect(resp.Null())
}

func TestServer_SharedStore(t *testing.T) {
	ts := startServer(t, &Config{}, newStore(t))
	c1 := dial(t, ts.addr)
	c2 := dial(t, ts.addr)

	c1.send("SET", "shared", "value")
	c1.expect(resp.Simple("OK"))

	c2.send("GET", "shared")
	c2.expect(resp.BulkString("value"))
}

func TestServer_PipelinedRequestsAnsweredInOrder(t *testing.T) {
	ts := startServer(t, &Config{}, newStore(t))
	c := dial(t, ts.addr)

	var wire []byte
	wire = resp.AppendFrame(wire, request("SET", "k", "1"))
	wire = resp.AppendFrame(wire, request("GET", "k"))
	wire = resp.AppendFrame(wire, request("SET", "k", "2"))
	wire = resp.AppendFrame(wire, request("GET", "k"))
	c.sendRaw(wire)

	c.expect(resp.Simple("OK"))
	c.expect(resp.BulkString("1"))
	c.expect(resp.Simple("OK"))
	c.expect(resp.BulkString("2"))
}

func TestServer_UnknownCommandKeepsConnection(t *testing.T) {
	ts := startServer(t, &Config{}, newStore(t))
	c := dial(t, ts.addr)

	c.send("FLUSHALL")
	c.expect(resp.Error(`ERR unknown command "flushall"`))

	c.send("PING")
	c.expect(resp.Simple("PONG"))
}

func TestServer_UnknownCommandWithLineBreaksIsOneReply(t *testing.T) {
	ts := startServer(t, &Config{}, newStore(t))
	c := dial(t, ts.addr)

	c.send("foo'\r\n+OK\r\n-X")
	got, err := c.read()
	if err != nil {
		t.Fatalf("read reply: %v", err)
	}
	if got.Kind != resp.KindError || strings.ContainsAny(got.Str, "\r\n") {
		t.Fatalf("reply = %v, want a single error line", got)
	}

	c.send("PING")
	c.expect(resp.Simple("PONG"))
}

func TestServer_ProtocolErrorClosesConnection(t *testing.T) {
	tests := []struct {
		name string
		wire string
	}{
		{"invalid frame type", "?what\r\n"},
		{"negative bulk length", "*1\r\n$-5\r\n"},
		{"not an array", "+PING\r\n"},
		{"missing argument", "*1\r\n$3\r\nGET\r\n"},
		{"unsupported option", "*5\r\n$3\r\nSET\r\n$1\r\na\r\n$1\r\n1\r\n$2\r\nEX\r\n$2\r\n10\r\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reg := metric.NewRegistry()
			ts := startServer(t, &Config{}, newStore(t), WithMetrics(reg))
			c := dial(t, ts.addr)

			// The connection closes without a reply frame.
			c.sendRaw([]byte(tt.wire))
			c.expectClosed()

			if got := counterValue(t, reg.ProtocolErrors); got != 1 {
				t.Errorf("protocol_errors_total = %v, want 1", got)
			}
		})
	}
}

func TestServer_NestingLimit(t *testing.T) {
	ts := startServer(t, &Config{Decoder: &resp.Decoder{MaxDepth: 2}}, newStore(t))
	c := dial(t, ts.addr)

	c.sendRaw([]byte("*1\r\n*1\r\n*1\r\n:1\r\n"))
	c.expectClosed()
}

func TestServer_RateLimit(t *testing.T) {
	ts := startServer(t, &Config{RateLimit: 0.001, RateBurst: 2}, newStore(t))
	c := dial(t, ts.addr)

	c.send("PING")
	c.expect(resp.Simple("PONG"))
	c.send("PING")
	c.expect(resp.Simple("PONG"))
	c.send("PING")
	c.expect(resp.Error("ERR rate limit exceeded"))

	// The bucket is per IP, so a second connection is limited too.
	c2 := dial(t, ts.addr)
	c2.send("PING")
	c2.expect(resp.Error("ERR rate limit exceeded"))
}

func TestServer_MaxConnections(t *testing.T) {
	ts := startServer(t, &Config{MaxConnections: 1}, newStore(t))

	first := dial(t, ts.addr)
	first.send("PING")
	first.expect(resp.Simple("PONG"))

	second := dial(t, ts.addr)
	second.expect(resp.Error("ERR max number of clients reached"))
	second.expectClosed()

	first.send("PING")
	first.expect(resp.Simple("PONG"))
}

func TestServer_Metrics(t *testing.T) {
	reg := metric.NewRegistry()
	ts := startServer(t, &Config{}, newStore(t), WithMetrics(reg))
	c := dial(t, ts.addr)

	c.send("SET", "a", "1")
	c.expect(resp.Simple("OK"))
	c.send("GET", "a")
	c.expect(resp.BulkString("1"))

	if got := counterValue(t, reg.CommandsTotal.WithLabelValues("set")); got != 1 {
		t.Errorf("commands_total{set} = %v, want 1", got)
	}
	if got := counterValue(t, reg.ConnectionsTotal); got != 1 {
		t.Errorf("connections_total = %v, want 1", got)
	}
}

func TestServer_RunReturnsOnCancel(t *testing.T) {
	ts := startServer(t, &Config{}, newStore(t))
	c := dial(t, ts.addr)
	c.send("PING")
	c.expect(resp.Simple("PONG"))

	ts.cancel()

	select {
	case err := <-ts.done:
		if err != nil {
			t.Errorf("Run() error = %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run() did not return after cancel")
	}

	// The idle connection was blocked in a read and is closed by shutdown.
	c.expectClosed()

	if _, err := net.DialTimeout("tcp", ts.addr, 200*time.Millisecond); err == nil {
		t.Error("listener still accepting after Run returned")
	}
}

func TestServer_ShutdownDrains(t *testing.T) {
	ts := startServer(t, &Config{}, newStore(t))
	for i := 0; i < 3; i++ {
		c := dial(t, ts.addr)
		c.send("PING")
		c.expect(resp.Simple("PONG"))
	}
	if n := ts.srv.ActiveConnections(); n != 3 {
		t.Fatalf("ActiveConnections() = %d, want 3", n)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := ts.srv.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown() error = %v", err)
	}
	if n := ts.srv.ActiveConnections(); n != 0 {
		t.Errorf("ActiveConnections() = %d after drain, want 0", n)
	}
}

// blockingStore holds Set until released, to observe a command in flight.
type blockingStore struct {
	*mapStore
	entered chan struct{}
	release chan struct{}
}

func (b *blockingStore) Set(key string, value []byte, ttl time.Duration) {
	close(b.entered)
	<-b.release
	b.mapStore.Set(key, value, ttl)
}

func TestServer_ShutdownCompletesCommandInFlight(t *testing.T) {
	db := &blockingStore{mapStore: newMapStore(), entered: make(chan struct{}), release: make(chan struct{})}
	ts := startServer(t, &Config{}, db)
	c := dial(t, ts.addr)

	c.send("SET", "k", "v")
	<-db.entered

	shutdownErr := make(chan error, 1)
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		shutdownErr <- ts.srv.Shutdown(ctx)
	}()

	time.Sleep(50 * time.Millisecond)
	close(db.release)

	c.expect(resp.Simple("OK"))
	c.expectClosed()

	if err := <-shutdownErr; err != nil {
		t.Errorf("Shutdown() error = %v", err)
	}
	if v, ok := db.Get("k"); !ok || string(v) != "v" {
		t.Errorf("store k = %q, %v; command in flight was not applied", v, ok)
	}
}

func TestServer_RunTwice(t *testing.T) {
	ts := startServer(t, &Config{}, newStore(t))
	for ts.srv.Addr() == nil {
		time.Sleep(time.Millisecond)
	}

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()
	if err := ts.srv.Run(context.Background(), ln); err == nil {
		t.Error("second Run() expected error")
	}
}

func TestServer_ClientDisconnect(t *testing.T) {
	ts := startServer(t, &Config{}, newStore(t))
	c := dial(t, ts.addr)
	c.send("PING")
	c.expect(resp.Simple("PONG"))
	c.conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for ts.srv.ActiveConnections() != 0 {
		if time.Now().After(deadline) {
			t.Fatal("handler did not exit after client disconnect")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func counterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	var m dto.Metric
	if err := c.Write(&m); err != nil {
		t.Fatalf("read counter: %v", err)
	}
	return m.GetCounter().GetValue()
}

func TestServer_ShutdownBeforeRun(t *testing.T) {
	srv := New(&Config{}, newStore(t))
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown() error = %v", err)
	}

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	if err := srv.Run(context.Background(), ln); err != nil {
		t.Errorf("Run() after Shutdown error = %v", err)
	}
	if _, err := net.DialTimeout("tcp", ln.Addr().String(), 200*time.Millisecond); err == nil {
		t.Error("listener still accepting after Run returned")
	}
}

func TestServer_ShutdownWhileAccepting(t *testing.T) {
	for i := 0; i < 20; i++ {
		ts := startServer(t, &Config{RateLimit: 1000, RateBurst: 1000}, newStore(t))

		stopDial := make(chan struct{})
		dialed := make(chan struct{})
		go func() {
			defer close(dialed)
			for {
				select {
				case <-stopDial:
					return
				default:
				}
				c, err := net.DialTimeout("tcp", ts.addr, 100*time.Millisecond)
				if err != nil {
					return
				}
				_ = c.Close()
			}
		}()

		time.Sleep(5 * time.Millisecond)
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		err := ts.srv.Shutdown(ctx)
		cancel()
		close(stopDial)
		<-dialed

		if err != nil {
			t.Fatalf("round %d: Shutdown() error = %v", i, err)
		}
		if n := ts.srv.ActiveConnections(); n != 0 {
			t.Fatalf("round %d: ActiveConnections() = %d after Shutdown, want 0", i, n)
		}
	}
}
