package connection

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/yndnr/respkv/pkg/resp"
)

// fakeServer answers each request with the next scripted reply.
func fakeServer(t *testing.T, ln net.Listener, replies ...resp.Frame) <-chan resp.Frame {
	t.Helper()
	requests := make(chan resp.Frame, len(replies))
	go func() {
		c, err := ln.Accept()
		if err != nil {
			return
		}
		defer c.Close()

		var buf []byte
		chunk := make([]byte, 1024)
		for _, reply := range replies {
			for {
				f, n, err := resp.Decode(buf)
				if err == nil {
					buf = buf[n:]
					requests <- f
					break
				}
				m, err := c.Read(chunk)
				if err != nil {
					return
				}
				buf = append(buf, chunk[:m]...)
			}
			if _, err := c.Write(resp.Encode(reply)); err != nil {
				return
			}
		}
	}()
	return requests
}

func listen(t *testing.T) net.Listener {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	t.Cleanup(func() { ln.Close() })
	return ln
}

func TestClient_Do(t *testing.T) {
	ln := listen(t)
	requests := fakeServer(t, ln, resp.Simple("OK"), resp.BulkString("1"))

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	c, err := Dial(ctx, ln.Addr().String(), nil)
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	defer c.Close()

	reply, err := c.Do(ctx, "SET", "a", "1")
	if err != nil {
		t.Fatalf("Do(SET) error = %v", err)
	}
	if !reply.Equal(resp.Simple("OK")) {
		t.Errorf("SET reply = %v", reply)
	}
	want := resp.Array(resp.BulkString("SET"), resp.BulkString("a"), resp.BulkString("1"))
	if got := <-requests; !got.Equal(want) {
		t.Errorf("server received %v, want %v", got, want)
	}

	reply, err = c.Do(ctx, "GET", "a")
	if err != nil {
		t.Fatalf("Do(GET) error = %v", err)
	}
	if !reply.Equal(resp.BulkString("1")) {
		t.Errorf("GET reply = %v", reply)
	}
}

func TestClient_ErrorReplyIsNotAnError(t *testing.T) {
	ln := listen(t)
	fakeServer(t, ln, resp.Error("ERR unknown command 'nope'"))

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	c, err := Dial(ctx, ln.Addr().String(), nil)
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	defer c.Close()

	reply, err := c.Do(ctx, "NOPE")
	if err != nil {
		t.Fatalf("Do() error = %v", err)
	}
	if reply.Kind != resp.KindError {
		t.Errorf("reply kind = %s, want error", reply.Kind)
	}
}

func TestClient_Timeout(t *testing.T) {
	ln := listen(t)
	go func() {
		c, err := ln.Accept()
		if err != nil {
			return
		}
		defer c.Close()
		time.Sleep(time.Second)
	}()

	c, err := Dial(context.Background(), ln.Addr().String(), nil)
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	defer c.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if _, err := c.Do(ctx, "PING"); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Do() error = %v, want context.DeadlineExceeded", err)
	}
}

func TestClient_Closed(t *testing.T) {
	ln := listen(t)
	go func() {
		if c, err := ln.Accept(); err == nil {
			c.Close()
		}
	}()

	c, err := Dial(context.Background(), ln.Addr().String(), nil)
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	if err := c.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := c.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}
	if _, err := c.Do(context.Background(), "PING"); !errors.Is(err, ErrClosed) {
		t.Errorf("Do() after Close error = %v, want ErrClosed", err)
	}
}

func TestDial_RetriesUntilServerStarts(t *testing.T) {
	free := listen(t)
	addr := free.Addr().String()
	free.Close()

	started := make(chan net.Listener, 1)
	go func() {
		time.Sleep(150 * time.Millisecond)
		ln, err := net.Listen("tcp", addr)
		if err != nil {
			started <- nil
			return
		}
		started <- ln
		if c, err := ln.Accept(); err == nil {
			c.Close()
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	c, err := Dial(ctx, addr, &DialOptions{MaxRetryInterval: 50 * time.Millisecond})

	ln := <-started
	if ln == nil {
		t.Skip("port was taken before the server could bind")
	}
	defer ln.Close()

	if err != nil {
		t.Fatalf("Dial() error = %v, want success after retry", err)
	}
	c.Close()
}

func TestDial_GivesUpWithContext(t *testing.T) {
	free := listen(t)
	addr := free.Addr().String()
	free.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	if _, err := Dial(ctx, addr, nil); err == nil {
		t.Error("Dial() expected error with nothing listening")
	}
}

func TestManager(t *testing.T) {
	ln := listen(t)
	go func() {
		for {
			c, err := ln.Accept()
			if err != nil {
				return
			}
			defer c.Close()
		}
	}()

	m := NewManager(nil)
	if m.IsConnected() {
		t.Error("IsConnected() = true before Connect")
	}
	if _, err := m.Current(); !errors.Is(err, ErrNotConnected) {
		t.Errorf("Current() error = %v, want ErrNotConnected", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := m.Connect(ctx, ln.Addr().String()); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	first, _ := m.Current()

	if err := m.Connect(ctx, ln.Addr().String()); err != nil {
		t.Fatalf("second Connect() error = %v", err)
	}
	if _, err := first.Do(ctx, "PING"); !errors.Is(err, ErrClosed) {
		t.Errorf("previous client should be closed, Do() error = %v", err)
	}

	if err := m.Disconnect(); err != nil {
		t.Errorf("Disconnect() error = %v", err)
	}
	if m.IsConnected() {
		t.Error("IsConnected() = true after Disconnect")
	}
}
