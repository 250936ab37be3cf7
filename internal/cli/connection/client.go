package connection

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/yndnr/respkv/pkg/resp"
)

// DefaultServer is the address used when none is configured.
const DefaultServer = "127.0.0.1:6379"

// ErrClosed is returned by Do after Close.
var ErrClosed = errors.New("connection closed")

// DialOptions tunes Dial.
type DialOptions struct {
	// MaxRetryInterval caps the delay between dial attempts.
	MaxRetryInterval time.Duration
	// Decoder bounds replies. Nil uses the resp defaults.
	Decoder *resp.Decoder
	// TLS, when set, negotiates TLS after connecting.
	TLS *tls.Config
}

// Client is a RESP connection to one server. It is safe for concurrent
// use; requests are serialized.
type Client struct {
	addr    string
	decoder *resp.Decoder

	mu     sync.Mutex
	conn   net.Conn
	buf    []byte
	closed bool
}

// Dial connects to addr, retrying refused or timed out attempts with
// exponential backoff until ctx is done.
func Dial(ctx context.Context, addr string, opts *DialOptions) (*Client, error) {
	if opts == nil {
		opts = &DialOptions{}
	}
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 50 * time.Millisecond
	b.MaxInterval = time.Second
	if opts.MaxRetryInterval > 0 {
		b.MaxInterval = opts.MaxRetryInterval
	}
	b.MaxElapsedTime = 0 // bounded by ctx

	var dialer interface {
		DialContext(ctx context.Context, network, addr string) (net.Conn, error)
	} = &net.Dialer{}
	if opts.TLS != nil {
		dialer = &tls.Dialer{Config: opts.TLS}
	}

	var conn net.Conn
	err := backoff.Retry(func() error {
		c, err := dialer.DialContext(ctx, "tcp", addr)
		if err != nil {
			if ctx.Err() != nil || !retryable(err) {
				return backoff.Permanent(err)
			}
			return err
		}
		conn = c
		return nil
	}, backoff.WithContext(b, ctx))
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", addr, err)
	}

	decoder := opts.Decoder
	if decoder == nil {
		decoder = &resp.Decoder{}
	}
	return &Client{addr: addr, decoder: decoder, conn: conn}, nil
}

// retryable reports whether a dial error may go away on its own.
func retryable(err error) bool {
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		var dnsErr *net.DNSError
		if errors.As(err, &dnsErr) {
			return dnsErr.IsTemporary || dnsErr.IsTimeout
		}
		return true
	}
	return false
}

// Addr returns the server address.
func (c *Client) Addr() string {
	return c.addr
}

// Do sends one command and returns its reply. Error replies are returned
// as frames, not as errors; an error means the connection is unusable.
func (c *Client) Do(ctx context.Context, args ...string) (resp.Frame, error) {
	elems := make([]resp.Frame, len(args))
	for i, a := range args {
		elems[i] = resp.BulkString(a)
	}
	return c.DoFrame(ctx, resp.Array(elems...))
}

// DoFrame sends req and returns the reply.
func (c *Client) DoFrame(ctx context.Context, req resp.Frame) (resp.Frame, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return resp.Frame{}, ErrClosed
	}

	deadline, _ := ctx.Deadline()
	if err := c.conn.SetDeadline(deadline); err != nil {
		return resp.Frame{}, err
	}

	// Unblock I/O if ctx is cancelled without a deadline.
	stop := context.AfterFunc(ctx, func() {
		_ = c.conn.SetDeadline(time.Unix(1, 0))
	})
	defer stop()

	if _, err := c.conn.Write(resp.Encode(req)); err != nil {
		return resp.Frame{}, ioError(ctx, "write", err)
	}

	chunk := make([]byte, 4096)
	for {
		if len(c.buf) > 0 {
			f, n, err := c.decoder.Decode(c.buf)
			if err == nil {
				c.buf = c.buf[n:]
				return f, nil
			}
			if !errors.Is(err, resp.ErrIncomplete) {
				return resp.Frame{}, fmt.Errorf("read reply: %w", err)
			}
		}
		n, err := c.conn.Read(chunk)
		c.buf = append(c.buf, chunk[:n]...)
		if err != nil && n == 0 {
			return resp.Frame{}, ioError(ctx, "read", err)
		}
	}
}

func ioError(ctx context.Context, op string, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return fmt.Errorf("%s: %w", op, ctxErr)
	}
	// The socket deadline can fire just before ctx records its own.
	var netErr net.Error
	if _, ok := ctx.Deadline(); ok && errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("%s: %w", op, context.DeadlineExceeded)
	}
	return fmt.Errorf("%s: %w", op, err)
}

// Close closes the connection.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	return c.conn.Close()
}
