package redisserver

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"net"
	"time"

	"github.com/yndnr/respkv/internal/infra/shutdown"
	"github.com/yndnr/respkv/pkg/resp"
)

// initialBufferSize is the starting size of a connection's read buffer.
// It grows to fit the largest frame seen.
const initialBufferSize = 4 * 1024

// errShutdown ends a read that was interrupted by the shutdown broadcast.
var errShutdown = errors.New("server shutting down")

// conn is one client socket with its read buffer and buffered writer.
type conn struct {
	netConn net.Conn
	decoder *resp.Decoder

	buf  []byte
	r, w int // unread bytes are buf[r:w]

	bw *bufio.Writer

	readTimeout  time.Duration
	writeTimeout time.Duration
	idleTimeout  time.Duration
}

func newConn(c net.Conn, cfg *Config) *conn {
	return &conn{
		netConn:      c,
		decoder:      cfg.Decoder,
		buf:          make([]byte, initialBufferSize),
		bw:           bufio.NewWriter(c),
		readTimeout:  cfg.ReadTimeout,
		writeTimeout: cfg.WriteTimeout,
		idleTimeout:  cfg.IdleTimeout,
	}
}

// readFrame returns the next request frame.
//
// It returns io.EOF when the peer closes between frames and errShutdown
// when shutdown is observed while waiting for bytes. A frame that is
// already fully buffered is returned without touching the socket.
func (c *conn) readFrame(l *shutdown.Listener) (resp.Frame, error) {
	for {
		if c.w > c.r {
			f, n, err := c.decoder.Decode(c.buf[c.r:c.w])
			if err == nil {
				c.r += n
				if c.r == c.w {
					c.r, c.w = 0, 0
				}
				return f, nil
			}
			if !errors.Is(err, resp.ErrIncomplete) {
				return resp.Frame{}, err
			}
		}

		if err := c.fill(l); err != nil {
			if errors.Is(err, io.EOF) && c.w > c.r {
				return resp.Frame{}, fmt.Errorf("connection closed mid-frame: %w", io.ErrUnexpectedEOF)
			}
			return resp.Frame{}, err
		}
	}
}

// fill performs one socket read into the free tail of the buffer.
func (c *conn) fill(l *shutdown.Listener) error {
	if c.r > 0 {
		c.w = copy(c.buf, c.buf[c.r:c.w])
		c.r = 0
	}
	if c.w == len(c.buf) {
		grown := make([]byte, 2*len(c.buf))
		copy(grown, c.buf[:c.w])
		c.buf = grown
	}

	// Idle timeout applies between frames, read timeout inside one.
	timeout := c.idleTimeout
	if c.w > 0 {
		timeout = c.readTimeout
	}
	var deadline time.Time
	if timeout > 0 {
		deadline = time.Now().Add(timeout)
	}
	if err := c.netConn.SetReadDeadline(deadline); err != nil {
		return err
	}

	// Checked after arming the deadline: a shutdown that fires later
	// moves the deadline into the past and fails the read below.
	if l.Poll() {
		return errShutdown
	}

	for {
		n, err := c.netConn.Read(c.buf[c.w:])
		c.w += n
		if n > 0 {
			return nil
		}
		if err != nil {
			if l.Poll() {
				return errShutdown
			}
			return err
		}
	}
}

// interruptRead unblocks a pending read. Writes are unaffected.
func (c *conn) interruptRead() {
	_ = c.netConn.SetReadDeadline(time.Unix(1, 0))
}

// writeFrame writes f and flushes it under the write timeout.
func (c *conn) writeFrame(f resp.Frame) error {
	if c.writeTimeout > 0 {
		if err := c.netConn.SetWriteDeadline(time.Now().Add(c.writeTimeout)); err != nil {
			return err
		}
	}
	if err := resp.WriteFrame(c.bw, f); err != nil {
		return err
	}
	return c.bw.Flush()
}

func (c *conn) close() error {
	return c.netConn.Close()
}
