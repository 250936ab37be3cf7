package resp

import (
	"bytes"
	"errors"
	"fmt"
	"strconv"
)

// Protocol limits to prevent resource exhaustion from adversarial input.
const (
	// DefaultMaxDepth limits array nesting.
	DefaultMaxDepth = 32

	// DefaultMaxArrayLen limits the number of elements in one array.
	DefaultMaxArrayLen = 1024 * 1024

	// DefaultMaxBulkLen limits the size of a single bulk string (512MB).
	DefaultMaxBulkLen = 512 * 1024 * 1024

	// DefaultMaxLineLen limits simple, error and length lines (64KB).
	DefaultMaxLineLen = 64 * 1024
)

var (
	// ErrIncomplete means the buffer holds a valid prefix of a frame.
	// It is never a failure; the caller should buffer more bytes.
	ErrIncomplete = errors.New("resp: incomplete frame")

	// ErrProtocol is wrapped by every malformed-input error.
	ErrProtocol = errors.New("resp: protocol error")

	// ErrLimitExceeded is returned when input exceeds a Decoder limit.
	// It also matches ErrProtocol.
	ErrLimitExceeded = fmt.Errorf("%w: limit exceeded", ErrProtocol)
)

var crlf = []byte("\r\n")

// Decoder decodes frames under configurable limits.
// A zero field falls back to the matching default.
//
// Decode(Encode(f)) reproduces f only while f fits the limits: simple and
// error text longer than MaxLineLen fails with ErrLimitExceeded, as do
// bulk payloads over MaxBulkLen and arrays over MaxArrayLen or MaxDepth.
type Decoder struct {
	MaxDepth    int
	MaxArrayLen int
	MaxBulkLen  int
	MaxLineLen  int
}

var defaultDecoder = &Decoder{}

// Decode decodes one frame from the start of buf using default limits.
// It returns the frame and the number of bytes it occupies.
func Decode(buf []byte) (Frame, int, error) {
	return defaultDecoder.Decode(buf)
}

// Decode decodes one frame from the start of buf.
//
// On ErrIncomplete or a protocol error nothing is consumed; the returned
// length is zero and buf is left as is.
func (d *Decoder) Decode(buf []byte) (Frame, int, error) {
	f, n, err := d.parse(buf, 0, 0)
	if err != nil {
		return Frame{}, 0, err
	}
	return f, n, nil
}

// parse decodes the frame starting at pos and returns the position just
// past it. Nested failures propagate unchanged; the caller discards any
// partially built array so nothing is committed.
func (d *Decoder) parse(buf []byte, pos, depth int) (Frame, int, error) {
	if pos >= len(buf) {
		return Frame{}, 0, ErrIncomplete
	}

	tag := buf[pos]
	pos++

	switch tag {
	case '+', '-':
		line, next, err := d.readLine(buf, pos)
		if err != nil {
			return Frame{}, 0, err
		}
		if tag == '+' {
			return Simple(string(line)), next, nil
		}
		return Error(string(line)), next, nil

	case ':':
		line, next, err := d.readLine(buf, pos)
		if err != nil {
			return Frame{}, 0, err
		}
		n, err := parseDecimal(line)
		if err != nil {
			return Frame{}, 0, fmt.Errorf("%w: invalid integer %q", ErrProtocol, line)
		}
		return Integer(n), next, nil

	case '$':
		line, next, err := d.readLine(buf, pos)
		if err != nil {
			return Frame{}, 0, err
		}
		if string(line) == "-1" {
			return Null(), next, nil
		}
		n, err := d.parseLength(line, d.maxBulkLen(), "bulk")
		if err != nil {
			return Frame{}, 0, err
		}
		if len(buf)-next < n+2 {
			return Frame{}, 0, ErrIncomplete
		}
		if buf[next+n] != '\r' || buf[next+n+1] != '\n' {
			return Frame{}, 0, fmt.Errorf("%w: invalid bulk terminator", ErrProtocol)
		}
		data := make([]byte, n)
		copy(data, buf[next:next+n])
		return Bulk(data), next + n + 2, nil

	case '*':
		line, next, err := d.readLine(buf, pos)
		if err != nil {
			return Frame{}, 0, err
		}
		if string(line) == "-1" {
			return Null(), next, nil
		}
		n, err := d.parseLength(line, d.maxArrayLen(), "array")
		if err != nil {
			return Frame{}, 0, err
		}
		if depth >= d.maxDepth() {
			return Frame{}, 0, fmt.Errorf("%w: array nesting exceeds %d", ErrLimitExceeded, d.maxDepth())
		}

		// Cap the preallocation; the declared count is untrusted.
		out := make([]Frame, 0, min(n, 64))
		for i := 0; i < n; i++ {
			elem, after, err := d.parse(buf, next, depth+1)
			if err != nil {
				return Frame{}, 0, err
			}
			out = append(out, elem)
			next = after
		}
		return Array(out...), next, nil

	default:
		return Frame{}, 0, fmt.Errorf("%w: invalid frame type byte %q", ErrProtocol, tag)
	}
}

// readLine returns the bytes between pos and the next CRLF, and the
// position just past the CRLF.
func (d *Decoder) readLine(buf []byte, pos int) ([]byte, int, error) {
	i := bytes.Index(buf[pos:], crlf)
	if i < 0 {
		// A trailing CR may be the first half of the terminator.
		pending := len(buf) - pos
		if pending > d.maxLineLen()+1 {
			return nil, 0, fmt.Errorf("%w: line length exceeds %d", ErrLimitExceeded, d.maxLineLen())
		}
		return nil, 0, ErrIncomplete
	}
	if i > d.maxLineLen() {
		return nil, 0, fmt.Errorf("%w: line length exceeds %d", ErrLimitExceeded, d.maxLineLen())
	}
	return buf[pos : pos+i], pos + i + 2, nil
}

func (d *Decoder) parseLength(line []byte, limit int, what string) (int, error) {
	n, err := parseDecimal(line)
	if err != nil {
		return 0, fmt.Errorf("%w: invalid %s length %q", ErrProtocol, what, line)
	}
	if n > uint64(limit) {
		return 0, fmt.Errorf("%w: %s length %d exceeds %d", ErrLimitExceeded, what, n, limit)
	}
	return int(n), nil
}

// parseDecimal accepts ASCII digits only: no sign, no whitespace.
func parseDecimal(line []byte) (uint64, error) {
	if len(line) == 0 {
		return 0, strconv.ErrSyntax
	}
	for _, c := range line {
		if c < '0' || c > '9' {
			return 0, strconv.ErrSyntax
		}
	}
	return strconv.ParseUint(string(line), 10, 64)
}

func (d *Decoder) maxDepth() int {
	if d.MaxDepth > 0 {
		return d.MaxDepth
	}
	return DefaultMaxDepth
}

func (d *Decoder) maxArrayLen() int {
	if d.MaxArrayLen > 0 {
		return d.MaxArrayLen
	}
	return DefaultMaxArrayLen
}

func (d *Decoder) maxBulkLen() int {
	if d.MaxBulkLen > 0 {
		return d.MaxBulkLen
	}
	return DefaultMaxBulkLen
}

func (d *Decoder) maxLineLen() int {
	if d.MaxLineLen > 0 {
		return d.MaxLineLen
	}
	return DefaultMaxLineLen
}
