package redisserver

import (
	"errors"
	"fmt"
	"strconv"
	"unicode/utf8"

	"github.com/yndnr/respkv/pkg/resp"
)

// ErrProtocol reports a frame that is well formed on the wire but is not
// a valid command. It wraps resp.ErrProtocol.
var ErrProtocol = fmt.Errorf("invalid command: %w", resp.ErrProtocol)

// errEndOfStream is returned by the parser once every argument has been
// consumed. Callers treat it as a default for optional arguments and as
// a protocol error for required ones.
var errEndOfStream = errors.New("end of stream")

// parser pulls command arguments out of a request array in order.
type parser struct {
	args []resp.Frame
	pos  int
}

func newParser(f resp.Frame) (*parser, error) {
	if f.Kind != resp.KindArray {
		return nil, fmt.Errorf("%w: expected array, got %s", ErrProtocol, f.Kind)
	}
	return &parser{args: f.Array}, nil
}

func (p *parser) next() (resp.Frame, error) {
	if p.pos >= len(p.args) {
		return resp.Frame{}, errEndOfStream
	}
	f := p.args[p.pos]
	p.pos++
	return f, nil
}

// nextString returns the next argument as text. Simple and Bulk frames
// qualify; a Bulk must hold valid UTF-8.
func (p *parser) nextString() (string, error) {
	f, err := p.next()
	if err != nil {
		return "", err
	}
	switch f.Kind {
	case resp.KindSimple:
		return f.Str, nil
	case resp.KindBulk:
		if !utf8.Valid(f.Bulk) {
			return "", fmt.Errorf("%w: invalid string encoding", ErrProtocol)
		}
		return string(f.Bulk), nil
	default:
		return "", fmt.Errorf("%w: expected simple or bulk frame, got %s", ErrProtocol, f.Kind)
	}
}

// nextBytes returns the next argument as raw bytes.
func (p *parser) nextBytes() ([]byte, error) {
	f, err := p.next()
	if err != nil {
		return nil, err
	}
	switch f.Kind {
	case resp.KindSimple:
		return []byte(f.Str), nil
	case resp.KindBulk:
		return f.Bulk, nil
	default:
		return nil, fmt.Errorf("%w: expected simple or bulk frame, got %s", ErrProtocol, f.Kind)
	}
}

// nextInt returns the next argument as an unsigned integer. Integer
// frames are taken as is; Simple and Bulk frames are parsed as decimal.
func (p *parser) nextInt() (uint64, error) {
	f, err := p.next()
	if err != nil {
		return 0, err
	}
	var text string
	switch f.Kind {
	case resp.KindInteger:
		return f.Int, nil
	case resp.KindSimple:
		text = f.Str
	case resp.KindBulk:
		text = string(f.Bulk)
	default:
		return 0, fmt.Errorf("%w: expected integer frame, got %s", ErrProtocol, f.Kind)
	}
	n, err := strconv.ParseUint(text, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: invalid number %q", ErrProtocol, text)
	}
	return n, nil
}

// finish reports an error if arguments remain unconsumed.
func (p *parser) finish() error {
	if p.pos < len(p.args) {
		return fmt.Errorf("%w: expected end of command, %d extra argument(s)", ErrProtocol, len(p.args)-p.pos)
	}
	return nil
}
