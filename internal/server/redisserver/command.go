package redisserver

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/yndnr/respkv/pkg/resp"
)

// Store is the key-value state commands operate on.
type Store interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte, ttl time.Duration)
}

// Command is one parsed client request. The set of implementations is
// closed: Ping, Get, Set and Unknown.
type Command interface {
	// Name is the lower-case command name, used for logs and metrics.
	Name() string
	// Apply executes the command and returns the reply frame.
	Apply(db Store) resp.Frame
}

// Ping replies PONG, or echoes Msg when one was given.
type Ping struct {
	Msg []byte
}

// Get returns the value stored at Key.
type Get struct {
	Key string
}

// Set stores Value at Key. A zero TTL means the key never expires.
type Set struct {
	Key   string
	Value []byte
	TTL   time.Duration
}

// Unknown is any command this server does not implement.
type Unknown struct {
	Command string
}

// ParseCommand interprets a request frame as a command.
func ParseCommand(f resp.Frame) (Command, error) {
	p, err := newParser(f)
	if err != nil {
		return nil, err
	}

	name, err := p.nextString()
	if err != nil {
		if errors.Is(err, errEndOfStream) {
			return nil, fmt.Errorf("%w: empty command", ErrProtocol)
		}
		return nil, err
	}
	name = strings.ToLower(name)

	var cmd Command
	switch name {
	case "ping":
		cmd, err = parsePing(p)
	case "get":
		cmd, err = parseGet(p)
	case "set":
		cmd, err = parseSet(p)
	default:
		// Remaining arguments are irrelevant to an unknown command.
		return Unknown{Command: name}, nil
	}
	if err != nil {
		if errors.Is(err, errEndOfStream) {
			return nil, fmt.Errorf("%w: wrong number of arguments for %q command", ErrProtocol, name)
		}
		return nil, err
	}
	if err := p.finish(); err != nil {
		return nil, err
	}
	return cmd, nil
}

func parsePing(p *parser) (Command, error) {
	msg, err := p.nextBytes()
	switch {
	case errors.Is(err, errEndOfStream):
		return Ping{}, nil
	case err != nil:
		return nil, err
	}
	return Ping{Msg: msg}, nil
}

func parseGet(p *parser) (Command, error) {
	key, err := p.nextString()
	if err != nil {
		return nil, err
	}
	return Get{Key: key}, nil
}

// maxPX keeps the TTL within time.Duration.
const maxPX = math.MaxInt64 / int64(time.Millisecond)

func parseSet(p *parser) (Command, error) {
	key, err := p.nextString()
	if err != nil {
		return nil, err
	}
	value, err := p.nextBytes()
	if err != nil {
		return nil, err
	}
	cmd := Set{Key: key, Value: value}

	opt, err := p.nextString()
	switch {
	case errors.Is(err, errEndOfStream):
		return cmd, nil
	case err != nil:
		return nil, err
	}

	if !strings.EqualFold(opt, "px") {
		return nil, fmt.Errorf("%w: SET only supports the PX expiration option, got %q", ErrProtocol, opt)
	}
	ms, err := p.nextInt()
	if err != nil {
		if errors.Is(err, errEndOfStream) {
			return nil, fmt.Errorf("%w: PX requires a value", ErrProtocol)
		}
		return nil, err
	}
	if ms == 0 || ms > uint64(maxPX) {
		return nil, fmt.Errorf("%w: invalid expire time in 'set' command", ErrProtocol)
	}
	cmd.TTL = time.Duration(ms) * time.Millisecond
	return cmd, nil
}

// Name implements Command.
func (Ping) Name() string { return "ping" }

// Apply implements Command.
func (c Ping) Apply(Store) resp.Frame {
	if c.Msg == nil {
		return resp.Simple("PONG")
	}
	return resp.Bulk(c.Msg)
}

// Name implements Command.
func (Get) Name() string { return "get" }

// Apply implements Command.
func (c Get) Apply(db Store) resp.Frame {
	value, ok := db.Get(c.Key)
	if !ok {
		return resp.Null()
	}
	return resp.Bulk(value)
}

// Name implements Command.
func (Set) Name() string { return "set" }

// Apply implements Command.
func (c Set) Apply(db Store) resp.Frame {
	db.Set(c.Key, c.Value, c.TTL)
	return resp.Simple("OK")
}

// Name implements Command. Unknown commands share one label so that
// arbitrary client input cannot grow metric cardinality.
func (Unknown) Name() string { return "unknown" }

// Apply implements Command.
func (c Unknown) Apply(Store) resp.Frame {
	return resp.Error(fmt.Sprintf("ERR unknown command %q", c.Command))
}
