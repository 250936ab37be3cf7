package resp

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
)

// Kind identifies the variant held by a Frame.
type Kind uint8

// Frame kinds. The zero value is KindNull so that an empty Frame encodes
// as a null bulk string.
const (
	KindNull Kind = iota
	KindSimple
	KindError
	KindInteger
	KindBulk
	KindArray
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindSimple:
		return "simple"
	case KindError:
		return "error"
	case KindInteger:
		return "integer"
	case KindBulk:
		return "bulk"
	case KindArray:
		return "array"
	default:
		return "kind(" + strconv.Itoa(int(k)) + ")"
	}
}

// Frame is one unit of the wire protocol.
//
// Only the field matching Kind is meaningful: Str for Simple and Error,
// Int for Integer, Bulk for Bulk and Array for Array.
type Frame struct {
	Kind  Kind
	Str   string
	Int   uint64
	Bulk  []byte
	Array []Frame
}

// Simple returns a simple string frame.
func Simple(s string) Frame { return Frame{Kind: KindSimple, Str: s} }

// Error returns an error frame.
func Error(s string) Frame { return Frame{Kind: KindError, Str: s} }

// Integer returns an integer frame.
func Integer(n uint64) Frame { return Frame{Kind: KindInteger, Int: n} }

// Bulk returns a bulk string frame. The slice is not copied.
func Bulk(b []byte) Frame { return Frame{Kind: KindBulk, Bulk: b} }

// BulkString returns a bulk string frame holding s.
func BulkString(s string) Frame { return Frame{Kind: KindBulk, Bulk: []byte(s)} }

// Null returns the null frame.
func Null() Frame { return Frame{Kind: KindNull} }

// Array returns an array frame holding elems.
func Array(elems ...Frame) Frame {
	if elems == nil {
		elems = []Frame{}
	}
	return Frame{Kind: KindArray, Array: elems}
}

// Equal reports whether f and other hold the same variant and value.
// A nil and an empty bulk payload compare equal.
func (f Frame) Equal(other Frame) bool {
	if f.Kind != other.Kind {
		return false
	}
	switch f.Kind {
	case KindNull:
		return true
	case KindSimple, KindError:
		return f.Str == other.Str
	case KindInteger:
		return f.Int == other.Int
	case KindBulk:
		return bytes.Equal(f.Bulk, other.Bulk)
	case KindArray:
		if len(f.Array) != len(other.Array) {
			return false
		}
		for i := range f.Array {
			if !f.Array[i].Equal(other.Array[i]) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// String renders the frame for logs.
func (f Frame) String() string {
	var sb strings.Builder
	f.format(&sb)
	return sb.String()
}

func (f Frame) format(sb *strings.Builder) {
	switch f.Kind {
	case KindNull:
		sb.WriteString("(nil)")
	case KindSimple:
		sb.WriteString(f.Str)
	case KindError:
		sb.WriteString("(error) ")
		sb.WriteString(f.Str)
	case KindInteger:
		sb.WriteString("(integer) ")
		sb.WriteString(strconv.FormatUint(f.Int, 10))
	case KindBulk:
		sb.WriteString(strconv.Quote(string(f.Bulk)))
	case KindArray:
		sb.WriteByte('[')
		for i, elem := range f.Array {
			if i > 0 {
				sb.WriteByte(' ')
			}
			elem.format(sb)
		}
		sb.WriteByte(']')
	default:
		fmt.Fprintf(sb, "(invalid %s)", f.Kind)
	}
}
