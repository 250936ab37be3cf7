package resp

import (
	"bufio"
	"fmt"
	"strconv"
)

// Encode returns the wire form of f.
func Encode(f Frame) []byte {
	return AppendFrame(nil, f)
}

// AppendFrame appends the wire form of f to dst.
// It panics on a Frame whose Kind is not one of the declared kinds.
func AppendFrame(dst []byte, f Frame) []byte {
	if f.Kind == KindArray {
		dst = append(dst, '*')
		dst = appendDecimal(dst, uint64(len(f.Array)))
		for _, elem := range f.Array {
			dst = AppendFrame(dst, elem)
		}
		return dst
	}
	return appendValue(dst, f)
}

func appendValue(dst []byte, f Frame) []byte {
	switch f.Kind {
	case KindSimple:
		return appendLine(append(dst, '+'), f.Str)
	case KindError:
		return appendLine(append(dst, '-'), f.Str)
	case KindInteger:
		dst = append(dst, ':')
		return appendDecimal(dst, f.Int)
	case KindBulk:
		dst = append(dst, '$')
		dst = appendDecimal(dst, uint64(len(f.Bulk)))
		dst = append(dst, f.Bulk...)
		return append(dst, '\r', '\n')
	case KindNull:
		return append(dst, "$-1\r\n"...)
	default:
		panic(fmt.Sprintf("resp: cannot encode frame of %s", f.Kind))
	}
}

// appendLine writes s as a line-delimited payload. CR and LF cannot be
// carried by simple strings or errors; each is written as a space so the
// reply stays one frame.
func appendLine(dst []byte, s string) []byte {
	for i := 0; i < len(s); i++ {
		if c := s[i]; c == '\r' || c == '\n' {
			dst = append(dst, ' ')
		} else {
			dst = append(dst, c)
		}
	}
	return append(dst, '\r', '\n')
}

func appendDecimal(dst []byte, n uint64) []byte {
	dst = strconv.AppendUint(dst, n, 10)
	return append(dst, '\r', '\n')
}

// WriteFrame writes f to w without flushing.
//
// A top-level array is written header first and then element by element,
// so large replies are not staged in a single buffer.
func WriteFrame(w *bufio.Writer, f Frame) error {
	var scratch [24]byte

	switch f.Kind {
	case KindArray:
		if err := w.WriteByte('*'); err != nil {
			return err
		}
		if _, err := w.Write(appendDecimal(scratch[:0], uint64(len(f.Array)))); err != nil {
			return err
		}
		for _, elem := range f.Array {
			if err := WriteFrame(w, elem); err != nil {
				return err
			}
		}
		return nil

	case KindBulk:
		if err := w.WriteByte('$'); err != nil {
			return err
		}
		if _, err := w.Write(appendDecimal(scratch[:0], uint64(len(f.Bulk)))); err != nil {
			return err
		}
		if _, err := w.Write(f.Bulk); err != nil {
			return err
		}
		_, err := w.Write(crlf)
		return err

	default:
		_, err := w.Write(appendValue(scratch[:0], f))
		return err
	}
}
