// Package resp implements the RESP2 wire format used by respkv.
//
// The codec is a pure transformation over byte slices:
//
//   - frame.go: Frame tagged union and constructors
//   - decode.go: recursive-descent decoder over an explicit cursor
//   - encode.go: encoder and bufio writer helper
//
// Decoding never consumes input on failure. A buffer that holds a valid
// but truncated frame yields ErrIncomplete so the caller can read more
// bytes from the network and retry from the same position. Malformed
// input yields an error wrapping ErrProtocol.
//
// Usage:
//
//	f, n, err := resp.Decode(buf)
//	switch {
//	case errors.Is(err, resp.ErrIncomplete):
//		// read more bytes, retry
//	case err != nil:
//		// close the connection
//	default:
//		buf = buf[n:]
//	}
package resp
