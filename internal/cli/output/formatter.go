package output

import (
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/yndnr/respkv/pkg/resp"
)

// Format represents the output format.
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// Formatter writes one reply frame.
type Formatter interface {
	Format(w io.Writer, f resp.Frame) error
}

// ParseFormat validates a format name.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(s)); f {
	case FormatText, FormatJSON, FormatYAML:
		return f, nil
	default:
		return "", fmt.Errorf("unknown output format %q (want text, json or yaml)", s)
	}
}

// NewFormatter creates a formatter for the given format. Unknown formats
// fall back to text.
func NewFormatter(format Format) Formatter {
	switch format {
	case FormatJSON:
		return &JSONFormatter{}
	case FormatYAML:
		return &YAMLFormatter{}
	default:
		return &TextFormatter{}
	}
}

// Value converts a frame to plain Go values for structured encoders.
// Errors become {"error": text} so they stay distinguishable from
// strings; bulk values that are not valid UTF-8 are kept as bytes.
func Value(f resp.Frame) any {
	switch f.Kind {
	case resp.KindSimple:
		return f.Str
	case resp.KindError:
		return map[string]string{"error": f.Str}
	case resp.KindInteger:
		return f.Int
	case resp.KindBulk:
		if utf8.Valid(f.Bulk) {
			return string(f.Bulk)
		}
		return f.Bulk
	case resp.KindArray:
		out := make([]any, len(f.Array))
		for i, e := range f.Array {
			out[i] = Value(e)
		}
		return out
	default:
		return nil
	}
}
