package logger

import (
	"fmt"
	"log/slog"
	"strconv"
)

// clipAttr bounds the size of a logged value. Strings, byte slices and
// fmt.Stringer values (such as protocol frames) are rendered and clipped
// to maxLen bytes; groups are walked recursively. Stringers are only
// rendered here, so a record dropped by level costs nothing.
func clipAttr(a slog.Attr, maxLen int) slog.Attr {
	v := a.Value.Resolve()

	switch v.Kind() {
	case slog.KindString:
		if maxLen >= 0 && len(v.String()) > maxLen {
			return slog.String(a.Key, Truncate(v.String(), maxLen))
		}
		return slog.Attr{Key: a.Key, Value: v}
	case slog.KindGroup:
		attrs := v.Group()
		out := make([]slog.Attr, len(attrs))
		for i, attr := range attrs {
			out[i] = clipAttr(attr, maxLen)
		}
		return slog.Attr{Key: a.Key, Value: slog.GroupValue(out...)}
	case slog.KindAny:
		switch x := v.Any().(type) {
		case []byte:
			return slog.String(a.Key, Truncate(strconv.Quote(string(x)), maxLen))
		case error:
			return slog.String(a.Key, Truncate(x.Error(), maxLen))
		case fmt.Stringer:
			return slog.String(a.Key, Truncate(x.String(), maxLen))
		}
	}
	return slog.Attr{Key: a.Key, Value: v}
}

// Truncate returns s clipped to maxLen bytes with a suffix naming how
// many bytes were dropped. A negative maxLen disables clipping.
func Truncate(s string, maxLen int) string {
	if maxLen < 0 || len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "...(" + strconv.Itoa(len(s)-maxLen) + " more bytes)"
}
