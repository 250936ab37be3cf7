package output

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/yndnr/respkv/pkg/resp"
)

// TextFormatter renders replies the way redis-cli does.
type TextFormatter struct{}

// Format writes f followed by a newline.
func (t *TextFormatter) Format(w io.Writer, f resp.Frame) error {
	var sb strings.Builder
	writeText(&sb, f, 0)
	sb.WriteByte('\n')
	_, err := io.WriteString(w, sb.String())
	return err
}

func writeText(sb *strings.Builder, f resp.Frame, indent int) {
	switch f.Kind {
	case resp.KindSimple:
		sb.WriteString(f.Str)
	case resp.KindError:
		sb.WriteString("(error) ")
		sb.WriteString(f.Str)
	case resp.KindInteger:
		sb.WriteString("(integer) ")
		sb.WriteString(strconv.FormatUint(f.Int, 10))
	case resp.KindBulk:
		sb.WriteString(strconv.Quote(string(f.Bulk)))
	case resp.KindNull:
		sb.WriteString("(nil)")
	case resp.KindArray:
		if len(f.Array) == 0 {
			sb.WriteString("(empty array)")
			return
		}
		width := len(strconv.Itoa(len(f.Array)))
		for i, e := range f.Array {
			if i > 0 {
				sb.WriteByte('\n')
				sb.WriteString(strings.Repeat(" ", indent))
			}
			label := fmt.Sprintf("%*d) ", width, i+1)
			sb.WriteString(label)
			writeText(sb, e, indent+len(label))
		}
	}
}
