package output

import (
	"encoding/json"
	"io"

	"github.com/yndnr/respkv/pkg/resp"
)

// JSONFormatter formats replies as JSON.
type JSONFormatter struct{}

// Format writes the reply as one JSON document.
func (f *JSONFormatter) Format(w io.Writer, frame resp.Frame) error {
	return json.NewEncoder(w).Encode(Value(frame))
}
