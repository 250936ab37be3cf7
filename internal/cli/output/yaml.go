package output

import (
	"io"

	"go.yaml.in/yaml/v3"

	"github.com/yndnr/respkv/pkg/resp"
)

// YAMLFormatter formats replies as YAML.
type YAMLFormatter struct{}

// Format writes the reply as one YAML document.
func (f *YAMLFormatter) Format(w io.Writer, frame resp.Frame) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(Value(frame)); err != nil {
		return err
	}
	return enc.Close()
}
