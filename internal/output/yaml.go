package output

import (
	"bufio"
	"io"

	"gopkg.in/yaml.v3"
)

// yamlWriter buffers results and emits them as YAML on Flush.
type yamlWriter struct {
	w     *bufio.Writer
	items []any
}

func newYAMLWriter(w io.Writer) *yamlWriter {
	return &yamlWriter{w: bufio.NewWriter(w)}
}

func (w *yamlWriter) Write(data any) error {
	w.items = append(w.items, data)
	return nil
}

func (w *yamlWriter) Flush() error {
	if len(w.items) == 0 {
		return w.w.Flush()
	}

	enc := yaml.NewEncoder(w.w)
	enc.SetIndent(2)

	var payload any
	if len(w.items) == 1 {
		payload = w.items[0]
	} else {
		payload = w.items
	}

	if err := enc.Encode(payload); err != nil {
		return err
	}
	if err := enc.Close(); err != nil {
		return err
	}
	return w.w.Flush()
}
