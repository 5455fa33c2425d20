// Package document prints streams of values as JSON or YAML documents, one
// document per value.
package document

import (
	"encoding/json"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/stealthrocket/stablefs/internal/stream"
)

// Format is the encoding of the documents.
type Format string

const (
	JSON Format = "json"
	YAML Format = "yaml"
)

type encoder interface {
	Encode(any) error
}

// NewWriter returns a writer encoding each value as a document in format.
// JSON documents are indented; YAML documents are separated by "---".
//
// The function panics if format is neither JSON nor YAML.
func NewWriter[T any](w io.Writer, format Format) stream.WriteCloser[T] {
	switch format {
	case JSON:
		e := json.NewEncoder(w)
		e.SetEscapeHTML(false)
		e.SetIndent("", "  ")
		return &writer[T]{enc: e}
	case YAML:
		e := yaml.NewEncoder(w)
		e.SetIndent(2)
		return &writer[T]{enc: e, flush: e.Close}
	default:
		panic(fmt.Sprintf("document: unsupported format %q", format))
	}
}

type writer[T any] struct {
	enc   encoder
	flush func() error
	count int
}

func (w *writer[T]) Write(values []T) (int, error) {
	for n := range values {
		if err := w.enc.Encode(values[n]); err != nil {
			return n, err
		}
		w.count++
	}
	return len(values), nil
}

// Close flushes the documents. The YAML encoder fails to close a stream
// without documents, so nothing is flushed then.
func (w *writer[T]) Close() error {
	flush := w.flush
	w.flush = nil
	if flush == nil || w.count == 0 {
		return nil
	}
	return flush()
}
