package textprint

import (
	"bufio"
	"fmt"
	"io"

	"github.com/stealthrocket/stablefs/internal/stream"
)

// NewWriter returns a writer printing values in their default format, with
// separator written between consecutive values. Values implementing
// fmt.Formatter control how they are printed. Output is buffered until Close.
func NewWriter[T any](w io.Writer, separator string) stream.WriteCloser[T] {
	return &writer[T]{output: bufio.NewWriter(w), separator: separator}
}

type writer[T any] struct {
	output    *bufio.Writer
	separator string
	started   bool
}

func (w *writer[T]) Write(values []T) (int, error) {
	for n, v := range values {
		if w.started {
			if _, err := w.output.WriteString(w.separator); err != nil {
				return n, err
			}
		}
		w.started = true
		if _, err := fmt.Fprint(w.output, v); err != nil {
			return n, err
		}
	}
	return len(values), nil
}

func (w *writer[T]) Close() error {
	return w.output.Flush()
}
