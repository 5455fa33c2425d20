package stream

import "io"

// Writer is an interface implemented by types that consume a stream of values
// of type T.
type Writer[T any] interface {
	// Writes values to the stream, returning the number of values written and
	// any error that occurred.
	Write(values []T) (int, error)
}

// WriteCloser represents a closable stream of values of T.
//
// WriteClosers is like io.WriteCloser for values of any type.
type WriteCloser[T any] interface {
	Writer[T]
	io.Closer
}

// Copy writes values read from r to w, returning the number of values copied
// and any error that occurred (other than io.EOF).
func Copy[T any](w Writer[T], r Reader[T]) (int64, error) {
	return CopyBuffer(w, r, make([]T, 20))
}

// CopyBuffer is like Copy but uses buf as intermediary storage.
func CopyBuffer[T any](w Writer[T], r Reader[T], buf []T) (n int64, err error) {
	if len(buf) == 0 {
		panic("stream.CopyBuffer: empty buffer")
	}
	for {
		rn, rerr := r.Read(buf)
		if rn > 0 {
			wn, werr := w.Write(buf[:rn])
			n += int64(wn)
			if werr != nil {
				return n, werr
			}
			if wn < rn {
				return n, io.ErrShortWrite
			}
		}
		if rerr != nil {
			if rerr == io.EOF {
				rerr = nil
			}
			return n, rerr
		}
	}
}
