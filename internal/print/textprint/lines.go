package textprint

import (
	"bytes"
	"io"
)

type lineprefixer struct {
	p []byte
	w io.Writer

	start bool
}

// Prefixlines returns a writer inserting prefix at the start of every line
// written to w.
func Prefixlines(w io.Writer, prefix []byte) io.Writer {
	return &lineprefixer{
		p: prefix,
		w: w,

		start: true,
	}
}

// Write returns the number of bytes of b written, prefixes excluded.
func (l *lineprefixer) Write(b []byte) (int, error) {
	count := 0
	for len(b) > 0 {
		if l.start {
			l.start = false
			if _, err := l.w.Write(l.p); err != nil {
				return count, err
			}
		}

		i := bytes.IndexByte(b, '\n')
		if i == -1 {
			i = len(b)
		} else {
			i++ // include \n
			l.start = true
		}
		n, err := l.w.Write(b[:i])
		count += n
		if err != nil {
			return count, err
		}
		b = b[i:]
	}
	return count, nil
}

// Nolastline returns a writer which drops the trailing newline of the
// content written to w.
func Nolastline(w io.Writer) io.Writer {
	return &nolastliner{w: w}
}

type nolastliner struct {
	w   io.Writer
	has bool
}

func (l *nolastliner) Write(b []byte) (int, error) {
	if len(b) == 0 {
		return 0, nil
	}
	if l.has {
		l.has = false
		if _, err := l.w.Write([]byte{'\n'}); err != nil {
			return 0, err
		}
	}
	size := len(b)
	i := bytes.LastIndexByte(b, '\n')
	if i == len(b)-1 {
		l.has = true
		b = b[:i]
	}
	if _, err := l.w.Write(b); err != nil {
		return 0, err
	}
	return size, nil
}
