package stream

// ConvertReader returns a reader producing the values of base converted by
// conv. Conversion errors are returned by Read.
func ConvertReader[To, From any](base Reader[From], conv func(From) (To, error)) Reader[To] {
	return &convertReader[To, From]{base: base, conv: conv}
}

type convertReader[To, From any] struct {
	base Reader[From]
	from []From
	conv func(From) (To, error)
}

func (r *convertReader[To, From]) Read(values []To) (n int, err error) {
	for n < len(values) {
		if i := len(values) - n; i <= cap(r.from) {
			r.from = r.from[:i]
		} else {
			r.from = make([]From, i)
		}

		rn, err := r.base.Read(r.from)

		for _, from := range r.from[:rn] {
			to, err := r.conv(from)
			if err != nil {
				return n, err
			}
			values[n] = to
			n++
		}

		if err != nil {
			return n, err
		}
	}
	return n, nil
}
