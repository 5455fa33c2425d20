package textprint

import "io"

// QuoteBytes returns a writer indenting the content written to w in a quoted
// block.
func QuoteBytes(w io.Writer) io.Writer {
	return Prefixlines(Nolastline(w), []byte("    | "))
}
