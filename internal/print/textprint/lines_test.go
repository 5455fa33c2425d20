package textprint_test

import (
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/stealthrocket/stablefs/internal/assert"
	"github.com/stealthrocket/stablefs/internal/print/textprint"
)

func TestPrefixlines(t *testing.T) {
	tests := []struct {
		scenario string
		input    []string
		output   string
	}{
		{scenario: "empty", input: nil, output: ""},
		{scenario: "single line", input: []string{"hello\n"}, output: "> hello\n"},
		{scenario: "no trailing newline", input: []string{"a\nb"}, output: "> a\n> b"},
		{scenario: "split writes", input: []string{"a", "b\nc", "\n"}, output: "> ab\n> c\n"},
	}

	for _, test := range tests {
		t.Run(test.scenario, func(t *testing.T) {
			b := new(bytes.Buffer)
			w := textprint.Prefixlines(b, []byte("> "))
			for _, s := range test.input {
				n, err := io.WriteString(w, s)
				assert.OK(t, err)
				assert.Equal(t, n, len(s))
			}
			assert.Equal(t, b.String(), test.output)
		})
	}
}

func TestQuoteBytes(t *testing.T) {
	b := new(bytes.Buffer)
	n, err := io.Copy(textprint.QuoteBytes(b), strings.NewReader("one\ntwo\n"))
	assert.OK(t, err)
	assert.Equal(t, n, int64(8))
	assert.Equal(t, b.String(), "    | one\n    | two")
}
