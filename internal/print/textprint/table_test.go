package textprint_test

import (
	"bytes"
	"testing"

	"github.com/stealthrocket/stablefs/internal/assert"
	"github.com/stealthrocket/stablefs/internal/print/textprint"
)

type entry struct {
	Name  string `text:"NAME"`
	Type  string `text:"TYPE"`
	Size  uint64 `text:"SIZE"`
	Inode uint64 `text:"-"`
}

func TestTableWriteNothing(t *testing.T) {
	b := new(bytes.Buffer)
	w := textprint.NewTableWriter[entry](b)
	assert.OK(t, w.Close())
	assert.Equal(t, b.String(), "NAME  TYPE  SIZE\n")
}

func TestTableWriteValues(t *testing.T) {
	b := new(bytes.Buffer)
	w := textprint.NewTableWriter[entry](b)
	_, err := w.Write([]entry{
		{Name: "etc", Type: "directory", Inode: 2},
		{Name: "state.bin", Type: "file", Size: 4096, Inode: 3},
		{Name: "a", Type: "file", Size: 1, Inode: 4},
	})
	assert.OK(t, err)
	assert.OK(t, w.Close())
	assert.Equal(t, b.String(), `NAME       TYPE       SIZE
etc        directory  0
state.bin  file       4096
a          file       1
`)
}

func TestTableOrderBy(t *testing.T) {
	b := new(bytes.Buffer)
	w := textprint.NewTableWriter[entry](b,
		textprint.Header[entry](false),
		textprint.List[entry](true),
		textprint.OrderBy(func(e1, e2 entry) bool { return e1.Name < e2.Name }),
	)
	_, err := w.Write([]entry{{Name: "c"}, {Name: "a"}, {Name: "b"}})
	assert.OK(t, err)
	assert.OK(t, w.Close())
	assert.Equal(t, b.String(), "a\nb\nc\n")
}

func TestTableCloseTwice(t *testing.T) {
	b := new(bytes.Buffer)
	w := textprint.NewTableWriter[entry](b)
	_, err := w.Write([]entry{{Name: "a", Type: "file", Size: 1}})
	assert.OK(t, err)
	assert.OK(t, w.Close())
	assert.OK(t, w.Close())
	assert.Equal(t, b.String(), "NAME  TYPE  SIZE\na     file  1\n")
}
