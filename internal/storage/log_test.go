package storage_test

import (
	"bytes"
	"fmt"
	"testing"

	"github.com/stealthrocket/stablefs/internal/assert"
	"github.com/stealthrocket/stablefs/internal/stable"
	"github.com/stealthrocket/stablefs/internal/storage"
)

func TestLogPutGet(t *testing.T) {
	for _, codec := range []storage.Codec{storage.Uncompressed, storage.Snappy, storage.Zstd} {
		t.Run(codec.String(), func(t *testing.T) {
			mem := stable.NewVectorMemory(0)
			l, err := storage.OpenLog(mem, storage.WithCompression(codec))
			assert.OK(t, err)
			assert.Equal(t, l.Version(), storage.StorageVersion)

			large := bytes.Repeat([]byte("compressible "), 1000)
			assert.OK(t, l.Put("a", []byte("1")))
			assert.OK(t, l.Put("b", large))
			assert.OK(t, l.Put("a", []byte("2")))

			v, ok, err := l.Get("a")
			assert.OK(t, err)
			assert.True(t, ok)
			assert.Equal(t, string(v), "2")

			v, ok, err = l.Get("b")
			assert.OK(t, err)
			assert.True(t, ok)
			assert.True(t, bytes.Equal(v, large))

			assert.OK(t, l.Delete("a"))
			_, ok, err = l.Get("a")
			assert.OK(t, err)
			assert.Equal(t, ok, false)

			reopened, err := storage.OpenLog(stable.NewVectorMemoryFrom(mem.Bytes()))
			assert.OK(t, err)
			assert.Equal(t, reopened.ID(), l.ID())
			assert.Equal(t, reopened.Len(), 1)

			v, ok, err = reopened.Get("b")
			assert.OK(t, err)
			assert.True(t, ok)
			assert.True(t, bytes.Equal(v, large))
		})
	}
}

func TestLogAscend(t *testing.T) {
	l, err := storage.OpenLog(stable.NewVectorMemory(0))
	assert.OK(t, err)

	for i := 0; i < 10; i++ {
		assert.OK(t, l.Put(fmt.Sprintf("k%d", i), nil))
	}

	var keys []string
	l.Ascend("k3", "k6", func(key string) bool {
		keys = append(keys, key)
		return true
	})
	assert.EqualAll(t, keys, []string{"k3", "k4", "k5"})

	keys = keys[:0]
	l.Ascend("k8", "", func(key string) bool {
		keys = append(keys, key)
		return true
	})
	assert.EqualAll(t, keys, []string{"k8", "k9"})
}

func TestLogCompaction(t *testing.T) {
	mem := stable.NewVectorMemory(0)
	l, err := storage.OpenLog(mem, storage.WithCompactThreshold(1024))
	assert.OK(t, err)

	value := bytes.Repeat([]byte{'x'}, 100)
	for i := 0; i < 100; i++ {
		assert.OK(t, l.Put("same", value))
	}
	assert.OK(t, l.Put("other", []byte("kept")))

	stats := l.Stats()
	assert.Less(t, uint64(0), stats.Generation)
	assert.Less(t, stats.TotalBytes, uint64(2048))

	assert.OK(t, l.Compact())
	reopened, err := storage.OpenLog(stable.NewVectorMemoryFrom(mem.Bytes()))
	assert.OK(t, err)

	v, ok, err := reopened.Get("other")
	assert.OK(t, err)
	assert.True(t, ok)
	assert.Equal(t, string(v), "kept")
	assert.Equal(t, reopened.Stats().LiveBytes, reopened.Stats().TotalBytes-64)
}

func TestLogRecoversTornTail(t *testing.T) {
	mem := stable.NewVectorMemory(0)
	l, err := storage.OpenLog(mem)
	assert.OK(t, err)
	assert.OK(t, l.Put("first", []byte("ok")))
	end := l.Stats().TotalBytes
	assert.OK(t, l.Put("second", []byte("torn")))

	// Flip a byte of the last record so its checksum no longer matches.
	snapshot := mem.Bytes()
	snapshot[end+recordPayloadOffset] ^= 0xFF

	reopened, err := storage.OpenLog(stable.NewVectorMemoryFrom(snapshot))
	assert.OK(t, err)
	assert.Equal(t, reopened.Len(), 1)
	assert.Equal(t, reopened.Stats().TotalBytes, end)

	_, ok, err := reopened.Get("second")
	assert.OK(t, err)
	assert.Equal(t, ok, false)
}

func TestLogRejectsForeignMemory(t *testing.T) {
	mem := stable.NewVectorMemory(0)
	assert.OK(t, stable.EnsureCapacity(mem, 1))
	_, err := mem.WriteAt([]byte("ELF!"), 0)
	assert.OK(t, err)

	_, err = storage.OpenLog(mem)
	assert.Error(t, err, storage.ErrCorrupted)
}

const recordPayloadOffset = 10
