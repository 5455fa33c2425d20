package stable_test

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stealthrocket/stablefs/internal/stable"
	"github.com/stretchr/testify/require"
)

func TestVectorMemory(t *testing.T) {
	m := stable.NewVectorMemory(2)
	require.Equal(t, uint64(0), m.Size())

	_, err := m.WriteAt([]byte("x"), 0)
	require.ErrorIs(t, err, stable.ErrOutOfBounds)

	prev, err := m.Grow(1)
	require.NoError(t, err)
	require.Equal(t, uint64(0), prev)

	_, err = m.WriteAt([]byte("hello"), stable.PageSize-5)
	require.NoError(t, err)

	b := make([]byte, 5)
	_, err = m.ReadAt(b, stable.PageSize-5)
	require.NoError(t, err)
	require.Equal(t, "hello", string(b))

	_, err = m.Grow(2)
	require.ErrorIs(t, err, stable.ErrGrowFailed)

	snapshot := m.Bytes()
	restored := stable.NewVectorMemoryFrom(snapshot)
	require.Equal(t, m.Size(), restored.Size())
	require.True(t, bytes.Equal(snapshot, restored.Bytes()))
}

func TestEnsureCapacity(t *testing.T) {
	m := stable.NewVectorMemory(0)
	require.NoError(t, stable.EnsureCapacity(m, 1))
	require.Equal(t, uint64(1), m.Size())
	require.NoError(t, stable.EnsureCapacity(m, stable.PageSize))
	require.Equal(t, uint64(1), m.Size())
	require.NoError(t, stable.EnsureCapacity(m, 3*stable.PageSize+1))
	require.Equal(t, uint64(4), m.Size())
}

func TestMemoryManager(t *testing.T) {
	physical := stable.NewVectorMemory(0)
	mm, err := stable.NewMemoryManager(physical, 1)
	require.NoError(t, err)

	a := mm.Get(1)
	b := mm.Get(2)

	_, err = a.Grow(1)
	require.NoError(t, err)
	_, err = b.Grow(2)
	require.NoError(t, err)
	_, err = a.Grow(1)
	require.NoError(t, err)

	require.Equal(t, uint64(2), a.Size())
	require.Equal(t, uint64(2), b.Size())

	// The write straddles the two buckets of memory a, which are not
	// contiguous in the physical memory.
	payload := bytes.Repeat([]byte("0123456789"), 10)
	_, err = a.WriteAt(payload, stable.PageSize-50)
	require.NoError(t, err)
	_, err = b.WriteAt([]byte("other"), 0)
	require.NoError(t, err)

	got := make([]byte, len(payload))
	_, err = a.ReadAt(got, stable.PageSize-50)
	require.NoError(t, err)
	require.Equal(t, payload, got)

	reopened, err := stable.NewMemoryManager(stable.NewVectorMemoryFrom(physical.Bytes()), 0)
	require.NoError(t, err)
	require.Equal(t, uint64(1), reopened.BucketSize())

	got = make([]byte, len(payload))
	_, err = reopened.Get(1).ReadAt(got, stable.PageSize-50)
	require.NoError(t, err)
	require.Equal(t, payload, got)

	other := make([]byte, 5)
	_, err = reopened.Get(2).ReadAt(other, 0)
	require.NoError(t, err)
	require.Equal(t, "other", string(other))
	require.Equal(t, uint64(0), reopened.Get(3).Size())
}

func TestMemoryManagerRejectsForeignMemory(t *testing.T) {
	m := stable.NewVectorMemory(0)
	require.NoError(t, stable.EnsureCapacity(m, 1))
	_, err := m.WriteAt([]byte("STFS"), 0)
	require.NoError(t, err)

	_, err = stable.NewMemoryManager(m, 0)
	require.ErrorIs(t, err, stable.ErrNotManaged)
}

func TestParseMemoryIDRange(t *testing.T) {
	tests := []struct {
		scenario string
		input    string
		want     stable.MemoryIDRange
		fails    bool
	}{
		{scenario: "range", input: "1-4", want: stable.MemoryIDRange{First: 1, Last: 4}},
		{scenario: "single id", input: "7", want: stable.MemoryIDRange{First: 7, Last: 7}},
		{scenario: "reversed", input: "4-1", fails: true},
		{scenario: "reserved id", input: "250-255", fails: true},
		{scenario: "garbage", input: "a-b", fails: true},
	}

	for _, test := range tests {
		t.Run(test.scenario, func(t *testing.T) {
			r, err := stable.ParseMemoryIDRange(test.input)
			if test.fails {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, test.want, r)
		})
	}
}

func TestFileMemory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "memory")

	m, err := stable.OpenFileMemory(path)
	require.NoError(t, err)
	require.Equal(t, uint64(0), m.Size())

	_, err = m.Grow(1)
	require.NoError(t, err)
	_, err = m.WriteAt([]byte("persisted"), 10)
	require.NoError(t, err)
	require.NoError(t, m.Close())

	m, err = stable.OpenFileMemory(path)
	require.NoError(t, err)
	defer m.Close()

	require.Equal(t, uint64(1), m.Size())
	b := make([]byte, 9)
	_, err = m.ReadAt(b, 10)
	require.NoError(t, err)
	require.Equal(t, "persisted", string(b))
}
