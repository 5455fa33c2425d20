package stablefs_test

import (
	"bytes"
	"encoding/binary"
	"errors"
	"testing"

	"github.com/benbjohnson/clock"
	"github.com/stealthrocket/stablefs/internal/assert"
	"github.com/stealthrocket/stablefs/internal/stablefs"
	"github.com/stealthrocket/wasi-go"
	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"github.com/tetratelabs/wazero/sys"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

const (
	i32 = 0x7f
	i64 = 0x7e
)

type funcType struct {
	params  []byte
	results []byte
}

type guestImport struct {
	name string
	typ  funcType
}

type guestFunc struct {
	name string
	typ  funcType
	code []byte
}

// assemble builds a WebAssembly module importing functions from
// wasi_snapshot_preview1 and exporting a memory of one page along with funcs.
// Imported functions are indexed first, in order.
func assemble(imports []guestImport, funcs []guestFunc) []byte {
	var types, imps, decls, exports, bodies [][]byte

	for _, imp := range imports {
		imps = append(imps, concat(
			name("wasi_snapshot_preview1"),
			name(imp.name),
			[]byte{0x00},
			uleb(uint64(len(types))),
		))
		types = append(types, imp.typ.encode())
	}

	exports = append(exports, concat(name("memory"), []byte{0x02, 0x00}))

	for i, fn := range funcs {
		decls = append(decls, uleb(uint64(len(types))))
		types = append(types, fn.typ.encode())
		exports = append(exports, concat(name(fn.name), []byte{0x00}, uleb(uint64(len(imports)+i))))
		body := concat([]byte{0x00}, fn.code, []byte{0x0b})
		bodies = append(bodies, concat(uleb(uint64(len(body))), body))
	}

	return concat(
		[]byte{0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00},
		section(0x01, vec(types)),
		section(0x02, vec(imps)),
		section(0x03, vec(decls)),
		section(0x05, vec([][]byte{{0x00, 0x01}})),
		section(0x07, vec(exports)),
		section(0x0a, vec(bodies)),
	)
}

func (t funcType) encode() []byte {
	return concat([]byte{0x60}, uleb(uint64(len(t.params))), t.params, uleb(uint64(len(t.results))), t.results)
}

func section(id byte, content []byte) []byte {
	return concat([]byte{id}, uleb(uint64(len(content))), content)
}

func vec(items [][]byte) []byte {
	return concat(uleb(uint64(len(items))), concat(items...))
}

func name(s string) []byte {
	return concat(uleb(uint64(len(s))), []byte(s))
}

func concat(parts ...[]byte) []byte {
	return bytes.Join(parts, nil)
}

func uleb(v uint64) []byte {
	return binary.AppendUvarint(nil, v)
}

func sleb(v int64) (b []byte) {
	for {
		c := byte(v & 0x7f)
		v >>= 7
		if (v == 0 && c&0x40 == 0) || (v == -1 && c&0x40 != 0) {
			return append(b, c)
		}
		b = append(b, c|0x80)
	}
}

func i32Const(v int32) []byte  { return concat([]byte{0x41}, sleb(int64(v))) }
func i64Const(v int64) []byte  { return concat([]byte{0x42}, sleb(v)) }
func localGet(i uint32) []byte { return concat([]byte{0x20}, uleb(uint64(i))) }
func call(i uint32) []byte     { return concat([]byte{0x10}, uleb(uint64(i))) }

var (
	fdWrite          = guestImport{"fd_write", funcType{[]byte{i32, i32, i32, i32}, []byte{i32}}}
	fdReaddir        = guestImport{"fd_readdir", funcType{[]byte{i32, i32, i32, i64, i32}, []byte{i32}}}
	fdPrestatDirName = guestImport{"fd_prestat_dir_name", funcType{[]byte{i32, i32, i32}, []byte{i32}}}
	procExit         = guestImport{"proc_exit", funcType{[]byte{i32}, nil}}
)

// instantiate runs the host modules of a new instance holding the file
// a.txt, and instantiates wasm over them.
func instantiate(t *testing.T, wasm []byte) (api.Module, func(name string, params ...uint64) uint64) {
	t.Helper()
	runtime := wazero.NewRuntime(ctx)
	t.Cleanup(func() { runtime.Close(ctx) })

	instance, err := stablefs.Init(nil, nil, stablefs.WithClock(clock.NewMock()))
	assert.OK(t, err)
	t.Cleanup(func() { instance.Close(ctx) })
	assert.Equal(t, instance.System().FDClose(ctx, createFile(t, instance.System(), "a.txt", "")), wasi.ESUCCESS)

	callContext, err := instance.Instantiate(ctx, runtime)
	assert.OK(t, err)
	mod, err := runtime.Instantiate(callContext, wasm)
	assert.OK(t, err)

	return mod, func(name string, params ...uint64) uint64 {
		t.Helper()
		results, err := mod.ExportedFunction(name).Call(callContext, params...)
		assert.OK(t, err)
		return results[0]
	}
}

func TestGuest(t *testing.T) {
	tests := map[string]func(*testing.T){
		"readdir fills the guest buffer":         testGuestReaddir,
		"prestat dir name must match the length": testGuestPrestatDirName,
		"oversized iovec count traps the guest":  testGuestIOVecCount,
	}

	names := maps.Keys(tests)
	slices.Sort(names)

	for _, name := range names {
		t.Run(name, tests[name])
	}
}

func testGuestReaddir(t *testing.T) {
	const buf, nwritten = 1024, 512
	wasm := assemble([]guestImport{fdReaddir}, []guestFunc{{
		name: "readdir",
		typ:  funcType{[]byte{i32}, []byte{i32}},
		code: concat(
			i32Const(int32(root)),
			i32Const(buf),
			localGet(0),
			i64Const(0),
			i32Const(nwritten),
			call(0),
		),
	}})
	mod, invoke := instantiate(t, wasm)

	tests := []struct {
		scenario string
		size     uint64
		written  uint32
	}{
		{scenario: "all entries", size: 256, written: uint32(3*wasi.SizeOfDirent + len(".") + len("..") + len("a.txt"))},
		{scenario: "last entry truncated", size: 30, written: 30},
		{scenario: "buffer shorter than a header", size: 10, written: 0},
	}

	for _, test := range tests {
		t.Run(test.scenario, func(t *testing.T) {
			assert.Equal(t, wasi.Errno(invoke("readdir", test.size)), wasi.ESUCCESS)
			n, ok := mod.Memory().ReadUint32Le(nwritten)
			assert.True(t, ok)
			assert.Equal(t, n, test.written)
		})
	}

	invoke("readdir", 256)
	b, ok := mod.Memory().Read(buf, 80)
	assert.True(t, ok)
	assert.Equal(t, binary.LittleEndian.Uint64(b[0:]), 1)
	assert.Equal(t, binary.LittleEndian.Uint32(b[16:]), 1)
	assert.Equal(t, wasi.FileType(b[20]), wasi.DirectoryType)
	assert.Equal(t, string(b[24:25]), ".")
	assert.Equal(t, wasi.FileType(b[25+20]), wasi.DirectoryType)
	assert.Equal(t, string(b[25+24:25+26]), "..")
	assert.Equal(t, wasi.FileType(b[51+20]), wasi.RegularFileType)
	assert.Equal(t, string(b[51+24:]), "a.txt")
}

func testGuestPrestatDirName(t *testing.T) {
	const path = 256
	wasm := assemble([]guestImport{fdPrestatDirName}, []guestFunc{{
		name: "prestat_dir_name",
		typ:  funcType{[]byte{i32}, []byte{i32}},
		code: concat(i32Const(int32(root)), i32Const(path), localGet(0), call(0)),
	}})
	mod, invoke := instantiate(t, wasm)

	assert.Equal(t, wasi.Errno(invoke("prestat_dir_name", 1)), wasi.ESUCCESS)
	b, ok := mod.Memory().Read(path, 1)
	assert.True(t, ok)
	assert.Equal(t, string(b), "/")

	assert.Equal(t, wasi.Errno(invoke("prestat_dir_name", 4)), wasi.EINVAL)
}

func testGuestIOVecCount(t *testing.T) {
	// The iovec count makes the list span far beyond the single page of
	// memory; loading it must fault instead of growing host memory.
	wasm := assemble([]guestImport{fdWrite, procExit}, []guestFunc{{
		name: "_start",
		typ:  funcType{},
		code: concat(
			i32Const(1),
			i32Const(0),
			i32Const(0x20000001),
			i32Const(64),
			call(0),
			call(1),
		),
	}})

	var debug bytes.Buffer
	err := stablefs.Run(ctx, new(stablefs.Config), wasm, []string{"iovecs"},
		stablefs.WithDebug(&debug),
		stablefs.WithClock(clock.NewMock()),
	)
	assert.NotEqual(t, err, nil)

	var exitErr *sys.ExitError
	if errors.As(err, &exitErr) {
		assert.NotEqual(t, exitErr.ExitCode(), 0)
	}
	assert.Equal(t, debug.Len(), 0)
}
