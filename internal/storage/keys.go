package storage

import "encoding/binary"

// Keys of the metadata and data logs. Integers are big-endian so the key
// order matches the numeric order of (parent, index) and (node, chunk).
const (
	superblockKey  = "S"
	fdTableKey     = "F"
	nodePrefix     = 'M'
	entryPrefix    = 'D'
	namePrefix     = 'N'
	mountPrefix    = 'T'
	chunkPrefix    = 'C'
	chunkSize      = 4096
	superblockSize = 8
)

func makeKey(prefix byte, ids ...uint64) []byte {
	b := make([]byte, 1, 1+8*len(ids))
	b[0] = prefix
	for _, id := range ids {
		b = binary.BigEndian.AppendUint64(b, id)
	}
	return b
}

func nodeKey(node Node) string {
	return string(makeKey(nodePrefix, uint64(node)))
}

func mountKey(node Node) string {
	return string(makeKey(mountPrefix, uint64(node)))
}

func entryKey(dir Node, index uint64) string {
	return string(makeKey(entryPrefix, uint64(dir), index))
}

func entryIndex(key string) uint64 {
	return binary.BigEndian.Uint64([]byte(key[9:]))
}

func nameKey(dir Node, name string) string {
	return string(append(makeKey(namePrefix, uint64(dir)), name...))
}

func chunkKey(node Node, chunk uint64) string {
	return string(makeKey(chunkPrefix, uint64(node), chunk))
}

func chunkIndex(key string) uint64 {
	return binary.BigEndian.Uint64([]byte(key[9:]))
}

// prefixRange returns the bounds of the keys starting with the given node
// under prefix.
func prefixRange(prefix byte, node Node) (from, to string) {
	return string(makeKey(prefix, uint64(node))), string(makeKey(prefix, uint64(node)+1))
}

func nodeFromKey(key string) Node {
	return Node(binary.BigEndian.Uint64([]byte(key[1:9])))
}

func beUint64(b []byte) uint64 {
	return binary.BigEndian.Uint64(b)
}

func putBeUint64(v uint64) []byte {
	return binary.BigEndian.AppendUint64(nil, v)
}
