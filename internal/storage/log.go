package storage

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/google/btree"
	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru"
	"github.com/stealthrocket/stablefs/internal/stable"
	"go.uber.org/zap"
)

// StorageVersion is the layout version written in the header of formatted
// logs. A memory whose header does not carry a version is blank.
const StorageVersion = 1

const (
	logMagic          = "STFS"
	logHeaderSize     = 64
	recordHeaderSize  = 8
	recordPrefixSize  = 4
	compressThreshold = 512
	btreeDegree       = 32
	maxKeyLength      = 0xFFFF
)

const (
	recordPut    = 1
	recordDelete = 2
)

// Log is a key/value store persisted in a stable memory.
//
// Every update appends a record to the memory; an ordered index of the live
// records is rebuilt in the Go heap when the log is opened. The memory
// starts with a fixed header:
//
//	magic      [4]byte  "STFS"
//	version    uint32
//	end        uint64   offset where the next record is appended
//	generation uint64   number of compactions
//	id         [16]byte instance identifier
//	codec      uint8    codec selected when the log was formatted
//
// followed by records:
//
//	size   uint32  length of what follows the checksum
//	crc32c uint32  checksum of what follows
//	kind   uint8
//	codec  uint8
//	keylen uint16
//	key    [keylen]byte
//	value  [...]byte
//
// Records overwritten or deleted become garbage, which is reclaimed by
// rewriting the live records at the beginning of the memory.
type Log struct {
	mem        stable.Memory
	opts       options
	index      *btree.BTree
	cache      *lru.Cache
	end        uint64
	live       uint64
	generation uint64
	version    uint32
	id         uuid.UUID
}

type logEntry struct {
	key    string
	offset uint64
	size   uint64
}

func (e *logEntry) Less(than btree.Item) bool {
	return e.key < than.(*logEntry).key
}

// OpenLog opens the log stored in mem, formatting the memory if it is blank.
func OpenLog(mem stable.Memory, opts ...Option) (*Log, error) {
	l := &Log{
		mem:   mem,
		opts:  defaultOptions(),
		index: btree.New(btreeDegree),
	}
	for _, opt := range opts {
		opt(&l.opts)
	}
	if l.opts.cacheSize > 0 {
		cache, err := lru.New(l.opts.cacheSize)
		if err != nil {
			return nil, err
		}
		l.cache = cache
	}

	if mem.Size() == 0 {
		return l, l.format()
	}

	var header [logHeaderSize]byte
	if _, err := mem.ReadAt(header[:], 0); err != nil {
		return nil, err
	}
	if string(header[:4]) != logMagic {
		if !bytes.Equal(header[:4], make([]byte, 4)) {
			return nil, fmt.Errorf("%w: bad magic number %q", ErrCorrupted, header[:4])
		}
		return l, l.format()
	}

	l.version = binary.LittleEndian.Uint32(header[4:])
	if l.version != StorageVersion {
		return nil, fmt.Errorf("%w: unsupported layout version %d", ErrCorrupted, l.version)
	}
	l.end = binary.LittleEndian.Uint64(header[8:])
	l.generation = binary.LittleEndian.Uint64(header[16:])
	copy(l.id[:], header[24:40])

	if l.end < logHeaderSize || l.end > mem.Size()*stable.PageSize {
		return nil, fmt.Errorf("%w: end offset %d out of range", ErrCorrupted, l.end)
	}
	return l, l.recover()
}

func (l *Log) format() error {
	if err := stable.EnsureCapacity(l.mem, logHeaderSize); err != nil {
		return err
	}
	l.version = StorageVersion
	l.end = logHeaderSize
	l.generation = 0
	l.id = uuid.New()

	var header [logHeaderSize]byte
	copy(header[:4], logMagic)
	binary.LittleEndian.PutUint32(header[4:], l.version)
	binary.LittleEndian.PutUint64(header[8:], l.end)
	binary.LittleEndian.PutUint64(header[16:], l.generation)
	copy(header[24:40], l.id[:])
	header[40] = byte(l.opts.codec)

	if _, err := l.mem.WriteAt(header[:], 0); err != nil {
		return err
	}
	l.opts.logger.Info("formatted stable store",
		zap.String("id", l.id.String()),
		zap.Stringer("codec", l.opts.codec))
	return nil
}

// recover rebuilds the index by scanning the records. A record that fails to
// decode ends the scan, and the log is truncated right before it.
func (l *Log) recover() error {
	offset := uint64(logHeaderSize)
	for offset < l.end {
		size, payload, err := l.readRecord(offset, l.end)
		if err != nil {
			l.opts.logger.Warn("truncating torn stable store log",
				zap.Uint64("offset", offset),
				zap.Uint64("end", l.end),
				zap.Error(err))
			l.end = offset
			return l.writeEnd()
		}
		kind, key := payload[0], string(payload[4:4+binary.LittleEndian.Uint16(payload[2:])])
		switch kind {
		case recordPut:
			l.insert(&logEntry{key: key, offset: offset, size: size})
		case recordDelete:
			l.remove(key)
		}
		offset += size
	}
	return nil
}

// readRecord reads the record at offset and validates it. The returned size
// covers the whole record, including its header.
func (l *Log) readRecord(offset, limit uint64) (uint64, []byte, error) {
	if offset+recordHeaderSize > limit {
		return 0, nil, fmt.Errorf("%w: truncated record header", ErrCorrupted)
	}
	var header [recordHeaderSize]byte
	if _, err := l.mem.ReadAt(header[:], int64(offset)); err != nil {
		return 0, nil, err
	}
	length := uint64(binary.LittleEndian.Uint32(header[:4]))
	if length < 4 || offset+recordHeaderSize+length > limit {
		return 0, nil, fmt.Errorf("%w: record length %d out of range", ErrCorrupted, length)
	}
	payload := make([]byte, length)
	if _, err := l.mem.ReadAt(payload, int64(offset+recordHeaderSize)); err != nil {
		return 0, nil, err
	}
	if sum := binary.LittleEndian.Uint32(header[4:]); sum != checksum(payload) {
		return 0, nil, fmt.Errorf("%w: checksum mismatch", ErrCorrupted)
	}
	if keylen := uint64(binary.LittleEndian.Uint16(payload[2:])); 4+keylen > length {
		return 0, nil, fmt.Errorf("%w: key length %d out of range", ErrCorrupted, keylen)
	}
	if kind := payload[0]; kind != recordPut && kind != recordDelete {
		return 0, nil, fmt.Errorf("%w: unknown record kind %d", ErrCorrupted, kind)
	}
	return recordHeaderSize + length, payload, nil
}

func (l *Log) insert(entry *logEntry) {
	if old := l.index.ReplaceOrInsert(entry); old != nil {
		l.live -= old.(*logEntry).size
	}
	l.live += entry.size
}

func (l *Log) remove(key string) bool {
	old := l.index.Delete(&logEntry{key: key})
	if old == nil {
		return false
	}
	l.live -= old.(*logEntry).size
	return true
}

func (l *Log) writeEnd() error {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], l.end)
	_, err := l.mem.WriteAt(b[:], 8)
	return err
}

func (l *Log) append(kind byte, key string, value []byte) (uint64, uint64, error) {
	if len(key) > maxKeyLength {
		return 0, 0, ErrNameTooLong
	}
	codec := Uncompressed
	if kind == recordPut && len(value) >= compressThreshold && l.opts.codec != Uncompressed {
		if c := compress(nil, value, l.opts.codec); len(c) < len(value) {
			value, codec = c, l.opts.codec
		}
	}

	length := 4 + len(key) + len(value)
	record := make([]byte, recordHeaderSize+length)
	payload := record[recordHeaderSize:]
	payload[0] = kind
	payload[1] = byte(codec)
	binary.LittleEndian.PutUint16(payload[2:], uint16(len(key)))
	copy(payload[4:], key)
	copy(payload[4+len(key):], value)
	binary.LittleEndian.PutUint32(record[0:], uint32(length))
	binary.LittleEndian.PutUint32(record[4:], checksum(payload))

	offset := l.end
	if err := stable.EnsureCapacity(l.mem, offset+uint64(len(record))); err != nil {
		return 0, 0, fmt.Errorf("%w: %w: %v", ErrMemoryFull, ErrNoSpace, err)
	}
	if _, err := l.mem.WriteAt(record, int64(offset)); err != nil {
		return 0, 0, err
	}
	l.end += uint64(len(record))
	if err := l.writeEnd(); err != nil {
		return 0, 0, err
	}
	return offset, uint64(len(record)), nil
}

// Get returns a copy of the value associated with key.
func (l *Log) Get(key string) ([]byte, bool, error) {
	item := l.index.Get(&logEntry{key: key})
	if item == nil {
		return nil, false, nil
	}
	entry := item.(*logEntry)

	if l.cache != nil {
		if v, ok := l.cache.Get(entry.offset); ok {
			return append([]byte(nil), v.([]byte)...), true, nil
		}
	}

	_, payload, err := l.readRecord(entry.offset, l.end)
	if err != nil {
		return nil, false, err
	}
	keylen := int(binary.LittleEndian.Uint16(payload[2:]))
	value, err := decompress(nil, payload[4+keylen:], Codec(payload[1]))
	if err != nil {
		return nil, false, err
	}
	if l.cache != nil {
		l.cache.Add(entry.offset, value)
		value = append([]byte(nil), value...)
	}
	return value, true, nil
}

// Has reports whether key is present in the log.
func (l *Log) Has(key string) bool {
	return l.index.Has(&logEntry{key: key})
}

// Put associates value with key.
func (l *Log) Put(key string, value []byte) error {
	offset, size, err := l.append(recordPut, key, value)
	if err != nil {
		return err
	}
	l.insert(&logEntry{key: key, offset: offset, size: size})
	return l.maybeCompact()
}

// Delete removes key from the log. Deleting a missing key is not an error.
func (l *Log) Delete(key string) error {
	if !l.Has(key) {
		return nil
	}
	if _, _, err := l.append(recordDelete, key, nil); err != nil {
		return err
	}
	l.remove(key)
	return l.maybeCompact()
}

// Ascend calls fn for the keys in [from, to) in ascending order until fn
// returns false. An empty upper bound means no limit. The log must not be
// modified while iterating.
func (l *Log) Ascend(from, to string, fn func(key string) bool) {
	iter := func(item btree.Item) bool { return fn(item.(*logEntry).key) }
	if to == "" {
		l.index.AscendGreaterOrEqual(&logEntry{key: from}, iter)
	} else {
		l.index.AscendRange(&logEntry{key: from}, &logEntry{key: to}, iter)
	}
}

// Len returns the number of live keys.
func (l *Log) Len() int {
	return l.index.Len()
}

func (l *Log) garbage() uint64 {
	return (l.end - logHeaderSize) - l.live
}

func (l *Log) maybeCompact() error {
	if garbage := l.garbage(); garbage > l.opts.compactThreshold && garbage > l.live {
		return l.Compact()
	}
	return nil
}

// Compact rewrites the live records at the beginning of the memory,
// discarding overwritten and deleted ones.
func (l *Log) Compact() error {
	before := l.end
	image := make([]byte, 0, logHeaderSize+l.live)
	image = append(image, make([]byte, logHeaderSize)...)
	if _, err := l.mem.ReadAt(image[:logHeaderSize], 0); err != nil {
		return err
	}

	entries := make([]*logEntry, 0, l.index.Len())
	l.index.Ascend(func(item btree.Item) bool {
		entries = append(entries, item.(*logEntry))
		return true
	})

	offsets := make([]uint64, len(entries))
	for i, entry := range entries {
		offsets[i] = uint64(len(image))
		n := len(image)
		image = append(image, make([]byte, entry.size)...)
		if _, err := l.mem.ReadAt(image[n:], int64(entry.offset)); err != nil {
			return err
		}
	}

	l.generation++
	binary.LittleEndian.PutUint64(image[8:], uint64(len(image)))
	binary.LittleEndian.PutUint64(image[16:], l.generation)
	if _, err := l.mem.WriteAt(image, 0); err != nil {
		return err
	}

	for i, entry := range entries {
		entry.offset = offsets[i]
	}
	l.end = uint64(len(image))
	if l.cache != nil {
		l.cache.Purge()
	}
	l.opts.logger.Info("compacted stable store log",
		zap.Uint64("before", before),
		zap.Uint64("after", l.end),
		zap.Uint64("generation", l.generation))
	return nil
}

// Sync flushes the memory if it supports it.
func (l *Log) Sync() error {
	if s, ok := l.mem.(interface{ Sync() error }); ok {
		return s.Sync()
	}
	return nil
}

// Version returns the layout version read from the header.
func (l *Log) Version() uint32 { return l.version }

// ID returns the identifier generated when the log was formatted.
func (l *Log) ID() uuid.UUID { return l.id }

// LogStats describes the space used by a log.
type LogStats struct {
	Keys       int    `json:"keys"        yaml:"keys"`
	LiveBytes  uint64 `json:"live_bytes"  yaml:"live_bytes"`
	TotalBytes uint64 `json:"total_bytes" yaml:"total_bytes"`
	Generation uint64 `json:"generation"  yaml:"generation"`
}

// Stats returns the current space accounting of the log.
func (l *Log) Stats() LogStats {
	return LogStats{
		Keys:       l.index.Len(),
		LiveBytes:  l.live,
		TotalBytes: l.end,
		Generation: l.generation,
	}
}
