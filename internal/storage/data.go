package storage

import (
	"github.com/stealthrocket/stablefs/internal/stable"
)

// size returns the size of the content of rec, which is held by its mounted
// memory when there is one.
func (fsys *FileSystem) size(rec *nodeRecord) (uint64, error) {
	if _, ok := fsys.mounts[rec.Node]; ok {
		m, err := fsys.readMount(rec.Node)
		if err != nil {
			return 0, err
		}
		return m.size, nil
	}
	return rec.Size, nil
}

func (fsys *FileSystem) readData(rec *nodeRecord, p []byte, offset uint64) (int, error) {
	if mem, ok := fsys.mounts[rec.Node]; ok {
		m, err := fsys.readMount(rec.Node)
		if err != nil {
			return 0, err
		}
		return readMemory(mem, p, offset, m.size)
	}
	return fsys.readChunks(rec.Node, p, offset, rec.Size)
}

func (fsys *FileSystem) writeData(rec *nodeRecord, p []byte, offset uint64) (int, error) {
	end := offset + uint64(len(p))
	if end < offset {
		return 0, ErrFileTooLarge
	}
	now := fsys.now()

	if mem, ok := fsys.mounts[rec.Node]; ok {
		m, err := fsys.readMount(rec.Node)
		if err != nil {
			return 0, err
		}
		if err := stable.EnsureCapacity(mem, end); err != nil {
			return 0, ErrNoSpace
		}
		if offset > m.size {
			if err := zeroMemory(mem, m.size, offset); err != nil {
				return 0, err
			}
		}
		if _, err := mem.WriteAt(p, int64(offset)); err != nil {
			return 0, err
		}
		if end > m.size {
			m.size = end
		}
		m.modifyTime, m.changeTime = now, now
		return len(p), fsys.writeMount(rec.Node, m)
	}

	if err := fsys.writeChunks(rec.Node, p, offset); err != nil {
		return 0, err
	}
	if end > rec.Size {
		rec.Size = end
	}
	rec.ModifyTime, rec.ChangeTime = now, now
	return len(p), fsys.writeNode(rec)
}

func (fsys *FileSystem) setSize(rec *nodeRecord, size uint64) error {
	now := fsys.now()

	if mem, ok := fsys.mounts[rec.Node]; ok {
		m, err := fsys.readMount(rec.Node)
		if err != nil {
			return err
		}
		if size > m.size {
			if err := stable.EnsureCapacity(mem, size); err != nil {
				return ErrNoSpace
			}
			if err := zeroMemory(mem, m.size, size); err != nil {
				return err
			}
		}
		m.size = size
		m.modifyTime, m.changeTime = now, now
		return fsys.writeMount(rec.Node, m)
	}

	if size < rec.Size {
		if err := fsys.truncateChunks(rec.Node, size); err != nil {
			return err
		}
	}
	rec.Size = size
	rec.ModifyTime, rec.ChangeTime = now, now
	return fsys.writeNode(rec)
}

// readChunks reads the content of node at offset, bounded by size. Chunks
// that were never written read as zeros.
func (fsys *FileSystem) readChunks(node Node, p []byte, offset, size uint64) (int, error) {
	if offset >= size {
		return 0, nil
	}
	if remain := size - offset; uint64(len(p)) > remain {
		p = p[:remain]
	}
	n := 0
	for n < len(p) {
		pos := offset + uint64(n)
		index, start := pos/chunkSize, int(pos%chunkSize)
		dst := p[n:]
		if len(dst) > chunkSize-start {
			dst = dst[:chunkSize-start]
		}
		chunk, _, err := fsys.data.Get(chunkKey(node, index))
		if err != nil {
			return n, err
		}
		copied := 0
		if start < len(chunk) {
			copied = copy(dst, chunk[start:])
		}
		zero(dst[copied:])
		n += len(dst)
	}
	return n, nil
}

func (fsys *FileSystem) writeChunks(node Node, p []byte, offset uint64) error {
	for len(p) > 0 {
		index, start := offset/chunkSize, int(offset%chunkSize)
		src := p
		if len(src) > chunkSize-start {
			src = src[:chunkSize-start]
		}
		key := chunkKey(node, index)
		var chunk []byte
		if start > 0 || len(src) < chunkSize {
			var err error
			if chunk, _, err = fsys.data.Get(key); err != nil {
				return err
			}
		}
		if end := start + len(src); len(chunk) < end {
			chunk = append(chunk, make([]byte, end-len(chunk))...)
		}
		copy(chunk[start:], src)
		if err := fsys.data.Put(key, chunk); err != nil {
			return err
		}
		p = p[len(src):]
		offset += uint64(len(src))
	}
	return nil
}

// truncateChunks drops the content of node past size. The last chunk is cut
// so that extending the file later reads zeros.
func (fsys *FileSystem) truncateChunks(node Node, size uint64) error {
	_, to := prefixRange(chunkPrefix, node)
	first := (size + chunkSize - 1) / chunkSize
	var drop []string
	fsys.data.Ascend(chunkKey(node, first), to, func(key string) bool {
		drop = append(drop, key)
		return true
	})
	for _, key := range drop {
		if err := fsys.data.Delete(key); err != nil {
			return err
		}
	}
	if tail := int(size % chunkSize); tail != 0 {
		key := chunkKey(node, size/chunkSize)
		chunk, ok, err := fsys.data.Get(key)
		if err != nil {
			return err
		}
		if ok && len(chunk) > tail {
			return fsys.data.Put(key, chunk[:tail])
		}
	}
	return nil
}

// readMemory reads a mounted memory at offset, bounded by size. Bytes past
// the end of the memory read as zeros.
func readMemory(mem stable.Memory, p []byte, offset, size uint64) (int, error) {
	if offset >= size {
		return 0, nil
	}
	if remain := size - offset; uint64(len(p)) > remain {
		p = p[:remain]
	}
	limit := mem.Size() * stable.PageSize
	n := 0
	if offset < limit {
		n = len(p)
		if avail := limit - offset; uint64(n) > avail {
			n = int(avail)
		}
		if _, err := mem.ReadAt(p[:n], int64(offset)); err != nil {
			return 0, err
		}
	}
	zero(p[n:])
	return len(p), nil
}

func zeroMemory(mem stable.Memory, from, to uint64) error {
	if limit := mem.Size() * stable.PageSize; to > limit {
		to = limit
	}
	var buf [chunkSize]byte
	for from < to {
		n := to - from
		if n > chunkSize {
			n = chunkSize
		}
		if _, err := mem.WriteAt(buf[:n], int64(from)); err != nil {
			return err
		}
		from += n
	}
	return nil
}

func zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
