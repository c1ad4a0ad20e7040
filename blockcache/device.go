// Package blockcache provides the one external collaborator the B+ tree
// core depends on but does not implement itself (§4.A): a fixed-size block
// device, addressed by block number, with allocate/deallocate notification
// hooks for statistics.
//
// Device is backed by a memory-mapped file, adapted from the teacher
// package's internal/mmap. Cache fronts a Device with an in-process
// hot-block map guarded by a single mutex, and uses
// github.com/dgraph-io/ristretto/v2 only to decide which blocks stay in it.
package blockcache

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"

	"github.com/7thcode/btreeindex/bnode"
)

// peekBlockSize reads the block-size header field out of an existing
// device file's first block without knowing the block size yet: the
// superblock is always at byte 0, and its header fields land within the
// first bnode.HeaderSize bytes regardless of the surrounding block's total
// width.
func peekBlockSize(path string) (uint32, error) {
	file, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("blockcache: open %s: %w", path, err)
	}
	defer file.Close()

	header := make([]byte, bnode.HeaderSize)
	if _, err := file.ReadAt(header, 0); err != nil {
		return 0, fmt.Errorf("blockcache: read header of %s: %w", path, err)
	}
	return bnode.PeekBlockSize(header), nil
}

// Device is the narrow storage interface Cache needs underneath it.
type Device interface {
	ReadAt(p []byte, off int64) (int, error)
	WriteAt(p []byte, off int64) (int, error)
	Truncate(size int64) error
	Sync() error
	Close() error
	Size() int64
}

// mmapDevice memory-maps a file and serves ReadAt/WriteAt as slice copies
// into/out of the mapping.
type mmapDevice struct {
	file *os.File
	data []byte
	size int64
}

// OpenMMap opens or creates path and maps at least size bytes of it.
func OpenMMap(path string, size int64) (Device, error) {
	file, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0644)
	if err != nil {
		return nil, fmt.Errorf("blockcache: open %s: %w", path, err)
	}

	info, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("blockcache: stat %s: %w", path, err)
	}

	mapSize := info.Size()
	if mapSize < size {
		if err := file.Truncate(size); err != nil {
			file.Close()
			return nil, fmt.Errorf("blockcache: truncate %s: %w", path, err)
		}
		mapSize = size
	}
	if mapSize == 0 {
		mapSize = size
		if err := file.Truncate(mapSize); err != nil {
			file.Close()
			return nil, fmt.Errorf("blockcache: truncate %s: %w", path, err)
		}
	}

	data, err := unix.Mmap(int(file.Fd()), 0, int(mapSize), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("blockcache: mmap %s: %w", path, err)
	}

	return &mmapDevice{file: file, data: data, size: mapSize}, nil
}

func (m *mmapDevice) ReadAt(p []byte, off int64) (int, error) {
	if off < 0 || off+int64(len(p)) > m.size {
		return 0, fmt.Errorf("blockcache: read out of range at %d (size %d)", off, m.size)
	}
	return copy(p, m.data[off:off+int64(len(p))]), nil
}

func (m *mmapDevice) WriteAt(p []byte, off int64) (int, error) {
	if off < 0 || off+int64(len(p)) > m.size {
		return 0, fmt.Errorf("blockcache: write out of range at %d (size %d)", off, m.size)
	}
	return copy(m.data[off:off+int64(len(p))], p), nil
}

// Truncate grows the mapping to newSize, remapping the file. Shrinking is
// not supported. Its only caller is Cache.Grow; OpenMMap sizes a new file
// itself, and the tree core never calls either mid-operation (§4.A).
func (m *mmapDevice) Truncate(newSize int64) error {
	if newSize <= m.size {
		return nil
	}
	if err := unix.Munmap(m.data); err != nil {
		return fmt.Errorf("blockcache: munmap during grow: %w", err)
	}
	if err := m.file.Truncate(newSize); err != nil {
		return fmt.Errorf("blockcache: truncate during grow: %w", err)
	}
	data, err := unix.Mmap(int(m.file.Fd()), 0, int(newSize), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		return fmt.Errorf("blockcache: remap during grow: %w", err)
	}
	m.data = data
	m.size = newSize
	return nil
}

func (m *mmapDevice) Sync() error {
	return unix.Msync(m.data, unix.MS_SYNC)
}

func (m *mmapDevice) Size() int64 { return m.size }

func (m *mmapDevice) Close() error {
	if m.data != nil {
		if err := unix.Munmap(m.data); err != nil {
			return fmt.Errorf("blockcache: munmap: %w", err)
		}
		m.data = nil
	}
	if m.file != nil {
		if err := m.file.Close(); err != nil {
			return fmt.Errorf("blockcache: close: %w", err)
		}
		m.file = nil
	}
	return nil
}
