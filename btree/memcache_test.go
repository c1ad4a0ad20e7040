package btree_test

import (
	"fmt"

	"github.com/7thcode/btreeindex/bnode"
)

// memCache is a minimal in-process btree.BlockCache for tests that don't
// need a real mmap-backed device: the tree core only needs the shape of
// the interface, not the durability behavior underneath it.
type memCache struct {
	blockSize     uint32
	blocks        [][]byte
	allocations   int
	deallocations int
}

func newMemCache(blockSize uint32, numBlocks int) *memCache {
	blocks := make([][]byte, numBlocks)
	for i := range blocks {
		blocks[i] = make([]byte, blockSize)
	}
	return &memCache{blockSize: blockSize, blocks: blocks}
}

func (m *memCache) BlockSize() uint32 { return m.blockSize }
func (m *memCache) NumBlocks() uint64 { return uint64(len(m.blocks)) }

func (m *memCache) Read(b bnode.BlockIndex) ([]byte, error) {
	if int(b) >= len(m.blocks) {
		return nil, fmt.Errorf("memcache: read block %d out of range", b)
	}
	out := make([]byte, m.blockSize)
	copy(out, m.blocks[b])
	return out, nil
}

func (m *memCache) Write(b bnode.BlockIndex, data []byte) error {
	if int(b) >= len(m.blocks) {
		return fmt.Errorf("memcache: write block %d out of range", b)
	}
	cp := make([]byte, len(data))
	copy(cp, data)
	m.blocks[b] = cp
	return nil
}

func (m *memCache) NotifyAllocate(b bnode.BlockIndex)   { m.allocations++ }
func (m *memCache) NotifyDeallocate(b bnode.BlockIndex) { m.deallocations++ }
