package blockcache

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/dgraph-io/ristretto/v2"

	"github.com/7thcode/btreeindex/bnode"
)

// BlockIndex addresses a block on the device. It is bnode.BlockIndex under
// another name: blockcache is the one package allowed to depend on bnode's
// type (bnode itself only depends on a locally-declared interface, to avoid
// a cycle), so btree can hand a *Cache to both a bnode.Node and this
// package's own API without conversions at every call site.
type BlockIndex = bnode.BlockIndex

// Stats reports the advisory allocate/deallocate counters a BlockCache
// implementation is asked to keep (§4.A). They are diagnostic only — the
// core tree never reads them back to make decisions.
type Stats struct {
	Allocations   uint64
	Deallocations uint64
	HotHits       uint64
	HotMisses     uint64
}

// Cache is the concrete blockcache.Cache contract: a fixed-size-block
// device (§3.1) fronted by an in-process hot-block cache. Reads consult the
// hot cache first and fall back to the device; writes always go to the
// device first — the device is the single source of truth — and then
// refresh the hot entry, so a read immediately following a write never
// observes stale data.
//
// The read-your-write guarantee (spec.md: "a read following a write of the
// same block observes the written bytes") cannot be built on ristretto's
// Get/Set alone: Set hands the entry to ristretto's internal ring
// buffer/policy goroutine and is processed asynchronously, so a Get issued
// immediately after a Set for the same key is not guaranteed to observe it
// yet. hotData is the synchronous, mutex-guarded source of truth every
// Read/Write goes through directly; ristretto only decides which blocks
// stay resident under the cache's memory budget, via its OnEvict callback
// deleting the corresponding hotData entry once ristretto's policy decides
// to age it out. A race between a Write and ristretto evicting that same
// key only ever produces a cache miss on the next Read (which then falls
// back to the device, itself already up to date) — never stale bytes.
type Cache struct {
	mu      sync.Mutex
	device  Device
	hotData map[uint64][]byte
	hot     *ristretto.Cache[uint64, struct{}]

	blockSize uint32
	numBlocks uint64

	allocations   atomic.Uint64
	deallocations atomic.Uint64
	hotHits       atomic.Uint64
	hotMisses     atomic.Uint64
}

// Open attaches a Cache to path. If create is true and the file is shorter
// than numBlocks blocks of blockSize bytes, it is extended to that size with
// zero bytes; bytes already in the file are kept. If create is false, blockSize is recovered
// from the superblock's own header bytes at the front of the file (block 0
// is always the superblock, §3.1) rather than trusted from the caller, so
// an existing file can be reopened by path alone.
func Open(path string, blockSize uint32, numBlocks uint64, create bool) (*Cache, error) {
	var size int64
	if create {
		size = int64(blockSize) * int64(numBlocks)
	} else {
		discovered, err := peekBlockSize(path)
		if err != nil {
			return nil, err
		}
		blockSize = discovered
	}
	dev, err := OpenMMap(path, size)
	if err != nil {
		return nil, err
	}

	actualBlocks := numBlocks
	if !create {
		actualBlocks = uint64(dev.Size()) / uint64(blockSize)
	}

	c := &Cache{
		device:    dev,
		hotData:   make(map[uint64][]byte),
		blockSize: blockSize,
		numBlocks: actualBlocks,
	}

	hot, err := ristretto.NewCache(&ristretto.Config[uint64, struct{}]{
		NumCounters: 10_000,
		MaxCost:     64 << 20, // 64MiB of hot blocks
		BufferItems: 64,
		OnEvict: func(item *ristretto.Item[struct{}]) {
			c.mu.Lock()
			delete(c.hotData, item.Key)
			c.mu.Unlock()
		},
	})
	if err != nil {
		dev.Close()
		return nil, fmt.Errorf("blockcache: ristretto init: %w", err)
	}
	c.hot = hot

	return c, nil
}

// BlockSize is the fixed block size this cache was opened with.
func (c *Cache) BlockSize() uint32 { return c.blockSize }

// NumBlocks is the current device extent, in blocks.
func (c *Cache) NumBlocks() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.numBlocks
}

// Grow extends the device to hold n additional blocks, zero-filled. Neither
// the btree package nor the CLI calls it: the free-list allocator (§4.C)
// reports ErrNoSpace when its list is exhausted, and the new blocks are not
// linked into any free list.
func (c *Cache) Grow(n uint64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	newSize := int64(c.blockSize) * int64(c.numBlocks+n)
	if err := c.device.Truncate(newSize); err != nil {
		return fmt.Errorf("blockcache: grow: %w", err)
	}
	c.numBlocks += n
	return nil
}

// Read returns the current bytes of block. hotData is consulted first,
// under the same mutex every Write takes, so a Read that follows a Write of
// the same block — even on the very next line, same goroutine — always
// observes the written bytes; ristretto never enters that decision. On a
// miss, the block is read from the device and populated into hotData (and
// registered with ristretto, purely to drive eventual eviction) for next
// time.
func (c *Cache) Read(block BlockIndex) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if cached, ok := c.hotData[uint64(block)]; ok {
		c.hotHits.Add(1)
		out := make([]byte, len(cached))
		copy(out, cached)
		return out, nil
	}
	c.hotMisses.Add(1)

	if uint64(block) >= c.numBlocks {
		return nil, fmt.Errorf("blockcache: read block %d: out of range (%d blocks)", block, c.numBlocks)
	}
	buf := make([]byte, c.blockSize)
	if _, err := c.device.ReadAt(buf, int64(block)*int64(c.blockSize)); err != nil {
		return nil, fmt.Errorf("blockcache: read block %d: %w", block, err)
	}

	cached := make([]byte, len(buf))
	copy(cached, buf)
	c.hotData[uint64(block)] = cached
	c.hot.Set(uint64(block), struct{}{}, int64(len(cached)))
	return buf, nil
}

// Write persists data as the new contents of block, authoritatively on the
// device, then refreshes hotData synchronously under the same mutex Read
// consults, and registers the block with ristretto so it counts toward the
// hot set's eviction policy.
func (c *Cache) Write(block BlockIndex, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if uint64(block) >= c.numBlocks {
		return fmt.Errorf("blockcache: write block %d: out of range (%d blocks)", block, c.numBlocks)
	}
	if _, err := c.device.WriteAt(data, int64(block)*int64(c.blockSize)); err != nil {
		return fmt.Errorf("blockcache: write block %d: %w", block, err)
	}

	cached := make([]byte, len(data))
	copy(cached, data)
	c.hotData[uint64(block)] = cached
	c.hot.Set(uint64(block), struct{}{}, int64(len(cached)))
	return nil
}

// NotifyAllocate is an advisory hook the free-list allocator (§4.C) calls
// whenever it hands out a block. Cache has no policy decision to make on
// allocation — the block's contents are about to be overwritten by the
// caller via Write — so this only bumps a counter.
func (c *Cache) NotifyAllocate(block BlockIndex) {
	c.allocations.Add(1)
}

// NotifyDeallocate is the matching hook for a block returned to the free
// list. Its hotData entry, if any, is evicted immediately: the bytes it
// held are about to be overwritten with free-list linkage by a different
// logical node, and serving the stale cached bytes to a concurrent reader
// would be a correctness bug, not just a staleness one.
func (c *Cache) NotifyDeallocate(block BlockIndex) {
	c.deallocations.Add(1)
	c.mu.Lock()
	delete(c.hotData, uint64(block))
	c.mu.Unlock()
	c.hot.Del(uint64(block))
}

// Stats reports the counters accumulated so far.
func (c *Cache) Stats() Stats {
	return Stats{
		Allocations:   c.allocations.Load(),
		Deallocations: c.deallocations.Load(),
		HotHits:       c.hotHits.Load(),
		HotMisses:     c.hotMisses.Load(),
	}
}

// Checkpoint flushes the device to stable storage. The hot cache holds no
// data the device doesn't already have authoritatively (Write always goes
// device-first), so there is nothing for it to flush.
func (c *Cache) Checkpoint() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.device.Sync(); err != nil {
		return fmt.Errorf("blockcache: checkpoint: %w", err)
	}
	return nil
}

// Close flushes and releases the underlying device and hot cache.
func (c *Cache) Close() error {
	if err := c.Checkpoint(); err != nil {
		return err
	}
	c.hot.Close()
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.device.Close()
}
