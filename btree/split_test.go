package btree

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/7thcode/btreeindex/bnode"
)

type splitFakeCache struct {
	blockSize uint32
	blocks    [][]byte
}

func newSplitFakeCache(blockSize uint32, numBlocks int) *splitFakeCache {
	blocks := make([][]byte, numBlocks)
	for i := range blocks {
		blocks[i] = make([]byte, blockSize)
	}
	return &splitFakeCache{blockSize: blockSize, blocks: blocks}
}

func (c *splitFakeCache) BlockSize() uint32 { return c.blockSize }
func (c *splitFakeCache) NumBlocks() uint64 { return uint64(len(c.blocks)) }
func (c *splitFakeCache) Read(b bnode.BlockIndex) ([]byte, error) {
	out := make([]byte, c.blockSize)
	copy(out, c.blocks[b])
	return out, nil
}
func (c *splitFakeCache) Write(b bnode.BlockIndex, data []byte) error {
	cp := make([]byte, len(data))
	copy(cp, data)
	c.blocks[b] = cp
	return nil
}
func (c *splitFakeCache) NotifyAllocate(bnode.BlockIndex)   {}
func (c *splitFakeCache) NotifyDeallocate(bnode.BlockIndex) {}

// TestInteriorSplitPromotesSiblingSlotZeroNotDroppedMidkey pins down the
// behavior flagged in §9 as a possible source bug: the separator promoted
// out of an interior split is the sibling's slot-0 key — the original
// node's old key at k₁+1 — not the mid-key at k₁, which is zeroed and
// dropped. For an odd separator count this produces a different promoted
// key than the canonical "promote the middle key" rule would, and this
// test exists so a future change to that choice is a deliberate, reviewed
// decision rather than an accidental regression.
func TestInteriorSplitPromotesSiblingSlotZeroNotDroppedMidkey(t *testing.T) {
	const blockSize = 96
	cache := newSplitFakeCache(blockSize, 16)

	sb, err := formatSuperblock(cache, 4, 10, blockSize, 1)
	require.NoError(t, err)
	// Single free block at index 5, chained to 0: the one sibling
	// allocation this split needs.
	sb.setFreeListHead(5)
	require.NoError(t, sb.persist(cache))

	const origIdx bnode.BlockIndex = 3
	const parentIdx bnode.BlockIndex = 4

	orig := bnode.NewNode(make([]byte, blockSize))
	orig.Init(bnode.InteriorNode, 4, 10, blockSize)
	keys := []string{"0010", "0020", "0030", "0040", "0050"}
	ptrs := []bnode.BlockIndex{10, 20, 30, 40, 50, 60}
	orig.SetNumKeys(uint32(len(keys)))
	for i, k := range keys {
		require.NoError(t, orig.SetKey(uint32(i), bnode.Key(k)))
	}
	for i, p := range ptrs {
		require.NoError(t, orig.SetPointer(uint32(i), p))
	}
	require.NoError(t, orig.Serialize(cache, origIdx))

	parent := bnode.NewNode(make([]byte, blockSize))
	parent.Init(bnode.InteriorNode, 4, 10, blockSize)
	parent.SetNumKeys(1)
	require.NoError(t, parent.SetKey(0, bnode.Key("0005")))
	require.NoError(t, parent.SetPointer(0, 1))
	require.NoError(t, parent.SetPointer(1, origIdx))
	require.NoError(t, parent.Serialize(cache, parentIdx))

	require.NoError(t, splitInterior(cache, sb, []bnode.BlockIndex{origIdx, parentIdx}, orig))

	const siblingIdx bnode.BlockIndex = 5

	origData, err := cache.Read(origIdx)
	require.NoError(t, err)
	fresh := bnode.NewNode(origData)
	require.EqualValues(t, 2, fresh.NumKeys())
	k0, _ := fresh.GetKey(0)
	k1, _ := fresh.GetKey(1)
	assert.Equal(t, bnode.Key("0010"), k0)
	assert.Equal(t, bnode.Key("0020"), k1)

	siblingData, err := cache.Read(siblingIdx)
	require.NoError(t, err)
	sibling := bnode.NewNode(siblingData)
	require.EqualValues(t, 2, sibling.NumKeys())
	sk0, _ := sibling.GetKey(0)
	assert.Equal(t, bnode.Key("0040"), sk0, "promoted separator must be the sibling's slot-0 key")
	assert.NotEqual(t, bnode.Key("0030"), sk0, "must NOT be the dropped mid-key at k1=2 (the canonical choice)")

	parentData, err := cache.Read(parentIdx)
	require.NoError(t, err)
	freshParent := bnode.NewNode(parentData)
	require.EqualValues(t, 2, freshParent.NumKeys())
	promoted, _ := freshParent.GetKey(1)
	assert.Equal(t, bnode.Key("0040"), promoted)
	rightPtr, _ := freshParent.GetPointer(2)
	assert.EqualValues(t, siblingIdx, rightPtr)
}
