package btree

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/7thcode/btreeindex/bnode"
)

// freelistFakeCache tracks NotifyAllocate/NotifyDeallocate calls on top of
// splitFakeCache's plain block storage, so these tests can assert the
// notification hooks actually fired (§4.C), not just the resulting bytes.
type freelistFakeCache struct {
	*splitFakeCache
	allocated   []bnode.BlockIndex
	deallocated []bnode.BlockIndex
}

func newFreelistFakeCache(blockSize uint32, numBlocks int) *freelistFakeCache {
	return &freelistFakeCache{splitFakeCache: newSplitFakeCache(blockSize, numBlocks)}
}

func (c *freelistFakeCache) NotifyAllocate(b bnode.BlockIndex) {
	c.allocated = append(c.allocated, b)
}

func (c *freelistFakeCache) NotifyDeallocate(b bnode.BlockIndex) {
	c.deallocated = append(c.deallocated, b)
}

func TestAllocatePopsFreeListHeadAndNotifies(t *testing.T) {
	const blockSize = 96
	cache := newFreelistFakeCache(blockSize, 8)

	sb, err := formatSuperblock(cache, 4, 10, blockSize, 1)
	require.NoError(t, err)

	// Free list: 5 -> 6 -> 0 (terminator).
	free6 := bnode.NewNode(make([]byte, blockSize))
	free6.Init(bnode.Unallocated, 4, 10, blockSize)
	free6.SetFreeListNext(0)
	require.NoError(t, free6.Serialize(cache, 6))

	free5 := bnode.NewNode(make([]byte, blockSize))
	free5.Init(bnode.Unallocated, 4, 10, blockSize)
	free5.SetFreeListNext(6)
	require.NoError(t, free5.Serialize(cache, 5))

	sb.setFreeListHead(5)
	require.NoError(t, sb.persist(cache))

	block, err := allocate(cache, sb)
	require.NoError(t, err)
	assert.EqualValues(t, 5, block)
	assert.EqualValues(t, 6, sb.freeListHead())
	assert.Equal(t, []bnode.BlockIndex{5}, cache.allocated)

	block2, err := allocate(cache, sb)
	require.NoError(t, err)
	assert.EqualValues(t, 6, block2)
	assert.EqualValues(t, 0, sb.freeListHead())
	assert.Equal(t, []bnode.BlockIndex{5, 6}, cache.allocated)
}

func TestAllocateReturnsNoSpaceOnEmptyFreeList(t *testing.T) {
	const blockSize = 96
	cache := newFreelistFakeCache(blockSize, 4)

	sb, err := formatSuperblock(cache, 4, 10, blockSize, 1)
	require.NoError(t, err)
	sb.setFreeListHead(0)
	require.NoError(t, sb.persist(cache))

	_, err = allocate(cache, sb)
	assert.ErrorIs(t, err, ErrNoSpace)
	assert.Empty(t, cache.allocated)
}

func TestDeallocateRetagsAndPrependsToFreeList(t *testing.T) {
	const blockSize = 96
	cache := newFreelistFakeCache(blockSize, 8)

	sb, err := formatSuperblock(cache, 4, 10, blockSize, 1)
	require.NoError(t, err)
	sb.setFreeListHead(0)
	require.NoError(t, sb.persist(cache))

	leaf := bnode.NewNode(make([]byte, blockSize))
	leaf.Init(bnode.LeafNode, 4, 10, blockSize)
	leaf.SetNumKeys(0)
	require.NoError(t, leaf.Serialize(cache, 7))

	require.NoError(t, deallocate(cache, sb, 7))

	assert.EqualValues(t, 7, sb.freeListHead())
	assert.Equal(t, []bnode.BlockIndex{7}, cache.deallocated)

	data, err := cache.Read(7)
	require.NoError(t, err)
	retagged := bnode.NewNode(data)
	assert.Equal(t, bnode.Unallocated, retagged.Type())
	assert.EqualValues(t, 0, retagged.FreeListNext())

	// The deallocated block should come back out of allocate() next.
	block, err := allocate(cache, sb)
	require.NoError(t, err)
	assert.EqualValues(t, 7, block)
}

func TestDeallocateRejectsAlreadyUnallocatedBlock(t *testing.T) {
	const blockSize = 96
	cache := newFreelistFakeCache(blockSize, 8)

	sb, err := formatSuperblock(cache, 4, 10, blockSize, 1)
	require.NoError(t, err)

	free := bnode.NewNode(make([]byte, blockSize))
	free.Init(bnode.Unallocated, 4, 10, blockSize)
	free.SetFreeListNext(0)
	require.NoError(t, free.Serialize(cache, 3))

	err = deallocate(cache, sb, 3)
	assert.ErrorIs(t, err, ErrInsane)
	assert.Empty(t, cache.deallocated)
}
