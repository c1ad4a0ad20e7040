package blockcache_test

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/7thcode/btreeindex/blockcache"
)

func TestOpenCreatesZeroedBlocks(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")
	c, err := blockcache.Open(path, 4096, 6, true)
	require.NoError(t, err)
	defer c.Close()

	assert.EqualValues(t, 4096, c.BlockSize())
	assert.EqualValues(t, 6, c.NumBlocks())

	block, err := c.Read(3)
	require.NoError(t, err)
	require.Len(t, block, 4096)
	for _, b := range block {
		assert.Zero(t, b)
	}
}

func TestWriteThenReadReturnsFreshData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")
	c, err := blockcache.Open(path, 64, 4, true)
	require.NoError(t, err)
	defer c.Close()

	payload := make([]byte, 64)
	copy(payload, []byte("hello, block"))
	require.NoError(t, c.Write(2, payload))

	got, err := c.Read(2)
	require.NoError(t, err)
	assert.Equal(t, payload, got)
}

// TestWriteThenImmediateReadNeverObservesStaleBytes exercises the exact
// shape btree/insert.go relies on: a Write to a block immediately followed,
// in the same goroutine with no delay, by a Read of that same block (the
// write-then-split pattern). ristretto's Set is processed asynchronously
// through its internal buffer, so if Read ever trusted ristretto's Get
// directly instead of a synchronous hot map, this would be flaky under
// race detection; run it across many distinct blocks back-to-back with no
// sleep to make any such staleness window actually observable.
func TestWriteThenImmediateReadNeverObservesStaleBytes(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")
	c, err := blockcache.Open(path, 64, 64, true)
	require.NoError(t, err)
	defer c.Close()

	for i := blockcache.BlockIndex(0); i < 64; i++ {
		payload := make([]byte, 64)
		copy(payload, []byte{byte(i), byte(i + 1), byte(i + 2)})
		require.NoError(t, c.Write(i, payload))

		got, err := c.Read(i)
		require.NoError(t, err)
		assert.Equal(t, payload, got, "block %d: read immediately after write must see the new bytes", i)
	}
}

func TestReadOutOfRangeErrors(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")
	c, err := blockcache.Open(path, 64, 2, true)
	require.NoError(t, err)
	defer c.Close()

	_, err = c.Read(5)
	assert.Error(t, err)
}

func TestNotifyDeallocateEvictsHotEntry(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")
	c, err := blockcache.Open(path, 64, 2, true)
	require.NoError(t, err)
	defer c.Close()

	payload := make([]byte, 64)
	copy(payload, []byte("stale"))
	require.NoError(t, c.Write(1, payload))

	c.NotifyDeallocate(1)

	fresh := make([]byte, 64)
	require.NoError(t, c.Write(1, fresh))

	got, err := c.Read(1)
	require.NoError(t, err)
	assert.Equal(t, fresh, got)
}

func TestStatsCountAllocateAndDeallocate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")
	c, err := blockcache.Open(path, 64, 2, true)
	require.NoError(t, err)
	defer c.Close()

	c.NotifyAllocate(0)
	c.NotifyAllocate(1)
	c.NotifyDeallocate(0)

	stats := c.Stats()
	assert.EqualValues(t, 2, stats.Allocations)
	assert.EqualValues(t, 1, stats.Deallocations)
}

func TestGrowExtendsDevice(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")
	c, err := blockcache.Open(path, 64, 2, true)
	require.NoError(t, err)
	defer c.Close()

	require.NoError(t, c.Grow(3))
	assert.EqualValues(t, 5, c.NumBlocks())

	block, err := c.Read(4)
	require.NoError(t, err)
	assert.Len(t, block, 64)
}
