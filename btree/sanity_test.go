package btree_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/7thcode/btreeindex/bnode"
	"github.com/7thcode/btreeindex/btree"
)

func TestSanityCheckDetectsCycle(t *testing.T) {
	idx, cache := attachFresh(t, 32)
	require.NoError(t, idx.Insert(key("0005"), value("AAAA")))
	require.NoError(t, idx.SanityCheck())

	root := idx.RootNode()
	data, err := cache.Read(root)
	require.NoError(t, err)
	n := bnode.NewNode(data)
	require.NoError(t, n.SetPointer(0, root)) // point a child at the root itself
	require.NoError(t, cache.Write(root, n.Data()))

	err = idx.SanityCheck()
	assert.ErrorIs(t, err, btree.ErrInsane)
}

func TestSanityCheckRejectsUnallocatedReachableFromRoot(t *testing.T) {
	idx, cache := attachFresh(t, 32)
	require.NoError(t, idx.Insert(key("0005"), value("AAAA")))
	require.NoError(t, idx.SanityCheck())

	root := idx.RootNode()
	data, err := cache.Read(root)
	require.NoError(t, err)
	n := bnode.NewNode(data)
	leftChild, err := n.GetPointer(0)
	require.NoError(t, err)

	leftData, err := cache.Read(leftChild)
	require.NoError(t, err)
	leftNode := bnode.NewNode(leftData)
	leftNode.SetType(bnode.Unallocated)
	require.NoError(t, cache.Write(leftChild, leftNode.Data()))

	err = idx.SanityCheck()
	assert.ErrorIs(t, err, btree.ErrInsane)
}
