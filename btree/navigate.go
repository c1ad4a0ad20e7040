package btree

import (
	"fmt"

	"github.com/7thcode/btreeindex/bnode"
)

// route picks the child pointer offset a key descends through in an
// interior/root node, per §4.D: the first separator Kᵢ with key < Kᵢ routes
// into Pᵢ; if none exists, route into P_numkeys. Equality on a separator
// therefore routes right, the standard B+ tree convention.
func route(n *bnode.Node, key bnode.Key) (uint32, error) {
	count := n.NumKeys()
	var i uint32
	for ; i < count; i++ {
		k, err := n.GetKey(i)
		if err != nil {
			return 0, err
		}
		if key.Compare(k) < 0 {
			return i, nil
		}
	}
	return count, nil
}

// findLeaf descends from nodeIndex to the leaf that would hold key, without
// recording any breadcrumb trail. Used by Lookup and Update, which never
// need to propagate a structural change back up.
func findLeaf(cache BlockCache, nodeIndex bnode.BlockIndex, key bnode.Key) (bnode.BlockIndex, error) {
	for {
		data, err := cache.Read(nodeIndex)
		if err != nil {
			return 0, fmt.Errorf("btree: findLeaf: read block %d: %w", nodeIndex, err)
		}
		n := bnode.NewNode(data)

		switch n.Type() {
		case bnode.LeafNode:
			return nodeIndex, nil
		case bnode.InteriorNode, bnode.RootNode:
			if n.NumKeys() == 0 {
				return 0, fmt.Errorf("btree: findLeaf: empty root has no routing: %w", ErrNonexistent)
			}
			offset, err := route(n, key)
			if err != nil {
				return 0, err
			}
			child, err := n.GetPointer(offset)
			if err != nil {
				return 0, err
			}
			nodeIndex = child
		default:
			return 0, fmt.Errorf("btree: findLeaf: block %d has type %s: %w", nodeIndex, n.Type(), ErrInsane)
		}
	}
}

// descendWithBreadcrumbs is findLeaf's Insert-shaped twin: it records the
// full root-to-leaf path, then returns it reversed so index 0 (the "head")
// is the leaf itself and the last element is the root. Leaf Insert and,
// transitively, Split consume the list head-first and pop as they
// propagate a structural change upward (§3.3, §4.F).
func descendWithBreadcrumbs(cache BlockCache, rootIndex bnode.BlockIndex, key bnode.Key) ([]bnode.BlockIndex, error) {
	var path []bnode.BlockIndex
	nodeIndex := rootIndex

	for {
		path = append(path, nodeIndex)

		data, err := cache.Read(nodeIndex)
		if err != nil {
			return nil, fmt.Errorf("btree: descend: read block %d: %w", nodeIndex, err)
		}
		n := bnode.NewNode(data)

		switch n.Type() {
		case bnode.LeafNode:
			reverse(path)
			return path, nil
		case bnode.InteriorNode, bnode.RootNode:
			if n.NumKeys() == 0 {
				return nil, fmt.Errorf("btree: descend: empty root has no routing: %w", ErrNonexistent)
			}
			offset, err := route(n, key)
			if err != nil {
				return nil, err
			}
			child, err := n.GetPointer(offset)
			if err != nil {
				return nil, err
			}
			nodeIndex = child
		default:
			return nil, fmt.Errorf("btree: descend: block %d has type %s: %w", nodeIndex, n.Type(), ErrInsane)
		}
	}
}

func reverse(s []bnode.BlockIndex) {
	for i, j := 0, len(s)-1; i < j; i, j = i+1, j-1 {
		s[i], s[j] = s[j], s[i]
	}
}
