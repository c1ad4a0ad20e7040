package btree

import (
	"fmt"

	"github.com/7thcode/btreeindex/bnode"
)

// sanityCheck performs the graph-walk verification of §4.H: acyclic,
// bounded fan-out, valid node types reachable from the root.
func sanityCheck(cache BlockCache, sb *superblock) error {
	visited := make(map[bnode.BlockIndex]struct{})
	return sanityWalk(cache, visited, sb.rootNode())
}

func sanityWalk(cache BlockCache, visited map[bnode.BlockIndex]struct{}, idx bnode.BlockIndex) error {
	if _, seen := visited[idx]; seen {
		return fmt.Errorf("btree: sanity: block %d visited twice (cycle): %w", idx, ErrInsane)
	}
	visited[idx] = struct{}{}

	data, err := cache.Read(idx)
	if err != nil {
		return fmt.Errorf("btree: sanity: read block %d: %w", idx, err)
	}
	n := bnode.NewNode(data)

	switch n.Type() {
	case bnode.RootNode, bnode.InteriorNode:
		if n.NumKeys() == 0 {
			// Only a brand-new, still-childless root reaches this with no
			// separators at all; it has nothing to descend into.
			return nil
		}
		if n.NumKeys() >= n.SlotsAsInterior() {
			return fmt.Errorf("btree: sanity: block %d numkeys %d at or over capacity %d: %w", idx, n.NumKeys(), n.SlotsAsInterior(), ErrInsane)
		}
		for i := uint32(0); i <= n.NumKeys(); i++ {
			child, err := n.GetPointer(i)
			if err != nil {
				return err
			}
			if err := sanityWalk(cache, visited, child); err != nil {
				return err
			}
		}
	case bnode.LeafNode:
		if n.NumKeys() >= n.SlotsAsLeaf() {
			return fmt.Errorf("btree: sanity: block %d numkeys %d at or over capacity %d: %w", idx, n.NumKeys(), n.SlotsAsLeaf(), ErrInsane)
		}
	default:
		return fmt.Errorf("btree: sanity: block %d reached with type %s: %w", idx, n.Type(), ErrInsane)
	}
	return nil
}
