package btree

import (
	"fmt"

	"github.com/7thcode/btreeindex/bnode"
)

// leafInsertOffset finds the slot a new key belongs at in an ordered leaf:
// the first existing key ≥ the new one. Equality is a conflict (§4.E).
func leafInsertOffset(n *bnode.Node, key bnode.Key) (uint32, error) {
	count := n.NumKeys()
	for i := uint32(0); i < count; i++ {
		existing, err := n.GetKey(i)
		if err != nil {
			return 0, err
		}
		cmp := key.Compare(existing)
		if cmp == 0 {
			return 0, fmt.Errorf("btree: leafInsert: %w", ErrConflict)
		}
		if cmp < 0 {
			return i, nil
		}
	}
	return count, nil
}

// leafInsert writes (key, value) into the leaf at breadcrumbs' head,
// shifting trailing entries right to keep the leaf ordered, then splits if
// the leaf has reached capacity (§4.E). The ≥-not-> capacity check is
// deliberate: SlotsAsLeaf is sized so the transient one-extra-slot state
// during the shift still fits the block payload.
func leafInsert(cache BlockCache, sb *superblock, breadcrumbs []bnode.BlockIndex, key bnode.Key, value bnode.Value) error {
	leafIndex := breadcrumbs[0]
	data, err := cache.Read(leafIndex)
	if err != nil {
		return fmt.Errorf("btree: leafInsert: read block %d: %w", leafIndex, err)
	}
	n := bnode.NewNode(data)
	if n.Type() != bnode.LeafNode {
		return fmt.Errorf("btree: leafInsert: block %d is %s, not LeafNode: %w", leafIndex, n.Type(), ErrBadNodeType)
	}

	offset, err := leafInsertOffset(n, key)
	if err != nil {
		return err
	}

	count := n.NumKeys()
	n.SetNumKeys(count + 1)
	for i := int(count) - 1; i >= int(offset); i-- {
		k, err := n.GetKey(uint32(i))
		if err != nil {
			return err
		}
		v, err := n.GetValue(uint32(i))
		if err != nil {
			return err
		}
		if err := n.SetKey(uint32(i)+1, k); err != nil {
			return err
		}
		if err := n.SetValue(uint32(i)+1, v); err != nil {
			return err
		}
	}
	if err := n.SetKey(offset, key); err != nil {
		return err
	}
	if err := n.SetValue(offset, value); err != nil {
		return err
	}

	if err := n.Serialize(cache, leafIndex); err != nil {
		return fmt.Errorf("btree: leafInsert: persist block %d: %w", leafIndex, err)
	}

	if n.NumKeys() >= n.SlotsAsLeaf() {
		return split(cache, sb, breadcrumbs)
	}
	return nil
}

// interiorInsertOffset finds the slot a new separator belongs at: the first
// existing separator strictly greater than it. Equality is a conflict
// (§4.G) — unlike leafInsertOffset's ≥, the new separator can legitimately
// equal neither neighbor (keys are unique across the whole tree).
func interiorInsertOffset(n *bnode.Node, separator bnode.Key) (uint32, error) {
	count := n.NumKeys()
	for i := uint32(0); i < count; i++ {
		existing, err := n.GetKey(i)
		if err != nil {
			return 0, err
		}
		cmp := separator.Compare(existing)
		if cmp == 0 {
			return 0, fmt.Errorf("btree: interiorPointerInsert: %w", ErrConflict)
		}
		if cmp < 0 {
			return i, nil
		}
	}
	return count, nil
}

// interiorPointerInsert inserts (separator, rightPointer) into the
// interior/root node at breadcrumbs' head, then splits if the node has
// reached capacity — in which case Split pops this same node off the
// breadcrumb head to find its own parent (§4.G).
func interiorPointerInsert(cache BlockCache, sb *superblock, breadcrumbs []bnode.BlockIndex, separator bnode.Key, rightPointer bnode.BlockIndex) error {
	nodeIndex := breadcrumbs[0]
	data, err := cache.Read(nodeIndex)
	if err != nil {
		return fmt.Errorf("btree: interiorPointerInsert: read block %d: %w", nodeIndex, err)
	}
	n := bnode.NewNode(data)
	if n.Type() != bnode.InteriorNode && n.Type() != bnode.RootNode {
		return fmt.Errorf("btree: interiorPointerInsert: block %d is %s: %w", nodeIndex, n.Type(), ErrBadNodeType)
	}

	offset, err := interiorInsertOffset(n, separator)
	if err != nil {
		return err
	}

	count := n.NumKeys()
	n.SetNumKeys(count + 1)
	for i := int(count) - 1; i >= int(offset); i-- {
		k, err := n.GetKey(uint32(i))
		if err != nil {
			return err
		}
		p, err := n.GetPointer(uint32(i) + 1)
		if err != nil {
			return err
		}
		if err := n.SetKey(uint32(i)+1, k); err != nil {
			return err
		}
		if err := n.SetPointer(uint32(i)+2, p); err != nil {
			return err
		}
	}
	if err := n.SetKey(offset, separator); err != nil {
		return err
	}
	if err := n.SetPointer(offset+1, rightPointer); err != nil {
		return err
	}

	if err := n.Serialize(cache, nodeIndex); err != nil {
		return fmt.Errorf("btree: interiorPointerInsert: persist block %d: %w", nodeIndex, err)
	}

	if n.NumKeys() >= n.SlotsAsInterior() {
		return split(cache, sb, breadcrumbs)
	}
	return nil
}
