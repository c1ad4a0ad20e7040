package btree

import (
	"fmt"

	"github.com/7thcode/btreeindex/bnode"
)

// split dispatches to the leaf or interior/root shape based on the type of
// the block at breadcrumbs' head (§4.F). breadcrumbs[0] is always the node
// to split; Split pops it before recursing upward.
func split(cache BlockCache, sb *superblock, breadcrumbs []bnode.BlockIndex) error {
	if len(breadcrumbs) == 0 {
		return fmt.Errorf("btree: split: empty breadcrumb list: %w", ErrInsane)
	}
	nodeIndex := breadcrumbs[0]
	data, err := cache.Read(nodeIndex)
	if err != nil {
		return fmt.Errorf("btree: split: read block %d: %w", nodeIndex, err)
	}
	n := bnode.NewNode(data)

	switch n.Type() {
	case bnode.LeafNode:
		return splitLeaf(cache, sb, breadcrumbs, n)
	case bnode.InteriorNode, bnode.RootNode:
		return splitInterior(cache, sb, breadcrumbs, n)
	default:
		return fmt.Errorf("btree: split: block %d has type %s: %w", nodeIndex, n.Type(), ErrInsane)
	}
}

func zeroKey(size uint32) bnode.Key     { return make(bnode.Key, size) }
func zeroValue(size uint32) bnode.Value { return make(bnode.Value, size) }

// splitLeaf implements the leaf half of §4.F. A leaf is never the root (the
// root node is always created and retagged as RootNode/InteriorNode — see
// index.go's empty-tree special case), so breadcrumbs always has a parent
// at index 1 to hand the promoted separator to.
func splitLeaf(cache BlockCache, sb *superblock, breadcrumbs []bnode.BlockIndex, orig *bnode.Node) error {
	nodeIndex := breadcrumbs[0]
	n := orig.NumKeys()
	k2 := n / 2
	k1 := n - k2

	siblingIdx, err := allocate(cache, sb)
	if err != nil {
		return err
	}
	sibling := bnode.NewNode(make([]byte, sb.blockSize()))
	sibling.Init(bnode.LeafNode, sb.keySize(), sb.valueSize(), sb.blockSize())
	sibling.SetNumKeys(k2)

	for i := uint32(0); i < k2; i++ {
		key, err := orig.GetKey(k1 + i)
		if err != nil {
			return err
		}
		val, err := orig.GetValue(k1 + i)
		if err != nil {
			return err
		}
		if err := sibling.SetKey(i, key); err != nil {
			return err
		}
		if err := sibling.SetValue(i, val); err != nil {
			return err
		}
	}

	// Defensive zeroing of the vacated slots (§9) — not load-bearing, since
	// the authoritative numkeys bounds every read, but cheap and aids
	// debugging a corrupted block.
	for i := k1; i < n; i++ {
		if err := orig.SetKey(i, zeroKey(sb.keySize())); err != nil {
			return err
		}
		if err := orig.SetValue(i, zeroValue(sb.valueSize())); err != nil {
			return err
		}
	}
	orig.SetNumKeys(k1)

	if err := orig.Serialize(cache, nodeIndex); err != nil {
		return fmt.Errorf("btree: splitLeaf: persist original %d: %w", nodeIndex, err)
	}
	if err := sibling.Serialize(cache, siblingIdx); err != nil {
		return fmt.Errorf("btree: splitLeaf: persist sibling %d: %w", siblingIdx, err)
	}

	separatorKey, err := sibling.GetKey(0)
	if err != nil {
		return err
	}
	separator := separatorKey.Clone()

	parent := breadcrumbs[1:]
	if len(parent) == 0 {
		return fmt.Errorf("btree: splitLeaf: leaf %d has no parent in breadcrumbs: %w", nodeIndex, ErrInsane)
	}
	return interiorPointerInsert(cache, sb, parent, separator, siblingIdx)
}

// splitInterior implements the interior/root half of §4.F, including the
// "possible source bug" flagged in §9: the promoted separator is the
// sibling's slot-0 key after the copy loop — the original's old key at
// k₁+1 — not the dropped mid-key at k₁, which is zeroed and discarded. This
// is deliberately preserved, not corrected; see split_test.go for a test
// that pins it down explicitly.
func splitInterior(cache BlockCache, sb *superblock, breadcrumbs []bnode.BlockIndex, orig *bnode.Node) error {
	nodeIndex := breadcrumbs[0]
	wasRoot := orig.Type() == bnode.RootNode

	n := orig.NumKeys()
	k1 := n / 2
	k2 := n - k1 - 1

	siblingIdx, err := allocate(cache, sb)
	if err != nil {
		return err
	}
	sibling := bnode.NewNode(make([]byte, sb.blockSize()))
	sibling.Init(bnode.InteriorNode, sb.keySize(), sb.valueSize(), sb.blockSize())
	sibling.SetNumKeys(k2)

	for i := k1 + 1; i < n; i++ {
		key, err := orig.GetKey(i)
		if err != nil {
			return err
		}
		ptr, err := orig.GetPointer(i)
		if err != nil {
			return err
		}
		dst := i - k1 - 1
		if err := sibling.SetKey(dst, key); err != nil {
			return err
		}
		if err := sibling.SetPointer(dst, ptr); err != nil {
			return err
		}
		if err := orig.SetKey(i, zeroKey(sb.keySize())); err != nil {
			return err
		}
		if err := orig.SetPointer(i, 0); err != nil {
			return err
		}
	}

	lastPtr, err := orig.GetPointer(n)
	if err != nil {
		return err
	}
	if err := sibling.SetPointer(k2, lastPtr); err != nil {
		return err
	}
	if err := orig.SetPointer(n, 0); err != nil {
		return err
	}

	if err := orig.SetKey(k1, zeroKey(sb.keySize())); err != nil {
		return err
	}
	if wasRoot {
		orig.SetType(bnode.InteriorNode)
	}
	orig.SetNumKeys(k1)

	if err := orig.Serialize(cache, nodeIndex); err != nil {
		return fmt.Errorf("btree: splitInterior: persist original %d: %w", nodeIndex, err)
	}
	if err := sibling.Serialize(cache, siblingIdx); err != nil {
		return fmt.Errorf("btree: splitInterior: persist sibling %d: %w", siblingIdx, err)
	}

	separatorKey, err := sibling.GetKey(0)
	if err != nil {
		return err
	}
	separator := separatorKey.Clone()

	if wasRoot {
		return rootSplitEnding(cache, sb, nodeIndex, separator, siblingIdx)
	}

	parent := breadcrumbs[1:]
	if len(parent) == 0 {
		return fmt.Errorf("btree: splitInterior: non-root node %d has no parent in breadcrumbs: %w", nodeIndex, ErrInsane)
	}
	return interiorPointerInsert(cache, sb, parent, separator, siblingIdx)
}

// rootSplitEnding allocates a fresh root above the just-split (and
// retagged) original node and its new sibling, and repoints the superblock
// at it (§4.F root-split ending).
func rootSplitEnding(cache BlockCache, sb *superblock, leftIndex bnode.BlockIndex, separator bnode.Key, rightIndex bnode.BlockIndex) error {
	newRootIdx, err := allocate(cache, sb)
	if err != nil {
		return err
	}
	newRoot := bnode.NewNode(make([]byte, sb.blockSize()))
	newRoot.Init(bnode.RootNode, sb.keySize(), sb.valueSize(), sb.blockSize())
	newRoot.SetNumKeys(1)
	if err := newRoot.SetKey(0, separator); err != nil {
		return err
	}
	if err := newRoot.SetPointer(0, leftIndex); err != nil {
		return err
	}
	if err := newRoot.SetPointer(1, rightIndex); err != nil {
		return err
	}
	if err := newRoot.Serialize(cache, newRootIdx); err != nil {
		return fmt.Errorf("btree: rootSplitEnding: persist new root %d: %w", newRootIdx, err)
	}

	sb.setRootNode(newRootIdx)
	if err := sb.persist(cache); err != nil {
		return err
	}
	return nil
}
