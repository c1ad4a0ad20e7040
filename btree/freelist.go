package btree

import (
	"fmt"

	"github.com/7thcode/btreeindex/bnode"
)

// allocate pops the free-list head and returns its block index. The caller
// owns retagging the block and initializing its payload (§4.C) — allocate
// itself only performs the bookkeeping: read the popped block long enough
// to find its next pointer, rewrite the superblock head, and fire the
// allocate notification.
func allocate(cache BlockCache, sb *superblock) (bnode.BlockIndex, error) {
	head := sb.freeListHead()
	if head == 0 {
		return 0, fmt.Errorf("btree: allocate: %w", ErrNoSpace)
	}

	data, err := cache.Read(head)
	if err != nil {
		return 0, fmt.Errorf("btree: allocate: read free block %d: %w", head, err)
	}
	n := bnode.NewNode(data)
	if n.Type() != bnode.Unallocated {
		return 0, fmt.Errorf("btree: allocate: free-list head %d is %s, not Unallocated: %w", head, n.Type(), ErrInsane)
	}

	sb.setFreeListHead(n.FreeListNext())
	if err := sb.persist(cache); err != nil {
		return 0, err
	}
	cache.NotifyAllocate(head)
	return head, nil
}

// deallocate retags block as Unallocated, prepends it to the free list, and
// persists both the block and the superblock (§4.C — 2 writes per
// operation).
func deallocate(cache BlockCache, sb *superblock, block bnode.BlockIndex) error {
	data, err := cache.Read(block)
	if err != nil {
		return fmt.Errorf("btree: deallocate: read block %d: %w", block, err)
	}
	n := bnode.NewNode(data)
	if n.Type() == bnode.Unallocated {
		return fmt.Errorf("btree: deallocate: block %d already Unallocated: %w", block, ErrInsane)
	}

	n.Init(bnode.Unallocated, sb.keySize(), sb.valueSize(), sb.blockSize())
	n.SetFreeListNext(sb.freeListHead())
	if err := n.Serialize(cache, block); err != nil {
		return fmt.Errorf("btree: deallocate: persist block %d: %w", block, err)
	}

	sb.setFreeListHead(block)
	if err := sb.persist(cache); err != nil {
		return err
	}
	cache.NotifyDeallocate(block)
	return nil
}
