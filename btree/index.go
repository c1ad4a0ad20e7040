package btree

import (
	"fmt"
	"io"
	"sync"

	"github.com/7thcode/btreeindex/bnode"
)

// Index is the core API surface (§6.1): a persistent, block-structured
// associative map backed by a BlockCache. One Index wraps exactly one
// cache and exactly one tree rooted at that cache's superblock.
//
// mu is a safety net, not a concurrency feature: the algorithm in this
// package is single-writer by design (§5), and taking it out doesn't make
// concurrent callers safe — it only prevents two goroutines from
// interleaving partial block writes against the same Index value.
type Index struct {
	mu    sync.Mutex
	cache BlockCache
	sb    *superblock
}

// Attach opens (or, if create is true, formats) the tree stored in cache.
// A freshly formatted tree's root is block 1, immediately above the fixed
// superblock at block 0; a root split later moves the root to a newly
// allocated block recorded in the superblock (§3.1's "initial_block_index
// must be 0" is an invariant on the superblock's own position, not a
// parameter here). When create is
// true, cache must already report at least 3 blocks: the superblock, the
// empty root, and at least one free block.
func Attach(cache BlockCache, create bool, keySize, valueSize uint32) (*Index, error) {
	blockSize := cache.BlockSize()
	numBlocks := cache.NumBlocks()

	if create {
		if numBlocks < 3 {
			return nil, fmt.Errorf("btree: attach: need at least 3 blocks to format a tree, have %d: %w", numBlocks, ErrInsane)
		}

		sb, err := formatSuperblock(cache, keySize, valueSize, blockSize, 1)
		if err != nil {
			return nil, err
		}

		root := bnode.NewNode(make([]byte, blockSize))
		root.Init(bnode.RootNode, keySize, valueSize, blockSize)
		root.SetNumKeys(0)
		if err := root.Serialize(cache, 1); err != nil {
			return nil, fmt.Errorf("btree: attach: format root: %w", err)
		}

		next := bnode.BlockIndex(0)
		for i := numBlocks - 1; i >= 2; i-- {
			blk := bnode.BlockIndex(i)
			freeNode := bnode.NewNode(make([]byte, blockSize))
			freeNode.Init(bnode.Unallocated, keySize, valueSize, blockSize)
			freeNode.SetFreeListNext(next)
			if err := freeNode.Serialize(cache, blk); err != nil {
				return nil, fmt.Errorf("btree: attach: format free block %d: %w", blk, err)
			}
			next = blk
		}
		sb.setFreeListHead(next)
		if err := sb.persist(cache); err != nil {
			return nil, err
		}
	}

	// Always re-read the superblock before returning, whether freshly
	// formatted or pre-existing (§6.1).
	sb, err := loadSuperblock(cache)
	if err != nil {
		return nil, err
	}
	return &Index{cache: cache, sb: sb}, nil
}

// Detach persists the superblock. There is no other in-memory state to
// flush — every other mutation already wrote through to the cache.
func (idx *Index) Detach() error {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	return idx.sb.persist(idx.cache)
}

// Lookup returns the value associated with key, or ErrNonexistent.
func (idx *Index) Lookup(key Key) (Value, error) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	leafIdx, err := findLeaf(idx.cache, idx.sb.rootNode(), key)
	if err != nil {
		return nil, err
	}
	data, err := idx.cache.Read(leafIdx)
	if err != nil {
		return nil, fmt.Errorf("btree: lookup: read leaf %d: %w", leafIdx, err)
	}
	n := bnode.NewNode(data)
	count := n.NumKeys()
	for i := uint32(0); i < count; i++ {
		k, err := n.GetKey(i)
		if err != nil {
			return nil, err
		}
		if k.Equal(key) {
			v, err := n.GetValue(i)
			if err != nil {
				return nil, err
			}
			return v.Clone(), nil
		}
	}
	return nil, fmt.Errorf("btree: lookup: %w", ErrNonexistent)
}

// Insert adds (key, value) to the tree. Returns ErrConflict if key is
// already present, ErrNoSpace if the free list is exhausted partway
// through a split.
func (idx *Index) Insert(key Key, value Value) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	rootIdx := idx.sb.rootNode()
	data, err := idx.cache.Read(rootIdx)
	if err != nil {
		return fmt.Errorf("btree: insert: read root %d: %w", rootIdx, err)
	}
	root := bnode.NewNode(data)

	// Empty-tree special case: a brand-new root has no leaf children at
	// all yet, so Navigator has nothing to descend into. The first insert
	// creates both leaves directly. (The source's equivalent branch has a
	// dead `break` after an unconditional return here; Go's switch doesn't
	// fall through, so there's no analogous artifact to preserve.)
	if root.Type() == bnode.RootNode && root.NumKeys() == 0 {
		return idx.insertIntoEmptyTree(rootIdx, root, key, value)
	}

	breadcrumbs, err := descendWithBreadcrumbs(idx.cache, rootIdx, key)
	if err != nil {
		return err
	}
	return leafInsert(idx.cache, idx.sb, breadcrumbs, key, value)
}

func (idx *Index) insertIntoEmptyTree(rootIdx bnode.BlockIndex, root *bnode.Node, key Key, value Value) error {
	leftIdx, err := allocate(idx.cache, idx.sb)
	if err != nil {
		return err
	}
	left := bnode.NewNode(make([]byte, idx.sb.blockSize()))
	left.Init(bnode.LeafNode, idx.sb.keySize(), idx.sb.valueSize(), idx.sb.blockSize())
	left.SetNumKeys(0)
	if err := left.Serialize(idx.cache, leftIdx); err != nil {
		return fmt.Errorf("btree: insert: format empty leaf %d: %w", leftIdx, err)
	}

	rightIdx, err := allocate(idx.cache, idx.sb)
	if err != nil {
		return err
	}
	right := bnode.NewNode(make([]byte, idx.sb.blockSize()))
	right.Init(bnode.LeafNode, idx.sb.keySize(), idx.sb.valueSize(), idx.sb.blockSize())
	right.SetNumKeys(1)
	if err := right.SetKey(0, key); err != nil {
		return err
	}
	if err := right.SetValue(0, value); err != nil {
		return err
	}
	if err := right.Serialize(idx.cache, rightIdx); err != nil {
		return fmt.Errorf("btree: insert: format leaf %d: %w", rightIdx, err)
	}

	root.SetNumKeys(1)
	if err := root.SetKey(0, key); err != nil {
		return err
	}
	if err := root.SetPointer(0, leftIdx); err != nil {
		return err
	}
	if err := root.SetPointer(1, rightIdx); err != nil {
		return err
	}
	if err := root.Serialize(idx.cache, rootIdx); err != nil {
		return fmt.Errorf("btree: insert: persist root %d: %w", rootIdx, err)
	}
	return nil
}

// Update overwrites the value of an existing key in place. It never
// creates a new entry: a missing key returns ErrNonexistent and leaves the
// tree unmodified.
func (idx *Index) Update(key Key, value Value) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	leafIdx, err := findLeaf(idx.cache, idx.sb.rootNode(), key)
	if err != nil {
		return err
	}
	data, err := idx.cache.Read(leafIdx)
	if err != nil {
		return fmt.Errorf("btree: update: read leaf %d: %w", leafIdx, err)
	}
	n := bnode.NewNode(data)
	count := n.NumKeys()
	for i := uint32(0); i < count; i++ {
		k, err := n.GetKey(i)
		if err != nil {
			return err
		}
		if k.Equal(key) {
			if err := n.SetValue(i, value); err != nil {
				return err
			}
			if err := n.Serialize(idx.cache, leafIdx); err != nil {
				return fmt.Errorf("btree: update: persist leaf %d: %w", leafIdx, err)
			}
			return nil
		}
	}
	return fmt.Errorf("btree: update: %w", ErrNonexistent)
}

// Delete is reserved (§1 Non-goals) and always returns ErrUnimplemented.
func (idx *Index) Delete(key Key) error {
	return fmt.Errorf("btree: delete: %w", ErrUnimplemented)
}

// SanityCheck walks the tree from the root verifying the structural
// invariants of §3.2.
func (idx *Index) SanityCheck() error {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	return sanityCheck(idx.cache, idx.sb)
}

// Display renders the tree to w in the requested mode.
func (idx *Index) Display(w io.Writer, mode DisplayMode) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	return display(idx.cache, idx.sb, w, mode)
}

// RootNode exposes the current root block index, mainly for tests.
func (idx *Index) RootNode() BlockIndex {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	return idx.sb.rootNode()
}

// KeySize, ValueSize, and BlockSize report the fixed dimensions recorded in
// the superblock at creation time.
func (idx *Index) KeySize() uint32   { return idx.sb.keySize() }
func (idx *Index) ValueSize() uint32 { return idx.sb.valueSize() }
func (idx *Index) BlockSize() uint32 { return idx.sb.blockSize() }
