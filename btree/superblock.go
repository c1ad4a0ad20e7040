package btree

import (
	"fmt"

	"github.com/7thcode/btreeindex/bnode"
)

// superblockBlock is the fixed block index of the superblock (§3.1): it is
// always 0, never configurable.
const superblockBlock bnode.BlockIndex = 0

// superblock wraps the node at block 0. It reuses bnode.Node's generic
// header accessors directly — KeySize/ValueSize/BlockSize/RootNode and
// FreeListNext (which doubles as the free-list head field for this block,
// per §6.3) — rather than defining its own duplicate field set.
type superblock struct {
	node *bnode.Node
}

func formatSuperblock(cache BlockCache, keySize, valueSize, blockSize uint32, rootNode bnode.BlockIndex) (*superblock, error) {
	buf := make([]byte, blockSize)
	n := bnode.NewNode(buf)
	n.Init(bnode.Superblock, keySize, valueSize, blockSize)
	n.SetRootNode(rootNode)
	n.SetFreeListNext(0)
	if err := n.Serialize(cache, superblockBlock); err != nil {
		return nil, fmt.Errorf("btree: format superblock: %w", err)
	}
	return &superblock{node: n}, nil
}

func loadSuperblock(cache BlockCache) (*superblock, error) {
	n := bnode.NewNode(nil)
	if err := n.Deserialize(cache, superblockBlock); err != nil {
		return nil, fmt.Errorf("btree: load superblock: %w", err)
	}
	if n.Type() != bnode.Superblock {
		return nil, fmt.Errorf("btree: block 0 is %s, not Superblock: %w", n.Type(), ErrInsane)
	}
	return &superblock{node: n}, nil
}

func (s *superblock) persist(cache BlockCache) error {
	if err := s.node.Serialize(cache, superblockBlock); err != nil {
		return fmt.Errorf("btree: persist superblock: %w", err)
	}
	return nil
}

func (s *superblock) keySize() uint32   { return s.node.KeySize() }
func (s *superblock) valueSize() uint32 { return s.node.ValueSize() }
func (s *superblock) blockSize() uint32 { return s.node.BlockSize() }

func (s *superblock) rootNode() bnode.BlockIndex     { return s.node.RootNode() }
func (s *superblock) setRootNode(b bnode.BlockIndex) { s.node.SetRootNode(b) }

func (s *superblock) freeListHead() bnode.BlockIndex     { return s.node.FreeListNext() }
func (s *superblock) setFreeListHead(b bnode.BlockIndex) { s.node.SetFreeListNext(b) }
