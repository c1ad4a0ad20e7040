package btree

import "github.com/7thcode/btreeindex/bnode"

// BlockCache is the external collaborator the core depends on but does not
// implement (§4.A). *blockcache.Cache satisfies it; so does any test double
// with the same shape.
type BlockCache interface {
	BlockSize() uint32
	NumBlocks() uint64
	Read(block bnode.BlockIndex) ([]byte, error)
	Write(block bnode.BlockIndex, data []byte) error
	NotifyAllocate(block bnode.BlockIndex)
	NotifyDeallocate(block bnode.BlockIndex)
}
