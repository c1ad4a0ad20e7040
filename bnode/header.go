// Package bnode implements the on-block encoding of a B+ tree node: the
// fixed header every block carries (§6.3 of the design doc) plus the
// key/pointer/value slot arithmetic described in §4.B.
//
// The layout generalizes the teacher package's fixed-uint64 node codec
// (pkg/bptree2/bnode in the source tree this was adapted from) to the
// variable key/value widths recorded in the tree's own superblock.
package bnode

import "encoding/binary"

// NodeType tags the contents of a block.
type NodeType uint8

const (
	// Unallocated marks a block sitting on the free list.
	Unallocated NodeType = iota
	// Superblock is the singleton metadata block, always block 0.
	Superblock
	// RootNode is the (unique) current root of the tree.
	RootNode
	// InteriorNode is a non-leaf, non-root branch node.
	InteriorNode
	// LeafNode holds (key, value) pairs directly.
	LeafNode
)

func (t NodeType) String() string {
	switch t {
	case Unallocated:
		return "Unallocated"
	case Superblock:
		return "Superblock"
	case RootNode:
		return "RootNode"
	case InteriorNode:
		return "InteriorNode"
	case LeafNode:
		return "LeafNode"
	default:
		return "Unknown"
	}
}

// Header field byte offsets. The layout is deliberately wider than strictly
// packed so that uint64 fields land on 8-byte boundaries.
const (
	offType         = 0  // 1 byte
	offKeySize      = 4  // uint32
	offValueSize    = 8  // uint32
	offBlockSize    = 12 // uint32
	offNumKeys      = 16 // uint32
	offRootNode     = 24 // uint64
	offFreeListNext = 32 // uint64

	// HeaderSize is the number of bytes every block spends on its header,
	// regardless of node type.
	HeaderSize = 40

	// PtrSize is the on-disk width of a block index (a child pointer).
	PtrSize = 8
)

// PeekBlockSize reads just the block-size header field out of a raw byte
// slice without constructing a Node. blockcache.Open uses it to recover the
// block size of an existing device file before it knows anything else about
// the tree stored on it — the superblock is always block 0, so the file's
// own first HeaderSize bytes are readable before the cache's blockSize is
// known.
func PeekBlockSize(header []byte) uint32 { return getBlockSize(header) }

func getType(data []byte) NodeType        { return NodeType(data[offType]) }
func setType(data []byte, t NodeType)     { data[offType] = byte(t) }
func getKeySize(data []byte) uint32       { return binary.LittleEndian.Uint32(data[offKeySize:]) }
func setKeySize(data []byte, v uint32)    { binary.LittleEndian.PutUint32(data[offKeySize:], v) }
func getValueSize(data []byte) uint32     { return binary.LittleEndian.Uint32(data[offValueSize:]) }
func setValueSize(data []byte, v uint32)  { binary.LittleEndian.PutUint32(data[offValueSize:], v) }
func getBlockSize(data []byte) uint32     { return binary.LittleEndian.Uint32(data[offBlockSize:]) }
func setBlockSize(data []byte, v uint32)  { binary.LittleEndian.PutUint32(data[offBlockSize:], v) }
func getNumKeys(data []byte) uint32       { return binary.LittleEndian.Uint32(data[offNumKeys:]) }
func setNumKeys(data []byte, v uint32)    { binary.LittleEndian.PutUint32(data[offNumKeys:], v) }
func getRootNode(data []byte) uint64      { return binary.LittleEndian.Uint64(data[offRootNode:]) }
func setRootNode(data []byte, v uint64)   { binary.LittleEndian.PutUint64(data[offRootNode:], v) }
func getFreeListNext(data []byte) uint64  { return binary.LittleEndian.Uint64(data[offFreeListNext:]) }
func setFreeListNext(data []byte, v uint64) {
	binary.LittleEndian.PutUint64(data[offFreeListNext:], v)
}

// SlotsAsLeaf returns floor((blocksize-headersize)/(keysize+valuesize)), the
// maximum numkeys a leaf of these dimensions may persistently hold.
func SlotsAsLeaf(blockSize, keySize, valueSize uint32) uint32 {
	return (blockSize - HeaderSize) / (keySize + valueSize)
}

// SlotsAsInterior returns floor((blocksize-headersize-ptrsize)/(keysize+ptrsize)),
// the maximum numkeys an interior/root node of these dimensions may hold.
func SlotsAsInterior(blockSize, keySize uint32) uint32 {
	return (blockSize - HeaderSize - PtrSize) / (keySize + PtrSize)
}
