package bnode

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// ErrOutOfBounds is returned when a slot accessor is handed an offset that
// falls outside the node's current numkeys (or numkeys+1 for the last
// interior pointer). Callers in package btree return it unchanged; it is
// never expected in normal operation (§7).
var ErrOutOfBounds = errors.New("bnode: slot offset out of bounds")

// ErrWrongShape is returned when a key/value/pointer accessor is used
// against a node whose type does not support that slot shape (e.g.
// GetValue on an interior node).
var ErrWrongShape = errors.New("bnode: accessor does not apply to this node type")

// BlockCache is the subset of blockcache.Cache the codec needs to
// Serialize/Deserialize a node. Declared here (rather than imported) so
// bnode has no dependency on the blockcache package.
type BlockCache interface {
	BlockSize() uint32
	Read(block BlockIndex) ([]byte, error)
	Write(block BlockIndex, data []byte) error
}

// Node wraps one block's raw bytes and provides the header + slot
// arithmetic described in §4.B / §6.3. The same wrapper serves every node
// type; which slot layout applies (leaf key/value pairs vs. interior
// pointer/key runs) is decided at each accessor by Type(), mirroring how a
// single node class in the original design dispatched on its own nodetype
// field rather than being split into leaf/interior Go types.
type Node struct {
	data []byte
}

// NewNode wraps an existing (already-populated) block buffer.
func NewNode(data []byte) *Node {
	return &Node{data: data}
}

// Init formats data as a fresh node of the given type: header written,
// payload zeroed. keySize/valueSize/blockSize are echoed into the header
// per §6.3 (every node carries them, not just the superblock).
func (n *Node) Init(t NodeType, keySize, valueSize, blockSize uint32) {
	setType(n.data, t)
	setKeySize(n.data, keySize)
	setValueSize(n.data, valueSize)
	setBlockSize(n.data, blockSize)
	setNumKeys(n.data, 0)
	setRootNode(n.data, 0)
	setFreeListNext(n.data, 0)
	for i := HeaderSize; i < len(n.data); i++ {
		n.data[i] = 0
	}
}

// Data returns the underlying raw block buffer.
func (n *Node) Data() []byte { return n.data }

func (n *Node) Type() NodeType          { return getType(n.data) }
func (n *Node) SetType(t NodeType)      { setType(n.data, t) }
func (n *Node) KeySize() uint32         { return getKeySize(n.data) }
func (n *Node) ValueSize() uint32       { return getValueSize(n.data) }
func (n *Node) BlockSize() uint32       { return getBlockSize(n.data) }
func (n *Node) NumKeys() uint32         { return getNumKeys(n.data) }
func (n *Node) SetNumKeys(v uint32)     { setNumKeys(n.data, v) }
func (n *Node) RootNode() BlockIndex    { return BlockIndex(getRootNode(n.data)) }
func (n *Node) SetRootNode(v BlockIndex) { setRootNode(n.data, uint64(v)) }
func (n *Node) FreeListNext() BlockIndex    { return BlockIndex(getFreeListNext(n.data)) }
func (n *Node) SetFreeListNext(v BlockIndex) { setFreeListNext(n.data, uint64(v)) }

// SlotsAsLeaf is this node's leaf capacity, derived from its own header.
func (n *Node) SlotsAsLeaf() uint32 {
	return SlotsAsLeaf(n.BlockSize(), n.KeySize(), n.ValueSize())
}

// SlotsAsInterior is this node's interior capacity, derived from its own header.
func (n *Node) SlotsAsInterior() uint32 {
	return SlotsAsInterior(n.BlockSize(), n.KeySize())
}

func (n *Node) leafKeyOffset(i uint32) int {
	return HeaderSize + int(i)*int(n.KeySize()+n.ValueSize())
}

func (n *Node) leafValueOffset(i uint32) int {
	return n.leafKeyOffset(i) + int(n.KeySize())
}

func (n *Node) interiorPtrOffset(i uint32) int {
	return HeaderSize + int(i)*(int(n.KeySize())+PtrSize)
}

func (n *Node) interiorKeyOffset(i uint32) int {
	return n.interiorPtrOffset(i) + PtrSize
}

func (n *Node) isBranch() bool {
	return n.Type() == InteriorNode || n.Type() == RootNode
}

// GetKey returns the key at offset. Valid for Leaf (offset < numkeys) and
// Interior/Root (offset < numkeys) nodes.
func (n *Node) GetKey(offset uint32) (Key, error) {
	if offset >= n.NumKeys() {
		return nil, fmt.Errorf("GetKey offset %d: %w", offset, ErrOutOfBounds)
	}
	switch {
	case n.Type() == LeafNode:
		off := n.leafKeyOffset(offset)
		return Key(n.data[off : off+int(n.KeySize())]), nil
	case n.isBranch():
		off := n.interiorKeyOffset(offset)
		return Key(n.data[off : off+int(n.KeySize())]), nil
	default:
		return nil, fmt.Errorf("GetKey on %s: %w", n.Type(), ErrWrongShape)
	}
}

// SetKey writes the key at offset, subject to the same bound as GetKey.
func (n *Node) SetKey(offset uint32, k Key) error {
	if offset >= n.NumKeys() {
		return fmt.Errorf("SetKey offset %d: %w", offset, ErrOutOfBounds)
	}
	switch {
	case n.Type() == LeafNode:
		off := n.leafKeyOffset(offset)
		copy(n.data[off:off+int(n.KeySize())], k)
		return nil
	case n.isBranch():
		off := n.interiorKeyOffset(offset)
		copy(n.data[off:off+int(n.KeySize())], k)
		return nil
	default:
		return fmt.Errorf("SetKey on %s: %w", n.Type(), ErrWrongShape)
	}
}

// GetValue returns the value at offset. Only valid for Leaf nodes.
func (n *Node) GetValue(offset uint32) (Value, error) {
	if n.Type() != LeafNode {
		return nil, fmt.Errorf("GetValue on %s: %w", n.Type(), ErrWrongShape)
	}
	if offset >= n.NumKeys() {
		return nil, fmt.Errorf("GetValue offset %d: %w", offset, ErrOutOfBounds)
	}
	off := n.leafValueOffset(offset)
	return Value(n.data[off : off+int(n.ValueSize())]), nil
}

// SetValue writes the value at offset. Only valid for Leaf nodes.
func (n *Node) SetValue(offset uint32, v Value) error {
	if n.Type() != LeafNode {
		return fmt.Errorf("SetValue on %s: %w", n.Type(), ErrWrongShape)
	}
	if offset >= n.NumKeys() {
		return fmt.Errorf("SetValue offset %d: %w", offset, ErrOutOfBounds)
	}
	off := n.leafValueOffset(offset)
	copy(n.data[off:off+int(n.ValueSize())], v)
	return nil
}

// GetPointer returns the child pointer at offset. Valid for Interior/Root
// nodes, offset in [0, numkeys].
func (n *Node) GetPointer(offset uint32) (BlockIndex, error) {
	if !n.isBranch() {
		return 0, fmt.Errorf("GetPointer on %s: %w", n.Type(), ErrWrongShape)
	}
	if offset > n.NumKeys() {
		return 0, fmt.Errorf("GetPointer offset %d: %w", offset, ErrOutOfBounds)
	}
	off := n.interiorPtrOffset(offset)
	return BlockIndex(binary.LittleEndian.Uint64(n.data[off : off+PtrSize])), nil
}

// SetPointer writes the child pointer at offset, subject to the same bound
// as GetPointer.
func (n *Node) SetPointer(offset uint32, idx BlockIndex) error {
	if !n.isBranch() {
		return fmt.Errorf("SetPointer on %s: %w", n.Type(), ErrWrongShape)
	}
	if offset > n.NumKeys() {
		return fmt.Errorf("SetPointer offset %d: %w", offset, ErrOutOfBounds)
	}
	off := n.interiorPtrOffset(offset)
	binary.LittleEndian.PutUint64(n.data[off:off+PtrSize], uint64(idx))
	return nil
}

// Serialize writes this node's buffer to the given block of the cache.
func (n *Node) Serialize(cache BlockCache, block BlockIndex) error {
	return cache.Write(block, n.data)
}

// Deserialize replaces this node's buffer with the contents of the given
// block, read fresh from the cache.
func (n *Node) Deserialize(cache BlockCache, block BlockIndex) error {
	data, err := cache.Read(block)
	if err != nil {
		return err
	}
	n.data = data
	return nil
}

