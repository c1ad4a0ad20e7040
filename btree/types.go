package btree

import "github.com/7thcode/btreeindex/bnode"

// Key, Value, and BlockIndex are re-exported under btree so callers never
// need to import bnode themselves just to call Index methods.
type (
	Key        = bnode.Key
	Value      = bnode.Value
	BlockIndex = bnode.BlockIndex
)

// DisplayMode selects one of the three visual renderings Display supports
// (§6.1).
type DisplayMode int

const (
	// ModeDepth is a depth-first, indented listing of every node.
	ModeDepth DisplayMode = iota
	// ModeDepthDOT renders the tree as a Graphviz DOT graph.
	ModeDepthDOT
	// ModeSortedKeyVal dumps every (key, value) pair in ascending key order.
	ModeSortedKeyVal
)
