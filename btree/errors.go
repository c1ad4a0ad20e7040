package btree

import "errors"

// Sentinel errors, one per error kind in the design (§7). Every non-OK
// result from a block read, block write, or recursive call is returned
// unchanged to the caller — the tree never retries and never rolls back
// partway through an operation.
var (
	// ErrNonexistent is returned by Lookup/Update when the key is absent,
	// or when the navigator's descent reaches an empty node with nothing
	// to route into.
	ErrNonexistent = errors.New("btree: key does not exist")

	// ErrConflict is returned by Insert when the key is already present,
	// either at a leaf or as an interior separator.
	ErrConflict = errors.New("btree: key already exists")

	// ErrNoSpace is returned by the free-list allocator when the free
	// list is empty.
	ErrNoSpace = errors.New("btree: free list exhausted")

	// ErrBadNodeType is returned when a Leaf or Interior/Root node was
	// expected but a different tag was found.
	ErrBadNodeType = errors.New("btree: unexpected node type")

	// ErrInsane is returned on any invariant violation: an unknown node
	// type, a cycle in the block graph, an over-capacity node, empty
	// breadcrumbs where a split expects an ancestor, and so on.
	ErrInsane = errors.New("btree: invariant violation")

	// ErrUnimplemented is returned by Delete, which is reserved.
	ErrUnimplemented = errors.New("btree: operation not implemented")
)
