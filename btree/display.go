package btree

import (
	"fmt"
	"io"

	"github.com/7thcode/btreeindex/bnode"
)

// display renders the tree rooted at sb.rootNode() to w in the requested
// mode (§6.1). Each mode has its own recursive walk (displayDepth,
// displayDOT, displaySorted); display only dispatches on mode.
func display(cache BlockCache, sb *superblock, w io.Writer, mode DisplayMode) error {
	switch mode {
	case ModeDepthDOT:
		if _, err := fmt.Fprintln(w, "digraph btree {"); err != nil {
			return err
		}
		if err := displayDOT(cache, w, sb.rootNode()); err != nil {
			return err
		}
		_, err := fmt.Fprintln(w, "}")
		return err
	case ModeSortedKeyVal:
		return displaySorted(cache, w, sb.rootNode())
	default:
		return displayDepth(cache, w, sb.rootNode(), 0)
	}
}

func displayDepth(cache BlockCache, w io.Writer, idx bnode.BlockIndex, depth int) error {
	data, err := cache.Read(idx)
	if err != nil {
		return fmt.Errorf("btree: display: read block %d: %w", idx, err)
	}
	n := bnode.NewNode(data)
	indent := ""
	for i := 0; i < depth; i++ {
		indent += "  "
	}

	switch n.Type() {
	case bnode.RootNode, bnode.InteriorNode:
		if _, err := fmt.Fprintf(w, "%sblock %d [%s] numkeys=%d\n", indent, idx, n.Type(), n.NumKeys()); err != nil {
			return err
		}
		if n.NumKeys() == 0 {
			return nil
		}
		for i := uint32(0); i <= n.NumKeys(); i++ {
			child, err := n.GetPointer(i)
			if err != nil {
				return err
			}
			if err := displayDepth(cache, w, child, depth+1); err != nil {
				return err
			}
		}
	case bnode.LeafNode:
		if _, err := fmt.Fprintf(w, "%sblock %d [Leaf] numkeys=%d\n", indent, idx, n.NumKeys()); err != nil {
			return err
		}
		for i := uint32(0); i < n.NumKeys(); i++ {
			key, err := n.GetKey(i)
			if err != nil {
				return err
			}
			val, err := n.GetValue(i)
			if err != nil {
				return err
			}
			if _, err := fmt.Fprintf(w, "%s  %x = %x\n", indent, []byte(key), []byte(val)); err != nil {
				return err
			}
		}
	default:
		_, err := fmt.Fprintf(w, "%sblock %d [%s]\n", indent, idx, n.Type())
		return err
	}
	return nil
}

func displayDOT(cache BlockCache, w io.Writer, idx bnode.BlockIndex) error {
	data, err := cache.Read(idx)
	if err != nil {
		return fmt.Errorf("btree: display: read block %d: %w", idx, err)
	}
	n := bnode.NewNode(data)

	switch n.Type() {
	case bnode.RootNode, bnode.InteriorNode:
		if _, err := fmt.Fprintf(w, "  n%d [label=\"%s\\n%d keys\"];\n", idx, n.Type(), n.NumKeys()); err != nil {
			return err
		}
		if n.NumKeys() == 0 {
			return nil
		}
		for i := uint32(0); i <= n.NumKeys(); i++ {
			child, err := n.GetPointer(i)
			if err != nil {
				return err
			}
			if _, err := fmt.Fprintf(w, "  n%d -> n%d;\n", idx, child); err != nil {
				return err
			}
			if err := displayDOT(cache, w, child); err != nil {
				return err
			}
		}
	case bnode.LeafNode:
		_, err := fmt.Fprintf(w, "  n%d [shape=box label=\"Leaf\\n%d keys\"];\n", idx, n.NumKeys())
		return err
	default:
		_, err := fmt.Fprintf(w, "  n%d [label=\"%s\"];\n", idx, n.Type())
		return err
	}
	return nil
}

func displaySorted(cache BlockCache, w io.Writer, idx bnode.BlockIndex) error {
	data, err := cache.Read(idx)
	if err != nil {
		return fmt.Errorf("btree: display: read block %d: %w", idx, err)
	}
	n := bnode.NewNode(data)

	switch n.Type() {
	case bnode.RootNode, bnode.InteriorNode:
		if n.NumKeys() == 0 {
			return nil
		}
		for i := uint32(0); i <= n.NumKeys(); i++ {
			child, err := n.GetPointer(i)
			if err != nil {
				return err
			}
			if err := displaySorted(cache, w, child); err != nil {
				return err
			}
		}
		return nil
	case bnode.LeafNode:
		for i := uint32(0); i < n.NumKeys(); i++ {
			key, err := n.GetKey(i)
			if err != nil {
				return err
			}
			val, err := n.GetValue(i)
			if err != nil {
				return err
			}
			if _, err := fmt.Fprintf(w, "%s = %s\n", string(key), string(val)); err != nil {
				return err
			}
		}
		return nil
	default:
		return fmt.Errorf("btree: display: block %d has type %s: %w", idx, n.Type(), ErrInsane)
	}
}
