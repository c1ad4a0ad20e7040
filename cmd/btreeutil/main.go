// Command btreeutil is a one-shot CLI for driving a disk-backed B+ tree
// index: format a fresh tree, insert/lookup/update keys, check its
// structural sanity, and render it in one of three display modes.
//
// Adapted from the teacher package's cmd/server, which exposed the same
// set of operations over HTTP/JSON; this is the same operation set shaped
// as subcommands instead of request handlers.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/dustin/go-humanize"

	"github.com/7thcode/btreeindex/blockcache"
	"github.com/7thcode/btreeindex/btree"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	cmd := os.Args[1]
	args := os.Args[2:]

	var err error
	switch cmd {
	case "create":
		err = runCreate(args)
	case "insert":
		err = runInsert(args)
	case "lookup":
		err = runLookup(args)
	case "update":
		err = runUpdate(args)
	case "sanity":
		err = runSanity(args)
	case "display":
		err = runDisplay(args)
	case "stat":
		err = runStat(args)
	default:
		usage()
		os.Exit(2)
	}

	if err != nil {
		fmt.Fprintln(os.Stderr, "btreeutil:", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `usage: btreeutil <command> [arguments]

commands:
  create   -db PATH [-blocksize N] [-blocks N] [-keysize N] [-valuesize N]
  insert   -db PATH KEY VALUE
  lookup   -db PATH KEY
  update   -db PATH KEY VALUE
  sanity   -db PATH
  display  -db PATH {depth|dot|sorted}
  stat     -db PATH`)
}

func runCreate(args []string) error {
	fs := flag.NewFlagSet("create", flag.ExitOnError)
	path := fs.String("db", "", "path to the index file")
	blockSize := fs.Uint("blocksize", 4096, "block size in bytes")
	numBlocks := fs.Uint64("blocks", 256, "total number of blocks in the device")
	keySize := fs.Uint("keysize", 16, "fixed key width in bytes")
	valueSize := fs.Uint("valuesize", 64, "fixed value width in bytes")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *path == "" {
		return fmt.Errorf("create: -db is required")
	}

	cache, err := blockcache.Open(*path, uint32(*blockSize), *numBlocks, true)
	if err != nil {
		return fmt.Errorf("create: %w", err)
	}
	defer cache.Close()

	idx, err := btree.Attach(cache, true, uint32(*keySize), uint32(*valueSize))
	if err != nil {
		return fmt.Errorf("create: %w", err)
	}
	return idx.Detach()
}

func openExisting(path string) (*blockcache.Cache, *btree.Index, error) {
	if path == "" {
		return nil, nil, fmt.Errorf("-db is required")
	}
	cache, err := blockcache.Open(path, 0, 0, false)
	if err != nil {
		return nil, nil, err
	}
	idx, err := btree.Attach(cache, false, 0, 0)
	if err != nil {
		cache.Close()
		return nil, nil, err
	}
	return cache, idx, nil
}

func runInsert(args []string) error {
	fs := flag.NewFlagSet("insert", flag.ExitOnError)
	path := fs.String("db", "", "path to the index file")
	if err := fs.Parse(args); err != nil {
		return err
	}
	rest := fs.Args()
	if len(rest) != 2 {
		return fmt.Errorf("insert: expected KEY VALUE")
	}

	cache, idx, err := openExisting(*path)
	if err != nil {
		return fmt.Errorf("insert: %w", err)
	}
	defer cache.Close()

	if err := idx.Insert(fixedWidth(rest[0], idx.KeySize()), fixedWidth(rest[1], idx.ValueSize())); err != nil {
		return fmt.Errorf("insert: %w", err)
	}
	return idx.Detach()
}

func runLookup(args []string) error {
	fs := flag.NewFlagSet("lookup", flag.ExitOnError)
	path := fs.String("db", "", "path to the index file")
	if err := fs.Parse(args); err != nil {
		return err
	}
	rest := fs.Args()
	if len(rest) != 1 {
		return fmt.Errorf("lookup: expected KEY")
	}

	cache, idx, err := openExisting(*path)
	if err != nil {
		return fmt.Errorf("lookup: %w", err)
	}
	defer cache.Close()

	value, err := idx.Lookup(fixedWidth(rest[0], idx.KeySize()))
	if err != nil {
		return fmt.Errorf("lookup: %w", err)
	}
	fmt.Printf("%s\n", trimmed(value))
	return nil
}

func runUpdate(args []string) error {
	fs := flag.NewFlagSet("update", flag.ExitOnError)
	path := fs.String("db", "", "path to the index file")
	if err := fs.Parse(args); err != nil {
		return err
	}
	rest := fs.Args()
	if len(rest) != 2 {
		return fmt.Errorf("update: expected KEY VALUE")
	}

	cache, idx, err := openExisting(*path)
	if err != nil {
		return fmt.Errorf("update: %w", err)
	}
	defer cache.Close()

	if err := idx.Update(fixedWidth(rest[0], idx.KeySize()), fixedWidth(rest[1], idx.ValueSize())); err != nil {
		return fmt.Errorf("update: %w", err)
	}
	return idx.Detach()
}

func runSanity(args []string) error {
	fs := flag.NewFlagSet("sanity", flag.ExitOnError)
	path := fs.String("db", "", "path to the index file")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cache, idx, err := openExisting(*path)
	if err != nil {
		return fmt.Errorf("sanity: %w", err)
	}
	defer cache.Close()

	if err := idx.SanityCheck(); err != nil {
		return fmt.Errorf("sanity: %w", err)
	}
	fmt.Println("OK")
	return nil
}

func runDisplay(args []string) error {
	fs := flag.NewFlagSet("display", flag.ExitOnError)
	path := fs.String("db", "", "path to the index file")
	if err := fs.Parse(args); err != nil {
		return err
	}
	rest := fs.Args()
	mode := btree.ModeDepth
	if len(rest) == 1 {
		switch rest[0] {
		case "depth":
			mode = btree.ModeDepth
		case "dot":
			mode = btree.ModeDepthDOT
		case "sorted":
			mode = btree.ModeSortedKeyVal
		default:
			return fmt.Errorf("display: unknown mode %q", rest[0])
		}
	}

	cache, idx, err := openExisting(*path)
	if err != nil {
		return fmt.Errorf("display: %w", err)
	}
	defer cache.Close()

	return idx.Display(os.Stdout, mode)
}

func runStat(args []string) error {
	fs := flag.NewFlagSet("stat", flag.ExitOnError)
	path := fs.String("db", "", "path to the index file")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cache, idx, err := openExisting(*path)
	if err != nil {
		return fmt.Errorf("stat: %w", err)
	}
	defer cache.Close()

	stats := cache.Stats()
	fmt.Printf("block size:   %s\n", humanize.Bytes(uint64(idx.BlockSize())))
	fmt.Printf("key size:     %d bytes\n", idx.KeySize())
	fmt.Printf("value size:   %d bytes\n", idx.ValueSize())
	fmt.Printf("total size:   %s\n", humanize.Bytes(uint64(idx.BlockSize())*cache.NumBlocks()))
	fmt.Printf("allocations:  %d\n", stats.Allocations)
	fmt.Printf("deallocations:%d\n", stats.Deallocations)
	fmt.Printf("hot hits:     %d\n", stats.HotHits)
	fmt.Printf("hot misses:   %d\n", stats.HotMisses)
	return nil
}

// fixedWidth pads or truncates s to exactly width bytes, matching the
// tree's fixed-width key/value convention (§1 Non-goals: no
// variable-length keys or values).
func fixedWidth(s string, width uint32) []byte {
	buf := make([]byte, width)
	copy(buf, s)
	return buf
}

func trimmed(b []byte) string {
	i := len(b)
	for i > 0 && b[i-1] == 0 {
		i--
	}
	return string(b[:i])
}
