// Command heapslab is a small interactive driver for the allocator.
// package. It carves a buffer (plain heap memory or, on Linux/darwin, an.
// mmap'd anonymous mapping) and reads a line-oriented mini-language from.
// stdin to allocate, free, and reallocate blocks within it.
//
// Commands (one per line):
//
//	a <size>          allocate, prints the new handle id
//	f <id>            free the block behind handle id
//	r <id> <size>     reallocate the block behind handle id
//	s                 print current AllocatorStats
//	v                 run Validate and report the result
//	q                 quit
package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"unsafe"

	"github.com/orizon-lang/blockalloc/internal/allocator"
)

func main() {
	var (
		size        int
		useMmap     bool
		debugChecks bool
	)

	flag.IntVar(&size, "size", 1<<20, "size in bytes of the backing buffer")
	flag.BoolVar(&useMmap, "mmap", false, "back the arena with an mmap'd anonymous mapping instead of make([]byte, n)")
	flag.BoolVar(&debugChecks, "debug", false, "enable allocator.WithDebugChecks")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [OPTIONS]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Reads allocate/free/reallocate commands from stdin.\n\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	buf, cleanup, err := acquireBuffer(size, useMmap)
	if err != nil {
		fmt.Fprintf(os.Stderr, "heapslab: %v\n", err)
		os.Exit(1)
	}
	if cleanup != nil {
		defer func() {
			if err := cleanup(); err != nil {
				fmt.Fprintf(os.Stderr, "heapslab: cleanup: %v\n", err)
			}
		}()
	}

	var opts []allocator.Option
	if debugChecks {
		opts = append(opts, allocator.WithDebugChecks(true))
	}

	arena, err := allocator.New(buf, opts...)
	if err != nil {
		fmt.Fprintf(os.Stderr, "heapslab: %v\n", err)
		os.Exit(1)
	}

	run(arena, os.Stdin, os.Stdout)
}

// acquireBuffer picks the buffer source: an mmap'd mapping when -mmap was
// requested (and supported on this platform), otherwise a plain slice.
func acquireBuffer(size int, useMmap bool) ([]byte, func() error, error) {
	if !useMmap {
		return make([]byte, size), nil, nil
	}

	if !mmapSupported {
		return make([]byte, size), nil, nil
	}

	return newMappedBuffer(size)
}

// session tracks the handle ids this command's mini-language hands back to
// the user in place of raw pointers, since typing real addresses at a
// terminal isn't practical.
type session struct {
	arena   *allocator.Arena
	handles map[int]unsafe.Pointer
	nextID  int
}

func run(arena *allocator.Arena, in *os.File, out *os.File) {
	s := &session{arena: arena, handles: make(map[int]unsafe.Pointer)}

	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		fields := strings.Fields(line)

		switch fields[0] {
		case "a":
			s.allocate(out, fields)
		case "f":
			s.free(out, fields)
		case "r":
			s.reallocate(out, fields)
		case "s":
			s.stats(out)
		case "v":
			s.validate(out)
		case "q":
			return
		default:
			fmt.Fprintf(out, "unknown command %q\n", fields[0])
		}
	}
}

func (s *session) allocate(out *os.File, fields []string) {
	if len(fields) != 2 {
		fmt.Fprintln(out, "usage: a <size>")
		return
	}

	n, err := strconv.Atoi(fields[1])
	if err != nil {
		fmt.Fprintf(out, "bad size %q: %v\n", fields[1], err)
		return
	}

	p, err := s.arena.Allocate(uintptr(n))
	if err != nil {
		fmt.Fprintf(out, "allocate failed: %v\n", err)
		return
	}

	id := s.nextID
	s.nextID++
	s.handles[id] = p

	fmt.Fprintf(out, "h%d\n", id)
}

func (s *session) free(out *os.File, fields []string) {
	if len(fields) != 2 {
		fmt.Fprintln(out, "usage: f <id>")
		return
	}

	id, err := strconv.Atoi(fields[1])
	if err != nil {
		fmt.Fprintf(out, "bad id %q: %v\n", fields[1], err)
		return
	}

	p, ok := s.handles[id]
	if !ok {
		fmt.Fprintf(out, "no such handle h%d\n", id)
		return
	}

	if err := s.arena.Free(p); err != nil {
		fmt.Fprintf(out, "free failed: %v\n", err)
		return
	}

	delete(s.handles, id)
	fmt.Fprintf(out, "ok\n")
}

func (s *session) reallocate(out *os.File, fields []string) {
	if len(fields) != 3 {
		fmt.Fprintln(out, "usage: r <id> <size>")
		return
	}

	id, err := strconv.Atoi(fields[1])
	if err != nil {
		fmt.Fprintf(out, "bad id %q: %v\n", fields[1], err)
		return
	}

	n, err := strconv.Atoi(fields[2])
	if err != nil {
		fmt.Fprintf(out, "bad size %q: %v\n", fields[2], err)
		return
	}

	p, ok := s.handles[id]
	if !ok {
		fmt.Fprintf(out, "no such handle h%d\n", id)
		return
	}

	newP, err := s.arena.Reallocate(p, uintptr(n))
	if err != nil {
		fmt.Fprintf(out, "reallocate failed: %v\n", err)
		return
	}

	if newP == nil {
		delete(s.handles, id)
		fmt.Fprintf(out, "ok (freed)\n")
		return
	}

	s.handles[id] = newP
	fmt.Fprintf(out, "h%d\n", id)
}

func (s *session) stats(out *os.File) {
	st := s.arena.Stats()
	fmt.Fprintf(out, "in_use=%d free=%d allocs=%d frees=%d free_blocks=%d largest_free=%d\n",
		st.BytesInUse, st.FreeBytes, st.AllocationCount, st.FreeCount, st.FreeBlockCount, st.LargestFreeBlock)
}

func (s *session) validate(out *os.File) {
	if err := s.arena.Validate(); err != nil {
		fmt.Fprintf(out, "invalid: %v\n", err)
		return
	}

	fmt.Fprintln(out, "ok")
}
