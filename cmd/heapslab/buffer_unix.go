//go:build linux || darwin
// +build linux darwin

package main

import "golang.org/x/sys/unix"

// newMappedBuffer obtains an anonymous, zero-filled mapping of n bytes via
// mmap and hands it back as an ordinary []byte slice — no different, from
// allocator.New's point of view, than a slice backed by make. cleanup must
// be called exactly once, after the arena built on top of the buffer is no
// longer in use.
func newMappedBuffer(n int) (buf []byte, cleanup func() error, err error) {
	buf, err = unix.Mmap(-1, 0, n, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_ANON|unix.MAP_PRIVATE)
	if err != nil {
		return nil, nil, err
	}

	cleanup = func() error {
		return unix.Munmap(buf)
	}

	return buf, cleanup, nil
}

const mmapSupported = true
