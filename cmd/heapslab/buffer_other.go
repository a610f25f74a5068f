//go:build !linux && !darwin
// +build !linux,!darwin

package main

import "errors"

// newMappedBuffer is unavailable off Linux/darwin; the caller falls back to
// a plain make([]byte, n) buffer instead.
func newMappedBuffer(n int) (buf []byte, cleanup func() error, err error) {
	return nil, nil, errors.New("heapslab: mmap-backed buffer not supported on this platform")
}

const mmapSupported = false
