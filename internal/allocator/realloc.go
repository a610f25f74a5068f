package allocator

// reallocGrow implements the in-place grow side of Reallocate: try the
// physical right neighbor, then the physical left neighbor, and return
// ErrOutOfMemory when neither has room, leaving the allocate-copy-free
// fallback to the caller. off/cur describe the block being grown, want is
// the new requested payload size (want > cur).
func (a *Arena) reallocGrow(off int64, cur uint64, want uint64) (int64, error) {
	nextOff := nextHeaderOffset(off, cur)
	if nextOff < a.n {
		nextH := readHeader(a.buf, nextOff)
		if nextH.free && cur+footerSize+headerSize+nextH.size >= want {
			return a.growIntoNext(off, cur, want, nextOff, nextH), nil
		}
	}

	if !isFirstBlock(off) {
		prevFoot := readFooter(a.buf, prevFooterOffset(off))
		if prevFoot.free {
			prevOff := prevHeaderOffset(off, prevFoot)
			prevH := readHeader(a.buf, prevOff)

			if prevH.size+footerSize+headerSize+cur >= want {
				return a.growIntoPrev(prevOff, prevH, off, cur, want), nil
			}
		}
	}

	return absent, ErrOutOfMemory
}

// growIntoNext extends the block at off rightward into its free neighbor
// at nextOff. When the neighbor's own payload exceeds the growth needed,
// it is shaved from its leading edge and kept as a smaller free block at a
// higher address (inheriting its former free-list links); otherwise it is
// absorbed whole, since there would be no room left to represent it as a
// block of its own, and the postcondition only requires the final size to
// be at least want, not exactly want.
func (a *Arena) growIntoNext(off int64, cur uint64, want uint64, nextOff int64, nextH header) int64 {
	delta := want - cur

	if nextH.size > delta {
		newNeighborSize := nextH.size - delta
		newNeighborOff := nextHeaderOffset(off, want)

		h := readHeader(a.buf, off)
		h.size = want
		writeHeader(a.buf, off, h)
		writeFooter(a.buf, footerOffset(off, want), footer{size: want, free: false})

		neighbor := header{size: newNeighborSize, free: true, prev: nextH.prev, next: nextH.next}
		writeHeader(a.buf, newNeighborOff, neighbor)
		writeFooter(a.buf, footerOffset(newNeighborOff, newNeighborSize), footer{size: newNeighborSize, free: true})

		if nextH.prev == absent {
			a.head = newNeighborOff
		} else {
			prevH := readHeader(a.buf, nextH.prev)
			prevH.next = newNeighborOff
			writeHeader(a.buf, nextH.prev, prevH)
		}

		if nextH.next != absent {
			nnH := readHeader(a.buf, nextH.next)
			nnH.prev = newNeighborOff
			writeHeader(a.buf, nextH.next, nnH)
		}

		return off
	}

	merged := cur + footerSize + headerSize + nextH.size

	a.freelistUnlink(nextOff)

	h := readHeader(a.buf, off)
	h.size = merged
	writeHeader(a.buf, off, h)
	writeFooter(a.buf, footerOffset(off, merged), footer{size: merged, free: false})

	return off
}

// growIntoPrev extends the block at off leftward into its free neighbor at
// prevOff, moving the live payload down to the new, lower header address.
// prevOff's own address never moves (there is nothing further left to
// shift it into), so when it survives as a shrunk free block no free-list
// relinking is needed at all — only its size and footer position change.
func (a *Arena) growIntoPrev(prevOff int64, prevH header, off int64, cur uint64, want uint64) int64 {
	delta := want - cur

	if prevH.size > delta {
		newPrevSize := prevH.size - delta

		shrunk := prevH
		shrunk.size = newPrevSize
		writeHeader(a.buf, prevOff, shrunk)
		writeFooter(a.buf, footerOffset(prevOff, newPrevSize), footer{size: newPrevSize, free: true})

		newOff := off - int64(delta)
		reserved := header{size: want, free: false, prev: absent, next: absent}
		writeHeader(a.buf, newOff, reserved)
		writeFooter(a.buf, footerOffset(newOff, want), footer{size: want, free: false})

		copy(a.buf[payloadOffset(newOff):payloadOffset(newOff)+int64(cur)],
			a.buf[payloadOffset(off):payloadOffset(off)+int64(cur)])

		return newOff
	}

	merged := prevH.size + footerSize + headerSize + cur

	a.freelistUnlink(prevOff)

	reserved := header{size: merged, free: false, prev: absent, next: absent}
	writeHeader(a.buf, prevOff, reserved)
	writeFooter(a.buf, footerOffset(prevOff, merged), footer{size: merged, free: false})

	copy(a.buf[payloadOffset(prevOff):payloadOffset(prevOff)+int64(cur)],
		a.buf[payloadOffset(off):payloadOffset(off)+int64(cur)])

	return prevOff
}
