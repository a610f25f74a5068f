package allocator

// trySplit attempts to carve the block at off, with current payload size
// have, down to a leading block of payload want. It only acts when the
// trailing residual can itself be a well-formed block
// (want + H + F strictly less than have); otherwise the whole block is
// left untouched and false is returned, since a residual with no room for
// its own header and footer would either overlap the leading block or
// have to be reported as a payload size it cannot actually hold.
//
// sourceFree distinguishes two callers with different free-list needs:
//
//   - true (the allocate path): off is still free when trySplit runs. The
//     trailing residual is linked in directly after off (prev = off,
//     next = off's former next), since off keeps the lower address and the
//     residual simply sits one slot later in address order.
//
//   - false (the realloc-shrink path): off has already been reserved. The
//     trailing residual cannot reuse a list position that doesn't exist,
//     so it is freed through the ordinary insert-then-coalesce-right path
//     (it can never coalesce left, since the leading half stays reserved).
func (a *Arena) trySplit(off int64, have uint64, want uint64, sourceFree bool) bool {
	if !(want+headerSize+footerSize < have) {
		return false
	}

	residual := have - want - headerSize - footerSize
	trailingOff := nextHeaderOffset(off, want)

	lead := readHeader(a.buf, off)
	leadFree := lead.free
	leadNext := lead.next

	lead.size = want
	writeHeader(a.buf, off, lead)
	writeFooter(a.buf, footerOffset(off, want), footer{size: want, free: leadFree})

	if sourceFree {
		trail := header{size: residual, free: true, prev: off, next: leadNext}
		writeHeader(a.buf, trailingOff, trail)
		writeFooter(a.buf, footerOffset(trailingOff, residual), footer{size: residual, free: true})

		lead2 := readHeader(a.buf, off)
		lead2.next = trailingOff
		writeHeader(a.buf, off, lead2)

		if leadNext != absent {
			nextH := readHeader(a.buf, leadNext)
			nextH.prev = trailingOff
			writeHeader(a.buf, leadNext, nextH)
		}

		return true
	}

	trail := header{size: residual, free: true, prev: absent, next: absent}
	writeHeader(a.buf, trailingOff, trail)
	writeFooter(a.buf, footerOffset(trailingOff, residual), footer{size: residual, free: true})

	a.freelistInsert(trailingOff)

	next := nextHeaderOffset(trailingOff, residual)
	if next < a.n {
		nextH := readHeader(a.buf, next)
		if nextH.free {
			a.mergeAdjacent(trailingOff, next)
		}
	}

	return true
}

// findFirstFit returns the header offset of the first free block (in
// address order) whose payload is at least want bytes, or absent if none
// qualifies: first-fit over the address-ordered free list.
func (a *Arena) findFirstFit(want uint64) int64 {
	cur := a.head
	for cur != absent {
		h := readHeader(a.buf, cur)
		if h.size >= want {
			return cur
		}

		cur = h.next
	}

	return absent
}
