package allocator

// freelistInsert links the already-free block at off into the
// address-ordered free list rooted at a.head: an empty list becomes a
// singleton, an address below the current head becomes the new head,
// otherwise the list is walked until a node whose address exceeds off is
// found (or the tail is reached) and off is spliced in before it.
//
// The caller must have already written off's header with the correct size
// and free=true; freelistInsert only ever touches prev/next fields.
func (a *Arena) freelistInsert(off int64) {
	h := readHeader(a.buf, off)

	if a.head == absent {
		h.prev, h.next = absent, absent
		writeHeader(a.buf, off, h)
		a.head = off

		return
	}

	if off < a.head {
		h.prev, h.next = absent, a.head
		writeHeader(a.buf, off, h)

		headH := readHeader(a.buf, a.head)
		headH.prev = off
		writeHeader(a.buf, a.head, headH)

		a.head = off

		return
	}

	cur := a.head
	for {
		curH := readHeader(a.buf, cur)

		if curH.next == absent || curH.next > off {
			next := curH.next

			h.prev, h.next = cur, next
			writeHeader(a.buf, off, h)

			curH.next = off
			writeHeader(a.buf, cur, curH)

			if next != absent {
				nextH := readHeader(a.buf, next)
				nextH.prev = off
				writeHeader(a.buf, next, nextH)
			}

			return
		}

		cur = curH.next
	}
}

// freelistUnlink splices the block at off out of the free list, promoting
// its successor to head if off was the head. It patches only the
// neighboring nodes' prev/next fields and a.head; off's own header is left
// untouched, since callers disagree on what should happen to it next
// (reserve clears its tags, mergeAdjacent discards it entirely).
func (a *Arena) freelistUnlink(off int64) {
	h := readHeader(a.buf, off)
	prev, next := h.prev, h.next

	if prev == absent {
		a.head = next
	} else {
		prevH := readHeader(a.buf, prev)
		prevH.next = next
		writeHeader(a.buf, prev, prevH)
	}

	if next != absent {
		nextH := readHeader(a.buf, next)
		nextH.prev = prev
		writeHeader(a.buf, next, nextH)
	}
}

// reserve removes the free block at off from the free list and clears its
// free bit on both header and footer, turning it into an in-use block with
// no list membership. Used by the allocate path once a candidate block has
// been chosen (and possibly split).
func (a *Arena) reserve(off int64) {
	a.freelistUnlink(off)

	h := readHeader(a.buf, off)
	sz := h.size

	h.free = false
	h.prev = absent
	h.next = absent
	writeHeader(a.buf, off, h)

	writeFooter(a.buf, footerOffset(off, sz), footer{size: sz, free: false})
}
