package allocator

// mergeAdjacent folds the physically adjacent free block at rightOff into
// the free block at leftOff. No two adjacent free blocks ever survive
// between operations, which guarantees that if both are free and
// physically adjacent, they are also adjacent in the address-ordered free
// list, so rightOff can simply be unlinked rather than searched for.
//
// leftOff keeps its free-list position; only its size grows to absorb
// rightOff's header, payload and footer.
func (a *Arena) mergeAdjacent(leftOff, rightOff int64) {
	right := readHeader(a.buf, rightOff)

	a.freelistUnlink(rightOff)

	left := readHeader(a.buf, leftOff)
	merged := left.size + footerSize + headerSize + right.size

	left.size = merged
	writeHeader(a.buf, leftOff, left)
	writeFooter(a.buf, footerOffset(leftOff, merged), footer{size: merged, free: true})
}
