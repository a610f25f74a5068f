package allocator

import "encoding/binary"

// headerSize and footerSize are the fixed byte widths of every block's
// metadata records, constant for the life of an Arena. Fields are encoded
// as fixed-width integers rather than native tagged pointers, since Go
// offers no portable way to stash pointer-shaped bits inside a byte buffer.
const (
	headerSize = 32 // size(8) + free(8, padded) + prev(8) + next(8)
	footerSize = 16 // size(8) + free(8, padded)
)

// absent marks a prev/next free-list link with no target. Offsets are
// always >= 0 for a real block, so -1 is never a valid block offset.
const absent int64 = -1

// header is the fixed metadata record prefixing every block. It is read
// and written directly against the arena's backing buffer; there is no
// in-memory struct copy kept between calls.
type header struct {
	size uint64
	free bool
	prev int64
	next int64
}

// footer mirrors the header's size and free bit so that a block's left
// neighbor can be inspected in O(1) without a backward scan.
type footer struct {
	size uint64
	free bool
}

// readHeader decodes the header at byte offset off in buf.
func readHeader(buf []byte, off int64) header {
	b := buf[off : off+headerSize]

	return header{
		size: binary.LittleEndian.Uint64(b[0:8]),
		free: b[8] != 0,
		prev: int64(binary.LittleEndian.Uint64(b[16:24])),
		next: int64(binary.LittleEndian.Uint64(b[24:32])),
	}
}

// writeHeader encodes h at byte offset off in buf.
func writeHeader(buf []byte, off int64, h header) {
	b := buf[off : off+headerSize]

	binary.LittleEndian.PutUint64(b[0:8], h.size)

	if h.free {
		b[8] = 1
	} else {
		b[8] = 0
	}

	binary.LittleEndian.PutUint64(b[16:24], uint64(h.prev))
	binary.LittleEndian.PutUint64(b[24:32], uint64(h.next))
}

// readFooter decodes the footer at byte offset off in buf.
func readFooter(buf []byte, off int64) footer {
	b := buf[off : off+footerSize]

	return footer{
		size: binary.LittleEndian.Uint64(b[0:8]),
		free: b[8] != 0,
	}
}

// writeFooter encodes f at byte offset off in buf.
func writeFooter(buf []byte, off int64, f footer) {
	b := buf[off : off+footerSize]

	binary.LittleEndian.PutUint64(b[0:8], f.size)

	if f.free {
		b[8] = 1
	} else {
		b[8] = 0
	}
}

// footerOffset returns the byte offset of the footer belonging to the
// block whose header starts at headerOff with payload size sz.
func footerOffset(headerOff int64, sz uint64) int64 {
	return headerOff + headerSize + int64(sz)
}

// payloadOffset returns the byte offset of the payload belonging to the
// block whose header starts at headerOff.
func payloadOffset(headerOff int64) int64 {
	return headerOff + headerSize
}

// headerOffsetFromPayload returns the byte offset of the header owning
// the payload starting at payloadOff.
func headerOffsetFromPayload(payloadOff int64) int64 {
	return payloadOff - headerSize
}

// blockSpan returns the total byte length (header+payload+footer) of a
// block whose payload size is sz.
func blockSpan(sz uint64) int64 {
	return headerSize + int64(sz) + footerSize
}

// isFirstBlock reports whether the block headered at headerOff is the
// first block in the arena.
func isFirstBlock(headerOff int64) bool {
	return headerOff == 0
}

// isLastBlock reports whether the block whose footer ends at footerEnd
// is the last block in an arena of total size n.
func isLastBlock(footerEnd, n int64) bool {
	return footerEnd >= n
}

// prevFooterOffset returns the byte offset of the footer immediately
// preceding the block headered at headerOff. Only valid when headerOff is
// not the first block.
func prevFooterOffset(headerOff int64) int64 {
	return headerOff - footerSize
}

// prevHeaderOffset returns the byte offset of the header preceding the
// block headered at headerOff, given that block's own prior footer.
func prevHeaderOffset(headerOff int64, prevFoot footer) int64 {
	return headerOff - footerSize - int64(prevFoot.size) - headerSize
}

// nextHeaderOffset returns the byte offset of the header immediately
// following the block headered at headerOff with payload size sz.
func nextHeaderOffset(headerOff int64, sz uint64) int64 {
	return footerOffset(headerOff, sz) + footerSize
}
