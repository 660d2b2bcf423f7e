// Package stream implements the streaming side of the Native codec: a
// growable ring buffer that reassembles blocks from arbitrary byte
// chunking, a resumable decode driver, and a block-by-block encoder.
package stream

// Buffer is a growable byte arena with separate read and write offsets.
// It compacts (shifts unread bytes to the front) once more than half of
// the capacity has been consumed, and otherwise grows geometrically with
// a per-step ceiling, so total memory tracks the largest block rather
// than the stream length.
type Buffer struct {
	buf []byte
	r   int
	w   int
}

// maxGrowStep caps a single capacity-doubling step.
const maxGrowStep = 16 << 20

// Len returns the number of unread bytes.
func (b *Buffer) Len() int {
	return b.w - b.r
}

// Cap returns the current capacity.
func (b *Buffer) Cap() int {
	return len(b.buf)
}

// ReadView returns the unread bytes without copying. The view is
// invalidated by Append, Consume and compaction; callers that decode
// from it must copy a stable slice first.
func (b *Buffer) ReadView() []byte {
	return b.buf[b.r:b.w]
}

// Append adds p to the buffer, compacting or growing as needed.
func (b *Buffer) Append(p []byte) {
	need := b.w + len(p)
	if need > len(b.buf) {
		if b.r > 0 {
			b.compact()
			need = b.w + len(p)
		}
		if need > len(b.buf) {
			b.grow(need)
		}
	}
	copy(b.buf[b.w:], p)
	b.w += len(p)
}

// Consume marks n bytes as read and compacts once the read offset
// passes half the capacity.
func (b *Buffer) Consume(n int) {
	b.r += n
	if b.r == b.w {
		b.r, b.w = 0, 0
		return
	}
	if len(b.buf) > 0 && b.r > len(b.buf)/2 {
		b.compact()
	}
}

func (b *Buffer) compact() {
	copy(b.buf, b.buf[b.r:b.w])
	b.w -= b.r
	b.r = 0
}

func (b *Buffer) grow(need int) {
	newCap := 2 * len(b.buf)
	if newCap > len(b.buf)+maxGrowStep {
		newCap = len(b.buf) + maxGrowStep
	}
	if newCap < need {
		newCap = need
	}
	if newCap < 4096 {
		newCap = 4096
	}
	buf := make([]byte, newCap)
	copy(buf, b.buf[b.r:b.w])
	b.w -= b.r
	b.r = 0
	b.buf = buf
}

// Release drops the backing array.
func (b *Buffer) Release() {
	b.buf, b.r, b.w = nil, 0, 0
}
