// Package binio implements the byte-level primitives of the Native wire
// format: LEB128 varints, little-endian fixed-width integers up to 256
// bits, length-prefixed strings, a growable write buffer and a bounded
// read cursor with typed-slice views.
package binio

import (
	"encoding/binary"
	"math"
	"math/big"
	"math/bits"
)

// Writer is a growable byte buffer with little-endian append primitives.
// The zero value is ready to use. Reset keeps the allocated capacity so a
// driver can reuse one Writer across blocks.
type Writer struct {
	Buf []byte
}

// Reset truncates the buffer to zero length, retaining capacity.
func (w *Writer) Reset() {
	w.Buf = w.Buf[:0]
}

// Len returns the number of buffered bytes.
func (w *Writer) Len() int {
	return len(w.Buf)
}

// Bytes returns the buffered bytes. The slice is valid until the next write.
func (w *Writer) Bytes() []byte {
	return w.Buf
}

// Grow ensures capacity for at least n more bytes, growing geometrically.
func (w *Writer) Grow(n int) {
	if cap(w.Buf)-len(w.Buf) >= n {
		return
	}
	newCap := 2 * cap(w.Buf)
	if newCap < len(w.Buf)+n {
		newCap = len(w.Buf) + n
	}
	if newCap < 64 {
		newCap = 64
	}
	buf := make([]byte, len(w.Buf), newCap)
	copy(buf, w.Buf)
	w.Buf = buf
}

// Byte appends a single byte.
func (w *Writer) Byte(b byte) {
	w.Buf = append(w.Buf, b)
}

// Raw appends p verbatim.
func (w *Writer) Raw(p []byte) {
	w.Buf = append(w.Buf, p...)
}

// UVarInt appends v as a LEB128 varint (64-bit range, 1..10 bytes).
func (w *Writer) UVarInt(v uint64) {
	w.Buf = binary.AppendUvarint(w.Buf, v)
}

// Fixed8 appends one byte.
func (w *Writer) Fixed8(v uint8) {
	w.Buf = append(w.Buf, v)
}

// Fixed16 appends v little-endian.
func (w *Writer) Fixed16(v uint16) {
	w.Buf = binary.LittleEndian.AppendUint16(w.Buf, v)
}

// Fixed32 appends v little-endian.
func (w *Writer) Fixed32(v uint32) {
	w.Buf = binary.LittleEndian.AppendUint32(w.Buf, v)
}

// Fixed64 appends v little-endian.
func (w *Writer) Fixed64(v uint64) {
	w.Buf = binary.LittleEndian.AppendUint64(w.Buf, v)
}

// Float32 appends the IEEE-754 bits of v little-endian.
func (w *Writer) Float32(v float32) {
	w.Fixed32(math.Float32bits(v))
}

// Float64 appends the IEEE-754 bits of v little-endian.
func (w *Writer) Float64(v float64) {
	w.Fixed64(math.Float64bits(v))
}

// Fixed128 appends a 128-bit value as two little-endian 64-bit limbs,
// low limb first.
func (w *Writer) Fixed128(lo, hi uint64) {
	w.Fixed64(lo)
	w.Fixed64(hi)
}

// BigInt appends v as byteLen bytes of little-endian two's complement.
// byteLen must be 16 or 32. Values that do not fit are truncated to the
// low byteLen bytes, matching fixed-width integer semantics.
func (w *Writer) BigInt(v *big.Int, byteLen int) {
	w.Grow(byteLen)
	start := len(w.Buf)
	w.Buf = w.Buf[:start+byteLen]
	limbs := w.Buf[start : start+byteLen]
	for i := range limbs {
		limbs[i] = 0
	}
	neg := v.Sign() < 0
	abs := v
	if neg {
		// two's complement: encode |v|-1 and invert.
		abs = new(big.Int).Abs(v)
		abs.Sub(abs, big.NewInt(1))
	}
	b := abs.Bytes() // big-endian
	for i := 0; i < len(b) && i < byteLen; i++ {
		limbs[i] = b[len(b)-1-i]
	}
	if neg {
		for i := range limbs {
			limbs[i] = ^limbs[i]
		}
	}
}

// Str appends s as a varint length prefix followed by its bytes. The
// common case (length < 128) reserves a single prefix byte, writes the
// body in place, and only when the length needs more varint bytes shifts
// the body right by the exact difference before filling in the prefix.
func (w *Writer) Str(s string) {
	n := len(s)
	if n < 0x80 {
		w.Grow(1 + n)
		w.Buf = append(w.Buf, byte(n))
		w.Buf = append(w.Buf, s...)
		return
	}
	extra := varIntLen(uint64(n)) - 1
	w.Grow(1 + extra + n)
	start := len(w.Buf)
	w.Buf = append(w.Buf, 0)
	w.Buf = append(w.Buf, s...)
	w.Buf = w.Buf[:len(w.Buf)+extra]
	copy(w.Buf[start+1+extra:], w.Buf[start+1:start+1+n])
	end := binary.PutUvarint(w.Buf[start:], uint64(n))
	_ = end
}

// StrBytes is Str for a byte slice body.
func (w *Writer) StrBytes(p []byte) {
	w.UVarInt(uint64(len(p)))
	w.Raw(p)
}

// varIntLen returns the encoded size of v as a LEB128 varint.
func varIntLen(v uint64) int {
	if v == 0 {
		return 1
	}
	return (bits.Len64(v) + 6) / 7
}
