package binio

import (
	"encoding/binary"
	"math"
	"math/big"
)

// Reader is a bounded cursor over a single byte slice. Reads that would
// pass the end fail with *ShortReadError without advancing the cursor,
// so a stream driver can retry the whole block once more bytes arrive.
type Reader struct {
	buf []byte
	off int
}

// NewReader returns a Reader over p. The Reader does not copy p; callers
// that recycle p must hand the Reader a stable slice.
func NewReader(p []byte) *Reader {
	return &Reader{buf: p}
}

// Offset returns the cursor position.
func (r *Reader) Offset() int {
	return r.off
}

// Remaining returns the number of unread bytes.
func (r *Reader) Remaining() int {
	return len(r.buf) - r.off
}

// require fails with ShortReadError unless n more bytes are available.
func (r *Reader) require(n int) error {
	if rem := len(r.buf) - r.off; rem < n {
		return &ShortReadError{Need: n, Have: rem, Offset: r.off}
	}
	return nil
}

// Byte reads one byte.
func (r *Reader) Byte() (byte, error) {
	if err := r.require(1); err != nil {
		return 0, err
	}
	b := r.buf[r.off]
	r.off++
	return b, nil
}

// UVarInt reads a LEB128 varint in the 64-bit range.
func (r *Reader) UVarInt() (uint64, error) {
	v, n := binary.Uvarint(r.buf[r.off:])
	if n <= 0 {
		return 0, &ShortReadError{Need: r.Remaining() + 1, Have: r.Remaining(), Offset: r.off}
	}
	r.off += n
	return v, nil
}

// Fixed16 reads a little-endian uint16.
func (r *Reader) Fixed16() (uint16, error) {
	if err := r.require(2); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint16(r.buf[r.off:])
	r.off += 2
	return v, nil
}

// Fixed32 reads a little-endian uint32.
func (r *Reader) Fixed32() (uint32, error) {
	if err := r.require(4); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint32(r.buf[r.off:])
	r.off += 4
	return v, nil
}

// Fixed64 reads a little-endian uint64.
func (r *Reader) Fixed64() (uint64, error) {
	if err := r.require(8); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint64(r.buf[r.off:])
	r.off += 8
	return v, nil
}

// Float32 reads a little-endian IEEE-754 single.
func (r *Reader) Float32() (float32, error) {
	v, err := r.Fixed32()
	if err != nil {
		return 0, err
	}
	return math.Float32frombits(v), nil
}

// Float64 reads a little-endian IEEE-754 double.
func (r *Reader) Float64() (float64, error) {
	v, err := r.Fixed64()
	if err != nil {
		return 0, err
	}
	return math.Float64frombits(v), nil
}

// Bytes returns the next n bytes as a subslice of the underlying buffer
// (no copy) and advances the cursor.
func (r *Reader) Bytes(n int) ([]byte, error) {
	if err := r.require(n); err != nil {
		return nil, err
	}
	p := r.buf[r.off : r.off+n : r.off+n]
	r.off += n
	return p, nil
}

// Str reads a varint length prefix followed by that many bytes and
// returns them as a string. The cursor does not move on failure, even
// when the prefix itself was readable.
func (r *Reader) Str() (string, error) {
	save := r.off
	n, err := r.UVarInt()
	if err != nil {
		return "", err
	}
	if rem := r.Remaining(); uint64(rem) < n {
		r.off = save
		return "", &ShortReadError{Need: int(n), Have: rem, Offset: r.off}
	}
	s := string(r.buf[r.off : r.off+int(n)])
	r.off += int(n)
	return s, nil
}

// BigInt reads byteLen bytes of little-endian two's complement. signed
// selects sign extension from the top bit of the top limb.
func (r *Reader) BigInt(byteLen int, signed bool) (*big.Int, error) {
	p, err := r.Bytes(byteLen)
	if err != nil {
		return nil, err
	}
	neg := signed && p[byteLen-1]&0x80 != 0
	be := make([]byte, byteLen)
	for i, b := range p {
		if neg {
			b = ^b
		}
		be[byteLen-1-i] = b
	}
	v := new(big.Int).SetBytes(be)
	if neg {
		v.Add(v, big.NewInt(1))
		v.Neg(v)
	}
	if v.Sign() == 0 {
		// Same representation as big.NewInt(0), so decoded zeros compare equal.
		return new(big.Int), nil
	}
	return v, nil
}
