package binio

import (
	"encoding/binary"
	"math"
	"unsafe"
)

// Fixed enumerates the element types a Reader can expose as a typed
// slice view.
type Fixed interface {
	int8 | uint8 | int16 | uint16 | int32 | uint32 | int64 | uint64 | float32 | float64
}

// View reads n elements of type T from r as a typed slice. When the
// cursor is aligned for T the returned slice aliases the underlying
// buffer (zero copy); otherwise the bytes are copied into a fresh
// allocation. Both paths assume a little-endian host, which holds for
// every platform the wire codec targets.
func View[T Fixed](r *Reader, n int) ([]T, error) {
	var zero T
	size := int(unsafe.Sizeof(zero))
	p, err := r.Bytes(n * size)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, nil
	}
	if uintptr(unsafe.Pointer(&p[0]))%unsafe.Alignof(zero) == 0 {
		return unsafe.Slice((*T)(unsafe.Pointer(&p[0])), n), nil
	}
	out := make([]T, n)
	copyFixed(out, p)
	return out, nil
}

// copyFixed decodes little-endian bytes into out element by element. It
// is the unaligned fallback of View.
func copyFixed[T Fixed](out []T, p []byte) {
	var zero T
	switch size := unsafe.Sizeof(zero); size {
	case 1:
		for i := range out {
			out[i] = T(p[i])
		}
	case 2:
		for i := range out {
			out[i] = T(binary.LittleEndian.Uint16(p[2*i:]))
		}
	case 4:
		if isFloat(zero) {
			f := any(out).([]float32)
			for i := range f {
				f[i] = math.Float32frombits(binary.LittleEndian.Uint32(p[4*i:]))
			}
			return
		}
		for i := range out {
			out[i] = T(binary.LittleEndian.Uint32(p[4*i:]))
		}
	case 8:
		if isFloat(zero) {
			f := any(out).([]float64)
			for i := range f {
				f[i] = math.Float64frombits(binary.LittleEndian.Uint64(p[8*i:]))
			}
			return
		}
		for i := range out {
			out[i] = T(binary.LittleEndian.Uint64(p[8*i:]))
		}
	}
}

func isFloat[T Fixed](zero T) bool {
	switch any(zero).(type) {
	case float32, float64:
		return true
	}
	return false
}

// AppendFixed writes the elements of data little-endian onto w. It is
// the encode counterpart of View.
func AppendFixed[T Fixed](w *Writer, data []T) {
	var zero T
	size := int(unsafe.Sizeof(zero))
	w.Grow(len(data) * size)
	for _, v := range data {
		switch size {
		case 1:
			w.Byte(byte(asUint64(v)))
		case 2:
			w.Fixed16(uint16(asUint64(v)))
		case 4:
			w.Fixed32(uint32(asUint64(v)))
		case 8:
			w.Fixed64(asUint64(v))
		}
	}
}

// asUint64 reinterprets v as its little-endian bit pattern widened to
// 64 bits. Floats keep their IEEE-754 bits so NaN payloads survive.
func asUint64[T Fixed](v T) uint64 {
	switch x := any(v).(type) {
	case int8:
		return uint64(uint8(x))
	case uint8:
		return uint64(x)
	case int16:
		return uint64(uint16(x))
	case uint16:
		return uint64(x)
	case int32:
		return uint64(uint32(x))
	case uint32:
		return uint64(x)
	case int64:
		return uint64(x)
	case uint64:
		return x
	case float32:
		return uint64(math.Float32bits(x))
	case float64:
		return math.Float64bits(x)
	}
	return 0
}
