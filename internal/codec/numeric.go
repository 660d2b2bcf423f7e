package codec

import (
	"math"
	"unsafe"

	"chnative/internal/binio"
	"chnative/internal/chtype"
	"chnative/internal/column"
)

// fixedCodec is the shared implementation for every column stored as a
// contiguous buffer of fixed-width elements: numerics, Bool, dates and
// enum discriminants all instantiate it with their own conversion and
// coercion hooks.
type fixedCodec[T binio.Fixed] struct {
	base
	conv   column.Conv[T]
	coerce func(v any) (T, error)
	zero   any
}

func newFixed[T binio.Fixed](typ chtype.Type, conv column.Conv[T], coerce func(any) (T, error), zero any) *fixedCodec[T] {
	return &fixedCodec[T]{base: newBase(typ), conv: conv, coerce: coerce, zero: zero}
}

func (c *fixedCodec[T]) elemSize() int {
	var zero T
	return int(unsafe.Sizeof(zero))
}

func (c *fixedCodec[T]) EstimateSize(rows int) int {
	return rows * c.elemSize()
}

func (c *fixedCodec[T]) Decode(r *binio.Reader, rows int, st *DecodeState) (column.Column, error) {
	if col, handled, err := interceptSparse(c, c.node, r, rows, st); handled {
		return col, err
	}
	data, err := binio.View[T](r, rows)
	if err != nil {
		return nil, err
	}
	return column.NewData(c.typ, data, c.conv), nil
}

func (c *fixedCodec[T]) Encode(w *binio.Writer, col column.Column) error {
	if d, ok := col.(*column.Data[T]); ok {
		binio.AppendFixed(w, d.Data())
		return nil
	}
	for i := 0; i < col.Len(); i++ {
		v, err := c.coerce(col.Get(i, nil))
		if err != nil {
			return coercionErr(c.typ.String(), i, col.Get(i, nil), err.Error())
		}
		binio.AppendFixed(w, []T{v})
	}
	return nil
}

func (c *fixedCodec[T]) FromValues(values []any) (column.Column, error) {
	data := make([]T, len(values))
	for i, v := range values {
		x, err := c.coerce(v)
		if err != nil {
			return nil, coercionErr(c.typ.String(), i, v, err.Error())
		}
		data[i] = x
	}
	return column.NewData(c.typ, data, c.conv), nil
}

func (c *fixedCodec[T]) ZeroValue() any { return c.zero }

// signedCoerce builds a coercion for a signed integer of a narrower
// width, rejecting non-integers and out-of-range values.
func signedCoerce[T int8 | int16 | int32 | int64](min, max int64) func(any) (T, error) {
	return func(v any) (T, error) {
		n, err := toInt64(v)
		if err != nil {
			return 0, err
		}
		if err := checkInt(n, min, max); err != nil {
			return 0, err
		}
		return T(n), nil
	}
}

// unsignedCoerce is signedCoerce for unsigned widths; negative input is
// rejected before the range check.
func unsignedCoerce[T uint8 | uint16 | uint32 | uint64](max uint64) func(any) (T, error) {
	return func(v any) (T, error) {
		n, err := toUint64(v)
		if err != nil {
			return 0, err
		}
		if err := checkUint(n, max); err != nil {
			return 0, err
		}
		return T(n), nil
	}
}

func newNumericCodec(t chtype.Type) Codec {
	switch t.Base {
	case "Int8":
		return newFixed[int8](t, nil, signedCoerce[int8](math.MinInt8, math.MaxInt8), int8(0))
	case "Int16":
		return newFixed[int16](t, nil, signedCoerce[int16](math.MinInt16, math.MaxInt16), int16(0))
	case "Int32":
		return newFixed[int32](t, nil, signedCoerce[int32](math.MinInt32, math.MaxInt32), int32(0))
	case "Int64":
		return newFixed[int64](t, column.Int64Conv, signedCoerce[int64](math.MinInt64, math.MaxInt64), int64(0))
	case "UInt8":
		return newFixed[uint8](t, nil, unsignedCoerce[uint8](math.MaxUint8), uint8(0))
	case "UInt16":
		return newFixed[uint16](t, nil, unsignedCoerce[uint16](math.MaxUint16), uint16(0))
	case "UInt32":
		return newFixed[uint32](t, nil, unsignedCoerce[uint32](math.MaxUint32), uint32(0))
	case "UInt64":
		return newFixed[uint64](t, column.UInt64Conv, unsignedCoerce[uint64](math.MaxUint64), uint64(0))
	case "Float32":
		return newFixed[float32](t, nil, func(v any) (float32, error) {
			f, err := toFloat64(v)
			return float32(f), err
		}, float32(0))
	case "Float64":
		return newFixed[float64](t, nil, toFloat64, float64(0))
	case "Bool":
		// One byte per row, non-zero is true; materialization returns the
		// 1/0 form downstream decoders expect.
		return newFixed[uint8](t, func(v uint8, _ *column.Opts) any {
			if v != 0 {
				return uint8(1)
			}
			return uint8(0)
		}, toBool, uint8(0))
	}
	return nil
}
