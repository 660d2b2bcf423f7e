package codec

import (
	"math/big"

	"chnative/internal/binio"
	"chnative/internal/chtype"
	"chnative/internal/column"
)

// bigIntCodec handles Int128/UInt128/Int256/UInt256: two or four 64-bit
// little-endian limbs per value, two's complement, sign extension from
// the top limb's top bit for the signed variants.
type bigIntCodec struct {
	base
	byteLen int
	signed  bool
}

func newBigIntCodec(t chtype.Type) Codec {
	c := &bigIntCodec{base: newBase(t)}
	switch t.Base {
	case "Int128":
		c.byteLen, c.signed = 16, true
	case "UInt128":
		c.byteLen, c.signed = 16, false
	case "Int256":
		c.byteLen, c.signed = 32, true
	case "UInt256":
		c.byteLen, c.signed = 32, false
	}
	return c
}

func (c *bigIntCodec) EstimateSize(rows int) int {
	return rows * c.byteLen
}

func (c *bigIntCodec) Decode(r *binio.Reader, rows int, st *DecodeState) (column.Column, error) {
	if col, handled, err := interceptSparse(c, c.node, r, rows, st); handled {
		return col, err
	}
	vals := make([]*big.Int, rows)
	for i := range vals {
		v, err := r.BigInt(c.byteLen, c.signed)
		if err != nil {
			return nil, err
		}
		vals[i] = v
	}
	return column.NewBig(c.typ, vals), nil
}

func (c *bigIntCodec) Encode(w *binio.Writer, col column.Column) error {
	if b, ok := col.(*column.Big); ok {
		for _, v := range b.Values {
			w.BigInt(v, c.byteLen)
		}
		return nil
	}
	for i := 0; i < col.Len(); i++ {
		v, err := c.coerce(col.Get(i, nil))
		if err != nil {
			return coercionErr(c.typ.String(), i, col.Get(i, nil), err.Error())
		}
		w.BigInt(v, c.byteLen)
	}
	return nil
}

func (c *bigIntCodec) coerce(v any) (*big.Int, error) {
	n, err := toBigInt(v)
	if err != nil {
		return nil, err
	}
	if err := fitsBits(n, c.byteLen*8, c.signed); err != nil {
		return nil, err
	}
	return n, nil
}

func (c *bigIntCodec) FromValues(values []any) (column.Column, error) {
	vals := make([]*big.Int, len(values))
	for i, v := range values {
		n, err := c.coerce(v)
		if err != nil {
			return nil, coercionErr(c.typ.String(), i, v, err.Error())
		}
		vals[i] = n
	}
	return column.NewBig(c.typ, vals), nil
}

func (c *bigIntCodec) ZeroValue() any { return big.NewInt(0) }
