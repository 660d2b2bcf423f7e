package codec

import (
	"fmt"
	"math/big"
	"time"

	"chnative/internal/binio"
	"chnative/internal/chtype"
	"chnative/internal/column"
)

// variantCodec: one discriminant byte per row (255 = null), then per
// variant a dense column of only that variant's rows in original order.
type variantCodec struct {
	base
	variants []Codec
}

func newVariantCodec(t chtype.Type) (Codec, error) {
	if len(t.Args) >= column.NullDiscriminant {
		return nil, fmt.Errorf("Variant: too many variants (%d)", len(t.Args))
	}
	c := &variantCodec{base: newBase(t)}
	for _, arg := range t.Args {
		inner, err := ForType(arg)
		if err != nil {
			return nil, err
		}
		c.variants = append(c.variants, inner)
	}
	return c, nil
}

func (c *variantCodec) EstimateSize(rows int) int {
	total := rows + 8
	for _, v := range c.variants {
		total += v.EstimateSize(rows)
	}
	return total
}

func (c *variantCodec) ReadPrefix(r *binio.Reader, st *DecodeState) error {
	mode, err := r.UVarInt()
	if err != nil {
		return err
	}
	if mode != 0 {
		return structural(c.typ.String(), r.Offset(), "unsupported variant discriminator mode %d", mode)
	}
	for _, v := range c.variants {
		if err := v.ReadPrefix(r, st); err != nil {
			return err
		}
	}
	return nil
}

func (c *variantCodec) WritePrefix(w *binio.Writer, col column.Column) error {
	w.UVarInt(0)
	vc, ok := col.(*column.Variant)
	for i, v := range c.variants {
		var inner column.Column
		if ok {
			inner = vc.Variants[i]
		}
		if err := v.WritePrefix(w, inner); err != nil {
			return err
		}
	}
	return nil
}

func (c *variantCodec) ReadKinds(r *binio.Reader, st *DecodeState) error {
	if err := readLeafKind(r, st, c.node); err != nil {
		return err
	}
	for _, v := range c.variants {
		if err := v.ReadKinds(r, st); err != nil {
			return err
		}
	}
	return nil
}

func (c *variantCodec) Decode(r *binio.Reader, rows int, st *DecodeState) (column.Column, error) {
	if col, handled, err := interceptSparse(c, c.node, r, rows, st); handled {
		return col, err
	}
	discr, err := binio.View[uint8](r, rows)
	if err != nil {
		return nil, err
	}
	counts := make([]int, len(c.variants))
	offsets := make([]int, rows)
	for i, d := range discr {
		if d == column.NullDiscriminant {
			continue
		}
		if int(d) >= len(c.variants) {
			return nil, structural(c.typ.String(), r.Offset(), "discriminant %d out of range at row %d", d, i)
		}
		offsets[i] = counts[d]
		counts[d]++
	}
	cols := make([]column.Column, len(c.variants))
	for i, v := range c.variants {
		col, err := v.Decode(r, counts[i], st)
		if err != nil {
			return nil, err
		}
		cols[i] = col
	}
	return column.NewVariant(c.typ, discr, offsets, cols), nil
}

func (c *variantCodec) Encode(w *binio.Writer, col column.Column) error {
	vc, ok := col.(*column.Variant)
	if !ok {
		return coercionErr(c.typ.String(), 0, col, "variant column expected")
	}
	binio.AppendFixed(w, vc.Discr)
	for i, v := range c.variants {
		if err := v.Encode(w, vc.Variants[i]); err != nil {
			return err
		}
	}
	return nil
}

// inferDiscriminant maps a bare value onto the first variant that can
// naturally hold it: strings to the first String variant, 64-bit
// integers to the first 64-bit integer variant, and so on. Inference is
// an encoder convenience; callers pass an explicit [discriminant, value]
// pair where ambiguity matters.
func (c *variantCodec) inferDiscriminant(v any) (int, error) {
	want := func(bases ...string) int {
		for i, codec := range c.variants {
			for _, b := range bases {
				if codec.Type().Base == b {
					return i
				}
			}
		}
		return -1
	}
	var d int
	switch v.(type) {
	case string:
		d = want("String", "FixedString", "LowCardinality", "Enum8", "Enum16")
	case bool:
		d = want("Bool")
	case int64, int, uint64, uint:
		d = want("Int64", "UInt64", "Int32", "UInt32", "Int128", "Int256")
	case int8, int16, int32, uint8, uint16, uint32:
		d = want("Int32", "Int64", "UInt32", "UInt64", "Int8", "Int16", "UInt8", "UInt16")
	case float64, float32:
		d = want("Float64", "Float32")
	case *big.Int:
		d = want("Int128", "UInt128", "Int256", "UInt256", "Int64", "UInt64")
	case time.Time:
		d = want("DateTime64", "DateTime", "Date", "Date32")
	default:
		return 0, fmt.Errorf("cannot infer variant for %T", v)
	}
	if d < 0 {
		return 0, fmt.Errorf("no variant accepts %T", v)
	}
	return d, nil
}

// rowVariant resolves one FromValues row to its discriminant and value.
func (c *variantCodec) rowVariant(v any) (int, any, error) {
	switch x := v.(type) {
	case column.VariantValue:
		if int(x.Discriminant) >= len(c.variants) {
			return 0, nil, fmt.Errorf("discriminant %d out of range", x.Discriminant)
		}
		return int(x.Discriminant), x.Value, nil
	case []any:
		if len(x) == 2 {
			if d, err := toInt64(x[0]); err == nil && d >= 0 && int(d) < len(c.variants) {
				return int(d), x[1], nil
			}
		}
	}
	d, err := c.inferDiscriminant(v)
	if err != nil {
		return 0, nil, err
	}
	return d, v, nil
}

func (c *variantCodec) FromValues(values []any) (column.Column, error) {
	discr := make([]uint8, len(values))
	offsets := make([]int, len(values))
	perVariant := make([][]any, len(c.variants))
	for i, v := range values {
		if v == nil {
			discr[i] = column.NullDiscriminant
			continue
		}
		d, val, err := c.rowVariant(v)
		if err != nil {
			return nil, coercionErr(c.typ.String(), i, v, err.Error())
		}
		discr[i] = uint8(d)
		offsets[i] = len(perVariant[d])
		perVariant[d] = append(perVariant[d], val)
	}
	cols := make([]column.Column, len(c.variants))
	for i, codec := range c.variants {
		col, err := codec.FromValues(perVariant[i])
		if err != nil {
			return nil, err
		}
		cols[i] = col
	}
	return column.NewVariant(c.typ, discr, offsets, cols), nil
}

func (c *variantCodec) ZeroValue() any { return nil }
