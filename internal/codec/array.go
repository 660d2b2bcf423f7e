package codec

import (
	"chnative/internal/binio"
	"chnative/internal/chtype"
	"chnative/internal/column"
)

// arrayCodec: n cumulative 64-bit element-count offsets, then the inner
// column of offsets[n-1] rows. Offsets must be non-decreasing.
type arrayCodec struct {
	base
	inner Codec
	// estElems is the calibrated per-row element count used by the block
	// size estimator.
	estElems int
}

func newArrayCodec(t chtype.Type) (Codec, error) {
	inner, err := ForType(t.Args[0].Unnamed())
	if err != nil {
		return nil, err
	}
	return &arrayCodec{base: newBase(t), inner: inner, estElems: 4}, nil
}

func (c *arrayCodec) EstimateSize(rows int) int {
	return rows*8 + c.inner.EstimateSize(rows*c.estElems)
}

func (c *arrayCodec) ReadPrefix(r *binio.Reader, st *DecodeState) error {
	return c.inner.ReadPrefix(r, st)
}

func (c *arrayCodec) WritePrefix(w *binio.Writer, col column.Column) error {
	if a, ok := col.(*column.Array); ok {
		return c.inner.WritePrefix(w, a.Inner)
	}
	return nil
}

func (c *arrayCodec) ReadKinds(r *binio.Reader, st *DecodeState) error {
	if err := readLeafKind(r, st, c.node); err != nil {
		return err
	}
	return c.inner.ReadKinds(r, st)
}

func (c *arrayCodec) Decode(r *binio.Reader, rows int, st *DecodeState) (column.Column, error) {
	if col, handled, err := interceptSparse(c, c.node, r, rows, st); handled {
		return col, err
	}
	offsets, err := binio.View[uint64](r, rows)
	if err != nil {
		return nil, err
	}
	total := 0
	prev := uint64(0)
	for i, o := range offsets {
		if o < prev {
			return nil, structural(c.typ.String(), r.Offset(), "non-monotonic array offset %d after %d at row %d", o, prev, i)
		}
		prev = o
	}
	if rows > 0 {
		total = int(offsets[rows-1])
	}
	inner, err := c.inner.Decode(r, total, st)
	if err != nil {
		return nil, err
	}
	return column.NewArray(c.typ, offsets, inner), nil
}

func (c *arrayCodec) Encode(w *binio.Writer, col column.Column) error {
	a, ok := col.(*column.Array)
	if !ok {
		return coercionErr(c.typ.String(), 0, col, "array column expected")
	}
	binio.AppendFixed(w, a.Offsets)
	return c.inner.Encode(w, a.Inner)
}

func (c *arrayCodec) FromValues(values []any) (column.Column, error) {
	offsets := make([]uint64, len(values))
	var flat []any
	for i, v := range values {
		elems, err := asAnySlice(v)
		if err != nil {
			return nil, coercionErr(c.typ.String(), i, v, err.Error())
		}
		flat = append(flat, elems...)
		offsets[i] = uint64(len(flat))
	}
	inner, err := c.inner.FromValues(flat)
	if err != nil {
		return nil, err
	}
	return column.NewArray(c.typ, offsets, inner), nil
}

func (c *arrayCodec) ZeroValue() any { return []any{} }
