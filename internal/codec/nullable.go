package codec

import (
	"chnative/internal/binio"
	"chnative/internal/chtype"
	"chnative/internal/column"
)

// nullableCodec: an n-byte null mask (1 = null) followed by a dense
// inner column of n rows. Null positions hold the inner default on the
// wire.
type nullableCodec struct {
	base
	inner Codec
}

func newNullableCodec(t chtype.Type) (Codec, error) {
	inner, err := ForType(t.Args[0])
	if err != nil {
		return nil, err
	}
	return &nullableCodec{base: newBase(t), inner: inner}, nil
}

func (c *nullableCodec) EstimateSize(rows int) int {
	return rows + c.inner.EstimateSize(rows)
}

func (c *nullableCodec) ReadPrefix(r *binio.Reader, st *DecodeState) error {
	return c.inner.ReadPrefix(r, st)
}

func (c *nullableCodec) WritePrefix(w *binio.Writer, col column.Column) error {
	if n, ok := col.(*column.Nullable); ok {
		return c.inner.WritePrefix(w, n.Inner)
	}
	return c.inner.WritePrefix(w, col)
}

func (c *nullableCodec) ReadKinds(r *binio.Reader, st *DecodeState) error {
	if err := readLeafKind(r, st, c.node); err != nil {
		return err
	}
	return c.inner.ReadKinds(r, st)
}

func (c *nullableCodec) Decode(r *binio.Reader, rows int, st *DecodeState) (column.Column, error) {
	if col, handled, err := interceptSparse(c, c.node, r, rows, st); handled {
		return col, err
	}
	mask, err := binio.View[uint8](r, rows)
	if err != nil {
		return nil, err
	}
	inner, err := c.inner.Decode(r, rows, st)
	if err != nil {
		return nil, err
	}
	return column.NewNullable(c.typ, mask, inner), nil
}

func (c *nullableCodec) Encode(w *binio.Writer, col column.Column) error {
	n, ok := col.(*column.Nullable)
	if !ok {
		return coercionErr(c.typ.String(), 0, col, "nullable column expected")
	}
	binio.AppendFixed(w, n.Mask)
	return c.inner.Encode(w, n.Inner)
}

func (c *nullableCodec) FromValues(values []any) (column.Column, error) {
	mask := make([]uint8, len(values))
	dense := make([]any, len(values))
	zero := c.inner.ZeroValue()
	for i, v := range values {
		if v == nil {
			mask[i] = 1
			dense[i] = zero
			continue
		}
		dense[i] = v
	}
	inner, err := c.inner.FromValues(dense)
	if err != nil {
		return nil, err
	}
	return column.NewNullable(c.typ, mask, inner), nil
}

func (c *nullableCodec) ZeroValue() any { return nil }
