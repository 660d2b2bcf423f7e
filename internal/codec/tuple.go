package codec

import (
	"fmt"

	"chnative/internal/binio"
	"chnative/internal/chtype"
	"chnative/internal/column"
)

// tupleCodec: each element column serialized densely in declaration
// order. Rows materialize positionally ([]any) or as a Record when the
// elements are named.
type tupleCodec struct {
	base
	names  []string
	inners []Codec
}

func newTupleCodec(t chtype.Type) (Codec, error) {
	c := &tupleCodec{base: newBase(t)}
	named := t.Args[0].Name != ""
	for _, arg := range t.Args {
		if (arg.Name != "") != named {
			return nil, fmt.Errorf("Tuple: mixed named and positional elements")
		}
		inner, err := ForType(arg.Unnamed())
		if err != nil {
			return nil, err
		}
		c.inners = append(c.inners, inner)
		if named {
			c.names = append(c.names, arg.Name)
		}
	}
	return c, nil
}

func (c *tupleCodec) EstimateSize(rows int) int {
	total := 0
	for _, inner := range c.inners {
		total += inner.EstimateSize(rows)
	}
	return total
}

func (c *tupleCodec) ReadPrefix(r *binio.Reader, st *DecodeState) error {
	for _, inner := range c.inners {
		if err := inner.ReadPrefix(r, st); err != nil {
			return err
		}
	}
	return nil
}

func (c *tupleCodec) WritePrefix(w *binio.Writer, col column.Column) error {
	t, ok := col.(*column.Tuple)
	for i, inner := range c.inners {
		var ic column.Column
		if ok {
			ic = t.Inners[i]
		}
		if err := inner.WritePrefix(w, ic); err != nil {
			return err
		}
	}
	return nil
}

func (c *tupleCodec) ReadKinds(r *binio.Reader, st *DecodeState) error {
	if err := readLeafKind(r, st, c.node); err != nil {
		return err
	}
	for _, inner := range c.inners {
		if err := inner.ReadKinds(r, st); err != nil {
			return err
		}
	}
	return nil
}

func (c *tupleCodec) Decode(r *binio.Reader, rows int, st *DecodeState) (column.Column, error) {
	if col, handled, err := interceptSparse(c, c.node, r, rows, st); handled {
		return col, err
	}
	inners := make([]column.Column, len(c.inners))
	for i, inner := range c.inners {
		col, err := inner.Decode(r, rows, st)
		if err != nil {
			return nil, err
		}
		inners[i] = col
	}
	return column.NewTuple(c.typ, c.names, inners, rows), nil
}

func (c *tupleCodec) Encode(w *binio.Writer, col column.Column) error {
	t, ok := col.(*column.Tuple)
	if !ok {
		return coercionErr(c.typ.String(), 0, col, "tuple column expected")
	}
	for i, inner := range c.inners {
		if err := inner.Encode(w, t.Inners[i]); err != nil {
			return err
		}
	}
	return nil
}

// elementValues splits one row value into its per-element values.
func (c *tupleCodec) elementValues(v any) ([]any, error) {
	switch x := v.(type) {
	case column.Record:
		if len(c.names) == 0 {
			return nil, fmt.Errorf("positional tuple cannot take a record")
		}
		out := make([]any, len(c.names))
		for i, name := range c.names {
			val, ok := x.Get(name)
			if !ok {
				return nil, fmt.Errorf("missing tuple element %q", name)
			}
			out[i] = val
		}
		return out, nil
	case map[string]any:
		if len(c.names) == 0 {
			return nil, fmt.Errorf("positional tuple cannot take a map")
		}
		out := make([]any, len(c.names))
		for i, name := range c.names {
			val, ok := x[name]
			if !ok {
				return nil, fmt.Errorf("missing tuple element %q", name)
			}
			out[i] = val
		}
		return out, nil
	default:
		elems, err := asAnySlice(v)
		if err != nil {
			return nil, err
		}
		if len(elems) != len(c.inners) {
			return nil, fmt.Errorf("tuple arity mismatch: want %d, got %d", len(c.inners), len(elems))
		}
		return elems, nil
	}
}

func (c *tupleCodec) FromValues(values []any) (column.Column, error) {
	cols := make([][]any, len(c.inners))
	for i := range cols {
		cols[i] = make([]any, len(values))
	}
	for row, v := range values {
		elems, err := c.elementValues(v)
		if err != nil {
			return nil, coercionErr(c.typ.String(), row, v, err.Error())
		}
		for i := range c.inners {
			cols[i][row] = elems[i]
		}
	}
	inners := make([]column.Column, len(c.inners))
	for i, inner := range c.inners {
		col, err := inner.FromValues(cols[i])
		if err != nil {
			return nil, err
		}
		inners[i] = col
	}
	return column.NewTuple(c.typ, c.names, inners, len(values)), nil
}

func (c *tupleCodec) ZeroValue() any {
	if len(c.names) > 0 {
		rec := make(column.Record, len(c.inners))
		for i, inner := range c.inners {
			rec[i] = column.Field{Name: c.names[i], Value: inner.ZeroValue()}
		}
		return rec
	}
	out := make([]any, len(c.inners))
	for i, inner := range c.inners {
		out[i] = inner.ZeroValue()
	}
	return out
}
