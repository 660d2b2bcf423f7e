package codec

import (
	"fmt"
	"sort"

	"chnative/internal/binio"
	"chnative/internal/chtype"
	"chnative/internal/column"
)

// mapCodec: Map(K, V) is encoded as Array(Tuple(K, V)) — cumulative
// offsets, then the key column and the value column of the flattened
// entries. Materialization preserves insertion order and does not
// enforce key uniqueness.
type mapCodec struct {
	base
	keys   Codec
	values Codec
}

func newMapCodec(t chtype.Type) (Codec, error) {
	keys, err := ForType(t.Args[0])
	if err != nil {
		return nil, err
	}
	values, err := ForType(t.Args[1])
	if err != nil {
		return nil, err
	}
	return &mapCodec{base: newBase(t), keys: keys, values: values}, nil
}

func (c *mapCodec) EstimateSize(rows int) int {
	const estEntries = 4
	return rows*8 + c.keys.EstimateSize(rows*estEntries) + c.values.EstimateSize(rows*estEntries)
}

func (c *mapCodec) ReadPrefix(r *binio.Reader, st *DecodeState) error {
	if err := c.keys.ReadPrefix(r, st); err != nil {
		return err
	}
	return c.values.ReadPrefix(r, st)
}

func (c *mapCodec) WritePrefix(w *binio.Writer, col column.Column) error {
	m, ok := col.(*column.Map)
	var kc, vc column.Column
	if ok {
		kc, vc = m.Keys, m.Values
	}
	if err := c.keys.WritePrefix(w, kc); err != nil {
		return err
	}
	return c.values.WritePrefix(w, vc)
}

func (c *mapCodec) ReadKinds(r *binio.Reader, st *DecodeState) error {
	if err := readLeafKind(r, st, c.node); err != nil {
		return err
	}
	if err := c.keys.ReadKinds(r, st); err != nil {
		return err
	}
	return c.values.ReadKinds(r, st)
}

func (c *mapCodec) Decode(r *binio.Reader, rows int, st *DecodeState) (column.Column, error) {
	if col, handled, err := interceptSparse(c, c.node, r, rows, st); handled {
		return col, err
	}
	offsets, err := binio.View[uint64](r, rows)
	if err != nil {
		return nil, err
	}
	prev := uint64(0)
	for i, o := range offsets {
		if o < prev {
			return nil, structural(c.typ.String(), r.Offset(), "non-monotonic map offset %d after %d at row %d", o, prev, i)
		}
		prev = o
	}
	total := 0
	if rows > 0 {
		total = int(offsets[rows-1])
	}
	keys, err := c.keys.Decode(r, total, st)
	if err != nil {
		return nil, err
	}
	values, err := c.values.Decode(r, total, st)
	if err != nil {
		return nil, err
	}
	return column.NewMap(c.typ, offsets, keys, values), nil
}

func (c *mapCodec) Encode(w *binio.Writer, col column.Column) error {
	m, ok := col.(*column.Map)
	if !ok {
		return coercionErr(c.typ.String(), 0, col, "map column expected")
	}
	binio.AppendFixed(w, m.Offsets)
	if err := c.keys.Encode(w, m.Keys); err != nil {
		return err
	}
	return c.values.Encode(w, m.Values)
}

// entries converts one row value into its (key, value) pairs. Accepted
// shapes: OrderedMap, []KV, []any of two-element pairs, and Go maps
// with string keys (entries sorted by key for determinism).
func (c *mapCodec) entries(v any) ([]column.KV, error) {
	switch x := v.(type) {
	case nil:
		return nil, nil
	case column.OrderedMap:
		return x, nil
	case []column.KV:
		return x, nil
	case map[string]any:
		keys := make([]string, 0, len(x))
		for k := range x {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		out := make([]column.KV, 0, len(keys))
		for _, k := range keys {
			out = append(out, column.KV{Key: k, Value: x[k]})
		}
		return out, nil
	default:
		pairs, err := asAnySlice(v)
		if err != nil {
			return nil, fmt.Errorf("map value expected")
		}
		out := make([]column.KV, 0, len(pairs))
		for _, p := range pairs {
			pair, err := asAnySlice(p)
			if err != nil || len(pair) != 2 {
				return nil, fmt.Errorf("map entry must be a [key, value] pair")
			}
			out = append(out, column.KV{Key: pair[0], Value: pair[1]})
		}
		return out, nil
	}
}

func (c *mapCodec) FromValues(values []any) (column.Column, error) {
	offsets := make([]uint64, len(values))
	var flatKeys, flatVals []any
	for i, v := range values {
		kvs, err := c.entries(v)
		if err != nil {
			return nil, coercionErr(c.typ.String(), i, v, err.Error())
		}
		for _, kv := range kvs {
			flatKeys = append(flatKeys, kv.Key)
			flatVals = append(flatVals, kv.Value)
		}
		offsets[i] = uint64(len(flatKeys))
	}
	keys, err := c.keys.FromValues(flatKeys)
	if err != nil {
		return nil, err
	}
	vals, err := c.values.FromValues(flatVals)
	if err != nil {
		return nil, err
	}
	return column.NewMap(c.typ, offsets, keys, vals), nil
}

func (c *mapCodec) ZeroValue() any { return column.OrderedMap{} }
