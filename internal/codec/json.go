package codec

import (
	"fmt"
	"sort"

	"chnative/internal/binio"
	"chnative/internal/chtype"
	"chnative/internal/column"
)

// jsonVersion tags the flattened V3 object layout: declared typed paths
// serialized as plain columns, every other observed path carried by a
// Dynamic column, all flattened side by side.
const jsonVersion = 3

// jsonRuntime is the per-stream prefix state of one JSON node. The
// dynamic-path codecs are created fresh per prefix read so each path
// gets its own node identity.
type jsonRuntime struct {
	dynNames  []string
	dynCodecs []Codec
}

// jsonCodec handles JSON(typed paths..., settings...). Rows materialize
// as Records; dynamic keys absent in a row are omitted, while missing
// typed-path keys fall back to the path codec's default.
type jsonCodec struct {
	base
	typedNames  []string
	typed       []Codec
	maxDynPaths int
	// dynEnc serves the encode side, where no per-stream state is needed.
	dynEnc Codec
}

func newJSONCodec(t chtype.Type) (Codec, error) {
	c := &jsonCodec{base: newBase(t), maxDynPaths: 1024}
	for _, p := range t.Params {
		if n, ok := settingValue(p, "max_dynamic_paths"); ok {
			c.maxDynPaths = n
		}
	}
	for _, arg := range t.Args {
		inner, err := ForType(arg.Unnamed())
		if err != nil {
			return nil, err
		}
		c.typedNames = append(c.typedNames, arg.Name)
		c.typed = append(c.typed, inner)
	}
	dynEnc, err := newDynamicCodec(chtype.Scalar("Dynamic"))
	if err != nil {
		return nil, err
	}
	c.dynEnc = dynEnc
	return c, nil
}

func (c *jsonCodec) EstimateSize(rows int) int {
	total := 64 + rows*32
	for _, inner := range c.typed {
		total += inner.EstimateSize(rows)
	}
	return total
}

func (c *jsonCodec) ReadPrefix(r *binio.Reader, st *DecodeState) error {
	v, err := r.UVarInt()
	if err != nil {
		return err
	}
	if v != jsonVersion {
		return structural(c.typ.String(), r.Offset(), "unsupported JSON structure version %d (only the flattened V3 layout is supported)", v)
	}
	for _, inner := range c.typed {
		if err := inner.ReadPrefix(r, st); err != nil {
			return err
		}
	}
	count, err := r.UVarInt()
	if err != nil {
		return err
	}
	if int(count) > c.maxDynPaths {
		return structural(c.typ.String(), r.Offset(), "%d dynamic paths exceed the budget of %d", count, c.maxDynPaths)
	}
	rt := &jsonRuntime{}
	for i := uint64(0); i < count; i++ {
		name, err := r.Str()
		if err != nil {
			return err
		}
		rt.dynNames = append(rt.dynNames, name)
	}
	for range rt.dynNames {
		dyn, err := newDynamicCodec(chtype.Scalar("Dynamic"))
		if err != nil {
			return err
		}
		if err := dyn.ReadPrefix(r, st); err != nil {
			return err
		}
		rt.dynCodecs = append(rt.dynCodecs, dyn)
	}
	if st == nil {
		return structural(c.typ.String(), r.Offset(), "JSON decode requires a decode state")
	}
	st.json[c.node] = rt
	return nil
}

func (c *jsonCodec) WritePrefix(w *binio.Writer, col column.Column) error {
	j, ok := col.(*column.JSON)
	if !ok {
		return coercionErr(c.typ.String(), 0, col, "JSON column expected")
	}
	w.UVarInt(jsonVersion)
	for i, inner := range c.typed {
		if err := inner.WritePrefix(w, j.Typed[i]); err != nil {
			return err
		}
	}
	w.UVarInt(uint64(len(j.DynNames)))
	for _, name := range j.DynNames {
		w.Str(name)
	}
	for _, dynCol := range j.Dyn {
		if err := c.dynEnc.WritePrefix(w, dynCol); err != nil {
			return err
		}
	}
	return nil
}

func (c *jsonCodec) ReadKinds(r *binio.Reader, st *DecodeState) error {
	if err := readLeafKind(r, st, c.node); err != nil {
		return err
	}
	for _, inner := range c.typed {
		if err := inner.ReadKinds(r, st); err != nil {
			return err
		}
	}
	return nil
}

func (c *jsonCodec) Decode(r *binio.Reader, rows int, st *DecodeState) (column.Column, error) {
	if col, handled, err := interceptSparse(c, c.node, r, rows, st); handled {
		return col, err
	}
	rt := st.json[c.node]
	if rt == nil {
		return nil, structural(c.typ.String(), r.Offset(), "JSON prefix was not read")
	}
	typed := make([]column.Column, len(c.typed))
	for i, inner := range c.typed {
		col, err := inner.Decode(r, rows, st)
		if err != nil {
			return nil, err
		}
		typed[i] = col
	}
	dyn := make([]column.Column, len(rt.dynCodecs))
	for i, codec := range rt.dynCodecs {
		col, err := codec.Decode(r, rows, st)
		if err != nil {
			return nil, err
		}
		dyn[i] = col
	}
	return column.NewJSON(c.typ, c.typedNames, typed, rt.dynNames, dyn, rows), nil
}

func (c *jsonCodec) Encode(w *binio.Writer, col column.Column) error {
	j, ok := col.(*column.JSON)
	if !ok {
		return coercionErr(c.typ.String(), 0, col, "JSON column expected")
	}
	for i, inner := range c.typed {
		if err := inner.Encode(w, j.Typed[i]); err != nil {
			return err
		}
	}
	for _, dynCol := range j.Dyn {
		if err := c.dynEnc.Encode(w, dynCol); err != nil {
			return err
		}
	}
	return nil
}

// rowObject normalizes one FromValues row into name/value pairs.
func rowObject(v any) ([]column.Field, error) {
	switch x := v.(type) {
	case nil:
		return nil, nil
	case column.Record:
		return x, nil
	case map[string]any:
		keys := make([]string, 0, len(x))
		for k := range x {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		out := make([]column.Field, 0, len(keys))
		for _, k := range keys {
			out = append(out, column.Field{Name: k, Value: x[k]})
		}
		return out, nil
	}
	return nil, fmt.Errorf("object value expected")
}

func (c *jsonCodec) FromValues(values []any) (column.Column, error) {
	typedIdx := make(map[string]int, len(c.typedNames))
	for i, name := range c.typedNames {
		typedIdx[name] = i
	}
	typedVals := make([][]any, len(c.typed))
	for i, inner := range c.typed {
		col := make([]any, len(values))
		zero := inner.ZeroValue()
		for j := range col {
			col[j] = zero
		}
		typedVals[i] = col
	}
	dynVals := map[string][]any{}
	for row, v := range values {
		fields, err := rowObject(v)
		if err != nil {
			return nil, coercionErr(c.typ.String(), row, v, err.Error())
		}
		for _, f := range fields {
			if i, ok := typedIdx[f.Name]; ok {
				typedVals[i][row] = f.Value
				continue
			}
			col, ok := dynVals[f.Name]
			if !ok {
				if len(dynVals) >= c.maxDynPaths {
					return nil, coercionErr(c.typ.String(), row, f.Name, fmt.Sprintf("more than %d dynamic paths", c.maxDynPaths))
				}
				col = make([]any, len(values))
			}
			col[row] = f.Value
			dynVals[f.Name] = col
		}
	}

	typed := make([]column.Column, len(c.typed))
	for i, inner := range c.typed {
		col, err := inner.FromValues(typedVals[i])
		if err != nil {
			return nil, err
		}
		typed[i] = col
	}
	dynNames := make([]string, 0, len(dynVals))
	for name := range dynVals {
		dynNames = append(dynNames, name)
	}
	sort.Strings(dynNames)
	dyn := make([]column.Column, len(dynNames))
	for i, name := range dynNames {
		col, err := c.dynEnc.FromValues(dynVals[name])
		if err != nil {
			return nil, err
		}
		dyn[i] = col
	}
	return column.NewJSON(c.typ, c.typedNames, typed, dynNames, dyn, len(values)), nil
}

func (c *jsonCodec) ZeroValue() any {
	rec := make(column.Record, len(c.typed))
	for i, inner := range c.typed {
		rec[i] = column.Field{Name: c.typedNames[i], Value: inner.ZeroValue()}
	}
	return rec
}
