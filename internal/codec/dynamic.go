package codec

import (
	"fmt"
	"sort"
	"strconv"
	"time"

	"chnative/internal/binio"
	"chnative/internal/chtype"
	"chnative/internal/column"
)

// dynVersion is the flattened "V3" structure layout: a version tag, the
// list of observed types, then one discriminant per row followed by the
// per-type dense columns. No other layout is supported; a stream that
// negotiated an older layout must fail rather than silently mismatch.
const dynVersion = 3

// dynRuntime is the per-stream prefix state of one Dynamic node: the
// types the current block declared and their codecs.
type dynRuntime struct {
	names  []string
	codecs []Codec
}

// dynamicCodec handles Dynamic columns. The type list lives in the
// column prefix and changes per block, so everything derived from it is
// kept in DecodeState rather than on the codec.
type dynamicCodec struct {
	base
	maxTypes int
}

func newDynamicCodec(t chtype.Type) (Codec, error) {
	c := &dynamicCodec{base: newBase(t), maxTypes: 32}
	for _, p := range t.Params {
		if n, ok := settingValue(p, "max_types"); ok {
			c.maxTypes = n
		}
	}
	if c.maxTypes >= column.NullDiscriminant {
		return nil, fmt.Errorf("Dynamic: max_types %d out of range", c.maxTypes)
	}
	return c, nil
}

func settingValue(param, name string) (int, bool) {
	prefix := name + "="
	if len(param) <= len(prefix) || param[:len(prefix)] != prefix {
		return 0, false
	}
	n, err := strconv.Atoi(param[len(prefix):])
	if err != nil {
		return 0, false
	}
	return n, true
}

func (c *dynamicCodec) EstimateSize(rows int) int {
	return 64 + rows*17
}

func (c *dynamicCodec) ReadPrefix(r *binio.Reader, st *DecodeState) error {
	v, err := r.UVarInt()
	if err != nil {
		return err
	}
	if v != dynVersion {
		return structural(c.typ.String(), r.Offset(), "unsupported Dynamic structure version %d (only the flattened V3 layout is supported)", v)
	}
	count, err := r.UVarInt()
	if err != nil {
		return err
	}
	rt := &dynRuntime{}
	for i := uint64(0); i < count; i++ {
		name, err := r.Str()
		if err != nil {
			return err
		}
		inner, err := Get(name)
		if err != nil {
			return err
		}
		rt.names = append(rt.names, name)
		rt.codecs = append(rt.codecs, inner)
	}
	if st == nil {
		return structural(c.typ.String(), r.Offset(), "dynamic decode requires a decode state")
	}
	st.dynamic[c.node] = rt
	return nil
}

func (c *dynamicCodec) WritePrefix(w *binio.Writer, col column.Column) error {
	d, ok := col.(*column.Dynamic)
	if !ok {
		return coercionErr(c.typ.String(), 0, col, "dynamic column expected")
	}
	w.UVarInt(dynVersion)
	w.UVarInt(uint64(len(d.TypeNames)))
	for _, name := range d.TypeNames {
		w.Str(name)
	}
	return nil
}

func (c *dynamicCodec) Decode(r *binio.Reader, rows int, st *DecodeState) (column.Column, error) {
	if col, handled, err := interceptSparse(c, c.node, r, rows, st); handled {
		return col, err
	}
	rt := st.dynamic[c.node]
	if rt == nil {
		return nil, structural(c.typ.String(), r.Offset(), "dynamic prefix was not read")
	}
	discr, err := binio.View[uint8](r, rows)
	if err != nil {
		return nil, err
	}
	counts := make([]int, len(rt.codecs))
	offsets := make([]int, rows)
	for i, d := range discr {
		if d == column.NullDiscriminant {
			continue
		}
		if int(d) >= len(rt.codecs) {
			return nil, structural(c.typ.String(), r.Offset(), "dynamic discriminant %d out of range at row %d", d, i)
		}
		offsets[i] = counts[d]
		counts[d]++
	}
	cols := make([]column.Column, len(rt.codecs))
	for i, codec := range rt.codecs {
		col, err := codec.Decode(r, counts[i], st)
		if err != nil {
			return nil, err
		}
		cols[i] = col
	}
	return column.NewDynamic(c.typ, rt.names, discr, offsets, cols), nil
}

func (c *dynamicCodec) Encode(w *binio.Writer, col column.Column) error {
	d, ok := col.(*column.Dynamic)
	if !ok {
		return coercionErr(c.typ.String(), 0, col, "dynamic column expected")
	}
	binio.AppendFixed(w, d.Discr)
	for i, name := range d.TypeNames {
		inner, err := Get(name)
		if err != nil {
			return err
		}
		if err := inner.Encode(w, d.Variants[i]); err != nil {
			return err
		}
	}
	return nil
}

// inferDynType maps a bare Go value to the type expression its Dynamic
// variant is stored under.
func inferDynType(v any) (string, error) {
	switch x := v.(type) {
	case column.TypedValue:
		return x.TypeExpr, nil
	case string:
		return "String", nil
	case bool:
		return "Bool", nil
	case int, int8, int16, int32, int64:
		return "Int64", nil
	case uint, uint8, uint16, uint32, uint64:
		return "UInt64", nil
	case float32, float64:
		return "Float64", nil
	case time.Time:
		return "DateTime64(3)", nil
	case column.DateTime64Value:
		return fmt.Sprintf("DateTime64(%d)", x.Precision), nil
	}
	return "", fmt.Errorf("cannot infer dynamic type for %T", v)
}

func (c *dynamicCodec) FromValues(values []any) (column.Column, error) {
	type rowSlot struct {
		typeName string
		value    any
	}
	slots := make([]rowSlot, len(values))
	typeSet := map[string]bool{}
	for i, v := range values {
		if v == nil {
			slots[i].typeName = ""
			continue
		}
		name, err := inferDynType(v)
		if err != nil {
			return nil, coercionErr(c.typ.String(), i, v, err.Error())
		}
		if tv, ok := v.(column.TypedValue); ok {
			v = tv.Value
		}
		slots[i] = rowSlot{typeName: name, value: v}
		typeSet[name] = true
	}
	names := make([]string, 0, len(typeSet))
	for name := range typeSet {
		names = append(names, name)
	}
	sort.Strings(names)
	if len(names) > c.maxTypes {
		return nil, coercionErr(c.typ.String(), 0, len(names), fmt.Sprintf("more than %d dynamic types", c.maxTypes))
	}
	index := make(map[string]int, len(names))
	for i, name := range names {
		index[name] = i
	}

	discr := make([]uint8, len(values))
	offsets := make([]int, len(values))
	perType := make([][]any, len(names))
	for i, slot := range slots {
		if slot.typeName == "" {
			discr[i] = column.NullDiscriminant
			continue
		}
		d := index[slot.typeName]
		discr[i] = uint8(d)
		offsets[i] = len(perType[d])
		perType[d] = append(perType[d], slot.value)
	}
	cols := make([]column.Column, len(names))
	for i, name := range names {
		inner, err := Get(name)
		if err != nil {
			return nil, err
		}
		col, err := inner.FromValues(perType[i])
		if err != nil {
			return nil, err
		}
		cols[i] = col
	}
	return column.NewDynamic(c.typ, names, discr, offsets, cols), nil
}

func (c *dynamicCodec) ZeroValue() any { return nil }
