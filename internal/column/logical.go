package column

import (
	"chnative/internal/chtype"
)

// Nullable wraps an inner column with a null mask (1 = null). The inner
// column holds a default value in null positions.
type Nullable struct {
	typ   chtype.Type
	Mask  []uint8
	Inner Column
}

func NewNullable(typ chtype.Type, mask []uint8, inner Column) *Nullable {
	return &Nullable{typ: typ, Mask: mask, Inner: inner}
}

func (c *Nullable) Type() chtype.Type { return c.typ }
func (c *Nullable) Len() int          { return len(c.Mask) }

func (c *Nullable) Get(i int, o *Opts) any {
	if c.Mask[i] != 0 {
		return nil
	}
	return c.Inner.Get(i, o)
}

// Array wraps an inner column with cumulative element-count offsets.
// Row i spans inner rows [Offsets[i-1], Offsets[i]).
type Array struct {
	typ     chtype.Type
	Offsets []uint64
	Inner   Column
}

func NewArray(typ chtype.Type, offsets []uint64, inner Column) *Array {
	return &Array{typ: typ, Offsets: offsets, Inner: inner}
}

func (c *Array) Type() chtype.Type { return c.typ }
func (c *Array) Len() int          { return len(c.Offsets) }

// Bounds returns the inner row range of row i.
func (c *Array) Bounds(i int) (int, int) {
	start := 0
	if i > 0 {
		start = int(c.Offsets[i-1])
	}
	return start, int(c.Offsets[i])
}

func (c *Array) Get(i int, o *Opts) any {
	start, end := c.Bounds(i)
	out := make([]any, 0, end-start)
	for j := start; j < end; j++ {
		out = append(out, c.Inner.Get(j, o))
	}
	return out
}

// Tuple holds one inner column per element. Named tuples materialize as
// Records, positional tuples as []any.
type Tuple struct {
	typ    chtype.Type
	Names  []string // empty when positional
	Inners []Column
	Rows   int
}

func NewTuple(typ chtype.Type, names []string, inners []Column, rows int) *Tuple {
	return &Tuple{typ: typ, Names: names, Inners: inners, Rows: rows}
}

func (c *Tuple) Type() chtype.Type { return c.typ }
func (c *Tuple) Len() int          { return c.Rows }

func (c *Tuple) Get(i int, o *Opts) any {
	if len(c.Names) > 0 {
		rec := make(Record, len(c.Inners))
		for j, inner := range c.Inners {
			rec[j] = Field{Name: c.Names[j], Value: inner.Get(i, o)}
		}
		return rec
	}
	out := make([]any, len(c.Inners))
	for j, inner := range c.Inners {
		out[j] = inner.Get(i, o)
	}
	return out
}

// Map is Array(Tuple(K, V)) materialized as an ordered multimap.
type Map struct {
	typ     chtype.Type
	Offsets []uint64
	Keys    Column
	Values  Column
}

func NewMap(typ chtype.Type, offsets []uint64, keys, values Column) *Map {
	return &Map{typ: typ, Offsets: offsets, Keys: keys, Values: values}
}

func (c *Map) Type() chtype.Type { return c.typ }
func (c *Map) Len() int          { return len(c.Offsets) }

func (c *Map) Get(i int, o *Opts) any {
	start := 0
	if i > 0 {
		start = int(c.Offsets[i-1])
	}
	end := int(c.Offsets[i])
	if o != nil && o.MapAsArray {
		out := make([]any, 0, end-start)
		for j := start; j < end; j++ {
			out = append(out, []any{c.Keys.Get(j, o), c.Values.Get(j, o)})
		}
		return out
	}
	m := make(OrderedMap, 0, end-start)
	for j := start; j < end; j++ {
		m = append(m, KV{Key: c.Keys.Get(j, o), Value: c.Values.Get(j, o)})
	}
	return m
}

// LowCard is a dictionary-encoded column: indices into a dense dictionary
// of distinct values. For LowCardinality(Nullable(T)) the reserved
// dictionary index 0 is the null placeholder.
type LowCard struct {
	typ      chtype.Type
	Indices  []uint64
	Dict     Column
	Nullable bool
}

func NewLowCard(typ chtype.Type, indices []uint64, dict Column, nullable bool) *LowCard {
	return &LowCard{typ: typ, Indices: indices, Dict: dict, Nullable: nullable}
}

func (c *LowCard) Type() chtype.Type { return c.typ }
func (c *LowCard) Len() int          { return len(c.Indices) }

func (c *LowCard) Get(i int, o *Opts) any {
	idx := c.Indices[i]
	if c.Nullable && idx == 0 {
		return nil
	}
	return c.Dict.Get(int(idx), o)
}

// Variant stores one discriminant per row (255 = null) plus one dense
// column per variant holding only that variant's rows in original order.
// Offsets maps each row to its index inside its variant column.
type Variant struct {
	typ      chtype.Type
	Discr    []uint8
	Offsets  []int
	Variants []Column
}

// NullDiscriminant marks a null row in Variant and Dynamic columns.
const NullDiscriminant = 255

func NewVariant(typ chtype.Type, discr []uint8, offsets []int, variants []Column) *Variant {
	return &Variant{typ: typ, Discr: discr, Offsets: offsets, Variants: variants}
}

func (c *Variant) Type() chtype.Type { return c.typ }
func (c *Variant) Len() int          { return len(c.Discr) }

func (c *Variant) Get(i int, o *Opts) any {
	d := c.Discr[i]
	if d == NullDiscriminant {
		return nil
	}
	return VariantValue{
		Discriminant: d,
		Value:        c.Variants[d].Get(c.Offsets[i], o),
	}
}

// Dynamic is a Variant over a per-block list of observed types.
type Dynamic struct {
	typ       chtype.Type
	TypeNames []string
	Discr     []uint8
	Offsets   []int
	Variants  []Column
}

func NewDynamic(typ chtype.Type, typeNames []string, discr []uint8, offsets []int, variants []Column) *Dynamic {
	return &Dynamic{typ: typ, TypeNames: typeNames, Discr: discr, Offsets: offsets, Variants: variants}
}

func (c *Dynamic) Type() chtype.Type { return c.typ }
func (c *Dynamic) Len() int          { return len(c.Discr) }

func (c *Dynamic) Get(i int, o *Opts) any {
	d := c.Discr[i]
	if d == NullDiscriminant {
		return nil
	}
	return VariantValue{
		Discriminant: d,
		Value:        c.Variants[d].Get(c.Offsets[i], o),
	}
}

// JSON holds declared typed-path columns plus Dynamic columns for the
// observed dynamic paths. A row materializes as a Record; dynamic keys
// whose value is absent are omitted (distinct from a typed null).
type JSON struct {
	typ        chtype.Type
	TypedNames []string
	Typed      []Column
	DynNames   []string
	Dyn        []Column
	Rows       int
}

func NewJSON(typ chtype.Type, typedNames []string, typed []Column, dynNames []string, dyn []Column, rows int) *JSON {
	return &JSON{typ: typ, TypedNames: typedNames, Typed: typed, DynNames: dynNames, Dyn: dyn, Rows: rows}
}

func (c *JSON) Type() chtype.Type { return c.typ }
func (c *JSON) Len() int          { return c.Rows }

func (c *JSON) Get(i int, o *Opts) any {
	rec := make(Record, 0, len(c.Typed)+len(c.Dyn))
	for j, col := range c.Typed {
		rec = append(rec, Field{Name: c.TypedNames[j], Value: col.Get(i, o)})
	}
	for j, col := range c.Dyn {
		v := col.Get(i, o)
		if v == nil {
			continue
		}
		rec = append(rec, Field{Name: c.DynNames[j], Value: v})
	}
	return rec
}
