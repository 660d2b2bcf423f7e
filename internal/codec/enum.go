package codec

import (
	"fmt"
	"math"

	"chnative/internal/binio"
	"chnative/internal/chtype"
	"chnative/internal/column"
)

// enumCodec handles Enum8 and Enum16: a signed discriminant per row.
// Decode returns the label (the discriminant under EnumAsNumber); encode
// accepts either. Unknown labels and discriminants fail on both paths.
type enumCodec struct {
	base
	width   int // 1 or 2
	byLabel map[string]int
	byValue map[int]string
	first   chtype.EnumItem
}

func newEnumCodec(t chtype.Type) (Codec, error) {
	items, err := chtype.EnumItems(t)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, fmt.Errorf("%s: empty enum body", t.Base)
	}
	c := &enumCodec{
		base:    newBase(t),
		width:   1,
		byLabel: make(map[string]int, len(items)),
		byValue: make(map[int]string, len(items)),
		first:   items[0],
	}
	if t.Base == "Enum16" {
		c.width = 2
	}
	min, max := math.MinInt8, math.MaxInt8
	if c.width == 2 {
		min, max = math.MinInt16, math.MaxInt16
	}
	for _, it := range items {
		if it.Value < min || it.Value > max {
			return nil, fmt.Errorf("%s: discriminant %d out of range", t.Base, it.Value)
		}
		c.byLabel[it.Label] = it.Value
		c.byValue[it.Value] = it.Label
	}
	return c, nil
}

func (c *enumCodec) EstimateSize(rows int) int {
	return rows * c.width
}

func (c *enumCodec) conv(v int, o *column.Opts) any {
	if o != nil && o.EnumAsNumber {
		return v
	}
	return c.byValue[v]
}

func (c *enumCodec) Decode(r *binio.Reader, rows int, st *DecodeState) (column.Column, error) {
	if col, handled, err := interceptSparse(c, c.node, r, rows, st); handled {
		return col, err
	}
	if c.width == 1 {
		data, err := binio.View[int8](r, rows)
		if err != nil {
			return nil, err
		}
		for i, v := range data {
			if _, ok := c.byValue[int(v)]; !ok {
				return nil, structural(c.typ.String(), r.Offset(), "unknown enum discriminant %d at row %d", v, i)
			}
		}
		return column.NewData(c.typ, data, func(v int8, o *column.Opts) any { return c.conv(int(v), o) }), nil
	}
	data, err := binio.View[int16](r, rows)
	if err != nil {
		return nil, err
	}
	for i, v := range data {
		if _, ok := c.byValue[int(v)]; !ok {
			return nil, structural(c.typ.String(), r.Offset(), "unknown enum discriminant %d at row %d", v, i)
		}
	}
	return column.NewData(c.typ, data, func(v int16, o *column.Opts) any { return c.conv(int(v), o) }), nil
}

func (c *enumCodec) coerce(v any) (int, error) {
	switch x := v.(type) {
	case string:
		if d, ok := c.byLabel[x]; ok {
			return d, nil
		}
		return 0, fmt.Errorf("unknown enum label %q", x)
	default:
		n, err := toInt64(v)
		if err != nil {
			return 0, err
		}
		if _, ok := c.byValue[int(n)]; !ok {
			return 0, fmt.Errorf("unknown enum discriminant %d", n)
		}
		return int(n), nil
	}
}

func (c *enumCodec) Encode(w *binio.Writer, col column.Column) error {
	switch d := col.(type) {
	case *column.Data[int8]:
		binio.AppendFixed(w, d.Data())
		return nil
	case *column.Data[int16]:
		binio.AppendFixed(w, d.Data())
		return nil
	}
	for i := 0; i < col.Len(); i++ {
		n, err := c.coerce(col.Get(i, nil))
		if err != nil {
			return coercionErr(c.typ.String(), i, col.Get(i, nil), err.Error())
		}
		if c.width == 1 {
			w.Byte(byte(int8(n)))
		} else {
			w.Fixed16(uint16(int16(n)))
		}
	}
	return nil
}

func (c *enumCodec) FromValues(values []any) (column.Column, error) {
	if c.width == 1 {
		data := make([]int8, len(values))
		for i, v := range values {
			n, err := c.coerce(v)
			if err != nil {
				return nil, coercionErr(c.typ.String(), i, v, err.Error())
			}
			data[i] = int8(n)
		}
		return column.NewData(c.typ, data, func(v int8, o *column.Opts) any { return c.conv(int(v), o) }), nil
	}
	data := make([]int16, len(values))
	for i, v := range values {
		n, err := c.coerce(v)
		if err != nil {
			return nil, coercionErr(c.typ.String(), i, v, err.Error())
		}
		data[i] = int16(n)
	}
	return column.NewData(c.typ, data, func(v int16, o *column.Opts) any { return c.conv(int(v), o) }), nil
}

// ZeroValue is the first declared member, matching the server's default
// for an enum column.
func (c *enumCodec) ZeroValue() any { return c.first.Label }
