package codec

import (
	"chnative/internal/binio"
	"chnative/internal/chtype"
	"chnative/internal/column"
)

// LowCardinality wire constants. The column prefix carries the dictionary
// serialization version; the body starts with a word whose low byte
// selects the index width and whose flag bits describe dictionary
// placement.
const (
	lcKeysVersion = 1

	lcIndexWidthMask    = 0xff
	lcHasAdditionalKeys = 1 << 9
	lcNeedUpdateDict    = 1 << 10
)

// lowCardCodec: a dictionary of distinct values plus narrow indices.
// For LowCardinality(Nullable(T)) the dictionary is stored as plain T
// and the reserved slot 0 is the null placeholder.
type lowCardCodec struct {
	base
	nullable bool
	dict     Codec // dictionary value codec (Nullable stripped)
}

func newLowCardCodec(t chtype.Type) (Codec, error) {
	inner := t.Args[0]
	nullable := inner.Base == "Nullable"
	if nullable {
		inner = inner.Args[0]
	}
	dict, err := ForType(inner)
	if err != nil {
		return nil, err
	}
	return &lowCardCodec{base: newBase(t), nullable: nullable, dict: dict}, nil
}

func (c *lowCardCodec) EstimateSize(rows int) int {
	// Indices dominate; the dictionary is bounded by the distinct set.
	return 24 + c.dict.EstimateSize(rows) + rows*8
}

func (c *lowCardCodec) ReadPrefix(r *binio.Reader, st *DecodeState) error {
	v, err := r.Fixed64()
	if err != nil {
		return err
	}
	if v != lcKeysVersion {
		return structural(c.typ.String(), r.Offset(), "unsupported LowCardinality version %d", v)
	}
	return nil
}

func (c *lowCardCodec) WritePrefix(w *binio.Writer, _ column.Column) error {
	w.Fixed64(lcKeysVersion)
	return nil
}

func (c *lowCardCodec) Decode(r *binio.Reader, rows int, st *DecodeState) (column.Column, error) {
	if col, handled, err := interceptSparse(c, c.node, r, rows, st); handled {
		return col, err
	}
	if rows == 0 {
		dict, err := c.dict.FromValues(nil)
		if err != nil {
			return nil, err
		}
		return column.NewLowCard(c.typ, nil, dict, c.nullable), nil
	}
	meta, err := r.Fixed64()
	if err != nil {
		return nil, err
	}
	if meta&lcHasAdditionalKeys == 0 {
		return nil, structural(c.typ.String(), r.Offset(), "global dictionaries are not supported")
	}
	width := meta & lcIndexWidthMask
	if width > 3 {
		return nil, structural(c.typ.String(), r.Offset(), "invalid index width byte %d", width)
	}
	dictSize, err := r.Fixed64()
	if err != nil {
		return nil, err
	}
	dict, err := c.dict.Decode(r, int(dictSize), st)
	if err != nil {
		return nil, err
	}
	n, err := r.Fixed64()
	if err != nil {
		return nil, err
	}
	if int(n) != rows {
		return nil, structural(c.typ.String(), r.Offset(), "index count %d does not match row count %d", n, rows)
	}
	indices, err := readIndices(r, rows, int(width))
	if err != nil {
		return nil, err
	}
	for i, idx := range indices {
		if idx >= dictSize {
			return nil, structural(c.typ.String(), r.Offset(), "dictionary index %d out of range at row %d", idx, i)
		}
	}
	return column.NewLowCard(c.typ, indices, dict, c.nullable), nil
}

func readIndices(r *binio.Reader, rows, width int) ([]uint64, error) {
	out := make([]uint64, rows)
	switch width {
	case 0:
		data, err := binio.View[uint8](r, rows)
		if err != nil {
			return nil, err
		}
		for i, v := range data {
			out[i] = uint64(v)
		}
	case 1:
		data, err := binio.View[uint16](r, rows)
		if err != nil {
			return nil, err
		}
		for i, v := range data {
			out[i] = uint64(v)
		}
	case 2:
		data, err := binio.View[uint32](r, rows)
		if err != nil {
			return nil, err
		}
		for i, v := range data {
			out[i] = uint64(v)
		}
	default:
		return binio.View[uint64](r, rows)
	}
	return out, nil
}

func indexWidth(dictSize int) int {
	switch {
	case dictSize <= 1<<8:
		return 0
	case dictSize <= 1<<16:
		return 1
	case dictSize <= 1<<32:
		return 2
	}
	return 3
}

func (c *lowCardCodec) Encode(w *binio.Writer, col column.Column) error {
	lc, ok := col.(*column.LowCard)
	if !ok {
		return coercionErr(c.typ.String(), 0, col, "low cardinality column expected")
	}
	if lc.Len() == 0 {
		return nil
	}
	width := indexWidth(lc.Dict.Len())
	w.Fixed64(uint64(width) | lcHasAdditionalKeys | lcNeedUpdateDict)
	w.Fixed64(uint64(lc.Dict.Len()))
	if err := c.dict.Encode(w, lc.Dict); err != nil {
		return err
	}
	w.Fixed64(uint64(lc.Len()))
	for _, idx := range lc.Indices {
		switch width {
		case 0:
			w.Byte(byte(idx))
		case 1:
			w.Fixed16(uint16(idx))
		case 2:
			w.Fixed32(uint32(idx))
		default:
			w.Fixed64(idx)
		}
	}
	return nil
}

func (c *lowCardCodec) FromValues(values []any) (column.Column, error) {
	// For the nullable form slot 0 is reserved as the null placeholder
	// and holds the dictionary type's default on the wire.
	var dictVals []any
	if c.nullable {
		dictVals = append(dictVals, c.dict.ZeroValue())
	}
	slots := map[any]uint64{}
	indices := make([]uint64, len(values))
	for i, v := range values {
		if v == nil {
			if !c.nullable {
				return nil, coercionErr(c.typ.String(), i, v, "null in non-nullable dictionary")
			}
			indices[i] = 0
			continue
		}
		slot, ok := slots[v]
		if !ok {
			slot = uint64(len(dictVals))
			slots[v] = slot
			dictVals = append(dictVals, v)
		}
		indices[i] = slot
	}
	dict, err := c.dict.FromValues(dictVals)
	if err != nil {
		return nil, err
	}
	return column.NewLowCard(c.typ, indices, dict, c.nullable), nil
}

func (c *lowCardCodec) ZeroValue() any {
	if c.nullable {
		return nil
	}
	return c.dict.ZeroValue()
}
