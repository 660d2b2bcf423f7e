package codec

import (
	"encoding/binary"
	"fmt"

	"github.com/google/uuid"

	"chnative/internal/binio"
	"chnative/internal/chtype"
	"chnative/internal/column"
)

// uuidCodec stores 16-byte UUIDs as two 64-bit limbs, each half written
// little-endian. The per-half byte reversal is part of the wire contract
// and is covered by the endianness regression tests.
type uuidCodec struct {
	base
}

func newUUIDCodec(t chtype.Type) Codec {
	return &uuidCodec{base: newBase(t)}
}

func (c *uuidCodec) EstimateSize(rows int) int {
	return rows * 16
}

func (c *uuidCodec) Decode(r *binio.Reader, rows int, st *DecodeState) (column.Column, error) {
	if col, handled, err := interceptSparse(c, c.node, r, rows, st); handled {
		return col, err
	}
	vals := make([]uuid.UUID, rows)
	for i := range vals {
		hi, err := r.Fixed64()
		if err != nil {
			return nil, err
		}
		lo, err := r.Fixed64()
		if err != nil {
			return nil, err
		}
		binary.BigEndian.PutUint64(vals[i][0:8], hi)
		binary.BigEndian.PutUint64(vals[i][8:16], lo)
	}
	return column.NewUUIDs(c.typ, vals), nil
}

func (c *uuidCodec) Encode(w *binio.Writer, col column.Column) error {
	u, ok := col.(*column.UUIDs)
	if !ok {
		return coercionErr(c.typ.String(), 0, col, "uuid column expected")
	}
	for _, v := range u.Values {
		w.Fixed64(binary.BigEndian.Uint64(v[0:8]))
		w.Fixed64(binary.BigEndian.Uint64(v[8:16]))
	}
	return nil
}

func (c *uuidCodec) coerce(v any) (uuid.UUID, error) {
	switch x := v.(type) {
	case uuid.UUID:
		return x, nil
	case [16]byte:
		return uuid.UUID(x), nil
	case string:
		u, err := uuid.Parse(x)
		if err != nil {
			return uuid.UUID{}, fmt.Errorf("not a UUID string")
		}
		return u, nil
	}
	return uuid.UUID{}, fmt.Errorf("unsupported value kind")
}

func (c *uuidCodec) FromValues(values []any) (column.Column, error) {
	vals := make([]uuid.UUID, len(values))
	for i, v := range values {
		u, err := c.coerce(v)
		if err != nil {
			return nil, coercionErr(c.typ.String(), i, v, err.Error())
		}
		vals[i] = u
	}
	return column.NewUUIDs(c.typ, vals), nil
}

func (c *uuidCodec) ZeroValue() any {
	return uuid.UUID{}.String()
}
