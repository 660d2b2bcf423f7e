package codec

import (
	"fmt"
	"strconv"
	"strings"

	"chnative/internal/binio"
	"chnative/internal/chtype"
	"chnative/internal/column"
)

// stringCodec: varint length prefix + UTF-8 bytes per row.
type stringCodec struct {
	base
}

func newStringCodec(t chtype.Type) Codec {
	return &stringCodec{base: newBase(t)}
}

// Calibrated per-row constant for the block-size estimator; the
// estimator's slack absorbs longer strings and a retry covers the rest.
const estBytesPerString = 32

func (c *stringCodec) EstimateSize(rows int) int {
	return rows * estBytesPerString
}

func (c *stringCodec) Decode(r *binio.Reader, rows int, st *DecodeState) (column.Column, error) {
	if col, handled, err := interceptSparse(c, c.node, r, rows, st); handled {
		return col, err
	}
	vals := make([]string, rows)
	for i := range vals {
		s, err := r.Str()
		if err != nil {
			return nil, err
		}
		vals[i] = s
	}
	return column.NewStr(c.typ, vals), nil
}

func (c *stringCodec) Encode(w *binio.Writer, col column.Column) error {
	s, ok := col.(*column.Str)
	if !ok {
		return coercionErr(c.typ.String(), 0, col, "string column expected")
	}
	for _, v := range s.Values {
		w.Str(v)
	}
	return nil
}

func (c *stringCodec) FromValues(values []any) (column.Column, error) {
	vals := make([]string, len(values))
	for i, v := range values {
		s, err := toString(v)
		if err != nil {
			return nil, coercionErr(c.typ.String(), i, v, err.Error())
		}
		vals[i] = s
	}
	return column.NewStr(c.typ, vals), nil
}

func (c *stringCodec) ZeroValue() any { return "" }

// fixedStringCodec: exactly n bytes per row, no length prefix. Shorter
// values are zero-padded on encode; longer values are rejected.
type fixedStringCodec struct {
	base
	n int
}

func newFixedStringCodec(t chtype.Type) (Codec, error) {
	if len(t.Params) != 1 {
		return nil, fmt.Errorf("FixedString requires a length parameter")
	}
	n, err := strconv.Atoi(t.Params[0])
	if err != nil || n <= 0 {
		return nil, fmt.Errorf("FixedString: invalid length %q", t.Params[0])
	}
	return &fixedStringCodec{base: newBase(t), n: n}, nil
}

func (c *fixedStringCodec) EstimateSize(rows int) int {
	return rows * c.n
}

func (c *fixedStringCodec) Decode(r *binio.Reader, rows int, st *DecodeState) (column.Column, error) {
	if col, handled, err := interceptSparse(c, c.node, r, rows, st); handled {
		return col, err
	}
	vals := make([]string, rows)
	for i := range vals {
		p, err := r.Bytes(c.n)
		if err != nil {
			return nil, err
		}
		vals[i] = string(p)
	}
	return column.NewStr(c.typ, vals), nil
}

func (c *fixedStringCodec) Encode(w *binio.Writer, col column.Column) error {
	s, ok := col.(*column.Str)
	if !ok {
		return coercionErr(c.typ.String(), 0, col, "string column expected")
	}
	for i, v := range s.Values {
		if len(v) > c.n {
			return coercionErr(c.typ.String(), i, v, fmt.Sprintf("longer than %d bytes", c.n))
		}
		w.Raw([]byte(v))
		for j := len(v); j < c.n; j++ {
			w.Byte(0)
		}
	}
	return nil
}

func (c *fixedStringCodec) FromValues(values []any) (column.Column, error) {
	vals := make([]string, len(values))
	for i, v := range values {
		s, err := toString(v)
		if err != nil {
			return nil, coercionErr(c.typ.String(), i, v, err.Error())
		}
		if len(s) > c.n {
			return nil, coercionErr(c.typ.String(), i, v, fmt.Sprintf("longer than %d bytes", c.n))
		}
		if len(s) < c.n {
			s += strings.Repeat("\x00", c.n-len(s))
		}
		vals[i] = s
	}
	return column.NewStr(c.typ, vals), nil
}

func (c *fixedStringCodec) ZeroValue() any {
	return strings.Repeat("\x00", c.n)
}
