package codec

import (
	"fmt"
	"math/big"
	"strconv"

	"github.com/shopspring/decimal"

	"chnative/internal/binio"
	"chnative/internal/chtype"
	"chnative/internal/column"
)

// decimalCodec handles Decimal32/64/128/256(s) and the generic
// Decimal(p, s): a signed little-endian integer of the backing width,
// logically scaled by 10^-s. Materialization is a decimal string with
// exactly s fractional digits; encode accepts a numeric value or a
// decimal string.
type decimalCodec struct {
	base
	byteLen int
	scale   int
}

func newDecimalCodec(t chtype.Type) (Codec, error) {
	c := &decimalCodec{base: newBase(t)}
	switch t.Base {
	case "Decimal32":
		c.byteLen = 4
	case "Decimal64":
		c.byteLen = 8
	case "Decimal128":
		c.byteLen = 16
	case "Decimal256":
		c.byteLen = 32
	case "Decimal":
		if len(t.Params) != 2 {
			return nil, fmt.Errorf("Decimal requires (precision, scale)")
		}
		p, err := strconv.Atoi(t.Params[0])
		if err != nil {
			return nil, fmt.Errorf("Decimal: invalid precision %q", t.Params[0])
		}
		switch {
		case p <= 9:
			c.byteLen = 4
		case p <= 18:
			c.byteLen = 8
		case p <= 38:
			c.byteLen = 16
		case p <= 76:
			c.byteLen = 32
		default:
			return nil, fmt.Errorf("Decimal: precision %d out of range", p)
		}
	}
	scaleParam := t.Params[len(t.Params)-1]
	s, err := strconv.Atoi(scaleParam)
	if err != nil || s < 0 {
		return nil, fmt.Errorf("%s: invalid scale %q", t.Base, scaleParam)
	}
	c.scale = s
	return c, nil
}

func (c *decimalCodec) EstimateSize(rows int) int {
	return rows * c.byteLen
}

func (c *decimalCodec) Decode(r *binio.Reader, rows int, st *DecodeState) (column.Column, error) {
	if col, handled, err := interceptSparse(c, c.node, r, rows, st); handled {
		return col, err
	}
	vals := make([]decimal.Decimal, rows)
	for i := range vals {
		switch c.byteLen {
		case 4:
			v, err := r.Fixed32()
			if err != nil {
				return nil, err
			}
			vals[i] = decimal.New(int64(int32(v)), int32(-c.scale))
		case 8:
			v, err := r.Fixed64()
			if err != nil {
				return nil, err
			}
			vals[i] = decimal.New(int64(v), int32(-c.scale))
		default:
			v, err := r.BigInt(c.byteLen, true)
			if err != nil {
				return nil, err
			}
			vals[i] = decimal.NewFromBigInt(v, int32(-c.scale))
		}
	}
	return column.NewDec(c.typ, c.scale, vals), nil
}

func (c *decimalCodec) Encode(w *binio.Writer, col column.Column) error {
	d, ok := col.(*column.Dec)
	if !ok {
		return coercionErr(c.typ.String(), 0, col, "decimal column expected")
	}
	for i, v := range d.Values {
		raw, err := c.rawValue(v)
		if err != nil {
			return coercionErr(c.typ.String(), i, v, err.Error())
		}
		switch c.byteLen {
		case 4:
			w.Fixed32(uint32(int32(raw.Int64())))
		case 8:
			w.Fixed64(uint64(raw.Int64()))
		default:
			w.BigInt(raw, c.byteLen)
		}
	}
	return nil
}

// rawValue converts v to the backing integer, checking scale and width.
func (c *decimalCodec) rawValue(v decimal.Decimal) (*big.Int, error) {
	scaled := v.Shift(int32(c.scale))
	if !scaled.IsInteger() {
		return nil, fmt.Errorf("more than %d fractional digits", c.scale)
	}
	raw := scaled.BigInt()
	if err := fitsBits(raw, c.byteLen*8, true); err != nil {
		return nil, err
	}
	return raw, nil
}

func (c *decimalCodec) coerce(v any) (decimal.Decimal, error) {
	switch x := v.(type) {
	case decimal.Decimal:
		return x, nil
	case string:
		d, err := decimal.NewFromString(x)
		if err != nil {
			return decimal.Decimal{}, fmt.Errorf("not a decimal string")
		}
		return d, nil
	case float64:
		return decimal.NewFromFloat(x), nil
	case float32:
		return decimal.NewFromFloat32(x), nil
	case int, int8, int16, int32, int64:
		n, _ := toInt64(x)
		return decimal.New(n, 0), nil
	case uint, uint8, uint16, uint32, uint64:
		n, err := toUint64(x)
		if err != nil {
			return decimal.Decimal{}, err
		}
		return decimal.NewFromBigInt(new(big.Int).SetUint64(n), 0), nil
	case *big.Int:
		return decimal.NewFromBigInt(x, 0), nil
	}
	return decimal.Decimal{}, fmt.Errorf("unsupported value kind")
}

func (c *decimalCodec) FromValues(values []any) (column.Column, error) {
	vals := make([]decimal.Decimal, len(values))
	for i, v := range values {
		d, err := c.coerce(v)
		if err != nil {
			return nil, coercionErr(c.typ.String(), i, v, err.Error())
		}
		if _, err := c.rawValue(d); err != nil {
			return nil, coercionErr(c.typ.String(), i, v, err.Error())
		}
		vals[i] = d
	}
	return column.NewDec(c.typ, c.scale, vals), nil
}

func (c *decimalCodec) ZeroValue() any {
	return decimal.New(0, int32(-c.scale)).StringFixed(int32(c.scale))
}
