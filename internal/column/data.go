package column

import (
	"math/big"
	"net/netip"
	"strconv"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"chnative/internal/binio"
	"chnative/internal/chtype"
)

// Conv post-processes a stored element into its logical value. A nil
// Conv returns the element as-is.
type Conv[T binio.Fixed] func(v T, o *Opts) any

// Data is a dense column over a contiguous typed buffer: fixed-width
// primitives, enum discriminants, LowCardinality indices. Data access is
// zero-copy.
type Data[T binio.Fixed] struct {
	typ  chtype.Type
	data []T
	conv Conv[T]
}

// NewData wraps a typed buffer in a column. conv may be nil.
func NewData[T binio.Fixed](typ chtype.Type, data []T, conv Conv[T]) *Data[T] {
	return &Data[T]{typ: typ, data: data, conv: conv}
}

func (c *Data[T]) Type() chtype.Type { return c.typ }
func (c *Data[T]) Len() int          { return len(c.data) }

// Data returns the underlying buffer without copying.
func (c *Data[T]) Data() []T { return c.data }

func (c *Data[T]) Get(i int, o *Opts) any {
	if c.conv != nil {
		return c.conv(c.data[i], o)
	}
	return c.data[i]
}

// Str is a dense column of strings: String, FixedString.
type Str struct {
	typ    chtype.Type
	Values []string
}

func NewStr(typ chtype.Type, values []string) *Str {
	return &Str{typ: typ, Values: values}
}

func (c *Str) Type() chtype.Type     { return c.typ }
func (c *Str) Len() int              { return len(c.Values) }
func (c *Str) Get(i int, _ *Opts) any { return c.Values[i] }

// Big is a dense column of arbitrary-precision integers: Int128..UInt256.
type Big struct {
	typ    chtype.Type
	Values []*big.Int
}

func NewBig(typ chtype.Type, values []*big.Int) *Big {
	return &Big{typ: typ, Values: values}
}

func (c *Big) Type() chtype.Type { return c.typ }
func (c *Big) Len() int          { return len(c.Values) }

func (c *Big) Get(i int, o *Opts) any {
	if o != nil && o.BigIntAsString {
		return c.Values[i].String()
	}
	return c.Values[i]
}

// Dec is a dense column of Decimal32..Decimal256 values. Materialization
// is a decimal string with exactly Scale fractional digits.
type Dec struct {
	typ    chtype.Type
	Scale  int
	Values []decimal.Decimal
}

func NewDec(typ chtype.Type, scale int, values []decimal.Decimal) *Dec {
	return &Dec{typ: typ, Scale: scale, Values: values}
}

func (c *Dec) Type() chtype.Type { return c.typ }
func (c *Dec) Len() int          { return len(c.Values) }

func (c *Dec) Get(i int, _ *Opts) any {
	return c.Values[i].StringFixed(int32(c.Scale))
}

// UUIDs is a dense UUID column. Materialization is the canonical
// xxxxxxxx-xxxx-xxxx-xxxx-xxxxxxxxxxxx text form.
type UUIDs struct {
	typ    chtype.Type
	Values []uuid.UUID
}

func NewUUIDs(typ chtype.Type, values []uuid.UUID) *UUIDs {
	return &UUIDs{typ: typ, Values: values}
}

func (c *UUIDs) Type() chtype.Type     { return c.typ }
func (c *UUIDs) Len() int              { return len(c.Values) }
func (c *UUIDs) Get(i int, _ *Opts) any { return c.Values[i].String() }

// IPs is a dense IPv4 or IPv6 column. Materialization is dotted-quad for
// v4 and RFC 5952 compressed form for v6.
type IPs struct {
	typ    chtype.Type
	Values []netip.Addr
}

func NewIPs(typ chtype.Type, values []netip.Addr) *IPs {
	return &IPs{typ: typ, Values: values}
}

func (c *IPs) Type() chtype.Type     { return c.typ }
func (c *IPs) Len() int              { return len(c.Values) }
func (c *IPs) Get(i int, _ *Opts) any { return c.Values[i].String() }

// Int64Conv materializes a 64-bit integer honoring BigIntAsString.
func Int64Conv(v int64, o *Opts) any {
	if o != nil && o.BigIntAsString {
		return strconv.FormatInt(v, 10)
	}
	return v
}

// UInt64Conv materializes an unsigned 64-bit integer honoring
// BigIntAsString.
func UInt64Conv(v uint64, o *Opts) any {
	if o != nil && o.BigIntAsString {
		return strconv.FormatUint(v, 10)
	}
	return v
}
