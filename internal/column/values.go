// Package column defines the typed column containers produced by the
// codec layer and the value wrappers their Get accessors materialize.
// A column is immutable once built and always carries its full type
// expression, so it can be re-encoded without external context.
package column

import (
	"fmt"
	"math"
	"time"
)

// Opts controls value materialization only; it never affects storage.
type Opts struct {
	// BigIntAsString converts 64-bit and wider integers to decimal strings.
	BigIntAsString bool
	// EnumAsNumber returns enum discriminants instead of labels.
	EnumAsNumber bool
	// MapAsArray materializes Map values as []any of [key, value] pairs
	// instead of an OrderedMap.
	MapAsArray bool
}

// DateTime64Value carries a DateTime64 tick count together with its
// precision (ticks are 10^-precision seconds). Conversion to time.Time
// is lossy only when precision exceeds nanoseconds.
type DateTime64Value struct {
	Ticks     int64
	Precision int
}

// Time converts the value to a time.Time in UTC.
func (v DateTime64Value) Time() time.Time {
	scale := int64(math.Pow10(v.Precision))
	sec := v.Ticks / scale
	frac := v.Ticks % scale
	if frac < 0 {
		sec--
		frac += scale
	}
	nanos := frac
	for i := v.Precision; i < 9; i++ {
		nanos *= 10
	}
	for i := 9; i < v.Precision; i++ {
		nanos /= 10
	}
	return time.Unix(sec, nanos).UTC()
}

func (v DateTime64Value) String() string {
	return fmt.Sprintf("%s (ticks=%d, p=%d)", v.Time().Format(time.RFC3339Nano), v.Ticks, v.Precision)
}

// VariantValue is the materialized form of a Variant or Dynamic row: the
// active discriminant plus the value decoded from that variant. The Null
// variant materializes as an untyped nil, never as a VariantValue.
type VariantValue struct {
	Discriminant uint8
	Value        any
}

// TypedValue pins a value to an explicit type expression when feeding a
// Dynamic column, bypassing type inference.
type TypedValue struct {
	TypeExpr string
	Value    any
}

// Field is one entry of a Record.
type Field struct {
	Name  string
	Value any
}

// Record is an ordered name/value sequence used for named tuples, Nested
// rows and JSON objects. Order is the declaration (or observation) order.
type Record []Field

// Get returns the value of the first field with the given name.
func (r Record) Get(name string) (any, bool) {
	for _, f := range r {
		if f.Name == name {
			return f.Value, true
		}
	}
	return nil, false
}

// KV is one entry of an OrderedMap.
type KV struct {
	Key   any
	Value any
}

// OrderedMap is an insertion-ordered multimap. Key uniqueness is not
// enforced on decode; Get returns the first match.
type OrderedMap []KV

// Get returns the first value stored under key.
func (m OrderedMap) Get(key any) (any, bool) {
	for _, kv := range m {
		if kv.Key == key {
			return kv.Value, true
		}
	}
	return nil, false
}
