package codec

import (
	"sync"

	"github.com/go-faster/errors"

	"chnative/internal/chtype"
)

// The registry caches one codec per canonical type expression. It is
// process-wide and effectively immutable once the working set of types
// has been seen, so a read lock covers the hot path.
var registry = struct {
	sync.RWMutex
	codecs map[string]Codec
}{codecs: make(map[string]Codec)}

// Get returns the codec for a type expression, building and caching it
// on first use.
func Get(expr string) (Codec, error) {
	t, err := chtype.Parse(expr)
	if err != nil {
		return nil, err
	}
	return ForType(t)
}

// ForType is Get for an already-parsed type tree.
func ForType(t chtype.Type) (Codec, error) {
	key := t.Unnamed().String()

	registry.RLock()
	c, ok := registry.codecs[key]
	registry.RUnlock()
	if ok {
		return c, nil
	}

	c, err := build(t.Unnamed())
	if err != nil {
		return nil, errors.Wrapf(err, "codec for %q", key)
	}

	registry.Lock()
	if prev, ok := registry.codecs[key]; ok {
		c = prev
	} else {
		registry.codecs[key] = c
	}
	registry.Unlock()
	return c, nil
}

func build(t chtype.Type) (Codec, error) {
	switch t.Base {
	case "Int8", "Int16", "Int32", "Int64",
		"UInt8", "UInt16", "UInt32", "UInt64",
		"Float32", "Float64", "Bool":
		return newNumericCodec(t), nil
	case "Int128", "UInt128", "Int256", "UInt256":
		return newBigIntCodec(t), nil
	case "String":
		return newStringCodec(t), nil
	case "FixedString":
		return newFixedStringCodec(t)
	case "Date":
		return newDateCodec(t), nil
	case "Date32":
		return newDate32Codec(t), nil
	case "DateTime":
		return newDateTimeCodec(t), nil
	case "DateTime64":
		return newDateTime64Codec(t)
	case "UUID":
		return newUUIDCodec(t), nil
	case "IPv4", "IPv6":
		return newIPCodec(t), nil
	case "Enum8", "Enum16":
		return newEnumCodec(t)
	case "Decimal", "Decimal32", "Decimal64", "Decimal128", "Decimal256":
		return newDecimalCodec(t)
	case "Nullable":
		return newNullableCodec(t)
	case "Array":
		return newArrayCodec(t)
	case "Tuple":
		return newTupleCodec(t)
	case "Map":
		return newMapCodec(t)
	case "Nested":
		return newNestedCodec(t)
	case "LowCardinality":
		return newLowCardCodec(t)
	case "Variant":
		return newVariantCodec(t)
	case "Dynamic":
		return newDynamicCodec(t)
	case "JSON":
		return newJSONCodec(t)
	case "Point", "Ring", "Polygon", "MultiPolygon":
		return newGeoCodec(t)
	}
	return nil, errors.Errorf("unknown type %q", t.Base)
}

// newNestedCodec: Nested(f1 T1, ..., fk Tk) shares the wire form of
// Array(Tuple(T1, ..., Tk)) with field names preserved in the rows.
func newNestedCodec(t chtype.Type) (Codec, error) {
	tupleType := chtype.Type{Base: "Tuple", Args: t.Args}
	inner, err := newTupleCodec(tupleType)
	if err != nil {
		return nil, err
	}
	return &arrayCodec{base: newBase(t), inner: inner, estElems: 4}, nil
}
