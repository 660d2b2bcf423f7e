package codec

import (
	"math"
	"math/big"
	"testing"
	"time"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chnative/internal/binio"
	"chnative/internal/column"
)

// roundTrip encodes a column built from values and decodes it back,
// asserting that materialization is unchanged and that every encoded
// byte is consumed.
func roundTrip(t *testing.T, typeExpr string, values []any) column.Column {
	t.Helper()
	c, err := Get(typeExpr)
	require.NoError(t, err, typeExpr)

	col, err := c.FromValues(values)
	require.NoError(t, err, typeExpr)
	require.Equal(t, len(values), col.Len())

	var w binio.Writer
	require.NoError(t, c.WritePrefix(&w, col))
	require.NoError(t, c.Encode(&w, col))

	r := binio.NewReader(w.Bytes())
	st := NewDecodeState()
	require.NoError(t, c.ReadPrefix(r, st))
	got, err := c.Decode(r, len(values), st)
	require.NoError(t, err, typeExpr)
	assert.Zero(t, r.Remaining(), "%s: %d bytes left over", typeExpr, r.Remaining())

	assert.Equal(t,
		column.Materialize(col, nil),
		column.Materialize(got, nil),
		"round trip for %s", typeExpr)
	return got
}

// ---------------------------------------------------------------------------
// Primitives
// ---------------------------------------------------------------------------

func TestRoundTripIntegers(t *testing.T) {
	roundTrip(t, "Int8", []any{int8(-128), int8(0), int8(127)})
	roundTrip(t, "Int16", []any{int16(-32768), int16(1), int16(32767)})
	roundTrip(t, "Int32", []any{int32(math.MinInt32), int32(-1), int32(math.MaxInt32)})
	roundTrip(t, "Int64", []any{int64(math.MinInt64), int64(0), int64(math.MaxInt64)})
	roundTrip(t, "UInt8", []any{uint8(0), uint8(255)})
	roundTrip(t, "UInt16", []any{uint16(0), uint16(65535)})
	roundTrip(t, "UInt32", []any{uint32(0), uint32(math.MaxUint32)})
	roundTrip(t, "UInt64", []any{uint64(0), uint64(math.MaxUint64)})
}

func TestRoundTripBigIntegers(t *testing.T) {
	roundTrip(t, "Int128", []any{
		big.NewInt(0),
		big.NewInt(-1),
		new(big.Int).Lsh(big.NewInt(1), 100),
		new(big.Int).Neg(new(big.Int).Lsh(big.NewInt(1), 127)),
	})
	roundTrip(t, "UInt128", []any{
		big.NewInt(7),
		new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 128), big.NewInt(1)),
	})
	roundTrip(t, "Int256", []any{
		big.NewInt(42),
		new(big.Int).Neg(new(big.Int).Lsh(big.NewInt(1), 255)),
	})
	roundTrip(t, "UInt256", []any{
		big.NewInt(0),
		new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1)),
	})
}

func TestRoundTripFloats(t *testing.T) {
	roundTrip(t, "Float32", []any{float32(1.5), float32(-0.25), float32(math.MaxFloat32)})
	roundTrip(t, "Float64", []any{1.5, -2.5, math.MaxFloat64, math.SmallestNonzeroFloat64})
}

func TestRoundTripFloatNaN(t *testing.T) {
	c, err := Get("Float64")
	require.NoError(t, err)
	col, err := c.FromValues([]any{math.NaN()})
	require.NoError(t, err)

	var w binio.Writer
	require.NoError(t, c.Encode(&w, col))
	got, err := c.Decode(binio.NewReader(w.Bytes()), 1, NewDecodeState())
	require.NoError(t, err)
	v := got.Get(0, nil).(float64)
	assert.True(t, math.IsNaN(v))
}

func TestRoundTripBool(t *testing.T) {
	got := roundTrip(t, "Bool", []any{true, false, true})
	assert.Equal(t, uint8(1), got.Get(0, nil))
	assert.Equal(t, uint8(0), got.Get(1, nil))
}

func TestRoundTripStrings(t *testing.T) {
	roundTrip(t, "String", []any{"", "hello", "with \x00 bytes", "日本語"})
	got := roundTrip(t, "FixedString(8)", []any{"abc", "12345678"})
	assert.Equal(t, "abc\x00\x00\x00\x00\x00", got.Get(0, nil))
}

func TestRoundTripTemporal(t *testing.T) {
	roundTrip(t, "Date", []any{"1970-01-01", "2024-01-15", "2149-06-06"})
	roundTrip(t, "Date32", []any{"1925-01-01", "1970-01-01", "2100-12-31"})
	roundTrip(t, "DateTime", []any{
		time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC),
		time.Unix(0, 0).UTC(),
	})
	got := roundTrip(t, "Date", []any{"2024-01-15"})
	assert.Equal(t, time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC), got.Get(0, nil))
}

func TestDateTime64Ticks(t *testing.T) {
	// Seed scenario: 2024-01-15T10:30:00.123Z at millisecond precision.
	got := roundTrip(t, "DateTime64(3)", []any{"2024-01-15T10:30:00.123Z"})
	v := got.Get(0, nil).(column.DateTime64Value)
	assert.Equal(t, int64(1705314600123), v.Ticks)
	assert.Equal(t, 3, v.Precision)
	assert.Equal(t, time.Date(2024, 1, 15, 10, 30, 0, 123e6, time.UTC), v.Time())
}

func TestRoundTripUUID(t *testing.T) {
	// Seed scenario: canonical text survives the limb-swapped wire form.
	got := roundTrip(t, "UUID", []any{
		"550e8400-e29b-41d4-a716-446655440000",
		"00000000-0000-0000-0000-000000000000",
	})
	assert.Equal(t, "550e8400-e29b-41d4-a716-446655440000", got.Get(0, nil))
}

func TestRoundTripIPv4TextPreserved(t *testing.T) {
	// Regression: octets must not come back reversed.
	got := roundTrip(t, "IPv4", []any{"192.168.1.1", "0.0.0.0", "255.255.255.255"})
	assert.Equal(t, "192.168.1.1", got.Get(0, nil))
}

func TestIPv4WireIsLittleEndian(t *testing.T) {
	c, err := Get("IPv4")
	require.NoError(t, err)
	col, err := c.FromValues([]any{"1.2.3.4"})
	require.NoError(t, err)
	var w binio.Writer
	require.NoError(t, c.Encode(&w, col))
	// The UInt32 0x01020304 stored little-endian: low octet first.
	assert.Equal(t, []byte{4, 3, 2, 1}, w.Bytes())
}

func TestRoundTripIPv6(t *testing.T) {
	got := roundTrip(t, "IPv6", []any{"2001:db8::1", "::1"})
	assert.Equal(t, "2001:db8::1", got.Get(0, nil))
	assert.Equal(t, "::1", got.Get(1, nil))
}

func TestRoundTripEnums(t *testing.T) {
	got := roundTrip(t, "Enum8('a' = 1, 'b' = 2)", []any{"a", "b", "a"})
	assert.Equal(t, "a", got.Get(0, nil))
	assert.Equal(t, 2, got.Get(1, &column.Opts{EnumAsNumber: true}))

	roundTrip(t, "Enum16('up' = -1, 'down' = 300)", []any{"up", "down", -1, 300})
}

func TestEnumUnknownValues(t *testing.T) {
	c, err := Get("Enum8('a' = 1)")
	require.NoError(t, err)
	_, err = c.FromValues([]any{"nope"})
	require.Error(t, err)
	_, err = c.FromValues([]any{7})
	require.Error(t, err)

	// An unknown discriminant on the wire is a structural error.
	_, err = c.Decode(binio.NewReader([]byte{9}), 1, NewDecodeState())
	require.Error(t, err)
	var se *StructuralError
	require.ErrorAs(t, err, &se)
}

func TestRoundTripDecimals(t *testing.T) {
	got := roundTrip(t, "Decimal32(2)", []any{"1.50", "-2.25", "0.00"})
	assert.Equal(t, "1.50", got.Get(0, nil))
	assert.Equal(t, "-2.25", got.Get(1, nil))

	roundTrip(t, "Decimal64(4)", []any{"123456.7890", "-0.0001"})
	roundTrip(t, "Decimal128(10)", []any{"12345678901234567890.0123456789"})
	roundTrip(t, "Decimal256(20)", []any{"-1234567890123456789012345678901234.56789012345678901234"})
	roundTrip(t, "Decimal(38, 10)", []any{"42.5000000000"})
}

// ---------------------------------------------------------------------------
// Containers
// ---------------------------------------------------------------------------

func TestRoundTripNullable(t *testing.T) {
	got := roundTrip(t, "Nullable(Int32)", []any{int32(100), nil, int32(300)})
	assert.Equal(t, int32(100), got.Get(0, nil))
	assert.Nil(t, got.Get(1, nil))

	roundTrip(t, "Nullable(String)", []any{nil, "x", nil})
}

func TestRoundTripArray(t *testing.T) {
	got := roundTrip(t, "Array(Int32)", []any{
		[]any{int32(1), int32(2), int32(3)},
		[]any{},
		[]any{int32(42)},
	})
	assert.Equal(t, []any{}, got.Get(1, nil))

	roundTrip(t, "Array(Array(String))", []any{
		[]any{[]any{"a"}, []any{}},
		[]any{},
	})
	roundTrip(t, "Array(Nullable(Int64))", []any{
		[]any{int64(1), nil, int64(3)},
	})
}

func TestRoundTripTuples(t *testing.T) {
	got := roundTrip(t, "Tuple(Int32, String)", []any{
		[]any{int32(1), "a"},
		[]any{int32(2), "b"},
	})
	assert.Equal(t, []any{int32(1), "a"}, got.Get(0, nil))

	named := roundTrip(t, "Tuple(x Int32, y String)", []any{
		[]any{int32(1), "a"},
		column.Record{{Name: "x", Value: int32(2)}, {Name: "y", Value: "b"}},
	})
	rec := named.Get(1, nil).(column.Record)
	x, ok := rec.Get("x")
	require.True(t, ok)
	assert.Equal(t, int32(2), x)
}

func TestRoundTripMap(t *testing.T) {
	got := roundTrip(t, "Map(String, UInt64)", []any{
		column.OrderedMap{{Key: "a", Value: uint64(1)}, {Key: "b", Value: uint64(2)}},
		column.OrderedMap{},
		column.OrderedMap{{Key: "z", Value: uint64(9)}},
	})
	m := got.Get(0, nil).(column.OrderedMap)
	require.Len(t, m, 2)
	assert.Equal(t, column.KV{Key: "a", Value: uint64(1)}, m[0])

	asArr := got.Get(0, &column.Opts{MapAsArray: true}).([]any)
	assert.Equal(t, []any{"a", uint64(1)}, asArr[0])
}

func TestRoundTripNested(t *testing.T) {
	got := roundTrip(t, "Nested(id UInt64, tag String)", []any{
		[]any{
			column.Record{{Name: "id", Value: uint64(1)}, {Name: "tag", Value: "x"}},
			column.Record{{Name: "id", Value: uint64(2)}, {Name: "tag", Value: "y"}},
		},
		[]any{},
	})
	rows := got.Get(0, nil).([]any)
	require.Len(t, rows, 2)
	rec := rows[1].(column.Record)
	id, _ := rec.Get("id")
	assert.Equal(t, uint64(2), id)
}

func TestRoundTripLowCardinality(t *testing.T) {
	roundTrip(t, "LowCardinality(String)", []any{"x", "y", "x", "x", "z"})
}

func TestLowCardinalityNullableDictionary(t *testing.T) {
	// Seed scenario: the dictionary holds exactly {null, "active",
	// "inactive"} with slot 0 as the null placeholder.
	values := []any{"active", "inactive", nil, "active", "inactive", nil, "active"}
	got := roundTrip(t, "LowCardinality(Nullable(String))", values)

	lc := got.(*column.LowCard)
	require.Equal(t, 3, lc.Dict.Len())
	assert.Equal(t, "", lc.Dict.Get(0, nil), "slot 0 is the null placeholder")
	assert.Equal(t, "active", lc.Dict.Get(1, nil))
	assert.Equal(t, "inactive", lc.Dict.Get(2, nil))
	assert.Nil(t, got.Get(2, nil))
}

func TestRoundTripVariant(t *testing.T) {
	// Seed scenario: explicit [discriminant, value] pairs and a null row.
	got := roundTrip(t, "Variant(String, UInt64)", []any{
		[]any{0, "hello"},
		[]any{1, 42},
		nil,
		[]any{0, "world"},
	})
	assert.Equal(t, column.VariantValue{Discriminant: 0, Value: "hello"}, got.Get(0, nil))
	assert.Equal(t, column.VariantValue{Discriminant: 1, Value: uint64(42)}, got.Get(1, nil))
	assert.Nil(t, got.Get(2, nil))
}

func TestVariantInference(t *testing.T) {
	c, err := Get("Variant(String, UInt64, Bool)")
	require.NoError(t, err)
	col, err := c.FromValues([]any{"text", uint64(7), true, nil})
	require.NoError(t, err)
	assert.Equal(t, column.VariantValue{Discriminant: 0, Value: "text"}, col.Get(0, nil))
	assert.Equal(t, column.VariantValue{Discriminant: 1, Value: uint64(7)}, col.Get(1, nil))
	assert.Equal(t, column.VariantValue{Discriminant: 2, Value: uint8(1)}, col.Get(2, nil))
	assert.Nil(t, col.Get(3, nil))
}

func TestRoundTripDynamic(t *testing.T) {
	c, err := Get("Dynamic")
	require.NoError(t, err)
	col, err := c.FromValues([]any{"hello", int64(-5), nil, 3.5, true})
	require.NoError(t, err)

	var w binio.Writer
	require.NoError(t, c.WritePrefix(&w, col))
	require.NoError(t, c.Encode(&w, col))

	st := NewDecodeState()
	r := binio.NewReader(w.Bytes())
	require.NoError(t, c.ReadPrefix(r, st))
	got, err := c.Decode(r, col.Len(), st)
	require.NoError(t, err)
	assert.Zero(t, r.Remaining())
	assert.Equal(t, column.Materialize(col, nil), column.Materialize(got, nil))

	// The null row stays a plain nil.
	assert.Nil(t, got.Get(2, nil))
	dyn := got.(*column.Dynamic)
	assert.Equal(t, []string{"Bool", "Float64", "Int64", "String"}, dyn.TypeNames)
}

func TestDynamicRejectsOtherVersions(t *testing.T) {
	c, err := Get("Dynamic")
	require.NoError(t, err)
	var w binio.Writer
	w.UVarInt(1) // pre-V3 layout
	err = c.ReadPrefix(binio.NewReader(w.Bytes()), NewDecodeState())
	require.Error(t, err)
	var se *StructuralError
	require.ErrorAs(t, err, &se)
}

func TestRoundTripJSON(t *testing.T) {
	c, err := Get("JSON(a.b UInt32, a.s String)")
	require.NoError(t, err)
	col, err := c.FromValues([]any{
		map[string]any{"a.b": uint32(1), "a.s": "x", "extra": "e1"},
		map[string]any{"a.b": uint32(2), "a.s": "y"},
		map[string]any{"other": int64(9)},
	})
	require.NoError(t, err)

	var w binio.Writer
	require.NoError(t, c.WritePrefix(&w, col))
	require.NoError(t, c.Encode(&w, col))

	st := NewDecodeState()
	r := binio.NewReader(w.Bytes())
	require.NoError(t, c.ReadPrefix(r, st))
	got, err := c.Decode(r, col.Len(), st)
	require.NoError(t, err)
	assert.Zero(t, r.Remaining())
	assert.Equal(t, column.Materialize(col, nil), column.Materialize(got, nil))

	// Typed paths fall back to defaults; absent dynamic keys are omitted.
	rec := got.Get(2, nil).(column.Record)
	ab, ok := rec.Get("a.b")
	require.True(t, ok)
	assert.Equal(t, uint32(0), ab)
	_, hasExtra := rec.Get("extra")
	assert.False(t, hasExtra)
	other, ok := rec.Get("other")
	require.True(t, ok)
	assert.Equal(t, column.VariantValue{Discriminant: 0, Value: int64(9)}, other)
}

// ---------------------------------------------------------------------------
// Geo aliases
// ---------------------------------------------------------------------------

func TestRoundTripGeo(t *testing.T) {
	got := roundTrip(t, "Point", []any{orb.Point{1.5, -2.5}, orb.Point{0, 0}})
	assert.Equal(t, orb.Point{1.5, -2.5}, got.Get(0, nil))

	ring := orb.Ring{{0, 0}, {1, 0}, {1, 1}, {0, 0}}
	roundTrip(t, "Ring", []any{ring, orb.Ring{}})

	poly := orb.Polygon{ring, {{0.2, 0.2}, {0.4, 0.2}, {0.3, 0.3}, {0.2, 0.2}}}
	gotPoly := roundTrip(t, "Polygon", []any{poly})
	assert.Equal(t, poly, gotPoly.Get(0, nil))

	mp := orb.MultiPolygon{poly, {ring}}
	gotMP := roundTrip(t, "MultiPolygon", []any{mp})
	assert.Equal(t, mp, gotMP.Get(0, nil))
}

// ---------------------------------------------------------------------------
// Deep nesting
// ---------------------------------------------------------------------------

func TestRoundTripDeepNesting(t *testing.T) {
	roundTrip(t, "Nullable(Array(Tuple(x Int32, y String)))", []any{
		[]any{
			[]any{int32(1), "a"},
			[]any{int32(2), "b"},
		},
		nil,
		[]any{},
	})
	roundTrip(t, "Map(LowCardinality(String), Array(Nullable(UInt64)))", []any{
		column.OrderedMap{
			{Key: "k", Value: []any{uint64(1), nil}},
		},
	})
	roundTrip(t, "Array(Map(String, Tuple(Int8, Int8)))", []any{
		[]any{
			column.OrderedMap{{Key: "p", Value: []any{int8(1), int8(2)}}},
		},
		[]any{},
	})
}

func TestRoundTripBigIntAsString(t *testing.T) {
	got := roundTrip(t, "UInt64", []any{uint64(math.MaxUint64)})
	assert.Equal(t, "18446744073709551615", got.Get(0, &column.Opts{BigIntAsString: true}))
	assert.Equal(t, uint64(math.MaxUint64), got.Get(0, nil))

	big256 := roundTrip(t, "Int128", []any{big.NewInt(-42)})
	assert.Equal(t, "-42", big256.Get(0, &column.Opts{BigIntAsString: true}))
}
