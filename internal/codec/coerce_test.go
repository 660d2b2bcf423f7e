package codec

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ---------------------------------------------------------------------------
// Accepted coercions
// ---------------------------------------------------------------------------

func TestFromValuesNumericStrings(t *testing.T) {
	c, err := Get("Int32")
	require.NoError(t, err)
	col, err := c.FromValues([]any{"42", "-7", 5, int64(9)})
	require.NoError(t, err)
	assert.Equal(t, int32(42), col.Get(0, nil))
	assert.Equal(t, int32(-7), col.Get(1, nil))

	u, err := Get("UInt64")
	require.NoError(t, err)
	col, err = u.FromValues([]any{"18446744073709551615"})
	require.NoError(t, err)
	assert.Equal(t, uint64(18446744073709551615), col.Get(0, nil))
}

func TestFromValuesWholeFloats(t *testing.T) {
	c, err := Get("Int16")
	require.NoError(t, err)
	col, err := c.FromValues([]any{float64(12), float64(-3)})
	require.NoError(t, err)
	assert.Equal(t, int16(12), col.Get(0, nil))
}

func TestFromValuesBigIntForSmallColumn(t *testing.T) {
	c, err := Get("Int64")
	require.NoError(t, err)
	col, err := c.FromValues([]any{big.NewInt(123)})
	require.NoError(t, err)
	assert.Equal(t, int64(123), col.Get(0, nil))
}

// ---------------------------------------------------------------------------
// Rejections
// ---------------------------------------------------------------------------

func TestFromValuesRejections(t *testing.T) {
	cases := []struct {
		typeExpr string
		value    any
	}{
		{"Int8", 200},            // signed overflow
		{"Int8", -129},           // signed underflow
		{"UInt64", -1},           // negative for unsigned
		{"UInt64", "-5"},         // negative string for unsigned
		{"Int32", 1.5},           // non-integer for integer column
		{"Int32", "abc"},         // unparseable string
		{"Int32", []any{1}},      // wrong kind
		{"UInt128", big.NewInt(-1)},
		{"Float64", "not-a-num"},
		{"UUID", "not-a-uuid"},
		{"IPv4", "2001:db8::1"},  // v6 literal in a v4 column
		{"FixedString(2)", "abc"},
		{"Decimal32(2)", "1.234"}, // more fractional digits than scale
		{"Date", struct{}{}},
	}
	for _, tc := range cases {
		c, err := Get(tc.typeExpr)
		require.NoError(t, err, tc.typeExpr)
		_, err = c.FromValues([]any{tc.value})
		require.Error(t, err, "%s should reject %v", tc.typeExpr, tc.value)

		var ce *CoercionError
		require.ErrorAs(t, err, &ce, tc.typeExpr)
		assert.Equal(t, 0, ce.Row)
		assert.NotEmpty(t, ce.Reason)
	}
}

func TestCoercionErrorReportsRow(t *testing.T) {
	c, err := Get("Int8")
	require.NoError(t, err)
	_, err = c.FromValues([]any{1, 2, 999})
	require.Error(t, err)
	var ce *CoercionError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, 2, ce.Row)
	assert.Equal(t, "Int8", ce.Type)
	assert.Equal(t, 999, ce.Value)
}

// ---------------------------------------------------------------------------
// Idempotence: a second round trip through FromValues is a no-op
// ---------------------------------------------------------------------------

func TestCoercionIdempotent(t *testing.T) {
	for _, tc := range []struct {
		typeExpr string
		values   []any
	}{
		{"Int32", []any{"42", 7, float64(9)}},
		{"Decimal32(2)", []any{"1.50", 2, "3.25"}},
		{"Date", []any{"2024-01-15"}},
		{"UUID", []any{"550e8400-e29b-41d4-a716-446655440000"}},
	} {
		c, err := Get(tc.typeExpr)
		require.NoError(t, err)
		once, err := c.FromValues(tc.values)
		require.NoError(t, err)
		first := make([]any, once.Len())
		for i := range first {
			first[i] = once.Get(i, nil)
		}
		twice, err := c.FromValues(first)
		require.NoError(t, err, tc.typeExpr)
		second := make([]any, twice.Len())
		for i := range second {
			second[i] = twice.Get(i, nil)
		}
		assert.Equal(t, first, second, tc.typeExpr)
	}
}

func TestUnknownTypeIsFatal(t *testing.T) {
	_, err := Get("Frobnicate(Int32)")
	require.Error(t, err)
	_, err = Get("Array(Frobnicate)")
	require.Error(t, err)
}
