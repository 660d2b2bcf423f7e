package batch

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chnative/internal/column"
)

var sampleSchema = []Col{
	{Name: "id", Type: "UInt32"},
	{Name: "name", Type: "String"},
	{Name: "value", Type: "Float64"},
}

var sampleRows = [][]any{
	{1, "alice", 1.5},
	{2, "bob", 2.5},
	{3, "charlie", 3.5},
}

// ---------------------------------------------------------------------------
// Construction
// ---------------------------------------------------------------------------

func TestFromRows(t *testing.T) {
	b, err := FromRows(sampleSchema, sampleRows)
	require.NoError(t, err)
	assert.Equal(t, 3, b.Len())
	assert.Equal(t, 3, b.NumCols())
	assert.Equal(t, []string{"id", "name", "value"}, b.ColumnNames())
	assert.Equal(t, sampleSchema, b.Schema())

	assert.Equal(t, map[string]any{"id": uint32(1), "name": "alice", "value": 1.5},
		b.Row(0).ToObject(nil))
}

func TestFromRowsCanonicalValuesRoundTrip(t *testing.T) {
	// Values already in canonical representation come back unchanged.
	rows := [][]any{
		{uint32(1), "alice", 1.5},
		{uint32(2), "bob", 2.5},
	}
	b, err := FromRows(sampleSchema, rows)
	require.NoError(t, err)
	assert.Equal(t, rows, b.ToRows(nil))
}

func TestFromArrays(t *testing.T) {
	b, err := FromArrays(sampleSchema, map[string][]any{
		"id":    {1, 2, 3},
		"name":  {"alice", "bob", "charlie"},
		"value": {1.5, 2.5, 3.5},
	})
	require.NoError(t, err)
	assert.Equal(t, 3, b.Len())
	v, ok := b.Row(2).Get("name")
	require.True(t, ok)
	assert.Equal(t, "charlie", v)

	_, err = FromArrays(sampleSchema, map[string][]any{"id": {1}})
	require.Error(t, err, "missing columns are rejected")

	_, err = FromArrays(sampleSchema, map[string][]any{
		"id": {1}, "name": {"a"}, "value": {1.0, 2.0},
	})
	require.Error(t, err, "ragged columns are rejected")
}

func TestFromCols(t *testing.T) {
	src, err := FromRows(sampleSchema, sampleRows)
	require.NoError(t, err)

	b, err := FromCols([]string{"a", "b"}, []column.Column{src.Column(0), src.Column(1)})
	require.NoError(t, err)
	assert.Equal(t, 3, b.Len())

	_, err = FromCols([]string{"one"}, []column.Column{src.Column(0), src.Column(1)})
	require.Error(t, err)
}

func TestFromRowSeq(t *testing.T) {
	seq := func(yield func([]any) bool) {
		for _, r := range sampleRows {
			if !yield(r) {
				return
			}
		}
	}
	b, err := FromRowSeq(sampleSchema, seq)
	require.NoError(t, err)
	assert.Equal(t, 3, b.Len())
}

func TestFromRowChan(t *testing.T) {
	ch := make(chan []any, len(sampleRows))
	for _, r := range sampleRows {
		ch <- r
	}
	close(ch)
	b, err := FromRowChan(context.Background(), sampleSchema, ch)
	require.NoError(t, err)
	assert.Equal(t, 3, b.Len())

	blocked := make(chan []any)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = FromRowChan(ctx, sampleSchema, blocked)
	require.ErrorIs(t, err, context.Canceled)
}

func TestBuilder(t *testing.T) {
	bld := NewBuilder(sampleSchema)
	for _, r := range sampleRows {
		require.NoError(t, bld.Append(r...))
	}
	require.Error(t, bld.Append(1, "too-few"))
	assert.Equal(t, 3, bld.Len())

	b, err := bld.Build()
	require.NoError(t, err)
	assert.Equal(t, 3, b.Len())
	assert.Zero(t, bld.Len(), "Build resets the builder")
}

// ---------------------------------------------------------------------------
// Row proxies
// ---------------------------------------------------------------------------

func TestRowProxiesAreDistinct(t *testing.T) {
	b, err := FromRows(sampleSchema, sampleRows)
	require.NoError(t, err)

	rows := b.Rows()
	require.Len(t, rows, 3)
	seen := map[int]bool{}
	for i, r := range rows {
		assert.Equal(t, i, r.Index())
		assert.False(t, seen[r.Index()], "row proxies must not be a reused view")
		seen[r.Index()] = true

		obj := r.ToObject(nil)
		byIndexing := map[string]any{}
		for j, name := range b.ColumnNames() {
			byIndexing[name] = b.Column(j).Get(i, nil)
		}
		assert.Equal(t, byIndexing, obj)
	}
}

func TestRowToArrayOrder(t *testing.T) {
	b, err := FromRows(sampleSchema, sampleRows)
	require.NoError(t, err)
	assert.Equal(t, []any{uint32(2), "bob", 2.5}, b.Row(1).ToArray(nil))
}

func TestDuplicateColumnNames(t *testing.T) {
	src, err := FromRows([]Col{{Name: "x", Type: "Int32"}, {Name: "x", Type: "String"}},
		[][]any{{1, "a"}})
	require.NoError(t, err)
	c, ok := src.ColumnByName("x")
	require.True(t, ok)
	assert.Equal(t, "Int32", c.Type().String(), "first match wins")
}

// ---------------------------------------------------------------------------
// Coercion failures
// ---------------------------------------------------------------------------

func TestFromRowsCoercionFailures(t *testing.T) {
	_, err := FromRows(sampleSchema, [][]any{{1, "alice", "not-a-float"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"value"`, "error names the column")

	_, err = FromRows(sampleSchema, [][]any{{1.5, "alice", 1.0}})
	require.Error(t, err, "non-integer for integer column")

	_, err = FromRows(sampleSchema, [][]any{{-1, "alice", 1.0}})
	require.Error(t, err, "negative for unsigned column")

	_, err = FromRows(sampleSchema, [][]any{{1, "alice"}})
	require.Error(t, err, "short row")
}

// ---------------------------------------------------------------------------
// Seed scenarios with containers
// ---------------------------------------------------------------------------

func TestNullableRows(t *testing.T) {
	b, err := FromRows([]Col{
		{Name: "id", Type: "Int32"},
		{Name: "val", Type: "Nullable(Int32)"},
	}, [][]any{{1, 100}, {2, nil}, {3, 300}})
	require.NoError(t, err)
	assert.Equal(t, [][]any{
		{int32(1), int32(100)},
		{int32(2), nil},
		{int32(3), int32(300)},
	}, b.ToRows(nil))
}

func TestArrayRows(t *testing.T) {
	b, err := FromRows([]Col{
		{Name: "id", Type: "Int32"},
		{Name: "arr", Type: "Array(Int32)"},
	}, [][]any{
		{1, []any{1, 2, 3}},
		{2, []any{}},
		{3, []any{42}},
	})
	require.NoError(t, err)
	assert.Equal(t, [][]any{
		{int32(1), []any{int32(1), int32(2), int32(3)}},
		{int32(2), []any{}},
		{int32(3), []any{int32(42)}},
	}, b.ToRows(nil))
}
