package chnative

import (
	"bytes"
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chnative/batch"
	"chnative/compress"
	"chnative/internal/stream"
)

func sampleBatch(t *testing.T) *batch.Batch {
	t.Helper()
	b, err := batch.FromRows([]batch.Col{
		{Name: "id", Type: "UInt32"},
		{Name: "name", Type: "String"},
		{Name: "value", Type: "Float64"},
	}, [][]any{
		{1, "alice", 1.5},
		{2, "bob", 2.5},
		{3, "charlie", 3.5},
	})
	require.NoError(t, err)
	return b
}

func TestEncodeDecodeBatches(t *testing.T) {
	in := sampleBatch(t)
	data, err := EncodeBatches([]*batch.Batch{in}, Options{ClientVersion: 1})
	require.NoError(t, err)

	out, err := DecodeBatches(data, Options{ClientVersion: 1})
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, map[string]any{"id": uint32(1), "name": "alice", "value": 1.5},
		out[0].Row(0).ToObject(nil))
	assert.Equal(t, in.ToRows(nil), out[0].ToRows(nil))
}

func TestEncodeDecodeSingleBlock(t *testing.T) {
	in := sampleBatch(t)
	data, err := EncodeBlock(in, Options{})
	require.NoError(t, err)
	out, err := DecodeBlock(data, Options{})
	require.NoError(t, err)
	assert.Equal(t, in.ToRows(nil), out.ToRows(nil))
}

func TestCompressedStreamEndToEnd(t *testing.T) {
	for _, m := range []compress.Method{compress.LZ4, compress.ZSTD, compress.None} {
		var wire bytes.Buffer
		enc := NewCompressedEncoder(&wire, m, Options{ClientVersion: 1})
		require.NoError(t, enc.Send(sampleBatch(t)))
		require.NoError(t, enc.Send(sampleBatch(t)))
		require.NoError(t, enc.Close())

		dec := NewCompressedDecoder(stream.FromReader(&wire), Options{ClientVersion: 1})
		var got []*batch.Batch
		for {
			b, err := dec.Next(context.Background())
			if err == io.EOF {
				break
			}
			require.NoError(t, err, "method %s", m)
			got = append(got, b)
		}
		require.Len(t, got, 2, "method %s", m)
		assert.Equal(t, 3, got[0].Len())
	}
}

func TestOptionsMaterialization(t *testing.T) {
	b, err := batch.FromRows([]batch.Col{
		{Name: "n", Type: "UInt64"},
		{Name: "e", Type: "Enum8('a' = 1, 'b' = 2)"},
	}, [][]any{{uint64(1) << 60, "b"}})
	require.NoError(t, err)

	opts := Options{BigIntAsString: true, EnumAsNumber: true}
	row := b.Row(0).ToObject(opts.ColumnOpts())
	assert.Equal(t, "1152921504606846976", row["n"])
	assert.Equal(t, 2, row["e"])
}

func TestGetCodec(t *testing.T) {
	c, err := GetCodec("Array(Nullable(String))")
	require.NoError(t, err)
	assert.Equal(t, "Array(Nullable(String))", c.Type().String())

	_, err = GetCodec("Nope(1)")
	require.Error(t, err)
}
