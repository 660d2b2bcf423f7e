package stream

import (
	"bytes"
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chnative/batch"
	"chnative/internal/binio"
	"chnative/internal/block"
)

func chunked(data []byte, chunkSizes []int) ChunkSource {
	var chunks [][]byte
	for _, n := range chunkSizes {
		if n > len(data) {
			n = len(data)
		}
		chunks = append(chunks, data[:n])
		data = data[n:]
	}
	if len(data) > 0 {
		chunks = append(chunks, data)
	}
	i := 0
	return func(ctx context.Context) ([]byte, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if i >= len(chunks) {
			return nil, io.EOF
		}
		c := chunks[i]
		i++
		return c, nil
	}
}

func testStream(t *testing.T, numBlocks int) []byte {
	t.Helper()
	var buf bytes.Buffer
	enc := NewEncoder(&buf, 0)
	for i := 0; i < numBlocks; i++ {
		b, err := batch.FromRows([]batch.Col{
			{Name: "id", Type: "UInt32"},
			{Name: "name", Type: "String"},
		}, [][]any{
			{i*10 + 1, "alice"},
			{i*10 + 2, "bob"},
		})
		require.NoError(t, err)
		require.NoError(t, enc.Send(b))
	}
	require.NoError(t, enc.Close())
	return buf.Bytes()
}

func collect(t *testing.T, d *Decoder) []*batch.Batch {
	t.Helper()
	var out []*batch.Batch
	for {
		b, err := d.Next(context.Background())
		if err == io.EOF {
			return out
		}
		require.NoError(t, err)
		out = append(out, b)
	}
}

// ---------------------------------------------------------------------------
// Chunking invariance
// ---------------------------------------------------------------------------

func TestDecoderChunkingInvariance(t *testing.T) {
	data := testStream(t, 3)

	partitions := [][]int{
		{},                  // single chunk
		{1},                 // 1 byte, then the rest
		{len(data) / 2},     // halves
		{7, 7, 7, 7},        // small prefixes
		oneByteChunks(data), // fully byte-at-a-time
	}
	var want [][]any
	for pi, p := range partitions {
		d := NewDecoder(chunked(data, p), Options{})
		batches := collect(t, d)
		require.Len(t, batches, 3, "partition %d", pi)
		var rows [][][]any
		for _, b := range batches {
			rows = append(rows, b.ToRows(nil))
		}
		if want == nil {
			want = rows[0]
			_ = want
		}
		assert.Equal(t, [][]any{{uint32(1), "alice"}, {uint32(2), "bob"}}, rows[0], "partition %d", pi)
		assert.Equal(t, [][]any{{uint32(21), "alice"}, {uint32(22), "bob"}}, rows[2], "partition %d", pi)
		assert.Equal(t, 3, d.Blocks())
		assert.Equal(t, 6, d.Rows())
	}
}

func oneByteChunks(data []byte) []int {
	out := make([]int, len(data))
	for i := range out {
		out[i] = 1
	}
	return out
}

// ---------------------------------------------------------------------------
// Sparse runs across block boundaries
// ---------------------------------------------------------------------------

// sparseTwoBlockStream hand-builds a server-shaped stream: two blocks of
// one Array(UInt64) column, serialized sparse, with the default run
// crossing the block boundary.
func sparseTwoBlockStream(t *testing.T) []byte {
	t.Helper()
	const version = block.MinRevisionCustomSerialization
	var w binio.Writer

	writeHeader := func(rows int) {
		// Info prolog.
		w.UVarInt(1)
		w.Byte(0)
		w.UVarInt(2)
		w.Fixed32(0xffffffff)
		w.UVarInt(0)
		w.UVarInt(1) // one column
		w.UVarInt(uint64(rows))
		w.Str("arr")
		w.Str("Array(UInt64)")
		w.Byte(1) // has custom serialization
		w.Byte(1) // Array level: sparse
		w.Byte(0) // inner UInt64: dense
	}

	// Block 1, 4 rows: non-empty array at position 1, then a run of
	// defaults spilling two rows into block 2.
	writeHeader(4)
	w.UVarInt(2) // one default, value at position 1
	w.UVarInt(5) // run: positions 2,3 here and 0,1 of the next block
	w.Fixed64(2) // offsets of the single non-default row
	w.Fixed64(100)
	w.Fixed64(200)

	// Block 2, 4 rows: the carried run lands its value at position 2.
	writeHeader(4)
	w.UVarInt(0) // terminator after the carried value
	w.Fixed64(1)
	w.Fixed64(300)

	// End marker.
	w.UVarInt(1)
	w.Byte(0)
	w.UVarInt(2)
	w.Fixed32(0xffffffff)
	w.UVarInt(0)
	w.UVarInt(0)
	w.UVarInt(0)
	return w.Bytes()
}

func TestDecoderSparseRunAcrossBlocks(t *testing.T) {
	data := sparseTwoBlockStream(t)

	for pi, p := range [][]int{{}, {3, 9}, oneByteChunks(data)} {
		d := NewDecoder(chunked(data, p), Options{ClientVersion: block.MinRevisionCustomSerialization})
		batches := collect(t, d)
		require.Len(t, batches, 2, "partition %d", pi)

		assert.Equal(t, [][]any{
			{[]any{}},
			{[]any{uint64(100), uint64(200)}},
			{[]any{}},
			{[]any{}},
		}, batches[0].ToRows(nil), "partition %d", pi)
		assert.Equal(t, [][]any{
			{[]any{}},
			{[]any{}},
			{[]any{uint64(300)}},
			{[]any{}},
		}, batches[1].ToRows(nil), "partition %d", pi)
	}
}

// ---------------------------------------------------------------------------
// End-of-stream handling
// ---------------------------------------------------------------------------

func TestDecoderTrailingPaddingTolerated(t *testing.T) {
	// A short undecodable tail without an end marker is padding.
	var buf bytes.Buffer
	enc := NewEncoder(&buf, 0)
	b, err := batch.FromRows([]batch.Col{{Name: "v", Type: "Int64"}}, [][]any{{1}})
	require.NoError(t, err)
	require.NoError(t, enc.Send(b))
	data := append(buf.Bytes(), bytes.Repeat([]byte{0xfe}, 40)...)

	d := NewDecoder(chunked(data, nil), Options{})
	batches := collect(t, d)
	assert.Len(t, batches, 1)

	// Bytes after a clean end marker are ignored outright.
	data = append(testStream(t, 1), make([]byte, 40)...)
	d = NewDecoder(chunked(data, nil), Options{})
	batches = collect(t, d)
	assert.Len(t, batches, 1)
}

func TestDecoderLargeTrailingGarbageFails(t *testing.T) {
	// No end marker: the stream just degenerates into garbage.
	var buf bytes.Buffer
	enc := NewEncoder(&buf, 0)
	for i := 0; i < 2; i++ {
		b, err := batch.FromRows([]batch.Col{
			{Name: "id", Type: "UInt32"},
			{Name: "name", Type: "String"},
		}, [][]any{{1, "alice"}, {2, "bob"}})
		require.NoError(t, err)
		require.NoError(t, enc.Send(b))
	}
	data := append(buf.Bytes(), bytes.Repeat([]byte{0xfe}, 400)...)

	d := NewDecoder(chunked(data, nil), Options{})
	var got []*batch.Batch
	var err error
	for {
		var b *batch.Batch
		b, err = d.Next(context.Background())
		if err != nil {
			break
		}
		got = append(got, b)
	}
	require.NotEqual(t, io.EOF, err)
	var tge *TrailingGarbageError
	require.ErrorAs(t, err, &tge)
	assert.Equal(t, 2, tge.Blocks)
	assert.Equal(t, 4, tge.Rows)
	assert.GreaterOrEqual(t, tge.Bytes, 400)
	assert.Len(t, got, 2)
}

func TestDecoderMissingEndMarker(t *testing.T) {
	// A stream cut mid-block: whatever is buffered at EOF fails to
	// decode and is below the padding limit, so the stream ends cleanly
	// after the complete blocks.
	full := testStream(t, 2)
	cut := full[:len(full)-30]

	d := NewDecoder(chunked(cut, nil), Options{})
	batches := collect(t, d)
	assert.Len(t, batches, 1)
}

func TestDecoderStructuralErrorIsFatal(t *testing.T) {
	var w binio.Writer
	w.UVarInt(1)
	w.UVarInt(1)
	w.Str("c")
	w.Str("NotAType")
	w.Raw(make([]byte, 300))

	d := NewDecoder(chunked(w.Bytes(), nil), Options{})
	_, err := d.Next(context.Background())
	require.Error(t, err)
	require.NotEqual(t, io.EOF, err)

	// The decoder stays terminal afterwards.
	_, err = d.Next(context.Background())
	assert.Equal(t, io.EOF, err)
}

func TestDecoderCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	blocking := func(ctx context.Context) ([]byte, error) {
		return nil, ctx.Err()
	}
	d := NewDecoder(blocking, Options{})
	_, err := d.Next(ctx)
	require.ErrorIs(t, err, context.Canceled)
}

// ---------------------------------------------------------------------------
// Encoder
// ---------------------------------------------------------------------------

func TestEncoderOneBlockPerBatch(t *testing.T) {
	var buf bytes.Buffer
	enc := NewEncoder(&buf, 0)

	b1, err := batch.FromRows([]batch.Col{{Name: "v", Type: "Int64"}}, [][]any{{1}, {2}})
	require.NoError(t, err)
	b2, err := batch.FromRows([]batch.Col{{Name: "v", Type: "Int64"}}, [][]any{{3}})
	require.NoError(t, err)
	require.NoError(t, enc.Send(b1))
	require.NoError(t, enc.Send(b2))
	require.NoError(t, enc.Close())
	require.NoError(t, enc.Close(), "Close is idempotent")

	d := NewDecoder(chunked(buf.Bytes(), nil), Options{})
	batches := collect(t, d)
	require.Len(t, batches, 2)
	assert.Equal(t, 2, batches[0].Len())
	assert.Equal(t, 1, batches[1].Len())
}

// ---------------------------------------------------------------------------
// Ring buffer
// ---------------------------------------------------------------------------

func TestBufferAppendConsume(t *testing.T) {
	var b Buffer
	b.Append([]byte("hello "))
	b.Append([]byte("world"))
	assert.Equal(t, 11, b.Len())
	assert.Equal(t, []byte("hello world"), b.ReadView())

	b.Consume(6)
	assert.Equal(t, []byte("world"), b.ReadView())
	b.Consume(5)
	assert.Zero(t, b.Len())
}

func TestBufferCompaction(t *testing.T) {
	var b Buffer
	b.Append(bytes.Repeat([]byte{1}, 4096))
	capBefore := b.Cap()
	b.Consume(3000) // past half capacity, triggers compaction
	assert.Equal(t, 1096, b.Len())
	assert.Equal(t, capBefore, b.Cap())

	// Appending after compaction reuses the freed space.
	b.Append(bytes.Repeat([]byte{2}, 2900))
	assert.Equal(t, capBefore, b.Cap())
	assert.Equal(t, 3996, b.Len())
}

func TestBufferGrowthKeepsData(t *testing.T) {
	var b Buffer
	for i := 0; i < 100; i++ {
		b.Append(bytes.Repeat([]byte{byte(i)}, 1000))
	}
	assert.Equal(t, 100*1000, b.Len())
	view := b.ReadView()
	assert.Equal(t, byte(0), view[0])
	assert.Equal(t, byte(99), view[len(view)-1])
}
