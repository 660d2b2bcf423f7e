// Package chnative is a columnar codec for the native wire format of a
// columnar analytic database: per-type column codecs, self-describing
// block framing, a streaming block decoder/encoder, and the compressed
// block framing the transports stack underneath.
//
// The facade here covers the common paths. batch (record batches) and
// compress (compressed frames) are public packages; chtype (type
// grammar), codec (per-type codecs), column (typed containers), block
// (framing) and stream (drivers) live under internal/ and are reached
// through this facade.
package chnative

import (
	"bytes"
	"context"
	"io"

	"chnative/batch"
	"chnative/compress"
	"chnative/internal/binio"
	"chnative/internal/block"
	"chnative/internal/codec"
	"chnative/internal/stream"
)

// GetCodec returns the codec for a type expression. Callers that hold
// pre-built columns can use it to encode without going through a batch.
func GetCodec(typeExpr string) (codec.Codec, error) {
	return codec.Get(typeExpr)
}

// NewDecoder returns a streaming decoder over an uncompressed Native
// byte stream.
func NewDecoder(src stream.ChunkSource, opts Options) *stream.Decoder {
	return stream.NewDecoder(src, stream.Options{
		ClientVersion:        opts.ClientVersion,
		MinBufferSize:        opts.MinBufferSize,
		TrailingGarbageLimit: opts.TrailingGarbageLimit,
		Logger:               opts.logger(),
	})
}

// NewCompressedDecoder stacks compressed-block reassembly under the
// block decoder: src yields compressed bytes in arbitrary chunks, the
// decoder yields batches.
func NewCompressedDecoder(src stream.ChunkSource, opts Options) *stream.Decoder {
	cr := compress.NewReader(src)
	return NewDecoder(cr.Next, opts)
}

// NewEncoder returns a streaming encoder writing uncompressed blocks,
// one per batch, to w. Close emits the end-of-stream marker.
func NewEncoder(w io.Writer, opts Options) *stream.Encoder {
	return stream.NewEncoder(w, opts.ClientVersion)
}

// NewCompressedEncoder is NewEncoder with compressed-block framing
// stacked on the way out.
func NewCompressedEncoder(w io.Writer, m compress.Method, opts Options) *stream.Encoder {
	return stream.NewEncoder(compress.NewWriter(w, m), opts.ClientVersion)
}

// EncodeBatches one-shot encodes batches into a Native stream,
// end-of-stream marker included.
func EncodeBatches(batches []*batch.Batch, opts Options) ([]byte, error) {
	var buf bytes.Buffer
	enc := NewEncoder(&buf, opts)
	for _, b := range batches {
		if err := enc.Send(b); err != nil {
			return nil, err
		}
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// DecodeBatches one-shot decodes a complete Native stream.
func DecodeBatches(data []byte, opts Options) ([]*batch.Batch, error) {
	dec := NewDecoder(chunksOf(data), opts)
	var out []*batch.Batch
	for {
		b, err := dec.Next(context.Background())
		if err == io.EOF {
			return out, nil
		}
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
}

// EncodeBlock one-shot encodes a single batch as one block without an
// end marker, for callers that frame blocks themselves.
func EncodeBlock(b *batch.Batch, opts Options) ([]byte, error) {
	var w binio.Writer
	if err := block.Encode(&w, b, opts.ClientVersion); err != nil {
		return nil, err
	}
	return w.Bytes(), nil
}

// DecodeBlock one-shot decodes a single block.
func DecodeBlock(data []byte, opts Options) (*batch.Batch, error) {
	st := codec.NewDecodeState()
	return block.Decode(binio.NewReader(data), opts.ClientVersion, st)
}

// chunksOf yields data as a single chunk followed by EOF.
func chunksOf(data []byte) stream.ChunkSource {
	sent := false
	return func(ctx context.Context) ([]byte, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if sent {
			return nil, io.EOF
		}
		sent = true
		return data, nil
	}
}
