// Package codec implements the per-type encoders and decoders of the
// Native columnar format. A codec is built once per type expression
// through the process-wide registry and is safe for concurrent use; all
// per-stream decode state lives in DecodeState.
package codec

import (
	"sync/atomic"

	"chnative/internal/binio"
	"chnative/internal/chtype"
	"chnative/internal/column"
)

// Codec is the encode/decode contract for a single type expression.
//
// Decode consumes exactly rows logical rows or fails; a failure with
// binio.ShortReadError leaves no observable state behind, so the stream
// driver can retry the block once more bytes arrive. Encode always emits
// dense serialization.
type Codec interface {
	// Type returns the full type expression the codec serves.
	Type() chtype.Type
	// EstimateSize returns an upper-bound byte count for rows rows,
	// monotonic in rows. Variable-width types use calibrated per-row
	// constants; the block estimator's slack absorbs the misprediction.
	EstimateSize(rows int) int
	// ReadPrefix consumes the per-column preamble, if any.
	ReadPrefix(r *binio.Reader, st *DecodeState) error
	// WritePrefix emits the per-column preamble for col.
	WritePrefix(w *binio.Writer, col column.Column) error
	// ReadKinds consumes this codec's serialization-kind subtree: one
	// leaf byte (0 dense, 1 sparse) per node, inner nodes in the same
	// order the inner codecs decode.
	ReadKinds(r *binio.Reader, st *DecodeState) error
	// Decode reads rows rows and returns the resulting column.
	Decode(r *binio.Reader, rows int, st *DecodeState) (column.Column, error)
	// Encode appends the dense serialization of col.
	Encode(w *binio.Writer, col column.Column) error
	// FromValues builds a column from raw logical values, applying the
	// type's coercion and range rules.
	FromValues(values []any) (column.Column, error)
	// ZeroValue returns the type's default logical value, used when a
	// sparse run is expanded to a dense column.
	ZeroValue() any
}

// nodeSeq assigns a process-unique id to every codec node. Sparse runs
// that cross block boundaries are keyed by this id.
var nodeSeq atomic.Int64

func nextNode() int {
	return int(nodeSeq.Add(1))
}

// base carries the pieces shared by every codec: the type expression,
// the node id, and the leaf defaults for prefix and kind handling.
type base struct {
	typ  chtype.Type
	node int
}

func newBase(typ chtype.Type) base {
	return base{typ: typ, node: nextNode()}
}

func (b *base) Type() chtype.Type { return b.typ }

func (b *base) ReadPrefix(*binio.Reader, *DecodeState) error { return nil }

func (b *base) WritePrefix(*binio.Writer, column.Column) error { return nil }

func (b *base) ReadKinds(r *binio.Reader, st *DecodeState) error {
	return readLeafKind(r, st, b.node)
}
