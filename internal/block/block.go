// Package block serializes and parses single blocks of the Native
// format: an optional info prolog, the column/row counts, and for every
// column its name, type expression, optional serialization-kind tree,
// codec prefix and body. An empty block is the end-of-stream marker.
package block

import (
	"github.com/go-faster/errors"

	"chnative/batch"
	"chnative/internal/binio"
	"chnative/internal/codec"
	"chnative/internal/column"
)

// MinRevisionCustomSerialization is the lowest client version for which
// every column carries a has-custom-serialization byte (and, when set, a
// serialization-kind tree).
const MinRevisionCustomSerialization = 54454

// Encode appends one block for b. A clientVersion above zero enables
// the info prolog; versions at or above MinRevisionCustomSerialization
// write the per-column custom-serialization byte. Encoding is always
// dense, so that byte is always zero.
func Encode(w *binio.Writer, b *batch.Batch, clientVersion int) error {
	if clientVersion > 0 {
		writeInfoProlog(w)
	}
	w.UVarInt(uint64(b.NumCols()))
	w.UVarInt(uint64(b.Len()))
	for i, s := range b.Schema() {
		col := b.Column(i)
		c, err := codec.Get(s.Type)
		if err != nil {
			return errors.Wrapf(err, "column %q", s.Name)
		}
		w.Str(s.Name)
		w.Str(s.Type)
		if clientVersion >= MinRevisionCustomSerialization {
			w.Byte(0)
		}
		if err := c.WritePrefix(w, col); err != nil {
			return errors.Wrapf(err, "column %q", s.Name)
		}
		if err := c.Encode(w, col); err != nil {
			return errors.Wrapf(err, "column %q", s.Name)
		}
	}
	return nil
}

// EncodeEndMarker appends the empty end-of-stream block.
func EncodeEndMarker(w *binio.Writer, clientVersion int) {
	if clientVersion > 0 {
		writeInfoProlog(w)
	}
	w.UVarInt(0)
	w.UVarInt(0)
}

// writeInfoProlog emits the BlockInfo field list: field 1 is the
// one-byte overflow flag, field 2 the four-byte bucket number (-1 when
// unset), field 0 terminates.
func writeInfoProlog(w *binio.Writer) {
	w.UVarInt(1)
	w.Byte(0)
	w.UVarInt(2)
	w.Fixed32(0xffffffff)
	w.UVarInt(0)
}

// Decode parses one block. The returned batch is empty (zero columns
// and rows) for the end-of-stream marker. st carries the kind tree and
// sparse runtime; it must be reset per block via ResetKinds by the
// caller, and may be nil for one-shot dense decodes without custom
// serialization, except for Dynamic and JSON columns, whose prefixes
// fail without a state.
func Decode(r *binio.Reader, clientVersion int, st *codec.DecodeState) (*batch.Batch, error) {
	if clientVersion > 0 {
		if err := readInfoProlog(r); err != nil {
			return nil, err
		}
	}
	numCols, err := r.UVarInt()
	if err != nil {
		return nil, err
	}
	numRows, err := r.UVarInt()
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, numCols)
	cols := make([]column.Column, 0, numCols)
	for i := uint64(0); i < numCols; i++ {
		name, err := r.Str()
		if err != nil {
			return nil, err
		}
		typeExpr, err := r.Str()
		if err != nil {
			return nil, err
		}
		c, err := codec.Get(typeExpr)
		if err != nil {
			return nil, errors.Wrapf(err, "column %q", name)
		}
		if clientVersion >= MinRevisionCustomSerialization {
			hasCustom, err := r.Byte()
			if err != nil {
				return nil, err
			}
			if hasCustom != 0 {
				if err := c.ReadKinds(r, st); err != nil {
					return nil, errors.Wrapf(err, "column %q", name)
				}
			}
		}
		if err := c.ReadPrefix(r, st); err != nil {
			return nil, errors.Wrapf(err, "column %q", name)
		}
		col, err := c.Decode(r, int(numRows), st)
		if err != nil {
			return nil, errors.Wrapf(err, "column %q", name)
		}
		names = append(names, name)
		cols = append(cols, col)
	}
	return batch.FromCols(names, cols)
}

func readInfoProlog(r *binio.Reader) error {
	for {
		id, err := r.UVarInt()
		if err != nil {
			return err
		}
		switch id {
		case 0:
			return nil
		case 1:
			if _, err := r.Byte(); err != nil {
				return err
			}
		case 2:
			if _, err := r.Fixed32(); err != nil {
				return err
			}
		default:
			return errors.Errorf("block: unknown info field %d", id)
		}
	}
}

// IsEndMarker reports whether b is the empty end-of-stream block.
func IsEndMarker(b *batch.Batch) bool {
	return b.NumCols() == 0 && b.Len() == 0
}
