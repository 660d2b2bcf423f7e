package codec

import (
	"chnative/internal/binio"
	"chnative/internal/column"
)

// interceptSparse handles the sparse wire form for a node: varint deltas
// of the non-default positions terminated by 0, followed by a dense
// column of just the non-default values. Runs that spill past the block
// boundary are parked in st.Sparse and resumed by the next block's
// decode of the same node. handled is false on the dense path.
//
// Decoders expand to a dense logical column; encoders never emit sparse.
func interceptSparse(c Codec, node int, r *binio.Reader, rows int, st *DecodeState) (column.Column, bool, error) {
	if st == nil || st.kindOf(node) != KindSparse {
		return nil, false, nil
	}
	positions, err := readSparsePositions(r, rows, st, node)
	if err != nil {
		return nil, true, err
	}

	// The value column itself is plain dense; mask the kind while the
	// inner decode runs.
	st.setKind(node, KindDense)
	vals, err := c.Decode(r, len(positions), st)
	st.setKind(node, KindSparse)
	if err != nil {
		return nil, true, err
	}

	dense := make([]any, rows)
	zero := c.ZeroValue()
	for i := range dense {
		dense[i] = zero
	}
	for j, pos := range positions {
		dense[pos] = vals.Get(j, nil)
	}
	col, err := c.FromValues(dense)
	return col, true, err
}

// readSparsePositions reads the delta-encoded non-default positions for
// rows rows, applying any run carried over from the previous block. A
// delta token t places t-1 defaults and then one value; token 0 means
// every remaining row of the block is a default.
func readSparsePositions(r *binio.Reader, rows int, st *DecodeState, node int) ([]int, error) {
	var positions []int
	pos := 0

	if run, ok := st.Sparse[node]; ok {
		delete(st.Sparse, node)
		if run.TrailingDefaults >= rows {
			// The carried run covers this whole block too.
			st.Sparse[node] = &SparseRun{
				TrailingDefaults: run.TrailingDefaults - rows,
				HasValue:         run.HasValue,
			}
			return positions, nil
		}
		pos = run.TrailingDefaults
		if run.HasValue {
			positions = append(positions, pos)
			pos++
		}
	}

	for pos < rows {
		t, err := r.UVarInt()
		if err != nil {
			return nil, err
		}
		if t == 0 {
			return positions, nil
		}
		defaults := int(t) - 1
		if pos+defaults >= rows {
			st.Sparse[node] = &SparseRun{
				TrailingDefaults: pos + defaults - rows,
				HasValue:         true,
			}
			return positions, nil
		}
		pos += defaults
		positions = append(positions, pos)
		pos++
	}
	return positions, nil
}
