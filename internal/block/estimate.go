package block

import (
	"chnative/internal/binio"
	"chnative/internal/codec"
)

// Estimator slack: per-codec size estimates are calibrated constants,
// so the total is padded by a fixed 20% before the stream driver
// commits to a decode attempt.
const (
	estimateSlackNum = 6
	estimateSlackDen = 5
)

// EstimateSize peeks at the header of the block at the start of view
// and returns an upper-bound byte size for the whole block. Column
// headers are interleaved with column data on the wire, so only the
// first column's name and type are readable; the remaining columns are
// assumed to cost the same and the 20% slack plus the driver's
// retry-on-underflow loop absorb the difference. A binio.ShortReadError
// means the peekable header itself is incomplete.
func EstimateSize(view []byte, clientVersion int) (int, error) {
	r := binio.NewReader(view)
	if clientVersion > 0 {
		if err := readInfoProlog(r); err != nil {
			return 0, err
		}
	}
	numCols, err := r.UVarInt()
	if err != nil {
		return 0, err
	}
	numRows, err := r.UVarInt()
	if err != nil {
		return 0, err
	}
	if numCols == 0 {
		return r.Offset(), nil
	}
	afterCounts := r.Offset()
	if _, err := r.Str(); err != nil { // first column name
		return 0, err
	}
	typeExpr, err := r.Str()
	if err != nil {
		return 0, err
	}
	c, err := codec.Get(typeExpr)
	if err != nil {
		return 0, err
	}
	perCol := r.Offset() - afterCounts + c.EstimateSize(int(numRows))
	if clientVersion >= MinRevisionCustomSerialization {
		perCol++ // has-custom-serialization flag byte
	}
	// Later columns may be wider than the first; a per-row floor keeps
	// the extrapolation from undershooting on typical mixed blocks.
	if floor := int(numRows)*8 + 64; perCol < floor {
		perCol = floor
	}
	total := afterCounts + int(numCols)*perCol
	return total * estimateSlackNum / estimateSlackDen, nil
}
