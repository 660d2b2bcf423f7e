package codec

import (
	"github.com/go-faster/errors"

	"chnative/internal/binio"
)

// Kind is a per-node serialization kind from the block's kind tree.
type Kind uint8

const (
	KindDense  Kind = 0
	KindSparse Kind = 1
)

// SparseRun is the tail of a sparse run that crossed a block boundary:
// the number of default rows still owed at the start of the next block,
// and whether a non-default value follows them.
type SparseRun struct {
	TrailingDefaults int
	HasValue         bool
}

// DecodeState carries all per-stream decode state. Kinds are re-read for
// every block (ResetKinds); the sparse runtime and dynamic runtimes
// persist across blocks of the same stream.
type DecodeState struct {
	kinds   map[int]Kind
	Sparse  map[int]*SparseRun
	dynamic map[int]*dynRuntime
	json    map[int]*jsonRuntime
}

// NewDecodeState returns an empty state, ready for the first block.
func NewDecodeState() *DecodeState {
	return &DecodeState{
		kinds:   make(map[int]Kind),
		Sparse:  make(map[int]*SparseRun),
		dynamic: make(map[int]*dynRuntime),
		json:    make(map[int]*jsonRuntime),
	}
}

// ResetKinds drops the kind tree before decoding the next block. Sparse
// carry-over survives the reset.
func (st *DecodeState) ResetKinds() {
	clear(st.kinds)
}

// SnapshotSparse copies the sparse carry-over map so a failed block
// decode can be rolled back before a retry.
func (st *DecodeState) SnapshotSparse() map[int]*SparseRun {
	snap := make(map[int]*SparseRun, len(st.Sparse))
	for k, v := range st.Sparse {
		run := *v
		snap[k] = &run
	}
	return snap
}

// RestoreSparse reinstates a snapshot taken before a failed decode.
func (st *DecodeState) RestoreSparse(snap map[int]*SparseRun) {
	clear(st.Sparse)
	for k, v := range snap {
		run := *v
		st.Sparse[k] = &run
	}
}

func (st *DecodeState) kindOf(node int) Kind {
	if st == nil {
		return KindDense
	}
	return st.kinds[node]
}

func (st *DecodeState) setKind(node int, k Kind) {
	if st.kinds == nil {
		st.kinds = make(map[int]Kind)
	}
	st.kinds[node] = k
}

// readLeafKind consumes one kind byte for node.
func readLeafKind(r *binio.Reader, st *DecodeState, node int) error {
	b, err := r.Byte()
	if err != nil {
		return err
	}
	if b > 1 {
		return errors.Errorf("codec: invalid serialization kind byte %#x", b)
	}
	if st != nil {
		st.setKind(node, Kind(b))
	}
	return nil
}
