package stream

import (
	"io"

	"chnative/batch"
	"chnative/internal/binio"
	"chnative/internal/block"
)

// Encoder turns batches into Native blocks, one block per batch, with
// no rebatching at this layer. The write buffer's peak capacity is kept
// across blocks.
type Encoder struct {
	w             io.Writer
	buf           binio.Writer
	clientVersion int
	closed        bool
}

// NewEncoder returns an Encoder writing to w.
func NewEncoder(w io.Writer, clientVersion int) *Encoder {
	return &Encoder{w: w, clientVersion: clientVersion}
}

// Send encodes b as one block and flushes it to the writer.
func (e *Encoder) Send(b *batch.Batch) error {
	e.buf.Reset()
	if err := block.Encode(&e.buf, b, e.clientVersion); err != nil {
		return err
	}
	_, err := e.w.Write(e.buf.Bytes())
	return err
}

// Close emits the end-of-stream marker. It is idempotent.
func (e *Encoder) Close() error {
	if e.closed {
		return nil
	}
	e.closed = true
	e.buf.Reset()
	block.EncodeEndMarker(&e.buf, e.clientVersion)
	_, err := e.w.Write(e.buf.Bytes())
	return err
}
