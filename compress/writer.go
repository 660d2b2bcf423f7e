package compress

import (
	"io"
)

// maxBlockPayload keeps each compressed frame's plaintext within the
// server's default compress-block ceiling.
const maxBlockPayload = 1 << 20

// Writer frames plaintext into compressed blocks on the way out.
// Oversized payloads are split across multiple frames.
type Writer struct {
	w io.Writer
	m Method
	c *Compressor
}

// NewWriter returns a Writer emitting frames with the given method.
func NewWriter(w io.Writer, m Method) *Writer {
	return &Writer{w: w, m: m, c: New()}
}

// Write frames p and writes the resulting compressed blocks. It always
// reports len(p) on success, io.Writer style.
func (w *Writer) Write(p []byte) (int, error) {
	total := len(p)
	for len(p) > 0 {
		n := len(p)
		if n > maxBlockPayload {
			n = maxBlockPayload
		}
		frame, err := w.c.Compress(w.m, p[:n])
		if err != nil {
			return total - len(p), err
		}
		if _, err := w.w.Write(frame); err != nil {
			return total - len(p), err
		}
		p = p[n:]
	}
	return total, nil
}
