package compress

import (
	"context"
	"encoding/binary"
	"io"
)

// Reader reassembles complete compressed blocks from an arbitrary
// byte-level chunking and yields one plaintext payload per block. Its
// Next method has the chunk-source shape the stream decoder consumes,
// so a compressed stream is just a Reader stacked under the block
// decoder.
type Reader struct {
	src  func(ctx context.Context) ([]byte, error)
	c    *Compressor
	buf  []byte
	done bool
}

// NewReader returns a Reader pulling compressed bytes from src. src
// returns io.EOF when the transport is exhausted.
func NewReader(src func(ctx context.Context) ([]byte, error)) *Reader {
	return &Reader{src: src, c: New()}
}

// Next returns the plaintext of the next complete compressed block, or
// io.EOF at a clean end of input. Leftover bytes that do not form a
// complete frame header are reported as an error by Decompress on the
// truncated frame.
func (r *Reader) Next(ctx context.Context) ([]byte, error) {
	if r.done && len(r.buf) == 0 {
		return nil, io.EOF
	}
	for {
		if len(r.buf) >= headerSize {
			compressedSize := int(binary.LittleEndian.Uint32(r.buf[hashSize+1:]))
			total := hashSize + compressedSize
			if compressedSize >= 9 && len(r.buf) >= total {
				plain, err := r.c.Decompress(r.buf[:total])
				if err != nil {
					return nil, err
				}
				r.buf = r.buf[total:]
				if len(r.buf) == 0 {
					r.buf = nil
				}
				return plain, nil
			}
		}
		if r.done {
			// A truncated trailing frame: surface the framing error.
			_, err := r.c.Decompress(r.buf)
			if err == nil {
				err = io.ErrUnexpectedEOF
			}
			return nil, err
		}
		chunk, err := r.src(ctx)
		if err != nil {
			if err == io.EOF {
				r.done = true
				if len(r.buf) == 0 {
					return nil, io.EOF
				}
				continue
			}
			return nil, err
		}
		r.buf = append(r.buf, chunk...)
	}
}

// FromReader adapts an io.Reader into the chunk-source shape NewReader
// expects.
func FromReader(rd io.Reader) func(ctx context.Context) ([]byte, error) {
	buf := make([]byte, 64<<10)
	return func(ctx context.Context) ([]byte, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		n, err := rd.Read(buf)
		if n > 0 {
			out := make([]byte, n)
			copy(out, buf[:n])
			return out, nil
		}
		if err == nil {
			err = io.EOF
		}
		return nil, err
	}
}
