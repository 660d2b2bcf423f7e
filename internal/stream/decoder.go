package stream

import (
	"context"
	"io"

	"github.com/go-faster/errors"
	"go.uber.org/zap"

	"chnative/batch"
	"chnative/internal/binio"
	"chnative/internal/block"
	"chnative/internal/codec"
)

// ChunkSource yields opaque byte chunks of a Native stream. It returns
// io.EOF when the input is exhausted. The decoder makes no assumption
// about chunk boundaries.
type ChunkSource func(ctx context.Context) ([]byte, error)

// FromReader adapts an io.Reader into a ChunkSource.
func FromReader(r io.Reader) ChunkSource {
	buf := make([]byte, 64<<10)
	return func(ctx context.Context) ([]byte, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		n, err := r.Read(buf)
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

// Options configures a Decoder.
type Options struct {
	// ClientVersion gates the info prolog (> 0) and the per-column
	// custom-serialization tree (>= block.MinRevisionCustomSerialization).
	ClientVersion int
	// MinBufferSize sets the decode threshold: the driver keeps pulling
	// until MinBufferSize/4 bytes (or 1.2 times the average block size,
	// if larger) are buffered before attempting a decode. Defaults to
	// 64 KiB.
	MinBufferSize int
	// TrailingGarbageLimit bounds the undecodable bytes tolerated at end
	// of stream: fewer than this many are ignored. Defaults to 100.
	TrailingGarbageLimit int
	// Logger enables debug logging of the driver's buffer decisions.
	Logger *zap.Logger
}

const (
	defaultMinBuffer     = 64 << 10
	defaultTrailingLimit = 100
)

func (o *Options) withDefaults() Options {
	out := *o
	if out.MinBufferSize <= 0 {
		out.MinBufferSize = defaultMinBuffer
	}
	if out.TrailingGarbageLimit <= 0 {
		out.TrailingGarbageLimit = defaultTrailingLimit
	}
	if out.Logger == nil {
		out.Logger = zap.NewNop()
	}
	return out
}

// TrailingGarbageError reports undecodable bytes at end of stream beyond
// the tolerated padding, along with how far the decode got.
type TrailingGarbageError struct {
	Bytes  int
	Blocks int
	Rows   int
	Cause  error
}

func (e *TrailingGarbageError) Error() string {
	return errors.Errorf(
		"stream: %d undecodable trailing bytes after %d blocks (%d rows): %v",
		e.Bytes, e.Blocks, e.Rows, e.Cause,
	).Error()
}

func (e *TrailingGarbageError) Unwrap() error { return e.Cause }

// Decoder reassembles blocks from a chunked byte stream and yields one
// batch per block, strictly in input order. It is single-task: all codec
// work happens on the caller's goroutine, and back-pressure falls out of
// the pull model — when the consumer stops calling Next, nothing is
// pulled from the transport.
type Decoder struct {
	src  ChunkSource
	opts Options
	lg   *zap.Logger

	buf Buffer
	st  *codec.DecodeState

	avgBlockSize float64
	blocks       int
	rows         int

	srcDone bool // source returned io.EOF
	done    bool // end marker seen or terminal error returned
}

// NewDecoder returns a Decoder over src.
func NewDecoder(src ChunkSource, opts Options) *Decoder {
	o := opts.withDefaults()
	return &Decoder{src: src, opts: o, lg: o.Logger, st: codec.NewDecodeState()}
}

// Blocks returns the number of blocks decoded so far.
func (d *Decoder) Blocks() int { return d.blocks }

// Rows returns the number of rows decoded so far.
func (d *Decoder) Rows() int { return d.rows }

// Next returns the next batch, or io.EOF once the stream ends cleanly.
// Any other error is terminal.
func (d *Decoder) Next(ctx context.Context) (*batch.Batch, error) {
	if d.done {
		return nil, io.EOF
	}
	b, err := d.next(ctx)
	if err != nil {
		d.done = true
		d.buf.Release()
	}
	return b, err
}

func (d *Decoder) next(ctx context.Context) (*batch.Batch, error) {
	for {
		// Keep the buffer above the decode threshold before spending
		// effort on an estimate.
		threshold := d.threshold()
		for !d.srcDone && d.buf.Len() < threshold {
			if err := d.pull(ctx); err != nil {
				return nil, err
			}
		}
		if d.srcDone && d.buf.Len() == 0 {
			return nil, io.EOF
		}

		est, err := block.EstimateSize(d.buf.ReadView(), d.opts.ClientVersion)
		switch {
		case err == nil:
		case binio.IsShortRead(err):
			if !d.srcDone {
				if err := d.pull(ctx); err != nil {
					return nil, err
				}
				continue
			}
			return nil, d.endOfStream(err)
		default:
			return nil, err
		}

		if est > d.buf.Len() && !d.srcDone {
			d.lg.Debug("estimate exceeds buffered bytes, pulling more",
				zap.Int("estimate", est), zap.Int("buffered", d.buf.Len()))
			if err := d.pull(ctx); err != nil {
				return nil, err
			}
			continue
		}

		b, decodeErr := d.tryDecode(min(est, d.buf.Len()))
		if decodeErr == nil {
			if block.IsEndMarker(b) {
				d.done = true
				d.buf.Release()
				return nil, io.EOF
			}
			return b, nil
		}
		if !binio.IsShortRead(decodeErr) {
			return nil, decodeErr
		}
		// The estimate undershot: retry against everything buffered
		// before pulling more.
		if d.buf.Len() > est {
			b, decodeErr = d.tryDecode(d.buf.Len())
			if decodeErr == nil {
				if block.IsEndMarker(b) {
					d.done = true
					d.buf.Release()
					return nil, io.EOF
				}
				return b, nil
			}
			if !binio.IsShortRead(decodeErr) {
				return nil, decodeErr
			}
		}
		if d.srcDone {
			return nil, d.endOfStream(decodeErr)
		}
		if err := d.pull(ctx); err != nil {
			return nil, err
		}
	}
}

// tryDecode decodes one block from a stable copy of the first size
// buffered bytes. The copy keeps zero-copy typed views valid after the
// ring buffer compacts. On binio.ShortReadError all driver state is
// rolled back so the attempt can be repeated.
func (d *Decoder) tryDecode(size int) (*batch.Batch, error) {
	stable := make([]byte, size)
	copy(stable, d.buf.ReadView()[:size])

	snap := d.st.SnapshotSparse()
	d.st.ResetKinds()
	r := binio.NewReader(stable)
	b, err := block.Decode(r, d.opts.ClientVersion, d.st)
	if err != nil {
		d.st.RestoreSparse(snap)
		return nil, err
	}

	consumed := r.Offset()
	d.buf.Consume(consumed)
	if block.IsEndMarker(b) {
		return b, nil
	}
	d.blocks++
	d.rows += b.Len()
	d.avgBlockSize += (float64(consumed) - d.avgBlockSize) / float64(d.blocks)
	d.lg.Debug("decoded block",
		zap.Int("bytes", consumed), zap.Int("rows", b.Len()),
		zap.Float64("avg_block_size", d.avgBlockSize))
	return b, nil
}

// threshold is the buffered-byte level at which decode attempts start.
func (d *Decoder) threshold() int {
	t := d.opts.MinBufferSize / 4
	if est := int(d.avgBlockSize * 1.2); est > t {
		t = est
	}
	return t
}

// endOfStream resolves leftover bytes once the source is exhausted: a
// short undecodable tail is harmless padding, anything bigger is a
// stream error that reports progress so far.
func (d *Decoder) endOfStream(cause error) error {
	if d.buf.Len() < d.opts.TrailingGarbageLimit {
		d.lg.Debug("ignoring trailing padding", zap.Int("bytes", d.buf.Len()))
		return io.EOF
	}
	return &TrailingGarbageError{
		Bytes:  d.buf.Len(),
		Blocks: d.blocks,
		Rows:   d.rows,
		Cause:  cause,
	}
}

func (d *Decoder) pull(ctx context.Context) error {
	chunk, err := d.src(ctx)
	if err != nil {
		if errors.Is(err, io.EOF) {
			d.srcDone = true
			return nil
		}
		return err
	}
	d.buf.Append(chunk)
	return nil
}
