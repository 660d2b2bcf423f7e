// Package compress implements the compressed-block framing of the
// native protocol: every unit carries a CityHash128 content hash, an
// algorithm byte, the compressed and uncompressed sizes, and the
// payload. Supported algorithms are an LZ4 block variant, ZSTD, and a
// raw pass-through.
package compress

import (
	"encoding/binary"

	"github.com/go-faster/city"
	"github.com/go-faster/errors"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Method is the frame algorithm byte.
type Method byte

const (
	None Method = 0x02
	LZ4  Method = 0x82
	ZSTD Method = 0x90
)

func (m Method) String() string {
	switch m {
	case None:
		return "None"
	case LZ4:
		return "LZ4"
	case ZSTD:
		return "ZSTD"
	}
	return errors.Errorf("Method(%#x)", byte(m)).Error()
}

// Frame layout offsets. The content hash covers bytes hashStart..end,
// i.e. the mode/size header plus the compressed payload, and the
// compressed size includes those 9 header bytes.
const (
	hashSize    = 16
	headerSize  = hashSize + 9
	maxDataSize = 1 << 30
)

// Compressor frames and unframes compressed blocks. The zero value is
// not usable; construct with New.
type Compressor struct {
	zstdEnc *zstd.Encoder
	zstdDec *zstd.Decoder
}

// New returns a ready Compressor.
func New() *Compressor {
	enc, _ := zstd.NewWriter(nil,
		zstd.WithEncoderLevel(zstd.SpeedDefault),
		zstd.WithEncoderConcurrency(1),
	)
	dec, _ := zstd.NewReader(nil,
		zstd.WithDecoderConcurrency(1),
	)
	return &Compressor{zstdEnc: enc, zstdDec: dec}
}

// Compress frames src as one compressed block.
func (c *Compressor) Compress(m Method, src []byte) ([]byte, error) {
	if len(src) > maxDataSize {
		return nil, errors.Errorf("compress: payload of %d bytes exceeds the frame limit", len(src))
	}
	var payload []byte
	switch m {
	case None:
		payload = src
	case LZ4:
		bound := lz4.CompressBlockBound(len(src))
		buf := make([]byte, bound)
		n, err := lz4.CompressBlock(src, buf, nil)
		if err != nil {
			return nil, errors.Wrap(err, "lz4 compress")
		}
		if n == 0 {
			// Incompressible input: emit a literal-only LZ4 block.
			payload = lz4LiteralBlock(src)
		} else {
			payload = buf[:n]
		}
	case ZSTD:
		payload = c.zstdEnc.EncodeAll(src, nil)
	default:
		return nil, errors.Errorf("compress: unknown method %#x", byte(m))
	}

	frame := make([]byte, headerSize+len(payload))
	frame[hashSize] = byte(m)
	binary.LittleEndian.PutUint32(frame[hashSize+1:], uint32(9+len(payload)))
	binary.LittleEndian.PutUint32(frame[hashSize+5:], uint32(len(src)))
	copy(frame[headerSize:], payload)

	h := city.CH128(frame[hashSize:])
	binary.LittleEndian.PutUint64(frame[0:8], h.Low)
	binary.LittleEndian.PutUint64(frame[8:16], h.High)
	return frame, nil
}

// Decompress verifies and unframes one complete compressed block.
func (c *Compressor) Decompress(frame []byte) ([]byte, error) {
	if len(frame) < headerSize {
		return nil, errors.Errorf("compress: frame of %d bytes is shorter than the header", len(frame))
	}
	compressedSize := int(binary.LittleEndian.Uint32(frame[hashSize+1:]))
	uncompressedSize := int(binary.LittleEndian.Uint32(frame[hashSize+5:]))
	if compressedSize < 9 || uncompressedSize < 0 || uncompressedSize > maxDataSize {
		return nil, errors.Errorf("compress: invalid frame sizes %d/%d", compressedSize, uncompressedSize)
	}
	if len(frame) < hashSize+compressedSize {
		return nil, errors.Errorf("compress: frame truncated: have %d bytes, need %d", len(frame), hashSize+compressedSize)
	}
	body := frame[hashSize : hashSize+compressedSize]

	h := city.CH128(body)
	if binary.LittleEndian.Uint64(frame[0:8]) != h.Low ||
		binary.LittleEndian.Uint64(frame[8:16]) != h.High {
		return nil, ErrHashMismatch
	}

	payload := body[9:]
	switch Method(body[0]) {
	case None:
		out := make([]byte, len(payload))
		copy(out, payload)
		return out, nil
	case LZ4:
		out := make([]byte, uncompressedSize)
		n, err := lz4.UncompressBlock(payload, out)
		if err != nil {
			return nil, errors.Wrap(err, "lz4 decompress")
		}
		if n != uncompressedSize {
			return nil, errors.Errorf("compress: lz4 produced %d bytes, expected %d", n, uncompressedSize)
		}
		return out, nil
	case ZSTD:
		out, err := c.zstdDec.DecodeAll(payload, make([]byte, 0, uncompressedSize))
		if err != nil {
			return nil, errors.Wrap(err, "zstd decompress")
		}
		if len(out) != uncompressedSize {
			return nil, errors.Errorf("compress: zstd produced %d bytes, expected %d", len(out), uncompressedSize)
		}
		return out, nil
	}
	return nil, errors.Errorf("compress: unknown method %#x", body[0])
}

// ErrHashMismatch reports a content hash that does not match the frame
// body. It is always fatal to the stream.
var ErrHashMismatch = errors.New("compress: content hash mismatch")

// lz4LiteralBlock encodes src as a single literal-only LZ4 sequence.
func lz4LiteralBlock(src []byte) []byte {
	out := make([]byte, 0, len(src)+len(src)/255+16)
	n := len(src)
	if n < 15 {
		out = append(out, byte(n)<<4)
	} else {
		out = append(out, 0xf0)
		for rest := n - 15; ; rest -= 255 {
			if rest < 255 {
				out = append(out, byte(rest))
				break
			}
			out = append(out, 255)
		}
	}
	return append(out, src...)
}
