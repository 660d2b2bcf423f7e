package chnative

import (
	"go.uber.org/zap"

	"chnative/internal/column"
)

// Options is the bag recognized across every entry point. The zero
// value is a sane default: no prolog, dense-only framing, silent
// logging.
type Options struct {
	// BigIntAsString materializes 64-bit and wider integers as decimal
	// strings.
	BigIntAsString bool
	// EnumAsNumber materializes enum values as their discriminants
	// instead of labels.
	EnumAsNumber bool
	// MapAsArray materializes Map columns as [key, value] pair slices.
	MapAsArray bool
	// Debug enables driver debug logging on a development logger when no
	// Logger is supplied.
	Debug bool
	// Logger overrides the logger used by the stream drivers.
	Logger *zap.Logger
	// MinBufferSize sets the stream decoder's decode threshold in bytes
	// (decoding starts once MinBufferSize/4 bytes are buffered).
	MinBufferSize int
	// ClientVersion gates version-dependent framing: values above 0
	// enable the block info prolog, values at or above 54454 enable the
	// per-column custom-serialization tree.
	ClientVersion int
	// TrailingGarbageLimit bounds the undecodable bytes tolerated at end
	// of stream: fewer than this many are ignored (default 100).
	TrailingGarbageLimit int
}

// ColumnOpts returns the materialization subset of the options.
func (o Options) ColumnOpts() *column.Opts {
	return &column.Opts{
		BigIntAsString: o.BigIntAsString,
		EnumAsNumber:   o.EnumAsNumber,
		MapAsArray:     o.MapAsArray,
	}
}

func (o Options) logger() *zap.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	if o.Debug {
		lg, err := zap.NewDevelopment()
		if err == nil {
			return lg
		}
	}
	return zap.NewNop()
}
