package binio

import (
	"errors"
	"fmt"
)

// ShortReadError reports that a read would run past the end of the buffer.
// It is the only recoverable error class the codec layer produces: the
// stream driver treats it as "buffer more bytes and retry". Any reader
// method that returns it leaves the cursor where it was.
type ShortReadError struct {
	Need   int // bytes the operation required
	Have   int // bytes remaining in the buffer
	Offset int // cursor position at the time of the read
}

func (e *ShortReadError) Error() string {
	return fmt.Sprintf("binio: short read: need %d bytes, have %d at offset %d", e.Need, e.Have, e.Offset)
}

// IsShortRead reports whether err is (or wraps) a ShortReadError.
func IsShortRead(err error) bool {
	var sr *ShortReadError
	return errors.As(err, &sr)
}
