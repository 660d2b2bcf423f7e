package codec

import (
	"fmt"
)

// StructuralError reports malformed wire data that no amount of extra
// bytes can repair: bad discriminants, non-monotonic offsets, unknown
// enum values. It is always fatal to the stream.
type StructuralError struct {
	Type   string
	Offset int
	Msg    string
}

func (e *StructuralError) Error() string {
	return fmt.Sprintf("codec: %s: %s at offset %d", e.Type, e.Msg, e.Offset)
}

func structural(typ string, offset int, format string, args ...any) error {
	return &StructuralError{Type: typ, Offset: offset, Msg: fmt.Sprintf(format, args...)}
}

// CoercionError reports a value FromValues could not convert or that
// failed the type's range check.
type CoercionError struct {
	Type   string
	Row    int
	Value  any
	Reason string
}

func (e *CoercionError) Error() string {
	return fmt.Sprintf("codec: cannot use %v (%T) as %s at row %d: %s", e.Value, e.Value, e.Type, e.Row, e.Reason)
}

func coercionErr(typ string, row int, v any, reason string) error {
	return &CoercionError{Type: typ, Row: row, Value: v, Reason: reason}
}
