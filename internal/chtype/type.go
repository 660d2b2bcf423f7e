// Package chtype parses ClickHouse type expressions such as
// Nullable(Array(Tuple(x Int32, y String))) into a structural tree and
// renders them back to a canonical string. The canonical form round-trips
// bit-exactly, so it doubles as the codec cache key.
package chtype

import (
	"strings"
)

// Type is one node of a parsed type expression.
//
// Scalars carry their raw parameters in Params (decimal scale, FixedString
// length, enum members). Wrappers and composites carry inner types in Args.
// Name is set on Args of Tuple, Nested and JSON nodes when the element is
// named; it is never set on a top-level type.
type Type struct {
	Base   string
	Name   string
	Params []string
	Args   []Type
}

// Scalar returns a parameterless scalar type node.
func Scalar(base string) Type {
	return Type{Base: base}
}

// String renders the canonical form of the type expression.
func (t Type) String() string {
	var sb strings.Builder
	t.writeTo(&sb)
	return sb.String()
}

func (t Type) writeTo(sb *strings.Builder) {
	sb.WriteString(t.Base)
	if len(t.Params) == 0 && len(t.Args) == 0 {
		return
	}
	sb.WriteByte('(')
	first := true
	for _, p := range t.Params {
		if !first {
			sb.WriteString(", ")
		}
		first = false
		sb.WriteString(p)
	}
	for _, a := range t.Args {
		if !first {
			sb.WriteString(", ")
		}
		first = false
		if a.Name != "" {
			sb.WriteString(a.Name)
			sb.WriteByte(' ')
		}
		a.writeTo(sb)
	}
	sb.WriteByte(')')
}

// Equal reports structural equality, names and parameters included.
func (t Type) Equal(o Type) bool {
	if t.Base != o.Base || t.Name != o.Name {
		return false
	}
	if len(t.Params) != len(o.Params) || len(t.Args) != len(o.Args) {
		return false
	}
	for i := range t.Params {
		if t.Params[i] != o.Params[i] {
			return false
		}
	}
	for i := range t.Args {
		if !t.Args[i].Equal(o.Args[i]) {
			return false
		}
	}
	return true
}

// Unnamed returns a copy of t with the element name cleared. Composite
// codecs use it when an inner codec should be keyed by bare type.
func (t Type) Unnamed() Type {
	t.Name = ""
	return t
}
