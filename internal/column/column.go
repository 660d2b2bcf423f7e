package column

import (
	"chnative/internal/chtype"
)

// Column is a logical vector of length Len. Get materializes the value
// at a row index; its runtime shape follows the column's type expression.
// Len and Type are O(1). A nil Opts is equivalent to the zero Opts.
type Column interface {
	Type() chtype.Type
	Len() int
	Get(i int, o *Opts) any
}

// Materialize returns all rows of c as a slice of logical values.
func Materialize(c Column, o *Opts) []any {
	out := make([]any, c.Len())
	for i := range out {
		out[i] = c.Get(i, o)
	}
	return out
}
