// Package batch implements RecordBatch: an ordered set of named columns
// with a shared row count, a row-proxy view, and builders that accept
// rows or per-column arrays with type coercion and range checks.
package batch

import (
	"github.com/go-faster/errors"

	"chnative/internal/codec"
	"chnative/internal/column"
)

// Col is one schema entry. Column names need not be unique; lookups
// return the first match.
type Col struct {
	Name string
	Type string
}

// Batch is an immutable set of columns sharing one row count. It has no
// ownership of sessions or buffers and is cheap to pass around.
type Batch struct {
	names []string
	cols  []column.Column
	rows  int
}

// FromCols builds a batch from pre-built columns. All columns must have
// the same length.
func FromCols(names []string, cols []column.Column) (*Batch, error) {
	if len(names) != len(cols) {
		return nil, errors.Errorf("batch: %d names for %d columns", len(names), len(cols))
	}
	rows := 0
	for i, c := range cols {
		if i == 0 {
			rows = c.Len()
			continue
		}
		if c.Len() != rows {
			return nil, errors.Errorf("batch: column %q has %d rows, want %d", names[i], c.Len(), rows)
		}
	}
	return &Batch{names: names, cols: cols, rows: rows}, nil
}

// Len returns the row count.
func (b *Batch) Len() int {
	return b.rows
}

// NumCols returns the number of columns.
func (b *Batch) NumCols() int {
	return len(b.cols)
}

// ColumnNames returns the column names in schema order.
func (b *Batch) ColumnNames() []string {
	out := make([]string, len(b.names))
	copy(out, b.names)
	return out
}

// Schema returns the (name, type) pairs in schema order.
func (b *Batch) Schema() []Col {
	out := make([]Col, len(b.cols))
	for i, c := range b.cols {
		out[i] = Col{Name: b.names[i], Type: c.Type().String()}
	}
	return out
}

// Column returns the column at index i.
func (b *Batch) Column(i int) column.Column {
	return b.cols[i]
}

// ColumnByName returns the first column with the given name.
func (b *Batch) ColumnByName(name string) (column.Column, bool) {
	for i, n := range b.names {
		if n == name {
			return b.cols[i], true
		}
	}
	return nil, false
}

// Row returns a proxy for row i. Distinct indices yield distinct Row
// values, so collecting proxies during iteration is safe.
func (b *Batch) Row(i int) Row {
	return Row{b: b, i: i}
}

// Rows returns proxies for every row.
func (b *Batch) Rows() []Row {
	out := make([]Row, b.rows)
	for i := range out {
		out[i] = Row{b: b, i: i}
	}
	return out
}

// ToRows materializes every row as a value slice in schema order.
func (b *Batch) ToRows(o *column.Opts) [][]any {
	out := make([][]any, b.rows)
	for i := range out {
		out[i] = b.Row(i).ToArray(o)
	}
	return out
}

// Row is a lightweight view of one batch row.
type Row struct {
	b *Batch
	i int
}

// Index returns the row's position in the batch.
func (r Row) Index() int {
	return r.i
}

// Get returns the value of the first column with the given name.
func (r Row) Get(name string) (any, bool) {
	c, ok := r.b.ColumnByName(name)
	if !ok {
		return nil, false
	}
	return c.Get(r.i, nil), true
}

// ToObject materializes the row as a fresh name-to-value map. Later
// duplicate column names overwrite earlier ones, matching spreading
// semantics.
func (r Row) ToObject(o *column.Opts) map[string]any {
	out := make(map[string]any, len(r.b.cols))
	for j, c := range r.b.cols {
		out[r.b.names[j]] = c.Get(r.i, o)
	}
	return out
}

// ToArray materializes the row as values in schema order.
func (r Row) ToArray(o *column.Opts) []any {
	out := make([]any, len(r.b.cols))
	for j, c := range r.b.cols {
		out[j] = c.Get(r.i, o)
	}
	return out
}

// schemaCodecs resolves the codec of every schema entry.
func schemaCodecs(schema []Col) ([]codec.Codec, error) {
	out := make([]codec.Codec, len(schema))
	for i, s := range schema {
		c, err := codec.Get(s.Type)
		if err != nil {
			return nil, errors.Wrapf(err, "column %q", s.Name)
		}
		out[i] = c
	}
	return out, nil
}

// buildFromColumnValues applies each codec to its value column.
func buildFromColumnValues(schema []Col, codecs []codec.Codec, vals [][]any) (*Batch, error) {
	names := make([]string, len(schema))
	cols := make([]column.Column, len(schema))
	for i, c := range codecs {
		col, err := c.FromValues(vals[i])
		if err != nil {
			return nil, errors.Wrapf(err, "column %q", schema[i].Name)
		}
		names[i] = schema[i].Name
		cols[i] = col
	}
	return FromCols(names, cols)
}
