package batch

import (
	"context"
	"iter"

	"github.com/go-faster/errors"
)

// FromRows builds a batch from row-major values. Each row must have one
// value per schema entry; values are coerced by the column codecs, so a
// decimal-like string is accepted for an integer column while
// non-integer numbers and out-of-range values are rejected.
func FromRows(schema []Col, rows [][]any) (*Batch, error) {
	codecs, err := schemaCodecs(schema)
	if err != nil {
		return nil, err
	}
	vals := make([][]any, len(schema))
	for i := range vals {
		vals[i] = make([]any, len(rows))
	}
	for r, row := range rows {
		if len(row) != len(schema) {
			return nil, errors.Errorf("batch: row %d has %d values, want %d", r, len(row), len(schema))
		}
		for i := range schema {
			vals[i][r] = row[i]
		}
	}
	return buildFromColumnValues(schema, codecs, vals)
}

// FromRowSeq is FromRows over an iterator of rows.
func FromRowSeq(schema []Col, rows iter.Seq[[]any]) (*Batch, error) {
	var collected [][]any
	for row := range rows {
		collected = append(collected, row)
	}
	return FromRows(schema, collected)
}

// FromRowChan is FromRows over a channel of rows, the Go rendering of an
// asynchronous row feed. It drains the channel until it closes or ctx is
// canceled.
func FromRowChan(ctx context.Context, schema []Col, rows <-chan []any) (*Batch, error) {
	var collected [][]any
	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case row, ok := <-rows:
			if !ok {
				return FromRows(schema, collected)
			}
			collected = append(collected, row)
		}
	}
}

// FromArrays builds a batch from column-major values keyed by column
// name. Every schema entry must be present and all arrays must have the
// same length.
func FromArrays(schema []Col, arrays map[string][]any) (*Batch, error) {
	codecs, err := schemaCodecs(schema)
	if err != nil {
		return nil, err
	}
	vals := make([][]any, len(schema))
	rows := -1
	for i, s := range schema {
		arr, ok := arrays[s.Name]
		if !ok {
			return nil, errors.Errorf("batch: missing values for column %q", s.Name)
		}
		if rows == -1 {
			rows = len(arr)
		} else if len(arr) != rows {
			return nil, errors.Errorf("batch: column %q has %d values, want %d", s.Name, len(arr), rows)
		}
		vals[i] = arr
	}
	return buildFromColumnValues(schema, codecs, vals)
}

// Builder accumulates rows for incremental ingest and coerces them into
// a batch on Build.
type Builder struct {
	schema []Col
	rows   [][]any
}

// NewBuilder returns a builder over the given schema.
func NewBuilder(schema []Col) *Builder {
	return &Builder{schema: schema}
}

// Append adds one row. Arity is checked here; value coercion happens in
// Build so errors carry the final row index.
func (b *Builder) Append(row ...any) error {
	if len(row) != len(b.schema) {
		return errors.Errorf("batch: row has %d values, want %d", len(row), len(b.schema))
	}
	b.rows = append(b.rows, row)
	return nil
}

// Len returns the number of buffered rows.
func (b *Builder) Len() int {
	return len(b.rows)
}

// Build coerces the buffered rows into a batch and resets the builder.
func (b *Builder) Build() (*Batch, error) {
	rows := b.rows
	b.rows = nil
	return FromRows(b.schema, rows)
}
