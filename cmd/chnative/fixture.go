package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/BurntSushi/toml"

	"chnative"
	"chnative/batch"
	"chnative/compress"
	"chnative/internal/stream"
)

// fixtureFile is the top-level TOML document consumed by `chnative gen`:
// a [stream] table with framing settings and one [[columns]] table per
// column.
type fixtureFile struct {
	Stream  fixtureStream   `toml:"stream"`
	Columns []fixtureColumn `toml:"columns"`
}

type fixtureStream struct {
	ClientVersion int    `toml:"client_version"`
	Compression   string `toml:"compression"`
}

type fixtureColumn struct {
	Name   string `toml:"name"`
	Type   string `toml:"type"`
	Values []any  `toml:"values"`
}

// parseFixture reads and validates a fixture file.
func parseFixture(path string) (*fixtureFile, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("fixture: open %q: %w", path, err)
	}
	defer f.Close()

	var fx fixtureFile
	if _, err := toml.NewDecoder(f).Decode(&fx); err != nil {
		return nil, fmt.Errorf("fixture: decode error: %w", err)
	}
	if len(fx.Columns) == 0 {
		return nil, fmt.Errorf("fixture: no columns defined")
	}
	rows := len(fx.Columns[0].Values)
	for _, c := range fx.Columns {
		if c.Name == "" || c.Type == "" {
			return nil, fmt.Errorf("fixture: every column needs a name and a type")
		}
		if len(c.Values) != rows {
			return nil, fmt.Errorf("fixture: column %q has %d values, want %d", c.Name, len(c.Values), rows)
		}
	}
	switch strings.ToLower(fx.Stream.Compression) {
	case "", "none", "lz4", "zstd":
	default:
		return nil, fmt.Errorf("fixture: unknown compression %q", fx.Stream.Compression)
	}
	return &fx, nil
}

// batch converts the fixture columns into a record batch.
func (fx *fixtureFile) batch() (*batch.Batch, error) {
	schema := make([]batch.Col, len(fx.Columns))
	arrays := make(map[string][]any, len(fx.Columns))
	for i, c := range fx.Columns {
		schema[i] = batch.Col{Name: c.Name, Type: c.Type}
		arrays[c.Name] = c.Values
	}
	b, err := batch.FromArrays(schema, arrays)
	if err != nil {
		return nil, fmt.Errorf("fixture: %w", err)
	}
	return b, nil
}

// encoder builds the stream encoder the fixture's settings call for.
func (fx *fixtureFile) encoder(w io.Writer, opts chnative.Options) (*stream.Encoder, error) {
	switch strings.ToLower(fx.Stream.Compression) {
	case "", "none":
		if fx.Stream.Compression == "" {
			return chnative.NewEncoder(w, opts), nil
		}
		return chnative.NewCompressedEncoder(w, compress.None, opts), nil
	case "lz4":
		return chnative.NewCompressedEncoder(w, compress.LZ4, opts), nil
	case "zstd":
		return chnative.NewCompressedEncoder(w, compress.ZSTD, opts), nil
	}
	return nil, fmt.Errorf("fixture: unknown compression %q", fx.Stream.Compression)
}
