package codec

import (
	"github.com/paulmach/orb"

	"chnative/internal/binio"
	"chnative/internal/chtype"
	"chnative/internal/column"
)

// geoCodec wraps the structural codec behind a geometric alias:
// Point is Tuple(Float64, Float64), Ring is Array(Point), Polygon is
// Array(Ring) and MultiPolygon is Array(Polygon). Values materialize as
// orb geometries.
type geoCodec struct {
	base
	kind  string
	inner Codec
}

var geoStructure = map[string]string{
	"Point":        "Tuple(Float64, Float64)",
	"Ring":         "Array(Tuple(Float64, Float64))",
	"Polygon":      "Array(Array(Tuple(Float64, Float64)))",
	"MultiPolygon": "Array(Array(Array(Tuple(Float64, Float64))))",
}

func newGeoCodec(t chtype.Type) (Codec, error) {
	shape, err := chtype.Parse(geoStructure[t.Base])
	if err != nil {
		return nil, err
	}
	inner, err := ForType(shape)
	if err != nil {
		return nil, err
	}
	return &geoCodec{base: newBase(t), kind: t.Base, inner: inner}, nil
}

func (c *geoCodec) EstimateSize(rows int) int {
	return c.inner.EstimateSize(rows)
}

func (c *geoCodec) ReadPrefix(r *binio.Reader, st *DecodeState) error {
	return c.inner.ReadPrefix(r, st)
}

func (c *geoCodec) WritePrefix(w *binio.Writer, col column.Column) error {
	if g, ok := col.(*column.Geo); ok {
		return c.inner.WritePrefix(w, g.Inner)
	}
	return nil
}

func (c *geoCodec) ReadKinds(r *binio.Reader, st *DecodeState) error {
	return c.inner.ReadKinds(r, st)
}

func (c *geoCodec) Decode(r *binio.Reader, rows int, st *DecodeState) (column.Column, error) {
	inner, err := c.inner.Decode(r, rows, st)
	if err != nil {
		return nil, err
	}
	return column.NewGeo(c.typ, c.kind, inner), nil
}

func (c *geoCodec) Encode(w *binio.Writer, col column.Column) error {
	g, ok := col.(*column.Geo)
	if !ok {
		return coercionErr(c.typ.String(), 0, col, "geo column expected")
	}
	return c.inner.Encode(w, g.Inner)
}

// flattenGeo lowers an orb geometry (or an already-nested []any shape)
// into the structural form the inner codec accepts.
func flattenGeo(v any) any {
	switch x := v.(type) {
	case orb.Point:
		return []any{x[0], x[1]}
	case orb.Ring:
		out := make([]any, len(x))
		for i, p := range x {
			out[i] = flattenGeo(p)
		}
		return out
	case orb.Polygon:
		out := make([]any, len(x))
		for i, r := range x {
			out[i] = flattenGeo(r)
		}
		return out
	case orb.MultiPolygon:
		out := make([]any, len(x))
		for i, p := range x {
			out[i] = flattenGeo(p)
		}
		return out
	default:
		return v
	}
}

func (c *geoCodec) FromValues(values []any) (column.Column, error) {
	lowered := make([]any, len(values))
	for i, v := range values {
		lowered[i] = flattenGeo(v)
	}
	inner, err := c.inner.FromValues(lowered)
	if err != nil {
		return nil, err
	}
	return column.NewGeo(c.typ, c.kind, inner), nil
}

func (c *geoCodec) ZeroValue() any {
	if c.kind == "Point" {
		return orb.Point{}
	}
	return c.inner.ZeroValue()
}
