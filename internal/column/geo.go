package column

import (
	"github.com/paulmach/orb"

	"chnative/internal/chtype"
)

// Geo wraps the structural column behind a geometric alias (Point is
// Tuple(Float64, Float64), Ring is Array(Point), and so on) and
// materializes orb geometry values.
type Geo struct {
	typ   chtype.Type
	Kind  string // "Point", "Ring", "Polygon", "MultiPolygon"
	Inner Column
}

func NewGeo(typ chtype.Type, kind string, inner Column) *Geo {
	return &Geo{typ: typ, Kind: kind, Inner: inner}
}

func (c *Geo) Type() chtype.Type { return c.typ }
func (c *Geo) Len() int          { return c.Inner.Len() }

func (c *Geo) Get(i int, o *Opts) any {
	v := c.Inner.Get(i, o)
	switch c.Kind {
	case "Point":
		return toPoint(v)
	case "Ring":
		return toRing(v)
	case "Polygon":
		return toPolygon(v)
	case "MultiPolygon":
		vs := v.([]any)
		mp := make(orb.MultiPolygon, len(vs))
		for j, p := range vs {
			mp[j] = toPolygon(p)
		}
		return mp
	}
	return v
}

func toPoint(v any) orb.Point {
	t := v.([]any)
	return orb.Point{t[0].(float64), t[1].(float64)}
}

func toRing(v any) orb.Ring {
	vs := v.([]any)
	ring := make(orb.Ring, len(vs))
	for j, p := range vs {
		ring[j] = toPoint(p)
	}
	return ring
}

func toPolygon(v any) orb.Polygon {
	vs := v.([]any)
	poly := make(orb.Polygon, len(vs))
	for j, r := range vs {
		poly[j] = toRing(r)
	}
	return poly
}
