package geo

import (
	"math"

	polyclip "github.com/ctessum/polyclip-go"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

// union merges two geometries. Polygonal inputs are unioned with polyclip;
// points and lines are gathered into their multi types, and mixed families
// end up in a collection.
func union(a, b orb.Geometry) (orb.Geometry, error) {
	switch {
	case isEmpty(a) && isEmpty(b):
		return nil, ErrEmpty
	case isEmpty(a):
		return orb.Clone(b), nil
	case isEmpty(b):
		return orb.Clone(a), nil
	}

	if pa, ok := polygons(a); ok {
		if pb, ok := polygons(b); ok {
			return unionPolygons(pa, pb), nil
		}
	}
	if la, ok := lineSet(a); ok {
		if lb, ok := lineSet(b); ok {
			return append(la.Clone(), lb.Clone()...), nil
		}
	}
	if ma, ok := pointSet(a); ok {
		if mb, ok := pointSet(b); ok {
			return append(ma.Clone(), mb.Clone()...), nil
		}
	}
	return orb.Collection{orb.Clone(a), orb.Clone(b)}, nil
}

func polygons(g orb.Geometry) (orb.MultiPolygon, bool) {
	switch v := g.(type) {
	case orb.Polygon:
		return orb.MultiPolygon{v}, true
	case orb.MultiPolygon:
		return v, true
	}
	return nil, false
}

func lineSet(g orb.Geometry) (orb.MultiLineString, bool) {
	switch v := g.(type) {
	case orb.LineString:
		return orb.MultiLineString{v}, true
	case orb.MultiLineString:
		return v, true
	}
	return nil, false
}

func pointSet(g orb.Geometry) (orb.MultiPoint, bool) {
	switch v := g.(type) {
	case orb.Point:
		return orb.MultiPoint{v}, true
	case orb.MultiPoint:
		return v, true
	}
	return nil, false
}

func unionPolygons(a, b orb.MultiPolygon) orb.Geometry {
	out := toClip(a).Construct(polyclip.UNION, toClip(b))
	return fromClip(out)
}

// toClip flattens every ring into a polyclip contour; polyclip uses the
// even-odd rule so holes need no special marking.
func toClip(mp orb.MultiPolygon) polyclip.Polygon {
	var out polyclip.Polygon
	for _, p := range mp {
		for _, r := range p {
			n := len(r)
			if n > 1 && r.Closed() {
				n--
			}
			c := make(polyclip.Contour, 0, n)
			for _, pt := range r[:n] {
				c = append(c, polyclip.Point{X: pt[0], Y: pt[1]})
			}
			if len(c) >= 3 {
				out = append(out, c)
			}
		}
	}
	return out
}

// fromClip rebuilds shells and holes from polyclip contours by nesting
// depth: even depth is a shell, odd depth a hole of the innermost shell
// containing it.
func fromClip(p polyclip.Polygon) orb.Geometry {
	rings := make([]orb.Ring, 0, len(p))
	for _, c := range p {
		if len(c) < 3 {
			continue
		}
		r := make(orb.Ring, 0, len(c)+1)
		for _, pt := range c {
			r = append(r, orb.Point{pt.X, pt.Y})
		}
		r = append(r, r[0])
		rings = append(rings, r)
	}
	if len(rings) == 0 {
		return orb.MultiPolygon{}
	}

	depth := make([]int, len(rings))
	parent := make([]int, len(rings))
	for i := range rings {
		parent[i] = -1
		first := rings[i][0]
		best := math.Inf(1)
		for j := range rings {
			if i == j || !planar.RingContains(rings[j], first) {
				continue
			}
			depth[i]++
			if a := math.Abs(planar.Area(rings[j])); a < best {
				best = a
				parent[i] = j
			}
		}
	}

	index := make(map[int]int, len(rings))
	var mp orb.MultiPolygon
	for i, r := range rings {
		if depth[i]%2 == 0 {
			if r.Orientation() != orb.CCW {
				r.Reverse()
			}
			index[i] = len(mp)
			mp = append(mp, orb.Polygon{r})
		}
	}
	for i, r := range rings {
		if depth[i]%2 == 1 && parent[i] >= 0 {
			if k, ok := index[parent[i]]; ok {
				if r.Orientation() != orb.CW {
					r.Reverse()
				}
				mp[k] = append(mp[k], r)
			}
		}
	}
	if len(mp) == 1 {
		return mp[0]
	}
	return mp
}
