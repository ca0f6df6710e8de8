package spatial

import (
	"math"
	"strconv"
	"strings"
)

// edgeEpsilon is the collinearity tolerance used when deciding that a point
// sits on a polygon edge. Coordinates are degrees, so this is sub-millimetre.
const edgeEpsilon = 1e-12

// Point is a WGS84 coordinate.
type Point struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Rect is an axis-aligned map viewport.
type Rect struct {
	North float64 `json:"north"`
	South float64 `json:"south"`
	East  float64 `json:"east"`
	West  float64 `json:"west"`
}

// Valid reports whether the rectangle has a positive extent inside WGS84 bounds.
// Viewports crossing the antimeridian are not supported.
func (r Rect) Valid() bool {
	if r.North > 90 || r.South < -90 || r.East > 180 || r.West < -180 {
		return false
	}
	return r.North > r.South && r.East > r.West
}

// Contains reports whether p lies inside or on the rectangle.
func (r Rect) Contains(p Point) bool {
	return p.Lat >= r.South && p.Lat <= r.North && p.Lng >= r.West && p.Lng <= r.East
}

// Ring is a closed polygon boundary. The closing vertex may be omitted.
type Ring []Point

// Normalized drops a repeated closing vertex and consecutive duplicates.
func (r Ring) Normalized() Ring {
	out := make(Ring, 0, len(r))
	for _, p := range r {
		if len(out) > 0 && out[len(out)-1] == p {
			continue
		}
		out = append(out, p)
	}
	if len(out) > 1 && out[0] == out[len(out)-1] {
		out = out[:len(out)-1]
	}
	return out
}

// Valid reports whether the ring has at least three distinct vertices and a
// non-zero area. Invalid rings are ignored by the query engine, never an error.
func (r Ring) Valid() bool {
	n := r.Normalized()
	if len(n) < 3 {
		return false
	}
	for _, p := range n {
		if math.IsNaN(p.Lat) || math.IsNaN(p.Lng) || math.Abs(p.Lat) > 90 || math.Abs(p.Lng) > 180 {
			return false
		}
	}
	return math.Abs(n.signedArea()) > edgeEpsilon
}

func (r Ring) signedArea() float64 {
	var sum float64
	for i := range r {
		j := (i + 1) % len(r)
		sum += r[i].Lng*r[j].Lat - r[j].Lng*r[i].Lat
	}
	return sum / 2
}

// Bounds returns the ring's bounding rectangle.
func (r Ring) Bounds() Rect {
	b := Rect{North: -90, South: 90, East: -180, West: 180}
	for _, p := range r {
		b.North = math.Max(b.North, p.Lat)
		b.South = math.Min(b.South, p.Lat)
		b.East = math.Max(b.East, p.Lng)
		b.West = math.Min(b.West, p.Lng)
	}
	return b
}

// WKT renders the ring as a closed WKT polygon in lng/lat axis order.
func (r Ring) WKT() string {
	n := r.Normalized()
	var sb strings.Builder
	sb.WriteString("POLYGON((")
	for i, p := range append(n, n[0]) {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(FormatCoord(p.Lng))
		sb.WriteByte(' ')
		sb.WriteString(FormatCoord(p.Lat))
	}
	sb.WriteString("))")
	return sb.String()
}

// FormatCoord prints a coordinate with the shortest exact representation.
func FormatCoord(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// OnBoundary reports whether p lies on any edge of the ring.
func OnBoundary(r Ring, p Point) bool {
	n := r.Normalized()
	for i := range n {
		a, b := n[i], n[(i+1)%len(n)]
		if onSegment(a, b, p) {
			return true
		}
	}
	return false
}

func onSegment(a, b, p Point) bool {
	cross := (p.Lng-a.Lng)*(b.Lat-a.Lat) - (p.Lat-a.Lat)*(b.Lng-a.Lng)
	if math.Abs(cross) > edgeEpsilon {
		return false
	}
	return p.Lng >= math.Min(a.Lng, b.Lng) && p.Lng <= math.Max(a.Lng, b.Lng) &&
		p.Lat >= math.Min(a.Lat, b.Lat) && p.Lat <= math.Max(a.Lat, b.Lat)
}

// ContainsRayCast decides containment with the crossing-number algorithm over
// plain scalar coordinates. Points on an edge count as inside.
func ContainsRayCast(r Ring, p Point) bool {
	n := r.Normalized()
	if len(n) < 3 {
		return false
	}
	if OnBoundary(n, p) {
		return true
	}
	inside := false
	for i, j := 0, len(n)-1; i < len(n); j, i = i, i+1 {
		yi, yj := n[i].Lat, n[j].Lat
		xi, xj := n[i].Lng, n[j].Lng
		if (yi > p.Lat) != (yj > p.Lat) &&
			p.Lng < (xj-xi)*(p.Lat-yi)/(yj-yi)+xi {
			inside = !inside
		}
	}
	return inside
}

// ContainsWinding decides containment with the winding-number algorithm, the
// rule geometry engines apply for covers-style tests. Points on an edge count
// as inside. For simple rings it agrees with ContainsRayCast.
func ContainsWinding(r Ring, p Point) bool {
	n := r.Normalized()
	if len(n) < 3 {
		return false
	}
	if OnBoundary(n, p) {
		return true
	}
	winding := 0
	for i := range n {
		a, b := n[i], n[(i+1)%len(n)]
		isLeft := (b.Lng-a.Lng)*(p.Lat-a.Lat) - (p.Lng-a.Lng)*(b.Lat-a.Lat)
		if a.Lat <= p.Lat {
			if b.Lat > p.Lat && isLeft > 0 {
				winding++
			}
		} else if b.Lat <= p.Lat && isLeft < 0 {
			winding--
		}
	}
	return winding != 0
}
