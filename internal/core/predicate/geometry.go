package predicate

import (
	"fmt"
	"math"
	"strings"

	"github.com/parcelmap/listing-search/internal/core/spatial"
)

// RayCast is point-in-polygon over scalar latitude/longitude columns, written
// as plain arithmetic so it runs on a store without a geometry type.
type RayCast struct {
	Lat  Column
	Lng  Column
	Ring spatial.Ring
}

func (rc RayCast) SQL(_ *Builder) string {
	ring := rc.Ring.Normalized()
	lat, lng := rc.Lat.Expr, rc.Lng.Expr
	f := spatial.FormatCoord
	bounds := ring.Bounds()

	var crossings, edges []string
	for i, j := 0, len(ring)-1; i < len(ring); j, i = i, i+1 {
		a, b := ring[j], ring[i]

		// A point on an edge is inside, matching spatial.ContainsRayCast.
		edges = append(edges, fmt.Sprintf(
			"(ABS((%[1]s - %[3]s) * (%[6]s) - (%[2]s - %[4]s) * (%[5]s)) <= %[7]s AND %[1]s BETWEEN %[8]s AND %[9]s AND %[2]s BETWEEN %[10]s AND %[11]s)",
			lng, lat, f(a.Lng), f(a.Lat), f(b.Lng-a.Lng), f(b.Lat-a.Lat), "1e-12",
			f(math.Min(a.Lng, b.Lng)), f(math.Max(a.Lng, b.Lng)),
			f(math.Min(a.Lat, b.Lat)), f(math.Max(a.Lat, b.Lat)),
		))

		// Horizontal edges never toggle the crossing parity.
		if b.Lat == a.Lat {
			continue
		}
		slope := (a.Lng - b.Lng) / (a.Lat - b.Lat)
		crossings = append(crossings, fmt.Sprintf(
			"CASE WHEN ((%[1]s > %[3]s) <> (%[1]s > %[4]s)) AND %[2]s < %[5]s + (%[1]s - %[3]s) * %[6]s THEN 1 ELSE 0 END",
			lat, lng, f(b.Lat), f(a.Lat), f(b.Lng), f(slope),
		))
	}

	return fmt.Sprintf("(%s BETWEEN %s AND %s AND %s BETWEEN %s AND %s AND (%s OR (%s) %% 2 = 1))",
		lat, f(bounds.South), f(bounds.North),
		lng, f(bounds.West), f(bounds.East),
		strings.Join(edges, " OR "),
		strings.Join(crossings, " + "),
	)
}

func (rc RayCast) Match(r Record) bool {
	p, ok := point(r, rc.Lat, rc.Lng)
	return ok && spatial.ContainsRayCast(rc.Ring, p)
}

func (rc RayCast) Columns() []Column { return []Column{rc.Lat, rc.Lng} }

// GeoCovers is point-in-polygon against a stored geometry column using the
// database's native containment test. Boundary points are covered.
type GeoCovers struct {
	Geom Column
	Lat  Column
	Lng  Column
	Ring spatial.Ring
}

func (g GeoCovers) SQL(b *Builder) string {
	return fmt.Sprintf("ST_Covers(ST_GeomFromText(%s, 4326), %s)", b.Arg(g.Ring.WKT()), g.Geom.Expr)
}

func (g GeoCovers) Match(r Record) bool {
	p, ok := point(r, g.Lat, g.Lng)
	return ok && spatial.ContainsWinding(g.Ring, p)
}

func (g GeoCovers) Columns() []Column { return []Column{g.Geom} }

func point(r Record, latCol, lngCol Column) (spatial.Point, bool) {
	lat, ok := r.Value(latCol.Field)
	if !ok {
		return spatial.Point{}, false
	}
	lng, ok := r.Value(lngCol.Field)
	if !ok {
		return spatial.Point{}, false
	}
	la, ok1 := toDecimal(lat)
	ln, ok2 := toDecimal(lng)
	if !ok1 || !ok2 {
		return spatial.Point{}, false
	}
	return spatial.Point{Lat: la.InexactFloat64(), Lng: ln.InexactFloat64()}, true
}
