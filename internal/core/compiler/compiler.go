// Package compiler turns a filter set and spatial input into a storage
// predicate for one table layout.
package compiler

import (
	"fmt"
	"sort"
	"strings"

	"github.com/parcelmap/listing-search/internal/core/address"
	"github.com/parcelmap/listing-search/internal/core/filter"
	"github.com/parcelmap/listing-search/internal/core/listing"
	"github.com/parcelmap/listing-search/internal/core/plan"
	"github.com/parcelmap/listing-search/internal/core/predicate"
	"github.com/parcelmap/listing-search/internal/core/spatial"
	"github.com/parcelmap/listing-search/internal/core/storage"
	"github.com/shopspring/decimal"
)

// Spatial is the map input of a request.
type Spatial struct {
	Viewport *spatial.Rect  `json:"viewport,omitempty"`
	Shapes   []spatial.Ring `json:"shapes,omitempty"`
}

// Options tune one compilation.
type Options struct {
	// BypassStatus drops the status predicate. Lookups bypass it regardless.
	BypassStatus bool
	// Agents maps an agent filter key to directory-resolved listing keys.
	// Keys without an entry match the raw filter values.
	Agents map[string][]string
}

// Compiled is the result of compiling a filter set.
type Compiled struct {
	Where predicate.Predicate
	// Tables are the sub-tables Where reads, for minimal joins.
	Tables []string
	// Post is the school-quality filter applied after the query.
	Post filter.SchoolCriteria
	// Skipped lists keys that were unknown or malformed and therefore ignored.
	Skipped []string
}

// Compile builds the predicate for layout. A filter whose column the layout
// does not store yields storage.ErrSchemaMismatch.
func Compile(set *filter.Set, layout storage.Layout, sp Spatial, opts Options) (Compiled, error) {
	c := &compilation{layout: layout, opts: opts}

	var where predicate.And
	if !opts.BypassStatus && !plan.IsLookup(set) {
		statuses, _ := filter.Statuses(set)
		p, err := c.statusPredicate(statuses)
		if err != nil {
			return Compiled{}, err
		}
		where = append(where, p)
	}

	var regions []regionPredicate
	for _, e := range set.Active() {
		def, ok := filter.Lookup(e.Key)
		if !ok {
			c.skipped = append(c.skipped, e.Key)
			continue
		}
		if def.Strategy == filter.StrategyStatus || def.Strategy == filter.StrategySchool {
			continue
		}
		p, err := c.compile(def, e.Value)
		if err != nil {
			return Compiled{}, err
		}
		if p == nil {
			c.skipped = append(c.skipped, e.Key)
			continue
		}
		if _, noop := p.(predicate.True); noop {
			continue
		}
		if def.Strategy == filter.StrategyRegion {
			regions = append(regions, regionPredicate{key: e.Key, pred: p})
			continue
		}
		where = append(where, p)
	}

	group, err := c.spatialGroup(sp, regions)
	if err != nil {
		return Compiled{}, err
	}
	if group != nil {
		where = append(where, group)
	}

	return Compiled{
		Where:   where,
		Tables:  predicate.Tables(where),
		Post:    filter.School(set),
		Skipped: c.skipped,
	}, nil
}

type regionPredicate struct {
	key  string
	pred predicate.Predicate
}

type compilation struct {
	layout  storage.Layout
	opts    Options
	skipped []string
}

func (c *compilation) column(key string, f listing.Field) (predicate.Column, error) {
	col, ok := c.layout.Column(f)
	if !ok {
		return predicate.Column{}, fmt.Errorf("%w: %s store has no column for %q", storage.ErrSchemaMismatch, c.layout.Name, key)
	}
	return col, nil
}

func (c *compilation) statusPredicate(statuses []listing.Status) (predicate.Predicate, error) {
	col, err := c.column("status", listing.FieldStatus)
	if err != nil {
		return nil, err
	}
	values := make([]string, len(statuses))
	for i, s := range statuses {
		values[i] = string(s)
	}
	return membership(col, values), nil
}

// compile returns nil when the value is malformed.
func (c *compilation) compile(def filter.Definition, value any) (predicate.Predicate, error) {
	if def.Strategy == filter.StrategyAgent {
		return c.agent(def, value)
	}

	col, err := c.column(def.Key, def.Field)
	if err != nil {
		return nil, err
	}

	switch def.Strategy {
	case filter.StrategyRange:
		r, ok := filter.AsRange(value)
		if !ok {
			return nil, nil
		}
		return bounds(col, convertRange(r, def.Unit, col.Unit)), nil

	case filter.StrategyMultiNumber:
		choice, ok := filter.AsNumberChoice(value)
		if !ok {
			return nil, nil
		}
		var alts predicate.Or
		for _, d := range choice.Exact {
			alts = append(alts, predicate.Cmp{Col: col, Op: predicate.OpEq, Value: d})
		}
		if choice.Range.Bounded() {
			alts = append(alts, bounds(col, choice.Range))
		}
		return single(alts), nil

	case filter.StrategyCategorical, filter.StrategyRegion, filter.StrategyIdentifier:
		values, ok := filter.AsStrings(value)
		if !ok {
			return nil, nil
		}
		return membership(col, values), nil

	case filter.StrategyPropertyType:
		values, ok := filter.AsStrings(value)
		if !ok {
			return nil, nil
		}
		return membership(col, expandPropertyTypes(values)), nil

	case filter.StrategyArrayText:
		values, ok := filter.AsStrings(value)
		if !ok {
			return nil, nil
		}
		var alts predicate.Or
		for _, v := range values {
			alts = append(alts, predicate.JSONArrayText{Col: col, Value: v})
		}
		return single(alts), nil

	case filter.StrategyBool:
		on, ok := filter.AsBool(value)
		if !ok {
			return nil, nil
		}
		if !on {
			return predicate.True{}, nil
		}
		return predicate.Cmp{Col: col, Op: predicate.OpEq, Value: true}, nil

	case filter.StrategyFreeText:
		s, ok := value.(string)
		if !ok {
			return nil, nil
		}
		return streetMatch(col, s), nil

	case filter.StrategyAddress:
		s, ok := value.(string)
		if !ok {
			return nil, nil
		}
		parsed, ok := address.Parse(s)
		if !ok {
			return streetMatch(col, s), nil
		}
		numberCol, err := c.column(def.Key, listing.FieldStreetNumber)
		if err != nil {
			return nil, err
		}
		return predicate.And{
			predicate.Cmp{Col: numberCol, Op: predicate.OpEq, Value: strings.ToUpper(parsed.Number)},
			streetMatch(col, parsed.Street),
		}, nil
	}
	return nil, nil
}

// agent matches resolved agent keys against the list agent, buyer agent
// and team member columns. The bare "agent" key matches any of the three.
func (c *compilation) agent(def filter.Definition, value any) (predicate.Predicate, error) {
	keys, resolved := c.opts.Agents[def.Key]
	if !resolved {
		var ok bool
		keys, ok = filter.AsStrings(value)
		if !ok {
			return nil, nil
		}
	}
	if len(keys) == 0 {
		// The directory knew none of the identifiers; nothing can match.
		return predicate.Or{}, nil
	}

	fields := []listing.Field{def.Field}
	if def.Field == "" {
		fields = []listing.Field{listing.FieldListAgent, listing.FieldBuyerAgent, listing.FieldTeamMembers}
	}

	var alts predicate.Or
	for _, f := range fields {
		col, err := c.column(def.Key, f)
		if err != nil {
			return nil, err
		}
		if f == listing.FieldTeamMembers {
			for _, k := range keys {
				alts = append(alts, predicate.JSONArrayText{Col: col, Value: k})
			}
			continue
		}
		alts = append(alts, membership(col, keys))
	}
	return single(alts), nil
}

// spatialGroup ORs polygons (or the viewport when no polygon is usable) with
// the named-region filters. Regions are ordered by key so the group does not
// depend on the order filters were applied in.
func (c *compilation) spatialGroup(sp Spatial, regions []regionPredicate) (predicate.Predicate, error) {
	var group predicate.Or

	var rings []spatial.Ring
	for _, r := range sp.Shapes {
		if r.Valid() {
			rings = append(rings, r.Normalized())
		}
	}

	if len(rings) > 0 || (sp.Viewport != nil && sp.Viewport.Valid()) {
		lat, err := c.column("viewport", listing.FieldLatitude)
		if err != nil {
			return nil, err
		}
		lng, err := c.column("viewport", listing.FieldLongitude)
		if err != nil {
			return nil, err
		}

		if len(rings) > 0 {
			for _, ring := range rings {
				if c.layout.HasGeometry {
					geom, err := c.column("shapes", listing.FieldLocation)
					if err != nil {
						return nil, err
					}
					group = append(group, predicate.GeoCovers{Geom: geom, Lat: lat, Lng: lng, Ring: ring})
				} else {
					group = append(group, predicate.RayCast{Lat: lat, Lng: lng, Ring: ring})
				}
			}
		} else {
			group = append(group, rectangle(lat, lng, *sp.Viewport))
		}
	}

	sort.SliceStable(regions, func(i, j int) bool { return regions[i].key < regions[j].key })
	for _, r := range regions {
		group = append(group, r.pred)
	}

	if len(group) == 0 {
		return nil, nil
	}
	return single(group), nil
}

func rectangle(lat, lng predicate.Column, r spatial.Rect) predicate.Predicate {
	return predicate.And{
		predicate.Cmp{Col: lat, Op: predicate.OpGte, Value: decimal.NewFromFloat(r.South)},
		predicate.Cmp{Col: lat, Op: predicate.OpLte, Value: decimal.NewFromFloat(r.North)},
		predicate.Cmp{Col: lng, Op: predicate.OpGte, Value: decimal.NewFromFloat(r.West)},
		predicate.Cmp{Col: lng, Op: predicate.OpLte, Value: decimal.NewFromFloat(r.East)},
	}
}

// bounds emits one comparison per present side; an absent side is omitted.
// Bounds on integer columns are rounded inward.
func bounds(col predicate.Column, r filter.Range) predicate.Predicate {
	if col.Integer {
		r.Min.Decimal = r.Min.Decimal.Ceil()
		r.Max.Decimal = r.Max.Decimal.Floor()
	}
	var all predicate.And
	if r.Min.Valid {
		all = append(all, predicate.Cmp{Col: col, Op: predicate.OpGte, Value: r.Min.Decimal})
	}
	if r.Max.Valid {
		all = append(all, predicate.Cmp{Col: col, Op: predicate.OpLte, Value: r.Max.Decimal})
	}
	if len(all) == 1 {
		return all[0]
	}
	return all
}

func convertRange(r filter.Range, from, to predicate.Unit) filter.Range {
	if r.Min.Valid {
		r.Min.Decimal = predicate.Convert(r.Min.Decimal, from, to)
	}
	if r.Max.Valid {
		r.Max.Decimal = predicate.Convert(r.Max.Decimal, from, to)
	}
	return r
}

func membership(col predicate.Column, values []string) predicate.Predicate {
	if len(values) == 1 {
		return predicate.Cmp{Col: col, Op: predicate.OpEq, Value: values[0]}
	}
	return predicate.In{Col: col, Values: values}
}

func streetMatch(col predicate.Column, input string) predicate.Predicate {
	var alts predicate.Or
	for _, v := range address.Variants(input) {
		alts = append(alts, predicate.ContainsText{Col: col, Needle: v})
	}
	if len(alts) == 0 {
		return nil
	}
	return single(alts)
}

// residentialIncome is matched alongside "Residential".
const residentialIncome = "Residential Income"

func expandPropertyTypes(values []string) []string {
	out := append([]string(nil), values...)
	for _, v := range values {
		if strings.EqualFold(v, "Residential") {
			for _, existing := range out {
				if existing == residentialIncome {
					return out
				}
			}
			return append(out, residentialIncome)
		}
	}
	return out
}

func single(or predicate.Or) predicate.Predicate {
	if len(or) == 1 {
		return or[0]
	}
	return or
}
