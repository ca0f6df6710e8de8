package search

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/parcelmap/listing-search/internal/cache"
	"github.com/parcelmap/listing-search/internal/core/compiler"
	"github.com/parcelmap/listing-search/internal/core/filter"
	"github.com/parcelmap/listing-search/internal/core/listing"
	"github.com/parcelmap/listing-search/internal/core/plan"
	"github.com/parcelmap/listing-search/internal/core/storage"
	"golang.org/x/sync/errgroup"
)

const (
	DefaultFacetLimit = 20
	MaxFacetLimit     = 200

	DefaultSuggestionLimit = 10
	MaxSuggestionLimit     = 50
	// MinSuggestionInput is the shortest fragment autocomplete answers.
	MinSuggestionInput = 2
)

// facetable are the strategies whose column holds one plain string value.
var facetable = map[filter.Strategy]bool{
	filter.StrategyCategorical:  true,
	filter.StrategyRegion:       true,
	filter.StrategyPropertyType: true,
	filter.StrategyStatus:       true,
}

// Facets counts the remaining values of each requested key. Each key is
// counted against the filter set without that key, so a facet never narrows
// its own options.
func (s *Service) Facets(ctx context.Context, req FacetRequest) (*FacetResponse, error) {
	if len(req.Keys) == 0 {
		return nil, fmt.Errorf("%w: keys must not be empty", ErrInvalidQuery)
	}
	if req.Limit < 0 || req.Limit > MaxFacetLimit {
		return nil, fmt.Errorf("%w: limit must be between 1 and %d", ErrInvalidQuery, MaxFacetLimit)
	}
	if req.Limit == 0 {
		req.Limit = DefaultFacetLimit
	}

	keys := append([]string(nil), req.Keys...)
	sort.Strings(keys)
	defs := make([]filter.Definition, 0, len(keys))
	for i, key := range keys {
		if i > 0 && keys[i-1] == key {
			continue
		}
		def, ok := filter.Lookup(key)
		if !ok || def.Field == "" || !facetable[def.Strategy] {
			return nil, fmt.Errorf("%w: %q cannot be faceted", ErrInvalidQuery, key)
		}
		defs = append(defs, def)
	}

	key, err := s.cacheKey(cache.ClassFacets, cacheBody{
		Filters:  req.Filters.Canonical(),
		Viewport: req.Viewport,
		Shapes:   req.Shapes,
		Keys:     keys,
		Limit:    req.Limit,
	}, 0, 0, 0, false)
	if err != nil {
		return nil, err
	}

	var cached FacetResponse
	if s.lookup(key, req.ForceFresh, &cached) {
		return &cached, nil
	}

	agents, err := s.resolveAgents(ctx, req.Filters)
	if err != nil {
		return nil, classify(err)
	}
	sp := compiler.Spatial{Viewport: req.Viewport, Shapes: req.Shapes}

	results := make([][]storage.FacetCount, len(defs))
	g, gctx := errgroup.WithContext(ctx)
	for i, def := range defs {
		g.Go(func() error {
			counts, err := s.facet(gctx, req.Filters.Without(def.Key), def, sp, agents, req.Limit)
			if err != nil {
				return fmt.Errorf("facet %s: %w", def.Key, err)
			}
			results[i] = counts
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, classify(err)
	}

	resp := &FacetResponse{Facets: make(map[string][]storage.FacetCount, len(defs))}
	for i, def := range defs {
		resp.Facets[def.Key] = results[i]
	}
	s.store(key, req.ForceFresh, resp)
	return resp, nil
}

// Autocomplete suggests street names matching a fragment, expanded with
// suffix and directional variants ("Main St" finds "Main Street").
func (s *Service) Autocomplete(ctx context.Context, query string, limit int, forceFresh bool) (*AutocompleteResponse, error) {
	query = strings.TrimSpace(query)
	if len([]rune(query)) < MinSuggestionInput {
		return nil, fmt.Errorf("%w: query must be at least %d characters", ErrInvalidQuery, MinSuggestionInput)
	}
	if limit < 0 || limit > MaxSuggestionLimit {
		return nil, fmt.Errorf("%w: limit must be between 1 and %d", ErrInvalidQuery, MaxSuggestionLimit)
	}
	if limit == 0 {
		limit = DefaultSuggestionLimit
	}

	key, err := s.cacheKey(cache.ClassFacets, cacheBody{Query: strings.ToLower(query), Limit: limit}, 0, 0, 0, false)
	if err != nil {
		return nil, err
	}
	var cached AutocompleteResponse
	if s.lookup(key, forceFresh, &cached) {
		return &cached, nil
	}

	def := filter.Definition{Key: "street", Field: listing.FieldStreetName}
	counts, err := s.facet(ctx, filter.New("street", query), def, compiler.Spatial{}, nil, limit)
	if err != nil {
		return nil, classify(err)
	}

	resp := &AutocompleteResponse{Query: query, Suggestions: make([]Suggestion, 0, len(counts))}
	for _, c := range counts {
		resp.Suggestions = append(resp.Suggestions, Suggestion{Street: c.Value, Listings: c.Count})
	}
	s.store(key, forceFresh, resp)
	return resp, nil
}

// facet counts def.Field over the rows set matches, falling back from the
// optimized store like Search does.
func (s *Service) facet(ctx context.Context, set *filter.Set, def filter.Definition, sp compiler.Spatial, agents map[string][]string, limit int) ([]storage.FacetCount, error) {
	p := plan.Select(set, s.stores.Optimized != nil && s.stores.Optimized.Available())
	if def.Strategy == filter.StrategyStatus {
		// Status options span every lifecycle state.
		p = plan.Plan{
			Partitions: []plan.Target{
				{Partition: listing.PartitionLive, Required: true},
				{Partition: listing.PartitionArchive, Required: false},
			},
			BypassStatus: true,
			Reason:       plan.ReasonArchive,
		}
	}

	counts, err := s.facetRun(ctx, p, set, def.Field, sp, agents, limit)
	if err != nil && p.UseOptimized && (errors.Is(err, storage.ErrSchemaMismatch) || errors.Is(err, storage.ErrUnavailable)) {
		fb := p.Fallback()
		slog.Warn("[Search] Optimized store failed facet, falling back to normalized store",
			"field", def.Field,
			"error", err)
		s.recorder.RecordFallback(string(fb.Reason))
		counts, err = s.facetRun(ctx, fb, set, def.Field, sp, agents, limit)
	}
	return counts, err
}

func (s *Service) facetRun(ctx context.Context, p plan.Plan, set *filter.Set, field listing.Field, sp compiler.Spatial, agents map[string][]string, limit int) ([]storage.FacetCount, error) {
	fan, err := s.prepare(p, set, sp, agents)
	if err != nil {
		return nil, err
	}

	parts := make([][]storage.FacetCount, len(fan.targets))
	g, gctx := errgroup.WithContext(ctx)
	for i, t := range fan.targets {
		g.Go(func() error {
			start := s.nowFn()
			counts, err := fan.repo.Facet(gctx, fan.queries[i], field, limit)
			s.recorder.RecordStoreQuery(fan.store, string(t.Partition), "facet", s.nowFn().Sub(start), err)
			if err != nil {
				if tolerate(t, err) {
					slog.Warn("[Search] Optional partition facet failed",
						"partition", t.Partition,
						"error", err)
					return nil
				}
				return fmt.Errorf("partition %s: %w", t.Partition, err)
			}
			parts[i] = counts
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return mergeFacets(parts, limit), nil
}

// mergeFacets sums per-partition counts, orders by count desc then value,
// and truncates to limit.
func mergeFacets(parts [][]storage.FacetCount, limit int) []storage.FacetCount {
	sums := make(map[string]int)
	for _, part := range parts {
		for _, c := range part {
			sums[c.Value] += c.Count
		}
	}
	out := make([]storage.FacetCount, 0, len(sums))
	for v, n := range sums {
		out = append(out, storage.FacetCount{Value: v, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Value < out[j].Value
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}
