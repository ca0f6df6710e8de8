// Package search orchestrates a listing search: cache, routing, compilation,
// partition fan-out, ranking, post-filtering and enrichment.
package search

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/parcelmap/listing-search/internal/cache"
	"github.com/parcelmap/listing-search/internal/core/compiler"
	"github.com/parcelmap/listing-search/internal/core/filter"
	"github.com/parcelmap/listing-search/internal/core/listing"
	"github.com/parcelmap/listing-search/internal/core/plan"
	"github.com/parcelmap/listing-search/internal/core/ranking"
	"github.com/parcelmap/listing-search/internal/core/storage"
	"github.com/parcelmap/listing-search/internal/enrichment"
	"github.com/parcelmap/listing-search/internal/metrics"
	"golang.org/x/sync/errgroup"
)

const (
	DefaultPageSize = 50
	MaxPageSize     = 500
	// MaxOffset bounds deep paging; every partition fetches offset+page rows.
	MaxOffset = 10_000

	DefaultOverFetchFactor = 4
	DefaultMaxCandidates   = 2_000
)

var (
	// ErrInvalidQuery marks request shape errors that should return HTTP 400.
	ErrInvalidQuery = errors.New("invalid search request")

	// ErrStorageUnavailable marks requests no store could answer (HTTP 503).
	ErrStorageUnavailable = errors.New("listing storage unavailable")
)

// Stores are the physical stores and the agent directory.
type Stores struct {
	Optimized  storage.Repository
	Normalized storage.Repository
	// Agents may be nil, in which case agent filters match raw keys.
	Agents storage.AgentDirectory
}

// Config tunes ranking and post-filter over-fetching.
type Config struct {
	ExclusiveThreshold int64
	// OverFetchFactor multiplies the row limit while a school filter is active.
	OverFetchFactor int
	// MaxCandidates caps the over-fetched row limit.
	MaxCandidates int
}

// Service answers searches, facet counts and street autocomplete.
type Service struct {
	stores   Stores
	enricher *enrichment.Pipeline
	cache    *cache.Cache
	recorder metrics.Recorder
	cfg      Config
	nowFn    func() time.Time
}

// NewService wires the search pipeline. Zero config values take defaults.
func NewService(stores Stores, enricher *enrichment.Pipeline, resultCache *cache.Cache, recorder metrics.Recorder, cfg Config) *Service {
	if cfg.ExclusiveThreshold == 0 {
		cfg.ExclusiveThreshold = storage.DefaultExclusiveThreshold
	}
	if cfg.OverFetchFactor <= 0 {
		cfg.OverFetchFactor = DefaultOverFetchFactor
	}
	if cfg.MaxCandidates <= 0 {
		cfg.MaxCandidates = DefaultMaxCandidates
	}
	if recorder == nil {
		recorder = metrics.Nop{}
	}
	if enricher == nil {
		enricher = enrichment.NewPipeline(nil, nil, 0, recorder)
	}
	return &Service{
		stores:   stores,
		enricher: enricher,
		cache:    resultCache,
		recorder: recorder,
		cfg:      cfg,
		nowFn: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Search runs one map/list search.
func (s *Service) Search(ctx context.Context, req Request) (*Response, error) {
	if err := normalize(&req); err != nil {
		return nil, err
	}

	class := cache.ClassInitial
	if req.Pan {
		class = cache.ClassPan
	}
	key, err := s.cacheKey(class, cacheBody{
		Filters:  req.Filters.Canonical(),
		Viewport: req.Viewport,
		Shapes:   req.Shapes,
	}, req.Page, req.PageSize, req.Zoom, req.CountOnly)
	if err != nil {
		return nil, err
	}

	var cached Response
	if s.lookup(key, req.ForceFresh, &cached) {
		return &cached, nil
	}

	start := s.nowFn()
	resp, err := s.search(ctx, req)
	if err != nil {
		return nil, err
	}
	s.store(key, req.ForceFresh, resp)

	slog.Debug("[Search] Search completed",
		"total", resp.Total,
		"returned", len(resp.Listings),
		"count_only", req.CountOnly,
		"duration_ms", s.nowFn().Sub(start).Milliseconds())
	return resp, nil
}

// normalize applies paging defaults and rejects impossible requests.
func normalize(req *Request) error {
	if req.Page < 0 {
		return fmt.Errorf("%w: page must be >= 1", ErrInvalidQuery)
	}
	if req.PageSize < 0 || req.PageSize > MaxPageSize {
		return fmt.Errorf("%w: page_size must be between 1 and %d", ErrInvalidQuery, MaxPageSize)
	}
	if req.Page == 0 {
		req.Page = 1
	}
	if req.PageSize == 0 {
		req.PageSize = DefaultPageSize
	}
	if (req.Page-1)*req.PageSize > MaxOffset {
		return fmt.Errorf("%w: offset beyond %d", ErrInvalidQuery, MaxOffset)
	}
	return nil
}

func (s *Service) search(ctx context.Context, req Request) (*Response, error) {
	agents, err := s.resolveAgents(ctx, req.Filters)
	if err != nil {
		return nil, classify(err)
	}

	p := plan.Select(req.Filters, s.stores.Optimized != nil && s.stores.Optimized.Available())
	if !p.UseOptimized {
		s.recorder.RecordFallback(string(p.Reason))
	}

	x := execution{
		req:    req,
		sp:     compiler.Spatial{Viewport: req.Viewport, Shapes: req.Shapes},
		agents: agents,
		post:   filter.School(req.Filters),
		offset: (req.Page - 1) * req.PageSize,
	}

	resp, err := s.run(ctx, p, x)
	if err != nil && p.UseOptimized && (errors.Is(err, storage.ErrSchemaMismatch) || errors.Is(err, storage.ErrUnavailable)) {
		fb := p.Fallback()
		slog.Warn("[Search] Optimized store failed, falling back to normalized store",
			"reason", fb.Reason,
			"error", err)
		s.recorder.RecordFallback(string(fb.Reason))
		resp, err = s.run(ctx, fb, x)
	}
	if err != nil {
		return nil, classify(err)
	}
	return resp, nil
}

// execution carries the per-request inputs shared by the primary and the
// fallback run.
type execution struct {
	req    Request
	sp     compiler.Spatial
	agents map[string][]string
	post   filter.SchoolCriteria
	offset int
}

func (s *Service) run(ctx context.Context, p plan.Plan, x execution) (*Response, error) {
	fan, err := s.prepare(p, x.req.Filters, x.sp, x.agents)
	if err != nil {
		return nil, err
	}

	if x.req.CountOnly && !x.post.Active() {
		total, err := s.count(ctx, fan)
		if err != nil {
			return nil, err
		}
		return &Response{Total: total, TotalIsExact: true}, nil
	}

	limit := x.offset + x.req.PageSize
	if x.post.Active() {
		limit = min(limit*s.cfg.OverFetchFactor, max(s.cfg.MaxCandidates, limit))
	}

	parts, total, truncated, err := s.fetch(ctx, fan, limit, !x.post.Active())
	if err != nil {
		return nil, err
	}
	rows := ranking.Ranker{ExclusiveThreshold: s.cfg.ExclusiveThreshold}.Merge(parts...)

	resp := &Response{Total: total, TotalIsExact: true}
	if x.post.Active() {
		s.enricher.AttachGrades(ctx, rows, x.post.RadiusMiles)
		rows = enrichment.ApplySchoolFilter(rows, x.post)
		resp.Total = len(rows)
		resp.TotalIsExact = !truncated
	}
	if x.req.CountOnly {
		return resp, nil
	}

	page := append([]listing.Listing{}, ranking.Page(rows, x.offset, x.req.PageSize)...)
	if !x.post.Active() {
		s.enricher.AttachGrades(ctx, page, filter.DefaultSchoolRadiusMiles)
	}
	s.enricher.AttachEvents(ctx, page)
	resp.Listings = page
	return resp, nil
}

// fanout is a compiled plan: one query per partition against one store.
type fanout struct {
	repo    storage.Repository
	store   string
	targets []plan.Target
	queries []storage.Query
}

func (s *Service) prepare(p plan.Plan, set *filter.Set, sp compiler.Spatial, agents map[string][]string) (fanout, error) {
	f := fanout{repo: s.stores.Normalized, store: "normalized", targets: p.Partitions}
	if p.UseOptimized {
		f.repo = s.stores.Optimized
		f.store = "optimized"
		f.targets = []plan.Target{{Partition: listing.PartitionLive, Required: true}}
	}
	if f.repo == nil {
		return fanout{}, fmt.Errorf("%w: no %s store configured", storage.ErrUnavailable, f.store)
	}

	opts := compiler.Options{BypassStatus: p.BypassStatus, Agents: agents}
	for _, t := range f.targets {
		compiled, err := compiler.Compile(set, f.repo.Layout(t.Partition), sp, opts)
		if err != nil {
			return fanout{}, err
		}
		if len(compiled.Skipped) > 0 {
			slog.Debug("[Search] Skipped unknown or malformed filters",
				"keys", compiled.Skipped,
				"partition", t.Partition)
		}
		f.queries = append(f.queries, storage.Query{
			Partition:          t.Partition,
			Where:              compiled.Where,
			Tables:             compiled.Tables,
			ExclusiveThreshold: s.cfg.ExclusiveThreshold,
		})
	}
	return f, nil
}

// fetch queries every partition concurrently. A failing optional partition
// contributes nothing. truncated reports whether any partition hit limit.
func (s *Service) fetch(ctx context.Context, f fanout, limit int, withCount bool) ([][]listing.Listing, int, bool, error) {
	parts := make([][]listing.Listing, len(f.targets))
	counts := make([]int, len(f.targets))

	g, gctx := errgroup.WithContext(ctx)
	for i, t := range f.targets {
		q := f.queries[i]
		q.Limit = limit
		g.Go(func() error {
			rows, err := s.find(gctx, f, q)
			if err == nil && withCount {
				counts[i], err = s.countOne(gctx, f, q)
			}
			if err != nil {
				if tolerate(t, err) {
					slog.Warn("[Search] Optional partition failed, continuing without it",
						"partition", t.Partition,
						"error", err)
					parts[i], counts[i] = nil, 0
					return nil
				}
				return fmt.Errorf("partition %s: %w", t.Partition, err)
			}
			parts[i] = rows
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, 0, false, err
	}

	total, truncated := 0, false
	for i := range parts {
		total += counts[i]
		if len(parts[i]) >= limit {
			truncated = true
		}
	}
	return parts, total, truncated, nil
}

// count sums the per-partition aggregates.
func (s *Service) count(ctx context.Context, f fanout) (int, error) {
	counts := make([]int, len(f.targets))
	g, gctx := errgroup.WithContext(ctx)
	for i, t := range f.targets {
		g.Go(func() error {
			n, err := s.countOne(gctx, f, f.queries[i])
			if err != nil {
				if tolerate(t, err) {
					slog.Warn("[Search] Optional partition count failed",
						"partition", t.Partition,
						"error", err)
					return nil
				}
				return fmt.Errorf("partition %s: %w", t.Partition, err)
			}
			counts[i] = n
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return 0, err
	}
	total := 0
	for _, n := range counts {
		total += n
	}
	return total, nil
}

func (s *Service) find(ctx context.Context, f fanout, q storage.Query) ([]listing.Listing, error) {
	start := s.nowFn()
	rows, err := f.repo.Find(ctx, q)
	s.recorder.RecordStoreQuery(f.store, string(q.Partition), "find", s.nowFn().Sub(start), err)
	return rows, err
}

func (s *Service) countOne(ctx context.Context, f fanout, q storage.Query) (int, error) {
	start := s.nowFn()
	n, err := f.repo.Count(ctx, q)
	s.recorder.RecordStoreQuery(f.store, string(q.Partition), "count", s.nowFn().Sub(start), err)
	return n, err
}

// tolerate reports whether a partition failure can be dropped: only optional
// partitions, and never schema mismatches or cancellation.
func tolerate(t plan.Target, err error) bool {
	if t.Required {
		return false
	}
	return !errors.Is(err, storage.ErrSchemaMismatch) &&
		!errors.Is(err, context.Canceled) &&
		!errors.Is(err, context.DeadlineExceeded)
}

// resolveAgents maps each agent filter key to directory keys.
func (s *Service) resolveAgents(ctx context.Context, set *filter.Set) (map[string][]string, error) {
	if s.stores.Agents == nil {
		return nil, nil
	}
	var resolved map[string][]string
	for _, e := range set.Active() {
		def, ok := filter.Lookup(e.Key)
		if !ok || def.Strategy != filter.StrategyAgent {
			continue
		}
		ids, ok := filter.AsStrings(e.Value)
		if !ok {
			continue
		}
		keys, err := s.stores.Agents.Resolve(ctx, ids)
		if err != nil {
			return nil, fmt.Errorf("%w: resolve agents: %w", storage.ErrUnavailable, err)
		}
		if resolved == nil {
			resolved = make(map[string][]string)
		}
		resolved[e.Key] = append([]string{}, keys...)
	}
	return resolved, nil
}

// classify maps store errors onto the service's error classes.
func classify(err error) error {
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return err
	case errors.Is(err, storage.ErrUnavailable):
		return fmt.Errorf("%w: %w", ErrStorageUnavailable, err)
	case errors.Is(err, storage.ErrInvalidValue):
		return fmt.Errorf("%w: %w", ErrInvalidQuery, err)
	default:
		return fmt.Errorf("search failed: %w", err)
	}
}

func (s *Service) cacheKey(class cache.Class, body cacheBody, page, pageSize, zoom int, countOnly bool) (cache.Key, error) {
	digest, err := cache.Digest(body)
	if err != nil {
		return cache.Key{}, fmt.Errorf("%w: %w", ErrInvalidQuery, err)
	}
	return cache.Key{
		Class:     class,
		Digest:    digest,
		Page:      page,
		PageSize:  pageSize,
		Zoom:      zoom,
		CountOnly: countOnly,
	}, nil
}

// lookup decodes a cached payload into out. forceFresh bypasses the cache.
func (s *Service) lookup(key cache.Key, forceFresh bool, out any) bool {
	if s.cache == nil || forceFresh {
		return false
	}
	payload, ok := s.cache.Get(key)
	if !ok {
		s.recorder.RecordCacheMiss(string(key.Class))
		return false
	}
	if err := json.Unmarshal(payload, out); err != nil {
		slog.Warn("[Search] Discarding undecodable cache entry",
			"class", key.Class,
			"error", err)
		s.recorder.RecordCacheMiss(string(key.Class))
		return false
	}
	s.recorder.RecordCacheHit(string(key.Class))
	return true
}

func (s *Service) store(key cache.Key, forceFresh bool, v any) {
	if s.cache == nil || forceFresh {
		return
	}
	payload, err := json.Marshal(v)
	if err != nil {
		slog.Warn("[Search] Failed to encode response for cache",
			"class", key.Class,
			"error", err)
		return
	}
	s.cache.Set(key, payload, 0)
}
