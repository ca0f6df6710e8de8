// Package memory is an in-process listing store that evaluates the same
// compiled predicates the Postgres stores render to SQL.
// Useful for testing and development.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/parcelmap/listing-search/internal/core/listing"
	"github.com/parcelmap/listing-search/internal/core/ranking"
	"github.com/parcelmap/listing-search/internal/core/storage"
)

// Repository is an in-memory implementation of storage.Repository. It either
// mimics the optimized store (live listings, one table) or the normalized
// store (live and archive partitions).
type Repository struct {
	mu        sync.RWMutex
	optimized bool
	available bool
	rows      map[listing.Partition]map[int64]listing.Listing
	failures  map[listing.Partition]error
	calls     atomic.Int64
}

// NewOptimized creates an empty store shaped like the denormalized live table.
func NewOptimized() *Repository {
	return newRepository(true)
}

// NewNormalized creates an empty store shaped like the partitioned tables.
func NewNormalized() *Repository {
	return newRepository(false)
}

func newRepository(optimized bool) *Repository {
	return &Repository{
		optimized: optimized,
		available: true,
		rows: map[listing.Partition]map[int64]listing.Listing{
			listing.PartitionLive:    {},
			listing.PartitionArchive: {},
		},
		failures: make(map[listing.Partition]error),
	}
}

// Put stores copies of rows in the partition their status implies. The
// optimized flavor silently drops archived listings, like the real sync job.
func (r *Repository) Put(rows ...listing.Listing) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, row := range rows {
		p := listing.PartitionFor(row.Status)
		if r.optimized && p != listing.PartitionLive {
			continue
		}
		row.Partition = p
		r.rows[p][row.ID] = row
	}
}

// PutIn stores copies of rows in partition p regardless of status, like the
// archive's copies of listings that are still live.
func (r *Repository) PutIn(p listing.Partition, rows ...listing.Listing) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, row := range rows {
		row.Partition = p
		r.rows[p][row.ID] = row
	}
}

// SetAvailable toggles whether the store's tables exist. An unavailable store
// answers every query with storage.ErrSchemaMismatch.
func (r *Repository) SetAvailable(ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.available = ok
}

// FailWith makes every query against partition p return err. A nil err clears it.
func (r *Repository) FailWith(p listing.Partition, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err == nil {
		delete(r.failures, p)
		return
	}
	r.failures[p] = err
}

// Calls is the number of queries served so far.
func (r *Repository) Calls() int {
	return int(r.calls.Load())
}

func (r *Repository) Layout(p listing.Partition) storage.Layout {
	if r.optimized {
		return storage.OptimizedLayout()
	}
	return storage.NormalizedLayout(p)
}

func (r *Repository) Available() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.available
}

func (r *Repository) Find(ctx context.Context, q storage.Query) ([]listing.Listing, error) {
	rows, err := r.match(ctx, q)
	if err != nil {
		return nil, err
	}
	ranking.Ranker{ExclusiveThreshold: q.ExclusiveThreshold}.Sort(rows)
	return ranking.Page(rows, q.Offset, q.Limit), nil
}

func (r *Repository) Count(ctx context.Context, q storage.Query) (int, error) {
	rows, err := r.match(ctx, q)
	if err != nil {
		return 0, err
	}
	return len(rows), nil
}

func (r *Repository) Facet(ctx context.Context, q storage.Query, field listing.Field, limit int) ([]storage.FacetCount, error) {
	if _, ok := r.Layout(q.Partition).Column(field); !ok {
		return nil, fmt.Errorf("%w: no column for facet %q", storage.ErrSchemaMismatch, field)
	}
	rows, err := r.match(ctx, q)
	if err != nil {
		return nil, err
	}

	counts := make(map[string]int)
	for i := range rows {
		v, ok := rows[i].Value(field)
		if !ok {
			continue
		}
		s, ok := v.(string)
		if !ok || s == "" {
			continue
		}
		counts[s]++
	}

	out := make([]storage.FacetCount, 0, len(counts))
	for v, n := range counts {
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
	return out, nil
}

// match returns copies of the rows in q's partition that satisfy q.Where.
func (r *Repository) match(ctx context.Context, q storage.Query) ([]listing.Listing, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.calls.Add(1)

	r.mu.RLock()
	defer r.mu.RUnlock()

	if !r.available {
		return nil, fmt.Errorf("%w: %s tables missing", storage.ErrSchemaMismatch, r.Layout(q.Partition).Name)
	}
	partition := q.Partition
	if r.optimized {
		partition = listing.PartitionLive
	}
	if err := r.failures[partition]; err != nil {
		return nil, err
	}

	var out []listing.Listing
	for _, row := range r.rows[partition] {
		if q.Where == nil || q.Where.Match(&row) {
			out = append(out, row)
		}
	}
	return out, nil
}
