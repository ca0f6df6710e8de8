package storage

import (
	"context"
	"errors"

	"github.com/parcelmap/listing-search/internal/core/listing"
	"github.com/parcelmap/listing-search/internal/core/predicate"
)

// ErrSchemaMismatch is returned when the selected store does not have a
// column or table a query needs. Callers retry on the normalized store.
var ErrSchemaMismatch = errors.New("store schema does not support query")

// ErrUnavailable is returned when a store cannot be reached.
var ErrUnavailable = errors.New("listing store unavailable")

// ErrInvalidValue is returned when the store rejects a bound filter value.
var ErrInvalidValue = errors.New("store rejected filter value")

// DefaultExclusiveThreshold is the id below which listings rank in the
// exclusivity tier.
const DefaultExclusiveThreshold int64 = 1_000_000

// Query is one compiled request against a single table family.
type Query struct {
	// Partition selects the normalized table family; the optimized store ignores it.
	Partition listing.Partition
	Where     predicate.Predicate
	// Tables are the sub-tables Where reads.
	Tables []string
	Limit  int
	Offset int
	// ExclusiveThreshold feeds the ranking order.
	ExclusiveThreshold int64
}

// FacetCount is one distinct value of a facet field with its row count.
type FacetCount struct {
	Value string `json:"value"`
	Count int    `json:"count"`
}

// Repository is a physical listing store. The optimized and normalized stores
// both implement it so the planner, compiler and ranker stay schema-agnostic.
type Repository interface {
	// Layout returns the table family for a partition.
	Layout(p listing.Partition) Layout

	// Available is false when the store's tables were missing at startup.
	Available() bool

	// Find returns ranked rows matching q, honoring Limit/Offset.
	Find(ctx context.Context, q Query) ([]listing.Listing, error)

	// Count returns the number of rows matching q.
	Count(ctx context.Context, q Query) (int, error)

	// Facet returns the most common values of field among rows matching q.
	Facet(ctx context.Context, q Query, field listing.Field, limit int) ([]FacetCount, error)
}

// AgentDirectory resolves agent or office identifiers (license numbers,
// emails, office codes) into the keys stored on listings.
type AgentDirectory interface {
	Resolve(ctx context.Context, identifiers []string) ([]string, error)
}
