package search

import (
	"github.com/parcelmap/listing-search/internal/core/filter"
	"github.com/parcelmap/listing-search/internal/core/listing"
	"github.com/parcelmap/listing-search/internal/core/spatial"
	"github.com/parcelmap/listing-search/internal/core/storage"
)

// Request is one map/list search.
type Request struct {
	Filters  *filter.Set    `json:"filters"`
	Viewport *spatial.Rect  `json:"viewport,omitempty"`
	Shapes   []spatial.Ring `json:"shapes,omitempty"`

	CountOnly bool `json:"count_only"`
	// ForceFresh skips the cache read; the result is still cached.
	ForceFresh bool `json:"force_fresh"`
	// Pan marks an incremental viewport move, which caches for less time.
	Pan bool `json:"pan"`

	Page     int `json:"page"`
	PageSize int `json:"page_size"`
	Zoom     int `json:"zoom"`
}

// Response is a ranked page of listings. Count-only searches leave Listings nil.
type Response = listing.RankedResult

// CountResponse is the wire form of a count-only search.
type CountResponse struct {
	Total        int  `json:"total"`
	TotalIsExact bool `json:"total_is_exact"`
}

// FacetRequest asks for the remaining values of some filter keys given the
// other filters. Each facet is counted with its own key removed.
type FacetRequest struct {
	Filters    *filter.Set    `json:"filters"`
	Viewport   *spatial.Rect  `json:"viewport,omitempty"`
	Shapes     []spatial.Ring `json:"shapes,omitempty"`
	Keys       []string       `json:"keys"`
	Limit      int            `json:"limit"`
	ForceFresh bool           `json:"force_fresh"`
}

// FacetResponse maps each requested key to its value counts.
type FacetResponse struct {
	Facets map[string][]storage.FacetCount `json:"facets"`
}

// Suggestion is one street autocomplete candidate.
type Suggestion struct {
	Street   string `json:"street"`
	Listings int    `json:"listings"`
}

// AutocompleteResponse lists street suggestions, most listings first.
type AutocompleteResponse struct {
	Query       string       `json:"query"`
	Suggestions []Suggestion `json:"suggestions"`
}

// cacheBody is the part of a request that goes into the cache digest.
type cacheBody struct {
	Filters  map[string]any `json:"filters"`
	Viewport *spatial.Rect  `json:"viewport,omitempty"`
	Shapes   []spatial.Ring `json:"shapes,omitempty"`
	Keys     []string       `json:"keys,omitempty"`
	Limit    int            `json:"limit,omitempty"`
	Query    string         `json:"query,omitempty"`
}
