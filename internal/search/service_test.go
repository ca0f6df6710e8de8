package search

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/parcelmap/listing-search/internal/cache"
	"github.com/parcelmap/listing-search/internal/core/listing"
	"github.com/parcelmap/listing-search/internal/core/storage"
	"github.com/parcelmap/listing-search/internal/core/storage/memory"
	"github.com/parcelmap/listing-search/internal/enrichment"
	enrichmentmocks "github.com/parcelmap/listing-search/internal/mocks/enrichment"
	storagemocks "github.com/parcelmap/listing-search/internal/mocks/storage"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type harness struct {
	svc        *Service
	optimized  *memory.Repository
	normalized *memory.Repository
	clock      *testClock
}

func newHarness(t *testing.T, enricher *enrichment.Pipeline) *harness {
	t.Helper()
	rows := fixture()

	optimized := memory.NewOptimized()
	optimized.Put(rows...)
	normalized := memory.NewNormalized()
	normalized.Put(rows...)

	clock := &testClock{now: time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)}
	resultCache := cache.New(1000, nil).WithClock(clock.Now)

	svc := NewService(Stores{Optimized: optimized, Normalized: normalized}, enricher, resultCache, nil, Config{})
	return &harness{svc: svc, optimized: optimized, normalized: normalized, clock: clock}
}

func (h *harness) calls() int {
	return h.optimized.Calls() + h.normalized.Calls()
}

func fixture() []listing.Listing {
	at := time.Date(2026, 5, 20, 8, 0, 0, 0, time.UTC)
	row := func(id int64, status listing.Status, price int64, beds int, lat, lng float64, city, street string) listing.Listing {
		return listing.Listing{
			ID:           id,
			MLSNumber:    "MLS-" + decimal.NewFromInt(id).String(),
			Status:       status,
			PropertyType: "Residential",
			ListPrice:    decimal.NewFromInt(price),
			Bedrooms:     beds,
			Latitude:     lat,
			Longitude:    lng,
			Address:      listing.Address{StreetNumber: "1" + decimal.NewFromInt(id).String(), StreetName: street, City: city, State: "TX"},
			LotSizeAcres: decimal.RequireFromString("0.25"),
			ModifiedAt:   at,
		}
	}

	land := row(3, listing.StatusActive, 650_000, 4, 30.25, -97.76, "Austin", "Oak Lane")
	land.PropertyType = "Land"
	acre := row(7, listing.StatusPending, 400_000, 2, 30.35, -97.37, "Elgin", "Oak Avenue")
	acre.LotSizeAcres = decimal.RequireFromString("1.0")
	closed := row(6, listing.StatusClosed, 600_000, 3, 30.26, -97.73, "Austin", "Elm Road")
	closed.ClosePrice = decimal.NewNullDecimal(decimal.NewFromInt(590_000))

	return []listing.Listing{
		row(1, listing.StatusActive, 600_000, 3, 30.27, -97.74, "Austin", "Main Street"),
		row(2, listing.StatusActive, 700_000, 3, 30.28, -97.75, "Austin", "Main St."),
		land,
		row(4, listing.StatusActive, 900_000, 3, 30.29, -97.72, "Austin", "Pine Drive"),
		row(5, listing.StatusActive, 550_000, 3, 31.50, -97.74, "Austin", "Cedar Court"),
		closed,
		acre,
	}
}

const viewport = `{"north":30.30,"south":30.20,"east":-97.70,"west":-97.80}`

func decode(t *testing.T, body string) Request {
	t.Helper()
	var req Request
	require.NoError(t, json.Unmarshal([]byte(body), &req))
	return req
}

func ids(rows []listing.Listing) []int64 {
	out := make([]int64, len(rows))
	for i, l := range rows {
		out[i] = l.ID
	}
	return out
}

func TestSearch_PriceBedsViewportScenario(t *testing.T) {
	h := newHarness(t, nil)

	resp, err := h.svc.Search(context.Background(), decode(t, `{
		"filters": {"status": ["Active"], "price": {"min": 500000, "max": 750000}, "beds": [3]},
		"viewport": `+viewport+`
	}`))
	require.NoError(t, err)
	require.Equal(t, 2, resp.Total)
	require.True(t, resp.TotalIsExact)
	require.Equal(t, []int64{2, 1}, ids(resp.Listings), "price descending")
	for _, l := range resp.Listings {
		require.Equal(t, 3, l.Bedrooms)
		require.True(t, l.ListPrice.GreaterThanOrEqual(decimal.NewFromInt(500_000)))
		require.True(t, l.ListPrice.LessThanOrEqual(decimal.NewFromInt(750_000)))
	}
	require.Zero(t, h.normalized.Calls(), "eligible filters stay on the optimized store")
}

func TestSearch_StreetSuffixVariants(t *testing.T) {
	h := newHarness(t, nil)

	resp, err := h.svc.Search(context.Background(), decode(t, `{"filters": {"street": "Main St"}}`))
	require.NoError(t, err)
	require.ElementsMatch(t, []int64{1, 2}, ids(resp.Listings))
}

func TestSearch_LotSizeSquareFeetMatchesOneAcre(t *testing.T) {
	for _, optimizedAvailable := range []bool{true, false} {
		h := newHarness(t, nil)
		h.optimized.SetAvailable(optimizedAvailable)

		resp, err := h.svc.Search(context.Background(), decode(t, `{"filters": {"lot_size_min": 43560}}`))
		require.NoError(t, err)
		require.Equal(t, []int64{7}, ids(resp.Listings), "optimized available: %v", optimizedAvailable)
	}
}

func TestSearch_AbsentBoundDoesNotConstrain(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()

	all, err := h.svc.Search(ctx, decode(t, `{"filters": {}}`))
	require.NoError(t, err)
	maxOnly, err := h.svc.Search(ctx, decode(t, `{"filters": {"price": {"max": 10000000}}}`))
	require.NoError(t, err)
	minOnly, err := h.svc.Search(ctx, decode(t, `{"filters": {"price_min": 0}}`))
	require.NoError(t, err)

	require.Equal(t, 6, all.Total, "default status set is live only")
	require.Equal(t, ids(all.Listings), ids(maxOnly.Listings))
	require.Equal(t, ids(all.Listings), ids(minOnly.Listings))
}

func TestSearch_LookupSpansPartitionsWithoutStatus(t *testing.T) {
	tests := []struct {
		name    string
		filters string
		want    []int64
	}{
		{name: "archived mls number", filters: `{"mls_number": "MLS-6"}`, want: []int64{6}},
		{name: "live mls number with archive status filter", filters: `{"mls": ["MLS-1"], "status": ["Closed"]}`, want: []int64{1}},
		{name: "parsed street address", filters: `{"address": "16 Elm Road"}`, want: []int64{6}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			h := newHarness(t, nil)
			resp, err := h.svc.Search(context.Background(), decode(t, `{"filters": `+tc.filters+`}`))
			require.NoError(t, err)
			require.Equal(t, tc.want, ids(resp.Listings))
			require.Zero(t, h.optimized.Calls())
		})
	}
}

func TestSearch_LookupToleratesArchiveFailure(t *testing.T) {
	h := newHarness(t, nil)
	h.normalized.FailWith(listing.PartitionArchive, errors.New("archive replica down"))

	resp, err := h.svc.Search(context.Background(), decode(t, `{"filters": {"mls_number": "MLS-2"}}`))
	require.NoError(t, err)
	require.Equal(t, []int64{2}, ids(resp.Listings))
}

func TestSearch_CityUnionPolygon(t *testing.T) {
	h := newHarness(t, nil)
	polygon := `[[{"lat":30.265,"lng":-97.745},{"lat":30.275,"lng":-97.745},{"lat":30.275,"lng":-97.735},{"lat":30.265,"lng":-97.735}]]`

	for _, filters := range []string{`{"city": "Elgin", "status": ["Active", "Pending"]}`, `{"status": ["Active", "Pending"], "city": "Elgin"}`} {
		resp, err := h.svc.Search(context.Background(), decode(t, `{"filters": `+filters+`, "shapes": `+polygon+`}`))
		require.NoError(t, err)
		require.ElementsMatch(t, []int64{1, 7}, ids(resp.Listings))
	}
}

func TestSearch_DegenerateShapeFallsBackToViewport(t *testing.T) {
	h := newHarness(t, nil)

	resp, err := h.svc.Search(context.Background(), decode(t, `{
		"filters": {"beds": [3]},
		"viewport": `+viewport+`,
		"shapes": [[{"lat":30.27,"lng":-97.74},{"lat":30.28,"lng":-97.75}]]
	}`))
	require.NoError(t, err)
	require.ElementsMatch(t, []int64{1, 2, 4}, ids(resp.Listings))
}

func TestSearch_MalformedFilterSkipped(t *testing.T) {
	h := newHarness(t, nil)

	resp, err := h.svc.Search(context.Background(), decode(t, `{"filters": {"price": "cheap", "beds": [3], "city": "Austin"}}`))
	require.NoError(t, err)
	require.ElementsMatch(t, []int64{1, 2, 4, 5}, ids(resp.Listings))
}

func TestSearch_CountOnlyWithSchoolFilter(t *testing.T) {
	grader := enrichmentmocks.NewSchoolGrader(t)
	grader.EXPECT().
		BestGradeNear(mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		RunAndReturn(func(_ context.Context, lat, _ float64, _ float64) (listing.Grade, error) {
			if lat >= 30.28 {
				return "A", nil
			}
			return "C", nil
		})
	grader.EXPECT().DistrictGradeFor(mock.Anything, mock.Anything).Return((*listing.DistrictGrade)(nil), nil).Maybe()

	h := newHarness(t, enrichment.NewPipeline(nil, grader, 4, nil))
	ctx := context.Background()

	pre, err := h.svc.Search(ctx, decode(t, `{"filters": {"city": "Austin"}, "count_only": true}`))
	require.NoError(t, err)
	require.Nil(t, pre.Listings)
	require.Equal(t, 5, pre.Total)
	require.True(t, pre.TotalIsExact)

	post, err := h.svc.Search(ctx, decode(t, `{"filters": {"city": "Austin", "school_grade": "B"}, "count_only": true}`))
	require.NoError(t, err)
	require.Nil(t, post.Listings)
	require.Equal(t, 3, post.Total, "listings 2, 4 and 5 sit near A-rated schools")
	require.LessOrEqual(t, post.Total, pre.Total)

	page, err := h.svc.Search(ctx, decode(t, `{"filters": {"city": "Austin", "school_grade": "B"}, "page_size": 2}`))
	require.NoError(t, err)
	require.Equal(t, 3, page.Total)
	require.Len(t, page.Listings, 2)
	for _, l := range page.Listings {
		require.Equal(t, listing.Grade("A"), l.SchoolGrade)
	}
}

func TestSearch_SchoolFilterTruncatedCountIsBestEffort(t *testing.T) {
	grader := enrichmentmocks.NewSchoolGrader(t)
	grader.EXPECT().BestGradeNear(mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(listing.Grade("A"), nil)
	grader.EXPECT().DistrictGradeFor(mock.Anything, mock.Anything).Return((*listing.DistrictGrade)(nil), nil).Maybe()

	h := newHarness(t, enrichment.NewPipeline(nil, grader, 4, nil))
	h.svc.cfg.OverFetchFactor = 1
	h.svc.cfg.MaxCandidates = 1

	resp, err := h.svc.Search(context.Background(), decode(t, `{"filters": {"school_grade": "B"}, "page_size": 2}`))
	require.NoError(t, err)
	require.False(t, resp.TotalIsExact)
}

func TestSearch_EnrichesPage(t *testing.T) {
	starts := time.Date(2026, 6, 7, 14, 0, 0, 0, time.UTC)
	events := enrichmentmocks.NewEventSource(t)
	events.EXPECT().
		ActiveEventsFor(mock.Anything, []int64{2, 1}).
		Return(map[int64][]listing.EventSummary{1: {{ID: "oh-1", Kind: "open_house", StartsAt: starts, EndsAt: starts.Add(2 * time.Hour)}}}, nil).
		Once()
	grader := enrichmentmocks.NewSchoolGrader(t)
	grader.EXPECT().BestGradeNear(mock.Anything, mock.Anything, mock.Anything, 1.0).Return(listing.Grade(""), errors.New("schools down")).Times(2)
	grader.EXPECT().DistrictGradeFor(mock.Anything, "Austin").Return(&listing.DistrictGrade{Grade: "A-", Percentile: 90}, nil).Once()

	h := newHarness(t, enrichment.NewPipeline(events, grader, 2, nil))
	resp, err := h.svc.Search(context.Background(), decode(t, `{"filters": {"street": "Main"}}`))
	require.NoError(t, err)
	require.Equal(t, []int64{2, 1}, ids(resp.Listings))
	require.Empty(t, resp.Listings[0].Events)
	require.Equal(t, "oh-1", resp.Listings[1].Events[0].ID)
	require.Equal(t, listing.Grade(""), resp.Listings[0].SchoolGrade, "grade failure keeps the listing")
	require.Equal(t, listing.Grade("A-"), resp.Listings[1].District.Grade)
}

func TestSearch_CacheHitAndExpiry(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	body := `{"filters": {"beds": [3]}, "viewport": ` + viewport + `}`

	first, err := h.svc.Search(ctx, decode(t, body))
	require.NoError(t, err)
	calls := h.calls()
	require.Positive(t, calls)

	second, err := h.svc.Search(ctx, decode(t, body))
	require.NoError(t, err)
	require.Equal(t, calls, h.calls(), "cache hit does not query the store")

	a, err := json.Marshal(first)
	require.NoError(t, err)
	b, err := json.Marshal(second)
	require.NoError(t, err)
	require.Equal(t, a, b)

	h.clock.Advance(cache.DefaultTTLs[cache.ClassInitial])
	_, err = h.svc.Search(ctx, decode(t, body))
	require.NoError(t, err)
	require.Greater(t, h.calls(), calls, "expired entry re-queries")
}

func TestSearch_PanExpiresSooner(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	body := `{"filters": {}, "viewport": ` + viewport + `, "pan": true}`

	_, err := h.svc.Search(ctx, decode(t, body))
	require.NoError(t, err)
	calls := h.calls()

	h.clock.Advance(2 * time.Minute)
	_, err = h.svc.Search(ctx, decode(t, body))
	require.NoError(t, err)
	require.Equal(t, calls, h.calls())

	h.clock.Advance(time.Minute)
	_, err = h.svc.Search(ctx, decode(t, body))
	require.NoError(t, err)
	require.Greater(t, h.calls(), calls)
}

func TestSearch_ForceFreshBypassesCache(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()

	_, err := h.svc.Search(ctx, decode(t, `{"filters": {"city": "Austin"}}`))
	require.NoError(t, err)
	calls := h.calls()

	h.optimized.Put(listing.Listing{ID: 99, Status: listing.StatusActive, ListPrice: decimal.NewFromInt(1), Address: listing.Address{City: "Austin"}})

	fresh, err := h.svc.Search(ctx, decode(t, `{"filters": {"city": "Austin"}, "force_fresh": true}`))
	require.NoError(t, err)
	require.Greater(t, h.calls(), calls)
	require.Equal(t, 6, fresh.Total)

	calls = h.calls()
	again, err := h.svc.Search(ctx, decode(t, `{"filters": {"city": "Austin"}}`))
	require.NoError(t, err)
	require.Equal(t, 5, again.Total, "forced result is not written back")
	require.Equal(t, calls, h.calls(), "earlier entry still serves")

	h.clock.Advance(cache.DefaultTTLs[cache.ClassInitial])
	expired, err := h.svc.Search(ctx, decode(t, `{"filters": {"city": "Austin"}}`))
	require.NoError(t, err)
	require.Equal(t, 6, expired.Total)
}

func TestSearch_RuntimeSchemaMismatchFallsBack(t *testing.T) {
	h := newHarness(t, nil)
	h.optimized.FailWith(listing.PartitionLive, storage.ErrSchemaMismatch)

	resp, err := h.svc.Search(context.Background(), decode(t, `{"filters": {"beds": [3]}, "viewport": `+viewport+`}`))
	require.NoError(t, err)
	require.ElementsMatch(t, []int64{1, 2, 4}, ids(resp.Listings))
	require.Positive(t, h.normalized.Calls())
}

func TestSearch_StorageUnavailable(t *testing.T) {
	h := newHarness(t, nil)
	h.normalized.FailWith(listing.PartitionLive, storage.ErrUnavailable)

	_, err := h.svc.Search(context.Background(), decode(t, `{"filters": {"county": "Travis"}}`))
	require.ErrorIs(t, err, ErrStorageUnavailable)
}

func TestSearch_UnsupportedKeyReadsArchivedLiveStatuses(t *testing.T) {
	h := newHarness(t, nil)
	overlap := fixture()[0]
	overlap.ID = 20
	overlap.County = "Travis"
	h.normalized.PutIn(listing.PartitionArchive, overlap)
	closed := fixture()[5]
	closed.County = "Travis"
	h.normalized.Put(closed)

	resp, err := h.svc.Search(context.Background(), decode(t, `{"filters": {"county": "Travis"}}`))
	require.NoError(t, err)
	require.Equal(t, []int64{20}, ids(resp.Listings), "closed listing stays out of the default status set")
	require.Zero(t, h.optimized.Calls())
}

func TestSearch_UnsupportedKeyToleratesArchiveFailure(t *testing.T) {
	h := newHarness(t, nil)
	tagged := fixture()[6]
	tagged.County = "Bastrop"
	h.normalized.Put(tagged)
	h.normalized.FailWith(listing.PartitionArchive, errors.New("archive replica down"))

	resp, err := h.svc.Search(context.Background(), decode(t, `{"filters": {"county": "Bastrop"}}`))
	require.NoError(t, err)
	require.Equal(t, []int64{7}, ids(resp.Listings))
}

func TestSearch_AgentFilterResolvesThroughDirectory(t *testing.T) {
	agents := storagemocks.NewAgentDirectory(t)
	agents.EXPECT().Resolve(mock.Anything, []string{"jane@example.com"}).Return([]string{"A-1"}, nil).Once()
	agents.EXPECT().Resolve(mock.Anything, []string{"nobody@example.com"}).Return(nil, nil).Once()

	h := newHarness(t, nil)
	h.svc.stores.Agents = agents
	tagged := fixture()[3]
	tagged.ListAgentKey = "A-1"
	h.normalized.Put(tagged)

	resp, err := h.svc.Search(context.Background(), decode(t, `{"filters": {"list_agent": ["jane@example.com"]}}`))
	require.NoError(t, err)
	require.Equal(t, []int64{4}, ids(resp.Listings))

	resp, err = h.svc.Search(context.Background(), decode(t, `{"filters": {"list_agent": ["nobody@example.com"]}}`))
	require.NoError(t, err)
	require.Empty(t, resp.Listings)
	require.Zero(t, resp.Total)
}

func TestSearch_InvalidPaging(t *testing.T) {
	h := newHarness(t, nil)

	for _, body := range []string{`{"page_size": 1000}`, `{"page": -1}`, `{"page": 500, "page_size": 500}`} {
		_, err := h.svc.Search(context.Background(), decode(t, body))
		require.ErrorIs(t, err, ErrInvalidQuery, body)
	}
}

func TestSearch_Pagination(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()

	p1, err := h.svc.Search(ctx, decode(t, `{"filters": {}, "page": 1, "page_size": 4}`))
	require.NoError(t, err)
	p2, err := h.svc.Search(ctx, decode(t, `{"filters": {}, "page": 2, "page_size": 4}`))
	require.NoError(t, err)

	require.Equal(t, 6, p1.Total)
	require.Equal(t, 6, p2.Total)
	require.Len(t, p1.Listings, 4)
	require.Len(t, p2.Listings, 2)
	require.Equal(t, []int64{4, 2, 3, 1}, ids(p1.Listings))
	require.Equal(t, []int64{5, 7}, ids(p2.Listings))
}
