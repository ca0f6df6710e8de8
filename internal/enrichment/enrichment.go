// Package enrichment attaches data owned by neighbouring subsystems (event
// windows, school grades) to search results after the store query.
package enrichment

import (
	"context"
	"log/slog"

	"github.com/parcelmap/listing-search/internal/core/filter"
	"github.com/parcelmap/listing-search/internal/core/listing"
	"github.com/parcelmap/listing-search/internal/metrics"
	"golang.org/x/sync/errgroup"
)

// EventSource returns the active event windows of each listing.
type EventSource interface {
	ActiveEventsFor(ctx context.Context, ids []int64) (map[int64][]listing.EventSummary, error)
}

// SchoolGrader looks up school quality. Unknown locations return an empty
// grade or nil district and no error.
type SchoolGrader interface {
	BestGradeNear(ctx context.Context, lat, lng, radiusMiles float64) (listing.Grade, error)
	DistrictGradeFor(ctx context.Context, city string) (*listing.DistrictGrade, error)
}

// DefaultConcurrency bounds in-flight school lookups per request.
const DefaultConcurrency = 8

// Failure kinds reported to the metrics recorder.
const (
	FailureEvents        = "events"
	FailureSchoolGrade   = "school_grade"
	FailureDistrictGrade = "district_grade"
)

// Pipeline enriches result rows. Lookup failures never drop a listing; the
// listing is returned without that enrichment.
type Pipeline struct {
	events      EventSource
	grader      SchoolGrader
	concurrency int
	recorder    metrics.Recorder
}

// NewPipeline wires the collaborators. A nil collaborator disables its
// enrichment.
func NewPipeline(events EventSource, grader SchoolGrader, concurrency int, recorder metrics.Recorder) *Pipeline {
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	if recorder == nil {
		recorder = metrics.Nop{}
	}
	return &Pipeline{
		events:      events,
		grader:      grader,
		concurrency: concurrency,
		recorder:    recorder,
	}
}

// AttachEvents sets the active events of every listing on the page.
func (p *Pipeline) AttachEvents(ctx context.Context, page []listing.Listing) {
	for i := range page {
		if page[i].Events == nil {
			page[i].Events = []listing.EventSummary{}
		}
	}
	if p.events == nil || len(page) == 0 {
		return
	}

	ids := make([]int64, len(page))
	for i, l := range page {
		ids[i] = l.ID
	}

	byListing, err := p.events.ActiveEventsFor(ctx, ids)
	if err != nil {
		p.recorder.RecordEnrichmentFailure(FailureEvents)
		slog.Warn("[Enrichment] Event lookup failed, returning listings without events",
			"listings", len(ids),
			"error", err)
		return
	}

	for i := range page {
		if evts, ok := byListing[page[i].ID]; ok {
			page[i].Events = evts
		}
	}
}

// AttachGrades sets the best nearby school grade of every row and the
// district grade of its city. Cities are looked up once per call.
func (p *Pipeline) AttachGrades(ctx context.Context, rows []listing.Listing, radiusMiles float64) {
	if p.grader == nil || len(rows) == 0 {
		return
	}
	if radiusMiles <= 0 {
		radiusMiles = filter.DefaultSchoolRadiusMiles
	}

	cities := make(map[string]*listing.DistrictGrade)
	for _, l := range rows {
		if l.Address.City != "" {
			cities[l.Address.City] = nil
		}
	}
	cityNames := make([]string, 0, len(cities))
	for city := range cities {
		cityNames = append(cityNames, city)
	}
	districts := make([]*listing.DistrictGrade, len(cityNames))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.concurrency)

	for i := range rows {
		g.Go(func() error {
			grade, err := p.grader.BestGradeNear(gctx, rows[i].Latitude, rows[i].Longitude, radiusMiles)
			if err != nil {
				p.recorder.RecordEnrichmentFailure(FailureSchoolGrade)
				slog.Warn("[Enrichment] School grade lookup failed",
					"listing_id", rows[i].ID,
					"error", err)
				return nil
			}
			rows[i].SchoolGrade = grade
			return nil
		})
	}
	for i, city := range cityNames {
		g.Go(func() error {
			district, err := p.grader.DistrictGradeFor(gctx, city)
			if err != nil {
				p.recorder.RecordEnrichmentFailure(FailureDistrictGrade)
				slog.Warn("[Enrichment] District grade lookup failed",
					"city", city,
					"error", err)
				return nil
			}
			districts[i] = district
			return nil
		})
	}
	// Workers swallow their errors, so Wait only synchronizes.
	_ = g.Wait()

	for i, city := range cityNames {
		cities[city] = districts[i]
	}
	for i := range rows {
		if d := cities[rows[i].Address.City]; d != nil {
			copied := *d
			rows[i].District = &copied
		}
	}
}

// ApplySchoolFilter keeps rows whose attached grades satisfy crit. Ungraded
// rows never satisfy an active constraint.
func ApplySchoolFilter(rows []listing.Listing, crit filter.SchoolCriteria) []listing.Listing {
	if !crit.Active() {
		return rows
	}
	kept := make([]listing.Listing, 0, len(rows))
	for _, l := range rows {
		if crit.MinGrade != "" && !l.SchoolGrade.AtLeast(crit.MinGrade) {
			continue
		}
		if crit.MinDistrictGrade != "" && (l.District == nil || !l.District.Grade.AtLeast(crit.MinDistrictGrade)) {
			continue
		}
		kept = append(kept, l)
	}
	return kept
}
