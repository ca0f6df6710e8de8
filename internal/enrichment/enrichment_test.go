package enrichment

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/parcelmap/listing-search/internal/core/filter"
	"github.com/parcelmap/listing-search/internal/core/listing"
	enrichmentmocks "github.com/parcelmap/listing-search/internal/mocks/enrichment"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func rows() []listing.Listing {
	return []listing.Listing{
		{ID: 1, Latitude: 30.1, Longitude: -97.1, Address: listing.Address{City: "Austin"}},
		{ID: 2, Latitude: 30.2, Longitude: -97.2, Address: listing.Address{City: "Austin"}},
		{ID: 3, Latitude: 30.3, Longitude: -97.3, Address: listing.Address{City: "Elgin"}},
	}
}

func TestPipeline_AttachEvents(t *testing.T) {
	starts := time.Date(2026, 5, 3, 13, 0, 0, 0, time.UTC)
	events := enrichmentmocks.NewEventSource(t)
	events.EXPECT().
		ActiveEventsFor(mock.Anything, []int64{1, 2, 3}).
		Return(map[int64][]listing.EventSummary{
			2: {{ID: "evt-1", Kind: "open_house", StartsAt: starts, EndsAt: starts.Add(2 * time.Hour)}},
		}, nil).
		Once()

	page := rows()
	NewPipeline(events, nil, 0, nil).AttachEvents(context.Background(), page)

	require.Empty(t, page[0].Events)
	require.NotNil(t, page[0].Events)
	require.Len(t, page[1].Events, 1)
	require.Equal(t, "evt-1", page[1].Events[0].ID)
}

func TestPipeline_AttachEventsFailureKeepsListings(t *testing.T) {
	events := enrichmentmocks.NewEventSource(t)
	events.EXPECT().
		ActiveEventsFor(mock.Anything, mock.Anything).
		Return(nil, errors.New("events down")).
		Once()

	page := rows()
	NewPipeline(events, nil, 0, nil).AttachEvents(context.Background(), page)

	require.Len(t, page, 3)
	for _, l := range page {
		require.NotNil(t, l.Events)
		require.Empty(t, l.Events)
	}
}

func TestPipeline_AttachGrades(t *testing.T) {
	grader := enrichmentmocks.NewSchoolGrader(t)
	grader.EXPECT().BestGradeNear(mock.Anything, 30.1, -97.1, 2.0).Return(listing.Grade("A"), nil).Once()
	grader.EXPECT().BestGradeNear(mock.Anything, 30.2, -97.2, 2.0).Return(listing.Grade(""), errors.New("timeout")).Once()
	grader.EXPECT().BestGradeNear(mock.Anything, 30.3, -97.3, 2.0).Return(listing.Grade("C+"), nil).Once()
	grader.EXPECT().DistrictGradeFor(mock.Anything, "Austin").
		Return(&listing.DistrictGrade{Grade: "B+", Percentile: 71}, nil).Once()
	grader.EXPECT().DistrictGradeFor(mock.Anything, "Elgin").
		Return((*listing.DistrictGrade)(nil), nil).Once()

	got := rows()
	NewPipeline(nil, grader, 2, nil).AttachGrades(context.Background(), got, 2)

	require.Equal(t, listing.Grade("A"), got[0].SchoolGrade)
	require.Equal(t, listing.Grade(""), got[1].SchoolGrade, "failed lookup leaves the listing ungraded")
	require.Equal(t, listing.Grade("C+"), got[2].SchoolGrade)

	require.Equal(t, &listing.DistrictGrade{Grade: "B+", Percentile: 71}, got[0].District)
	require.Equal(t, got[0].District, got[1].District)
	require.NotSame(t, got[0].District, got[1].District)
	require.Nil(t, got[2].District)
}

func TestPipeline_AttachGradesDefaultRadius(t *testing.T) {
	grader := enrichmentmocks.NewSchoolGrader(t)
	grader.EXPECT().BestGradeNear(mock.Anything, 30.1, -97.1, filter.DefaultSchoolRadiusMiles).Return(listing.Grade("B"), nil).Once()

	got := []listing.Listing{{ID: 1, Latitude: 30.1, Longitude: -97.1}}
	NewPipeline(nil, grader, 0, nil).AttachGrades(context.Background(), got, 0)
	require.Equal(t, listing.Grade("B"), got[0].SchoolGrade)
}

func TestApplySchoolFilter(t *testing.T) {
	graded := []listing.Listing{
		{ID: 1, SchoolGrade: "A", District: &listing.DistrictGrade{Grade: "B"}},
		{ID: 2, SchoolGrade: "B-"},
		{ID: 3},
		{ID: 4, SchoolGrade: "B+", District: &listing.DistrictGrade{Grade: "C"}},
	}

	tests := []struct {
		name string
		crit filter.SchoolCriteria
		want []int64
	}{
		{name: "inactive keeps all", crit: filter.SchoolCriteria{}, want: []int64{1, 2, 3, 4}},
		{name: "min grade drops ungraded", crit: filter.SchoolCriteria{MinGrade: "B"}, want: []int64{1, 4}},
		{name: "district grade", crit: filter.SchoolCriteria{MinDistrictGrade: "B-"}, want: []int64{1}},
		{name: "both", crit: filter.SchoolCriteria{MinGrade: "B+", MinDistrictGrade: "C"}, want: []int64{1, 4}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			kept := ApplySchoolFilter(graded, tc.crit)
			ids := make([]int64, len(kept))
			for i, l := range kept {
				ids[i] = l.ID
			}
			require.Equal(t, tc.want, ids)
			require.LessOrEqual(t, len(kept), len(graded))
		})
	}
}
