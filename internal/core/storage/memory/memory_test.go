package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/parcelmap/listing-search/internal/core/listing"
	"github.com/parcelmap/listing-search/internal/core/predicate"
	"github.com/parcelmap/listing-search/internal/core/storage"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func fixture() []listing.Listing {
	at := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	return []listing.Listing{
		{ID: 10, Status: listing.StatusActive, ListPrice: decimal.NewFromInt(300_000), Address: listing.Address{City: "Austin"}, ModifiedAt: at},
		{ID: 11, Status: listing.StatusPending, ListPrice: decimal.NewFromInt(800_000), Address: listing.Address{City: "Austin"}, ModifiedAt: at},
		{ID: 12, Status: listing.StatusClosed, ListPrice: decimal.NewFromInt(500_000), Address: listing.Address{City: "Elgin"}, ModifiedAt: at},
	}
}

func TestNormalized_PartitionsByStatus(t *testing.T) {
	repo := NewNormalized()
	repo.Put(fixture()...)
	ctx := context.Background()

	live, err := repo.Find(ctx, storage.Query{Partition: listing.PartitionLive})
	require.NoError(t, err)
	require.Len(t, live, 2)
	require.Equal(t, int64(10), live[0].ID, "active ranks before pending")
	require.Equal(t, listing.PartitionLive, live[0].Partition)

	n, err := repo.Count(ctx, storage.Query{Partition: listing.PartitionArchive})
	require.NoError(t, err)
	require.Equal(t, 1, n)
	require.Equal(t, 2, repo.Calls())
}

func TestNormalized_PutInKeepsExplicitPartition(t *testing.T) {
	repo := NewNormalized()
	row := fixture()[0]
	repo.PutIn(listing.PartitionArchive, row)

	rows, err := repo.Find(context.Background(), storage.Query{Partition: listing.PartitionArchive})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, row.Status, rows[0].Status)
	require.Equal(t, listing.PartitionArchive, rows[0].Partition)
}

func TestOptimized_DropsArchived(t *testing.T) {
	repo := NewOptimized()
	repo.Put(fixture()...)

	n, err := repo.Count(context.Background(), storage.Query{})
	require.NoError(t, err)
	require.Equal(t, 2, n)
}

func TestFind_AppliesPredicateAndPage(t *testing.T) {
	repo := NewNormalized()
	repo.Put(fixture()...)

	layout := repo.Layout(listing.PartitionLive)
	city, _ := layout.Column(listing.FieldCity)
	q := storage.Query{
		Partition: listing.PartitionLive,
		Where:     predicate.Cmp{Col: city, Op: predicate.OpEq, Value: "Austin"},
		Limit:     1,
		Offset:    1,
	}
	rows, err := repo.Find(context.Background(), q)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, int64(11), rows[0].ID)
}

func TestFacet(t *testing.T) {
	repo := NewNormalized()
	rows := fixture()
	rows[2].Status = listing.StatusActive
	repo.Put(rows...)

	facets, err := repo.Facet(context.Background(), storage.Query{Partition: listing.PartitionLive}, listing.FieldCity, 10)
	require.NoError(t, err)
	require.Equal(t, []storage.FacetCount{{Value: "Austin", Count: 2}, {Value: "Elgin", Count: 1}}, facets)

	_, err = NewOptimized().Facet(context.Background(), storage.Query{}, listing.FieldCounty, 10)
	require.True(t, errors.Is(err, storage.ErrSchemaMismatch))
}

func TestUnavailableAndFailures(t *testing.T) {
	repo := NewOptimized()
	repo.SetAvailable(false)
	require.False(t, repo.Available())
	_, err := repo.Find(context.Background(), storage.Query{})
	require.True(t, errors.Is(err, storage.ErrSchemaMismatch))

	boom := errors.New("boom")
	norm := NewNormalized()
	norm.FailWith(listing.PartitionArchive, boom)
	_, err = norm.Find(context.Background(), storage.Query{Partition: listing.PartitionArchive})
	require.ErrorIs(t, err, boom)

	norm.FailWith(listing.PartitionArchive, nil)
	_, err = norm.Find(context.Background(), storage.Query{Partition: listing.PartitionArchive})
	require.NoError(t, err)
}
