package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"

	"github.com/parcelmap/listing-search/internal/core/listing"
	"github.com/parcelmap/listing-search/internal/core/predicate"
	"github.com/parcelmap/listing-search/internal/core/storage"
)

// Store implements storage.Repository for one physical table family. The
// optimized and normalized stores share this code and differ only in layout.
type Store struct {
	db        *sql.DB
	optimized bool
	available bool
}

// NewOptimizedStore wraps the denormalized listing_search table. A missing
// table is not fatal: the store reports itself unavailable and the router
// sends every query to the normalized store.
func NewOptimizedStore(ctx context.Context, db *sql.DB) (*Store, error) {
	exists, err := tableExists(ctx, db, "listing_search")
	if err != nil {
		return nil, err
	}
	if !exists {
		slog.Warn("[Postgres] Optimized listing table missing, routing all queries to normalized store")
	}
	return &Store{db: db, optimized: true, available: exists}, nil
}

// NewNormalizedStore wraps the partitioned listing tables. Both base tables
// must exist (did you run migrations?).
func NewNormalizedStore(ctx context.Context, db *sql.DB) (*Store, error) {
	for _, p := range []listing.Partition{listing.PartitionLive, listing.PartitionArchive} {
		table := string(p) + "_listing"
		exists, err := tableExists(ctx, db, table)
		if err != nil {
			return nil, err
		}
		if !exists {
			return nil, fmt.Errorf("schema validation failed - did you run migrations?: %s table does not exist", table)
		}
	}
	return &Store{db: db, available: true}, nil
}

func (s *Store) Layout(p listing.Partition) storage.Layout {
	if s.optimized {
		return storage.OptimizedLayout()
	}
	return storage.NormalizedLayout(p)
}

func (s *Store) Available() bool {
	return s.available
}

// Find runs the ranked row query. Display sub-tables are always joined for
// the select list; other sub-tables only when the predicate reads them.
func (s *Store) Find(ctx context.Context, q storage.Query) ([]listing.Listing, error) {
	query, args := s.findSQL(q)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, classify(err)
	}
	defer rows.Close()

	var out []listing.Listing
	for rows.Next() {
		l, err := scanListingRow(rows)
		if err != nil {
			return nil, err
		}
		l.Partition = s.partitionOf(q, l)
		out = append(out, l)
	}
	if err := rows.Err(); err != nil {
		return nil, classify(err)
	}

	slog.Debug("[Postgres] Find",
		"store", s.Layout(q.Partition).Name,
		"tables", q.Tables,
		"rows", len(out))
	return out, nil
}

// Count runs the aggregate with only the joins the predicate needs.
func (s *Store) Count(ctx context.Context, q storage.Query) (int, error) {
	query, args := s.countSQL(q)

	var n int
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, classify(err)
	}
	return n, nil
}

func (s *Store) Facet(ctx context.Context, q storage.Query, field listing.Field, limit int) ([]storage.FacetCount, error) {
	query, args, err := s.facetSQL(q, field, limit)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, classify(err)
	}
	defer rows.Close()

	var out []storage.FacetCount
	for rows.Next() {
		var fc storage.FacetCount
		if err := rows.Scan(&fc.Value, &fc.Count); err != nil {
			return nil, fmt.Errorf("failed to scan facet row: %w", err)
		}
		out = append(out, fc)
	}
	if err := rows.Err(); err != nil {
		return nil, classify(err)
	}
	return out, nil
}

func (s *Store) partitionOf(q storage.Query, l listing.Listing) listing.Partition {
	if s.optimized {
		return listing.PartitionLive
	}
	if q.Partition != "" {
		return q.Partition
	}
	return listing.PartitionFor(l.Status)
}

func (s *Store) findSQL(q storage.Query) (string, []any) {
	layout := s.Layout(q.Partition)
	var b predicate.Builder
	where := whereSQL(&b, q.Where)

	price, _ := layout.Column(listing.FieldPrice)
	status, _ := layout.Column(listing.FieldStatus)
	modified, _ := layout.Column(listing.FieldModifiedAt)
	order := fmt.Sprintf(queryRankOrder, layout.Key, q.ExclusiveThreshold, status.Expr, price.Expr, modified.Expr)

	var page string
	if q.Limit > 0 {
		page += " LIMIT " + b.Arg(q.Limit)
	}
	if q.Offset > 0 {
		page += " OFFSET " + b.Arg(q.Offset)
	}

	joins := joinSQL(layout.JoinClauses(layout.Display, q.Tables))
	query := fmt.Sprintf(queryFind, strings.Join(layout.Projection, ", "), layout.From, joins, where, order, page)
	return query, b.Args()
}

func (s *Store) countSQL(q storage.Query) (string, []any) {
	layout := s.Layout(q.Partition)
	var b predicate.Builder
	where := whereSQL(&b, q.Where)
	return fmt.Sprintf(queryCount, layout.From, joinSQL(layout.JoinClauses(q.Tables)), where), b.Args()
}

func (s *Store) facetSQL(q storage.Query, field listing.Field, limit int) (string, []any, error) {
	layout := s.Layout(q.Partition)
	col, ok := layout.Column(field)
	if !ok {
		return "", nil, fmt.Errorf("%w: %s store has no column for facet %q", storage.ErrSchemaMismatch, layout.Name, field)
	}
	var b predicate.Builder
	where := whereSQL(&b, q.Where)
	joins := joinSQL(layout.JoinClauses(q.Tables, col.Tables))
	return fmt.Sprintf(queryFacet, col.Expr, layout.From, joins, where, b.Arg(limit)), b.Args(), nil
}

func whereSQL(b *predicate.Builder, p predicate.Predicate) string {
	if p == nil {
		return "TRUE"
	}
	return p.SQL(b)
}

func joinSQL(clauses []string) string {
	if len(clauses) == 0 {
		return ""
	}
	return " " + strings.Join(clauses, " ")
}
