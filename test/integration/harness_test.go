//go:build integration

package integration

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"testing"
	"time"

	"github.com/parcelmap/listing-search/internal/cache"
	"github.com/parcelmap/listing-search/internal/core/storage/postgres"
	"github.com/parcelmap/listing-search/internal/enrichment"
	"github.com/parcelmap/listing-search/internal/glossary"
	"github.com/parcelmap/listing-search/internal/migrations"
	"github.com/parcelmap/listing-search/internal/search"
	"github.com/parcelmap/listing-search/internal/server"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
)

// postgisImage must ship the postgis extension; the listing schema needs it.
const postgisImage = "postgis/postgis:16-3.4-alpine"

type integrationHarness struct {
	baseURL    string
	client     *http.Client
	db         *sql.DB
	cancel     context.CancelFunc
	serverDone chan error
}

func (h *integrationHarness) close(t *testing.T) {
	t.Helper()

	h.cancel()
	select {
	case <-h.serverDone:
	case <-time.After(5 * time.Second):
		t.Log("server shutdown timed out")
	}
	require.NoError(t, h.db.Close())
}

// testDSN returns LISTINGSEARCH_TEST_DSN when set, otherwise starts a PostGIS
// container for the test.
func testDSN(t *testing.T) string {
	t.Helper()

	if dsn := os.Getenv("LISTINGSEARCH_TEST_DSN"); dsn != "" {
		return dsn
	}

	ctx := context.Background()
	ctr, err := tcpostgres.Run(ctx, postgisImage,
		tcpostgres.WithDatabase("listings_test"),
		tcpostgres.WithUsername("test_user"),
		tcpostgres.WithPassword("test_password"),
		tcpostgres.BasicWaitStrategies(),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := testcontainers.TerminateContainer(ctr); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	dsn, err := ctr.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)
	return dsn
}

func startHarness(t *testing.T) *integrationHarness {
	t.Helper()

	db, err := postgres.Open(testDSN(t), 10, 10)
	require.NoError(t, err)
	require.NoError(t, migrations.RunMigrations(db, true))
	require.NoError(t, seedListings(t, db))

	ctx, cancel := context.WithCancel(context.Background())

	optimized, err := postgres.NewOptimizedStore(ctx, db)
	require.NoError(t, err)
	normalized, err := postgres.NewNormalizedStore(ctx, db)
	require.NoError(t, err)

	resultCache := cache.New(256, nil)
	pipeline := enrichment.NewPipeline(postgres.NewEventsAdapter(db), nil, 2, nil)
	searchSvc := search.NewService(
		search.Stores{Optimized: optimized, Normalized: normalized, Agents: postgres.NewAgentDirectory(db)},
		pipeline, resultCache, nil, search.Config{},
	)
	glossarySvc := glossary.NewService("", resultCache, nil)

	addr := fmt.Sprintf("127.0.0.1:%d", freePort(t))
	httpServer := server.New(addr, db, "release", server.Options{MaxBodyBytes: 1 << 20})
	searchSvc.RegisterRoutes(httpServer.Engine)
	glossarySvc.RegisterRoutes(httpServer.Engine)

	serverDone := make(chan error, 1)
	go func() { serverDone <- httpServer.Run(ctx) }()

	baseURL := "http://" + addr
	waitForHealthy(t, baseURL)

	return &integrationHarness{
		baseURL:    baseURL,
		client:     &http.Client{Timeout: 5 * time.Second},
		db:         db,
		cancel:     cancel,
		serverDone: serverDone,
	}
}

// seedListings loads the same listings into the optimized table and the
// normalized partitions. Archive rows only exist in the normalized store.
func seedListings(t *testing.T, db *sql.DB) error {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	stmts := []string{
		`TRUNCATE listing_search, live_listing, archive_listing, listing_events, agents CASCADE`,

		`INSERT INTO listing_search (id, mls_number, status, property_type, list_price, latitude, longitude,
			street_number, street_name, city, state, postal_code, bedrooms, bathrooms, living_area, lot_size_sqft, pool, modified_at)
		VALUES
			(1, 'MLS-1', 'Active', 'Residential', 600000, 30.27, -97.74, '101', 'Main Street', 'Austin', 'TX', '78701', 3, 2, 1800, 10890, TRUE, '2024-05-01T00:00:00Z'),
			(2, 'MLS-2', 'Active', 'Residential', 700000, 30.28, -97.75, '102', 'Main St.', 'Austin', 'TX', '78701', 3, 2, 2000, 10890, FALSE, '2024-05-01T00:00:00Z'),
			(3, 'MLS-3', 'Pending', 'Residential', 450000, 30.35, -97.37, '103', 'Oak Avenue', 'Elgin', 'TX', '78621', 2, 1, 1200, 43560, FALSE, '2024-05-01T00:00:00Z')`,

		`INSERT INTO live_listing (id, mls_number, status, property_type, list_price, latitude, longitude,
			street_number, street_name, city, state, postal_code, county, bedrooms, bathrooms, living_area, list_agent_key, modified_at)
		VALUES
			(1, 'MLS-1', 'Active', 'Residential', 600000, 30.27, -97.74, '101', 'Main Street', 'Austin', 'TX', '78701', 'Travis', 3, 2, 1800, 'AG-1', '2024-05-01T00:00:00Z'),
			(2, 'MLS-2', 'Active', 'Residential', 700000, 30.28, -97.75, '102', 'Main St.', 'Austin', 'TX', '78701', 'Travis', 3, 2, 2000, 'AG-2', '2024-05-01T00:00:00Z'),
			(3, 'MLS-3', 'Pending', 'Residential', 450000, 30.35, -97.37, '103', 'Oak Avenue', 'Elgin', 'TX', '78621', 'Bastrop', 2, 1, 1200, 'AG-1', '2024-05-01T00:00:00Z')`,
		`INSERT INTO live_listing_location (listing_id, geom)
			SELECT id, ST_SetSRID(ST_MakePoint(longitude, latitude), 4326) FROM live_listing`,
		`INSERT INTO live_listing_details (listing_id, year_built, lot_size_acres)
		VALUES (1, 1995, 0.25), (2, 2005, 0.25), (3, 1980, 1.0)`,
		`INSERT INTO live_listing_features (listing_id, pool) VALUES (1, TRUE), (2, FALSE), (3, FALSE)`,

		`INSERT INTO archive_listing (id, mls_number, status, property_type, list_price, close_price, latitude, longitude,
			street_number, street_name, city, state, postal_code, county, bedrooms, modified_at)
		VALUES
			(4, 'MLS-4', 'Closed', 'Residential', 600000, 590000, 30.26, -97.73, '104', 'Elm Road', 'Austin', 'TX', '78702', 'Travis', 3, '2024-04-01T00:00:00Z')`,
		`INSERT INTO archive_listing_location (listing_id, geom)
			SELECT id, ST_SetSRID(ST_MakePoint(longitude, latitude), 4326) FROM archive_listing`,

		`INSERT INTO agents (agent_key, license_number, office_code, email)
		VALUES ('AG-1', 'TX-111', 'OFF-A', 'jordan@example.com'), ('AG-2', 'TX-222', 'OFF-B', 'sam@example.com')`,
		`INSERT INTO listing_events (id, listing_id, kind, title, starts_at, ends_at)
		VALUES ('evt-1', 1, 'open_house', 'Saturday open house', NOW() - INTERVAL '1 hour', NOW() + INTERVAL '1 day'),
		       ('evt-2', 1, 'open_house', 'Last week', NOW() - INTERVAL '8 days', NOW() - INTERVAL '7 days')`,
	}
	for _, stmt := range stmts {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("seed: %w", err)
		}
	}
	return nil
}

func waitForHealthy(t *testing.T, baseURL string) {
	t.Helper()

	deadline := time.Now().Add(10 * time.Second)
	for time.Now().Before(deadline) {
		resp, err := http.Get(baseURL + "/health")
		if err == nil {
			_ = resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return
			}
		}
		time.Sleep(100 * time.Millisecond)
	}

	t.Fatalf("server did not become healthy at %s", baseURL)
}

func postJSON(t *testing.T, client *http.Client, endpoint string, payload interface{}) (int, []byte) {
	t.Helper()

	body, err := json.Marshal(payload)
	require.NoError(t, err)

	req, err := http.NewRequest(http.MethodPost, endpoint, bytes.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	respBody, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	return resp.StatusCode, respBody
}

func getJSON(t *testing.T, client *http.Client, endpoint string) (int, []byte) {
	t.Helper()

	resp, err := client.Get(endpoint)
	require.NoError(t, err)
	defer resp.Body.Close()
	respBody, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	return resp.StatusCode, respBody
}

func freePort(t *testing.T) int {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()
	return ln.Addr().(*net.TCPAddr).Port
}
