package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/parcelmap/listing-search/internal/cache"
	corecfg "github.com/parcelmap/listing-search/internal/core/config"
	"github.com/parcelmap/listing-search/internal/core/storage/postgres"
	"github.com/parcelmap/listing-search/internal/enrichment"
	"github.com/parcelmap/listing-search/internal/glossary"
	"github.com/parcelmap/listing-search/internal/metrics"
	"github.com/parcelmap/listing-search/internal/migrations"
	"github.com/parcelmap/listing-search/internal/schools"
	"github.com/parcelmap/listing-search/internal/search"
	"github.com/parcelmap/listing-search/internal/server"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

func main() {
	configPath := flag.String("config", "", "Path to configuration file")
	flag.Parse()

	// 0. Initialize Logger
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// .env is optional; real environment variables win.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		slog.Warn("Failed to read .env file", "error", err)
	}

	// 1. Load Configuration
	cfg, err := corecfg.Load(*configPath)
	if err != nil {
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}
	slog.Info("Loaded config",
		"port", cfg.Server.Port,
		"mode", cfg.Server.Mode,
		"cache_capacity", cfg.Cache.Capacity,
		"schools_enabled", cfg.Schools.BaseURL != "")

	// 2. Initialize Storage (PostgreSQL)
	db, err := postgres.Open(cfg.Database.DSN, cfg.Database.MaxOpenConns, cfg.Database.MaxIdleConns)
	if err != nil {
		slog.Error("Failed to initialize database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	// 2.1. Run Database Migrations
	if err := migrations.RunMigrations(db, cfg.Database.AutoMigrate); err != nil {
		slog.Error("Failed to run database migrations", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	optimized, err := postgres.NewOptimizedStore(ctx, db)
	if err != nil {
		slog.Error("Failed to initialize optimized store", "error", err)
		os.Exit(1)
	}
	normalized, err := postgres.NewNormalizedStore(ctx, db)
	if err != nil {
		slog.Error("Failed to initialize normalized store", "error", err)
		os.Exit(1)
	}

	// 3. Metrics
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	recorder := metrics.NewCollector(registry)

	// 4. Enrichment
	var grader enrichment.SchoolGrader
	if cfg.Schools.BaseURL != "" {
		grader = schools.NewClient(schools.Config{
			BaseURL:       cfg.Schools.BaseURL,
			Timeout:       cfg.Schools.Timeout,
			RatePerSecond: cfg.Schools.RatePerSecond,
			Burst:         cfg.Schools.Burst,
		})
	} else {
		slog.Info("School grade service not configured, grades and school filters disabled")
	}
	pipeline := enrichment.NewPipeline(postgres.NewEventsAdapter(db), grader, cfg.Enrichment.Concurrency, recorder)

	// 5. Result cache shared by search, facets and reference data
	resultCache := cache.New(cfg.Cache.Capacity, map[cache.Class]time.Duration{
		cache.ClassInitial:   cfg.Cache.InitialTTL,
		cache.ClassPan:       cfg.Cache.PanTTL,
		cache.ClassFacets:    cfg.Cache.FacetsTTL,
		cache.ClassReference: cfg.Cache.ReferenceTTL,
	})

	searchSvc := search.NewService(
		search.Stores{
			Optimized:  optimized,
			Normalized: normalized,
			Agents:     postgres.NewAgentDirectory(db),
		},
		pipeline,
		resultCache,
		recorder,
		search.Config{
			ExclusiveThreshold: cfg.Search.ExclusiveThreshold,
			OverFetchFactor:    cfg.Search.OverFetchFactor,
			MaxCandidates:      cfg.Search.MaxCandidates,
		},
	)
	glossarySvc := glossary.NewService(cfg.Glossary.Path, resultCache, recorder)

	// 6. Initialize Server
	srv := server.New(fmtAddr(cfg.Server.Host, cfg.Server.Port), db, cfg.Server.Mode, server.Options{
		MaxBodyBytes:      int64(cfg.Server.MaxBodySizeMB) << 20,
		RequestsPerSecond: cfg.Server.RateLimit.RequestsPerSecond,
		Burst:             cfg.Server.RateLimit.Burst,
		Metrics:           metrics.Handler(registry),
	})
	searchSvc.RegisterRoutes(srv.Engine)
	glossarySvc.RegisterRoutes(srv.Engine)

	// Signal handler triggers the shutdown sequence below.
	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
		<-quit
		slog.Info("Signal received, shutting down...")
		cancel()
	}()

	// HTTP server blocks until ctx is cancelled.
	if err := srv.Run(ctx); err != nil {
		slog.Error("Server stopped with error", "error", err)
	}

	slog.Info("Shutdown complete")
}

func fmtAddr(host string, port int) string {
	return fmt.Sprintf("%s:%d", host, port)
}
