package server

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

type Server struct {
	Engine *gin.Engine
	Addr   string
	db     *sql.DB

	limiter *RateLimiter
}

// Options configures the shared middleware and operational routes.
type Options struct {
	// MaxBodyBytes caps request bodies; zero leaves them unbounded.
	MaxBodyBytes int64
	// RequestsPerSecond per client; zero disables rate limiting.
	RequestsPerSecond float64
	Burst             int
	// Metrics is served on GET /metrics when set.
	Metrics http.Handler
}

func New(addr string, db *sql.DB, mode string, opts Options) *Server {
	if mode == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery(), RequestID())

	s := &Server{
		Engine: r,
		Addr:   addr,
		db:     db,
	}

	// Operational routes sit in front of the limiter.
	r.GET("/health", s.healthHandler)
	if opts.Metrics != nil {
		r.GET("/metrics", gin.WrapH(opts.Metrics))
	}

	if opts.RequestsPerSecond > 0 {
		s.limiter = NewRateLimiter(RateLimiterConfig{
			Rate:  rate.Limit(opts.RequestsPerSecond),
			Burst: opts.Burst,
		})
		r.Use(s.limiter.Middleware())
	}
	if opts.MaxBodyBytes > 0 {
		r.Use(BodyLimit(opts.MaxBodyBytes))
	}

	return s
}

func (s *Server) healthHandler(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	if s.db != nil {
		if err := s.db.PingContext(ctx); err != nil {
			slog.Error("[Server] Health check failed: database unreachable", "error", err)
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status": "unhealthy",
				"error":  "database unreachable",
			})
			return
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"status":   "healthy",
		"database": "connected",
	})
}

// Run serves until ctx is cancelled, then drains in-flight requests.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.Addr,
		Handler:           s.Engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	if s.limiter != nil {
		go s.limiter.Run(ctx)
	}

	slog.Info("[Server] Starting HTTP server", "address", s.Addr)

	go func() {
		<-ctx.Done()
		slog.Info("[Server] Stopping HTTP server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("[Server] HTTP server forced to shutdown", "error", err)
		}
	}()

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
