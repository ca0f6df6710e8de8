// Package schools is the HTTP client for the external school-quality service.
package schools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/parcelmap/listing-search/internal/core/listing"
	"golang.org/x/time/rate"
)

// ErrUnexpectedStatus is returned for non-2xx, non-404 responses.
var ErrUnexpectedStatus = errors.New("unexpected status from school service")

const maxBodyBytes = 1 << 20

// Config holds the client settings.
type Config struct {
	BaseURL string
	Timeout time.Duration
	// RatePerSecond throttles outbound lookups; zero disables throttling.
	RatePerSecond float64
	Burst         int
}

// Client implements enrichment.SchoolGrader over HTTP. Unknown locations
// (404) return an empty result and no error.
type Client struct {
	baseURL string
	client  *http.Client
	limiter *rate.Limiter
}

// NewClient builds a client from cfg.
func NewClient(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	limiter := rate.NewLimiter(rate.Inf, 0)
	if cfg.RatePerSecond > 0 {
		burst := cfg.Burst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RatePerSecond), burst)
	}
	return &Client{
		baseURL: cfg.BaseURL,
		client:  &http.Client{Timeout: timeout},
		limiter: limiter,
	}
}

type gradeResponse struct {
	Grade string `json:"grade"`
}

type districtResponse struct {
	Grade      string `json:"grade"`
	Percentile int    `json:"percentile"`
}

// BestGradeNear returns the best graded school within radiusMiles.
func (c *Client) BestGradeNear(ctx context.Context, lat, lng, radiusMiles float64) (listing.Grade, error) {
	q := url.Values{}
	q.Set("lat", strconv.FormatFloat(lat, 'f', -1, 64))
	q.Set("lng", strconv.FormatFloat(lng, 'f', -1, 64))
	q.Set("radius_miles", strconv.FormatFloat(radiusMiles, 'f', -1, 64))

	var resp gradeResponse
	found, err := c.get(ctx, "/v1/schools/best", q, &resp)
	if err != nil || !found {
		return "", err
	}
	grade, ok := listing.ParseGrade(resp.Grade)
	if !ok {
		return "", nil
	}
	return grade, nil
}

// DistrictGradeFor returns the district rating of a city.
func (c *Client) DistrictGradeFor(ctx context.Context, city string) (*listing.DistrictGrade, error) {
	q := url.Values{}
	q.Set("city", city)

	var resp districtResponse
	found, err := c.get(ctx, "/v1/districts/grade", q, &resp)
	if err != nil || !found {
		return nil, err
	}
	grade, ok := listing.ParseGrade(resp.Grade)
	if !ok {
		return nil, nil
	}
	return &listing.DistrictGrade{Grade: grade, Percentile: resp.Percentile}, nil
}

// get decodes a JSON body into out. found is false on 404.
func (c *Client) get(ctx context.Context, path string, q url.Values, out any) (bool, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return false, fmt.Errorf("rate limiter: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+q.Encode(), nil)
	if err != nil {
		return false, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return false, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return false, fmt.Errorf("read response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return false, nil
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return false, fmt.Errorf("%w: %d", ErrUnexpectedStatus, resp.StatusCode)
	}

	if err := json.Unmarshal(body, out); err != nil {
		return false, fmt.Errorf("parse response: %w", err)
	}
	return true, nil
}
