// Package client provides the HTTP client for the paginated hotspot source API.
package client

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/Sternrassler/hotspot-sync/pkg/hotspot"
	"github.com/Sternrassler/hotspot-sync/pkg/syncerr"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Prometheus metrics for source API requests.
var (
	sourceRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "hotspot_sync_source_requests_total",
		Help: "Total source API requests by HTTP status",
	}, []string{"status"})

	sourceRequestDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "hotspot_sync_fetch_duration_seconds",
		Help:    "Source page fetch duration in seconds",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30},
	})

	sourceErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "hotspot_sync_source_errors_total",
		Help: "Total source API errors by class",
	}, []string{"class"})
)

// CursorParam is the query parameter carrying the pagination cursor.
const CursorParam = "cursor"

// DefaultBaseURL is the public hotspot listing endpoint.
const DefaultBaseURL = "https://api.helium.io/v1/hotspots"

// Client fetches hotspot pages from the source API.
type Client struct {
	httpClient *http.Client
	baseURL    *url.URL
	config     Config
	logger     zerolog.Logger
}

// Config holds the client configuration.
type Config struct {
	// BaseURL of the listing endpoint; the cursor is appended as a query parameter.
	BaseURL string

	// UserAgent sent on every request.
	UserAgent string

	// Timeout for a single page request (0 keeps the http.Client default of none).
	Timeout time.Duration
}

// DefaultConfig returns a configuration pointed at the public API.
func DefaultConfig(userAgent string) Config {
	return Config{
		BaseURL:   DefaultBaseURL,
		UserAgent: userAgent,
		Timeout:   30 * time.Second,
	}
}

// New creates a new source client.
func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("base url is required")
	}

	if cfg.UserAgent == "" {
		return nil, fmt.Errorf("user-agent is required")
	}

	base, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("base url must be http or https (got %q)", cfg.BaseURL)
	}

	return &Client{
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		baseURL: base,
		config:  cfg,
		logger:  log.With().Str("component", "source-client").Logger(),
	}, nil
}

// PageURL returns the request URL for cursor. The cursor is passed through
// untouched; an empty cursor yields "cursor=" for the first page.
func (c *Client) PageURL(cursor string) string {
	u := *c.baseURL
	q := u.Query()
	q.Set(CursorParam, cursor)
	u.RawQuery = q.Encode()
	return u.String()
}

// FetchPage performs one blocking GET for the page that starts at cursor.
func (c *Client) FetchPage(ctx context.Context, cursor string) (*hotspot.Page, error) {
	startTime := time.Now()
	defer func() {
		sourceRequestDuration.Observe(time.Since(startTime).Seconds())
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.PageURL(cursor), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", c.config.UserAgent)
	req.Header.Set("Accept", "application/json")

	c.logger.Debug().
		Str("cursor", cursor).
		Str("url", req.URL.String()).
		Msg("Fetching page")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.countError(ErrorClassNetwork)
		sourceRequestsTotal.WithLabelValues("network_error").Inc()
		c.logger.Error().Err(err).Str("cursor", cursor).Msg("HTTP request failed")
		return nil, syncerr.Transport(syncerr.StageFetch, "GET page", err)
	}
	defer resp.Body.Close()

	sourceRequestsTotal.WithLabelValues(fmt.Sprintf("%d", resp.StatusCode)).Inc()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		class := classifyStatus(resp.StatusCode)
		c.countError(class)
		c.logger.Warn().
			Str("cursor", cursor).
			Int("status_code", resp.StatusCode).
			Str("error_class", string(class)).
			Msg("Source request error")
		return nil, syncerr.Status(syncerr.StageFetch, syncerr.KindTransport, "GET page", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		c.countError(ErrorClassNetwork)
		return nil, syncerr.Transport(syncerr.StageFetch, "read page body", err)
	}

	page, err := hotspot.Decode(body)
	if err != nil {
		c.countError(ErrorClassDecode)
		c.logger.Error().Err(err).Str("cursor", cursor).Msg("Page decode failed")
		return nil, syncerr.Decode("decode page", err)
	}

	return page, nil
}

func (c *Client) countError(class ErrorClass) {
	sourceErrorsTotal.WithLabelValues(string(class)).Inc()
}

// SetHTTPClient sets a custom HTTP client (for testing).
func (c *Client) SetHTTPClient(client *http.Client) {
	c.httpClient = client
}
