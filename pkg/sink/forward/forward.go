// Package forward POSTs every fetched page, verbatim, to an HTTP endpoint.
package forward

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/Sternrassler/hotspot-sync/pkg/hotspot"
	"github.com/Sternrassler/hotspot-sync/pkg/sink"
	"github.com/Sternrassler/hotspot-sync/pkg/syncerr"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Name is the sink label used in logs and metrics.
const Name = "forward"

// Forwarder is a write-only HTTP sink.
type Forwarder struct {
	httpClient *http.Client
	url        string
	logger     zerolog.Logger
}

var _ sink.PageWriter = (*Forwarder)(nil)

// New creates a forwarder posting to destURL.
func New(destURL string, timeout time.Duration) (*Forwarder, error) {
	if destURL == "" {
		return nil, fmt.Errorf("destination url is required")
	}
	u, err := url.Parse(destURL)
	if err != nil {
		return nil, fmt.Errorf("parse destination url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("destination url must be http or https (got %q)", destURL)
	}

	return &Forwarder{
		httpClient: &http.Client{Timeout: timeout},
		url:        destURL,
		logger:     log.With().Str("component", "forward-sink").Str("sink", Name).Logger(),
	}, nil
}

// WritePage re-serializes the whole page, cursor included, and POSTs it.
// Any 2xx response is success.
func (f *Forwarder) WritePage(ctx context.Context, page *hotspot.Page) error {
	start := time.Now()

	body, err := json.Marshal(page)
	if err != nil {
		return syncerr.Write("encode page", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, f.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		f.logger.Error().Err(err).Msg("POST failed")
		return syncerr.Transport(syncerr.StageWrite, "POST page", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		f.logger.Error().
			Int("status_code", resp.StatusCode).
			Int("records", len(page.Data)).
			Msg("Destination rejected page")
		return syncerr.Status(syncerr.StageWrite, syncerr.KindWrite, "POST page", resp.StatusCode)
	}

	sink.ObservePage(Name, start, len(page.Data))
	f.logger.Debug().
		Int("records", len(page.Data)).
		Int("status_code", resp.StatusCode).
		Dur("duration", time.Since(start)).
		Msg("Forwarded page")

	return nil
}

// SetHTTPClient sets a custom HTTP client (for testing).
func (f *Forwarder) SetHTTPClient(client *http.Client) {
	f.httpClient = client
}
