package pagination

import (
	"context"
	"fmt"
	"time"

	"github.com/Sternrassler/hotspot-sync/pkg/hotspot"
	"github.com/Sternrassler/hotspot-sync/pkg/logging"
	"github.com/Sternrassler/hotspot-sync/pkg/syncerr"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
)

var (
	pagesFetchedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "hotspot_sync_pages_fetched_total",
		Help: "Total pages fetched from the source",
	})

	recordsFetchedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "hotspot_sync_records_fetched_total",
		Help: "Total hotspot records fetched from the source",
	})
)

// PageFetcher is implemented by the source client.
type PageFetcher interface {
	// FetchPage fetches the page starting at cursor; "" requests the first page.
	FetchPage(ctx context.Context, cursor string) (*hotspot.Page, error)
}

// PageFunc receives each page in source order.
type PageFunc func(page *hotspot.Page) error

// Paginator walks a PageFetcher until the cursor is exhausted.
type Paginator struct {
	fetcher PageFetcher
	logger  zerolog.Logger
}

// New creates a paginator over fetcher.
func New(fetcher PageFetcher) *Paginator {
	return &Paginator{
		fetcher: fetcher,
		logger:  logging.NewLogger("paginator"),
	}
}

// Walk fetches pages one at a time and hands each to fn before fetching the
// next. It returns the number of pages fetched.
func (p *Paginator) Walk(ctx context.Context, fn PageFunc) (int, error) {
	start := time.Now()
	cursor := ""
	pages := 0

	for {
		if err := ctx.Err(); err != nil {
			return pages, syncerr.Transport(syncerr.StageFetch, fmt.Sprintf("fetch page %d", pages+1), err)
		}

		page, err := p.fetcher.FetchPage(ctx, cursor)
		if err != nil {
			p.logger.Error().
				Err(err).
				Int("page", pages+1).
				Str("cursor", cursor).
				Msg("Page fetch failed")
			return pages, fmt.Errorf("fetch page %d: %w", pages+1, err)
		}
		pages++
		pagesFetchedTotal.Inc()
		recordsFetchedTotal.Add(float64(len(page.Data)))

		next := "<none>"
		if page.HasNext() {
			next = *page.Cursor
		}
		p.logger.Info().
			Int("page", pages).
			Int("records", len(page.Data)).
			Str("cursor", next).
			Msg("Fetched page")

		if err := fn(page); err != nil {
			return pages, err
		}

		if !page.HasNext() {
			break
		}
		cursor = *page.Cursor
	}

	p.logger.Info().
		Int("pages", pages).
		Dur("duration", time.Since(start)).
		Msg("Pagination complete")

	return pages, nil
}

// Collect walks every page and returns all records in source order.
func (p *Paginator) Collect(ctx context.Context) ([]hotspot.Hotspot, int, error) {
	var records []hotspot.Hotspot
	pages, err := p.Walk(ctx, func(page *hotspot.Page) error {
		records = append(records, page.Data...)
		return nil
	})
	if err != nil {
		return nil, pages, err
	}
	return records, pages, nil
}
