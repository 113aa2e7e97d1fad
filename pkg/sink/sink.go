// Package sink defines the destinations hotspot pages are written to.
//
// A PageWriter receives each page as soon as it is fetched. A BatchWriter
// receives every record once pagination has finished. Batch writers insert
// with an ignore-on-duplicate rule keyed on the hotspot address: a record
// whose address is already stored is skipped, never overwritten.
package sink

import (
	"context"
	"time"

	"github.com/Sternrassler/hotspot-sync/pkg/hotspot"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	recordsWrittenTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "hotspot_sync_records_written_total",
		Help: "Total hotspot records handed to a sink by outcome",
	}, []string{"sink", "result"}) // result: "inserted", "skipped", "forwarded"

	writeDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "hotspot_sync_write_duration_seconds",
		Help:    "Sink write duration in seconds",
		Buckets: []float64{0.05, 0.1, 0.5, 1, 5, 10, 30},
	}, []string{"sink"})
)

// PageWriter writes one page per call, interleaved with fetching.
type PageWriter interface {
	WritePage(ctx context.Context, page *hotspot.Page) error
}

// BatchWriter writes all accumulated records in one transactional batch.
type BatchWriter interface {
	InsertBatch(ctx context.Context, records []hotspot.Hotspot) (Result, error)
}

// Result counts the outcome of a batch insert.
type Result struct {
	Inserted int
	Skipped  int
}

// Add returns the sum of two results.
func (r Result) Add(o Result) Result {
	return Result{Inserted: r.Inserted + o.Inserted, Skipped: r.Skipped + o.Skipped}
}

// ObserveBatch records metrics for a finished batch insert.
func ObserveBatch(sinkName string, start time.Time, res Result) {
	writeDuration.WithLabelValues(sinkName).Observe(time.Since(start).Seconds())
	recordsWrittenTotal.WithLabelValues(sinkName, "inserted").Add(float64(res.Inserted))
	recordsWrittenTotal.WithLabelValues(sinkName, "skipped").Add(float64(res.Skipped))
}

// ObservePage records metrics for a forwarded page.
func ObservePage(sinkName string, start time.Time, records int) {
	writeDuration.WithLabelValues(sinkName).Observe(time.Since(start).Seconds())
	recordsWrittenTotal.WithLabelValues(sinkName, "forwarded").Add(float64(records))
}
