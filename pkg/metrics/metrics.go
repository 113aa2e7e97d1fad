// Package metrics exposes the process-wide Prometheus registry and pushes it
// to a Pushgateway when a run finishes. The metrics themselves are defined in
// the packages that update them (client, pagination, sink, syncer).
package metrics

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
	"github.com/rs/zerolog/log"
)

// DefaultJob is the Pushgateway job label for sync runs.
const DefaultJob = "hotspot_sync"

// Registry is the registerer every promauto metric in this module uses.
var Registry = prometheus.DefaultRegisterer

// Gatherer is the source of pushed metrics.
var Gatherer prometheus.Gatherer = prometheus.DefaultGatherer

// Push sends every gathered metric to the Pushgateway at url, replacing the
// previous push for job. An empty url is a no-op.
func Push(ctx context.Context, url, job string) error {
	if url == "" {
		return nil
	}
	if job == "" {
		job = DefaultJob
	}

	if err := push.New(url, job).Gatherer(Gatherer).PushContext(ctx); err != nil {
		return fmt.Errorf("push metrics to %s: %w", url, err)
	}

	log.Debug().Str("url", url).Str("job", job).Msg("Metrics pushed")
	return nil
}

// Metrics Documentation
//
// Source Metrics (pkg/client):
//   - hotspot_sync_source_requests_total{status} (Counter): Source requests by HTTP status
//   - hotspot_sync_fetch_duration_seconds (Histogram): Page fetch duration
//   - hotspot_sync_source_errors_total{class} (Counter): Errors by class (client, server, network, decode)
//
// Pagination Metrics (pkg/pagination):
//   - hotspot_sync_pages_fetched_total (Counter): Pages fetched
//   - hotspot_sync_records_fetched_total (Counter): Records fetched
//
// Sink Metrics (pkg/sink):
//   - hotspot_sync_records_written_total{sink, result} (Counter): Records inserted, skipped or forwarded
//   - hotspot_sync_write_duration_seconds{sink} (Histogram): Page forward or batch insert duration
//
// Run Metrics (pkg/syncer):
//   - hotspot_sync_run_state (Gauge): 0 idle, 1 fetching, 2 writing, 3 done, 4 failed
//   - hotspot_sync_errors_total{stage, kind} (Counter): Fatal run errors
//
// Example Prometheus Queries:
//
//   # Runs that ended in failure
//   hotspot_sync_run_state == 4
//
//   # Duplicate ratio of the last batch
//   hotspot_sync_records_written_total{result="skipped"} /
//   sum(hotspot_sync_records_written_total)
//
//   # P95 fetch latency
//   histogram_quantile(0.95, rate(hotspot_sync_fetch_duration_seconds_bucket[5m]))
