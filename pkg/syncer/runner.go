// Package syncer composes the paginator and a sink into a single-shot run.
//
// A run moves through idle -> fetching -> (writing -> fetching)* -> done.
// Any error moves it to failed, which is terminal.
//
// With a PageWriter each page is written as soon as it is fetched, so a
// failure on page K leaves pages 1..K-1 at the destination. With a
// BatchWriter every page is fetched first and the records are written once,
// so a fetch failure writes nothing.
package syncer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Sternrassler/hotspot-sync/pkg/hotspot"
	"github.com/Sternrassler/hotspot-sync/pkg/logging"
	"github.com/Sternrassler/hotspot-sync/pkg/pagination"
	"github.com/Sternrassler/hotspot-sync/pkg/sink"
	"github.com/Sternrassler/hotspot-sync/pkg/syncerr"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
)

var (
	runState = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "hotspot_sync_run_state",
		Help: "Current run state (0 idle, 1 fetching, 2 writing, 3 done, 4 failed)",
	})

	runErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "hotspot_sync_errors_total",
		Help: "Total fatal run errors by stage and kind",
	}, []string{"stage", "kind"})
)

// State is a step of the run state machine.
type State int

const (
	StateIdle State = iota
	StateFetching
	StateWriting
	StateDone
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateFetching:
		return "fetching"
	case StateWriting:
		return "writing"
	case StateDone:
		return "done"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// ErrAlreadyRun is returned when Run is called on a runner that has started.
var ErrAlreadyRun = errors.New("runner already started")

// Summary describes a finished run. Pages and Records count what was
// fetched; Inserted counts records the sink accepted (forwarded records in
// streaming mode) and Skipped those it ignored as duplicates.
type Summary struct {
	Pages    int
	Records  int
	Inserted int
	Skipped  int
	Duration time.Duration
}

// Runner drives one sync run. Exactly one of PageWriter or BatchWriter is set.
type Runner struct {
	fetcher pagination.PageFetcher
	pages   sink.PageWriter
	batch   sink.BatchWriter
	logger  zerolog.Logger

	mu      sync.Mutex
	state   State
	history []State
}

// NewStreaming creates a runner that writes each page as it is fetched.
func NewStreaming(fetcher pagination.PageFetcher, w sink.PageWriter) *Runner {
	return newRunner(fetcher, w, nil)
}

// NewBatch creates a runner that accumulates every page and writes once.
func NewBatch(fetcher pagination.PageFetcher, w sink.BatchWriter) *Runner {
	return newRunner(fetcher, nil, w)
}

func newRunner(fetcher pagination.PageFetcher, pw sink.PageWriter, bw sink.BatchWriter) *Runner {
	return &Runner{
		fetcher: fetcher,
		pages:   pw,
		batch:   bw,
		logger:  logging.NewLogger("runner"),
		state:   StateIdle,
		history: []State{StateIdle},
	}
}

// State returns the current state.
func (r *Runner) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// History returns every state entered so far, consecutive repeats collapsed.
func (r *Runner) History() []State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]State(nil), r.history...)
}

func (r *Runner) transition(s State) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.state = s
	if r.history[len(r.history)-1] != s {
		r.history = append(r.history, s)
	}
	runState.Set(float64(s))
}

// Run executes the sync. It may be called once.
func (r *Runner) Run(ctx context.Context) (Summary, error) {
	if r.State() != StateIdle {
		return Summary{}, ErrAlreadyRun
	}
	if (r.pages == nil) == (r.batch == nil) {
		r.transition(StateFailed)
		return Summary{}, fmt.Errorf("runner needs exactly one sink")
	}

	start := time.Now()
	var (
		sum Summary
		err error
	)
	if r.pages != nil {
		sum, err = r.runStreaming(ctx)
	} else {
		sum, err = r.runBatch(ctx)
	}
	sum.Duration = time.Since(start)

	if err != nil {
		r.transition(StateFailed)
		stage, _ := syncerr.StageOf(err)
		kind, _ := syncerr.KindOf(err)
		runErrorsTotal.WithLabelValues(string(stage), string(kind)).Inc()
		r.logger.Error().
			Err(err).
			Str("stage", string(stage)).
			Int("pages", sum.Pages).
			Msg("Sync failed")
		return sum, err
	}

	r.transition(StateDone)
	r.logger.Info().
		Int("pages", sum.Pages).
		Int("records", sum.Records).
		Int("inserted", sum.Inserted).
		Int("skipped", sum.Skipped).
		Dur("duration", sum.Duration).
		Msg("Sync complete")
	return sum, nil
}

func (r *Runner) runStreaming(ctx context.Context) (Summary, error) {
	var sum Summary
	p := pagination.New(&stateFetcher{r: r, next: r.fetcher})

	written := 0
	pages, err := p.Walk(ctx, func(page *hotspot.Page) error {
		sum.Records += len(page.Data)
		r.transition(StateWriting)
		if err := r.pages.WritePage(ctx, page); err != nil {
			return fmt.Errorf("write page %d: %w", written+1, err)
		}
		written++
		sum.Inserted += len(page.Data)
		return nil
	})
	sum.Pages = pages
	return sum, err
}

func (r *Runner) runBatch(ctx context.Context) (Summary, error) {
	var sum Summary
	p := pagination.New(&stateFetcher{r: r, next: r.fetcher})

	records, pages, err := p.Collect(ctx)
	sum.Pages = pages
	if err != nil {
		return sum, err
	}
	sum.Records = len(records)

	r.transition(StateWriting)
	res, err := r.batch.InsertBatch(ctx, records)
	if err != nil {
		return sum, fmt.Errorf("insert batch: %w", err)
	}
	sum.Inserted = res.Inserted
	sum.Skipped = res.Skipped
	return sum, nil
}

// stateFetcher marks the runner as fetching before every page request.
type stateFetcher struct {
	r    *Runner
	next pagination.PageFetcher
}

func (f *stateFetcher) FetchPage(ctx context.Context, cursor string) (*hotspot.Page, error) {
	f.r.transition(StateFetching)
	return f.next.FetchPage(ctx, cursor)
}
