package postgres

import (
	"context"
	"time"

	"github.com/Sternrassler/hotspot-sync/pkg/hotspot"
	"github.com/Sternrassler/hotspot-sync/pkg/sink"
	"github.com/Sternrassler/hotspot-sync/pkg/syncerr"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Name is the sink label used in logs and metrics.
const Name = "postgres"

var (
	insertHotspotSQL = sink.InsertSQL("", "hotspots", sink.HotspotColumns, sink.Dollar, "ON CONFLICT (address) DO NOTHING")
	insertGeocodeSQL = sink.InsertSQL("", "hotspot_geocodes", sink.GeocodeColumns, sink.Dollar, "ON CONFLICT (address) DO NOTHING")
)

// Store inserts hotspot batches into PostgreSQL.
type Store struct {
	pool            *Pool
	persistGeocodes bool
	logger          zerolog.Logger
}

// Compile-time interface check.
var _ sink.BatchWriter = (*Store)(nil)

// Option configures a Store.
type Option func(*Store)

// WithGeocodes also writes each record's geocode into hotspot_geocodes.
func WithGeocodes(enabled bool) Option {
	return func(s *Store) {
		s.persistGeocodes = enabled
	}
}

// NewStore creates a new Store.
func NewStore(pool *Pool, opts ...Option) *Store {
	s := &Store{
		pool:   pool,
		logger: log.With().Str("component", "postgres-sink").Str("sink", Name).Logger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// InsertBatch inserts all records in one transaction. Records whose address
// already exists are skipped and counted in Result.Skipped.
func (s *Store) InsertBatch(ctx context.Context, records []hotspot.Hotspot) (sink.Result, error) {
	var res sink.Result
	if len(records) == 0 {
		return res, nil
	}
	start := time.Now()

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return res, syncerr.Connect("begin tx", err)
	}
	defer tx.Rollback(ctx)

	batch := &pgx.Batch{}
	for i := range records {
		batch.Queue(insertHotspotSQL, sink.HotspotArgs(&records[i])...)
		if s.persistGeocodes {
			batch.Queue(insertGeocodeSQL, sink.GeocodeArgs(&records[i])...)
		}
	}

	br := tx.SendBatch(ctx, batch)
	for i := range records {
		tag, err := br.Exec()
		if err != nil {
			br.Close()
			return sink.Result{}, syncerr.Write("insert hotspot "+records[i].Address, err)
		}
		if tag.RowsAffected() == 1 {
			res.Inserted++
		} else {
			res.Skipped++
		}

		if s.persistGeocodes {
			if _, err := br.Exec(); err != nil {
				br.Close()
				return sink.Result{}, syncerr.Write("insert geocode "+records[i].Address, err)
			}
		}
	}
	if err := br.Close(); err != nil {
		return sink.Result{}, syncerr.Write("close batch", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return sink.Result{}, syncerr.Write("commit tx", err)
	}

	sink.ObserveBatch(Name, start, res)
	s.logger.Info().
		Int("records", len(records)).
		Int("inserted", res.Inserted).
		Int("skipped", res.Skipped).
		Dur("duration", time.Since(start)).
		Msg("Batch committed")

	return res, nil
}

// Count returns the number of stored hotspots.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM hotspots`).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}
