// Package sqlite is the SQLite batch sink.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/Sternrassler/hotspot-sync/pkg/hotspot"
	"github.com/Sternrassler/hotspot-sync/pkg/sink"
	"github.com/Sternrassler/hotspot-sync/pkg/syncerr"
	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Name is the sink label used in logs and metrics.
const Name = "sqlite"

const schema = `
CREATE TABLE IF NOT EXISTS hotspots (
	address            TEXT PRIMARY KEY,
	lng                REAL,
	lat                REAL,
	timestamp_added    TEXT,
	reward_scale       REAL,
	payer              TEXT,
	owner              TEXT,
	nonce              INTEGER NOT NULL,
	name               TEXT,
	mode               TEXT,
	location_hex       TEXT,
	location           TEXT,
	last_poc_challenge INTEGER,
	last_change_block  INTEGER NOT NULL,
	gain               INTEGER NOT NULL,
	elevation          INTEGER NOT NULL,
	block_added        INTEGER NOT NULL,
	block              INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS hotspot_geocodes (
	address       TEXT PRIMARY KEY REFERENCES hotspots (address),
	short_street  TEXT,
	short_state   TEXT,
	short_country TEXT,
	short_city    TEXT,
	long_street   TEXT,
	long_state    TEXT,
	long_country  TEXT,
	long_city     TEXT,
	city_id       TEXT
);`

var (
	insertHotspotSQL = sink.InsertSQL("", "hotspots", sink.HotspotColumns, sink.Question, "ON CONFLICT (address) DO NOTHING")
	insertGeocodeSQL = sink.InsertSQL("", "hotspot_geocodes", sink.GeocodeColumns, sink.Question, "ON CONFLICT (address) DO NOTHING")
)

// Store inserts hotspot batches into a SQLite database file.
type Store struct {
	db              *sql.DB
	persistGeocodes bool
	logger          zerolog.Logger
}

var _ sink.BatchWriter = (*Store)(nil)

// Open opens (creating if needed) the database at path.
func Open(ctx context.Context, path string, persistGeocodes bool) (*Store, error) {
	if path == "" {
		return nil, syncerr.Connect("open sqlite", fmt.Errorf("database path is required"))
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, syncerr.Connect("create sqlite directory", err)
		}
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, syncerr.Connect("open sqlite", err)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, syncerr.Connect("ping sqlite", err)
	}

	return &Store{
		db:              db,
		persistGeocodes: persistGeocodes,
		logger:          log.With().Str("component", "sqlite-sink").Str("sink", Name).Logger(),
	}, nil
}

// EnsureSchema creates the tables if they do not exist.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("create sqlite schema: %w", err)
	}
	return nil
}

// InsertBatch inserts all records in one transaction, skipping addresses
// that already exist. Only an address conflict is skipped; any other
// constraint failure aborts the batch.
func (s *Store) InsertBatch(ctx context.Context, records []hotspot.Hotspot) (sink.Result, error) {
	var res sink.Result
	if len(records) == 0 {
		return res, nil
	}
	start := time.Now()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return res, syncerr.Connect("begin tx", err)
	}
	defer tx.Rollback()

	hotspotStmt, err := tx.PrepareContext(ctx, insertHotspotSQL)
	if err != nil {
		return res, syncerr.Write("prepare hotspot insert", err)
	}
	defer hotspotStmt.Close()

	var geocodeStmt *sql.Stmt
	if s.persistGeocodes {
		geocodeStmt, err = tx.PrepareContext(ctx, insertGeocodeSQL)
		if err != nil {
			return res, syncerr.Write("prepare geocode insert", err)
		}
		defer geocodeStmt.Close()
	}

	for i := range records {
		r, err := hotspotStmt.ExecContext(ctx, sink.HotspotArgs(&records[i])...)
		if err != nil {
			return sink.Result{}, syncerr.Write("insert hotspot "+records[i].Address, err)
		}
		n, err := r.RowsAffected()
		if err != nil {
			return sink.Result{}, syncerr.Write("rows affected", err)
		}
		if n == 1 {
			res.Inserted++
		} else {
			res.Skipped++
		}

		if geocodeStmt != nil {
			if _, err := geocodeStmt.ExecContext(ctx, sink.GeocodeArgs(&records[i])...); err != nil {
				return sink.Result{}, syncerr.Write("insert geocode "+records[i].Address, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
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
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM hotspots`).Scan(&n)
	return n, err
}

// DB exposes the underlying handle for inspection.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}
