package sqlite

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sternrassler/hotspot-sync/pkg/hotspot"
	"github.com/Sternrassler/hotspot-sync/pkg/syncerr"
)

func setupStore(t *testing.T, geocodes bool) *Store {
	t.Helper()

	ctx := context.Background()
	store, err := Open(ctx, filepath.Join(t.TempDir(), "data", "hotspots.db"), geocodes)
	require.NoError(t, err)
	require.NoError(t, store.EnsureSchema(ctx))

	t.Cleanup(func() { store.Close() })
	return store
}

func ptr[T any](v T) *T {
	return &v
}

func minimal(address string) hotspot.Hotspot {
	return hotspot.Hotspot{
		Address:         address,
		LastChangeBlock: 10,
		Gain:            1,
		Elevation:       2,
		BlockAdded:      100,
		Block:           101,
	}
}

func TestOpen_EmptyPath(t *testing.T) {
	_, err := Open(context.Background(), "", false)
	kind, _ := syncerr.KindOf(err)
	assert.Equal(t, syncerr.KindConnect, kind)
}

func TestInsertBatch_NullableRoundTrip(t *testing.T) {
	store := setupStore(t, false)
	ctx := context.Background()

	res, err := store.InsertBatch(ctx, []hotspot.Hotspot{minimal("A1")})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Inserted)

	var (
		lng   sql.NullFloat64
		owner sql.NullString
		nonce int64
		gain  int64
	)
	err = store.DB().QueryRowContext(ctx, `SELECT lng, owner, nonce, gain FROM hotspots WHERE address = ?`, "A1").
		Scan(&lng, &owner, &nonce, &gain)
	require.NoError(t, err)

	assert.False(t, lng.Valid)
	assert.False(t, owner.Valid)
	assert.Equal(t, int64(0), nonce)
	assert.Equal(t, int64(1), gain)
}

func TestInsertBatch_IgnoresDuplicates(t *testing.T) {
	store := setupStore(t, false)
	ctx := context.Background()

	first := minimal("DUP")
	first.Owner = ptr("owner-1")
	_, err := store.InsertBatch(ctx, []hotspot.Hotspot{first})
	require.NoError(t, err)

	second := minimal("DUP")
	second.Owner = ptr("owner-2")
	res, err := store.InsertBatch(ctx, []hotspot.Hotspot{second, minimal("NEW")})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Inserted)
	assert.Equal(t, 1, res.Skipped)

	var owner string
	err = store.DB().QueryRowContext(ctx, `SELECT owner FROM hotspots WHERE address = ?`, "DUP").Scan(&owner)
	require.NoError(t, err)
	assert.Equal(t, "owner-1", owner)
}

func TestInsertBatch_Idempotent(t *testing.T) {
	store := setupStore(t, true)
	ctx := context.Background()

	batch := []hotspot.Hotspot{minimal("A1"), minimal("A2")}
	batch[0].Geocode.LongCountry = ptr("United States")

	_, err := store.InsertBatch(ctx, batch)
	require.NoError(t, err)
	res, err := store.InsertBatch(ctx, batch)
	require.NoError(t, err)
	assert.Equal(t, 0, res.Inserted)
	assert.Equal(t, 2, res.Skipped)

	count, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	var country string
	err = store.DB().QueryRowContext(ctx, `SELECT long_country FROM hotspot_geocodes WHERE address = ?`, "A1").Scan(&country)
	require.NoError(t, err)
	assert.Equal(t, "United States", country)
}

func TestInsertBatch_MissingTableIsWriteError(t *testing.T) {
	ctx := context.Background()
	store, err := Open(ctx, filepath.Join(t.TempDir(), "empty.db"), false)
	require.NoError(t, err)
	defer store.Close()

	_, err = store.InsertBatch(ctx, []hotspot.Hotspot{minimal("A1")})
	require.Error(t, err)

	stage, _ := syncerr.StageOf(err)
	assert.Equal(t, syncerr.StageWrite, stage)
}

func TestInsertBatch_RollsBackOnFailure(t *testing.T) {
	store := setupStore(t, false)
	ctx := context.Background()

	_, err := store.DB().ExecContext(ctx, `CREATE TRIGGER reject_bad BEFORE INSERT ON hotspots
		WHEN NEW.address = 'BAD' BEGIN SELECT RAISE(ABORT, 'rejected'); END`)
	require.NoError(t, err)

	_, err = store.InsertBatch(ctx, []hotspot.Hotspot{minimal("GOOD"), minimal("BAD")})
	require.Error(t, err)

	count, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, count, "failed batch must not leave partial rows")
}

func TestInsertBatch_ConstraintFailureIsWriteError(t *testing.T) {
	ctx := context.Background()
	store, err := Open(ctx, filepath.Join(t.TempDir(), "strict.db"), false)
	require.NoError(t, err)
	defer store.Close()

	// A table created out of band with a stricter column than ours.
	_, err = store.DB().ExecContext(ctx, `CREATE TABLE hotspots (
		address TEXT PRIMARY KEY, lng REAL, lat REAL, timestamp_added TEXT,
		reward_scale REAL, payer TEXT, owner TEXT, nonce INTEGER NOT NULL,
		name TEXT NOT NULL, mode TEXT, location_hex TEXT, location TEXT,
		last_poc_challenge INTEGER, last_change_block INTEGER NOT NULL,
		gain INTEGER NOT NULL, elevation INTEGER NOT NULL,
		block_added INTEGER NOT NULL, block INTEGER NOT NULL)`)
	require.NoError(t, err)

	res, err := store.InsertBatch(ctx, []hotspot.Hotspot{minimal("A1")})
	require.Error(t, err, "a NOT NULL failure must not be reported as a duplicate")

	kind, _ := syncerr.KindOf(err)
	assert.Equal(t, syncerr.KindWrite, kind)
	assert.Zero(t, res.Skipped)

	count, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestInsertBatch_ClosedDatabaseIsConnectError(t *testing.T) {
	store := setupStore(t, false)
	require.NoError(t, store.Close())

	_, err := store.InsertBatch(context.Background(), []hotspot.Hotspot{minimal("A1")})
	require.Error(t, err)

	stage, _ := syncerr.StageOf(err)
	assert.Equal(t, syncerr.StageConnect, stage)
}
