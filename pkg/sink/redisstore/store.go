// Package redisstore is the Redis batch sink. Each hotspot is stored as a JSON
// string under "<prefix>:<address>" and written with SET NX, so an address
// that already exists keeps its original value.
package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Sternrassler/hotspot-sync/pkg/hotspot"
	"github.com/Sternrassler/hotspot-sync/pkg/sink"
	"github.com/Sternrassler/hotspot-sync/pkg/syncerr"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Name is the sink label used in logs and metrics.
const Name = "redis"

// DefaultKeyPrefix namespaces hotspot keys.
const DefaultKeyPrefix = "hotspot"

// ErrNotFound is returned by Get for an unknown address.
var ErrNotFound = errors.New("hotspot not found")

// Store writes hotspot batches to Redis.
type Store struct {
	redis  *redis.Client
	prefix string
	logger zerolog.Logger
}

var _ sink.BatchWriter = (*Store)(nil)

// Connect opens a client and verifies it with PING.
func Connect(ctx context.Context, opts *redis.Options) (*redis.Client, error) {
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, syncerr.Connect("ping redis", err)
	}
	return client, nil
}

// NewStore creates a store using prefix for keys ("" selects DefaultKeyPrefix).
func NewStore(redisClient *redis.Client, prefix string) *Store {
	if redisClient == nil {
		panic("redis client cannot be nil")
	}
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}
	return &Store{
		redis:  redisClient,
		prefix: strings.TrimSuffix(prefix, ":"),
		logger: log.With().Str("component", "redis-sink").Str("sink", Name).Logger(),
	}
}

// Key returns the Redis key for address.
func (s *Store) Key(address string) string {
	return s.prefix + ":" + address
}

// InsertBatch writes every record in one MULTI/EXEC transaction.
func (s *Store) InsertBatch(ctx context.Context, records []hotspot.Hotspot) (sink.Result, error) {
	var res sink.Result
	if len(records) == 0 {
		return res, nil
	}
	start := time.Now()

	payloads := make([][]byte, len(records))
	for i := range records {
		data, err := json.Marshal(&records[i])
		if err != nil {
			return res, syncerr.Write("encode hotspot "+records[i].Address, err)
		}
		payloads[i] = data
	}

	cmds := make([]*redis.BoolCmd, len(records))
	_, err := s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for i := range records {
			cmds[i] = pipe.SetNX(ctx, s.Key(records[i].Address), payloads[i], 0)
		}
		return nil
	})
	if err != nil {
		return res, syncerr.Write("redis transaction", err)
	}

	for _, cmd := range cmds {
		if cmd.Val() {
			res.Inserted++
		} else {
			res.Skipped++
		}
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

// Get reads back a stored hotspot.
func (s *Store) Get(ctx context.Context, address string) (*hotspot.Hotspot, error) {
	data, err := s.redis.Get(ctx, s.Key(address)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("redis get: %w", err)
	}

	var h hotspot.Hotspot
	if err := json.Unmarshal(data, &h); err != nil {
		return nil, fmt.Errorf("decode stored hotspot: %w", err)
	}
	return &h, nil
}
