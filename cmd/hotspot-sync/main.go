// Command hotspot-sync pages through the hotspot listing API once and writes
// every record to the configured sink.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/Sternrassler/hotspot-sync/pkg/client"
	"github.com/Sternrassler/hotspot-sync/pkg/config"
	"github.com/Sternrassler/hotspot-sync/pkg/logging"
	"github.com/Sternrassler/hotspot-sync/pkg/metrics"
	"github.com/Sternrassler/hotspot-sync/pkg/sink/forward"
	"github.com/Sternrassler/hotspot-sync/pkg/sink/mongostore"
	"github.com/Sternrassler/hotspot-sync/pkg/sink/postgres"
	"github.com/Sternrassler/hotspot-sync/pkg/sink/redisstore"
	"github.com/Sternrassler/hotspot-sync/pkg/sink/sqlite"
	"github.com/Sternrassler/hotspot-sync/pkg/syncer"
	"github.com/Sternrassler/hotspot-sync/pkg/syncerr"
)

func main() {
	envFile := flag.String("env-file", ".env", "optional .env file to load")
	flag.Parse()

	cfg, err := config.Load(*envFile)
	if err != nil {
		logging.Setup(logging.DefaultConfig())
		log.Error().Err(err).Msg("Invalid configuration")
		os.Exit(1)
	}

	logging.Setup(logging.Config{
		Level:  cfg.LogLevel,
		Pretty: cfg.LogPretty,
		Output: os.Stderr,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	_, err = run(ctx, cfg)

	if pushErr := metrics.Push(context.Background(), cfg.PushgatewayURL, metrics.DefaultJob); pushErr != nil {
		log.Warn().Err(pushErr).Msg("Metrics push failed")
	}

	if err != nil {
		stage, _ := syncerr.StageOf(err)
		log.Error().Err(err).Str("stage", string(stage)).Msg("Hotspot sync failed")
		stop()
		os.Exit(1)
	}
}

// run connects the sink, performs one sync and releases the connection.
func run(ctx context.Context, cfg *config.Config) (syncer.Summary, error) {
	source, err := client.New(client.Config{
		BaseURL:   cfg.SourceURL,
		UserAgent: cfg.UserAgent,
		Timeout:   cfg.HTTPTimeout,
	})
	if err != nil {
		return syncer.Summary{}, err
	}

	runner, closeSink, err := newRunner(ctx, cfg, source)
	if err != nil {
		return syncer.Summary{}, err
	}
	defer closeSink()

	log.Info().
		Str("source", cfg.SourceURL).
		Str("sink", string(cfg.Sink)).
		Bool("streaming", cfg.Sink.Streaming()).
		Msg("Starting hotspot sync")

	return runner.Run(ctx)
}

// newRunner opens the configured sink and returns a runner bound to it along
// with a function that closes the sink connection.
func newRunner(ctx context.Context, cfg *config.Config, source *client.Client) (*syncer.Runner, func(), error) {
	switch cfg.Sink {
	case config.SinkForward:
		fwd, err := forward.New(cfg.DestinationURL, cfg.HTTPTimeout)
		if err != nil {
			return nil, nil, err
		}
		return syncer.NewStreaming(source, fwd), func() {}, nil

	case config.SinkPostgres:
		log.Debug().Stringer("postgres", cfg.Postgres).Msg("Connecting")
		pool, err := postgres.NewPool(ctx, cfg.Postgres.DSN())
		if err != nil {
			return nil, nil, err
		}
		if cfg.CreateSchema {
			if err := postgres.EnsureSchema(ctx, pool); err != nil {
				pool.Close()
				return nil, nil, syncerr.Connect("create postgres schema", err)
			}
		}
		store := postgres.NewStore(pool, postgres.WithGeocodes(cfg.PersistGeocodes))
		return syncer.NewBatch(source, store), pool.Close, nil

	case config.SinkSQLite:
		store, err := sqlite.Open(ctx, cfg.SQLitePath, cfg.PersistGeocodes)
		if err != nil {
			return nil, nil, err
		}
		if cfg.CreateSchema {
			if err := store.EnsureSchema(ctx); err != nil {
				store.Close()
				return nil, nil, syncerr.Connect("create sqlite schema", err)
			}
		}
		return syncer.NewBatch(source, store), func() { store.Close() }, nil

	case config.SinkRedis:
		rdb, err := redisstore.Connect(ctx, &redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err != nil {
			return nil, nil, err
		}
		store := redisstore.NewStore(rdb, cfg.RedisKeyPrefix)
		return syncer.NewBatch(source, store), func() { rdb.Close() }, nil

	case config.SinkMongo:
		mc, err := mongostore.Connect(ctx, cfg.MongoURI)
		if err != nil {
			return nil, nil, err
		}
		store := mongostore.NewStore(mc, cfg.MongoDatabase, cfg.MongoCollection)
		return syncer.NewBatch(source, store), func() { store.Close() }, nil

	default:
		return nil, nil, syncerr.Connect("select sink", fmt.Errorf("unsupported sink: %s", cfg.Sink))
	}
}
