// Package config loads run configuration from the environment, optionally
// seeded from a .env file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/Sternrassler/hotspot-sync/pkg/client"
	"github.com/Sternrassler/hotspot-sync/pkg/logging"
	"github.com/Sternrassler/hotspot-sync/pkg/sink/postgres"
)

// SinkType selects the destination.
type SinkType string

const (
	SinkForward  SinkType = "forward"
	SinkPostgres SinkType = "postgres"
	SinkSQLite   SinkType = "sqlite"
	SinkRedis    SinkType = "redis"
	SinkMongo    SinkType = "mongo"
)

// Streaming reports whether the sink receives pages as they are fetched.
func (s SinkType) Streaming() bool {
	return s == SinkForward
}

// Config is the complete run configuration.
type Config struct {
	SourceURL   string
	UserAgent   string
	HTTPTimeout time.Duration

	Sink SinkType

	// Forward sink
	DestinationURL string

	// Postgres sink
	Postgres postgres.ConnParams

	// SQLite sink
	SQLitePath string

	// Redis sink
	RedisAddr      string
	RedisPassword  string
	RedisDB        int
	RedisKeyPrefix string

	// Mongo sink
	MongoURI        string
	MongoDatabase   string
	MongoCollection string

	// Relational options
	PersistGeocodes bool
	CreateSchema    bool

	LogLevel       logging.LogLevel
	LogPretty      bool
	PushgatewayURL string
}

// Load reads envFile (if it exists) into the environment without overriding
// variables already set, then builds and validates the Config.
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", envFile, err)
		}
	}

	cfg, err := FromEnv()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// FromEnv builds a Config from environment variables with defaults.
func FromEnv() (*Config, error) {
	timeout, err := getDuration("HTTP_TIMEOUT", 30*time.Second)
	if err != nil {
		return nil, err
	}
	pgPort, err := getInt("POSTGRES_PORT", 5432)
	if err != nil {
		return nil, err
	}
	redisDB, err := getInt("REDIS_DB", 0)
	if err != nil {
		return nil, err
	}
	geocodes, err := getBool("PERSIST_GEOCODES", false)
	if err != nil {
		return nil, err
	}
	createSchema, err := getBool("CREATE_SCHEMA", false)
	if err != nil {
		return nil, err
	}
	pretty, err := getBool("LOG_PRETTY", false)
	if err != nil {
		return nil, err
	}

	return &Config{
		SourceURL:   getEnv("SOURCE_URL", client.DefaultBaseURL),
		UserAgent:   getEnv("USER_AGENT", "hotspot-sync/0.1.0"),
		HTTPTimeout: timeout,
		Sink:        SinkType(strings.ToLower(getEnv("SINK", string(SinkForward)))),

		DestinationURL: os.Getenv("DESTINATION_URL"),

		Postgres: postgres.ConnParams{
			Host:     getEnv("POSTGRES_HOST", "localhost"),
			Port:     pgPort,
			User:     os.Getenv("POSTGRES_USER"),
			Password: os.Getenv("POSTGRES_PASSWORD"),
			Database: os.Getenv("POSTGRES_DB"),
			SSLMode:  getEnv("POSTGRES_SSLMODE", "disable"),
		},

		SQLitePath: getEnv("SQLITE_PATH", "data/hotspots.db"),

		RedisAddr:      getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:  os.Getenv("REDIS_PASSWORD"),
		RedisDB:        redisDB,
		RedisKeyPrefix: getEnv("REDIS_KEY_PREFIX", "hotspot"),

		MongoURI:        os.Getenv("MONGODB_URI"),
		MongoDatabase:   getEnv("MONGODB_DATABASE", "helium"),
		MongoCollection: getEnv("MONGODB_COLLECTION", "hotspots"),

		PersistGeocodes: geocodes,
		CreateSchema:    createSchema,

		LogLevel:       logging.LogLevel(getEnv("LOG_LEVEL", string(logging.LevelInfo))),
		LogPretty:      pretty,
		PushgatewayURL: os.Getenv("PUSHGATEWAY_URL"),
	}, nil
}

// Validate checks that the selected sink is fully configured.
func (c *Config) Validate() error {
	if c.SourceURL == "" {
		return fmt.Errorf("SOURCE_URL is not set")
	}

	switch c.Sink {
	case SinkForward:
		if c.DestinationURL == "" {
			return fmt.Errorf("DESTINATION_URL is required for sink %q", c.Sink)
		}
	case SinkPostgres:
		if c.Postgres.User == "" || c.Postgres.Database == "" {
			return fmt.Errorf("POSTGRES_USER and POSTGRES_DB are required for sink %q", c.Sink)
		}
	case SinkSQLite:
		if c.SQLitePath == "" {
			return fmt.Errorf("SQLITE_PATH is required for sink %q", c.Sink)
		}
	case SinkRedis:
		if c.RedisAddr == "" {
			return fmt.Errorf("REDIS_ADDR is required for sink %q", c.Sink)
		}
	case SinkMongo:
		if c.MongoURI == "" {
			return fmt.Errorf("MONGODB_URI is required for sink %q", c.Sink)
		}
	default:
		return fmt.Errorf("unsupported SINK: %s", c.Sink)
	}

	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}

func getBool(key string, defaultValue bool) (bool, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return false, fmt.Errorf("%s: %w", key, err)
	}
	return b, nil
}

func getDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}
