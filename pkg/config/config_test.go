package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/Sternrassler/hotspot-sync/pkg/client"
)

// clearEnv unsets every key FromEnv reads so ambient variables cannot leak in.
func clearEnv(t *testing.T) {
	t.Helper()

	keys := []string{
		"SOURCE_URL", "USER_AGENT", "HTTP_TIMEOUT", "SINK", "DESTINATION_URL",
		"POSTGRES_HOST", "POSTGRES_PORT", "POSTGRES_USER", "POSTGRES_PASSWORD",
		"POSTGRES_DB", "POSTGRES_SSLMODE", "SQLITE_PATH",
		"REDIS_ADDR", "REDIS_PASSWORD", "REDIS_DB", "REDIS_KEY_PREFIX",
		"MONGODB_URI", "MONGODB_DATABASE", "MONGODB_COLLECTION",
		"PERSIST_GEOCODES", "CREATE_SCHEMA", "LOG_LEVEL", "LOG_PRETTY", "PUSHGATEWAY_URL",
	}
	for _, k := range keys {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}
}

func TestFromEnv_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := FromEnv()
	if err != nil {
		t.Fatalf("FromEnv() error = %v", err)
	}

	if cfg.SourceURL != client.DefaultBaseURL {
		t.Errorf("SourceURL = %q, want %q", cfg.SourceURL, client.DefaultBaseURL)
	}
	if cfg.Sink != SinkForward {
		t.Errorf("Sink = %q, want forward", cfg.Sink)
	}
	if cfg.HTTPTimeout != 30*time.Second {
		t.Errorf("HTTPTimeout = %v, want 30s", cfg.HTTPTimeout)
	}
	if cfg.Postgres.Port != 5432 || cfg.Postgres.SSLMode != "disable" {
		t.Errorf("Postgres = %+v", cfg.Postgres)
	}
	if cfg.PersistGeocodes || cfg.CreateSchema {
		t.Error("relational options should default to false")
	}
}

func TestFromEnv_Overrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("SINK", "Postgres")
	t.Setenv("POSTGRES_PORT", "6543")
	t.Setenv("POSTGRES_USER", "helium")
	t.Setenv("POSTGRES_DB", "hotspots")
	t.Setenv("PERSIST_GEOCODES", "true")
	t.Setenv("HTTP_TIMEOUT", "5s")

	cfg, err := FromEnv()
	if err != nil {
		t.Fatalf("FromEnv() error = %v", err)
	}

	if cfg.Sink != SinkPostgres {
		t.Errorf("Sink = %q, want postgres", cfg.Sink)
	}
	if cfg.Postgres.Port != 6543 {
		t.Errorf("Port = %d, want 6543", cfg.Postgres.Port)
	}
	if !cfg.PersistGeocodes {
		t.Error("PersistGeocodes should be true")
	}
	if cfg.HTTPTimeout != 5*time.Second {
		t.Errorf("HTTPTimeout = %v, want 5s", cfg.HTTPTimeout)
	}
}

func TestFromEnv_InvalidValues(t *testing.T) {
	tests := []struct {
		key   string
		value string
	}{
		{"POSTGRES_PORT", "not-a-port"},
		{"REDIS_DB", "x"},
		{"PERSIST_GEOCODES", "maybe"},
		{"HTTP_TIMEOUT", "soon"},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(tt.key, tt.value)

			_, err := FromEnv()
			if err == nil {
				t.Fatalf("FromEnv() should reject %s=%q", tt.key, tt.value)
			}
			if !strings.Contains(err.Error(), tt.key) {
				t.Errorf("error %q should name %s", err, tt.key)
			}
		})
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"forward ok", Config{SourceURL: "http://src", Sink: SinkForward, DestinationURL: "http://dst"}, false},
		{"forward missing destination", Config{SourceURL: "http://src", Sink: SinkForward}, true},
		{"sqlite ok", Config{SourceURL: "http://src", Sink: SinkSQLite, SQLitePath: "x.db"}, false},
		{"redis missing addr", Config{SourceURL: "http://src", Sink: SinkRedis}, true},
		{"mongo missing uri", Config{SourceURL: "http://src", Sink: SinkMongo}, true},
		{"unknown sink", Config{SourceURL: "http://src", Sink: "kafka"}, true},
		{"missing source", Config{Sink: SinkForward, DestinationURL: "http://dst"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestLoad_EnvFile(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), ".env")
	content := "SINK=sqlite\nSQLITE_PATH=/tmp/hotspots.db\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write env file: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Sink != SinkSQLite || cfg.SQLitePath != "/tmp/hotspots.db" {
		t.Errorf("cfg = %+v", cfg)
	}
}

func TestLoad_MissingEnvFileIsIgnored(t *testing.T) {
	clearEnv(t)
	t.Setenv("DESTINATION_URL", "http://dst")

	if _, err := Load(filepath.Join(t.TempDir(), "absent.env")); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
}

func TestSinkType_Streaming(t *testing.T) {
	if !SinkForward.Streaming() {
		t.Error("forward should stream")
	}
	for _, s := range []SinkType{SinkPostgres, SinkSQLite, SinkRedis, SinkMongo} {
		if s.Streaming() {
			t.Errorf("%s should not stream", s)
		}
	}
}
