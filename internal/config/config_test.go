package config

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
)

func loadFromEnv(t *testing.T, env map[string]string) *Config {
	t.Helper()
	viper.Reset()
	t.Cleanup(viper.Reset)
	for k, v := range env {
		t.Setenv(k, v)
	}
	setDefaults()
	viper.AutomaticEnv()
	return fromViper()
}

func TestDefaults(t *testing.T) {
	cfg := loadFromEnv(t, nil)

	if cfg.Server.Port != "8080" {
		t.Fatalf("port = %q", cfg.Server.Port)
	}
	if cfg.Database.Enabled || cfg.Cache.Enabled || cfg.Storage.Enabled {
		t.Fatalf("optional backends should default to disabled: %+v", cfg)
	}
	if cfg.Store.CachePolicy != "manual" {
		t.Fatalf("cache policy = %q", cfg.Store.CachePolicy)
	}
	if got := cfg.Auth.TokenTTL(); got != 8*time.Hour {
		t.Fatalf("token ttl = %s", got)
	}
	if got, want := cfg.App.StoreDir(), filepath.Join("./data", "store"); got != want {
		t.Fatalf("store dir = %q, want %q", got, want)
	}
}

func TestEnvOverrides(t *testing.T) {
	cfg := loadFromEnv(t, map[string]string{
		"SERVER_PORT":             "9090",
		"DB_ENABLED":              "true",
		"DB_HOST":                 "db",
		"DB_NAME":                 "ledger",
		"STORE_CACHE_POLICY":      "ttl",
		"STORE_CACHE_TTL_SECONDS": "45",
		"AUTH_TOKEN_TTL_MINUTES":  "30",
	})

	if cfg.Server.Port != "9090" {
		t.Fatalf("port = %q", cfg.Server.Port)
	}
	if !cfg.Database.Enabled {
		t.Fatal("database should be enabled")
	}
	want := "host=db port=5432 user=postgres password=postgres dbname=ledger sslmode=disable"
	if got := cfg.Database.DSN(); got != want {
		t.Fatalf("dsn = %q, want %q", got, want)
	}
	if got := cfg.Store.CacheTTL(); got != 45*time.Second {
		t.Fatalf("store ttl = %s", got)
	}
	if got := cfg.Auth.TokenTTL(); got != 30*time.Minute {
		t.Fatalf("token ttl = %s", got)
	}
}
