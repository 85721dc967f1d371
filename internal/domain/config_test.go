package domain

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.env"))
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if cfg.Tier != TierCommunity {
		t.Errorf("expected community tier, got %s", cfg.Tier)
	}
	if cfg.Repository.Driver != "sqlite" || cfg.Cache.Type != "memory" || cfg.EventBus.Type != "channel" {
		t.Errorf("unexpected community backends: %s/%s/%s", cfg.Repository.Driver, cfg.Cache.Type, cfg.EventBus.Type)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("expected port 8080, got %d", cfg.Server.Port)
	}
}

func TestLoadConfigEnvironment(t *testing.T) {
	t.Setenv("STOREFRONT_SERVER_PORT", "9090")
	t.Setenv("STOREFRONT_DB_SQLITE_PATH", "/tmp/shop.db")
	t.Setenv("STOREFRONT_CACHE_STATISTIC_TTL", "30s")
	t.Setenv("STOREFRONT_LOG_LEVEL", "debug")

	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.env"))
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if cfg.Server.Port != 9090 {
		t.Errorf("expected port 9090, got %d", cfg.Server.Port)
	}
	if cfg.Repository.SQLitePath != "/tmp/shop.db" {
		t.Errorf("unexpected sqlite path %q", cfg.Repository.SQLitePath)
	}
	if cfg.Cache.StatisticTTL != 30*time.Second {
		t.Errorf("expected 30s statistic ttl, got %v", cfg.Cache.StatisticTTL)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("expected debug level, got %q", cfg.Logging.Level)
	}
}

func TestLoadConfigProTier(t *testing.T) {
	t.Setenv("STOREFRONT_TIER", "pro")
	t.Setenv("STOREFRONT_BUS_NATS_URL", "nats://queue:4222")

	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.env"))
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if cfg.Repository.Driver != "postgres" || cfg.Cache.Type != "redis" || !cfg.Cache.EnableTwoPhase {
		t.Errorf("unexpected pro backends %+v %+v", cfg.Repository, cfg.Cache)
	}
	if cfg.EventBus.NATSUrl != "nats://queue:4222" {
		t.Errorf("expected env to override pro default, got %q", cfg.EventBus.NATSUrl)
	}
}

func TestLoadConfigDotenv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.env")
	content := "STOREFRONT_DB_DRIVER=postgres\nSTOREFRONT_DB_POSTGRES_DB=shop\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("failed to write env file: %v", err)
	}
	t.Cleanup(func() {
		os.Unsetenv("STOREFRONT_DB_DRIVER")
		os.Unsetenv("STOREFRONT_DB_POSTGRES_DB")
	})

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Repository.Driver != "postgres" || cfg.Repository.PostgresDB != "shop" {
		t.Errorf("expected dotenv values, got %+v", cfg.Repository)
	}
}

func TestLoadConfigInvalidValue(t *testing.T) {
	t.Setenv("STOREFRONT_SERVER_PORT", "eighty")

	if _, err := LoadConfig(filepath.Join(t.TempDir(), "missing.env")); err == nil {
		t.Error("expected parse error")
	}
}
