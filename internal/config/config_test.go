package config

import (
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"
)

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("APP_ENV", "test")
	t.Setenv("APP_PORT", "8080")
	t.Setenv("DB_USER", "app")
	t.Setenv("DB_HOST", "localhost")
	t.Setenv("DB_PORT", "3306")
	t.Setenv("DB_NAME", "bidding")
	t.Setenv("JWT_SECRET", "secret")
}

func TestLoad_Defaults(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)
	setRequired(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.SettlementCron != "@every 1m" {
		t.Fatalf("expected default settlement schedule, got %q", cfg.SettlementCron)
	}
	if cfg.BidEventsQueue != "bid.events" {
		t.Fatalf("expected default queue, got %q", cfg.BidEventsQueue)
	}
	if cfg.SettlementTimeout != 30*time.Second {
		t.Fatalf("expected 30s settlement timeout, got %s", cfg.SettlementTimeout)
	}
	if cfg.StatusFallbackEnabled {
		t.Fatal("expected status fallback disabled by default")
	}
	if cfg.AccessTTLMin != 15 {
		t.Fatalf("expected 15 minute token ttl, got %d", cfg.AccessTTLMin)
	}
}

func TestLoad_ReadsOverrides(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)
	setRequired(t)
	t.Setenv("STATUS_FALLBACK_ENABLED", "true")
	t.Setenv("SETTLEMENT_CRON", "*/5 * * * *")
	t.Setenv("SETTLEMENT_TIMEOUT", "2m")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !cfg.StatusFallbackEnabled {
		t.Fatal("expected status fallback enabled")
	}
	if cfg.SettlementCron != "*/5 * * * *" || cfg.SettlementTimeout != 2*time.Minute {
		t.Fatalf("expected overrides, got %q %s", cfg.SettlementCron, cfg.SettlementTimeout)
	}
}

func TestLoad_ReportsAllMissingRequired(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)
	setRequired(t)
	t.Setenv("DB_HOST", "")
	t.Setenv("JWT_SECRET", "")

	_, err := Load()
	if err == nil {
		t.Fatal("expected missing variables error")
	}
	for _, key := range []string{"DB_HOST", "JWT_SECRET"} {
		if !strings.Contains(err.Error(), key) {
			t.Fatalf("expected error to mention %s, got %v", key, err)
		}
	}
}

func TestLoadRateLimitConfig_Normalizes(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)
	t.Setenv("RATE_LIMIT_BURST", "5")
	t.Setenv("RATE_LIMIT_REFILL_EVERY", "3s")
	t.Setenv("RATE_LIMIT_TTL", "1s")
	t.Setenv("RATE_LIMIT_ENABLED", "off")

	c := LoadRateLimitConfig()
	if c.Enabled {
		t.Fatal("expected limiter disabled")
	}
	if c.Capacity != 5 || c.RefillTokens != 1 || c.RefillInterval != 3*time.Second {
		t.Fatalf("unexpected bucket %+v", c)
	}
	if c.TTL != 15*time.Second {
		t.Fatalf("expected ttl raised to 5 refill intervals, got %s", c.TTL)
	}
}

func TestLoadCacheConfig_Methods(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)
	t.Setenv("CACHE_METHODS", "get, head ,")
	t.Setenv("CACHE_TTL", "bogus")

	c := LoadCacheConfig()
	if !c.Methods["GET"] || !c.Methods["HEAD"] || len(c.Methods) != 2 {
		t.Fatalf("unexpected methods %v", c.Methods)
	}
	if c.TTL != 30*time.Second {
		t.Fatalf("expected default ttl on malformed value, got %s", c.TTL)
	}
}

func TestLoad_AMQPURLFallback(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)
	setRequired(t)
	t.Setenv("AMQP_URL", "amqp://other:5672/")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.RabbitMQURL != "amqp://other:5672/" {
		t.Fatalf("expected AMQP_URL to be used, got %q", cfg.RabbitMQURL)
	}
}

func TestLoad_DatabasePool(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)
	setRequired(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	pool := cfg.DBPool()
	if pool.MaxOpenConns != 25 || pool.MaxIdleConns != 25 || pool.ConnMaxLifetime != 30*time.Minute {
		t.Fatalf("expected default pool 25/25/30m, got %d/%d/%s", pool.MaxOpenConns, pool.MaxIdleConns, pool.ConnMaxLifetime)
	}

	viper.Reset()
	t.Setenv("DB_MAX_OPEN_CONNS", "50")
	t.Setenv("DB_MAX_IDLE_CONNS", "10")
	t.Setenv("DB_CONN_MAX_LIFETIME", "5m")
	cfg, err = Load()
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	pool = cfg.DBPool()
	if pool.MaxOpenConns != 50 || pool.MaxIdleConns != 10 || pool.ConnMaxLifetime != 5*time.Minute {
		t.Fatalf("expected pool 50/10/5m, got %d/%d/%s", pool.MaxOpenConns, pool.MaxIdleConns, pool.ConnMaxLifetime)
	}
	if pool.Host != "localhost" || pool.Name != "bidding" {
		t.Fatalf("expected connection fields carried over, got %+v", pool)
	}
}

func TestLoad_RejectsNegativePoolSize(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)
	setRequired(t)
	t.Setenv("DB_MAX_OPEN_CONNS", "-1")

	if _, err := Load(); err == nil || !strings.Contains(err.Error(), "pool size") {
		t.Fatalf("expected pool size error, got %v", err)
	}
}
