package utils

import "testing"

func TestPostgresPoolDefaults(t *testing.T) {
	cfg := PostgresPoolConfig{}.withDefaults()
	if cfg.MaxOpenConns <= 0 || cfg.MaxIdleConns <= 0 {
		t.Fatalf("expected positive pool defaults, got %+v", cfg)
	}
	if cfg.PingTimeout <= 0 {
		t.Fatalf("expected a ping timeout default")
	}
}
