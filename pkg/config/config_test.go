package config

import (
	"strings"
	"testing"
	"time"
)

func TestEnsureDSNPassthrough(t *testing.T) {
	cfg := DBConfig{DSN: "postgres://app@localhost:5432/giftlane"}
	if err := cfg.ensureDSN(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.DSN != "postgres://app@localhost:5432/giftlane" {
		t.Fatalf("dsn should be untouched, got %q", cfg.DSN)
	}
}

func TestEnsureDSNFromParts(t *testing.T) {
	cfg := DBConfig{
		Host:     "db.internal",
		Port:     5433,
		User:     "giftlane",
		Password: "s3cret",
		Name:     "giftlane",
		SSLMode:  "require",
	}
	if err := cfg.ensureDSN(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, want := range []string{"db.internal:5433", "giftlane:s3cret@", "sslmode=require"} {
		if !strings.Contains(cfg.DSN, want) {
			t.Fatalf("dsn %q missing %q", cfg.DSN, want)
		}
	}
}

func TestEnsureDSNMissingParts(t *testing.T) {
	cfg := DBConfig{Host: "db.internal"}
	err := cfg.ensureDSN()
	if err == nil {
		t.Fatal("expected error for missing user/name")
	}
	if !strings.Contains(err.Error(), "GIFTLANE_DB_USER") {
		t.Fatalf("error should name missing vars, got %v", err)
	}
}

func TestDurationHelpers(t *testing.T) {
	jwt := JWTConfig{GuestTTLMinutes: 30}
	if jwt.GuestTTL() != 30*time.Minute {
		t.Fatalf("unexpected guest ttl %v", jwt.GuestTTL())
	}
	if (JWTConfig{}).GuestTTL() != 0 {
		t.Fatal("zero minutes should yield zero ttl")
	}
	if (OrdersConfig{}).DesignDeadline() != 24*time.Hour {
		t.Fatal("design deadline should default to 24h")
	}
	if (OrdersConfig{DesignDeadlineHours: 48}).DesignDeadline() != 48*time.Hour {
		t.Fatal("design deadline should honor configured hours")
	}
}
