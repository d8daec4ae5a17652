package config

import (
	"testing"
	"time"
)

func TestLoadLedgerSettings_Defaults(t *testing.T) {
	t.Setenv("ALLOW_NEGATIVE_STOCK", "")
	t.Setenv("LEDGER_LOCK_TTL_SECONDS", "")
	t.Setenv("LEDGER_OPERATION_TIMEOUT_SECONDS", "")
	t.Setenv("BALANCE_CACHE_TTL_SECONDS", "")
	t.Setenv("PUBSUB_AUDIT_TOPIC", "")

	s := LoadLedgerSettings()
	if s.AllowNegativeStock {
		t.Fatalf("expected negative stock to be disallowed by default")
	}
	if s.LockTTL != 30*time.Second {
		t.Fatalf("expected 30s lock ttl, got %s", s.LockTTL)
	}
	if s.OperationTimeout != 10*time.Second {
		t.Fatalf("expected 10s operation timeout, got %s", s.OperationTimeout)
	}
	if s.BalanceCacheTTL != 0 {
		t.Fatalf("expected balance cache off, got %s", s.BalanceCacheTTL)
	}
}

func TestLoadLedgerSettings_FromEnv(t *testing.T) {
	cases := []struct {
		raw      string
		expected bool
	}{
		{"true", true},
		{"YES", true},
		{"1", true},
		{"false", false},
		{"nope", false},
	}
	for _, tc := range cases {
		t.Setenv("ALLOW_NEGATIVE_STOCK", tc.raw)
		if got := LoadLedgerSettings().AllowNegativeStock; got != tc.expected {
			t.Fatalf("ALLOW_NEGATIVE_STOCK=%q expected %v, got %v", tc.raw, tc.expected, got)
		}
	}

	t.Setenv("LEDGER_LOCK_TTL_SECONDS", "5")
	t.Setenv("LEDGER_OPERATION_TIMEOUT_SECONDS", "abc")
	t.Setenv("BALANCE_CACHE_TTL_SECONDS", "60")
	t.Setenv("PUBSUB_AUDIT_TOPIC", " ledger-audit ")
	s := LoadLedgerSettings()
	if s.LockTTL != 5*time.Second {
		t.Fatalf("expected 5s lock ttl, got %s", s.LockTTL)
	}
	if s.OperationTimeout != 10*time.Second {
		t.Fatalf("invalid timeout should fall back to default, got %s", s.OperationTimeout)
	}
	if s.BalanceCacheTTL != time.Minute {
		t.Fatalf("expected 60s cache ttl, got %s", s.BalanceCacheTTL)
	}
	if s.AuditTopic != "ledger-audit" {
		t.Fatalf("expected trimmed topic, got %q", s.AuditTopic)
	}
}
