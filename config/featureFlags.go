package config

import (
	"os"
	"strings"
	"time"
)

// LedgerSettings is the operator-controlled policy threaded into every ledger
// and allocation component. It is a plain value so tenants and tests can run
// with different policies side by side.
type LedgerSettings struct {
	// AllowNegativeStock lets outbound movements and builds drive a balance below zero.
	AllowNegativeStock bool
	// LockTTL bounds how long a keyed lock (item/warehouse or party) is held.
	LockTTL time.Duration
	// OperationTimeout is a hard ceiling on a single engine operation.
	OperationTimeout time.Duration
	// BalanceCacheTTL is the lifetime of a cached stock balance; zero disables caching.
	BalanceCacheTTL time.Duration
	// AuditTopic is the Pub/Sub topic audit events are published to; empty disables publishing.
	AuditTopic string
}

func DefaultLedgerSettings() LedgerSettings {
	return LedgerSettings{
		AllowNegativeStock: false,
		LockTTL:            30 * time.Second,
		OperationTimeout:   10 * time.Second,
	}
}

// LoadLedgerSettings reads the ledger policy from env:
// - ALLOW_NEGATIVE_STOCK=true
// - LEDGER_LOCK_TTL_SECONDS (default 30)
// - LEDGER_OPERATION_TIMEOUT_SECONDS (default 10)
// - BALANCE_CACHE_TTL_SECONDS (default 0, cache off)
// - PUBSUB_AUDIT_TOPIC
func LoadLedgerSettings() LedgerSettings {
	s := DefaultLedgerSettings()
	s.AllowNegativeStock = boolFromEnv("ALLOW_NEGATIVE_STOCK")
	if n := intFromEnv("LEDGER_LOCK_TTL_SECONDS", 30); n > 0 {
		s.LockTTL = time.Duration(n) * time.Second
	}
	if n := intFromEnv("LEDGER_OPERATION_TIMEOUT_SECONDS", 10); n > 0 {
		s.OperationTimeout = time.Duration(n) * time.Second
	}
	if n := intFromEnv("BALANCE_CACHE_TTL_SECONDS", 0); n > 0 {
		s.BalanceCacheTTL = time.Duration(n) * time.Second
	}
	s.AuditTopic = strings.TrimSpace(os.Getenv("PUBSUB_AUDIT_TOPIC"))
	return s
}

func boolFromEnv(key string) bool {
	v := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	return v == "1" || v == "true" || v == "yes" || v == "y"
}
