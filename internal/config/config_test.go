package config

import (
	"strings"
	"testing"
	"time"
)

const testMasterKeyHex = "4242424242424242424242424242424242424242424242424242424242424242"

func TestLoadRequiresMasterKey(t *testing.T) {
	t.Setenv("VAULT_MASTER_KEY", "")

	if _, err := Load(); err == nil {
		t.Fatal("expected an error without VAULT_MASTER_KEY")
	}

	t.Setenv("VAULT_MASTER_KEY", "deadbeef") // too short
	if _, err := Load(); err == nil || !strings.Contains(err.Error(), "64 hex") {
		t.Fatalf("short key error = %v, want length complaint", err)
	}

	t.Setenv("VAULT_MASTER_KEY", strings.Repeat("zz", 32)) // not hex
	if _, err := Load(); err == nil {
		t.Fatal("expected an error for non-hex key")
	}
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("VAULT_MASTER_KEY", testMasterKeyHex)
	t.Setenv("PORT", "")
	t.Setenv("MONITOR_CHECK_INTERVAL", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Port != "8080" {
		t.Errorf("port = %q, want 8080", cfg.Port)
	}
	if cfg.MonitorCheckInterval != 5*time.Minute {
		t.Errorf("check interval = %v, want 5m", cfg.MonitorCheckInterval)
	}
	if len(cfg.MasterKey) != 32 {
		t.Errorf("master key length = %d, want 32", len(cfg.MasterKey))
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("VAULT_MASTER_KEY", testMasterKeyHex)
	t.Setenv("PORT", "9999")
	t.Setenv("MONITOR_CHECK_INTERVAL", "30s")
	t.Setenv("BROKER_TIMEOUT", "not-a-duration") // falls back

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Port != "9999" {
		t.Errorf("port = %q, want 9999", cfg.Port)
	}
	if cfg.MonitorCheckInterval != 30*time.Second {
		t.Errorf("check interval = %v, want 30s", cfg.MonitorCheckInterval)
	}
	if cfg.BrokerTimeout != 30*time.Second {
		t.Errorf("broker timeout = %v, want the 30s default", cfg.BrokerTimeout)
	}
}
