package twopc

import (
	"testing"
	"time"
)

func TestLoadConfigParsesYAML(t *testing.T) {
	// yaml.v3 reads a time.Duration field only from a duration string
	// such as "2s" (a bare integer is rejected), and MarshalConfig writes
	// durations in the same string form.
	data := []byte(`
actuator:
  default_attempts_max: 5
  default_recall_interval: 2s
  queue_buffer: 16
auto_clear_timeout: 1h
gc_interval: 5m
`)
	cfg, err := LoadConfig(data)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Actuator.DefaultAttemptsMax != 5 {
		t.Fatalf("expected attempts_max 5, got %d", cfg.Actuator.DefaultAttemptsMax)
	}
	if cfg.Actuator.DefaultRecallInterval != 2*time.Second {
		t.Fatalf("expected recall interval 2s, got %v", cfg.Actuator.DefaultRecallInterval)
	}
	if cfg.AutoClearTimeout != time.Hour {
		t.Fatalf("expected auto_clear_timeout 1h, got %v", cfg.AutoClearTimeout)
	}
}

func TestLoadConfigFillsDefaultsAndValidates(t *testing.T) {
	cfg, err := LoadConfig([]byte(`{}`))
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	want := DefaultConfig()
	if cfg != want {
		t.Fatalf("expected defaults to fill empty config, got %+v want %+v", cfg, want)
	}
}

func TestLoadConfigRejectsNegativeValues(t *testing.T) {
	_, err := LoadConfig([]byte(`{"auto_clear_timeout": -1}`))
	if err == nil {
		t.Fatal("expected validation error for negative auto_clear_timeout")
	}
}

func TestMarshalConfigRoundTrip(t *testing.T) {
	cfg := DefaultConfig()
	cfg.AutoClearTimeout = 30 * time.Minute

	data, err := MarshalConfig(cfg)
	if err != nil {
		t.Fatalf("MarshalConfig: %v", err)
	}

	got, err := LoadConfig(data)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if got != cfg {
		t.Fatalf("expected round-trip to preserve config, got %+v want %+v", got, cfg)
	}
}
