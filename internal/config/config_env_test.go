package config

import (
	"os"
	"path/filepath"
	"testing"

	"signalpilot/pkg/confkit"
	"signalpilot/pkg/scheduler"
	"signalpilot/pkg/screener"
	"signalpilot/pkg/signal"
)

// Test_hydrateSections_withSectionFiles verifies per-section hydration
// without going through go-zero conf.Load for the main file.
func Test_hydrateSections_withSectionFiles(t *testing.T) {
	dir := t.TempDir()

	screenerYAML := []byte(`
confidence_fallback: 0.5
max_spread_bps: 25
excluded_timeframes: ["1m"]
`)
	if err := os.WriteFile(filepath.Join(dir, "screener.yaml"), screenerYAML, 0o600); err != nil {
		t.Fatalf("write screener.yaml: %v", err)
	}

	schedulerYAML := []byte(`
max_per_cycle: 2
mode: normal
cycle_interval: ${PILOT_CYCLE_INTERVAL}
cooldown_window: 2h
`)
	if err := os.WriteFile(filepath.Join(dir, "scheduler.yaml"), schedulerYAML, 0o600); err != nil {
		t.Fatalf("write scheduler.yaml: %v", err)
	}

	signalsYAML := []byte(`
default: fixture
sources:
  fixture:
    type: static
`)
	if err := os.WriteFile(filepath.Join(dir, "signals.yaml"), signalsYAML, 0o600); err != nil {
		t.Fatalf("write signals.yaml: %v", err)
	}

	t.Setenv("PILOT_CYCLE_INTERVAL", "90s")

	cfg := &Config{
		TTL:       CacheTTL{Short: 10, Medium: 60, Long: 300},
		Signals:   confkit.Section[signal.Config]{File: "signals.yaml"},
		Screener:  confkit.Section[screener.Config]{File: "screener.yaml"},
		Scheduler: confkit.Section[scheduler.Config]{File: "scheduler.yaml"},
	}
	cfg.baseDir = dir
	if err := cfg.hydrateSections(); err != nil {
		t.Fatalf("hydrateSections: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}

	if cfg.Screener.Value == nil {
		t.Fatalf("screener section not hydrated")
	}
	if got := cfg.Screener.Value.MaxSpreadBps; got != 25 {
		t.Fatalf("screener max_spread_bps got %v", got)
	}

	if cfg.Scheduler.Value == nil {
		t.Fatalf("scheduler section not hydrated")
	}
	if got := cfg.Scheduler.Value.CycleInterval.String(); got != "1m30s" {
		t.Fatalf("scheduler cycle interval not expanded, got %s", got)
	}

	if cfg.Signals.Value == nil {
		t.Fatalf("signals section not hydrated")
	}
	if cfg.Signals.Value.Default != "fixture" {
		t.Fatalf("signals default got %q", cfg.Signals.Value.Default)
	}
}
