package config

import (
	"os"
	"path/filepath"
	"testing"

	"signalpilot/pkg/broker"
	"signalpilot/pkg/signal"
)

// Test_sectionConfig_envExpansion verifies that section configs expand
// environment variables correctly when loaded directly via their LoadConfig
// functions.
func Test_sectionConfig_envExpansion(t *testing.T) {
	dir := t.TempDir()

	signalsYAML := []byte(`
default: desk
sources:
  desk:
    type: http
    url: ${DESK_SIGNALS_URL}
    auth_token: ${DESK_SIGNALS_TOKEN}
    timeout: ${DESK_SIGNALS_TIMEOUT}
`)
	sigPath := filepath.Join(dir, "signals.yaml")
	if err := os.WriteFile(sigPath, signalsYAML, 0o600); err != nil {
		t.Fatalf("write signals.yaml: %v", err)
	}

	brokerYAML := []byte(`
default: paper
gateways:
  paper:
    type: sim
  live:
    type: rest
    base_url: ${BROKER_BASE_URL}
    private_key: ${BROKER_PRIVATE_KEY}
    timeout: 9s
`)
	brkPath := filepath.Join(dir, "broker.yaml")
	if err := os.WriteFile(brkPath, brokerYAML, 0o600); err != nil {
		t.Fatalf("write broker.yaml: %v", err)
	}

	t.Setenv("DESK_SIGNALS_URL", "https://signals.example/v1/feed")
	t.Setenv("DESK_SIGNALS_TOKEN", "test-token")
	t.Setenv("DESK_SIGNALS_TIMEOUT", "7s")
	t.Setenv("BROKER_BASE_URL", "https://broker.example")
	t.Setenv("BROKER_PRIVATE_KEY", "0000000000000000000000000000000000000000000000000000000000000001")

	sigCfg, err := signal.LoadConfig(sigPath)
	if err != nil {
		t.Fatalf("signal.LoadConfig: %v", err)
	}
	src := sigCfg.Sources["desk"]
	if src == nil {
		t.Fatalf("signal source 'desk' missing")
	}
	if src.URL != "https://signals.example/v1/feed" {
		t.Fatalf("source URL not expanded, got %q", src.URL)
	}
	if src.AuthToken != "test-token" {
		t.Fatalf("source auth token not expanded, got %q", src.AuthToken)
	}
	if src.Timeout.String() != "7s" {
		t.Fatalf("source timeout not parsed, got %s", src.Timeout)
	}

	brkCfg, err := broker.LoadConfig(brkPath)
	if err != nil {
		t.Fatalf("broker.LoadConfig: %v", err)
	}
	gw := brkCfg.Gateways["live"]
	if gw == nil {
		t.Fatalf("broker gateway 'live' missing")
	}
	if gw.BaseURL != "https://broker.example" {
		t.Fatalf("gateway base url not expanded, got %q", gw.BaseURL)
	}
	if gw.PrivateKey == "" || gw.PrivateKey[0] != '0' {
		t.Fatalf("gateway private key not expanded")
	}
	if gw.Timeout.String() != "9s" {
		t.Fatalf("gateway timeout not parsed, got %s", gw.Timeout)
	}
}

func TestValidate_TTLBounds(t *testing.T) {
	cfg := &Config{}
	cfg.TTL.Short = 0
	cfg.TTL.Medium = 60
	cfg.TTL.Long = 300
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected ttl.short validation error")
	}
}

func TestValidate_EnvValues(t *testing.T) {
	cfg := &Config{TTL: CacheTTL{Short: 10, Medium: 60, Long: 300}}
	cfg.Env = "staging"
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected env validation error")
	}
	cfg.Env = ""
	if err := cfg.Validate(); err != nil {
		t.Fatalf("blank env should default to test, got %v", err)
	}
	if cfg.Env != "test" {
		t.Fatalf("env not defaulted, got %q", cfg.Env)
	}
	if !cfg.IsTestEnv() {
		t.Fatalf("IsTestEnv should report true for test env")
	}
}
