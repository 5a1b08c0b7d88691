package svc_test

import (
	"testing"

	"signalpilot/internal/config"
	"signalpilot/internal/svc"
	"signalpilot/pkg/broker"
	brokersim "signalpilot/pkg/broker/sim"
	"signalpilot/pkg/confkit"
	"signalpilot/pkg/signal"
)

func baseConfig(env string) config.Config {
	cfg := config.Config{
		Env: env,
		TTL: config.CacheTTL{Short: 10, Medium: 60, Long: 300},
	}
	cfg.Signals = confkit.Section[signal.Config]{Value: &signal.Config{
		Default: "fixture",
		Sources: map[string]*signal.ProviderConfig{
			"fixture": {Type: "static"},
		},
	}}
	cfg.Broker = confkit.Section[broker.Config]{Value: &broker.Config{
		Default: "paper",
		Gateways: map[string]*broker.GatewayConfig{
			"paper": {Type: "sim"},
		},
	}}
	return cfg
}

// TestTestEnvUsesSimGateway verifies that the service context never builds a
// live gateway when Env is "test".
func TestTestEnvUsesSimGateway(t *testing.T) {
	sc := svc.NewServiceContext(baseConfig("test"))
	if _, ok := sc.DefaultGateway.(*brokersim.Gateway); !ok {
		t.Fatalf("test env should wire the sim gateway, got %T", sc.DefaultGateway)
	}
	if sc.Scheduler == nil {
		t.Fatalf("scheduler not built")
	}
	if sc.DefaultSource == nil {
		t.Fatalf("default signal source not wired")
	}
}

// TestDevEnvBuildsConfiguredGateways verifies that non-test environments use
// the gateways named in the broker config.
func TestDevEnvBuildsConfiguredGateways(t *testing.T) {
	sc := svc.NewServiceContext(baseConfig("dev"))
	if len(sc.Gateways) != 1 {
		t.Fatalf("expected one configured gateway, got %d", len(sc.Gateways))
	}
	if sc.DefaultGateway == nil {
		t.Fatalf("default gateway not wired")
	}
}

// TestIsTestEnv verifies the environment detection logic.
func TestIsTestEnv(t *testing.T) {
	tests := []struct {
		env      string
		expected bool
	}{
		{"test", true},
		{"", true}, // Empty defaults to test
		{"dev", false},
		{"prod", false},
	}

	for _, tt := range tests {
		t.Run("env="+tt.env, func(t *testing.T) {
			cfg := config.Config{
				Env: tt.env,
				TTL: config.CacheTTL{Short: 10, Medium: 60, Long: 300},
			}
			if err := cfg.Validate(); err != nil {
				t.Fatalf("Validate failed: %v", err)
			}
			if got := cfg.IsTestEnv(); got != tt.expected {
				t.Errorf("IsTestEnv() for env=%q: expected %v, got %v (normalized to %q)",
					tt.env, tt.expected, got, cfg.Env)
			}
		})
	}
}
