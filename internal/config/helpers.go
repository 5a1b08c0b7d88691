package config

import (
	"fmt"
	"path/filepath"

	"signalpilot/pkg/broker"
	"signalpilot/pkg/scheduler"
	"signalpilot/pkg/screener"
	"signalpilot/pkg/signal"
)

// MustLoadSignals loads etc/signals.yaml from the project root and panics on
// error. It isolates the signal-source section so tests that only need
// sources do not require the full main config.
func MustLoadSignals() *signal.Config {
	return mustLoadSection("signals.yaml", signal.LoadConfig)
}

// MustLoadScreener loads etc/screener.yaml from the project root and panics on error.
func MustLoadScreener() *screener.Config {
	return mustLoadSection("screener.yaml", screener.LoadConfig)
}

// MustLoadBroker loads etc/broker.yaml from the project root and panics on error.
func MustLoadBroker() *broker.Config {
	return mustLoadSection("broker.yaml", broker.LoadConfig)
}

// MustLoadScheduler loads etc/scheduler.yaml from the project root and panics on error.
func MustLoadScheduler() *scheduler.Config {
	return mustLoadSection("scheduler.yaml", scheduler.LoadConfig)
}

// MustBuildSources loads the signal-source config from the default path and
// builds source instances; returns the map and default source name.
func MustBuildSources() (map[string]signal.Source, string) {
	cfg := MustLoadSignals()
	sources, err := cfg.BuildSources()
	if err != nil {
		panic(err)
	}
	return sources, cfg.Default
}

// MustBuildGateways loads the broker config from the default path and builds
// gateway instances; returns the map and default gateway name.
func MustBuildGateways() (map[string]broker.Gateway, string) {
	cfg := MustLoadBroker()
	gateways, err := cfg.BuildGateways()
	if err != nil {
		panic(err)
	}
	return gateways, cfg.Default
}

func mustLoadSection[T any](name string, load func(string) (*T, error)) *T {
	root := MustProjectRoot()
	path := filepath.Join(root, "etc", name)
	cfg, err := load(path)
	if err != nil {
		panic(fmt.Errorf("load %s: %w", path, err))
	}
	return cfg
}
