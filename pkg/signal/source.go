package signal

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

// Source supplies the current candidate signal snapshot. Snapshots are
// best-effort: the same signal id may appear across many cycles and ordering
// is unspecified. Idempotency is owned entirely by the cooldown ledger.
type Source interface {
	Snapshot(ctx context.Context) ([]Signal, error)
}

// Config captures configuration for one or more signal sources.
type Config struct {
	Default string                     `yaml:"default"`
	Sources map[string]*ProviderConfig `yaml:"sources"`
}

// ProviderConfig describes how to construct a specific signal source instance.
type ProviderConfig struct {
	Type      string `yaml:"type"`
	URL       string `yaml:"url"`
	AuthToken string `yaml:"auth_token"`
	Path      string `yaml:"path"` // file-backed sources

	TimeoutRaw string        `yaml:"timeout"`
	Timeout    time.Duration `yaml:"-"`
}

// SourceBuilder constructs a Source from configuration.
type SourceBuilder func(name string, cfg *ProviderConfig) (Source, error)

var (
	sourceRegistry   = make(map[string]SourceBuilder)
	sourceRegistryMu sync.RWMutex
)

// RegisterSource associates a builder with a signal source type.
func RegisterSource(typeName string, builder SourceBuilder) {
	sourceRegistryMu.Lock()
	defer sourceRegistryMu.Unlock()
	sourceRegistry[strings.ToLower(strings.TrimSpace(typeName))] = builder
}

func lookupSourceBuilder(typeName string) (SourceBuilder, bool) {
	sourceRegistryMu.RLock()
	defer sourceRegistryMu.RUnlock()
	builder, ok := sourceRegistry[strings.ToLower(strings.TrimSpace(typeName))]
	return builder, ok
}

// LoadConfig reads source configuration from disk.
func LoadConfig(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open signal config: %w", err)
	}
	defer file.Close()
	return LoadConfigFromReader(file)
}

// LoadConfigFromReader constructs a Config from an io.Reader.
func LoadConfigFromReader(r io.Reader) (*Config, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read signal config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal signal config: %w", err)
	}
	if err := cfg.normalise(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) normalise() error {
	if c.Sources == nil {
		c.Sources = make(map[string]*ProviderConfig)
	}
	for name, src := range c.Sources {
		if src == nil {
			src = &ProviderConfig{}
			c.Sources[name] = src
		}
		src.expandEnv()
		if err := src.parseDurations(name); err != nil {
			return err
		}
	}
	return nil
}

func (p *ProviderConfig) expandEnv() {
	p.Type = strings.TrimSpace(os.ExpandEnv(p.Type))
	p.URL = strings.TrimSpace(os.ExpandEnv(p.URL))
	p.AuthToken = strings.TrimSpace(os.ExpandEnv(p.AuthToken))
	p.Path = strings.TrimSpace(os.ExpandEnv(p.Path))
	p.TimeoutRaw = strings.TrimSpace(os.ExpandEnv(p.TimeoutRaw))
}

func (p *ProviderConfig) parseDurations(name string) error {
	if p.TimeoutRaw == "" {
		p.Timeout = 0
		return nil
	}
	d, err := time.ParseDuration(p.TimeoutRaw)
	if err != nil {
		return fmt.Errorf("signal source %s: invalid timeout %q: %w", name, p.TimeoutRaw, err)
	}
	if d <= 0 {
		return fmt.Errorf("signal source %s: timeout must be positive, got %s", name, d)
	}
	p.Timeout = d
	return nil
}

// Validate ensures all sources have sane configuration.
func (c *Config) Validate() error {
	if len(c.Sources) == 0 {
		return fmt.Errorf("signal config: sources cannot be empty")
	}
	if c.Default != "" {
		if _, ok := c.Sources[c.Default]; !ok {
			return fmt.Errorf("signal config: default source %q not defined", c.Default)
		}
	}
	for name, src := range c.Sources {
		if strings.TrimSpace(name) == "" {
			return fmt.Errorf("signal config: source name cannot be empty")
		}
		if src == nil {
			return fmt.Errorf("signal config: source %s is nil", name)
		}
		if strings.TrimSpace(src.Type) == "" {
			return fmt.Errorf("signal config: source %s must specify type", name)
		}
		if _, ok := lookupSourceBuilder(src.Type); !ok {
			return fmt.Errorf("signal config: source %s has unsupported type %q", name, src.Type)
		}
	}
	return nil
}

// BuildSources instantiates signal sources according to the configuration.
func (c *Config) BuildSources() (map[string]Source, error) {
	result := make(map[string]Source, len(c.Sources))
	for name, srcCfg := range c.Sources {
		builder, ok := lookupSourceBuilder(srcCfg.Type)
		if !ok {
			return nil, fmt.Errorf("signal source %s: unsupported type %q", name, srcCfg.Type)
		}
		src, err := builder(name, srcCfg)
		if err != nil {
			return nil, fmt.Errorf("signal source %s: %w", name, err)
		}
		result[name] = src
	}
	return result, nil
}

// Static is a fixed in-memory source, used by tests and paper runs.
type Static struct {
	mu      sync.RWMutex
	signals []Signal
}

// NewStatic constructs a Static source seeded with the given signals.
func NewStatic(signals ...Signal) *Static {
	s := &Static{}
	s.Set(signals)
	return s
}

// Set replaces the snapshot content.
func (s *Static) Set(signals []Signal) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.signals = append([]Signal(nil), signals...)
}

// Snapshot returns a copy of the current signals.
func (s *Static) Snapshot(ctx context.Context) ([]Signal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Signal(nil), s.signals...), nil
}

func init() {
	RegisterSource("static", func(name string, cfg *ProviderConfig) (Source, error) {
		return NewStatic(), nil
	})
}
