package screener

import (
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config controls the tunable half of the screener. The grade floor for
// autonomous dispatch is not here on purpose; it is a compile-time policy.
type Config struct {
	// ConfidenceFallback substitutes for signals arriving without model
	// confidence. Zero keeps missing confidence from contributing any score.
	ConfidenceFallback float64 `yaml:"confidence_fallback"`

	MaxSpreadBps       float64  `yaml:"max_spread_bps"`
	ExcludedTimeframes []string `yaml:"excluded_timeframes"`

	// ManualGrades is the laxer grade set offered to manual-review tooling.
	ManualGrades []string `yaml:"manual_grades"`

	Restricted RestrictedConfig `yaml:"restricted"`

	compiledPatterns []*regexp.Regexp
}

// RestrictedConfig is the injectable restricted-instrument classification.
type RestrictedConfig struct {
	Symbols  []string `yaml:"symbols"`
	Patterns []string `yaml:"patterns"`
}

// LoadConfig reads screener configuration from disk.
func LoadConfig(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open screener config: %w", err)
	}
	defer file.Close()
	return LoadConfigFromReader(file)
}

// LoadConfigFromReader constructs a Config from a reader.
func LoadConfigFromReader(r io.Reader) (*Config, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read screener config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal screener config: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// DefaultConfig returns the reference screener configuration.
func DefaultConfig() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		panic(err)
	}
	return cfg
}

func (c *Config) applyDefaults() {
	if c.MaxSpreadBps <= 0 {
		c.MaxSpreadBps = 20
	}
	if len(c.ExcludedTimeframes) == 0 {
		c.ExcludedTimeframes = []string{"1m"}
	}
	if len(c.ManualGrades) == 0 {
		c.ManualGrades = []string{string(GradeAPlus), string(GradeA), string(GradeB)}
	}
}

// Validate checks value ranges and compiles the restricted patterns.
func (c *Config) Validate() error {
	if c.ConfidenceFallback < 0 || c.ConfidenceFallback > 1 {
		return fmt.Errorf("screener config: confidence_fallback must be within [0,1], got %v", c.ConfidenceFallback)
	}
	if c.MaxSpreadBps <= 0 {
		return fmt.Errorf("screener config: max_spread_bps must be positive, got %v", c.MaxSpreadBps)
	}
	for _, g := range c.ManualGrades {
		switch Grade(strings.TrimSpace(g)) {
		case GradeAPlus, GradeA, GradeB, GradeC:
		default:
			return fmt.Errorf("screener config: unknown grade %q in manual_grades", g)
		}
	}
	c.compiledPatterns = c.compiledPatterns[:0]
	for _, p := range c.Restricted.Patterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return fmt.Errorf("screener config: invalid restricted pattern %q: %w", p, err)
		}
		c.compiledPatterns = append(c.compiledPatterns, re)
	}
	return nil
}

// RestrictedFilter builds the restricted-instrument filter from the
// configured classification.
func (c *Config) RestrictedFilter() RestrictedFilter {
	return NewRestrictedFilter(c.Restricted.Symbols, c.compiledPatterns)
}

// AutonomousChain assembles the filter chain used for unattended dispatch.
func (c *Config) AutonomousChain() Chain {
	excluded := make(map[string]bool, len(c.ExcludedTimeframes))
	for _, tf := range c.ExcludedTimeframes {
		excluded[strings.ToLower(strings.TrimSpace(tf))] = true
	}
	return Chain{
		TradeableFilter{},
		AutonomousGradeFilter(),
		SpreadFilter{MaxSpreadBps: c.MaxSpreadBps},
		TimeframeFilter{Excluded: excluded},
		c.RestrictedFilter(),
	}
}

// ManualChain assembles the laxer chain for manual-review tooling. It keeps
// the same spread and timeframe policy but honours the configured grade set
// and lets restricted symbols through (the caller applies the risk
// adjustment instead).
func (c *Config) ManualChain() Chain {
	allowed := make(map[Grade]bool, len(c.ManualGrades))
	for _, g := range c.ManualGrades {
		allowed[Grade(strings.TrimSpace(g))] = true
	}
	excluded := make(map[string]bool, len(c.ExcludedTimeframes))
	for _, tf := range c.ExcludedTimeframes {
		excluded[strings.ToLower(strings.TrimSpace(tf))] = true
	}
	return Chain{
		TradeableFilter{},
		GradeFilter{Allowed: allowed},
		SpreadFilter{MaxSpreadBps: c.MaxSpreadBps},
		TimeframeFilter{Excluded: excluded},
	}
}
