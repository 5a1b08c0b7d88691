package scheduler

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"signalpilot/pkg/guard"
	"signalpilot/pkg/screener"
)

// Config controls runtime behaviour for the execution scheduler.
type Config struct {
	// MaxPerCycle caps dispatches per cycle regardless of how many signals
	// are eligible. This is the primary defense against a correlated burst
	// of correct-looking signals walking through the risk limits.
	MaxPerCycle int `yaml:"max_per_cycle"`

	Mode               string  `yaml:"mode"` // normal | scalp
	DefaultNotionalUSD float64 `yaml:"default_notional_usd"`
	DefaultLeverage    int     `yaml:"default_leverage"`

	Guard guard.Limits `yaml:"guard"`

	JournalDir string `yaml:"journal_dir"`

	CycleInterval   time.Duration `yaml:"-"`
	CooldownWindow  time.Duration `yaml:"-"`
	DispatchTimeout time.Duration `yaml:"-"`

	// OverrunMultiple sets the watchdog: a cycle running longer than this
	// many intervals is a fatal operational error, not something to retry
	// silently forever.
	OverrunMultiple int `yaml:"overrun_multiple"`

	CycleIntervalRaw   string `yaml:"cycle_interval"`
	CooldownWindowRaw  string `yaml:"cooldown_window"`
	DispatchTimeoutRaw string `yaml:"dispatch_timeout"`
}

// LoadConfig reads scheduler configuration from disk.
func LoadConfig(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open scheduler config: %w", err)
	}
	defer file.Close()
	return LoadConfigFromReader(file)
}

// LoadConfigFromReader constructs a Config from a reader.
func LoadConfigFromReader(r io.Reader) (*Config, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read scheduler config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal scheduler config: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.parseDurations(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// DefaultConfig returns the reference scheduler configuration.
func DefaultConfig() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	if err := cfg.parseDurations(); err != nil {
		panic(err)
	}
	if err := cfg.Validate(); err != nil {
		panic(err)
	}
	return cfg
}

func (c *Config) applyDefaults() {
	if c.MaxPerCycle <= 0 {
		c.MaxPerCycle = 2
	}
	if strings.TrimSpace(c.Mode) == "" {
		c.Mode = string(screener.ModeNormal)
	}
	if c.DefaultNotionalUSD <= 0 {
		c.DefaultNotionalUSD = 100
	}
	if c.DefaultLeverage <= 0 {
		c.DefaultLeverage = 1
	}
	if c.Guard.MaxDailyLossPct <= 0 {
		c.Guard.MaxDailyLossPct = 5
	}
	if c.Guard.MaxOpenPositions <= 0 {
		c.Guard.MaxOpenPositions = 3
	}
	if strings.TrimSpace(c.CycleIntervalRaw) == "" {
		c.CycleIntervalRaw = "1m"
	}
	if strings.TrimSpace(c.CooldownWindowRaw) == "" {
		c.CooldownWindowRaw = "2h"
	}
	if strings.TrimSpace(c.DispatchTimeoutRaw) == "" {
		c.DispatchTimeoutRaw = "10s"
	}
	if c.OverrunMultiple <= 0 {
		c.OverrunMultiple = 4
	}
}

func (c *Config) parseDurations() error {
	c.CycleIntervalRaw = strings.TrimSpace(os.ExpandEnv(c.CycleIntervalRaw))
	c.CooldownWindowRaw = strings.TrimSpace(os.ExpandEnv(c.CooldownWindowRaw))
	c.DispatchTimeoutRaw = strings.TrimSpace(os.ExpandEnv(c.DispatchTimeoutRaw))

	interval, err := time.ParseDuration(c.CycleIntervalRaw)
	if err != nil {
		return fmt.Errorf("scheduler config: invalid cycle_interval %q: %w", c.CycleIntervalRaw, err)
	}
	if interval <= 0 {
		return fmt.Errorf("scheduler config: cycle_interval must be positive, got %s", interval)
	}
	window, err := time.ParseDuration(c.CooldownWindowRaw)
	if err != nil {
		return fmt.Errorf("scheduler config: invalid cooldown_window %q: %w", c.CooldownWindowRaw, err)
	}
	if window <= 0 {
		return fmt.Errorf("scheduler config: cooldown_window must be positive, got %s", window)
	}
	timeout, err := time.ParseDuration(c.DispatchTimeoutRaw)
	if err != nil {
		return fmt.Errorf("scheduler config: invalid dispatch_timeout %q: %w", c.DispatchTimeoutRaw, err)
	}
	if timeout <= 0 {
		return fmt.Errorf("scheduler config: dispatch_timeout must be positive, got %s", timeout)
	}
	c.CycleInterval = interval
	c.CooldownWindow = window
	c.DispatchTimeout = timeout
	return nil
}

// Validate ensures configuration sanity.
func (c *Config) Validate() error {
	if c.MaxPerCycle <= 0 {
		return errors.New("scheduler config: max_per_cycle must be positive")
	}
	switch screener.Mode(c.Mode) {
	case screener.ModeNormal, screener.ModeScalp:
	default:
		return fmt.Errorf("scheduler config: mode must be normal or scalp, got %q", c.Mode)
	}
	if c.DefaultNotionalUSD <= 0 {
		return errors.New("scheduler config: default_notional_usd must be positive")
	}
	if c.DefaultLeverage < 1 {
		return errors.New("scheduler config: default_leverage must be at least 1")
	}
	if err := c.Guard.Validate(); err != nil {
		return err
	}
	if c.OverrunMultiple < 2 {
		return errors.New("scheduler config: overrun_multiple must be at least 2")
	}
	return nil
}
