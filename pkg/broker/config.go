package broker

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

// Config captures configuration for one or more broker gateways.
type Config struct {
	Default  string                    `yaml:"default"`
	Gateways map[string]*GatewayConfig `yaml:"gateways"`
}

// GatewayConfig describes how to construct a specific gateway instance.
type GatewayConfig struct {
	Type       string `yaml:"type"`
	BaseURL    string `yaml:"base_url"`
	PrivateKey string `yaml:"private_key"`
	Testnet    bool   `yaml:"testnet"`

	TimeoutRaw string        `yaml:"timeout"`
	Timeout    time.Duration `yaml:"-"`
}

// GatewayBuilder constructs a Gateway from configuration.
type GatewayBuilder func(name string, cfg *GatewayConfig) (Gateway, error)

var (
	gatewayRegistry   = make(map[string]GatewayBuilder)
	gatewayRegistryMu sync.RWMutex
)

// RegisterGateway associates a builder with a gateway type.
func RegisterGateway(typeName string, builder GatewayBuilder) {
	gatewayRegistryMu.Lock()
	defer gatewayRegistryMu.Unlock()
	gatewayRegistry[strings.ToLower(strings.TrimSpace(typeName))] = builder
}

func lookupGatewayBuilder(typeName string) (GatewayBuilder, bool) {
	gatewayRegistryMu.RLock()
	defer gatewayRegistryMu.RUnlock()
	builder, ok := gatewayRegistry[strings.ToLower(strings.TrimSpace(typeName))]
	return builder, ok
}

// LoadConfig reads gateway configuration from disk.
func LoadConfig(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open broker config: %w", err)
	}
	defer file.Close()
	return LoadConfigFromReader(file)
}

// LoadConfigFromReader constructs a Config from an io.Reader.
func LoadConfigFromReader(r io.Reader) (*Config, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read broker config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal broker config: %w", err)
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
	if c.Gateways == nil {
		c.Gateways = make(map[string]*GatewayConfig)
	}
	for name, gw := range c.Gateways {
		if gw == nil {
			gw = &GatewayConfig{}
			c.Gateways[name] = gw
		}
		gw.expandEnv()
		if err := gw.parseDurations(name); err != nil {
			return err
		}
	}
	return nil
}

func (g *GatewayConfig) expandEnv() {
	g.Type = strings.TrimSpace(os.ExpandEnv(g.Type))
	g.BaseURL = strings.TrimSpace(os.ExpandEnv(g.BaseURL))
	g.PrivateKey = strings.TrimSpace(os.ExpandEnv(g.PrivateKey))
	g.TimeoutRaw = strings.TrimSpace(os.ExpandEnv(g.TimeoutRaw))
}

func (g *GatewayConfig) parseDurations(name string) error {
	if g.TimeoutRaw == "" {
		g.Timeout = 0
		return nil
	}
	d, err := time.ParseDuration(g.TimeoutRaw)
	if err != nil {
		return fmt.Errorf("broker gateway %s: invalid timeout %q: %w", name, g.TimeoutRaw, err)
	}
	if d <= 0 {
		return fmt.Errorf("broker gateway %s: timeout must be positive, got %s", name, d)
	}
	g.Timeout = d
	return nil
}

// Validate ensures all gateways have sane configuration.
func (c *Config) Validate() error {
	if len(c.Gateways) == 0 {
		return fmt.Errorf("broker config: gateways cannot be empty")
	}
	if c.Default != "" {
		if _, ok := c.Gateways[c.Default]; !ok {
			return fmt.Errorf("broker config: default gateway %q not defined", c.Default)
		}
	}
	for name, gw := range c.Gateways {
		if strings.TrimSpace(name) == "" {
			return fmt.Errorf("broker config: gateway name cannot be empty")
		}
		if err := gw.validate(name); err != nil {
			return err
		}
	}
	return nil
}

func (g *GatewayConfig) validate(name string) error {
	if g == nil {
		return fmt.Errorf("broker config: gateway %s is nil", name)
	}
	if strings.TrimSpace(g.Type) == "" {
		return fmt.Errorf("broker config: gateway %s must specify type", name)
	}
	if _, ok := lookupGatewayBuilder(g.Type); !ok {
		return fmt.Errorf("broker config: gateway %s has unsupported type %q", name, g.Type)
	}
	if strings.ToLower(g.Type) == "rest" {
		if g.BaseURL == "" {
			return fmt.Errorf("broker config: gateway %s requires base_url", name)
		}
		if g.PrivateKey == "" {
			return fmt.Errorf("broker config: gateway %s requires private_key", name)
		}
	}
	return nil
}

// BuildGateways instantiates gateways according to the configuration.
func (c *Config) BuildGateways() (map[string]Gateway, error) {
	result := make(map[string]Gateway, len(c.Gateways))
	for name, gwCfg := range c.Gateways {
		builder, ok := lookupGatewayBuilder(gwCfg.Type)
		if !ok {
			return nil, fmt.Errorf("broker gateway %s: unsupported type %q", name, gwCfg.Type)
		}
		gw, err := builder(name, gwCfg)
		if err != nil {
			return nil, fmt.Errorf("broker gateway %s: %w", name, err)
		}
		result[name] = gw
	}
	return result, nil
}
