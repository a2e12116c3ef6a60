package billingo

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Environment variables read by ApplyEnv.
const (
	EnvHost       = "BILLINGO_HOST"
	EnvPublicKey  = "BILLINGO_PUBLIC_KEY"
	EnvPrivateKey = "BILLINGO_PRIVATE_KEY"
	EnvToken      = "BILLINGO_TOKEN"
)

type fileConfig struct {
	Host         string            `yaml:"host"`
	Version      string            `yaml:"version"`
	Leeway       *int              `yaml:"leeway"`
	PublicKey    string            `yaml:"public_key"`
	PrivateKey   string            `yaml:"private_key"`
	Token        string            `yaml:"token"`
	Headers      map[string]string `yaml:"headers"`
	Timeout      *int              `yaml:"timeout"`
	ExchangePath string            `yaml:"exchange_path"`
	Transport    string            `yaml:"transport"`
	Metrics      *struct {
		Enabled    bool `yaml:"enabled"`
		Histograms bool `yaml:"histograms"`
	} `yaml:"metrics"`
}

// ParseConfig decodes a YAML document on top of DefaultConfig. leeway and
// timeout are given in seconds. The result is not validated.
func ParseConfig(data []byte) (Config, error) {
	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return Config{}, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	cfg := DefaultConfig()
	if fc.Host != "" {
		cfg.Host = fc.Host
	}
	if fc.Version != "" {
		cfg.Version = fc.Version
	}
	if fc.Leeway != nil {
		cfg.Leeway = time.Duration(*fc.Leeway) * time.Second
	}
	if fc.Timeout != nil {
		cfg.Timeout = time.Duration(*fc.Timeout) * time.Second
	}
	if fc.ExchangePath != "" {
		cfg.ExchangePath = fc.ExchangePath
	}
	if fc.Transport != "" {
		cfg.Transport = TransportKind(fc.Transport)
	}
	if fc.Metrics != nil {
		cfg.Metrics.Enabled = fc.Metrics.Enabled
		cfg.Metrics.EnableLatencyHistograms = fc.Metrics.Histograms
	}
	cfg.PublicKey = fc.PublicKey
	cfg.PrivateKey = fc.PrivateKey
	cfg.Token = fc.Token
	cfg.Headers = fc.Headers

	return cfg, nil
}

// LoadConfigFile reads and parses the YAML file at path.
func LoadConfigFile(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	return ParseConfig(data)
}

// ApplyEnv overlays non-empty BILLINGO_* variables onto cfg. lookup is normally
// os.LookupEnv.
func ApplyEnv(cfg Config, lookup func(string) (string, bool)) Config {
	if lookup == nil {
		return cfg
	}
	set := func(dst *string, key string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	set(&cfg.Host, EnvHost)
	set(&cfg.PublicKey, EnvPublicKey)
	set(&cfg.PrivateKey, EnvPrivateKey)
	set(&cfg.Token, EnvToken)
	return cfg
}
