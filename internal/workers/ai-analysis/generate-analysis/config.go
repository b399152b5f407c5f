package generateanalysis

import (
	"fmt"
	"time"

	"assessment-pipeline/internal/common/config"
)

const (
	DefaultMaxTokens   = 2500
	DefaultTimeout     = 45 * time.Second
	DefaultTemperature = 0.4
)

type ProviderConfig struct {
	Name       string
	Credential string
	Endpoint   string
	Model      string
	Timeout    time.Duration
}

type Config struct {
	Providers   []ProviderConfig
	MaxTokens   int
	Temperature float64
}

// LoadConfig picks the provider list and request budget out of the service configuration.
func LoadConfig(cfg *config.Config) *Config {
	out := &Config{
		MaxTokens:   cfg.Analysis.MaxTokens,
		Temperature: cfg.Analysis.Temperature,
	}
	for i, p := range cfg.Providers {
		name := p.Name
		if name == "" {
			name = fmt.Sprintf("provider-%d", i+1)
		}
		out.Providers = append(out.Providers, ProviderConfig{
			Name:       name,
			Credential: p.Credential,
			Endpoint:   p.Endpoint,
			Model:      p.Model,
			Timeout:    config.GetDuration(p.Timeout),
		})
	}
	out.applyDefaults()
	return out
}

func (c *Config) applyDefaults() {
	if c.MaxTokens <= 0 {
		c.MaxTokens = DefaultMaxTokens
	}
	if c.Temperature < 0 {
		c.Temperature = DefaultTemperature
	}
	for i := range c.Providers {
		if c.Providers[i].Name == "" {
			c.Providers[i].Name = fmt.Sprintf("provider-%d", i+1)
		}
		if c.Providers[i].Timeout <= 0 {
			c.Providers[i].Timeout = DefaultTimeout
		}
	}
}
