package downloadtoken

import (
	"time"

	"assessment-pipeline/internal/common/config"
)

const (
	DefaultTTL = 7 * 24 * time.Hour

	// RecordGrace keeps a record in Redis past its expiry so resolution reports Expired
	// rather than NotFound.
	RecordGrace = 24 * time.Hour

	keyPrefix = "assessment:download:"
)

type Config struct {
	TTL           time.Duration
	PublicBaseURL string
}

func LoadConfig(cfg *config.Config) *Config {
	c := &Config{
		TTL:           cfg.Tokens.TTL(),
		PublicBaseURL: cfg.Server.PublicBaseURL,
	}
	if c.TTL <= 0 {
		c.TTL = DefaultTTL
	}
	return c
}
