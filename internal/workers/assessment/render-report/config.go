package renderreport

import (
	"time"

	"assessment-pipeline/internal/common/config"
)

const DefaultRenderTimeout = 60 * time.Second

type Config struct {
	ReportsDir    string
	PublicBaseURL string
	Renderer      string
	ChromePath    string
	RenderTimeout time.Duration
}

func LoadConfig(cfg *config.Config) *Config {
	c := &Config{
		ReportsDir:    cfg.Reports.Dir,
		PublicBaseURL: cfg.Reports.PublicBaseURL,
		Renderer:      cfg.Reports.Renderer,
		ChromePath:    cfg.Reports.ChromePath,
		RenderTimeout: config.GetDuration(cfg.Reports.RenderTimeout),
	}
	if c.Renderer == "" {
		c.Renderer = config.RendererAuto
	}
	if c.RenderTimeout <= 0 {
		c.RenderTimeout = DefaultRenderTimeout
	}
	return c
}
