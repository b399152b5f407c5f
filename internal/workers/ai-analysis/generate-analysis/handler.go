// internal/workers/ai-analysis/generate-analysis/handler.go
package generateanalysis

import (
	"context"
	"errors"
	"strings"
	"time"

	apperrors "assessment-pipeline/internal/common/errors"
	"assessment-pipeline/internal/common/logger"
	"assessment-pipeline/internal/common/metrics"
	"assessment-pipeline/internal/models"
	scoreanswers "assessment-pipeline/internal/workers/assessment/score-answers"
	"assessment-pipeline/pkg/catalog"
)

const (
	TaskType = "generate-analysis"
)

type Handler struct {
	config    *Config
	catalog   *catalog.Catalog
	providers []provider
	logger    logger.Logger
}

type Option func(*handlerOptions)

type handlerOptions struct {
	factory func(ProviderConfig) ChatCompletionClient
}

// WithClientFactory replaces how provider clients are built.
func WithClientFactory(f func(ProviderConfig) ChatCompletionClient) Option {
	return func(o *handlerOptions) { o.factory = f }
}

func NewHandler(config *Config, cat *catalog.Catalog, log logger.Logger, opts ...Option) *Handler {
	o := handlerOptions{factory: defaultFactory}
	for _, opt := range opts {
		opt(&o)
	}
	config.applyDefaults()
	return &Handler{
		config:    config,
		catalog:   cat,
		providers: newProviders(config, o.factory),
		logger: log.WithFields(map[string]interface{}{
			"taskType": TaskType,
		}),
	}
}

// Analyse tries each configured provider in order and returns the first non-empty narrative.
// When none succeeds it returns the templated narrative. It never returns an error.
func (h *Handler) Analyse(ctx context.Context, answers models.AnswerSet) models.AnalysisResult {
	score := scoreanswers.Score(answers, h.catalog.Len())
	system := systemInstruction()
	user := buildPrompt(h.catalog, answers, score)

	for _, p := range h.providers {
		if strings.TrimSpace(p.cfg.Credential) == "" {
			h.logger.Debug("skipping provider without credential", map[string]interface{}{
				"provider": p.cfg.Name,
			})
			continue
		}
		if ctx.Err() != nil {
			h.logger.Warn("analysis context done, using fallback narrative", map[string]interface{}{
				"error": ctx.Err().Error(),
			})
			break
		}

		text, err := h.call(ctx, p, system, user)
		if err != nil {
			continue
		}
		return models.AnalysisResult{
			NarrativeText:          text,
			WasGeneratedByProvider: true,
			ProviderUsed:           p.cfg.Name,
		}
	}

	h.logger.Info("using fallback narrative", map[string]interface{}{
		"percentage":   score.Percentage,
		"maturityTier": string(score.MaturityTier),
	})
	return models.AnalysisResult{
		NarrativeText:          FallbackNarrative(score),
		WasGeneratedByProvider: false,
	}
}

func (h *Handler) call(ctx context.Context, p provider, system, user string) (string, error) {
	callCtx, cancel := context.WithTimeout(ctx, p.cfg.Timeout)
	defer cancel()

	start := time.Now()
	text, err := p.client.Complete(callCtx, ChatRequest{
		Model:       p.cfg.Model,
		System:      system,
		User:        user,
		MaxTokens:   h.config.MaxTokens,
		Temperature: h.config.Temperature,
	})
	latency := time.Since(start)
	metrics.ProviderLatency.WithLabelValues(p.cfg.Name).Observe(latency.Seconds())

	if err != nil {
		status := "failed"
		if errors.Is(err, ErrProviderTimeout) || errors.Is(callCtx.Err(), context.DeadlineExceeded) {
			status = "timeout"
			err = apperrors.NewProviderTimeoutError(p.cfg.Name, err)
		} else {
			err = apperrors.NewProviderError(p.cfg.Name, err)
		}
		metrics.ProviderRequests.WithLabelValues(p.cfg.Name, status).Inc()
		h.logger.Warn("provider call failed", map[string]interface{}{
			"provider":  p.cfg.Name,
			"status":    status,
			"latencyMs": latency.Milliseconds(),
			"error":     err.Error(),
		})
		return "", err
	}

	metrics.ProviderRequests.WithLabelValues(p.cfg.Name, "success").Inc()
	h.logger.Info("provider call succeeded", map[string]interface{}{
		"provider":  p.cfg.Name,
		"latencyMs": latency.Milliseconds(),
		"chars":     len(text),
	})
	return text, nil
}
