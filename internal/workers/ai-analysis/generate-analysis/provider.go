package generateanalysis

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	apperrors "assessment-pipeline/internal/common/errors"
	commonhttp "assessment-pipeline/internal/common/http"
)

var (
	ErrProviderFailed  = apperrors.New(apperrors.ErrCodeProviderFailed, "Provider request failed")
	ErrProviderTimeout = apperrors.New(apperrors.ErrCodeProviderTimeout, "Provider request timed out")
)

// ChatCompletionClient is the capability every provider adapter offers.
type ChatCompletionClient interface {
	Complete(ctx context.Context, req ChatRequest) (string, error)
}

type httpStatusError struct {
	StatusCode int
	Body       string
}

func (e *httpStatusError) Error() string {
	body := strings.TrimSpace(e.Body)
	if len(body) > 200 {
		body = body[:200] + "..."
	}
	return fmt.Sprintf("http %d: %s", e.StatusCode, body)
}

type emptyContentError struct {
	FinishReason string
}

func (e *emptyContentError) Error() string {
	return fmt.Sprintf("empty content (finish_reason=%q)", e.FinishReason)
}

// openAICompatibleClient speaks the chat completions wire format with bearer authentication.
type openAICompatibleClient struct {
	endpoint   string
	credential string
	httpClient *commonhttp.Client
}

// NewChatCompletionClient returns an adapter for one provider endpoint.
func NewChatCompletionClient(endpoint, credential string, httpClient *commonhttp.Client) ChatCompletionClient {
	if httpClient == nil {
		httpClient = commonhttp.NewClient(0)
	}
	return &openAICompatibleClient{
		endpoint:   strings.TrimSpace(endpoint),
		credential: strings.TrimSpace(credential),
		httpClient: httpClient,
	}
}

func (c *openAICompatibleClient) Complete(ctx context.Context, req ChatRequest) (string, error) {
	payload := chatCompletionRequest{
		Model: req.Model,
		Messages: []chatMessage{
			{Role: "system", Content: req.System},
			{Role: "user", Content: req.User},
		},
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
	}

	resp, err := c.httpClient.PostJSON(ctx, c.endpoint, map[string]string{
		"Authorization": "Bearer " + c.credential,
	}, payload)
	if err != nil {
		if ctx.Err() != nil {
			return "", fmt.Errorf("%w: %v", ErrProviderTimeout, err)
		}
		return "", fmt.Errorf("%w: %v", ErrProviderFailed, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("%w: %w", ErrProviderFailed, &httpStatusError{StatusCode: resp.StatusCode, Body: string(resp.Body)})
	}
	if len(resp.Body) == 0 {
		return "", fmt.Errorf("%w: empty response body", ErrProviderFailed)
	}

	var completion chatCompletionResponse
	if err := json.Unmarshal(resp.Body, &completion); err != nil {
		return "", fmt.Errorf("%w: decode response: %v", ErrProviderFailed, err)
	}
	if completion.Error != nil && completion.Error.Message != "" {
		return "", fmt.Errorf("%w: provider error: %s", ErrProviderFailed, completion.Error.Message)
	}
	if len(completion.Choices) == 0 {
		return "", fmt.Errorf("%w: empty choices", ErrProviderFailed)
	}
	content := strings.TrimSpace(completion.Choices[0].Message.Content)
	if content == "" {
		return "", fmt.Errorf("%w: %w", ErrProviderFailed, &emptyContentError{FinishReason: completion.Choices[0].FinishReason})
	}
	return content, nil
}

// provider pairs a configured entry with its client.
type provider struct {
	cfg    ProviderConfig
	client ChatCompletionClient
}

func newProviders(cfg *Config, factory func(ProviderConfig) ChatCompletionClient) []provider {
	out := make([]provider, 0, len(cfg.Providers))
	for _, p := range cfg.Providers {
		out = append(out, provider{cfg: p, client: factory(p)})
	}
	return out
}

func defaultFactory(p ProviderConfig) ChatCompletionClient {
	// the per-call context carries the deadline; the client timeout is a backstop
	return NewChatCompletionClient(p.Endpoint, p.Credential, commonhttp.NewClient(p.Timeout+5*time.Second))
}
