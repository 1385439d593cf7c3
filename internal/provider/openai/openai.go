package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"distill/internal/provider"
	"distill/internal/tokenizer"
	"distill/pkg/logger"
)

var _ provider.Provider = (*Provider)(nil)

// Provider talks to /v1/chat/completions.
type Provider struct {
	apiKey     string
	endpoint   string
	model      string
	identity   string
	window     int
	counter    tokenizer.Counter
	httpClient *http.Client
}

// New creates an OpenAI-compatible provider. The tokenizer for the model is
// loaded here, so tokenization problems surface before any text is sent.
func New(cfg provider.Config) (provider.Provider, error) {
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultEndpoint
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.APIKey == "" {
		cfg.APIKey = os.Getenv(APIKeyEnv)
	}

	counter, err := provider.ResolveCounter(cfg)
	if err != nil {
		return nil, err
	}

	// Accept endpoints with or without the /v1 suffix.
	endpoint := strings.TrimRight(strings.TrimSpace(cfg.Endpoint), "/")
	endpoint = strings.TrimSuffix(endpoint, "/v1")

	return &Provider{
		apiKey:     cfg.APIKey,
		endpoint:   endpoint,
		model:      cfg.Model,
		identity:   provider.FormatIdentity(Name, cfg.Model),
		window:     provider.ResolveContextWindow(cfg),
		counter:    counter,
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}, nil
}

// Register adds the backend to the provider registry.
func Register() {
	provider.Register(Name, New)
}

func (p *Provider) Identity() string { return p.identity }

func (p *Provider) TokenCount(text string) int { return p.counter.Count(text) }

func (p *Provider) MaxTokenCount() int { return p.window }

// Ask sends prompt as a single user message.
func (p *Provider) Ask(ctx context.Context, prompt string) (string, error) {
	promptTokens := p.TokenCount(prompt)
	fail := func(code provider.ErrorCode, msg string, cause error) error {
		return provider.NewExternalServiceError(code, p.identity, msg, promptTokens, cause)
	}

	data, err := json.Marshal(chatRequest{
		Model:    p.model,
		Messages: []chatMessage{{Role: "user", Content: prompt}},
	})
	if err != nil {
		return "", fail(provider.ErrCodeInvalidRequest, "marshal request", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint+"/v1/chat/completions", bytes.NewReader(data))
	if err != nil {
		return "", fail(provider.ErrCodeInvalidRequest, "create request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if p.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+p.apiKey)
	}

	logger.Debug().Str("identity", p.identity).Int("prompt_tokens", promptTokens).Msg("chat completion request")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return "", fail(provider.ErrCodeTimeout, "request timed out", err)
		}
		return "", fail(provider.ErrCodeNetworkError, "request failed", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fail(provider.ErrCodeNetworkError, "read response", err)
	}

	if resp.StatusCode != http.StatusOK {
		logger.Error().Int("status", resp.StatusCode).Str("identity", p.identity).Msg("chat completion error response")
		return "", p.handleErrorResponse(resp.StatusCode, body, promptTokens)
	}

	var chatResp chatResponse
	if err := json.Unmarshal(body, &chatResp); err != nil {
		return "", fail(provider.ErrCodeInvalidResponse, "decode response", err)
	}
	if chatResp.Error != nil {
		return "", fail(classify(chatResp.Error, provider.ErrCodeUnknown), chatResp.Error.Message, nil)
	}
	if len(chatResp.Choices) == 0 {
		return "", fail(provider.ErrCodeInvalidResponse, "response has no choices", nil)
	}

	return chatResp.Choices[0].Message.Content, nil
}

func (p *Provider) handleErrorResponse(status int, body []byte, promptTokens int) error {
	code := provider.CodeForStatus(status)
	msg := fmt.Sprintf("status %d", status)

	var errResp errorResponse
	if err := json.Unmarshal(body, &errResp); err == nil && errResp.Error != nil {
		code = classify(errResp.Error, code)
		msg = errResp.Error.Message
	} else if len(body) > 0 {
		msg = fmt.Sprintf("status %d: %s", status, strings.TrimSpace(string(body)))
	}

	se := provider.NewExternalServiceError(code, p.identity, msg, promptTokens, nil)
	se.Status = status
	return se
}

// classify refines an HTTP-derived code with the API's own error code.
func classify(e *apiError, fallback provider.ErrorCode) provider.ErrorCode {
	code, _ := e.Code.(string)
	switch {
	case code == "context_length_exceeded" || provider.IsContextWindowExceeded(errors.New(e.Message)):
		return provider.ErrCodeContextWindowExceeded
	case code == "insufficient_quota":
		return provider.ErrCodeQuotaExceeded
	case code == "invalid_api_key":
		return provider.ErrCodeAuthFailed
	case code == "model_not_found":
		return provider.ErrCodeModelNotFound
	case code == "rate_limit_exceeded":
		return provider.ErrCodeRateLimited
	}
	return fallback
}
