package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"distill/internal/provider"
	"distill/internal/tokenizer"
	"distill/pkg/logger"
)

var _ provider.Provider = (*Provider)(nil)

// Provider implements provider.Provider against /api/chat.
type Provider struct {
	endpoint   string
	model      string
	identity   string
	window     int
	counter    tokenizer.Counter
	httpClient *http.Client
}

// New creates an Ollama provider. Models tiktoken does not know are
// counted with the cl100k_base encoding.
func New(cfg provider.Config) (provider.Provider, error) {
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultEndpoint
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}

	counter, err := provider.ResolveCounter(cfg)
	if err != nil {
		return nil, err
	}

	return &Provider{
		endpoint:   strings.TrimRight(cfg.Endpoint, "/"),
		model:      strings.TrimPrefix(cfg.Model, "ollama:"),
		identity:   provider.FormatIdentity(Name, strings.TrimPrefix(cfg.Model, "ollama:")),
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

// Ask sends a non-streaming chat request with prompt as the only message.
func (p *Provider) Ask(ctx context.Context, prompt string) (string, error) {
	promptTokens := p.TokenCount(prompt)

	body := chatRequest{
		Model:    p.model,
		Messages: []chatMessage{{Role: "user", Content: prompt}},
		Stream:   false,
		Options:  &chatOptions{NumCtx: p.window},
	}

	resp, err := p.doRequest(ctx, "/api/chat", body)
	if err != nil {
		return "", p.classifyError(err, promptTokens)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", p.classifyError(fmt.Errorf("%w: %v", ErrConnectionFailed, err), promptTokens)
	}

	if resp.StatusCode != http.StatusOK {
		logger.Error().Int("status", resp.StatusCode).Str("body", string(data)).Msg("Ollama error response")
		return "", p.handleErrorResponse(resp.StatusCode, data, promptTokens)
	}

	var chatResp chatResponse
	if err := json.Unmarshal(data, &chatResp); err != nil {
		return "", p.classifyError(fmt.Errorf("%w: %v", ErrInvalidResponse, err), promptTokens)
	}

	logger.Debug().
		Str("identity", p.identity).
		Int("prompt_eval", chatResp.PromptEvalCount).
		Int("eval", chatResp.EvalCount).
		Msg("Ollama chat done")

	return chatResp.Message.Content, nil
}

// Error definitions, classified into provider codes by classifyError.
var (
	ErrConnectionFailed = errors.New("failed to connect to Ollama server")
	ErrInvalidResponse  = errors.New("invalid response from Ollama")
	ErrRequestTimeout   = errors.New("request timeout")
)

func (p *Provider) doRequest(ctx context.Context, path string, body any) (*http.Response, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint+path, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: %v", ErrRequestTimeout, err)
		}
		return nil, fmt.Errorf("%w: %v", ErrConnectionFailed, err)
	}
	return resp, nil
}

func (p *Provider) handleErrorResponse(status int, body []byte, promptTokens int) error {
	code := provider.CodeForStatus(status)
	msg := fmt.Sprintf("ollama returned status %d", status)

	var errResp errorResponse
	if err := json.Unmarshal(body, &errResp); err == nil && errResp.Error != "" {
		msg = errResp.Error
		if provider.IsContextWindowExceeded(errors.New(msg)) {
			code = provider.ErrCodeContextWindowExceeded
		}
	}

	se := provider.NewExternalServiceError(code, p.identity, msg, promptTokens, nil)
	se.Status = status
	return se
}

func (p *Provider) classifyError(err error, promptTokens int) error {
	switch {
	case errors.Is(err, ErrRequestTimeout):
		return provider.NewExternalServiceError(provider.ErrCodeTimeout, p.identity, "request timed out", promptTokens, err)
	case errors.Is(err, ErrConnectionFailed):
		return provider.NewExternalServiceError(provider.ErrCodeServiceUnavailable, p.identity,
			"cannot reach Ollama, is `ollama serve` running?", promptTokens, err)
	case errors.Is(err, ErrInvalidResponse):
		return provider.NewExternalServiceError(provider.ErrCodeInvalidResponse, p.identity, "malformed response", promptTokens, err)
	default:
		return provider.NewExternalServiceError(provider.ErrCodeUnknown, p.identity, "request failed", promptTokens, err)
	}
}
