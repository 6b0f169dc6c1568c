package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// OpenAICompat invokes any OpenAI-compatible chat completions endpoint
// (OpenRouter, NVIDIA, ZenMux and similar gateways).
type OpenAICompat struct {
	name       string
	baseURL    string
	apiKey     string
	model      string
	topP       float64
	reasoning  bool
	httpClient *http.Client
	logger     *slog.Logger
}

// NewOpenAICompat creates an adapter for an OpenAI-compatible backend.
func NewOpenAICompat(name, baseURL, apiKey, model string, timeout time.Duration, reasoning bool, logger *slog.Logger) *OpenAICompat {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &OpenAICompat{
		name:       name,
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     strings.TrimSpace(apiKey),
		model:      model,
		topP:       0.7,
		reasoning:  reasoning,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger.With("component", "openai_adapter", "provider", name),
	}
}

// Name implements Invoker.
func (c *OpenAICompat) Name() string { return c.name }

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	TopP        float64       `json:"top_p"`
	MaxTokens   int           `json:"max_tokens"`
	Stream      bool          `json:"stream"`

	// Reasoning toggle understood by DeepSeek-style gateways; other
	// backends ignore unknown fields.
	ChatTemplateKwargs map[string]any `json:"chat_template_kwargs,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Invoke implements Invoker. Expected failures are translated into
// classified results; Invoke never panics.
func (c *OpenAICompat) Invoke(ctx context.Context, req Request) Result {
	body := chatRequest{
		Model:       c.model,
		Messages:    make([]chatMessage, 0, len(req.Messages)),
		Temperature: req.Temperature,
		TopP:        c.topP,
		MaxTokens:   req.MaxTokens,
	}
	for _, m := range req.Messages {
		body.Messages = append(body.Messages, chatMessage{Role: m.Role, Content: m.Content})
	}
	if c.reasoning && req.Reasoning {
		body.ChatTemplateKwargs = map[string]any{"thinking": true}
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return Errf(ErrInternal, "failed to marshal request: %v", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return Errf(ErrInternal, "failed to create request: %v", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || isTimeout(err) {
			return Errf(ErrTimeout, "request timed out: %v", err)
		}
		return Errf(ErrUnavailable, "request failed: %v", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return Errf(ErrBadResponse, "failed to read response body: %v", err)
	}

	if resp.StatusCode != http.StatusOK {
		kind := classifyStatus(resp.StatusCode)
		c.logger.WarnContext(ctx, "Non-200 response",
			"status", resp.StatusCode, "body_preview", preview(respBody))
		return Errf(kind, "status %d: %s", resp.StatusCode, preview(respBody))
	}

	var parsed chatResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return Errf(ErrBadResponse, "failed to decode response: %v", err)
	}
	if parsed.Error != nil {
		return Errf(ErrUnavailable, "upstream error: %s", parsed.Error.Message)
	}
	if len(parsed.Choices) == 0 {
		return Errf(ErrBadResponse, "no choices in response")
	}

	text := strings.TrimSpace(parsed.Choices[0].Message.Content)
	if text == "" {
		return Errf(ErrBadResponse, "empty completion text")
	}
	return Ok(text)
}

func classifyStatus(status int) ErrKind {
	switch {
	case status == http.StatusTooManyRequests:
		return ErrRateLimited
	case status >= 500:
		return ErrUnavailable
	default:
		return ErrBadResponse
	}
}

func isTimeout(err error) bool {
	var t interface{ Timeout() bool }
	return errors.As(err, &t) && t.Timeout()
}

func preview(body []byte) string {
	const maxLen = 200
	s := string(body)
	if len(s) > maxLen {
		return s[:maxLen] + "..."
	}
	return s
}

var _ Invoker = (*OpenAICompat)(nil)
