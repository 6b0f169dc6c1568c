package provider

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"google.golang.org/genai"
)

// Gemini invokes Google's Gemini API through the official genai SDK.
type Gemini struct {
	name   string
	client *genai.Client
	model  string
	logger *slog.Logger
}

// NewGemini creates a Gemini adapter.
func NewGemini(ctx context.Context, name, apiKey, model string, logger *slog.Logger) (*Gemini, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}

	return &Gemini{
		name:   name,
		client: client,
		model:  model,
		logger: logger.With("component", "gemini_adapter", "provider", name),
	}, nil
}

// Name implements Invoker.
func (g *Gemini) Name() string { return g.name }

// Invoke implements Invoker. System messages become the system
// instruction; assistant messages map to the model role.
func (g *Gemini) Invoke(ctx context.Context, req Request) Result {
	temperature := float32(req.Temperature)
	maxTokens := int32(req.MaxTokens)

	cfg := &genai.GenerateContentConfig{
		Temperature:     &temperature,
		MaxOutputTokens: maxTokens,
		SafetySettings: []*genai.SafetySetting{
			{Category: genai.HarmCategoryHarassment, Threshold: genai.HarmBlockThresholdBlockNone},
			{Category: genai.HarmCategoryHateSpeech, Threshold: genai.HarmBlockThresholdBlockNone},
			{Category: genai.HarmCategorySexuallyExplicit, Threshold: genai.HarmBlockThresholdBlockNone},
			{Category: genai.HarmCategoryDangerousContent, Threshold: genai.HarmBlockThresholdBlockNone},
		},
	}

	var contents []*genai.Content
	for _, m := range req.Messages {
		switch m.Role {
		case RoleSystem:
			cfg.SystemInstruction = &genai.Content{
				Parts: []*genai.Part{{Text: m.Content}},
			}
		case RoleAssistant:
			contents = append(contents, genai.NewContentFromText(m.Content, genai.RoleModel))
		default:
			contents = append(contents, genai.NewContentFromText(m.Content, genai.RoleUser))
		}
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.model, contents, cfg)
	if err != nil {
		return g.classifyError(ctx, err)
	}

	if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != genai.BlockedReasonUnspecified {
		reason := fmt.Sprintf("%v", resp.PromptFeedback.BlockReason)
		if resp.PromptFeedback.BlockReasonMessage != "" {
			reason = resp.PromptFeedback.BlockReasonMessage
		}
		g.logger.WarnContext(ctx, "Gemini request blocked by safety filter", "reason", reason)
		return Errf(ErrBadResponse, "blocked by safety filter: %s", reason)
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return Errf(ErrBadResponse, "response contains no content")
	}

	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return Errf(ErrBadResponse, "empty completion text")
	}
	return Ok(text)
}

func (g *Gemini) classifyError(ctx context.Context, err error) Result {
	if errors.Is(err, context.DeadlineExceeded) {
		return Errf(ErrTimeout, "request timed out: %v", err)
	}

	var apiErr *genai.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case 429:
			return Errf(ErrRateLimited, "rate limited: %v", err)
		case 500, 503:
			return Errf(ErrUnavailable, "upstream error %d: %v", apiErr.Code, err)
		default:
			return Errf(ErrBadResponse, "API error %d: %v", apiErr.Code, err)
		}
	}

	g.logger.WarnContext(ctx, "Gemini call failed", "error", err)
	return Errf(ErrUnavailable, "request failed: %v", err)
}

var _ Invoker = (*Gemini)(nil)
