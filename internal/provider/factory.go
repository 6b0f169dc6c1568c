package provider

import (
	"context"
	"fmt"
	"log/slog"

	"personabot/internal/config"
)

// BuildRegistry constructs adapters for every configured provider and
// registers them. Unknown kinds fail loudly at startup rather than at
// dispatch time.
func BuildRegistry(ctx context.Context, cfgs []config.ProviderConfig, logger *slog.Logger) (*Registry, error) {
	registry := NewRegistry(logger)

	for _, pc := range cfgs {
		var (
			invoker Invoker
			err     error
		)

		switch pc.Kind {
		case "openai":
			if pc.BaseURL == "" {
				return nil, fmt.Errorf("provider %q: base_url is required for openai kind", pc.Name)
			}
			invoker = NewOpenAICompat(pc.Name, pc.BaseURL, pc.APIKey, pc.Model, pc.Timeout, pc.Reasoning, logger)
		case "gemini":
			invoker, err = NewGemini(ctx, pc.Name, pc.APIKey, pc.Model, logger)
			if err != nil {
				return nil, fmt.Errorf("provider %q: %w", pc.Name, err)
			}
		default:
			return nil, fmt.Errorf("provider %q: unknown kind %q", pc.Name, pc.Kind)
		}

		registry.Register(invoker, pc.Priority, pc.Enabled)
	}

	return registry, nil
}
