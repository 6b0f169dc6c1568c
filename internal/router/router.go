// Package router dispatches a chat request across the provider
// fallback chain and reports a classified outcome.
package router

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"personabot/internal/provider"
)

// Status tags the outcome of a dispatch run.
type Status int

const (
	// StatusSuccess means some provider produced usable text.
	StatusSuccess Status = iota
	// StatusNoProviders means the candidate list was empty.
	StatusNoProviders
	// StatusExhausted means every candidate failed all its attempts.
	StatusExhausted
)

// Outcome is what a dispatch run produced. Infrastructure failure is a
// value here, never an error: callers branch on Status.
type Outcome struct {
	Status   Status
	Text     string
	Provider string
}

// Router walks the scored candidate list, retrying each provider a
// bounded number of times before advancing to the next.
type Router struct {
	registry   *provider.Registry
	attempts   int
	retryDelay time.Duration
	logger     *slog.Logger
}

// New creates a dispatch router over the given registry.
func New(registry *provider.Registry, attempts int, retryDelay time.Duration, logger *slog.Logger) *Router {
	if attempts < 1 {
		attempts = 1
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Router{
		registry:   registry,
		attempts:   attempts,
		retryDelay: retryDelay,
		logger:     logger.With("component", "dispatch_router"),
	}
}

// Dispatch tries candidates in scored order until one succeeds. The
// candidate order is snapshotted once at the start; health updates made
// during the run affect future dispatches, not this one.
func (r *Router) Dispatch(ctx context.Context, req provider.Request) Outcome {
	r.registry.SweepAmnesty()

	candidates := r.registry.Candidates()
	if len(candidates) == 0 {
		r.logger.WarnContext(ctx, "No providers available for dispatch")
		return Outcome{Status: StatusNoProviders}
	}

	var attemptErrs []string
	for _, cand := range candidates {
		result, ok := r.tryProvider(ctx, cand, req)
		if ok {
			r.registry.MarkSuccess(cand.Name)
			return Outcome{Status: StatusSuccess, Text: result.Text, Provider: cand.Name}
		}
		r.registry.MarkFailure(cand.Name)
		attemptErrs = append(attemptErrs, fmt.Sprintf("%s: %s (%s)", cand.Name, result.Kind, result.Detail))

		if ctx.Err() != nil {
			break
		}
	}

	r.logger.ErrorContext(ctx, "All providers exhausted",
		"candidates", len(candidates), "errors", strings.Join(attemptErrs, "; "))
	return Outcome{Status: StatusExhausted}
}

// tryProvider runs up to the configured number of attempts against one
// provider, waiting between attempts without blocking past ctx.
func (r *Router) tryProvider(ctx context.Context, cand provider.Candidate, req provider.Request) (provider.Result, bool) {
	var last provider.Result
	for attempt := 1; attempt <= r.attempts; attempt++ {
		last = r.invoke(ctx, cand, req)
		if last.OK() {
			if attempt > 1 {
				r.logger.InfoContext(ctx, "Provider recovered on retry",
					"provider", cand.Name, "attempt", attempt)
			}
			return last, true
		}

		r.logger.WarnContext(ctx, "Provider attempt failed",
			"provider", cand.Name, "attempt", attempt,
			"kind", last.Kind.String(), "detail", last.Detail)

		if attempt < r.attempts {
			if !sleepCtx(ctx, r.retryDelay) {
				return last, false
			}
		}
	}
	return last, false
}

// invoke calls the adapter with panic recovery, so one misbehaving
// backend cannot take down the handler goroutine.
func (r *Router) invoke(ctx context.Context, cand provider.Candidate, req provider.Request) (result provider.Result) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.ErrorContext(ctx, "Provider panicked",
				"provider", cand.Name, "panic", rec)
			result = provider.Errf(provider.ErrInternal, "panic: %v", rec)
		}
	}()
	return cand.Invoker.Invoke(ctx, req)
}

// sleepCtx waits for d or until ctx is done, reporting whether the full
// delay elapsed.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
