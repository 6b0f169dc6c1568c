// Package provider defines the AI backend contract, the provider
// registry, and the per-provider health tracking used to rank fallback
// order.
package provider

import (
	"context"
	"fmt"
)

// Role identifies the author of a chat message.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one entry of the conversation sent to a backend.
type Message struct {
	Role    string
	Content string
}

// Request carries a chat completion request to a backend.
type Request struct {
	Messages    []Message
	MaxTokens   int
	Temperature float64
	PersonaName string
	Reasoning   bool
}

// ErrKind classifies an unsuccessful invocation.
type ErrKind int

const (
	ErrNone ErrKind = iota
	ErrRateLimited
	ErrUnavailable
	ErrTimeout
	ErrBadResponse
	ErrInternal
)

func (k ErrKind) String() string {
	switch k {
	case ErrNone:
		return "none"
	case ErrRateLimited:
		return "rate_limited"
	case ErrUnavailable:
		return "unavailable"
	case ErrTimeout:
		return "timeout"
	case ErrBadResponse:
		return "bad_response"
	case ErrInternal:
		return "internal"
	default:
		return "unknown"
	}
}

// Result is the tagged outcome of a single invocation. Adapters
// translate every expected failure into an Err result instead of
// returning free-form error text, so callers never have to sniff
// response strings to tell success from failure.
type Result struct {
	Text   string
	Kind   ErrKind
	Detail string
}

// Ok builds a successful result.
func Ok(text string) Result {
	return Result{Text: text}
}

// Errf builds a failed result with a formatted detail message.
func Errf(kind ErrKind, format string, args ...any) Result {
	return Result{Kind: kind, Detail: fmt.Sprintf(format, args...)}
}

// OK reports whether the invocation produced usable content.
func (r Result) OK() bool {
	return r.Kind == ErrNone && r.Text != ""
}

// Invoker is the contract every AI backend adapter implements.
// Invoke must not panic for expected failure conditions; it reports
// them through the Result. Callers still recover panics as
// defense-in-depth.
type Invoker interface {
	Name() string
	Invoke(ctx context.Context, req Request) Result
}
