package router_test

import (
	"context"
	"testing"

	"personabot/internal/provider"
	"personabot/internal/router"
)

// scriptedInvoker returns its results in order, repeating the last one
// once the script runs out.
type scriptedInvoker struct {
	name    string
	results []provider.Result
	calls   int
}

func (s *scriptedInvoker) Name() string { return s.name }

func (s *scriptedInvoker) Invoke(context.Context, provider.Request) provider.Result {
	idx := s.calls
	if idx >= len(s.results) {
		idx = len(s.results) - 1
	}
	s.calls++
	return s.results[idx]
}

func newRegistry(t *testing.T, invokers ...*scriptedInvoker) *provider.Registry {
	t.Helper()
	r := provider.NewRegistry(nil)
	priority := 100 * len(invokers)
	for _, inv := range invokers {
		r.Register(inv, priority, true)
		priority -= 100
	}
	return r
}

func TestDispatchSuccessShortCircuits(t *testing.T) {
	t.Parallel()

	p1 := &scriptedInvoker{name: "p1", results: []provider.Result{provider.Ok("hello")}}
	p2 := &scriptedInvoker{name: "p2", results: []provider.Result{provider.Ok("never")}}
	r := router.New(newRegistry(t, p1, p2), 3, 0, nil)

	out := r.Dispatch(context.Background(), provider.Request{})
	if out.Status != router.StatusSuccess {
		t.Fatalf("Status = %v, want StatusSuccess", out.Status)
	}
	if out.Text != "hello" || out.Provider != "p1" {
		t.Errorf("got %q from %q, want %q from p1", out.Text, out.Provider, "hello")
	}
	if p1.calls != 1 {
		t.Errorf("p1 called %d times, want 1", p1.calls)
	}
	if p2.calls != 0 {
		t.Errorf("p2 called %d times, want 0", p2.calls)
	}
}

func TestDispatchFallsBackAfterAttemptCeiling(t *testing.T) {
	t.Parallel()

	fail := provider.Errf(provider.ErrUnavailable, "down")
	p1 := &scriptedInvoker{name: "p1", results: []provider.Result{fail}}
	p2 := &scriptedInvoker{name: "p2", results: []provider.Result{provider.Ok("backup wins")}}
	reg := newRegistry(t, p1, p2)
	r := router.New(reg, 3, 0, nil)

	out := r.Dispatch(context.Background(), provider.Request{})
	if out.Status != router.StatusSuccess {
		t.Fatalf("Status = %v, want StatusSuccess", out.Status)
	}
	if out.Text != "backup wins" || out.Provider != "p2" {
		t.Errorf("got %q from %q, want backup win", out.Text, out.Provider)
	}
	if p1.calls != 3 {
		t.Errorf("p1 called %d times, want full attempt ceiling of 3", p1.calls)
	}

	health := reg.HealthSnapshot()
	if health["p1"].ConsecutiveFailures != 1 {
		t.Errorf("p1 consecutive failures = %d, want 1 per dispatch", health["p1"].ConsecutiveFailures)
	}
	if health["p2"].TotalSuccesses != 1 {
		t.Errorf("p2 successes = %d, want 1", health["p2"].TotalSuccesses)
	}
}

func TestDispatchRetrySameProviderBeforeAdvancing(t *testing.T) {
	t.Parallel()

	p1 := &scriptedInvoker{name: "p1", results: []provider.Result{
		provider.Errf(provider.ErrRateLimited, "429"),
		provider.Ok("second try"),
	}}
	r := router.New(newRegistry(t, p1), 3, 0, nil)

	out := r.Dispatch(context.Background(), provider.Request{})
	if out.Status != router.StatusSuccess || out.Text != "second try" {
		t.Fatalf("got %+v, want success on second attempt", out)
	}
	if p1.calls != 2 {
		t.Errorf("p1 called %d times, want 2", p1.calls)
	}
}

func TestDispatchExhausted(t *testing.T) {
	t.Parallel()

	fail := provider.Errf(provider.ErrUnavailable, "down")
	p1 := &scriptedInvoker{name: "p1", results: []provider.Result{fail}}
	p2 := &scriptedInvoker{name: "p2", results: []provider.Result{fail}}
	r := router.New(newRegistry(t, p1, p2), 2, 0, nil)

	out := r.Dispatch(context.Background(), provider.Request{})
	if out.Status != router.StatusExhausted {
		t.Fatalf("Status = %v, want StatusExhausted", out.Status)
	}
	if out.Text != "" {
		t.Errorf("Text = %q, want empty on exhaustion", out.Text)
	}
	if p1.calls != 2 || p2.calls != 2 {
		t.Errorf("calls = %d/%d, want 2/2", p1.calls, p2.calls)
	}
}

func TestDispatchNoProviders(t *testing.T) {
	t.Parallel()

	r := router.New(provider.NewRegistry(nil), 3, 0, nil)

	out := r.Dispatch(context.Background(), provider.Request{})
	if out.Status != router.StatusNoProviders {
		t.Fatalf("Status = %v, want StatusNoProviders", out.Status)
	}
}

type panicInvoker struct{ name string }

func (p panicInvoker) Name() string { return p.name }
func (p panicInvoker) Invoke(context.Context, provider.Request) provider.Result {
	panic("adapter bug")
}

func TestDispatchRecoversProviderPanic(t *testing.T) {
	t.Parallel()

	reg := provider.NewRegistry(nil)
	reg.Register(panicInvoker{name: "broken"}, 200, true)
	good := &scriptedInvoker{name: "good", results: []provider.Result{provider.Ok("still here")}}
	reg.Register(good, 100, true)

	r := router.New(reg, 1, 0, nil)

	out := r.Dispatch(context.Background(), provider.Request{})
	if out.Status != router.StatusSuccess || out.Text != "still here" {
		t.Fatalf("got %+v, want fallback success despite panic", out)
	}
}

func TestDispatchStopsWhenContextCancelled(t *testing.T) {
	t.Parallel()

	fail := provider.Errf(provider.ErrUnavailable, "down")
	p1 := &scriptedInvoker{name: "p1", results: []provider.Result{fail}}
	p2 := &scriptedInvoker{name: "p2", results: []provider.Result{fail}}
	r := router.New(newRegistry(t, p1, p2), 1, 0, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	out := r.Dispatch(ctx, provider.Request{})
	if out.Status != router.StatusExhausted {
		t.Fatalf("Status = %v, want StatusExhausted", out.Status)
	}
	if p2.calls != 0 {
		t.Errorf("p2 called %d times after cancellation, want 0", p2.calls)
	}
}
