package provider

import (
	"io"
	"log/slog"
	"sort"
	"sync"
	"time"
)

const (
	// A provider is deprioritized, not excluded, after this many
	// consecutive failures.
	failureThreshold = 3

	// Scoring weights for candidate ordering.
	recentSuccessWindow = 10 * time.Minute
	recentSuccessBonus  = 1000
	workingBonus        = 500
	failurePenaltyStep  = 100

	// Amnesty sweep: a provider that has been failing regains working
	// status after the recovery window with no intervening success.
	sweepInterval  = 5 * time.Minute
	recoveryWindow = 10 * time.Minute
)

// Health holds per-provider dispatch statistics.
type Health struct {
	IsWorking           bool
	LastSuccessTime     time.Time
	LastFailureTime     time.Time
	ConsecutiveFailures int
	TotalRequests       int
	TotalSuccesses      int
}

type entry struct {
	name     string
	invoker  Invoker
	priority int
	enabled  bool
	health   Health
}

// Candidate is one dispatch target in scored order.
type Candidate struct {
	Name    string
	Invoker Invoker
}

// Registry holds provider descriptors and their health records. It is
// an explicit instance passed by injection; tests construct fresh
// registries to avoid cross-test state.
type Registry struct {
	mu        sync.Mutex
	entries   []*entry
	lastSweep time.Time
	logger    *slog.Logger
	now       func() time.Time
}

// NewRegistry creates an empty provider registry.
func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Registry{
		logger: logger.With("component", "provider_registry"),
		now:    time.Now,
	}
}

// Register adds a provider with a fresh health record. Name uniqueness
// is the caller's responsibility; providers are registered once at
// process start.
func (r *Registry) Register(invoker Invoker, priority int, enabled bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.entries = append(r.entries, &entry{
		name:     invoker.Name(),
		invoker:  invoker,
		priority: priority,
		enabled:  enabled,
		health:   Health{IsWorking: true},
	})
	r.logger.Info("Registered provider",
		"provider", invoker.Name(), "priority", priority, "enabled", enabled)
}

// Candidates returns enabled providers ordered by a composite score of
// static priority and current health, producing an adaptive fallback
// order: a top-priority but flaky provider is organically demoted below
// a healthy lower-priority one without being excluded.
func (r *Registry) Candidates() []Candidate {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()

	type scored struct {
		c       Candidate
		score   int
		sinceOK time.Duration
	}

	var available []scored
	for _, e := range r.entries {
		if !e.enabled {
			continue
		}

		score := e.priority
		sinceOK := now.Sub(e.health.LastSuccessTime)
		if sinceOK < recentSuccessWindow {
			score += recentSuccessBonus
		}
		if e.health.IsWorking {
			score += workingBonus
		}
		score -= e.health.ConsecutiveFailures * failurePenaltyStep

		available = append(available, scored{
			c:       Candidate{Name: e.name, Invoker: e.invoker},
			score:   score,
			sinceOK: sinceOK,
		})
	}

	sort.SliceStable(available, func(i, j int) bool {
		if available[i].score != available[j].score {
			return available[i].score > available[j].score
		}
		return available[i].sinceOK < available[j].sinceOK
	})

	candidates := make([]Candidate, len(available))
	for i, s := range available {
		candidates[i] = s.c
	}
	return candidates
}

// MarkSuccess records a successful dispatch to the named provider.
func (r *Registry) MarkSuccess(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e := r.find(name)
	if e == nil {
		return
	}
	e.health.IsWorking = true
	e.health.LastSuccessTime = r.now()
	e.health.ConsecutiveFailures = 0
	e.health.TotalRequests++
	e.health.TotalSuccesses++
}

// MarkFailure records a failed dispatch. Once the consecutive failure
// count reaches the threshold the provider is marked not working, which
// lowers its score but keeps it as a candidate.
func (r *Registry) MarkFailure(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e := r.find(name)
	if e == nil {
		return
	}
	e.health.LastFailureTime = r.now()
	e.health.ConsecutiveFailures++
	e.health.TotalRequests++

	if e.health.ConsecutiveFailures >= failureThreshold {
		e.health.IsWorking = false
		r.logger.Warn("Provider marked as not working",
			"provider", name, "consecutive_failures", e.health.ConsecutiveFailures)
	}
}

// SweepAmnesty resets providers that have been marked not working for
// longer than the recovery window, giving them another chance without
// requiring an intervening success. The sweep runs at most once per
// sweep interval; extra calls are no-ops.
func (r *Registry) SweepAmnesty() {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	if now.Sub(r.lastSweep) < sweepInterval {
		return
	}
	r.lastSweep = now

	for _, e := range r.entries {
		if e.health.IsWorking {
			continue
		}
		if now.Sub(e.health.LastFailureTime) > recoveryWindow {
			r.logger.Info("Resetting non-working provider",
				"provider", e.name,
				"since_failure", now.Sub(e.health.LastFailureTime).Round(time.Second))
			e.health.IsWorking = true
			e.health.ConsecutiveFailures = 0
		}
	}
}

// HealthSnapshot returns a copy of every provider's health record,
// keyed by name. Used by the admin status surface.
func (r *Registry) HealthSnapshot() map[string]Health {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make(map[string]Health, len(r.entries))
	for _, e := range r.entries {
		out[e.name] = e.health
	}
	return out
}

func (r *Registry) find(name string) *entry {
	for _, e := range r.entries {
		if e.name == name {
			return e
		}
	}
	return nil
}
