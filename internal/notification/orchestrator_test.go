package notification

import (
	"context"
	"errors"
	"testing"

	"workfit-event-service-golang/internal/events"
)

type stubStrategy struct {
	name     string
	priority int
	matches  bool
	outcome  bool
	err      error
	calls    int
}

func (s *stubStrategy) Name() string  { return s.name }
func (s *stubStrategy) Priority() int { return s.priority }

func (s *stubStrategy) CanHandle(events.NotificationEvent) bool { return s.matches }

func (s *stubStrategy) Process(context.Context, events.NotificationEvent) (bool, error) {
	s.calls++
	return s.outcome, s.err
}

func TestOrchestratorPriorityOrder(t *testing.T) {
	low := &stubStrategy{name: "low", priority: 1000, matches: true, outcome: true}
	high := &stubStrategy{name: "high", priority: 1, matches: true, outcome: true}
	o := NewOrchestrator(low, high)

	if !o.Process(context.Background(), events.NotificationEvent{}) {
		t.Fatalf("matching strategy should deliver")
	}
	if high.calls != 1 || low.calls != 0 {
		t.Fatalf("lower priority number must run first: high=%d low=%d", high.calls, low.calls)
	}
}

func TestOrchestratorSkipsNonMatching(t *testing.T) {
	first := &stubStrategy{name: "first", priority: 1, matches: false}
	second := &stubStrategy{name: "second", priority: 2, matches: true, outcome: true}
	o := NewOrchestrator(first, second)

	if !o.Process(context.Background(), events.NotificationEvent{}) {
		t.Fatalf("second strategy should deliver")
	}
	if first.calls != 0 || second.calls != 1 {
		t.Fatalf("non-matching strategy must be skipped: first=%d second=%d", first.calls, second.calls)
	}
}

func TestOrchestratorContinuesPastFailingStrategy(t *testing.T) {
	failing := &stubStrategy{name: "failing", priority: 1, matches: true, err: errors.New("smtp down")}
	fallback := &stubStrategy{name: "fallback", priority: 2, matches: true, outcome: true}
	o := NewOrchestrator(failing, fallback)

	if !o.Process(context.Background(), events.NotificationEvent{}) {
		t.Fatalf("chain must fall through a failing strategy")
	}
	if failing.calls != 1 || fallback.calls != 1 {
		t.Fatalf("both strategies should have run: failing=%d fallback=%d", failing.calls, fallback.calls)
	}
}

func TestOrchestratorStopsAtFirstCleanOutcome(t *testing.T) {
	// A clean false ends the walk; only errors keep the chain moving.
	undelivered := &stubStrategy{name: "undelivered", priority: 1, matches: true, outcome: false}
	later := &stubStrategy{name: "later", priority: 2, matches: true, outcome: true}
	o := NewOrchestrator(undelivered, later)

	if o.Process(context.Background(), events.NotificationEvent{}) {
		t.Fatalf("first clean outcome should be returned as-is")
	}
	if later.calls != 0 {
		t.Fatalf("chain must stop after a clean outcome")
	}
}

func TestOrchestratorNoMatch(t *testing.T) {
	o := NewOrchestrator(&stubStrategy{name: "never", priority: 1, matches: false})
	if o.Process(context.Background(), events.NotificationEvent{}) {
		t.Fatalf("no matching strategy should mean undelivered")
	}
}

func TestRegisteredListsChain(t *testing.T) {
	o := NewOrchestrator(
		&stubStrategy{name: "b", priority: 20},
		&stubStrategy{name: "a", priority: 10},
	)
	got := o.Registered()
	if len(got) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(got))
	}
	if got[0] != "a (priority: 10)" || got[1] != "b (priority: 20)" {
		t.Fatalf("unexpected listing: %v", got)
	}
}
