// Package notification routes inbound notification events through a
// priority-ordered strategy chain and owns the delivery channels (email,
// in-app persistence, realtime push).
package notification

import (
	"context"
	"fmt"
	"log"
	"sort"

	"workfit-event-service-golang/internal/events"
)

// Strategy is one notification handling policy. Lower priority numbers are
// tried first.
type Strategy interface {
	Name() string
	Priority() int
	CanHandle(ev events.NotificationEvent) bool
	Process(ctx context.Context, ev events.NotificationEvent) (bool, error)
}

// Orchestrator walks strategies in priority order and hands the event to the
// first matching one. A strategy that fails with an error does not stop the
// chain: the next matching strategy gets its turn, so one faulty strategy
// cannot block all delivery. A strategy that returns without error ends the
// walk, whatever its outcome.
type Orchestrator struct {
	strategies []Strategy
}

// NewOrchestrator sorts the given strategies by ascending priority. The list
// is built once at startup and never mutated.
func NewOrchestrator(strategies ...Strategy) *Orchestrator {
	sorted := make([]Strategy, len(strategies))
	copy(sorted, strategies)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Priority() < sorted[j].Priority()
	})

	log.Printf("[Notify] orchestrator initialized with %d strategies", len(sorted))
	for _, s := range sorted {
		log.Printf("[Notify]   - %s (priority %d)", s.Name(), s.Priority())
	}
	return &Orchestrator{strategies: sorted}
}

// Process routes one notification event. Returns false when no strategy
// matched or every matching strategy failed.
func (o *Orchestrator) Process(ctx context.Context, ev events.NotificationEvent) bool {
	for _, s := range o.strategies {
		if !s.CanHandle(ev) {
			continue
		}
		ok, err := s.Process(ctx, ev)
		if err != nil {
			log.Printf("[Notify] strategy %s failed for event %s: %v", s.Name(), ev.EventID, err)
			continue
		}
		return ok
	}

	log.Printf("[Notify] no strategy matched event %s (type %s)", ev.EventID, ev.EventType)
	return false
}

// Registered lists the strategy chain for the ops endpoint.
func (o *Orchestrator) Registered() []string {
	out := make([]string, 0, len(o.strategies))
	for _, s := range o.strategies {
		out = append(out, fmt.Sprintf("%s (priority: %d)", s.Name(), s.Priority()))
	}
	return out
}
