package handlers

import (
	"context"
	"encoding/json"
	"log"

	"workfit-event-service-golang/internal/consumer"
	"workfit-event-service-golang/internal/events"
	"workfit-event-service-golang/internal/store"

	"github.com/friendsofgo/errors"
)

// JobStats applies application-count deltas from the saga's fan-out.
type JobStats interface {
	ApplyStatsDelta(ctx context.Context, jobID, eventID string, delta int) error
}

// JobStatsUpdate keeps job aggregate counters in sync with submissions. The
// store tracks applied event ids, so redelivered events do not double-count.
func JobStatsUpdate(jobs JobStats) consumer.Handler {
	return func(ctx context.Context, d consumer.Delivery) error {
		var ev events.JobStatsUpdateEvent
		if err := json.Unmarshal(d.Value, &ev); err != nil {
			return consumer.Fatalf("malformed job stats payload: %v", err)
		}
		if ev.JobID == "" || ev.Delta == 0 {
			return consumer.Fatalf("job stats event %s missing jobId or delta", ev.EventID)
		}

		err := jobs.ApplyStatsDelta(ctx, ev.JobID, ev.EventID, ev.Delta)
		if errors.Is(err, store.ErrNotFound) {
			return consumer.Fatalf("job %s not found for stats update", ev.JobID)
		}
		if err != nil {
			return err
		}

		log.Printf("[JobStats] applied delta %+d to job %s", ev.Delta, ev.JobID)
		return nil
	}
}
