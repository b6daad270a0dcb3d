package scheduler

import (
	"log"
	"time"

	"workfit-event-service-golang/internal/ratelimit"

	"github.com/robfig/cron/v3"
)

// StartLimiterSweepScheduler clears expired counters out of an in-memory
// rate-limit store. The redis store does not need this; redis expires keys
// itself.
func StartLimiterSweepScheduler(store *ratelimit.MemoryStore) {
	c := cron.New()

	_, err := c.AddFunc("@every 10m", func() {
		start := time.Now()
		removed := store.Sweep()
		if removed > 0 {
			log.Printf("[Scheduler] limiter sweep removed %d expired entries in %s", removed, time.Since(start))
		}
	})
	if err != nil {
		log.Printf("[Scheduler] Failed to schedule limiter sweep: %v", err)
		return
	}

	c.Start()
	log.Println("[Scheduler] limiter sweep scheduler initialized — runs every 10m")
}
