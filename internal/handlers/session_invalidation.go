package handlers

import (
	"context"
	"encoding/json"
	"log"

	"workfit-event-service-golang/internal/consumer"
	"workfit-event-service-golang/internal/events"
)

// SessionRevoker drops live sessions. Deleting is idempotent, so redelivery
// of the same event needs no extra guard.
type SessionRevoker interface {
	Invalidate(ctx context.Context, userID, sessionID string) (int, error)
}

// SessionInvalidation handles forced logouts requested by the user service
// (blocks, password resets, deletions).
func SessionInvalidation(sessions SessionRevoker) consumer.Handler {
	return func(ctx context.Context, d consumer.Delivery) error {
		var ev events.SessionInvalidationEvent
		if err := json.Unmarshal(d.Value, &ev); err != nil {
			return consumer.Fatalf("malformed session invalidation payload: %v", err)
		}
		if ev.UserID == "" {
			return consumer.Fatalf("session invalidation event %s missing userId", ev.EventID)
		}

		removed, err := sessions.Invalidate(ctx, ev.UserID, ev.SessionID)
		if err != nil {
			return err
		}

		log.Printf("[Sessions] invalidated %d session(s) for user %s (reason: %s)", removed, ev.UserID, ev.Reason)
		return nil
	}
}
