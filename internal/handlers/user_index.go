package handlers

import (
	"context"
	"encoding/json"
	"log"

	"workfit-event-service-golang/internal/consumer"
	"workfit-event-service-golang/internal/events"
)

// IndexStore is the search-index mirror the user change feed writes to.
type IndexStore interface {
	Version(ctx context.Context, userID string) (int64, bool, error)
	Upsert(ctx context.Context, ev events.UserChangeEvent) error
	Delete(ctx context.Context, userID string) error
}

// UserIndexSync applies user change events to the search index. Stale
// versions are dropped: within one partition events arrive in order, but a
// replay after a crash may resend an older one.
func UserIndexSync(index IndexStore) consumer.Handler {
	return func(ctx context.Context, d consumer.Delivery) error {
		var ev events.UserChangeEvent
		if err := json.Unmarshal(d.Value, &ev); err != nil {
			return consumer.Fatalf("malformed user change payload: %v", err)
		}
		if ev.UserID == "" {
			return consumer.Fatalf("user change event %s missing userId", ev.EventID)
		}

		if ev.EventType == events.TypeUserDeleted {
			if err := index.Delete(ctx, ev.UserID); err != nil {
				return err
			}
			log.Printf("[UserIndex] removed user %s", ev.UserID)
			return nil
		}

		current, exists, err := index.Version(ctx, ev.UserID)
		if err != nil {
			return err
		}
		if exists && current >= ev.Version {
			log.Printf("[UserIndex] skipping stale %s for user %s (indexed v%d >= event v%d)",
				ev.EventType, ev.UserID, current, ev.Version)
			return nil
		}

		if err := index.Upsert(ctx, ev); err != nil {
			return err
		}
		log.Printf("[UserIndex] indexed %s for user %s (v%d)", ev.EventType, ev.UserID, ev.Version)
		return nil
	}
}
