// Package handlers holds the per-event-type consumers wired behind the
// retryable wrapper. Every handler is safe to invoke more than once for the
// same eventId: the bus delivers at-least-once.
package handlers

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"workfit-event-service-golang/internal/consumer"
	"workfit-event-service-golang/internal/events"
)

// CredentialStore is the slice of the user store the password sync needs.
type CredentialStore interface {
	UpdatePasswordHash(ctx context.Context, userID, hash string, changedAt time.Time) (bool, error)
}

// SecurityNotifier publishes the follow-ups to a synced credential change:
// the security alert email and the session invalidation. Nil disables them.
type SecurityNotifier func(userID, email string)

// PasswordChange syncs credential hashes from the auth store into the user
// store. Overwrite-with-latest: replaying the event rewrites the same hash.
func PasswordChange(users CredentialStore, notify SecurityNotifier) consumer.Handler {
	return func(ctx context.Context, d consumer.Delivery) error {
		var ev events.PasswordChangeEvent
		if err := json.Unmarshal(d.Value, &ev); err != nil {
			return consumer.Fatalf("malformed password change payload: %v", err)
		}

		if ev.EventType != events.TypePasswordChanged {
			log.Printf("[PasswordSync] unknown event type %q, skipping", ev.EventType)
			return nil
		}
		data := ev.PasswordData
		if data.UserID == "" || data.NewPasswordHash == "" {
			return consumer.Fatalf("password change event %s missing userId or hash", ev.EventID)
		}

		found, err := users.UpdatePasswordHash(ctx, data.UserID, data.NewPasswordHash, data.PasswordChangedAt)
		if err != nil {
			// Store unavailable: retryable.
			return err
		}
		if !found {
			// Retrying will not create the user; terminal.
			return consumer.Fatalf("user %s not found for password sync", data.UserID)
		}

		log.Printf("[PasswordSync] synced password for user %s (reason: %s)", data.UserID, data.ChangeReason)
		if notify != nil {
			notify(data.UserID, data.Email)
		}
		return nil
	}
}
