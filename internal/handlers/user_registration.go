package handlers

import (
	"context"
	"encoding/json"
	"log"

	"workfit-event-service-golang/internal/consumer"
	"workfit-event-service-golang/internal/events"
)

// UserDirectory is the slice of the user store the registration sync needs.
type UserDirectory interface {
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	CreateFromRegistration(ctx context.Context, data events.UserData) error
	UpdateStatus(ctx context.Context, email, status string) (bool, error)
}

// ApprovalNotifier publishes the account-approved notification once the
// status update has landed. Nil disables the follow-up. At-least-once like
// everything on the bus: a replayed approval notifies again.
type ApprovalNotifier func(email, fullName string)

// UserRegistration syncs approved registrations into the user store.
// Idempotent create: the email natural key is checked before insert, so a
// replayed event skips the write.
func UserRegistration(users UserDirectory, notify ApprovalNotifier) consumer.Handler {
	return func(ctx context.Context, d consumer.Delivery) error {
		var ev events.UserRegistrationEvent
		if err := json.Unmarshal(d.Value, &ev); err != nil {
			return consumer.Fatalf("malformed user registration payload: %v", err)
		}

		switch ev.EventType {
		case events.TypeUserRegistered:
			return handleRegistration(ctx, users, ev)
		case events.TypeHRApproved, events.TypeHRManagerApproved:
			return handleStatusUpdate(ctx, users, ev, notify)
		default:
			log.Printf("[UserSync] unknown event type %q, skipping", ev.EventType)
			return nil
		}
	}
}

func handleRegistration(ctx context.Context, users UserDirectory, ev events.UserRegistrationEvent) error {
	data := ev.UserData
	if data.Email == "" || data.Role == "" {
		return consumer.Fatalf("registration event %s missing email or role", ev.EventID)
	}

	exists, err := users.ExistsByEmail(ctx, data.Email)
	if err != nil {
		return err
	}
	if exists {
		log.Printf("[UserSync] user %s already present, skipping insert", data.Email)
		return nil
	}

	if err := users.CreateFromRegistration(ctx, data); err != nil {
		return err
	}
	log.Printf("[UserSync] created user %s (role %s)", data.Email, data.Role)
	return nil
}

func handleStatusUpdate(ctx context.Context, users UserDirectory, ev events.UserRegistrationEvent, notify ApprovalNotifier) error {
	data := ev.UserData
	if data.Email == "" || data.Status == "" {
		return consumer.Fatalf("approval event %s missing email or status", ev.EventID)
	}

	found, err := users.UpdateStatus(ctx, data.Email, data.Status)
	if err != nil {
		return err
	}
	if !found {
		return consumer.Fatalf("user %s not found for status update", data.Email)
	}

	log.Printf("[UserSync] updated status for %s to %s", data.Email, data.Status)
	if notify != nil {
		notify(data.Email, data.FullName)
	}
	return nil
}
