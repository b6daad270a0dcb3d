package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"workfit-event-service-golang/internal/consumer"
	"workfit-event-service-golang/internal/events"
)

// Router is the notification strategy chain entry point.
type Router interface {
	Process(ctx context.Context, ev events.NotificationEvent) bool
}

// NotificationEvents feeds inbound notification envelopes to the strategy
// chain. A false routing outcome is logged, not retried: the chain already
// applied its own fallbacks, and replaying would duplicate side effects the
// strategies chose to skip.
func NotificationEvents(router Router) consumer.Handler {
	return func(ctx context.Context, d consumer.Delivery) error {
		var ev events.NotificationEvent
		if err := json.Unmarshal(d.Value, &ev); err != nil {
			return consumer.Fatalf("malformed notification payload: %v", err)
		}
		if ev.RecipientEmail == "" {
			return consumer.Fatalf("notification event %s missing recipient", ev.EventID)
		}

		if !router.Process(ctx, ev) {
			log.Printf("[Notify] event %s (type %s) not delivered on any channel", ev.EventID, ev.EventType)
		}
		return nil
	}
}

// ApplicationEvents converts application submissions into candidate and HR
// notifications and routes them through the same chain. Notification ids
// derive from the application eventId, so redelivery reuses the same
// idempotency keys.
func ApplicationEvents(router Router) consumer.Handler {
	return func(ctx context.Context, d consumer.Delivery) error {
		var ev events.ApplicationCreatedEvent
		if err := json.Unmarshal(d.Value, &ev); err != nil {
			return consumer.Fatalf("malformed application event payload: %v", err)
		}
		if ev.EventType != events.TypeApplicationCreated {
			log.Printf("[Notify] unknown application event type %q, skipping", ev.EventType)
			return nil
		}
		data := ev.Data
		if data.ApplicationID == "" {
			return consumer.Fatalf("application event %s missing applicationId", ev.EventID)
		}

		for _, n := range buildApplicationNotifications(ev) {
			if !router.Process(ctx, n) {
				log.Printf("[Notify] application notification %s not delivered", n.EventID)
			}
		}
		return nil
	}
}

func buildApplicationNotifications(ev events.ApplicationCreatedEvent) []events.NotificationEvent {
	data := ev.Data
	out := make([]events.NotificationEvent, 0, 2)
	sendEmail, inApp := boolPtr(true), boolPtr(true)

	candidateAddr := data.CandidateEmail
	if candidateAddr == "" {
		candidateAddr = data.Username
	}

	candidate := events.NotificationEvent{
		Header: events.Header{
			EventID:   ev.EventID + ":candidate",
			EventType: "APPLICATION_SUBMITTED",
			Timestamp: ev.Timestamp,
		},
		RecipientEmail:   candidateAddr,
		Subject:          fmt.Sprintf("Application received: %s", data.JobTitle),
		Content:          fmt.Sprintf("Your application for %s at %s was submitted.", data.JobTitle, data.CompanyName),
		NotificationType: "application_submitted",
		SendEmail:        sendEmail,
		CreateInApp:      inApp,
		ActionURL:        "/applications/" + data.ApplicationID,
		ReferenceID:      data.ApplicationID,
		ReferenceType:    "application",
		SourceService:    "application-service",
	}
	out = append(out, candidate)

	if data.HrUsername != "" {
		hr := events.NotificationEvent{
			Header: events.Header{
				EventID:   ev.EventID + ":hr",
				EventType: "APPLICATION_RECEIVED",
				Timestamp: ev.Timestamp,
			},
			RecipientEmail:   data.HrUsername,
			Subject:          fmt.Sprintf("New application: %s", data.JobTitle),
			Content:          fmt.Sprintf("%s applied for %s.", data.CandidateName, data.JobTitle),
			NotificationType: "application_received",
			SendEmail:        sendEmail,
			CreateInApp:      inApp,
			ActionURL:        "/hr/applications/" + data.ApplicationID,
			ReferenceID:      data.ApplicationID,
			ReferenceType:    "application",
			SourceService:    "application-service",
		}
		out = append(out, hr)
	}

	return out
}

func boolPtr(b bool) *bool { return &b }
