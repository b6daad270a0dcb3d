package utils

import (
	"context"
	"encoding/json"
	"log"
	"strings"
	"time"

	"workfit-event-service-golang/internal/config"
	"workfit-event-service-golang/internal/events"
	kafkautil "workfit-event-service-golang/internal/kafka"

	"github.com/segmentio/kafka-go"
)

func getWriter(topic string) kafka.Writer {
	cfg := config.LoadConfig()
	return kafka.Writer{
		Addr:         kafka.TCP(strings.Split(cfg.KafkaBroker, ",")...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
	}
}

func publish(topic, key string, event interface{}) {
	data, err := json.Marshal(event)
	if err != nil {
		log.Printf("[NOTIFY] marshal event failed: %v", err)
		return
	}

	writer := getWriter(topic)
	defer writer.Close()

	msg := kafka.Message{
		Key:   []byte(key),
		Value: data,
		Time:  time.Now().UTC(),
	}

	if err := writer.WriteMessages(context.Background(), msg); err != nil {
		log.Printf("[NOTIFY] publish to %s failed: %v", topic, err)
	}
}

// PublishAccountApproved tells the notification service that a user account
// was approved. Keyed by recipient so one user's notifications stay ordered.
func PublishAccountApproved(email, fullName string) {
	inApp := true
	evt := events.NotificationEvent{
		Header:           events.NewHeader("ACCOUNT_APPROVED"),
		RecipientEmail:   email,
		Subject:          "Your account has been approved",
		Content:          "Welcome aboard, " + fullName + "! Your account is now active.",
		NotificationType: "ACCOUNT_APPROVED",
		CreateInApp:      &inApp,
		ActionURL:        "/login",
		SourceService:    "user-service",
	}
	publish(kafkautil.TopicNotificationEvents, email, evt)
}

// PublishPasswordChangedAlert emits the security alert that follows every
// credential change. The critical strategy forces both channels for it.
func PublishPasswordChangedAlert(email string) {
	evt := events.NotificationEvent{
		Header:           events.NewHeader(events.TypePasswordChanged),
		RecipientEmail:   email,
		Subject:          "Your password was changed",
		Content:          "Your password was just changed. If this was not you, reset it immediately.",
		NotificationType: events.TypePasswordChanged,
		ActionURL:        "/account/security",
		SourceService:    "auth-service",
	}
	publish(kafkautil.TopicNotificationEvents, email, evt)
}

// PublishSessionInvalidation asks the auth service to drop a user's sessions.
// Empty sessionID means every session the user holds.
func PublishSessionInvalidation(userID, sessionID, reason string) {
	evt := events.SessionInvalidationEvent{
		Header:    events.NewHeader(events.TypeSessionInvalidation),
		UserID:    userID,
		SessionID: sessionID,
		Reason:    reason,
	}
	publish(kafkautil.TopicSessionInvalidation, userID, evt)
}
