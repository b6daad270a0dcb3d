package store

import (
	"context"
	"time"

	"workfit-event-service-golang/internal/events"

	"github.com/friendsofgo/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Notification is the in-app record created by the notification strategies.
// EventID is the idempotency key: replaying the same envelope upserts the
// same document instead of duplicating it.
type Notification struct {
	EventID        string         `bson:"eventId" json:"eventId"`
	RecipientEmail string         `bson:"recipientEmail" json:"recipientEmail"`
	RecipientID    string         `bson:"recipientId,omitempty" json:"recipientId,omitempty"`
	EventType      string         `bson:"eventType" json:"eventType"`
	Subject        string         `bson:"subject,omitempty" json:"subject,omitempty"`
	Content        string         `bson:"content,omitempty" json:"content,omitempty"`
	ActionURL      string         `bson:"actionUrl,omitempty" json:"actionUrl,omitempty"`
	ReferenceID    string         `bson:"referenceId,omitempty" json:"referenceId,omitempty"`
	ReferenceType  string         `bson:"referenceType,omitempty" json:"referenceType,omitempty"`
	Metadata       map[string]any `bson:"metadata,omitempty" json:"metadata,omitempty"`
	Read           bool           `bson:"read" json:"read"`
	CreatedAt      time.Time      `bson:"createdAt" json:"createdAt"`
}

// EmailLog records one email delivery attempt.
type EmailLog struct {
	EventID        string    `bson:"eventId" json:"eventId"`
	RecipientEmail string    `bson:"recipientEmail" json:"recipientEmail"`
	Subject        string    `bson:"subject,omitempty" json:"subject,omitempty"`
	Sent           bool      `bson:"sent" json:"sent"`
	FailureReason  string    `bson:"failureReason,omitempty" json:"failureReason,omitempty"`
	AttemptedAt    time.Time `bson:"attemptedAt" json:"attemptedAt"`
}

// NotificationStore persists in-app notifications and email logs in Mongo.
type NotificationStore struct {
	notifications *mongo.Collection
	emailLogs     *mongo.Collection
}

func NewNotificationStore(db *mongo.Database) *NotificationStore {
	return &NotificationStore{
		notifications: db.Collection("notifications"),
		emailLogs:     db.Collection("email_logs"),
	}
}

// CreateNotification upserts the in-app record keyed by eventId, so a
// replayed envelope is a no-op.
func (s *NotificationStore) CreateNotification(ctx context.Context, ev events.NotificationEvent) (*Notification, error) {
	n := Notification{
		EventID:        ev.EventID,
		RecipientEmail: ev.RecipientEmail,
		RecipientID:    ev.RecipientUserID,
		EventType:      ev.EventType,
		Subject:        ev.Subject,
		Content:        ev.Content,
		ActionURL:      ev.ActionURL,
		ReferenceID:    ev.ReferenceID,
		ReferenceType:  ev.ReferenceType,
		Metadata:       ev.Metadata,
		Read:           false,
		CreatedAt:      time.Now().UTC(),
	}

	_, err := s.notifications.UpdateOne(ctx,
		bson.M{"eventId": ev.EventID},
		bson.M{"$setOnInsert": n},
		options.Update().SetUpsert(true))
	if err != nil {
		return nil, errors.Wrap(err, "upsert notification")
	}
	return &n, nil
}

// SaveEmailLog appends a delivery attempt record.
func (s *NotificationStore) SaveEmailLog(ctx context.Context, ev events.NotificationEvent, sent bool, reason string) error {
	_, err := s.emailLogs.InsertOne(ctx, EmailLog{
		EventID:        ev.EventID,
		RecipientEmail: ev.RecipientEmail,
		Subject:        ev.Subject,
		Sent:           sent,
		FailureReason:  reason,
		AttemptedAt:    time.Now().UTC(),
	})
	if err != nil {
		return errors.Wrap(err, "insert email log")
	}
	return nil
}

// ListByRecipient returns the newest notifications for one recipient.
func (s *NotificationStore) ListByRecipient(ctx context.Context, email string, limit int64) ([]Notification, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetLimit(limit)
	cur, err := s.notifications.Find(ctx, bson.M{"recipientEmail": email}, opts)
	if err != nil {
		return nil, errors.Wrap(err, "list notifications")
	}
	defer cur.Close(ctx)

	var out []Notification
	if err := cur.All(ctx, &out); err != nil {
		return nil, errors.Wrap(err, "decode notifications")
	}
	return out, nil
}

// MarkRead flags a notification as read. Repeat calls are no-ops.
func (s *NotificationStore) MarkRead(ctx context.Context, eventID string) error {
	res, err := s.notifications.UpdateOne(ctx,
		bson.M{"eventId": eventID},
		bson.M{"$set": bson.M{"read": true}})
	if err != nil {
		return errors.Wrap(err, "mark read")
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}
