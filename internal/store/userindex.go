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

// UserIndex mirrors user documents for search. Each document carries the
// aggregate version of the change that produced it; stale events must not
// overwrite newer state.
type UserIndex struct {
	coll *mongo.Collection
}

func NewUserIndex(db *mongo.Database) *UserIndex {
	return &UserIndex{coll: db.Collection("user_index")}
}

// Version returns the indexed aggregate version for userID, if present.
func (s *UserIndex) Version(ctx context.Context, userID string) (int64, bool, error) {
	var doc struct {
		Version int64 `bson:"version"`
	}
	err := s.coll.FindOne(ctx, bson.M{"userId": userID},
		options.FindOne().SetProjection(bson.M{"version": 1})).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, errors.Wrap(err, "index version lookup")
	}
	return doc.Version, true, nil
}

// Upsert writes the index document for this change event.
func (s *UserIndex) Upsert(ctx context.Context, ev events.UserChangeEvent) error {
	doc := bson.M{
		"userId":     ev.UserID,
		"version":    ev.Version,
		"username":   ev.Data.Username,
		"fullName":   ev.Data.FullName,
		"email":      ev.Data.Email,
		"userRole":   ev.Data.UserRole,
		"userStatus": ev.Data.UserStatus,
		"isBlocked":  ev.Data.IsBlocked,
		"isDeleted":  ev.Data.IsDeleted,
		"indexedAt":  time.Now().UTC(),
	}
	_, err := s.coll.UpdateOne(ctx,
		bson.M{"userId": ev.UserID},
		bson.M{"$set": doc},
		options.Update().SetUpsert(true))
	if err != nil {
		return errors.Wrapf(err, "upsert index for user %s", ev.UserID)
	}
	return nil
}

// Delete removes a user from the index. Deleting an absent document is fine.
func (s *UserIndex) Delete(ctx context.Context, userID string) error {
	_, err := s.coll.DeleteOne(ctx, bson.M{"userId": userID})
	if err != nil {
		return errors.Wrapf(err, "delete index for user %s", userID)
	}
	return nil
}
