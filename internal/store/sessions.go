package store

import (
	"context"
	"fmt"
	"log"

	"github.com/redis/go-redis/v9"
)

// SessionStore holds live auth sessions in redis, keyed
// session:<userID>:<sessionID>. Deleting keys is naturally idempotent, which
// is what makes the invalidation consumer safe under redelivery.
type SessionStore struct {
	client *redis.Client
}

func NewSessionStore(client *redis.Client) *SessionStore {
	return &SessionStore{client: client}
}

// Invalidate removes one session, or every session for the user when
// sessionID is empty. Returns the number of sessions removed.
func (s *SessionStore) Invalidate(ctx context.Context, userID, sessionID string) (int, error) {
	if sessionID != "" {
		n, err := s.client.Del(ctx, sessionKey(userID, sessionID)).Result()
		return int(n), err
	}

	removed := 0
	iter := s.client.Scan(ctx, 0, sessionKey(userID, "*"), 100).Iterator()
	for iter.Next(ctx) {
		if err := s.client.Del(ctx, iter.Val()).Err(); err != nil {
			log.Printf("[Sessions] delete failed for %s: %v", iter.Val(), err)
			continue
		}
		removed++
	}
	if err := iter.Err(); err != nil {
		return removed, err
	}
	return removed, nil
}

func sessionKey(userID, sessionID string) string {
	return fmt.Sprintf("session:%s:%s", userID, sessionID)
}
