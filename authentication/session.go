package authentication

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

const refreshKeyPrefix = "refresh:"

// RefreshStore keeps the current refresh token per user in Redis. Logout
// deletes the entry; refresh rotates it, so at most one refresh token is
// valid per user at a time.
type RefreshStore struct {
	rdb *redis.Client
}

func NewRefreshStore(rdb *redis.Client) *RefreshStore {
	return &RefreshStore{rdb: rdb}
}

func (s *RefreshStore) key(userID string) string { return refreshKeyPrefix + userID }

func (s *RefreshStore) Save(ctx context.Context, userID, token string, ttl time.Duration) error {
	return s.rdb.Set(ctx, s.key(userID), token, ttl).Err()
}

// Get returns the stored refresh token, or redis.Nil when none exists.
func (s *RefreshStore) Get(ctx context.Context, userID string) (string, error) {
	return s.rdb.Get(ctx, s.key(userID)).Result()
}

func (s *RefreshStore) Delete(ctx context.Context, userID string) error {
	return s.rdb.Del(ctx, s.key(userID)).Err()
}
