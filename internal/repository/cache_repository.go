package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/mkravets/contacts-api/internal/models"
	appErrors "github.com/mkravets/contacts-api/pkg/errors"
)

const userCacheKeyPrefix = "user:"

// CacheRepository provides Redis-backed caching of user records keyed by
// user id. The auth middleware hits this on every authorized request; a
// miss falls through to Postgres and repopulates the entry.
type CacheRepository struct {
	client *redis.Client
	logger *zap.Logger
}

// NewCacheRepository constructs a cache repository.
func NewCacheRepository(client *redis.Client, logger *zap.Logger) *CacheRepository {
	return &CacheRepository{client: client, logger: logger}
}

// GetUser retrieves a cached user.
func (r *CacheRepository) GetUser(ctx context.Context, userID string) (*models.User, error) {
	if r.client == nil {
		return nil, appErrors.ErrCacheMiss
	}

	raw, err := r.client.Get(ctx, userCacheKey(userID)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, appErrors.ErrCacheMiss
		}
		return nil, fmt.Errorf("redis get user %s: %w", userID, err)
	}

	var user models.User
	wrapper := cachedUser{User: &user}
	if err := json.Unmarshal(raw, &wrapper); err != nil {
		return nil, fmt.Errorf("unmarshal cached user %s: %w", userID, err)
	}
	user.PasswordHash = wrapper.PasswordHash

	return &user, nil
}

// SetUser caches a user record with the given TTL. The password hash rides
// along via a dedicated field because User's JSON shape omits it.
func (r *CacheRepository) SetUser(ctx context.Context, user *models.User, ttl time.Duration) error {
	if r.client == nil {
		return nil
	}

	payload, err := json.Marshal(cachedUser{User: user, PasswordHash: user.PasswordHash})
	if err != nil {
		return fmt.Errorf("marshal user %s: %w", user.ID, err)
	}

	if err := r.client.Set(ctx, userCacheKey(user.ID), payload, ttl).Err(); err != nil {
		return fmt.Errorf("redis set user %s: %w", user.ID, err)
	}

	return nil
}

// InvalidateUser drops the cached entry for a user. Called whenever the
// underlying row changes (confirmation, avatar update, deletion).
func (r *CacheRepository) InvalidateUser(ctx context.Context, userID string) error {
	if r.client == nil {
		return nil
	}

	if err := r.client.Del(ctx, userCacheKey(userID)).Err(); err != nil {
		return fmt.Errorf("redis delete user %s: %w", userID, err)
	}

	return nil
}

type cachedUser struct {
	*models.User
	PasswordHash string `json:"password_hash"`
}

func userCacheKey(userID string) string {
	return userCacheKeyPrefix + userID
}
