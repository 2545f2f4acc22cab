package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mkravets/contacts-api/internal/models"
	appErrors "github.com/mkravets/contacts-api/pkg/errors"
)

func newCacheRepo(t *testing.T) (*CacheRepository, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewCacheRepository(client, zap.NewNop()), mr
}

func TestCacheRepositoryRoundTrip(t *testing.T) {
	repo, _ := newCacheRepo(t)
	ctx := context.Background()

	user := &models.User{
		ID:           "u1",
		Email:        "grace@example.com",
		FirstName:    "Grace",
		LastName:     "Hopper",
		PasswordHash: "$2a$10$hash",
		Confirmed:    true,
	}
	require.NoError(t, repo.SetUser(ctx, user, time.Minute))

	got, err := repo.GetUser(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "grace@example.com", got.Email)
	assert.True(t, got.Confirmed)
	// The hash survives the round trip even though the public JSON shape drops it.
	assert.Equal(t, "$2a$10$hash", got.PasswordHash)
}

func TestCacheRepositoryMiss(t *testing.T) {
	repo, _ := newCacheRepo(t)

	_, err := repo.GetUser(context.Background(), "absent")
	assert.True(t, errors.Is(err, appErrors.ErrCacheMiss))
}

func TestCacheRepositoryInvalidate(t *testing.T) {
	repo, mr := newCacheRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.SetUser(ctx, &models.User{ID: "u1"}, time.Minute))
	require.True(t, mr.Exists("user:u1"))

	require.NoError(t, repo.InvalidateUser(ctx, "u1"))
	assert.False(t, mr.Exists("user:u1"))

	_, err := repo.GetUser(ctx, "u1")
	assert.True(t, errors.Is(err, appErrors.ErrCacheMiss))
}

func TestCacheRepositoryTTLExpiry(t *testing.T) {
	repo, mr := newCacheRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.SetUser(ctx, &models.User{ID: "u1"}, time.Second))
	mr.FastForward(2 * time.Second)

	_, err := repo.GetUser(ctx, "u1")
	assert.True(t, errors.Is(err, appErrors.ErrCacheMiss))
}

func TestCacheRepositoryNilClient(t *testing.T) {
	repo := NewCacheRepository(nil, zap.NewNop())
	ctx := context.Background()

	require.NoError(t, repo.SetUser(ctx, &models.User{ID: "u1"}, time.Minute))
	_, err := repo.GetUser(ctx, "u1")
	assert.True(t, errors.Is(err, appErrors.ErrCacheMiss))
	assert.NoError(t, repo.InvalidateUser(ctx, "u1"))
}
