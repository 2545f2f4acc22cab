package repository

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSessionRepo(t *testing.T) (*SessionRepository, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewSessionRepository(client), mr
}

func TestSessionRepository_SetCurrentAndMatches(t *testing.T) {
	repo, _ := newSessionRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.SetCurrent(ctx, "user-1", "refresh-a", time.Hour))

	ok, err := repo.Matches(ctx, "user-1", "refresh-a")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.Matches(ctx, "user-1", "refresh-b")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = repo.Matches(ctx, "user-2", "refresh-a")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSessionRepository_Current(t *testing.T) {
	repo, _ := newSessionRepo(t)
	ctx := context.Background()

	value, err := repo.Current(ctx, "user-1")
	require.NoError(t, err)
	assert.Empty(t, value)

	require.NoError(t, repo.SetCurrent(ctx, "user-1", "refresh-a", time.Hour))

	value, err = repo.Current(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, fingerprint("refresh-a"), value)
	assert.NotEqual(t, "refresh-a", value)
}

func TestSessionRepository_StoresFingerprintNotValue(t *testing.T) {
	repo, mr := newSessionRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.SetCurrent(ctx, "user-1", "refresh-a", time.Hour))

	stored, err := mr.Get("ledger:user-1")
	require.NoError(t, err)
	assert.NotEqual(t, "refresh-a", stored)
	assert.Len(t, stored, 64)
}

func TestSessionRepository_RotateHappyPath(t *testing.T) {
	repo, _ := newSessionRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.SetCurrent(ctx, "user-1", "refresh-a", time.Hour))

	status, err := repo.Rotate(ctx, "user-1", "refresh-a", "refresh-b", time.Hour)
	require.NoError(t, err)
	assert.Equal(t, RotateOK, status)

	ok, err := repo.Matches(ctx, "user-1", "refresh-b")
	require.NoError(t, err)
	assert.True(t, ok)

	// The old token is no longer current.
	ok, err = repo.Matches(ctx, "user-1", "refresh-a")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSessionRepository_RotateNotFound(t *testing.T) {
	repo, _ := newSessionRepo(t)
	ctx := context.Background()

	status, err := repo.Rotate(ctx, "user-1", "refresh-a", "refresh-b", time.Hour)
	require.NoError(t, err)
	assert.Equal(t, RotateNotFound, status)
}

func TestSessionRepository_RotateMismatchClearsLedger(t *testing.T) {
	repo, mr := newSessionRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.SetCurrent(ctx, "user-1", "refresh-b", time.Hour))

	// Presenting a superseded token revokes the whole session.
	status, err := repo.Rotate(ctx, "user-1", "refresh-a", "refresh-c", time.Hour)
	require.NoError(t, err)
	assert.Equal(t, RotateMismatch, status)
	assert.False(t, mr.Exists("ledger:user-1"))

	// Even the previously valid token is now dead.
	status, err = repo.Rotate(ctx, "user-1", "refresh-b", "refresh-c", time.Hour)
	require.NoError(t, err)
	assert.Equal(t, RotateNotFound, status)
}

func TestSessionRepository_RotateConcurrentSingleWinner(t *testing.T) {
	repo, _ := newSessionRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.SetCurrent(ctx, "user-1", "refresh-a", time.Hour))

	const workers = 8
	results := make([]RotateStatus, workers)
	errs := make([]error, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = repo.Rotate(ctx, "user-1", "refresh-a", "refresh-b", time.Hour)
		}(i)
	}
	wg.Wait()

	var wins int
	for i, status := range results {
		require.NoError(t, errs[i])
		if status == RotateOK {
			wins++
		}
	}
	assert.Equal(t, 1, wins, "exactly one concurrent refresh may rotate")
}

func TestSessionRepository_ClearIsIdempotent(t *testing.T) {
	repo, _ := newSessionRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.SetCurrent(ctx, "user-1", "refresh-a", time.Hour))
	require.NoError(t, repo.Clear(ctx, "user-1"))
	require.NoError(t, repo.Clear(ctx, "user-1"))

	ok, err := repo.Matches(ctx, "user-1", "refresh-a")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSessionRepository_EntryExpires(t *testing.T) {
	repo, mr := newSessionRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.SetCurrent(ctx, "user-1", "refresh-a", time.Minute))
	mr.FastForward(2 * time.Minute)

	status, err := repo.Rotate(ctx, "user-1", "refresh-a", "refresh-b", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, RotateNotFound, status)
}
