package repository

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RotateStatus reports the outcome of an atomic refresh-token rotation.
type RotateStatus int

const (
	// RotateNotFound means no session exists for the user (logged out or
	// the ledger entry expired).
	RotateNotFound RotateStatus = iota
	// RotateMismatch means the presented token is not the current one. The
	// ledger entry has been cleared: a syntactically valid but superseded
	// token is treated as a reuse signal, and the whole session is revoked.
	RotateMismatch
	// RotateOK means the presented token matched and the new value is now
	// current.
	RotateOK
)

const sessionKeyPrefix = "ledger:"

// rotateScript performs compare-and-rotate in one atomic step. Two
// concurrent refreshes presenting the same token can never both rotate: the
// loser observes the winner's write and takes the mismatch branch.
var rotateScript = redis.NewScript(`
local current = redis.call("GET", KEYS[1])
if not current then
  return 0
end
if current ~= ARGV[1] then
  redis.call("DEL", KEYS[1])
  return 1
end
redis.call("SET", KEYS[1], ARGV[2], "PX", ARGV[3])
return 2
`)

// SessionRepository is the session ledger: it tracks the single current
// refresh token per user. Only a SHA-256 fingerprint of the token value is
// stored, so a leaked ledger cannot be replayed as credentials.
type SessionRepository struct {
	client *redis.Client
}

// NewSessionRepository creates a new instance of SessionRepository.
func NewSessionRepository(client *redis.Client) *SessionRepository {
	return &SessionRepository{client: client}
}

// SetCurrent records tokenValue as the user's current refresh token,
// replacing any prior value. The entry expires with the token itself.
func (r *SessionRepository) SetCurrent(ctx context.Context, userID, tokenValue string, ttl time.Duration) error {
	if err := r.client.Set(ctx, sessionKey(userID), fingerprint(tokenValue), ttl).Err(); err != nil {
		return fmt.Errorf("set current session: %w", err)
	}
	return nil
}

// Current returns the fingerprint stored for the user's session, or the
// empty string when no session is open. Only the hash ever leaves Redis.
func (r *SessionRepository) Current(ctx context.Context, userID string) (string, error) {
	value, err := r.client.Get(ctx, sessionKey(userID)).Result()
	if err != nil {
		if err == redis.Nil {
			return "", nil
		}
		return "", fmt.Errorf("get current session: %w", err)
	}
	return value, nil
}

// Matches reports whether a current entry exists and is identical to the
// presented token value.
func (r *SessionRepository) Matches(ctx context.Context, userID, tokenValue string) (bool, error) {
	current, err := r.client.Get(ctx, sessionKey(userID)).Result()
	if err != nil {
		if err == redis.Nil {
			return false, nil
		}
		return false, fmt.Errorf("get current session: %w", err)
	}
	return current == fingerprint(tokenValue), nil
}

// Rotate atomically swaps the current token for the next one. On mismatch
// the ledger entry is cleared as a defensive measure, forcing the legitimate
// holder to re-authenticate.
func (r *SessionRepository) Rotate(ctx context.Context, userID, presented, next string, ttl time.Duration) (RotateStatus, error) {
	res, err := rotateScript.Run(ctx, r.client,
		[]string{sessionKey(userID)},
		fingerprint(presented),
		fingerprint(next),
		ttl.Milliseconds(),
	).Int64()
	if err != nil {
		return RotateNotFound, fmt.Errorf("rotate session: %w", err)
	}

	switch res {
	case 2:
		return RotateOK, nil
	case 1:
		return RotateMismatch, nil
	default:
		return RotateNotFound, nil
	}
}

// Clear removes the user's ledger entry. Clearing an absent entry is not an
// error, which makes logout idempotent.
func (r *SessionRepository) Clear(ctx context.Context, userID string) error {
	if err := r.client.Del(ctx, sessionKey(userID)).Err(); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	return nil
}

func sessionKey(userID string) string {
	return sessionKeyPrefix + userID
}

// fingerprint hashes token values before they touch Redis.
func fingerprint(tokenValue string) string {
	sum := sha256.Sum256([]byte(tokenValue))
	return hex.EncodeToString(sum[:])
}
