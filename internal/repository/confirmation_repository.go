package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/mkravets/contacts-api/internal/models"
	appErrors "github.com/mkravets/contacts-api/pkg/errors"
)

// ConfirmationRepository tracks the single-use state of email confirmation
// tokens.
type ConfirmationRepository struct {
	db *sqlx.DB
}

// NewConfirmationRepository creates a new instance of ConfirmationRepository.
func NewConfirmationRepository(db *sqlx.DB) *ConfirmationRepository {
	return &ConfirmationRepository{db: db}
}

// Create inserts a fresh, unconsumed token row.
func (r *ConfirmationRepository) Create(ctx context.Context, token *models.ConfirmationToken) error {
	if token.ID == "" {
		token.ID = uuid.NewString()
	}
	if token.CreatedAt.IsZero() {
		token.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO confirmation_tokens (id, user_id, expires_at, consumed, consumed_at, created_at) VALUES (:id, :user_id, :expires_at, :consumed, :consumed_at, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, token); err != nil {
		return fmt.Errorf("create confirmation token: %w", err)
	}
	return nil
}

// Find returns a token row by identifier.
func (r *ConfirmationRepository) Find(ctx context.Context, id string) (*models.ConfirmationToken, error) {
	const query = `SELECT id, user_id, expires_at, consumed, consumed_at, created_at FROM confirmation_tokens WHERE id = $1 LIMIT 1`
	var token models.ConfirmationToken
	if err := r.db.GetContext(ctx, &token, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find confirmation token: %w", err)
	}
	return &token, nil
}

// Consume atomically checks validity and flips the consumed flag in a single
// guarded UPDATE, so two concurrent submissions of the same token can never
// both succeed. On a zero-row update the row is re-read to report whether
// the token was already consumed, expired, or never existed.
func (r *ConfirmationRepository) Consume(ctx context.Context, id string, now time.Time) (*models.ConfirmationToken, error) {
	const query = `UPDATE confirmation_tokens SET consumed = TRUE, consumed_at = $2 WHERE id = $1 AND consumed = FALSE AND expires_at > $2 RETURNING id, user_id, expires_at, consumed, consumed_at, created_at`

	var token models.ConfirmationToken
	err := r.db.GetContext(ctx, &token, query, id, now.UTC())
	if err == nil {
		return &token, nil
	}
	if err != sql.ErrNoRows {
		return nil, fmt.Errorf("consume confirmation token: %w", err)
	}

	existing, findErr := r.Find(ctx, id)
	if findErr != nil {
		if findErr == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrMalformedToken, "unknown confirmation token")
		}
		return nil, findErr
	}
	if existing.Consumed {
		return nil, appErrors.Clone(appErrors.ErrTokenConsumed, "")
	}
	return nil, appErrors.Clone(appErrors.ErrTokenExpired, "confirmation token has expired")
}

// DeleteExpired prunes rows whose expiry has passed. Returns the number of
// rows removed.
func (r *ConfirmationRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	const query = `DELETE FROM confirmation_tokens WHERE expires_at <= $1`
	res, err := r.db.ExecContext(ctx, query, now.UTC())
	if err != nil {
		return 0, fmt.Errorf("delete expired confirmation tokens: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete expired confirmation tokens rows: %w", err)
	}
	return affected, nil
}
