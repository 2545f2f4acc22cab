package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/mkravets/contacts-api/internal/models"
)

// ContactChannelRepository manages the contact/channel associations that
// carry the concrete contact-point values.
type ContactChannelRepository struct {
	db *sqlx.DB
}

// NewContactChannelRepository constructs a ContactChannelRepository.
func NewContactChannelRepository(db *sqlx.DB) *ContactChannelRepository {
	return &ContactChannelRepository{db: db}
}

// ListByContact returns the associations for one of the owner's contacts.
func (r *ContactChannelRepository) ListByContact(ctx context.Context, ownerID, contactID string) ([]models.ContactChannel, error) {
	const query = `SELECT id, contact_id, channel_id, value, owner_id, created_at
        FROM contact_channels WHERE owner_id = $1 AND contact_id = $2 ORDER BY created_at ASC`
	var rows []models.ContactChannel
	if err := r.db.SelectContext(ctx, &rows, query, ownerID, contactID); err != nil {
		return nil, fmt.Errorf("list contact channels: %w", err)
	}
	return rows, nil
}

// FindByID fetches a single association owned by the given user.
func (r *ContactChannelRepository) FindByID(ctx context.Context, ownerID, id string) (*models.ContactChannel, error) {
	const query = `SELECT id, contact_id, channel_id, value, owner_id, created_at
        FROM contact_channels WHERE id = $1 AND owner_id = $2 LIMIT 1`
	var cc models.ContactChannel
	if err := r.db.GetContext(ctx, &cc, query, id, ownerID); err != nil {
		return nil, err
	}
	return &cc, nil
}

// ValueExists reports whether a value is already registered, optionally
// excluding one association (for updates).
func (r *ContactChannelRepository) ValueExists(ctx context.Context, value, excludeID string) (bool, error) {
	query := "SELECT 1 FROM contact_channels WHERE value = $1"
	args := []interface{}{value}
	if excludeID != "" {
		query += " AND id <> $2"
		args = append(args, excludeID)
	}
	var exists int
	if err := r.db.GetContext(ctx, &exists, query+" LIMIT 1", args...); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check channel value: %w", err)
	}
	return true, nil
}

// Create inserts a new association.
func (r *ContactChannelRepository) Create(ctx context.Context, cc *models.ContactChannel) error {
	if cc.ID == "" {
		cc.ID = uuid.NewString()
	}
	if cc.CreatedAt.IsZero() {
		cc.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO contact_channels (id, contact_id, channel_id, value, owner_id, created_at)
        VALUES (:id, :contact_id, :channel_id, :value, :owner_id, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, cc); err != nil {
		return fmt.Errorf("create contact channel: %w", err)
	}
	return nil
}

// Update rewrites an association's channel and value.
func (r *ContactChannelRepository) Update(ctx context.Context, cc *models.ContactChannel) error {
	const query = `UPDATE contact_channels SET channel_id = :channel_id, value = :value
        WHERE id = :id AND owner_id = :owner_id`
	res, err := r.db.NamedExecContext(ctx, query, cc)
	if err != nil {
		return fmt.Errorf("update contact channel: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update contact channel rows: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Delete removes an association.
func (r *ContactChannelRepository) Delete(ctx context.Context, ownerID, id string) error {
	const query = `DELETE FROM contact_channels WHERE id = $1 AND owner_id = $2`
	res, err := r.db.ExecContext(ctx, query, id, ownerID)
	if err != nil {
		return fmt.Errorf("delete contact channel: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete contact channel rows: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}
