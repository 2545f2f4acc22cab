package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/mkravets/contacts-api/internal/models"
)

// ChannelRepository manages the global catalog of contact-point kinds.
type ChannelRepository struct {
	db *sqlx.DB
}

// NewChannelRepository constructs a ChannelRepository.
func NewChannelRepository(db *sqlx.DB) *ChannelRepository {
	return &ChannelRepository{db: db}
}

// List returns every channel in the catalog.
func (r *ChannelRepository) List(ctx context.Context) ([]models.Channel, error) {
	const query = `SELECT id, name FROM channels ORDER BY name ASC`
	var channels []models.Channel
	if err := r.db.SelectContext(ctx, &channels, query); err != nil {
		return nil, fmt.Errorf("list channels: %w", err)
	}
	return channels, nil
}

// FindByID fetches a channel by identifier.
func (r *ChannelRepository) FindByID(ctx context.Context, id string) (*models.Channel, error) {
	const query = `SELECT id, name FROM channels WHERE id = $1 LIMIT 1`
	var channel models.Channel
	if err := r.db.GetContext(ctx, &channel, query, id); err != nil {
		return nil, err
	}
	return &channel, nil
}

// FindByName fetches a channel by its unique name.
func (r *ChannelRepository) FindByName(ctx context.Context, name models.ChannelKind) (*models.Channel, error) {
	const query = `SELECT id, name FROM channels WHERE name = $1 LIMIT 1`
	var channel models.Channel
	if err := r.db.GetContext(ctx, &channel, query, name); err != nil {
		return nil, err
	}
	return &channel, nil
}

// Create inserts a new channel kind.
func (r *ChannelRepository) Create(ctx context.Context, channel *models.Channel) error {
	if channel.ID == "" {
		channel.ID = uuid.NewString()
	}
	const query = `INSERT INTO channels (id, name) VALUES (:id, :name)`
	if _, err := r.db.NamedExecContext(ctx, query, channel); err != nil {
		return fmt.Errorf("create channel: %w", err)
	}
	return nil
}

// Update renames a channel kind.
func (r *ChannelRepository) Update(ctx context.Context, channel *models.Channel) error {
	const query = `UPDATE channels SET name = :name WHERE id = :id`
	res, err := r.db.NamedExecContext(ctx, query, channel)
	if err != nil {
		return fmt.Errorf("update channel: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update channel rows: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Delete removes a channel kind from the catalog.
func (r *ChannelRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM channels WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete channel: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete channel rows: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}
