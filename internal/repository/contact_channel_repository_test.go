package repository

import (
	"context"
	"database/sql"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkravets/contacts-api/internal/models"
)

func TestContactChannelListByContact(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewContactChannelRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "contact_id", "channel_id", "value", "owner_id", "created_at"}).
		AddRow("cc1", "c1", "ch1", "grace@example.com", "u1", now)
	mock.ExpectQuery("SELECT .+ FROM contact_channels WHERE owner_id").
		WithArgs("u1", "c1").
		WillReturnRows(rows)

	list, err := repo.ListByContact(context.Background(), "u1", "c1")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "grace@example.com", list[0].Value)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestContactChannelValueExists(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewContactChannelRepository(db)

	mock.ExpectQuery("SELECT 1 FROM contact_channels WHERE value").
		WithArgs("grace@example.com").
		WillReturnRows(sqlmock.NewRows([]string{"?column?"}).AddRow(1))

	exists, err := repo.ValueExists(context.Background(), "grace@example.com", "")
	require.NoError(t, err)
	assert.True(t, exists)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestContactChannelValueExistsExcludesSelf(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewContactChannelRepository(db)

	mock.ExpectQuery("SELECT 1 FROM contact_channels WHERE value").
		WithArgs("grace@example.com", "cc1").
		WillReturnError(sql.ErrNoRows)

	exists, err := repo.ValueExists(context.Background(), "grace@example.com", "cc1")
	require.NoError(t, err)
	assert.False(t, exists)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestContactChannelCreate(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewContactChannelRepository(db)

	mock.ExpectExec("INSERT INTO contact_channels").WillReturnResult(sqlmock.NewResult(1, 1))

	cc := &models.ContactChannel{ContactID: "c1", ChannelID: "ch1", Value: "grace@example.com", OwnerID: "u1"}
	err := repo.Create(context.Background(), cc)
	require.NoError(t, err)
	assert.NotEmpty(t, cc.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestContactChannelDeleteMissing(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewContactChannelRepository(db)

	mock.ExpectExec("DELETE FROM contact_channels WHERE id").
		WithArgs("ghost", "u1").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Delete(context.Background(), "u1", "ghost")
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}
