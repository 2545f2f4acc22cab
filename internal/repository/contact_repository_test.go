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

func contactColumns() []string {
	return []string{"id", "owner_id", "first_name", "last_name", "birthdate", "gender", "persuasion", "created_at", "updated_at"}
}

func TestContactList(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewContactRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows(contactColumns()).
		AddRow("c1", "u1", "Grace", "Hopper", nil, "F", "", now, now)
	mock.ExpectQuery("SELECT .+ FROM contacts c WHERE c.owner_id").
		WithArgs("u1").
		WillReturnRows(rows)
	mock.ExpectQuery("SELECT COUNT").
		WithArgs("u1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	contacts, total, err := repo.List(context.Background(), "u1", models.ContactFilter{})
	require.NoError(t, err)
	assert.Len(t, contacts, 1)
	assert.Equal(t, 1, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestContactListByChannelValue(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewContactRepository(db)

	now := time.Now()
	mock.ExpectQuery("EXISTS \\(SELECT 1 FROM contact_channels").
		WithArgs("u1", "%grace@%").
		WillReturnRows(sqlmock.NewRows(contactColumns()).
			AddRow("c1", "u1", "Grace", "Hopper", nil, "F", "", now, now))
	mock.ExpectQuery("SELECT COUNT").
		WithArgs("u1", "%grace@%").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	contacts, total, err := repo.List(context.Background(), "u1", models.ContactFilter{ChannelValue: "Grace@"})
	require.NoError(t, err)
	assert.Len(t, contacts, 1)
	assert.Equal(t, 1, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestContactFindByIDScopedToOwner(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewContactRepository(db)

	mock.ExpectQuery("SELECT .+ FROM contacts WHERE id").
		WithArgs("c1", "intruder").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.FindByID(context.Background(), "intruder", "c1")
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestContactCreate(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewContactRepository(db)

	mock.ExpectExec("INSERT INTO contacts").WillReturnResult(sqlmock.NewResult(1, 1))

	contact := &models.Contact{OwnerID: "u1", FirstName: "Grace", LastName: "Hopper", Gender: "F"}
	err := repo.Create(context.Background(), contact)
	require.NoError(t, err)
	assert.NotEmpty(t, contact.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestContactUpdateMissRowReportsNoRows(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewContactRepository(db)

	mock.ExpectExec("UPDATE contacts SET").WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Update(context.Background(), &models.Contact{ID: "ghost", OwnerID: "u1", FirstName: "G", LastName: "H", Gender: "F"})
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestContactDelete(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewContactRepository(db)

	mock.ExpectExec("DELETE FROM contacts WHERE id").
		WithArgs("c1", "u1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.Delete(context.Background(), "u1", "c1")
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestContactUpcomingBirthdaysWindow(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewContactRepository(db)

	// Window spanning a year boundary: Dec 30 + 7 days reaches into January.
	now := time.Date(2025, time.December, 30, 12, 0, 0, 0, time.UTC)
	birthdate := time.Date(1990, time.January, 2, 0, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows(contactColumns()).
		AddRow("c1", "u1", "Grace", "Hopper", birthdate, "F", "", now, now)
	mock.ExpectQuery("EXTRACT\\(MONTH FROM birthdate\\)").
		WillReturnRows(rows)

	contacts, err := repo.UpcomingBirthdays(context.Background(), "u1", 7, now)
	require.NoError(t, err)
	require.Len(t, contacts, 1)
	assert.Equal(t, "Grace", contacts[0].FirstName)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestContactUpcomingBirthdaysLeapDay(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewContactRepository(db)

	// 2025 is not a leap year: the window jumps Feb 28 -> Mar 1, yet a
	// Feb 29 birthdate must still be matched.
	now := time.Date(2025, time.February, 26, 12, 0, 0, 0, time.UTC)
	birthdate := time.Date(1992, time.February, 29, 0, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows(contactColumns()).
		AddRow("c1", "u1", "Grace", "Hopper", birthdate, "F", "", now, now)
	mock.ExpectQuery("EXTRACT\\(MONTH FROM birthdate\\)").
		WithArgs("u1",
			2, 26, 2, 27, 2, 28, 3, 1, 2, 29, 3, 2, 3, 3, 3, 4, 3, 5).
		WillReturnRows(rows)

	contacts, err := repo.UpcomingBirthdays(context.Background(), "u1", 7, now)
	require.NoError(t, err)
	require.Len(t, contacts, 1)
	assert.NoError(t, mock.ExpectationsWereMet())
}
