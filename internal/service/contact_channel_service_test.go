package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mkravets/contacts-api/internal/models"
	appErrors "github.com/mkravets/contacts-api/pkg/errors"
)

type mockAssociationRepo struct {
	rows      map[string]*models.ContactChannel
	createErr error
}

func newMockAssociationRepo(rows ...*models.ContactChannel) *mockAssociationRepo {
	m := &mockAssociationRepo{rows: map[string]*models.ContactChannel{}}
	for _, r := range rows {
		m.rows[r.ID] = r
	}
	return m
}

func (m *mockAssociationRepo) ListByContact(_ context.Context, ownerID, contactID string) ([]models.ContactChannel, error) {
	var out []models.ContactChannel
	for _, r := range m.rows {
		if r.OwnerID == ownerID && r.ContactID == contactID {
			out = append(out, *r)
		}
	}
	return out, nil
}

func (m *mockAssociationRepo) FindByID(_ context.Context, ownerID, id string) (*models.ContactChannel, error) {
	if r, ok := m.rows[id]; ok && r.OwnerID == ownerID {
		clone := *r
		return &clone, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockAssociationRepo) ValueExists(_ context.Context, value, excludeID string) (bool, error) {
	for _, r := range m.rows {
		if r.Value == value && r.ID != excludeID {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockAssociationRepo) Create(_ context.Context, cc *models.ContactChannel) error {
	if m.createErr != nil {
		return m.createErr
	}
	if cc.ID == "" {
		cc.ID = uuid.NewString()
	}
	m.rows[cc.ID] = cc
	return nil
}

func (m *mockAssociationRepo) Update(_ context.Context, cc *models.ContactChannel) error {
	if r, ok := m.rows[cc.ID]; ok && r.OwnerID == cc.OwnerID {
		m.rows[cc.ID] = cc
		return nil
	}
	return sql.ErrNoRows
}

func (m *mockAssociationRepo) Delete(_ context.Context, ownerID, id string) error {
	if r, ok := m.rows[id]; ok && r.OwnerID == ownerID {
		delete(m.rows, id)
		return nil
	}
	return sql.ErrNoRows
}

type mockChannelFinder struct {
	channels map[string]*models.Channel
}

func (m *mockChannelFinder) FindByID(_ context.Context, id string) (*models.Channel, error) {
	if c, ok := m.channels[id]; ok {
		return c, nil
	}
	return nil, sql.ErrNoRows
}

type associationFixture struct {
	svc     *ContactChannelService
	repo    *mockAssociationRepo
	contact *models.Contact
	channel *models.Channel
}

func newAssociationFixture() *associationFixture {
	contact := testContact("u1")
	channel := &models.Channel{ID: uuid.NewString(), Name: models.ChannelEmail}
	repo := newMockAssociationRepo()
	svc := NewContactChannelService(
		repo,
		newMockContactRepo(contact),
		&mockChannelFinder{channels: map[string]*models.Channel{channel.ID: channel}},
		nil, zap.NewNop(),
	)
	return &associationFixture{svc: svc, repo: repo, contact: contact, channel: channel}
}

func TestContactChannelCreateChecksOwnership(t *testing.T) {
	f := newAssociationFixture()

	req := models.ContactChannelRequest{ContactID: f.contact.ID, ChannelID: f.channel.ID, Value: "grace@example.com"}

	_, err := f.svc.Create(context.Background(), "intruder", req)
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))

	cc, err := f.svc.Create(context.Background(), "u1", req)
	require.NoError(t, err)
	assert.Equal(t, "u1", cc.OwnerID)
}

func TestContactChannelCreateDuplicateValue(t *testing.T) {
	f := newAssociationFixture()

	req := models.ContactChannelRequest{ContactID: f.contact.ID, ChannelID: f.channel.ID, Value: "grace@example.com"}
	_, err := f.svc.Create(context.Background(), "u1", req)
	require.NoError(t, err)

	_, err = f.svc.Create(context.Background(), "u1", req)
	assert.True(t, errors.Is(err, appErrors.ErrConflict))
}

func TestContactChannelCreateMapsUniqueViolation(t *testing.T) {
	f := newAssociationFixture()

	// The pre-check saw no duplicate, but a concurrent insert won the
	// race and the constraint fired on write.
	f.repo.createErr = fmt.Errorf("create contact channel: %w", &pq.Error{Code: "23505"})

	_, err := f.svc.Create(context.Background(), "u1", models.ContactChannelRequest{
		ContactID: f.contact.ID, ChannelID: f.channel.ID, Value: "grace@example.com",
	})
	assert.True(t, errors.Is(err, appErrors.ErrConflict))
}

func TestContactChannelCreateUnknownChannel(t *testing.T) {
	f := newAssociationFixture()

	_, err := f.svc.Create(context.Background(), "u1", models.ContactChannelRequest{
		ContactID: f.contact.ID, ChannelID: uuid.NewString(), Value: "grace@example.com",
	})
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))
}

func TestContactChannelUpdateAllowsKeepingOwnValue(t *testing.T) {
	f := newAssociationFixture()

	cc, err := f.svc.Create(context.Background(), "u1", models.ContactChannelRequest{
		ContactID: f.contact.ID, ChannelID: f.channel.ID, Value: "grace@example.com",
	})
	require.NoError(t, err)

	// Re-submitting the same value is not a conflict with itself.
	updated, err := f.svc.Update(context.Background(), "u1", cc.ID, models.ContactChannelRequest{
		ContactID: f.contact.ID, ChannelID: f.channel.ID, Value: "grace@example.com",
	})
	require.NoError(t, err)
	assert.Equal(t, cc.ID, updated.ID)
}

func TestContactChannelDeleteScopedToOwner(t *testing.T) {
	f := newAssociationFixture()

	cc, err := f.svc.Create(context.Background(), "u1", models.ContactChannelRequest{
		ContactID: f.contact.ID, ChannelID: f.channel.ID, Value: "grace@example.com",
	})
	require.NoError(t, err)

	err = f.svc.Delete(context.Background(), "intruder", cc.ID)
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))

	require.NoError(t, f.svc.Delete(context.Background(), "u1", cc.ID))
}
