package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mkravets/contacts-api/internal/models"
	appErrors "github.com/mkravets/contacts-api/pkg/errors"
)

type mockContactRepo struct {
	contacts map[string]*models.Contact
}

func newMockContactRepo(contacts ...*models.Contact) *mockContactRepo {
	m := &mockContactRepo{contacts: map[string]*models.Contact{}}
	for _, c := range contacts {
		m.contacts[c.ID] = c
	}
	return m
}

func (m *mockContactRepo) List(_ context.Context, ownerID string, filter models.ContactFilter) ([]models.Contact, int, error) {
	var out []models.Contact
	for _, c := range m.contacts {
		if c.OwnerID == ownerID {
			out = append(out, *c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	total := len(out)
	if filter.PageSize > 0 {
		page := filter.Page
		if page < 1 {
			page = 1
		}
		start := (page - 1) * filter.PageSize
		if start > total {
			start = total
		}
		end := start + filter.PageSize
		if end > total {
			end = total
		}
		out = out[start:end]
	}
	return out, total, nil
}

func (m *mockContactRepo) FindByID(_ context.Context, ownerID, id string) (*models.Contact, error) {
	if c, ok := m.contacts[id]; ok && c.OwnerID == ownerID {
		return c, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockContactRepo) Create(_ context.Context, contact *models.Contact) error {
	if contact.ID == "" {
		contact.ID = uuid.NewString()
	}
	m.contacts[contact.ID] = contact
	return nil
}

func (m *mockContactRepo) Update(_ context.Context, contact *models.Contact) error {
	existing, ok := m.contacts[contact.ID]
	if !ok || existing.OwnerID != contact.OwnerID {
		return sql.ErrNoRows
	}
	m.contacts[contact.ID] = contact
	return nil
}

func (m *mockContactRepo) Delete(_ context.Context, ownerID, id string) error {
	if c, ok := m.contacts[id]; ok && c.OwnerID == ownerID {
		delete(m.contacts, id)
		return nil
	}
	return sql.ErrNoRows
}

func (m *mockContactRepo) UpcomingBirthdays(_ context.Context, ownerID string, days int, now time.Time) ([]models.Contact, error) {
	window := map[[2]int]bool{}
	for i := 0; i <= days; i++ {
		d := now.AddDate(0, 0, i)
		window[[2]int{int(d.Month()), d.Day()}] = true
	}
	var out []models.Contact
	for _, c := range m.contacts {
		if c.OwnerID != ownerID || c.Birthdate == nil {
			continue
		}
		if window[[2]int{int(c.Birthdate.Month()), c.Birthdate.Day()}] {
			out = append(out, *c)
		}
	}
	return out, nil
}

type mockChannelLister struct {
	byContact map[string][]models.ContactChannel
}

func (m *mockChannelLister) ListByContact(_ context.Context, _, contactID string) ([]models.ContactChannel, error) {
	return m.byContact[contactID], nil
}

func testContact(ownerID string) *models.Contact {
	return &models.Contact{
		ID:        uuid.NewString(),
		OwnerID:   ownerID,
		FirstName: "Grace",
		LastName:  "Hopper",
		Gender:    "F",
	}
}

func TestContactGetScopedToOwner(t *testing.T) {
	contact := testContact("u1")
	svc := NewContactService(newMockContactRepo(contact), &mockChannelLister{}, nil, zap.NewNop())

	got, err := svc.Get(context.Background(), "u1", contact.ID)
	require.NoError(t, err)
	assert.Equal(t, contact.ID, got.ID)

	_, err = svc.Get(context.Background(), "intruder", contact.ID)
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))
}

func TestContactCreateValidation(t *testing.T) {
	svc := NewContactService(newMockContactRepo(), &mockChannelLister{}, nil, zap.NewNop())

	_, err := svc.Create(context.Background(), "u1", models.ContactRequest{FirstName: "Grace"})
	assert.True(t, errors.Is(err, appErrors.ErrValidation))

	_, err = svc.Create(context.Background(), "u1", models.ContactRequest{
		FirstName: "Grace", LastName: "Hopper", Gender: "X",
	})
	assert.True(t, errors.Is(err, appErrors.ErrValidation))

	contact, err := svc.Create(context.Background(), "u1", models.ContactRequest{
		FirstName: "Grace", LastName: "Hopper", Gender: "F",
	})
	require.NoError(t, err)
	assert.Equal(t, "u1", contact.OwnerID)
}

func TestContactUpdateMissing(t *testing.T) {
	svc := NewContactService(newMockContactRepo(), &mockChannelLister{}, nil, zap.NewNop())

	_, err := svc.Update(context.Background(), "u1", uuid.NewString(), models.ContactRequest{
		FirstName: "Grace", LastName: "Hopper", Gender: "F",
	})
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))
}

func TestContactDelete(t *testing.T) {
	contact := testContact("u1")
	svc := NewContactService(newMockContactRepo(contact), &mockChannelLister{}, nil, zap.NewNop())

	require.NoError(t, svc.Delete(context.Background(), "u1", contact.ID))
	err := svc.Delete(context.Background(), "u1", contact.ID)
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))
}

func TestUpcomingBirthdaysDefaultsAndClamp(t *testing.T) {
	now := time.Now().UTC()
	soon := now.AddDate(-30, 0, 3)
	far := now.AddDate(-30, 0, 40)

	c1 := testContact("u1")
	c1.Birthdate = &soon
	c2 := testContact("u1")
	c2.Birthdate = &far

	svc := NewContactService(newMockContactRepo(c1, c2), &mockChannelLister{}, nil, zap.NewNop())

	contacts, err := svc.UpcomingBirthdays(context.Background(), "u1", 0)
	require.NoError(t, err)
	require.Len(t, contacts, 1)
	assert.Equal(t, c1.ID, contacts[0].ID)
}

func TestContactExportCSV(t *testing.T) {
	contact := testContact("u1")
	lister := &mockChannelLister{byContact: map[string][]models.ContactChannel{
		contact.ID: {{Value: "grace@example.com"}, {Value: "+1-555-0100"}},
	}}
	svc := NewContactService(newMockContactRepo(contact), lister, nil, zap.NewNop())

	data, contentType, err := svc.Export(context.Background(), "u1", ExportCSV)
	require.NoError(t, err)
	assert.Equal(t, "text/csv", contentType)

	body := string(data)
	assert.True(t, strings.Contains(body, "Grace"))
	assert.True(t, strings.Contains(body, "grace@example.com; +1-555-0100"))
}

func TestContactExportSpansAllPages(t *testing.T) {
	repo := newMockContactRepo()
	for i := 0; i < 250; i++ {
		c := testContact("u1")
		c.FirstName = fmt.Sprintf("Contact%03d", i)
		repo.contacts[c.ID] = c
	}
	svc := NewContactService(repo, &mockChannelLister{}, nil, zap.NewNop())

	data, _, err := svc.Export(context.Background(), "u1", ExportCSV)
	require.NoError(t, err)

	// Header plus one row per contact, regardless of the pagination ceiling.
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	assert.Len(t, lines, 251)
}

func TestContactExportPDF(t *testing.T) {
	svc := NewContactService(newMockContactRepo(testContact("u1")), &mockChannelLister{}, nil, zap.NewNop())

	data, contentType, err := svc.Export(context.Background(), "u1", ExportPDF)
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", contentType)
	assert.True(t, strings.HasPrefix(string(data), "%PDF"))
}

func TestContactExportUnknownFormat(t *testing.T) {
	svc := NewContactService(newMockContactRepo(), &mockChannelLister{}, nil, zap.NewNop())

	_, _, err := svc.Export(context.Background(), "u1", ExportFormat("xml"))
	assert.True(t, errors.Is(err, appErrors.ErrValidation))
}
