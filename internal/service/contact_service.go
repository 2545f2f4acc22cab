package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/mkravets/contacts-api/internal/models"
	appErrors "github.com/mkravets/contacts-api/pkg/errors"
	"github.com/mkravets/contacts-api/pkg/export"
)

type contactRepository interface {
	List(ctx context.Context, ownerID string, filter models.ContactFilter) ([]models.Contact, int, error)
	FindByID(ctx context.Context, ownerID, id string) (*models.Contact, error)
	Create(ctx context.Context, contact *models.Contact) error
	Update(ctx context.Context, contact *models.Contact) error
	Delete(ctx context.Context, ownerID, id string) error
	UpcomingBirthdays(ctx context.Context, ownerID string, days int, now time.Time) ([]models.Contact, error)
}

type contactChannelLister interface {
	ListByContact(ctx context.Context, ownerID, contactID string) ([]models.ContactChannel, error)
}

// ContactService implements the address-book use cases. Every operation is
// scoped to the authenticated owner.
type ContactService struct {
	contacts  contactRepository
	channels  contactChannelLister
	validator *validator.Validate
	logger    *zap.Logger
}

// NewContactService constructs a ContactService.
func NewContactService(contacts contactRepository, channels contactChannelLister, validate *validator.Validate, logger *zap.Logger) *ContactService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &ContactService{contacts: contacts, channels: channels, validator: validate, logger: logger}
}

// List returns the owner's contacts with pagination metadata.
func (s *ContactService) List(ctx context.Context, ownerID string, filter models.ContactFilter) ([]models.Contact, *models.Pagination, error) {
	contacts, total, err := s.contacts.List(ctx, ownerID, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list contacts")
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	return contacts, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Get returns a single contact.
func (s *ContactService) Get(ctx context.Context, ownerID, id string) (*models.Contact, error) {
	contact, err := s.contacts.FindByID(ctx, ownerID, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "contact not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch contact")
	}
	return contact, nil
}

// Create validates and stores a new contact for the owner.
func (s *ContactService) Create(ctx context.Context, ownerID string, req models.ContactRequest) (*models.Contact, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid contact payload")
	}

	contact := &models.Contact{
		OwnerID:    ownerID,
		FirstName:  req.FirstName,
		LastName:   req.LastName,
		Birthdate:  req.Birthdate,
		Gender:     req.Gender,
		Persuasion: req.Persuasion,
	}
	if err := s.contacts.Create(ctx, contact); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create contact")
	}
	return contact, nil
}

// Update rewrites an existing contact.
func (s *ContactService) Update(ctx context.Context, ownerID, id string, req models.ContactRequest) (*models.Contact, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid contact payload")
	}

	contact := &models.Contact{
		ID:         id,
		OwnerID:    ownerID,
		FirstName:  req.FirstName,
		LastName:   req.LastName,
		Birthdate:  req.Birthdate,
		Gender:     req.Gender,
		Persuasion: req.Persuasion,
	}
	if err := s.contacts.Update(ctx, contact); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "contact not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update contact")
	}
	return s.Get(ctx, ownerID, id)
}

// Delete removes a contact.
func (s *ContactService) Delete(ctx context.Context, ownerID, id string) error {
	if err := s.contacts.Delete(ctx, ownerID, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "contact not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete contact")
	}
	return nil
}

// UpcomingBirthdays returns contacts whose birthday falls within the next
// `days` days, today included. Year boundaries are handled.
func (s *ContactService) UpcomingBirthdays(ctx context.Context, ownerID string, days int) ([]models.Contact, error) {
	if days <= 0 {
		days = 7
	}
	if days > 366 {
		days = 366
	}
	contacts, err := s.contacts.UpcomingBirthdays(ctx, ownerID, days, time.Now().UTC())
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to query birthdays")
	}
	return contacts, nil
}

// ExportFormat selects the output encoding of an export.
type ExportFormat string

const (
	ExportCSV ExportFormat = "csv"
	ExportPDF ExportFormat = "pdf"
)

// exportPageSize matches the repository's pagination ceiling.
const exportPageSize = 100

// Export renders the owner's full address book as CSV or PDF, one row per
// contact with the channel values folded into a single column.
func (s *ContactService) Export(ctx context.Context, ownerID string, format ExportFormat) ([]byte, string, error) {
	var contacts []models.Contact
	for page := 1; ; page++ {
		batch, total, err := s.contacts.List(ctx, ownerID, models.ContactFilter{Page: page, PageSize: exportPageSize})
		if err != nil {
			return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list contacts")
		}
		contacts = append(contacts, batch...)
		if len(batch) == 0 || len(contacts) >= total {
			break
		}
	}

	table := export.Table{
		Title:   "Contacts",
		Columns: []string{"First name", "Last name", "Birthdate", "Gender", "Persuasion", "Channels"},
	}
	for _, c := range contacts {
		birthdate := ""
		if c.Birthdate != nil {
			birthdate = c.Birthdate.Format("2006-01-02")
		}

		values, err := s.channels.ListByContact(ctx, ownerID, c.ID)
		if err != nil {
			return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list contact channels")
		}
		points := make([]string, 0, len(values))
		for _, v := range values {
			points = append(points, v.Value)
		}

		table.Rows = append(table.Rows, []string{
			c.FirstName, c.LastName, birthdate, c.Gender, c.Persuasion, strings.Join(points, "; "),
		})
	}

	switch format {
	case ExportCSV:
		data, err := export.CSV(table)
		if err != nil {
			return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render csv")
		}
		return data, "text/csv", nil
	case ExportPDF:
		data, err := export.PDF(table)
		if err != nil {
			return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render pdf")
		}
		return data, "application/pdf", nil
	default:
		return nil, "", appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported export format %q", format))
	}
}
