package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/mkravets/contacts-api/internal/models"
	appErrors "github.com/mkravets/contacts-api/pkg/errors"
)

type contactChannelRepository interface {
	ListByContact(ctx context.Context, ownerID, contactID string) ([]models.ContactChannel, error)
	FindByID(ctx context.Context, ownerID, id string) (*models.ContactChannel, error)
	ValueExists(ctx context.Context, value, excludeID string) (bool, error)
	Create(ctx context.Context, cc *models.ContactChannel) error
	Update(ctx context.Context, cc *models.ContactChannel) error
	Delete(ctx context.Context, ownerID, id string) error
}

type contactFinder interface {
	FindByID(ctx context.Context, ownerID, id string) (*models.Contact, error)
}

type channelFinder interface {
	FindByID(ctx context.Context, id string) (*models.Channel, error)
}

// ContactChannelService manages the contact-point values attached to
// contacts. Ownership of the referenced contact is checked on every write.
type ContactChannelService struct {
	associations contactChannelRepository
	contacts     contactFinder
	channels     channelFinder
	validator    *validator.Validate
	logger       *zap.Logger
}

// NewContactChannelService constructs a ContactChannelService.
func NewContactChannelService(associations contactChannelRepository, contacts contactFinder, channels channelFinder, validate *validator.Validate, logger *zap.Logger) *ContactChannelService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &ContactChannelService{
		associations: associations,
		contacts:     contacts,
		channels:     channels,
		validator:    validate,
		logger:       logger,
	}
}

// ListByContact returns the contact-point values for one contact.
func (s *ContactChannelService) ListByContact(ctx context.Context, ownerID, contactID string) ([]models.ContactChannel, error) {
	if _, err := s.contacts.FindByID(ctx, ownerID, contactID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "contact not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch contact")
	}

	list, err := s.associations.ListByContact(ctx, ownerID, contactID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list contact channels")
	}
	return list, nil
}

// Create attaches a new contact-point value to one of the owner's contacts.
func (s *ContactChannelService) Create(ctx context.Context, ownerID string, req models.ContactChannelRequest) (*models.ContactChannel, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid contact channel payload")
	}

	if _, err := s.contacts.FindByID(ctx, ownerID, req.ContactID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "contact not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch contact")
	}
	if _, err := s.channels.FindByID(ctx, req.ChannelID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "channel not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch channel")
	}

	exists, err := s.associations.ValueExists(ctx, req.Value, "")
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check value")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "value already registered")
	}

	cc := &models.ContactChannel{
		ContactID: req.ContactID,
		ChannelID: req.ChannelID,
		Value:     req.Value,
		OwnerID:   ownerID,
	}
	if err := s.associations.Create(ctx, cc); err != nil {
		// A concurrent insert can slip past the ValueExists check; the
		// UNIQUE constraint is the arbiter.
		if isUniqueViolation(err) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "value already registered")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create contact channel")
	}
	return cc, nil
}

// Update rewrites an association's channel and value. The association must
// belong to the owner; moving it to a different contact is not supported.
func (s *ContactChannelService) Update(ctx context.Context, ownerID, id string, req models.ContactChannelRequest) (*models.ContactChannel, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid contact channel payload")
	}

	existing, err := s.associations.FindByID(ctx, ownerID, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "contact channel not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch contact channel")
	}

	if _, err := s.channels.FindByID(ctx, req.ChannelID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "channel not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch channel")
	}

	exists, err := s.associations.ValueExists(ctx, req.Value, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check value")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "value already registered")
	}

	existing.ChannelID = req.ChannelID
	existing.Value = req.Value
	if err := s.associations.Update(ctx, existing); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "contact channel not found")
		}
		if isUniqueViolation(err) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "value already registered")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update contact channel")
	}
	return existing, nil
}

// Delete removes an association.
func (s *ContactChannelService) Delete(ctx context.Context, ownerID, id string) error {
	if err := s.associations.Delete(ctx, ownerID, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "contact channel not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete contact channel")
	}
	return nil
}
