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

type channelRepository interface {
	List(ctx context.Context) ([]models.Channel, error)
	FindByID(ctx context.Context, id string) (*models.Channel, error)
	FindByName(ctx context.Context, name models.ChannelKind) (*models.Channel, error)
	Create(ctx context.Context, channel *models.Channel) error
	Update(ctx context.Context, channel *models.Channel) error
	Delete(ctx context.Context, id string) error
}

// ChannelService exposes the read-mostly channel catalog.
type ChannelService struct {
	channels  channelRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewChannelService constructs a ChannelService.
func NewChannelService(channels channelRepository, validate *validator.Validate, logger *zap.Logger) *ChannelService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &ChannelService{channels: channels, validator: validate, logger: logger}
}

// List returns all channels.
func (s *ChannelService) List(ctx context.Context) ([]models.Channel, error) {
	channels, err := s.channels.List(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list channels")
	}
	return channels, nil
}

// Get returns a single channel.
func (s *ChannelService) Get(ctx context.Context, id string) (*models.Channel, error) {
	channel, err := s.channels.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "channel not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch channel")
	}
	return channel, nil
}

// Create adds a channel kind to the catalog. Names are unique.
func (s *ChannelService) Create(ctx context.Context, req models.ChannelRequest) (*models.Channel, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid channel payload")
	}

	if _, err := s.channels.FindByName(ctx, req.Name); err == nil {
		return nil, appErrors.Clone(appErrors.ErrConflict, "channel already exists")
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check channel")
	}

	channel := &models.Channel{Name: req.Name}
	if err := s.channels.Create(ctx, channel); err != nil {
		if isUniqueViolation(err) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "channel already exists")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create channel")
	}
	return channel, nil
}

// Update renames a channel kind. The new name must stay unique.
func (s *ChannelService) Update(ctx context.Context, id string, req models.ChannelRequest) (*models.Channel, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid channel payload")
	}

	channel, err := s.channels.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "channel not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch channel")
	}

	if existing, err := s.channels.FindByName(ctx, req.Name); err == nil {
		if existing.ID != id {
			return nil, appErrors.Clone(appErrors.ErrConflict, "channel already exists")
		}
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check channel")
	}

	channel.Name = req.Name
	if err := s.channels.Update(ctx, channel); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "channel not found")
		}
		if isUniqueViolation(err) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "channel already exists")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update channel")
	}
	return channel, nil
}

// Delete removes a channel kind. A channel still referenced by contact
// channels cannot be removed.
func (s *ChannelService) Delete(ctx context.Context, id string) error {
	if err := s.channels.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "channel not found")
		}
		if isForeignKeyViolation(err) {
			return appErrors.Clone(appErrors.ErrConflict, "channel is in use")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete channel")
	}
	return nil
}
