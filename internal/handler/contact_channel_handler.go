package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mkravets/contacts-api/internal/middleware"
	"github.com/mkravets/contacts-api/internal/models"
	appErrors "github.com/mkravets/contacts-api/pkg/errors"
	"github.com/mkravets/contacts-api/pkg/response"
)

type contactChannelService interface {
	ListByContact(ctx context.Context, ownerID, contactID string) ([]models.ContactChannel, error)
	Create(ctx context.Context, ownerID string, req models.ContactChannelRequest) (*models.ContactChannel, error)
	Update(ctx context.Context, ownerID, id string, req models.ContactChannelRequest) (*models.ContactChannel, error)
	Delete(ctx context.Context, ownerID, id string) error
}

// ContactChannelHandler wires HTTP endpoints to contact-point associations.
type ContactChannelHandler struct {
	service contactChannelService
}

// NewContactChannelHandler creates a new handler.
func NewContactChannelHandler(svc contactChannelService) *ContactChannelHandler {
	return &ContactChannelHandler{service: svc}
}

// ListByContact godoc
// @Summary List a contact's channels
// @Tags ContactChannels
// @Produce json
// @Security BearerAuth
// @Param id path string true "Contact id"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /contacts/{id}/channels [get]
func (h *ContactChannelHandler) ListByContact(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	list, err := h.service.ListByContact(c.Request.Context(), user.ID, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, list, nil)
}

// Create godoc
// @Summary Attach a contact-point value
// @Tags ContactChannels
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body models.ContactChannelRequest true "Association payload"
// @Success 201 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /contact-channels [post]
func (h *ContactChannelHandler) Create(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req models.ContactChannelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid contact channel payload"))
		return
	}

	cc, err := h.service.Create(c.Request.Context(), user.ID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, cc)
}

// Update godoc
// @Summary Update a contact-point value
// @Tags ContactChannels
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Association id"
// @Param payload body models.ContactChannelRequest true "Association payload"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /contact-channels/{id} [put]
func (h *ContactChannelHandler) Update(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req models.ContactChannelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid contact channel payload"))
		return
	}

	cc, err := h.service.Update(c.Request.Context(), user.ID, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, cc, nil)
}

// Delete godoc
// @Summary Remove a contact-point value
// @Tags ContactChannels
// @Security BearerAuth
// @Param id path string true "Association id"
// @Success 204 "No Content"
// @Failure 404 {object} response.Envelope
// @Router /contact-channels/{id} [delete]
func (h *ContactChannelHandler) Delete(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	if err := h.service.Delete(c.Request.Context(), user.ID, c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
