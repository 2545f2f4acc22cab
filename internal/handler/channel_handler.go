package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mkravets/contacts-api/internal/models"
	appErrors "github.com/mkravets/contacts-api/pkg/errors"
	"github.com/mkravets/contacts-api/pkg/response"
)

type channelService interface {
	List(ctx context.Context) ([]models.Channel, error)
	Get(ctx context.Context, id string) (*models.Channel, error)
	Create(ctx context.Context, req models.ChannelRequest) (*models.Channel, error)
	Update(ctx context.Context, id string, req models.ChannelRequest) (*models.Channel, error)
	Delete(ctx context.Context, id string) error
}

// ChannelHandler wires HTTP endpoints to the channel catalog.
type ChannelHandler struct {
	service channelService
}

// NewChannelHandler creates a new handler.
func NewChannelHandler(svc channelService) *ChannelHandler {
	return &ChannelHandler{service: svc}
}

// List godoc
// @Summary List channels
// @Tags Channels
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /channels [get]
func (h *ChannelHandler) List(c *gin.Context) {
	channels, err := h.service.List(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, channels, nil)
}

// Get godoc
// @Summary Get a channel
// @Tags Channels
// @Produce json
// @Security BearerAuth
// @Param id path string true "Channel id"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /channels/{id} [get]
func (h *ChannelHandler) Get(c *gin.Context) {
	channel, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, channel, nil)
}

// Create godoc
// @Summary Add a channel kind
// @Tags Channels
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body models.ChannelRequest true "Channel payload"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /channels [post]
func (h *ChannelHandler) Create(c *gin.Context) {
	var req models.ChannelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid channel payload"))
		return
	}

	channel, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, channel)
}

// Update godoc
// @Summary Rename a channel kind
// @Tags Channels
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Channel id"
// @Param payload body models.ChannelRequest true "Channel payload"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /channels/{id} [put]
func (h *ChannelHandler) Update(c *gin.Context) {
	var req models.ChannelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid channel payload"))
		return
	}

	channel, err := h.service.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, channel, nil)
}

// Delete godoc
// @Summary Remove a channel kind
// @Tags Channels
// @Security BearerAuth
// @Param id path string true "Channel id"
// @Success 204 "No Content"
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /channels/{id} [delete]
func (h *ChannelHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
