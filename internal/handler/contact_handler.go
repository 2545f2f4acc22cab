package handler

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/mkravets/contacts-api/internal/middleware"
	"github.com/mkravets/contacts-api/internal/models"
	"github.com/mkravets/contacts-api/internal/service"
	appErrors "github.com/mkravets/contacts-api/pkg/errors"
	"github.com/mkravets/contacts-api/pkg/response"
)

type contactService interface {
	List(ctx context.Context, ownerID string, filter models.ContactFilter) ([]models.Contact, *models.Pagination, error)
	Get(ctx context.Context, ownerID, id string) (*models.Contact, error)
	Create(ctx context.Context, ownerID string, req models.ContactRequest) (*models.Contact, error)
	Update(ctx context.Context, ownerID, id string, req models.ContactRequest) (*models.Contact, error)
	Delete(ctx context.Context, ownerID, id string) error
	UpcomingBirthdays(ctx context.Context, ownerID string, days int) ([]models.Contact, error)
	Export(ctx context.Context, ownerID string, format service.ExportFormat) ([]byte, string, error)
}

// ContactHandler wires HTTP endpoints to the contact service.
type ContactHandler struct {
	service contactService
}

// NewContactHandler creates a new handler.
func NewContactHandler(svc contactService) *ContactHandler {
	return &ContactHandler{service: svc}
}

// List godoc
// @Summary List contacts
// @Description List the caller's contacts with filtering and pagination
// @Tags Contacts
// @Produce json
// @Security BearerAuth
// @Param first_name query string false "Filter by first name"
// @Param last_name query string false "Filter by last name"
// @Param channel_value query string false "Filter by contact-point value"
// @Param page query int false "Page number"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /contacts [get]
func (h *ContactHandler) List(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	filter := models.ContactFilter{
		FirstName:    c.Query("first_name"),
		LastName:     c.Query("last_name"),
		ChannelValue: c.Query("channel_value"),
		Page:         queryInt(c, "page", 1),
		PageSize:     queryInt(c, "page_size", 20),
	}

	contacts, pagination, err := h.service.List(c.Request.Context(), user.ID, filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, contacts, pagination)
}

// Get godoc
// @Summary Get a contact
// @Tags Contacts
// @Produce json
// @Security BearerAuth
// @Param id path string true "Contact id"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /contacts/{id} [get]
func (h *ContactHandler) Get(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	contact, err := h.service.Get(c.Request.Context(), user.ID, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, contact, nil)
}

// Create godoc
// @Summary Create a contact
// @Tags Contacts
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body models.ContactRequest true "Contact payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /contacts [post]
func (h *ContactHandler) Create(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req models.ContactRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid contact payload"))
		return
	}

	contact, err := h.service.Create(c.Request.Context(), user.ID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, contact)
}

// Update godoc
// @Summary Update a contact
// @Tags Contacts
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Contact id"
// @Param payload body models.ContactRequest true "Contact payload"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /contacts/{id} [put]
func (h *ContactHandler) Update(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req models.ContactRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid contact payload"))
		return
	}

	contact, err := h.service.Update(c.Request.Context(), user.ID, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, contact, nil)
}

// Delete godoc
// @Summary Delete a contact
// @Tags Contacts
// @Security BearerAuth
// @Param id path string true "Contact id"
// @Success 204 "No Content"
// @Failure 404 {object} response.Envelope
// @Router /contacts/{id} [delete]
func (h *ContactHandler) Delete(c *gin.Context) {
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

// Birthdays godoc
// @Summary Upcoming birthdays
// @Description Contacts whose birthday falls within the next days
// @Tags Contacts
// @Produce json
// @Security BearerAuth
// @Param days query int false "Window size in days (default 7)"
// @Success 200 {object} response.Envelope
// @Router /contacts/birthdays [get]
func (h *ContactHandler) Birthdays(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	contacts, err := h.service.UpcomingBirthdays(c.Request.Context(), user.ID, queryInt(c, "days", 7))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, contacts, nil)
}

// Export godoc
// @Summary Export contacts
// @Description Download the address book as CSV or PDF
// @Tags Contacts
// @Produce octet-stream
// @Security BearerAuth
// @Param format query string false "csv or pdf (default csv)"
// @Success 200 {file} binary
// @Router /contacts/export [get]
func (h *ContactHandler) Export(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	format := service.ExportFormat(c.DefaultQuery("format", "csv"))
	data, contentType, err := h.service.Export(c.Request.Context(), user.ID, format)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=contacts.%s", format))
	c.Data(http.StatusOK, contentType, data)
}

func queryInt(c *gin.Context, name string, fallback int) int {
	raw := c.Query(name)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return n
}
