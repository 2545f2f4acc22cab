package handler

import (
	"context"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mkravets/contacts-api/internal/middleware"
	"github.com/mkravets/contacts-api/internal/models"
	appErrors "github.com/mkravets/contacts-api/pkg/errors"
	"github.com/mkravets/contacts-api/pkg/response"
)

type profileService interface {
	UploadAvatar(ctx context.Context, user *models.User, filename string, r io.Reader) (string, error)
	ResolveAvatar(token string) (string, error)
	DeleteAccount(ctx context.Context, user *models.User) error
}

// UserHandler wires HTTP endpoints for profile management.
type UserHandler struct {
	service profileService
}

// NewUserHandler creates a new handler.
func NewUserHandler(svc profileService) *UserHandler {
	return &UserHandler{service: svc}
}

// Me godoc
// @Summary Current user profile
// @Tags Users
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /users/me [get]
func (h *UserHandler) Me(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	response.JSON(c, http.StatusOK, user.Info(), nil)
}

// UploadAvatar godoc
// @Summary Upload an avatar image
// @Tags Users
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param file formData file true "Avatar image"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /users/me/avatar [patch]
func (h *UserHandler) UploadAvatar(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "avatar file required"))
		return
	}

	f, err := fileHeader.Open()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "unreadable avatar file"))
		return
	}
	defer f.Close()

	url, err := h.service.UploadAvatar(c.Request.Context(), user, fileHeader.Filename, f)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"avatar_url": url}, nil)
}

// Avatar godoc
// @Summary Download an avatar via a signed link
// @Tags Users
// @Produce octet-stream
// @Param token path string true "Signed avatar token"
// @Success 200 {file} binary
// @Failure 401 {object} response.Envelope
// @Router /users/avatar/{token} [get]
func (h *UserHandler) Avatar(c *gin.Context) {
	path, err := h.service.ResolveAvatar(c.Param("token"))
	if err != nil {
		response.Error(c, err)
		return
	}
	c.File(path)
}

// DeleteMe godoc
// @Summary Delete the current account
// @Tags Users
// @Security BearerAuth
// @Success 204 "No Content"
// @Router /users/me [delete]
func (h *UserHandler) DeleteMe(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	if err := h.service.DeleteAccount(c.Request.Context(), user); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
