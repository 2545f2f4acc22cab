package service

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mkravets/contacts-api/internal/models"
	appErrors "github.com/mkravets/contacts-api/pkg/errors"
	"github.com/mkravets/contacts-api/pkg/storage"
)

const maxAvatarBytes = 5 << 20

var allowedAvatarExtensions = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".webp": true,
}

type profileRepository interface {
	UpdateAvatar(ctx context.Context, id, url string) error
	DeleteByEmail(ctx context.Context, email string) error
}

// UserService covers profile management: avatar upload and account removal.
type UserService struct {
	users    profileRepository
	cache    userCache
	sessions sessionLedger
	storage  *storage.LocalStorage
	signer   *storage.SignedURLSigner
	logger   *zap.Logger
}

// NewUserService constructs a UserService.
func NewUserService(users profileRepository, cache userCache, sessions sessionLedger, store *storage.LocalStorage, signer *storage.SignedURLSigner, logger *zap.Logger) *UserService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UserService{users: users, cache: cache, sessions: sessions, storage: store, signer: signer, logger: logger}
}

// UploadAvatar stores the image and records a signed URL on the profile.
func (s *UserService) UploadAvatar(ctx context.Context, user *models.User, filename string, r io.Reader) (string, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	if !allowedAvatarExtensions[ext] {
		return "", appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported avatar format %q", ext))
	}

	relPath := fmt.Sprintf("avatars/%s/%s%s", user.ID, uuid.NewString(), ext)
	// One byte of headroom past the cap distinguishes "exactly at the limit"
	// from "too large" without buffering the whole upload.
	written, err := s.storage.SaveStream(relPath, io.LimitReader(r, maxAvatarBytes+1))
	if err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store avatar")
	}
	if written > maxAvatarBytes {
		if err := s.storage.Delete(relPath); err != nil {
			s.logger.Warn("failed to remove oversized avatar", zap.String("path", relPath), zap.Error(err))
		}
		return "", appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("avatar exceeds the %d byte limit", maxAvatarBytes))
	}

	signed, _, err := s.signer.Generate(user.ID, relPath)
	if err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign avatar url")
	}
	url := fmt.Sprintf("/api/v1/users/avatar/%s", signed)

	if err := s.users.UpdateAvatar(ctx, user.ID, url); err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update avatar")
	}
	if err := s.cache.InvalidateUser(ctx, user.ID); err != nil {
		s.logger.Warn("failed to invalidate user cache", zap.String("user_id", user.ID), zap.Error(err))
	}
	return url, nil
}

// ResolveAvatar validates a signed avatar token and returns the stored file
// path for serving.
func (s *UserService) ResolveAvatar(token string) (string, error) {
	_, relPath, _, err := s.signer.Parse(token)
	if err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, "invalid avatar link")
	}
	return s.storage.Path(relPath), nil
}

// DeleteAccount removes the account, closes its session and drops its
// cached record. Owned contacts cascade in the database.
func (s *UserService) DeleteAccount(ctx context.Context, user *models.User) error {
	if err := s.users.DeleteByEmail(ctx, user.Email); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete account")
	}
	if err := s.sessions.Clear(ctx, user.ID); err != nil {
		s.logger.Warn("failed to clear session", zap.String("user_id", user.ID), zap.Error(err))
	}
	if err := s.cache.InvalidateUser(ctx, user.ID); err != nil {
		s.logger.Warn("failed to invalidate user cache", zap.String("user_id", user.ID), zap.Error(err))
	}
	return nil
}
