package service

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mkravets/contacts-api/internal/models"
	"github.com/mkravets/contacts-api/internal/repository"
	appErrors "github.com/mkravets/contacts-api/pkg/errors"
	"github.com/mkravets/contacts-api/pkg/storage"
)

type mockProfileRepo struct {
	avatarURL    string
	deletedEmail string
}

func (m *mockProfileRepo) UpdateAvatar(_ context.Context, _, url string) error {
	m.avatarURL = url
	return nil
}

func (m *mockProfileRepo) DeleteByEmail(_ context.Context, email string) error {
	m.deletedEmail = email
	return nil
}

type mockLedger struct {
	cleared []string
}

func (m *mockLedger) SetCurrent(_ context.Context, _, _ string, _ time.Duration) error {
	return nil
}

func (m *mockLedger) Rotate(_ context.Context, _, _, _ string, _ time.Duration) (repository.RotateStatus, error) {
	return repository.RotateOK, nil
}

func (m *mockLedger) Clear(_ context.Context, userID string) error {
	m.cleared = append(m.cleared, userID)
	return nil
}

func profileFixture(t *testing.T) (*UserService, *mockProfileRepo, *mockLedger, string) {
	t.Helper()
	dir := t.TempDir()
	store, err := storage.NewLocalStorage(dir)
	require.NoError(t, err)
	signer := storage.NewSignedURLSigner("test-secret", time.Hour)

	users := &mockProfileRepo{}
	ledger := &mockLedger{}
	svc := NewUserService(users, newMockCache(), ledger, store, signer, zap.NewNop())
	return svc, users, ledger, dir
}

func TestUploadAvatarStoresFile(t *testing.T) {
	svc, users, _, dir := profileFixture(t)
	user := &models.User{ID: "u1", Email: "grace@example.com"}

	url, err := svc.UploadAvatar(context.Background(), user, "portrait.png", strings.NewReader("binary-image-bytes"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(url, "/api/v1/users/avatar/"))
	assert.Equal(t, url, users.avatarURL)

	entries, err := os.ReadDir(filepath.Join(dir, "avatars", "u1"))
	require.NoError(t, err)
	require.Len(t, entries, 1)
}

func TestUploadAvatarRejectsUnsupportedExtension(t *testing.T) {
	svc, _, _, _ := profileFixture(t)
	user := &models.User{ID: "u1"}

	_, err := svc.UploadAvatar(context.Background(), user, "notes.txt", strings.NewReader("plain text"))
	assert.True(t, errors.Is(err, appErrors.ErrValidation))
}

func TestUploadAvatarRejectsOversized(t *testing.T) {
	svc, users, _, dir := profileFixture(t)
	user := &models.User{ID: "u1"}

	oversized := bytes.NewReader(make([]byte, maxAvatarBytes+1<<20))
	_, err := svc.UploadAvatar(context.Background(), user, "huge.png", oversized)
	assert.True(t, errors.Is(err, appErrors.ErrValidation))
	assert.Empty(t, users.avatarURL)

	// The partial write must not survive the rejection.
	entries, readErr := os.ReadDir(filepath.Join(dir, "avatars", "u1"))
	if readErr == nil {
		assert.Empty(t, entries)
	}
}

func TestUploadAvatarAcceptsExactLimit(t *testing.T) {
	svc, _, _, _ := profileFixture(t)
	user := &models.User{ID: "u1"}

	exact := bytes.NewReader(make([]byte, maxAvatarBytes))
	_, err := svc.UploadAvatar(context.Background(), user, "full.png", exact)
	assert.NoError(t, err)
}

func TestDeleteAccountClosesSessionAndCache(t *testing.T) {
	svc, users, ledger, _ := profileFixture(t)
	user := &models.User{ID: "u1", Email: "grace@example.com"}

	require.NoError(t, svc.DeleteAccount(context.Background(), user))
	assert.Equal(t, "grace@example.com", users.deletedEmail)
	assert.Equal(t, []string{"u1"}, ledger.cleared)
}
