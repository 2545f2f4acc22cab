package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/mkravets/contacts-api/internal/models"
	"github.com/mkravets/contacts-api/internal/repository"
	"github.com/mkravets/contacts-api/internal/token"
	appErrors "github.com/mkravets/contacts-api/pkg/errors"
)

// dummyHash is a valid bcrypt digest compared against when the email is
// unknown, so the response time does not reveal whether the account exists.
const dummyHash = "$2a$10$N9qo8uLOickgx2ZMRZoMyeIjZAgcfl7p92ldGxad68LJZdL17lhWy"

type authUserRepository interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByID(ctx context.Context, id string) (*models.User, error)
	Create(ctx context.Context, user *models.User) error
	SetConfirmed(ctx context.Context, id string) error
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

type confirmationStore interface {
	Create(ctx context.Context, token *models.ConfirmationToken) error
	Consume(ctx context.Context, id string, now time.Time) (*models.ConfirmationToken, error)
}

type sessionLedger interface {
	SetCurrent(ctx context.Context, userID, tokenValue string, ttl time.Duration) error
	Rotate(ctx context.Context, userID, presented, next string, ttl time.Duration) (repository.RotateStatus, error)
	Clear(ctx context.Context, userID string) error
}

type userCache interface {
	GetUser(ctx context.Context, userID string) (*models.User, error)
	SetUser(ctx context.Context, user *models.User, ttl time.Duration) error
	InvalidateUser(ctx context.Context, userID string) error
}

type confirmationMailer interface {
	SendConfirmation(ctx context.Context, user *models.User, tokenValue string) error
}

// AuthConfig defines configuration for authentication flows.
type AuthConfig struct {
	RefreshTTL   time.Duration
	ConfirmTTL   time.Duration
	UserCacheTTL time.Duration
}

// AuthService implements credential verification, token issuance and the
// session-integrity rules around refresh-token rotation.
type AuthService struct {
	users         authUserRepository
	confirmations confirmationStore
	sessions      sessionLedger
	cache         userCache
	mail          confirmationMailer
	codec         *token.Codec
	validator     *validator.Validate
	logger        *zap.Logger
	metrics       *MetricsService
	config        AuthConfig
}

// NewAuthService constructs an AuthService instance.
func NewAuthService(users authUserRepository, confirmations confirmationStore, sessions sessionLedger, cache userCache, mail confirmationMailer, codec *token.Codec, validate *validator.Validate, logger *zap.Logger, cfg AuthConfig) *AuthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &AuthService{
		users:         users,
		confirmations: confirmations,
		sessions:      sessions,
		cache:         cache,
		mail:          mail,
		codec:         codec,
		validator:     validate,
		logger:        logger,
		config:        cfg,
	}
}

// WithMetrics attaches instrumentation. A nil MetricsService is a no-op.
func (s *AuthService) WithMetrics(m *MetricsService) *AuthService {
	s.metrics = m
	return s
}

// Register creates an unconfirmed account and queues the confirmation email.
func (s *AuthService) Register(ctx context.Context, req models.SignupRequest) (*models.SignupResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid signup payload")
	}

	if _, err := s.users.FindByEmail(ctx, req.Email); err == nil {
		return nil, appErrors.Clone(appErrors.ErrConflict, "account already exists")
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check account")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash password")
	}

	user := &models.User{
		Email:        req.Email,
		PasswordHash: string(hash),
		FirstName:    req.FirstName,
		LastName:     req.LastName,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create account")
	}

	if err := s.issueConfirmation(ctx, user); err != nil {
		// Account exists; the user can ask for a fresh confirmation email.
		s.logger.Warn("failed to issue confirmation email", zap.String("user_id", user.ID), zap.Error(err))
	}

	s.audit(ctx, &user.ID, models.AuditActionSignup, req.IP, req.UserAgent)

	return &models.SignupResponse{
		User:   user.Info(),
		Detail: "confirmation email sent",
	}, nil
}

// Login verifies credentials and opens a fresh session: a new token pair is
// issued and the refresh token becomes the single current one for the user.
func (s *AuthService) Login(ctx context.Context, req models.LoginRequest) (*models.LoginResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid login payload")
	}

	user, err := s.users.FindByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			// Burn comparable time before answering.
			_ = bcrypt.CompareHashAndPassword([]byte(dummyHash), []byte(req.Password))
			s.metrics.RecordLogin("failure")
			return nil, appErrors.Clone(appErrors.ErrInvalidCredentials, "")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch user")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		s.metrics.RecordLogin("failure")
		return nil, appErrors.Clone(appErrors.ErrInvalidCredentials, "")
	}

	if !user.Confirmed {
		return nil, appErrors.Clone(appErrors.ErrEmailNotConfirmed, "")
	}

	pair, err := s.issuePair(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	s.metrics.RecordLogin("success")
	s.audit(ctx, &user.ID, models.AuditActionLogin, req.IP, req.UserAgent)

	return &models.LoginResponse{TokenPair: *pair, User: user.Info()}, nil
}

// Refresh exchanges the current refresh token for a new pair. Presenting a
// superseded token invalidates the whole session: the rotation ledger is
// cleared and every outstanding refresh token dies with it.
func (s *AuthService) Refresh(ctx context.Context, req models.RefreshRequest) (*models.TokenPair, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid refresh payload")
	}

	claims, err := s.codec.Verify(req.RefreshToken, token.KindRefresh)
	if err != nil {
		return nil, err
	}
	userID := claims.UserID()

	access, err := s.codec.Issue(userID, token.KindAccess)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create access token")
	}
	refresh, err := s.codec.Issue(userID, token.KindRefresh)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create refresh token")
	}

	status, err := s.sessions.Rotate(ctx, userID, req.RefreshToken, refresh.Value, s.config.RefreshTTL)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to rotate session")
	}
	switch status {
	case repository.RotateOK:
	case repository.RotateMismatch:
		s.logger.Warn("refresh token reuse detected, session invalidated", zap.String("user_id", userID))
		s.metrics.RecordReuseDetected()
		return nil, appErrors.Clone(appErrors.ErrSessionInvalidated, "")
	default:
		return nil, appErrors.Clone(appErrors.ErrSessionInvalidated, "")
	}

	s.metrics.RecordRefresh()
	s.audit(ctx, &userID, models.AuditActionRefresh, req.IP, req.UserAgent)

	return &models.TokenPair{
		AccessToken:  access.Value,
		RefreshToken: refresh.Value,
		TokenType:    "bearer",
		ExpiresIn:    int64(time.Until(access.ExpiresAt).Seconds()),
		IssuedAt:     access.IssuedAt,
	}, nil
}

// Logout closes the user's session. The operation is idempotent: logging
// out twice, or with no session open, still succeeds.
func (s *AuthService) Logout(ctx context.Context, accessToken, ip, userAgent string) error {
	claims, err := s.codec.Verify(accessToken, token.KindAccess)
	if err != nil {
		return err
	}
	userID := claims.UserID()

	if err := s.sessions.Clear(ctx, userID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to clear session")
	}

	s.audit(ctx, &userID, models.AuditActionLogout, ip, userAgent)
	return nil
}

// ConfirmEmail consumes a confirmation token and marks the account
// confirmed. Each token works exactly once; an already confirmed account
// with a spent token is treated as success so repeated clicks on the same
// link do not alarm the user.
func (s *AuthService) ConfirmEmail(ctx context.Context, tokenValue string) error {
	claims, err := s.codec.Verify(tokenValue, token.KindConfirm)
	if err != nil {
		return err
	}

	consumed, err := s.confirmations.Consume(ctx, claims.ID, time.Now().UTC())
	if err != nil {
		if errors.Is(err, appErrors.ErrTokenConsumed) {
			user, findErr := s.users.FindByID(ctx, claims.UserID())
			if findErr == nil && user.Confirmed {
				return nil
			}
		}
		return err
	}

	if consumed.UserID != claims.UserID() {
		return appErrors.Clone(appErrors.ErrMalformedToken, "")
	}

	if err := s.users.SetConfirmed(ctx, consumed.UserID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to confirm account")
	}
	if err := s.cache.InvalidateUser(ctx, consumed.UserID); err != nil {
		s.logger.Warn("failed to invalidate user cache", zap.String("user_id", consumed.UserID), zap.Error(err))
	}

	s.metrics.RecordConfirmation()
	s.audit(ctx, &consumed.UserID, models.AuditActionConfirm, "", "")
	return nil
}

// ResendConfirmation issues a fresh confirmation token for an unconfirmed
// account. The response is uniform whether or not the email exists.
func (s *AuthService) ResendConfirmation(ctx context.Context, req models.ResendConfirmationRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payload")
	}

	user, err := s.users.FindByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch user")
	}
	if user.Confirmed {
		return nil
	}

	if err := s.issueConfirmation(ctx, user); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to send confirmation email")
	}
	return nil
}

// Authorize resolves a bearer token to the authenticated user. Lookups go
// through the user cache and fall back to the database.
func (s *AuthService) Authorize(ctx context.Context, accessToken string) (*models.User, error) {
	claims, err := s.codec.Verify(accessToken, token.KindAccess)
	if err != nil {
		return nil, err
	}
	userID := claims.UserID()

	if user, err := s.cache.GetUser(ctx, userID); err == nil {
		s.metrics.RecordCacheLookup(true)
		return user, nil
	} else if !errors.Is(err, appErrors.ErrCacheMiss) {
		s.logger.Warn("user cache lookup failed", zap.String("user_id", userID), zap.Error(err))
	}
	s.metrics.RecordCacheLookup(false)

	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrUnauthorized, "account no longer exists")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch user")
	}

	if err := s.cache.SetUser(ctx, user, s.config.UserCacheTTL); err != nil {
		s.logger.Warn("failed to cache user", zap.String("user_id", userID), zap.Error(err))
	}
	return user, nil
}

// issuePair signs a fresh access/refresh pair and records the refresh token
// as the session's current one.
func (s *AuthService) issuePair(ctx context.Context, userID string) (*models.TokenPair, error) {
	access, err := s.codec.Issue(userID, token.KindAccess)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create access token")
	}
	refresh, err := s.codec.Issue(userID, token.KindRefresh)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create refresh token")
	}

	if err := s.sessions.SetCurrent(ctx, userID, refresh.Value, s.config.RefreshTTL); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to open session")
	}

	return &models.TokenPair{
		AccessToken:  access.Value,
		RefreshToken: refresh.Value,
		TokenType:    "bearer",
		ExpiresIn:    int64(time.Until(access.ExpiresAt).Seconds()),
		IssuedAt:     access.IssuedAt,
	}, nil
}

// issueConfirmation persists a single-use row and emails the signed token
// whose jti points at it.
func (s *AuthService) issueConfirmation(ctx context.Context, user *models.User) error {
	row := &models.ConfirmationToken{
		UserID:    user.ID,
		ExpiresAt: time.Now().UTC().Add(s.config.ConfirmTTL),
	}
	if err := s.confirmations.Create(ctx, row); err != nil {
		return err
	}

	issued, err := s.codec.IssueWithID(user.ID, row.ID, token.KindConfirm)
	if err != nil {
		return err
	}

	return s.mail.SendConfirmation(ctx, user, issued.Value)
}

func (s *AuthService) audit(ctx context.Context, userID *string, action, ip, userAgent string) {
	log := &models.AuditLog{
		UserID:     userID,
		Action:     action,
		Resource:   "auth",
		ResourceID: userID,
		IPAddress:  ip,
		UserAgent:  userAgent,
	}
	if err := s.users.CreateAuditLog(ctx, log); err != nil {
		s.logger.Warn("failed to record audit log", zap.String("action", action), zap.Error(err))
	}
}
