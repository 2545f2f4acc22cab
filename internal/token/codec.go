// Package token implements the signed-token codec used for access, refresh
// and email-confirmation tokens. Tokens are HS256 JWTs carrying a type tag so
// one kind can never be replayed as another.
package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	appErrors "github.com/mkravets/contacts-api/pkg/errors"
)

// Kind tags a token with its purpose.
type Kind string

const (
	KindAccess  Kind = "access"
	KindRefresh Kind = "refresh"
	KindConfirm Kind = "confirm"
)

// Config holds the signing secret and per-kind lifetimes. It is constructed
// explicitly and injected, never read from ambient globals, so tests can use
// distinct keys per case.
type Config struct {
	Secret     string
	Issuer     string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
	ConfirmTTL time.Duration
}

// Claims is the payload embedded in every issued token.
type Claims struct {
	Kind Kind `json:"typ"`
	jwt.RegisteredClaims
}

// UserID returns the token subject.
func (c *Claims) UserID() string {
	return c.Subject
}

// Issued describes a freshly signed token.
type Issued struct {
	Value     string
	ID        string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// Codec signs and verifies tokens. All operations are pure; a Codec is safe
// for concurrent use.
type Codec struct {
	config Config
}

// NewCodec validates the configuration and returns a codec.
func NewCodec(cfg Config) (*Codec, error) {
	if cfg.Secret == "" {
		return nil, errors.New("token codec requires a signing secret")
	}
	if cfg.AccessTTL <= 0 || cfg.RefreshTTL <= 0 || cfg.ConfirmTTL <= 0 {
		return nil, errors.New("token codec requires positive TTLs")
	}
	return &Codec{config: cfg}, nil
}

// Issue signs a new token of the given kind for the subject.
func (c *Codec) Issue(subject string, kind Kind) (Issued, error) {
	ttl, err := c.ttlFor(kind)
	if err != nil {
		return Issued{}, err
	}

	issuedAt := time.Now().UTC()
	expiresAt := issuedAt.Add(ttl)
	id := uuid.NewString()

	claims := &Claims{
		Kind: kind,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        id,
			Issuer:    c.config.Issuer,
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			NotBefore: jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(c.config.Secret))
	if err != nil {
		return Issued{}, fmt.Errorf("sign %s token: %w", kind, err)
	}

	return Issued{Value: signed, ID: id, IssuedAt: issuedAt, ExpiresAt: expiresAt}, nil
}

// IssueWithID signs a token whose jti is supplied by the caller. Used for
// confirmation tokens, where the jti references the persisted single-use row.
func (c *Codec) IssueWithID(subject, id string, kind Kind) (Issued, error) {
	ttl, err := c.ttlFor(kind)
	if err != nil {
		return Issued{}, err
	}

	issuedAt := time.Now().UTC()
	expiresAt := issuedAt.Add(ttl)

	claims := &Claims{
		Kind: kind,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        id,
			Issuer:    c.config.Issuer,
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			NotBefore: jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(c.config.Secret))
	if err != nil {
		return Issued{}, fmt.Errorf("sign %s token: %w", kind, err)
	}

	return Issued{Value: signed, ID: id, IssuedAt: issuedAt, ExpiresAt: expiresAt}, nil
}

// Verify checks signature, structure, expiry and the embedded type tag. The
// expiry boundary is inclusive: a token whose exp equals the current instant
// is already expired. There is no leeway.
func (c *Codec) Verify(value string, want Kind) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(value, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(c.config.Secret), nil
	}, jwt.WithoutClaimsValidation())
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrMalformedToken.Code, appErrors.ErrMalformedToken.Status, appErrors.ErrMalformedToken.Message)
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, appErrors.Clone(appErrors.ErrMalformedToken, "")
	}
	if claims.Subject == "" || claims.ExpiresAt == nil {
		return nil, appErrors.Clone(appErrors.ErrMalformedToken, "")
	}

	if claims.Kind != want {
		return nil, appErrors.Clone(appErrors.ErrTokenTypeMismatch, "")
	}

	if !time.Now().UTC().Before(claims.ExpiresAt.Time) {
		return nil, appErrors.Clone(appErrors.ErrTokenExpired, "")
	}

	return claims, nil
}

func (c *Codec) ttlFor(kind Kind) (time.Duration, error) {
	switch kind {
	case KindAccess:
		return c.config.AccessTTL, nil
	case KindRefresh:
		return c.config.RefreshTTL, nil
	case KindConfirm:
		return c.config.ConfirmTTL, nil
	default:
		return 0, fmt.Errorf("unknown token kind %q", kind)
	}
}
