package token

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/mkravets/contacts-api/pkg/errors"
)

func testConfig() Config {
	return Config{
		Secret:     "test-secret",
		Issuer:     "contacts-api-test",
		AccessTTL:  time.Minute,
		RefreshTTL: time.Hour,
		ConfirmTTL: time.Hour,
	}
}

func newTestCodec(t *testing.T, cfg Config) *Codec {
	t.Helper()
	codec, err := NewCodec(cfg)
	require.NoError(t, err)
	return codec
}

func TestNewCodecRejectsBadConfig(t *testing.T) {
	_, err := NewCodec(Config{AccessTTL: time.Minute, RefreshTTL: time.Hour, ConfirmTTL: time.Hour})
	require.Error(t, err)

	cfg := testConfig()
	cfg.RefreshTTL = 0
	_, err = NewCodec(cfg)
	require.Error(t, err)
}

func TestIssueAndVerifyRoundTrip(t *testing.T) {
	codec := newTestCodec(t, testConfig())

	for _, kind := range []Kind{KindAccess, KindRefresh, KindConfirm} {
		issued, err := codec.Issue("user-1", kind)
		require.NoError(t, err)
		require.NotEmpty(t, issued.Value)
		require.NotEmpty(t, issued.ID)

		claims, err := codec.Verify(issued.Value, kind)
		require.NoError(t, err)
		assert.Equal(t, "user-1", claims.UserID())
		assert.Equal(t, kind, claims.Kind)
		assert.Equal(t, issued.ID, claims.ID)
	}
}

func TestVerifyTypeMismatch(t *testing.T) {
	codec := newTestCodec(t, testConfig())

	access, err := codec.Issue("user-1", KindAccess)
	require.NoError(t, err)
	refresh, err := codec.Issue("user-1", KindRefresh)
	require.NoError(t, err)

	_, err = codec.Verify(access.Value, KindRefresh)
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrTokenTypeMismatch))

	_, err = codec.Verify(refresh.Value, KindAccess)
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrTokenTypeMismatch))
}

func TestVerifyWrongSecret(t *testing.T) {
	codec := newTestCodec(t, testConfig())
	issued, err := codec.Issue("user-1", KindAccess)
	require.NoError(t, err)

	other := testConfig()
	other.Secret = "another-secret"
	otherCodec := newTestCodec(t, other)

	_, err = otherCodec.Verify(issued.Value, KindAccess)
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrMalformedToken))
}

func TestVerifyGarbage(t *testing.T) {
	codec := newTestCodec(t, testConfig())

	for _, value := range []string{"", "not-a-token", "a.b.c"} {
		_, err := codec.Verify(value, KindAccess)
		require.Error(t, err)
		assert.True(t, errors.Is(err, appErrors.ErrMalformedToken))
	}
}

func TestVerifyExpired(t *testing.T) {
	cfg := testConfig()
	cfg.AccessTTL = 10 * time.Millisecond
	codec := newTestCodec(t, cfg)

	issued, err := codec.Issue("user-1", KindAccess)
	require.NoError(t, err)

	time.Sleep(25 * time.Millisecond)

	_, err = codec.Verify(issued.Value, KindAccess)
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrTokenExpired))
}

func TestVerifyExpiredReportsExpiryNotMalformed(t *testing.T) {
	cfg := testConfig()
	cfg.RefreshTTL = 10 * time.Millisecond
	codec := newTestCodec(t, cfg)

	issued, err := codec.Issue("user-1", KindRefresh)
	require.NoError(t, err)

	time.Sleep(25 * time.Millisecond)

	_, err = codec.Verify(issued.Value, KindRefresh)
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrTokenExpired))
	assert.False(t, errors.Is(err, appErrors.ErrMalformedToken))
}

func TestDistinctSecretsPerCodec(t *testing.T) {
	first := newTestCodec(t, testConfig())

	cfg := testConfig()
	cfg.Secret = "isolated"
	second := newTestCodec(t, cfg)

	issued, err := second.Issue("user-1", KindConfirm)
	require.NoError(t, err)

	claims, err := second.Verify(issued.Value, KindConfirm)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID())

	_, err = first.Verify(issued.Value, KindConfirm)
	require.Error(t, err)
}
