package utils

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"teamhub/apperr"
	"teamhub/models"
	"teamhub/testutil"
)

func newIssuer(t *testing.T) (*TokenIssuer, *models.User) {
	t.Helper()
	db := testutil.NewDB(t)
	user := testutil.CreateUser(t, db, "owner@example.com")
	return NewTokenIssuer(db, "test-secret", 15*time.Minute, 24*time.Hour), user
}

func TestIssueAndParse(t *testing.T) {
	issuer, user := newIssuer(t)
	ctx := context.Background()

	pair, err := issuer.Issue(ctx, user, "agent", "10.0.0.1")
	require.NoError(t, err)
	require.NotEmpty(t, pair.Access)
	require.NotEmpty(t, pair.Refresh)

	claims, err := issuer.ParseAccessToken(pair.Access)
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.UserID)
	assert.Equal(t, TokenTypeAccess, claims.TokenType)
	assert.Equal(t, user.TokenVersion, claims.TokenVersion)

	_, err = issuer.ParseAccessToken(pair.Refresh)
	assert.Error(t, err, "refresh tokens are not access tokens")

	var record models.RefreshToken
	require.NoError(t, issuer.db.First(&record).Error)
	assert.Equal(t, user.ID, record.UserID)
	assert.Equal(t, "10.0.0.1", record.IP)
	assert.False(t, record.IsRevoked)
}

func TestParseRejectsForeignSignature(t *testing.T) {
	issuer, user := newIssuer(t)
	other := NewTokenIssuer(issuer.db, "other-secret", time.Minute, time.Hour)

	token, err := other.sign(user, TokenTypeAccess, "jti", time.Minute)
	require.NoError(t, err)
	_, err = issuer.ParseAccessToken(token)
	assert.Error(t, err)

	none := jwt.NewWithClaims(jwt.SigningMethodNone, &Claims{UserID: user.ID, TokenType: TokenTypeAccess})
	unsigned, err := none.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = issuer.ParseAccessToken(unsigned)
	assert.Error(t, err)
}

func TestAccessTokenExpires(t *testing.T) {
	issuer, user := newIssuer(t)
	pair, err := issuer.Issue(context.Background(), user, "", "")
	require.NoError(t, err)

	issuer.now = func() time.Time { return time.Now().Add(time.Hour) }
	_, err = issuer.ParseAccessToken(pair.Access)
	assert.Error(t, err)
}

func TestRefreshAndRevoke(t *testing.T) {
	issuer, user := newIssuer(t)
	ctx := context.Background()

	pair, err := issuer.Issue(ctx, user, "", "")
	require.NoError(t, err)

	access, err := issuer.Refresh(ctx, pair.Refresh)
	require.NoError(t, err)
	_, err = issuer.ParseAccessToken(access)
	require.NoError(t, err)

	_, err = issuer.Refresh(ctx, pair.Access)
	assert.True(t, apperr.Is(err, apperr.KindUnauthorized))

	err = issuer.Revoke(ctx, user.ID+1, pair.Refresh)
	assert.True(t, apperr.Is(err, apperr.KindInvalidOperation), "cannot revoke another user's token")

	require.NoError(t, issuer.Revoke(ctx, user.ID, pair.Refresh))
	err = issuer.Revoke(ctx, user.ID, pair.Refresh)
	assert.True(t, apperr.Is(err, apperr.KindInvalidOperation))

	_, err = issuer.Refresh(ctx, pair.Refresh)
	assert.True(t, apperr.Is(err, apperr.KindUnauthorized))

	err = issuer.Revoke(ctx, user.ID, "garbage")
	assert.True(t, apperr.Is(err, apperr.KindInvalidOperation))
}

func TestRefreshRejectsBumpedTokenVersion(t *testing.T) {
	issuer, user := newIssuer(t)
	ctx := context.Background()

	pair, err := issuer.Issue(ctx, user, "", "")
	require.NoError(t, err)
	require.NoError(t, issuer.db.Model(&models.User{}).Where("id = ?", user.ID).Update("token_version", 2).Error)

	_, err = issuer.Refresh(ctx, pair.Refresh)
	assert.True(t, apperr.Is(err, apperr.KindUnauthorized))
}

func TestPurgeExpired(t *testing.T) {
	issuer, user := newIssuer(t)
	ctx := context.Background()

	live, err := issuer.Issue(ctx, user, "", "")
	require.NoError(t, err)
	revoked, err := issuer.Issue(ctx, user, "", "")
	require.NoError(t, err)
	require.NoError(t, issuer.Revoke(ctx, user.ID, revoked.Refresh))

	removed, err := issuer.PurgeExpired(ctx, time.Now().Add(time.Minute))
	require.NoError(t, err)
	assert.EqualValues(t, 1, removed)

	_, err = issuer.Refresh(ctx, live.Refresh)
	assert.NoError(t, err)
}
