package utils

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"teamhub/apperr"
	"teamhub/models"
)

const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"
)

var ErrInvalidToken = errors.New("invalid token")

type Claims struct {
	UserID       uint   `json:"user_id"`
	TokenVersion int    `json:"token_version"`
	TokenType    string `json:"token_type"`
	jwt.RegisteredClaims
}

type TokenPair struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

// TokenIssuer signs access/refresh pairs and tracks refresh tokens in the
// database so they can be revoked.
type TokenIssuer struct {
	db         *gorm.DB
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

func NewTokenIssuer(db *gorm.DB, secret string, accessTTL, refreshTTL time.Duration) *TokenIssuer {
	return &TokenIssuer{
		db:         db,
		secret:     []byte(secret),
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		now:        time.Now,
	}
}

// Issue creates a new token pair for user and records the refresh token.
func (ti *TokenIssuer) Issue(ctx context.Context, user *models.User, userAgent, ip string) (TokenPair, error) {
	access, err := ti.sign(user, TokenTypeAccess, uuid.NewString(), ti.accessTTL)
	if err != nil {
		return TokenPair{}, err
	}

	jti := uuid.NewString()
	refresh, err := ti.sign(user, TokenTypeRefresh, jti, ti.refreshTTL)
	if err != nil {
		return TokenPair{}, err
	}

	record := models.RefreshToken{
		JTI:       jti,
		UserID:    user.ID,
		ExpiresAt: ti.now().Add(ti.refreshTTL),
		UserAgent: userAgent,
		IP:        ip,
	}
	if err := ti.db.WithContext(ctx).Create(&record).Error; err != nil {
		return TokenPair{}, fmt.Errorf("store refresh token: %w", err)
	}
	return TokenPair{Access: access, Refresh: refresh}, nil
}

func (ti *TokenIssuer) sign(user *models.User, tokenType, jti string, ttl time.Duration) (string, error) {
	now := ti.now()
	claims := &Claims{
		UserID:       user.ID,
		TokenVersion: user.TokenVersion,
		TokenType:    tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti,
			Subject:   fmt.Sprint(user.ID),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(ti.secret)
}

func (ti *TokenIssuer) parse(tokenString, tokenType string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return ti.secret, nil
	}, jwt.WithTimeFunc(ti.now))
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.TokenType != tokenType {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// ParseAccessToken validates an access token. Refresh tokens are rejected.
func (ti *TokenIssuer) ParseAccessToken(tokenString string) (*Claims, error) {
	return ti.parse(tokenString, TokenTypeAccess)
}

// Refresh exchanges a live refresh token for a new access token.
func (ti *TokenIssuer) Refresh(ctx context.Context, refreshToken string) (string, error) {
	claims, err := ti.parse(refreshToken, TokenTypeRefresh)
	if err != nil {
		return "", apperr.Unauthorized("Token is invalid or expired")
	}

	var record models.RefreshToken
	err = ti.db.WithContext(ctx).Where("jti = ?", claims.ID).First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", apperr.Unauthorized("Token is invalid or expired")
	}
	if err != nil {
		return "", apperr.Internal(err, "could not load refresh token")
	}
	if !record.IsUsable(ti.now()) {
		return "", apperr.Unauthorized("Token is blacklisted")
	}

	var user models.User
	err = ti.db.WithContext(ctx).First(&user, claims.UserID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", apperr.Unauthorized("User not found")
	}
	if err != nil {
		return "", apperr.Internal(err, "could not load user")
	}
	if !user.IsActive || user.TokenVersion != claims.TokenVersion {
		return "", apperr.Unauthorized("Token is invalid or expired")
	}

	return ti.sign(&user, TokenTypeAccess, uuid.NewString(), ti.accessTTL)
}

// Revoke blacklists a refresh token belonging to userID.
func (ti *TokenIssuer) Revoke(ctx context.Context, userID uint, refreshToken string) error {
	claims, err := ti.parse(refreshToken, TokenTypeRefresh)
	if err != nil || claims.UserID != userID {
		return apperr.InvalidOperation("Invalid token")
	}

	res := ti.db.WithContext(ctx).Model(&models.RefreshToken{}).
		Where("jti = ? AND is_revoked = ?", claims.ID, false).
		Update("is_revoked", true)
	if res.Error != nil {
		return apperr.Internal(res.Error, "could not revoke token")
	}
	if res.RowsAffected == 0 {
		return apperr.InvalidOperation("Invalid token")
	}
	return nil
}

// PurgeExpired deletes refresh tokens that expired or were revoked before
// cutoff and returns how many rows went away.
func (ti *TokenIssuer) PurgeExpired(ctx context.Context, cutoff time.Time) (int64, error) {
	res := ti.db.WithContext(ctx).
		Where("expires_at < ? OR (is_revoked = ? AND updated_at < ?)", cutoff, true, cutoff).
		Delete(&models.RefreshToken{})
	return res.RowsAffected, res.Error
}
