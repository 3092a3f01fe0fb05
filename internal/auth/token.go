package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/BradenHooton/healthdesk/internal/models"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const DefaultAccessTokenExpiry = time.Hour

// ClockSkewLeeway is the drift tolerated between instances on nbf, iat and exp
const ClockSkewLeeway = 5 * time.Second

// TokenManager issues and verifies HS256 access tokens
type TokenManager struct {
	secret            []byte
	accessTokenExpiry time.Duration
	now               func() time.Time
}

// TokenOption configures a TokenManager
type TokenOption func(*TokenManager)

// WithClock replaces the wall clock used for iat/exp and verification.
func WithClock(now func() time.Time) TokenOption {
	return func(tm *TokenManager) {
		tm.now = now
	}
}

func NewTokenManager(secret string, accessExpiry time.Duration, opts ...TokenOption) *TokenManager {
	if accessExpiry <= 0 {
		accessExpiry = DefaultAccessTokenExpiry
	}
	tm := &TokenManager{
		secret:            []byte(secret),
		accessTokenExpiry: accessExpiry,
		now:               time.Now,
	}
	for _, opt := range opts {
		opt(tm)
	}
	return tm
}

// AccessTokenExpiry returns the lifetime of issued tokens.
func (tm *TokenManager) AccessTokenExpiry() time.Duration {
	return tm.accessTokenExpiry
}

// Issue mints a signed access token for the given identity
func (tm *TokenManager) Issue(userID int64, username string, role models.Role) (string, error) {
	now := tm.now()

	claims := &models.TokenClaims{
		UserID:   userID,
		Username: username,
		Role:     role,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.New().String(),
			ExpiresAt: jwt.NewNumericDate(now.Add(tm.accessTokenExpiry)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	tokenString, err := token.SignedString(tm.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign access token: %w", err)
	}

	return tokenString, nil
}

// Verify checks signature, algorithm and expiry and returns the claims.
// Every failure is reported as models.ErrInvalidToken.
func (tm *TokenManager) Verify(tokenString string) (claims *models.TokenClaims, err error) {
	if tokenString == "" {
		return nil, models.ErrInvalidToken
	}

	defer func() {
		if p := recover(); p != nil {
			claims, err = nil, models.ErrInvalidToken
		}
	}()

	claims = &models.TokenClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return tm.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(tm.now),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithLeeway(ClockSkewLeeway),
	)
	if err != nil {
		return nil, errors.Join(models.ErrInvalidToken, err)
	}

	if !token.Valid || claims.UserID <= 0 || claims.Username == "" || !claims.Role.Valid() {
		return nil, models.ErrInvalidToken
	}

	return claims, nil
}
