// Package auth provides JWT token issuing and validation.
// User accounts and password verification live outside this service;
// only the token layer is handled here.
package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"simbapos/internal/core/apperror"
	appctx "simbapos/internal/core/context"
)

// Claims is the JWT payload carried by access tokens.
type Claims struct {
	UserID   string      `json:"uid"`
	Username string      `json:"username"`
	Role     appctx.Role `json:"role"`
	jwt.RegisteredClaims
}

// JWTService issues and validates HMAC-signed access tokens.
type JWTService struct {
	secret []byte
	issuer string
	ttl    time.Duration
}

// NewJWTService creates a token service.
func NewJWTService(secret, issuer string, ttl time.Duration) *JWTService {
	if ttl == 0 {
		ttl = 8 * time.Hour
	}
	return &JWTService{
		secret: []byte(secret),
		issuer: issuer,
		ttl:    ttl,
	}
}

// Generate issues a signed token for the user.
func (s *JWTService) Generate(user appctx.UserContext) (string, error) {
	now := time.Now().UTC()
	claims := Claims{
		UserID:   user.UserID,
		Username: user.Username,
		Role:     user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.issuer,
			Subject:   user.UserID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
			ID:        uuid.NewString(),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", apperror.NewInternal(err)
	}
	return signed, nil
}

// Validate parses a token and returns the user context it carries.
func (s *JWTService) Validate(tokenString string) (*appctx.UserContext, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return s.secret, nil
	})
	if err != nil {
		return nil, apperror.NewUnauthorized("invalid or expired token").WithCause(err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, apperror.NewUnauthorized("invalid token claims")
	}

	return &appctx.UserContext{
		UserID:    claims.UserID,
		Username:  claims.Username,
		Role:      claims.Role,
		SessionID: claims.ID,
	}, nil
}
