package models

import (
	"github.com/golang-jwt/jwt/v5"
)

// TokenClaims is the payload of an access token.
type TokenClaims struct {
	UserID   int64  `json:"userId"`
	Username string `json:"username"`
	Role     Role   `json:"role"`
	jwt.RegisteredClaims
}
