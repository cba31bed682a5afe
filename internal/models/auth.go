package models

import "github.com/golang-jwt/jwt/v5"

// TokenClaims are the JWT claims carried by an access token
type TokenClaims struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	jwt.RegisteredClaims
}
