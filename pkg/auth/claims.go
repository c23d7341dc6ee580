package auth

import (
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Role values carried inside access tokens.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// AccessTokenPayload captures the data available when minting a JWT.
type AccessTokenPayload struct {
	UserID     uuid.UUID
	Role       string
	IsInvestor bool
	JTI        string
}

// AccessTokenClaims represents the typed JWT issued to clients.
type AccessTokenClaims struct {
	UserID     uuid.UUID `json:"user_id"`
	Role       string    `json:"role"`
	IsInvestor bool      `json:"is_investor"`
	jwt.RegisteredClaims
}
