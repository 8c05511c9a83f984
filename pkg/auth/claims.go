package auth

import "github.com/golang-jwt/jwt/v5"

// AccessTokenPayload captures the data available when minting a JWT.
type AccessTokenPayload struct {
	CustomerID string
	Email      string
	JTI        string
}

// AccessTokenClaims represents the typed JWT presented by authenticated customers.
type AccessTokenClaims struct {
	CustomerID string `json:"customer_id"`
	Email      string `json:"email,omitempty"`
	jwt.RegisteredClaims
}
