package security

import (
	"crypto"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken is returned when a token is malformed or invalid.
var ErrInvalidToken = errors.New("invalid token")

// AccessClaims holds JWT claims for a platform access token.
type AccessClaims struct {
	jwt.RegisteredClaims
	Email string `json:"email"`
}

// TokenValidator validates platform-issued access tokens (RS256 or ES256) and
// extracts the caller identity. The sharing subsystem never issues tokens; it
// only verifies what the hosting platform signed.
type TokenValidator struct {
	publicKey crypto.PublicKey
	issuer    string
	audience  string
}

// NewTokenValidator returns a TokenValidator for the given public key, issuer, and audience.
func NewTokenValidator(publicKey crypto.PublicKey, issuer, audience string) *TokenValidator {
	return &TokenValidator{publicKey: publicKey, issuer: issuer, audience: audience}
}

// ValidateAccess parses and validates the access token (signature, exp, iss, aud).
// Returns the caller's user id and email, or ErrInvalidToken.
func (v *TokenValidator) ValidateAccess(tokenString string) (userID, email string, err error) {
	token, err := jwt.ParseWithClaims(tokenString, &AccessClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodRSA); ok {
			return v.publicKey, nil
		}
		if _, ok := token.Method.(*jwt.SigningMethodECDSA); ok {
			return v.publicKey, nil
		}
		return nil, ErrInvalidToken
	}, jwt.WithTimeFunc(func() time.Time { return time.Now().UTC() }))
	if err != nil {
		return "", "", ErrInvalidToken
	}
	claims, ok := token.Claims.(*AccessClaims)
	if !ok || !token.Valid {
		return "", "", ErrInvalidToken
	}
	if claims.Issuer != v.issuer {
		return "", "", ErrInvalidToken
	}
	audOk := false
	for _, a := range claims.Audience {
		if a == v.audience {
			audOk = true
			break
		}
	}
	if !audOk {
		return "", "", ErrInvalidToken
	}
	if claims.Subject == "" || claims.Email == "" {
		return "", "", ErrInvalidToken
	}
	return claims.Subject, claims.Email, nil
}
