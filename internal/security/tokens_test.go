package security

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func signAccessToken(t *testing.T, key *ecdsa.PrivateKey, claims AccessClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodES256, claims).SignedString(key)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return token
}

func baseClaims(now time.Time) AccessClaims {
	return AccessClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "user-1",
			Issuer:    "credvault-auth",
			Audience:  jwt.ClaimStrings{"credvault-api"},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(15 * time.Minute)),
		},
		Email: "a@example.com",
	}
}

func TestValidateAccess(t *testing.T) {
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	v := NewTokenValidator(&key.PublicKey, "credvault-auth", "credvault-api")
	now := time.Now().UTC()

	token := signAccessToken(t, key, baseClaims(now))
	userID, email, err := v.ValidateAccess(token)
	if err != nil {
		t.Fatalf("ValidateAccess: %v", err)
	}
	if userID != "user-1" || email != "a@example.com" {
		t.Errorf("got (%q, %q)", userID, email)
	}
}

func TestValidateAccessRejects(t *testing.T) {
	key, _ := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	otherKey, _ := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	v := NewTokenValidator(&key.PublicKey, "credvault-auth", "credvault-api")
	now := time.Now().UTC()

	expired := baseClaims(now)
	expired.ExpiresAt = jwt.NewNumericDate(now.Add(-time.Minute))

	wrongIss := baseClaims(now)
	wrongIss.Issuer = "someone-else"

	wrongAud := baseClaims(now)
	wrongAud.Audience = jwt.ClaimStrings{"other-api"}

	noEmail := baseClaims(now)
	noEmail.Email = ""

	cases := []struct {
		name  string
		token string
	}{
		{"garbage", "not.a.token"},
		{"wrong key", signAccessToken(t, otherKey, baseClaims(now))},
		{"expired", signAccessToken(t, key, expired)},
		{"wrong issuer", signAccessToken(t, key, wrongIss)},
		{"wrong audience", signAccessToken(t, key, wrongAud)},
		{"missing email", signAccessToken(t, key, noEmail)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, _, err := v.ValidateAccess(tc.token); err == nil {
				t.Error("ValidateAccess should fail")
			}
		})
	}
}
