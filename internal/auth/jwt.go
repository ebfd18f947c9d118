package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// RoleClient is the only role allowed to open a voice session
const RoleClient = "client"

// TokenTTL is how long an issued client token stays valid
const TokenTTL = 24 * time.Hour

// ErrNoSecret is returned when tokens are requested but no secret is configured
var ErrNoSecret = errors.New("jwt secret not configured")

// JWTClaims represents the claims in our JWT token
type JWTClaims struct {
	ClientID string `json:"client_id"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

// Issuer signs and validates client tokens with a shared HMAC secret
type Issuer struct {
	secret []byte
	now    func() time.Time
}

// NewIssuer creates an issuer. An empty secret disables authentication.
func NewIssuer(secret string) *Issuer {
	return &Issuer{secret: []byte(secret), now: time.Now}
}

// Enabled reports whether a secret is configured
func (i *Issuer) Enabled() bool {
	return i != nil && len(i.secret) > 0
}

// GenerateClientToken generates a JWT token for a voice client and returns its expiry
func (i *Issuer) GenerateClientToken(clientID string) (string, time.Time, error) {
	if !i.Enabled() {
		return "", time.Time{}, ErrNoSecret
	}

	now := i.now()
	expiresAt := now.Add(TokenTTL)
	claims := &JWTClaims{
		ClientID: clientID,
		Role:     RoleClient,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   clientID,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(i.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

// ValidateToken validates a JWT token and returns the claims
func (i *Issuer) ValidateToken(tokenString string) (*JWTClaims, error) {
	if !i.Enabled() {
		return nil, ErrNoSecret
	}

	token, err := jwt.ParseWithClaims(tokenString, &JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
		return i.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(i.now))

	if err != nil {
		return nil, err
	}

	if claims, ok := token.Claims.(*JWTClaims); ok && token.Valid {
		return claims, nil
	}

	return nil, jwt.ErrInvalidKey
}
