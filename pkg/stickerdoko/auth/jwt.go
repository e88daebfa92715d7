package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token has expired")
)

const (
	tokenIssuer = "stickerdoko"
	adminRole   = "admin"
)

// Claims represents the admin JWT claims
type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// Issuer signs and validates admin tokens
type Issuer struct {
	key []byte
	ttl time.Duration
	now func() time.Time
}

// NewIssuer creates an issuer whose tokens are signed with the key derived
// from secret and are valid for ttl
func NewIssuer(secret *Secret, ttl time.Duration) *Issuer {
	return &Issuer{key: secret.SigningKey(), ttl: ttl, now: time.Now}
}

// GenerateToken creates a new admin token and returns it with its expiry
func (i *Issuer) GenerateToken() (string, time.Time, error) {
	now := i.now()
	expires := now.Add(i.ttl)
	claims := &Claims{
		Role: adminRole,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   adminRole,
			ExpiresAt: jwt.NewNumericDate(expires),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    tokenIssuer,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(i.key)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expires, nil
}

// ValidateToken validates an admin token and returns the claims
func (i *Issuer) ValidateToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return i.key, nil
	}, jwt.WithIssuer(tokenIssuer), jwt.WithTimeFunc(i.now))

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.Role != adminRole {
		return nil, ErrInvalidToken
	}

	return claims, nil
}
