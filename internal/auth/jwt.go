// Package auth issues and checks admin tokens.
package auth

import (
	"crypto/subtle"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// AdminSubject is the subject of every admin token.
const AdminSubject = "admin"

// DefaultTokenTTL is how long an admin token stays valid.
const DefaultTokenTTL = 3 * time.Hour

const issuer = "memedesk"

// ErrNoSecret is returned when signing or verifying without a secret.
var ErrNoSecret = errors.New("admin token secret not configured")

type Claims struct {
	jwt.RegisteredClaims
}

// JWT signs and verifies HS256 admin tokens.
type JWT struct {
	Secret   []byte
	TokenTTL time.Duration
	Now      func() time.Time
}

func (j JWT) now() time.Time {
	if j.Now != nil {
		return j.Now().UTC()
	}
	return time.Now().UTC()
}

// SignAdmin returns a fresh admin token and its expiry.
func (j JWT) SignAdmin() (token string, expiresAt time.Time, err error) {
	if len(j.Secret) == 0 {
		return "", time.Time{}, ErrNoSecret
	}
	ttl := j.TokenTTL
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	now := j.now()
	expiresAt = now.Add(ttl)
	claims := Claims{RegisteredClaims: jwt.RegisteredClaims{
		Subject:   AdminSubject,
		Issuer:    issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now.Add(-5 * time.Second)),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	}}

	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	s, err := t.SignedString(j.Secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return s, expiresAt, nil
}

// Verify parses token and checks that it is a live admin token.
func (j JWT) Verify(token string) (Claims, error) {
	if len(j.Secret) == 0 {
		return Claims{}, ErrNoSecret
	}
	parsed, err := jwt.ParseWithClaims(token, &Claims{}, func(t *jwt.Token) (any, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing method")
		}
		return j.Secret, nil
	},
		jwt.WithIssuer(issuer),
		jwt.WithSubject(AdminSubject),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(j.now),
	)
	if err != nil {
		return Claims{}, err
	}
	c, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return Claims{}, errors.New("invalid token")
	}
	return *c, nil
}

// PasswordMatches compares in constant time. An empty expected password
// never matches.
func PasswordMatches(expected, got string) bool {
	if expected == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(expected), []byte(got)) == 1
}
