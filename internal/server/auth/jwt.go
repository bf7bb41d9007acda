// Package auth holds the credential primitives used by the user service:
// bearer token signing, password hashing and email verification tokens.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/contactbook/internal/common"
	"github.com/golang-jwt/jwt/v5"
)

// TokenSigner issues and validates HMAC-signed bearer tokens whose subject
// identifies the user.
type TokenSigner struct {
	secret []byte
	method jwt.SigningMethod
	now    func() time.Time
}

// SignerOption configures a TokenSigner.
type SignerOption func(*TokenSigner)

// WithClock replaces the wall clock used for iat, exp and validation.
func WithClock(now func() time.Time) SignerOption {
	return func(s *TokenSigner) { s.now = now }
}

// NewTokenSigner accepts HS256, HS384 and HS512.
func NewTokenSigner(secret []byte, algorithm string, opts ...SignerOption) (*TokenSigner, error) {
	if len(secret) == 0 {
		return nil, errors.New("empty signing secret")
	}

	var method jwt.SigningMethod
	switch algorithm {
	case jwt.SigningMethodHS256.Alg():
		method = jwt.SigningMethodHS256
	case jwt.SigningMethodHS384.Alg():
		method = jwt.SigningMethodHS384
	case jwt.SigningMethodHS512.Alg():
		method = jwt.SigningMethodHS512
	default:
		return nil, fmt.Errorf("unsupported signing algorithm %q", algorithm)
	}

	s := &TokenSigner{secret: secret, method: method, now: time.Now}
	for _, o := range opts {
		o(s)
	}
	return s, nil
}

// Issue returns a token for subject that expires ttl from now.
func (s *TokenSigner) Issue(subject string, ttl time.Duration) (string, error) {
	now := s.now()
	token := jwt.NewWithClaims(s.method, jwt.RegisteredClaims{
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	})

	tokenString, err := token.SignedString(s.secret)
	if err != nil {
		return "", err
	}

	return tokenString, nil
}

// Validate returns the subject of a well-formed, correctly signed and
// unexpired token. Every failure is reported as common.ErrInvalidToken.
// exp is inclusive at one-second precision: a token expiring at T is still
// accepted at any instant within second T.
func (s *TokenSigner) Validate(tokenString string) (string, error) {
	claims := &jwt.RegisteredClaims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{s.method.Alg()}),
		jwt.WithTimeFunc(s.now),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(time.Second),
	)
	if err != nil || !token.Valid {
		return "", common.ErrInvalidToken
	}

	if claims.Subject == "" {
		return "", common.ErrInvalidToken
	}

	return claims.Subject, nil
}
