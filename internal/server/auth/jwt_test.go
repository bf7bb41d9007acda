package auth

import (
	"testing"
	"time"

	"github.com/dmitrijs2005/contactbook/internal/common"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time { return c.t }

func TestIssueAndValidate_Success(t *testing.T) {
	t.Parallel()

	s, err := NewTokenSigner([]byte("super-secret"), "HS256")
	require.NoError(t, err)

	tok, err := s.Issue("alice@example.com", time.Hour)
	require.NoError(t, err)

	sub, err := s.Validate(tok)
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", sub)
}

func TestValidate_ExpiryBoundary(t *testing.T) {
	t.Parallel()

	issued := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	ttl := 30 * time.Minute
	clock := &fakeClock{t: issued}

	s, err := NewTokenSigner([]byte("secret"), "HS256", WithClock(clock.Now))
	require.NoError(t, err)

	tok, err := s.Issue("alice@example.com", ttl)
	require.NoError(t, err)

	expiry := issued.Add(ttl)
	cases := []struct {
		at    time.Time
		valid bool
	}{
		{at: issued, valid: true},
		{at: expiry.Add(-time.Second), valid: true},
		{at: expiry, valid: true},
		{at: expiry.Add(500 * time.Millisecond), valid: true},
		{at: expiry.Add(time.Second), valid: false},
		{at: expiry.Add(time.Hour), valid: false},
	}

	for _, c := range cases {
		clock.t = c.at
		_, err := s.Validate(tok)
		if c.valid {
			assert.NoError(t, err, "at %s", c.at)
		} else {
			assert.ErrorIs(t, err, common.ErrInvalidToken, "at %s", c.at)
		}
	}
}

func TestValidate_WrongSecret(t *testing.T) {
	t.Parallel()

	right, _ := NewTokenSigner([]byte("right-secret"), "HS256")
	wrong, _ := NewTokenSigner([]byte("wrong-secret"), "HS256")

	tok, err := right.Issue("u2@example.com", time.Hour)
	require.NoError(t, err)

	_, err = wrong.Validate(tok)
	assert.ErrorIs(t, err, common.ErrInvalidToken)
}

func TestValidate_AlgorithmMismatch(t *testing.T) {
	t.Parallel()

	hs512, _ := NewTokenSigner([]byte("k"), "HS512")
	hs256, _ := NewTokenSigner([]byte("k"), "HS256")

	tok, err := hs512.Issue("a@b.c", time.Hour)
	require.NoError(t, err)

	_, err = hs256.Validate(tok)
	assert.ErrorIs(t, err, common.ErrInvalidToken)

	sub, err := hs512.Validate(tok)
	require.NoError(t, err)
	assert.Equal(t, "a@b.c", sub)
}

func TestValidate_RejectsNoneAlgorithm(t *testing.T) {
	t.Parallel()

	s, _ := NewTokenSigner([]byte("k"), "HS256")
	unsigned := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{
		Subject:   "a@b.c",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})
	tok, err := unsigned.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = s.Validate(tok)
	assert.ErrorIs(t, err, common.ErrInvalidToken)
}

func TestValidate_MissingSubjectOrExpiry(t *testing.T) {
	t.Parallel()

	secret := []byte("k")
	s, _ := NewTokenSigner(secret, "HS256")

	noSub, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}).SignedString(secret)
	require.NoError(t, err)
	_, err = s.Validate(noSub)
	assert.ErrorIs(t, err, common.ErrInvalidToken)

	noExp, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject: "a@b.c",
	}).SignedString(secret)
	require.NoError(t, err)
	_, err = s.Validate(noExp)
	assert.ErrorIs(t, err, common.ErrInvalidToken)
}

func TestValidate_MalformedString(t *testing.T) {
	t.Parallel()

	s, _ := NewTokenSigner([]byte("k"), "HS256")
	for _, tok := range []string{"", "not.a.jwt", "abc"} {
		_, err := s.Validate(tok)
		assert.ErrorIs(t, err, common.ErrInvalidToken, tok)
	}
}

func TestNewTokenSigner_Rejects(t *testing.T) {
	t.Parallel()

	_, err := NewTokenSigner([]byte("k"), "RS256")
	assert.Error(t, err)

	_, err = NewTokenSigner(nil, "HS256")
	assert.Error(t, err)
}
