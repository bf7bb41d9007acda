package auth

import (
	"crypto/sha256"
	"time"

	"github.com/dmitrijs2005/contactbook/internal/common"
	"github.com/gorilla/securecookie"
)

// DefaultVerificationMaxAge is how long an email verification link stays valid.
const DefaultVerificationMaxAge = time.Hour

// VerificationCodec issues timestamped, MAC-protected tokens that carry an
// email address. The salt namespaces the tokens: it is mixed into the key
// and used as the value name, so tokens minted for another purpose or salt
// never decode.
type VerificationCodec struct {
	hashKey []byte
	name    string
}

// NewVerificationCodec derives the signing key from secret and salt.
func NewVerificationCodec(secret []byte, salt string) *VerificationCodec {
	key := sha256.Sum256(append(append([]byte{}, secret...), []byte(":"+salt)...))
	return &VerificationCodec{hashKey: key[:], name: salt}
}

func (c *VerificationCodec) codec(maxAge time.Duration) *securecookie.SecureCookie {
	seconds := int(maxAge / time.Second)
	if seconds < 1 {
		seconds = 1
	}
	return securecookie.New(c.hashKey, nil).
		SetSerializer(securecookie.JSONEncoder{}).
		MaxAge(seconds)
}

// Issue returns a URL-safe token embedding email and the current time.
func (c *VerificationCodec) Issue(email string) (string, error) {
	return c.codec(DefaultVerificationMaxAge).Encode(c.name, email)
}

// Validate returns the embedded email when the MAC matches and the token is
// no older than maxAge (whole seconds, at least one). Every failure is
// reported as common.ErrInvalidVerificationToken.
func (c *VerificationCodec) Validate(token string, maxAge time.Duration) (string, error) {
	var email string
	if err := c.codec(maxAge).Decode(c.name, token, &email); err != nil || email == "" {
		return "", common.ErrInvalidVerificationToken
	}
	return email, nil
}
