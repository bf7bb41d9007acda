package auth

import (
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/contactbook/internal/common"
	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/bcrypt"
)

const (
	SchemeBcrypt   = "bcrypt"
	SchemeArgon2id = "argon2id"
)

// Argon2Params are the argon2id cost parameters used for new hashes.
type Argon2Params struct {
	Time    uint32
	Memory  uint32
	Threads uint8
	KeyLen  uint32
	SaltLen uint32
}

// DefaultArgon2Params follow the second recommended option of RFC 9106.
var DefaultArgon2Params = Argon2Params{Time: 3, Memory: 64 * 1024, Threads: 4, KeyLen: 32, SaltLen: 16}

// PasswordHasher hashes with the first configured scheme and accepts any of
// the configured schemes on verification.
type PasswordHasher struct {
	schemes    []string
	bcryptCost int
	argon2     Argon2Params
}

// NewPasswordHasher accepts the given schemes, the first being active.
// A zero bcryptCost means bcrypt.DefaultCost.
func NewPasswordHasher(schemes []string, bcryptCost int) (*PasswordHasher, error) {
	if len(schemes) == 0 {
		return nil, errors.New("no password schemes configured")
	}
	for _, s := range schemes {
		if s != SchemeBcrypt && s != SchemeArgon2id {
			return nil, fmt.Errorf("unknown password scheme %q", s)
		}
	}
	if bcryptCost == 0 {
		bcryptCost = bcrypt.DefaultCost
	}
	if bcryptCost < bcrypt.MinCost || bcryptCost > bcrypt.MaxCost {
		return nil, fmt.Errorf("bcrypt cost %d out of range", bcryptCost)
	}

	return &PasswordHasher{
		schemes:    schemes,
		bcryptCost: bcryptCost,
		argon2:     DefaultArgon2Params,
	}, nil
}

// SetArgon2Params overrides the argon2id cost used for new hashes.
func (h *PasswordHasher) SetArgon2Params(p Argon2Params) {
	h.argon2 = p
}

func (h *PasswordHasher) active() string {
	return h.schemes[0]
}

func (h *PasswordHasher) accepts(scheme string) bool {
	for _, s := range h.schemes {
		if s == scheme {
			return true
		}
	}
	return false
}

// Hash encodes plaintext with the active scheme.
func (h *PasswordHasher) Hash(plaintext string) (string, error) {
	switch h.active() {
	case SchemeArgon2id:
		return h.hashArgon2(plaintext), nil
	default:
		b, err := bcrypt.GenerateFromPassword([]byte(plaintext), h.bcryptCost)
		if err != nil {
			if errors.Is(err, bcrypt.ErrPasswordTooLong) {
				return "", fmt.Errorf("%w: password is longer than 72 bytes", common.ErrorValidation)
			}
			return "", err
		}
		return string(b), nil
	}
}

// Verify reports whether plaintext matches encoded. Malformed hashes and
// hashes of a scheme that is not accepted never match.
func (h *PasswordHasher) Verify(plaintext, encoded string) bool {
	scheme := schemeOf(encoded)
	if scheme == "" || !h.accepts(scheme) {
		return false
	}

	switch scheme {
	case SchemeArgon2id:
		p, salt, key, err := decodeArgon2(encoded)
		if err != nil {
			return false
		}
		got := argon2.IDKey([]byte(plaintext), salt, p.Time, p.Memory, p.Threads, uint32(len(key)))
		return subtle.ConstantTimeCompare(got, key) == 1
	default:
		return bcrypt.CompareHashAndPassword([]byte(encoded), []byte(plaintext)) == nil
	}
}

// NeedsRehash reports whether encoded was produced by a scheme or cost other
// than the active one.
func (h *PasswordHasher) NeedsRehash(encoded string) bool {
	scheme := schemeOf(encoded)
	if scheme != h.active() {
		return true
	}

	switch scheme {
	case SchemeArgon2id:
		p, _, key, err := decodeArgon2(encoded)
		if err != nil {
			return true
		}
		return p.Time != h.argon2.Time || p.Memory != h.argon2.Memory ||
			p.Threads != h.argon2.Threads || uint32(len(key)) != h.argon2.KeyLen
	default:
		cost, err := bcrypt.Cost([]byte(encoded))
		return err != nil || cost != h.bcryptCost
	}
}

func schemeOf(encoded string) string {
	switch {
	case strings.HasPrefix(encoded, "$argon2id$"):
		return SchemeArgon2id
	case strings.HasPrefix(encoded, "$2a$"), strings.HasPrefix(encoded, "$2b$"), strings.HasPrefix(encoded, "$2y$"):
		return SchemeBcrypt
	default:
		return ""
	}
}

func (h *PasswordHasher) hashArgon2(plaintext string) string {
	p := h.argon2
	salt := common.GenerateRandByteArray(int(p.SaltLen))
	key := argon2.IDKey([]byte(plaintext), salt, p.Time, p.Memory, p.Threads, p.KeyLen)

	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version, p.Memory, p.Time, p.Threads,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key))
}

var errMalformedHash = errors.New("malformed argon2id hash")

// decodeArgon2 parses $argon2id$v=19$m=<mem>,t=<time>,p=<threads>$<salt>$<key>.
func decodeArgon2(encoded string) (Argon2Params, []byte, []byte, error) {
	var p Argon2Params

	parts := strings.Split(encoded, "$")
	if len(parts) != 6 {
		return p, nil, nil, errMalformedHash
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil || version != argon2.Version {
		return p, nil, nil, errMalformedHash
	}
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &p.Memory, &p.Time, &p.Threads); err != nil {
		return p, nil, nil, errMalformedHash
	}
	if p.Time == 0 || p.Memory == 0 || p.Threads == 0 {
		return p, nil, nil, errMalformedHash
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return p, nil, nil, errMalformedHash
	}
	key, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil || len(key) == 0 {
		return p, nil, nil, errMalformedHash
	}

	p.SaltLen = uint32(len(salt))
	p.KeyLen = uint32(len(key))
	return p, salt, key, nil
}
