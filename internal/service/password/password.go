// Package password hashes and verifies user passwords.
//
// Digests are self-describing (bcrypt modular crypt or argon2id PHC strings),
// so a Hasher verifies any supported digest regardless of which algorithm it
// is configured to produce.
package password

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/bcrypt"
)

const (
	AlgorithmBcrypt   = "bcrypt"
	AlgorithmArgon2id = "argon2id"

	argon2SaltLen = 16
	argon2KeyLen  = 32
)

var ErrEmptyPassword = errors.New("password is empty")

// Argon2Params are the argon2id work factors.
type Argon2Params struct {
	Time     uint32
	MemoryKB uint32
	Threads  uint8
}

type Hasher struct {
	algorithm  string
	bcryptCost int
	argon2     Argon2Params
}

// NewBcrypt returns a Hasher producing bcrypt digests at the given cost.
func NewBcrypt(cost int) (*Hasher, error) {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		return nil, fmt.Errorf("bcrypt cost %d out of range [%d, %d]", cost, bcrypt.MinCost, bcrypt.MaxCost)
	}
	return &Hasher{algorithm: AlgorithmBcrypt, bcryptCost: cost}, nil
}

// NewArgon2id returns a Hasher producing argon2id digests.
func NewArgon2id(params Argon2Params) (*Hasher, error) {
	if params.Time == 0 || params.MemoryKB == 0 || params.Threads == 0 {
		return nil, fmt.Errorf("argon2id parameters must be positive: %+v", params)
	}
	return &Hasher{algorithm: AlgorithmArgon2id, argon2: params, bcryptCost: bcrypt.DefaultCost}, nil
}

func (h *Hasher) Algorithm() string {
	return h.algorithm
}

// Hash returns a salted digest of password with the salt embedded.
func (h *Hasher) Hash(password []byte) (string, error) {
	if len(password) == 0 {
		return "", ErrEmptyPassword
	}

	switch h.algorithm {
	case AlgorithmArgon2id:
		return h.hashArgon2id(password)
	default:
		digest, err := bcrypt.GenerateFromPassword(password, h.bcryptCost)
		if err != nil {
			return "", fmt.Errorf("bcrypt: %w", err)
		}
		return string(digest), nil
	}
}

// Verify reports whether password matches digest. Malformed digests never match.
func (h *Hasher) Verify(password []byte, digest string) bool {
	switch {
	case strings.HasPrefix(digest, "$argon2id$"):
		return verifyArgon2id(password, digest)
	case strings.HasPrefix(digest, "$2"):
		return bcrypt.CompareHashAndPassword([]byte(digest), password) == nil
	default:
		return false
	}
}

func (h *Hasher) hashArgon2id(password []byte) (string, error) {
	salt := make([]byte, argon2SaltLen)
	_, err := rand.Read(salt)
	if err != nil {
		return "", fmt.Errorf("generate salt: %w", err)
	}

	p := h.argon2
	key := argon2.IDKey(password, salt, p.Time, p.MemoryKB, p.Threads, argon2KeyLen)

	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version, p.MemoryKB, p.Time, p.Threads,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	), nil
}

// verifyArgon2id parses $argon2id$v=19$m=65536,t=1,p=4$<salt>$<key>.
func verifyArgon2id(password []byte, digest string) bool {
	parts := strings.Split(digest, "$")
	if len(parts) != 6 {
		return false
	}

	var version int
	_, err := fmt.Sscanf(parts[2], "v=%d", &version)
	if err != nil || version != argon2.Version {
		return false
	}

	var p Argon2Params
	_, err = fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &p.MemoryKB, &p.Time, &p.Threads)
	if err != nil || p.Time == 0 || p.MemoryKB == 0 || p.Threads == 0 {
		return false
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return false
	}
	want, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil || len(want) == 0 {
		return false
	}

	got := argon2.IDKey(password, salt, p.Time, p.MemoryKB, p.Threads, uint32(len(want)))
	return subtle.ConstantTimeCompare(got, want) == 1
}
