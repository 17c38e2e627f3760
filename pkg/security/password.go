package security

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
)

const (
	// SaltLength is the number of random bytes mixed into every hash.
	SaltLength = 16

	argon2idPrefix = "argon2id"
)

// PasswordHasher derives and verifies stored password hashes.
type PasswordHasher interface {
	// Hash generates a salted hash from a plaintext password.
	Hash(password string) (string, error)

	// Verify compares a plaintext password with a stored hash.
	// It returns false for any malformed stored value.
	Verify(password, stored string) bool
}

// Argon2Params are the cost parameters of the Argon2id KDF.
type Argon2Params struct {
	MemoryKiB  uint32
	Iterations uint32
	Threads    uint8
	KeyLength  uint32
}

// DefaultArgon2Params follows the RFC 9106 second recommended option.
var DefaultArgon2Params = Argon2Params{
	MemoryKiB:  64 * 1024,
	Iterations: 1,
	Threads:    4,
	KeyLength:  32,
}

// Argon2Hasher implements PasswordHasher with Argon2id.
//
// Stored form: argon2id$v=19$m=<KiB>,t=<iterations>,p=<threads>$<hex salt>$<hex key>
type Argon2Hasher struct {
	params Argon2Params
}

// NewArgon2Hasher creates a hasher. Zero fields fall back to DefaultArgon2Params.
func NewArgon2Hasher(p Argon2Params) *Argon2Hasher {
	if p.MemoryKiB == 0 {
		p.MemoryKiB = DefaultArgon2Params.MemoryKiB
	}
	if p.Iterations == 0 {
		p.Iterations = DefaultArgon2Params.Iterations
	}
	if p.Threads == 0 {
		p.Threads = DefaultArgon2Params.Threads
	}
	if p.KeyLength == 0 {
		p.KeyLength = DefaultArgon2Params.KeyLength
	}
	return &Argon2Hasher{params: p}
}

// Hash generates a fresh salt and returns the encoded Argon2id hash.
func (h *Argon2Hasher) Hash(password string) (string, error) {
	salt := make([]byte, SaltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("failed to generate salt: %w", err)
	}

	key := argon2.IDKey([]byte(password), salt, h.params.Iterations, h.params.MemoryKiB, h.params.Threads, h.params.KeyLength)

	return fmt.Sprintf("%s$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2idPrefix,
		argon2.Version,
		h.params.MemoryKiB,
		h.params.Iterations,
		h.params.Threads,
		hex.EncodeToString(salt),
		hex.EncodeToString(key),
	), nil
}

// Verify recomputes the hash with the parameters stored alongside it.
func (h *Argon2Hasher) Verify(password, stored string) bool {
	p, salt, key, ok := decodeArgon2(stored)
	if !ok {
		return false
	}

	computed := argon2.IDKey([]byte(password), salt, p.Iterations, p.MemoryKiB, p.Threads, uint32(len(key)))
	return subtle.ConstantTimeCompare(computed, key) == 1
}

func decodeArgon2(stored string) (Argon2Params, []byte, []byte, bool) {
	var p Argon2Params

	parts := strings.Split(stored, "$")
	if len(parts) != 5 || parts[0] != argon2idPrefix {
		return p, nil, nil, false
	}

	var version int
	if _, err := fmt.Sscanf(parts[1], "v=%d", &version); err != nil || version != argon2.Version {
		return p, nil, nil, false
	}

	if _, err := fmt.Sscanf(parts[2], "m=%d,t=%d,p=%d", &p.MemoryKiB, &p.Iterations, &p.Threads); err != nil {
		return p, nil, nil, false
	}
	if p.MemoryKiB == 0 || p.Iterations == 0 || p.Threads == 0 {
		return p, nil, nil, false
	}

	salt, err := hex.DecodeString(parts[3])
	if err != nil || len(salt) < SaltLength {
		return p, nil, nil, false
	}

	key, err := hex.DecodeString(parts[4])
	if err != nil || len(key) == 0 {
		return p, nil, nil, false
	}

	return p, salt, key, true
}
