// Package password hashes and verifies account passwords.
//
// New digests are argon2id strings in the PHC format
// $argon2id$v=19$m=65536,t=3,p=4$salt$hash. Legacy bcrypt digests
// ($2a$, $2b$, $2y$) are still accepted by Verify.
package password

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/bcrypt"
)

// Params are the argon2id cost parameters.
type Params struct {
	Time    uint32
	Memory  uint32 // KiB
	Threads uint8
	KeyLen  uint32
	SaltLen int
}

// DefaultParams: time 3, memory 64MB, threads 4, 32-byte key.
var DefaultParams = Params{
	Time:    3,
	Memory:  64 * 1024,
	Threads: 4,
	KeyLen:  32,
	SaltLen: 16,
}

// upper bound on memory accepted from a stored digest
const maxMemory = 1024 * 1024

type Hasher struct {
	params Params
}

func NewHasher(params Params) *Hasher {
	return &Hasher{params: params}
}

// Hash creates an argon2id digest of the password with a fresh random salt.
func (h *Hasher) Hash(password string) (string, error) {
	salt := make([]byte, h.params.SaltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("failed to generate salt: %w", err)
	}

	key := argon2.IDKey([]byte(password), salt, h.params.Time, h.params.Memory, h.params.Threads, h.params.KeyLen)

	return fmt.Sprintf(
		"$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version,
		h.params.Memory,
		h.params.Time,
		h.params.Threads,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	), nil
}

// Verify reports whether password matches digest. Malformed digests never match.
func (h *Hasher) Verify(password, digest string) bool {
	switch {
	case strings.HasPrefix(digest, "$argon2id$"):
		return verifyArgon2id(password, digest)
	case isBcrypt(digest):
		return bcrypt.CompareHashAndPassword([]byte(digest), []byte(password)) == nil
	default:
		return false
	}
}

// NeedsRehash reports whether digest should be replaced with a fresh Hash,
// either because it uses another algorithm or older argon2id parameters.
func (h *Hasher) NeedsRehash(digest string) bool {
	d, ok := decodeArgon2id(digest)
	if !ok {
		return true
	}
	return d.params.Time != h.params.Time ||
		d.params.Memory != h.params.Memory ||
		d.params.Threads != h.params.Threads ||
		uint32(len(d.key)) != h.params.KeyLen
}

func isBcrypt(digest string) bool {
	for _, prefix := range []string{"$2a$", "$2b$", "$2y$"} {
		if strings.HasPrefix(digest, prefix) {
			return true
		}
	}
	return false
}

type argon2Digest struct {
	params Params
	salt   []byte
	key    []byte
}

func decodeArgon2id(digest string) (*argon2Digest, bool) {
	parts := strings.Split(digest, "$")
	if len(parts) != 6 || parts[1] != "argon2id" {
		return nil, false
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil || version != argon2.Version {
		return nil, false
	}

	var p Params
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &p.Memory, &p.Time, &p.Threads); err != nil {
		return nil, false
	}
	if p.Time == 0 || p.Threads == 0 || p.Memory == 0 || p.Memory > maxMemory {
		return nil, false
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil || len(salt) == 0 {
		return nil, false
	}
	key, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil || len(key) == 0 {
		return nil, false
	}

	p.SaltLen = len(salt)
	p.KeyLen = uint32(len(key))

	return &argon2Digest{params: p, salt: salt, key: key}, true
}

func verifyArgon2id(password, digest string) bool {
	d, ok := decodeArgon2id(digest)
	if !ok {
		return false
	}

	candidate := argon2.IDKey([]byte(password), d.salt, d.params.Time, d.params.Memory, d.params.Threads, d.params.KeyLen)

	return subtle.ConstantTimeCompare(d.key, candidate) == 1
}
