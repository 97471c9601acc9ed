package security

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"unicode"

	"github.com/angelmondragon/civicpulse-backend/pkg/config"
	"golang.org/x/crypto/argon2"
)

// ErrInvalidHash signals a malformed Argon2id hash string.
var ErrInvalidHash = errors.New("invalid argon2id hash")

var b64 = base64.RawStdEncoding

// ArgonParams are the Argon2id cost settings embedded into each hash.
type ArgonParams struct {
	Memory      uint32
	Time        uint32
	Parallelism uint8
	SaltLen     uint32
	KeyLen      uint32
}

// Hasher hashes and verifies passwords with Argon2id. It keeps a throwaway
// hash so lookups for unknown accounts cost the same as real verifications.
type Hasher struct {
	params ArgonParams
	dummy  string
}

func NewHasher(cfg config.PasswordConfig) (*Hasher, error) {
	h := &Hasher{params: ArgonParams{
		Memory:      uint32(clamp(cfg.ArgonMemoryKB, 8, 512*1024)),
		Time:        uint32(clamp(cfg.ArgonTime, 1, 10)),
		Parallelism: uint8(clamp(cfg.ArgonParallelism, 1, 255)),
		SaltLen:     uint32(clamp(cfg.ArgonSaltLen, 8, 64)),
		KeyLen:      uint32(clamp(cfg.ArgonKeyLen, 16, 64)),
	}}
	dummy, err := h.Hash("civicpulse-dummy-password")
	if err != nil {
		return nil, fmt.Errorf("prime dummy hash: %w", err)
	}
	h.dummy = dummy
	return h, nil
}

// phc is a decoded $argon2id$v=19$m=..,t=..,p=..$salt$key string.
type phc struct {
	params ArgonParams
	salt   []byte
	key    []byte
}

func (p phc) String() string {
	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version, p.params.Memory, p.params.Time, p.params.Parallelism,
		b64.EncodeToString(p.salt), b64.EncodeToString(p.key))
}

func derive(password string, params ArgonParams, salt []byte) []byte {
	return argon2.IDKey([]byte(password), salt, params.Time, params.Memory, params.Parallelism, params.KeyLen)
}

// Hash returns an encoded Argon2id hash with a fresh random salt.
func (h *Hasher) Hash(password string) (string, error) {
	if password == "" {
		return "", errors.New("password cannot be empty")
	}
	salt := make([]byte, h.params.SaltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("generate salt: %w", err)
	}
	return phc{params: h.params, salt: salt, key: derive(password, h.params, salt)}.String(), nil
}

// Verify reports whether password matches encoded, using the cost settings
// stored in encoded rather than the current ones.
func (h *Hasher) Verify(password, encoded string) (bool, error) {
	stored, err := parsePHC(encoded)
	if err != nil {
		return false, err
	}
	got := derive(password, stored.params, stored.salt)
	return subtle.ConstantTimeCompare(stored.key, got) == 1, nil
}

// VerifyDummy burns one verification against the throwaway hash.
func (h *Hasher) VerifyDummy(password string) {
	_, _ = h.Verify(password, h.dummy)
}

// NeedsRehash reports whether encoded was produced with cost settings other
// than the hasher's current ones. Unparseable hashes always need one.
func (h *Hasher) NeedsRehash(encoded string) bool {
	stored, err := parsePHC(encoded)
	return err != nil || stored.params != h.params
}

func parsePHC(encoded string) (phc, error) {
	var out phc
	fields := strings.Split(encoded, "$")
	if len(fields) != 6 || fields[0] != "" || fields[1] != "argon2id" {
		return out, ErrInvalidHash
	}
	if fields[2] != fmt.Sprintf("v=%d", argon2.Version) {
		return out, ErrInvalidHash
	}

	p := &out.params
	if n, err := fmt.Sscanf(fields[3], "m=%d,t=%d,p=%d", &p.Memory, &p.Time, &p.Parallelism); err != nil || n != 3 {
		return out, ErrInvalidHash
	}
	if p.Memory == 0 || p.Time == 0 || p.Parallelism == 0 {
		return out, ErrInvalidHash
	}

	var err error
	if out.salt, err = b64.DecodeString(fields[4]); err != nil || len(out.salt) == 0 {
		return out, ErrInvalidHash
	}
	if out.key, err = b64.DecodeString(fields[5]); err != nil || len(out.key) == 0 {
		return out, ErrInvalidHash
	}
	p.SaltLen, p.KeyLen = uint32(len(out.salt)), uint32(len(out.key))
	return out, nil
}

func clamp(v, lo, hi int) int {
	return max(lo, min(v, hi))
}

// PasswordStrong requires at least one lower-case letter, one upper-case
// letter and one digit.
func PasswordStrong(password string) bool {
	var lower, upper, digit bool
	for _, r := range password {
		lower = lower || unicode.IsLower(r)
		upper = upper || unicode.IsUpper(r)
		digit = digit || unicode.IsDigit(r)
	}
	return lower && upper && digit
}
