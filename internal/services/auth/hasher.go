// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"codeberg.org/oliverandrich/microloan/internal/config"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/crypto/pbkdf2"
)

// ErrUnknownHash is returned for stored hashes of an unrecognised format.
var ErrUnknownHash = errors.New("unknown password hash format")

// Hasher creates and checks password hashes of one scheme.
type Hasher interface {
	Scheme() string
	Hash(password string) (string, error)
	// Verify reports whether password matches hash. A mismatch is not an error.
	Verify(hash, password string) (bool, error)
	// Owns reports whether hash was produced by this scheme.
	Owns(hash string) bool
}

// NewHasher returns the hasher for a configured scheme.
func NewHasher(scheme string) (Hasher, error) {
	switch strings.ToLower(scheme) {
	case "", config.HashSchemeBcrypt:
		return NewBcryptHasher(bcrypt.DefaultCost), nil
	case config.HashSchemePBKDF2:
		return NewPBKDF2Hasher(DefaultPBKDF2Iterations), nil
	default:
		return nil, fmt.Errorf("unknown hash scheme %q", scheme)
	}
}

// BcryptHasher hashes with bcrypt.
type BcryptHasher struct {
	cost int
}

// NewBcryptHasher returns a bcrypt hasher with the given cost.
func NewBcryptHasher(cost int) *BcryptHasher {
	return &BcryptHasher{cost: cost}
}

func (h *BcryptHasher) Scheme() string { return config.HashSchemeBcrypt }

func (h *BcryptHasher) Hash(password string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(b), nil
}

func (h *BcryptHasher) Verify(hash, password string) (bool, error) {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
		return false, nil
	default:
		return false, err
	}
}

func (h *BcryptHasher) Owns(hash string) bool {
	return strings.HasPrefix(hash, "$2a$") || strings.HasPrefix(hash, "$2b$") || strings.HasPrefix(hash, "$2y$")
}

// PBKDF2 parameters.
const (
	DefaultPBKDF2Iterations = 600_000
	pbkdf2Prefix            = "pbkdf2-sha256$"
	pbkdf2SaltLen           = 16
	pbkdf2KeyLen            = 32
)

// PBKDF2Hasher hashes with PBKDF2-HMAC-SHA256. Hashes are stored as
// pbkdf2-sha256$<iterations>$<salt>$<key> with raw base64 fields.
type PBKDF2Hasher struct {
	iterations int
}

// NewPBKDF2Hasher returns a PBKDF2 hasher with the given iteration count.
func NewPBKDF2Hasher(iterations int) *PBKDF2Hasher {
	return &PBKDF2Hasher{iterations: iterations}
}

func (h *PBKDF2Hasher) Scheme() string { return config.HashSchemePBKDF2 }

func (h *PBKDF2Hasher) Hash(password string) (string, error) {
	salt := make([]byte, pbkdf2SaltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("failed to generate salt: %w", err)
	}
	key := pbkdf2.Key([]byte(password), salt, h.iterations, pbkdf2KeyLen, sha256.New)
	enc := base64.RawStdEncoding
	return fmt.Sprintf("%s%d$%s$%s", pbkdf2Prefix, h.iterations, enc.EncodeToString(salt), enc.EncodeToString(key)), nil
}

func (h *PBKDF2Hasher) Verify(hash, password string) (bool, error) {
	if !h.Owns(hash) {
		return false, ErrUnknownHash
	}
	parts := strings.Split(strings.TrimPrefix(hash, pbkdf2Prefix), "$")
	if len(parts) != 3 {
		return false, ErrUnknownHash
	}
	iterations, err := strconv.Atoi(parts[0])
	if err != nil || iterations < 1 {
		return false, ErrUnknownHash
	}
	enc := base64.RawStdEncoding
	salt, err := enc.DecodeString(parts[1])
	if err != nil {
		return false, ErrUnknownHash
	}
	want, err := enc.DecodeString(parts[2])
	if err != nil {
		return false, ErrUnknownHash
	}

	got := pbkdf2.Key([]byte(password), salt, iterations, len(want), sha256.New)
	return subtle.ConstantTimeCompare(got, want) == 1, nil
}

func (h *PBKDF2Hasher) Owns(hash string) bool {
	return strings.HasPrefix(hash, pbkdf2Prefix)
}

// verifyAny checks password against hash with whichever hasher owns it.
func verifyAny(hash, password string, hashers ...Hasher) (bool, error) {
	for _, h := range hashers {
		if h.Owns(hash) {
			return h.Verify(hash, password)
		}
	}
	return false, ErrUnknownHash
}
