// Package shacrypt produces SHA-512 crypt ("$6$") password hashes suitable for
// installer configuration files.
package shacrypt

import (
	"crypto/rand"
	"errors"
	"fmt"
	"io"

	"github.com/GehirnInc/crypt"
	"github.com/GehirnInc/crypt/sha512_crypt"
)

const (
	// Prefix is the modular crypt identifier for SHA-512 crypt.
	Prefix = "$6$"
	// SaltLen is the number of salt characters drawn per hash.
	SaltLen = 16

	saltAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789./"
)

// ErrMismatch is returned by Verify when the plaintext does not match.
var ErrMismatch = errors.New("shacrypt: hash does not match")

// Hasher hashes secrets with a fresh random salt per call.
type Hasher struct {
	rand    io.Reader
	crypter crypt.Crypter
}

// New returns a Hasher drawing salts from crypto/rand.
func New() *Hasher {
	return &Hasher{rand: rand.Reader, crypter: sha512_crypt.New()}
}

// NewWithRandom returns a Hasher drawing salts from r.
func NewWithRandom(r io.Reader) *Hasher {
	h := New()
	if r != nil {
		h.rand = r
	}
	return h
}

// Hash returns $6$<salt>$<digest> using the default 5000 rounds.
func (h *Hasher) Hash(plaintext string) (string, error) {
	salt, err := h.salt()
	if err != nil {
		return "", err
	}
	out, err := h.crypter.Generate([]byte(plaintext), []byte(Prefix+salt))
	if err != nil {
		return "", fmt.Errorf("sha512 crypt: %w", err)
	}
	return out, nil
}

// Verify reports whether plaintext produces hash.
func (h *Hasher) Verify(hash, plaintext string) error {
	if err := h.crypter.Verify(hash, []byte(plaintext)); err != nil {
		if errors.Is(err, crypt.ErrKeyMismatch) {
			return ErrMismatch
		}
		return fmt.Errorf("verify: %w", err)
	}
	return nil
}

// salt rejects bytes above the largest multiple of the alphabet size so each
// character is uniform.
func (h *Hasher) salt() (string, error) {
	const limit = 256 - 256%len(saltAlphabet)
	out := make([]byte, 0, SaltLen)
	buf := make([]byte, SaltLen*2)
	for len(out) < SaltLen {
		if _, err := io.ReadFull(h.rand, buf); err != nil {
			return "", fmt.Errorf("read salt: %w", err)
		}
		for _, b := range buf {
			if int(b) >= limit {
				continue
			}
			out = append(out, saltAlphabet[int(b)%len(saltAlphabet)])
			if len(out) == SaltLen {
				break
			}
		}
	}
	return string(out), nil
}
