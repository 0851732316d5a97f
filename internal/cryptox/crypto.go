// Package cryptox holds the secret-hashing primitives used for PIN
// verification.
package cryptox

import (
	"crypto/subtle"

	"github.com/dmitrijs2005/stealthdetect/internal/common"
	"golang.org/x/crypto/argon2"
)

// SaltSize is the length of a freshly generated credential salt.
const SaltSize = 32

// HashParams are the argon2id cost parameters. They are persisted with every
// credential so a later config change never invalidates stored hashes.
type HashParams struct {
	Time      uint32
	MemoryKiB uint32
	Threads   uint8
	KeyLen    uint32
}

// DefaultHashParams are tuned for an interactive unlock on a phone-class CPU.
var DefaultHashParams = HashParams{Time: 1, MemoryKiB: 64 * 1024, Threads: 4, KeyLen: 32}

// Valid reports whether p can be fed to argon2.
func (p HashParams) Valid() bool {
	return p.Time > 0 && p.MemoryKiB >= 8*uint32(p.Threads) && p.Threads > 0 && p.KeyLen >= 16
}

// HashSecret derives the argon2id hash of secret under salt.
func HashSecret(secret, salt []byte, p HashParams) []byte {
	return argon2.IDKey(secret, salt, p.Time, p.MemoryKiB, p.Threads, p.KeyLen)
}

// NewSalt returns SaltSize random bytes.
func NewSalt() []byte {
	return common.GenerateRandByteArray(SaltSize)
}

// Equal compares two hashes in constant time. Slices of different length
// are unequal; the length itself is not secret.
func Equal(a, b []byte) bool {
	return subtle.ConstantTimeCompare(a, b) == 1
}
