// Package auth provides API-key authentication for the governor HTTP API.
package auth

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"strings"

	"github.com/alexedwards/argon2id"
)

// ErrInvalidKey is returned when an API key matches no configured key.
var ErrInvalidKey = errors.New("invalid api key")

// ErrUnknownHashType is returned when a stored hash has an unrecognized
// format.
var ErrUnknownHashType = errors.New("unknown hash type")

// Key is one configured API key: a display name plus a stored hash.
type Key struct {
	Name string
	Hash string
}

// Keyring validates raw keys against a fixed set of configured keys.
// The set comes from config at startup; an empty keyring disables auth.
type Keyring struct {
	keys []Key
}

// NewKeyring creates a keyring from the configured keys.
func NewKeyring(keys []Key) *Keyring {
	return &Keyring{keys: keys}
}

// Empty reports whether no keys are configured.
func (r *Keyring) Empty() bool { return len(r.keys) == 0 }

// Validate checks a raw key against every configured hash and returns the
// matching key's name. SHA-256 hashes compare in constant time; Argon2id
// hashes verify via the library.
func (r *Keyring) Validate(rawKey string) (string, error) {
	for _, k := range r.keys {
		match, err := VerifyKey(rawKey, k.Hash)
		if err != nil {
			continue
		}
		if match {
			return k.Name, nil
		}
	}
	return "", ErrInvalidKey
}

// HashKey returns the sha256:<hex> hash of the raw key.
func HashKey(rawKey string) string {
	sum := sha256.Sum256([]byte(rawKey))
	return "sha256:" + hex.EncodeToString(sum[:])
}

// argon2idParams follows the OWASP minimum parameters for Argon2id.
var argon2idParams = &argon2id.Params{
	Memory:      47 * 1024,
	Iterations:  1,
	Parallelism: 1,
	SaltLength:  16,
	KeyLength:   32,
}

// HashKeyArgon2id returns an Argon2id hash of the raw key in PHC format.
func HashKeyArgon2id(rawKey string) (string, error) {
	return argon2id.CreateHash(rawKey, argon2idParams)
}

// VerifyKey verifies a raw key against a stored hash. Supports Argon2id
// (PHC format), sha256:<hex>, and bare SHA-256 hex.
func VerifyKey(rawKey, storedHash string) (bool, error) {
	switch {
	case strings.HasPrefix(storedHash, "$argon2id$"):
		return argon2id.ComparePasswordAndHash(rawKey, storedHash)
	case strings.HasPrefix(storedHash, "sha256:"):
		return sha256Compare(rawKey, strings.TrimPrefix(storedHash, "sha256:")), nil
	case len(storedHash) == 64 && isHexString(storedHash):
		return sha256Compare(rawKey, storedHash), nil
	default:
		return false, ErrUnknownHashType
	}
}

// sha256Compare hashes rawKey and compares in constant time.
func sha256Compare(rawKey, hexHash string) bool {
	sum := sha256.Sum256([]byte(rawKey))
	want, err := hex.DecodeString(hexHash)
	if err != nil {
		return false
	}
	return subtle.ConstantTimeCompare(sum[:], want) == 1
}

func isHexString(s string) bool {
	for _, c := range s {
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') && (c < 'A' || c > 'F') {
			return false
		}
	}
	return true
}
