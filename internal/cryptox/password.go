// Package cryptox implements password hashing for stored credentials.
//
// Passwords are stretched with argon2id using a fresh random salt per hash.
// Verification re-derives the key with the stored salt and compares it in
// constant time.
package cryptox

import (
	"crypto/rand"
	"crypto/subtle"

	"golang.org/x/crypto/argon2"
)

const (
	SaltSize = 16
	KeySize  = 32

	argonTime    = 1
	argonMemory  = 64 * 1024
	argonThreads = 4
)

// DeriveKey stretches password with salt. Same inputs give the same key.
func DeriveKey(password, salt []byte) []byte {
	return argon2.IDKey(password, salt, argonTime, argonMemory, argonThreads, KeySize)
}

// HashPassword returns the derived key and the random salt used for it.
func HashPassword(password []byte) (hash, salt []byte, err error) {
	salt = make([]byte, SaltSize)
	if _, err := rand.Read(salt); err != nil {
		return nil, nil, err
	}
	return DeriveKey(password, salt), salt, nil
}

// VerifyPassword reports whether password matches hash under salt.
// A malformed hash or salt never matches.
func VerifyPassword(password, hash, salt []byte) bool {
	if len(hash) != KeySize || len(salt) == 0 {
		return false
	}
	candidate := DeriveKey(password, salt)
	return subtle.ConstantTimeCompare(candidate, hash) == 1
}
