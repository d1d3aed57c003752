// Package secrets hashes and verifies resource authorization secrets (EPP authInfo
// passwords). Only bcrypt hashes are persisted.
package secrets

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	dErrors "github.com/alangunning/nomulus/pkg/domain-errors"
)

// ErrMismatch is returned by Verify when the secret does not match the hash.
var ErrMismatch = errors.New("secret does not match")

// Generate creates a random authInfo password suitable for a new resource.
func Generate() (string, error) {
	buf := make([]byte, 18)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("could not generate secret: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// Hash creates a bcrypt hash of the provided secret.
func Hash(secret string) (string, error) {
	return HashWithCost(secret, bcrypt.DefaultCost)
}

// HashWithCost is Hash with an explicit bcrypt cost; tests use bcrypt.MinCost.
func HashWithCost(secret string, cost int) (string, error) {
	if secret == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "secret cannot be empty")
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(secret), cost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return "", dErrors.New(dErrors.CodeInvalidInput, "secret is too long")
		}
		return "", fmt.Errorf("could not hash secret: %w", err)
	}
	return string(hashed), nil
}

// Verify checks a plaintext secret against a bcrypt hash. A mismatch (including
// an empty hash, meaning the resource has no secret) yields ErrMismatch; any other
// error means the hash itself is unusable.
func Verify(secret, hash string) error {
	if hash == "" {
		return ErrMismatch
	}
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(secret)); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return ErrMismatch
		}
		return fmt.Errorf("could not verify secret: %w", err)
	}
	return nil
}
