package cryptox

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// Token sizes in bytes before encoding.
const (
	TokenSize128 = 16
	TokenSize256 = 32
	TokenSize512 = 64
)

// TokenHashCost is the bcrypt cost used by HashToken. Tests lower it to
// bcrypt.MinCost.
var TokenHashCost = bcrypt.DefaultCost

// ErrTokenMismatch is returned by CompareToken when the token does not match.
var ErrTokenMismatch = errors.New("cryptox: token does not match")

// GenerateToken returns size random bytes encoded as unpadded base64url.
func GenerateToken(size int) (string, error) {
	if size <= 0 {
		return "", fmt.Errorf("token size must be positive, got %d", size)
	}

	buf := make([]byte, size)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate random token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// FingerprintToken returns the base64url SHA-256 of token (43 chars). It is
// deterministic, so it can be used as a lookup key for revoked access tokens.
func FingerprintToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}

// HashToken returns a salted bcrypt hash of token for at-rest storage.
//
// bcrypt only reads the first 72 bytes of its input and JWTs are much longer,
// so the token is fingerprinted first.
func HashToken(token string) (string, error) {
	h, err := bcrypt.GenerateFromPassword([]byte(FingerprintToken(token)), TokenHashCost)
	if err != nil {
		return "", fmt.Errorf("hash token: %w", err)
	}
	return string(h), nil
}

// CompareToken reports whether token matches a hash from HashToken.
func CompareToken(token, hash string) error {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(FingerprintToken(token)))
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return ErrTokenMismatch
	}
	return err
}
