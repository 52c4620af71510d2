package security

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"math/big"
)

// OpaqueTokenBytes is the entropy of tokens produced by NewOpaqueToken.
const OpaqueTokenBytes = 32

// NewOpaqueToken returns a hex-encoded random token with OpaqueTokenBytes of entropy.
func NewOpaqueToken() (string, error) {
	b := make([]byte, OpaqueTokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("read random bytes: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// HashSecret returns the hex SHA-256 of a short-lived secret (OTP code or
// opaque token) so the raw value never sits in a store.
func HashSecret(secret string) string {
	h := sha256.Sum256([]byte(secret))
	return hex.EncodeToString(h[:])
}

// SecretMatches compares provided against storedHash in constant time.
func SecretMatches(provided, storedHash string) bool {
	return subtle.ConstantTimeCompare([]byte(HashSecret(provided)), []byte(storedHash)) == 1
}

// RandomDigits returns n uniformly distributed decimal digits from crypto/rand.
func RandomDigits(n int) (string, error) {
	if n <= 0 {
		return "", fmt.Errorf("digit count must be positive")
	}
	limit := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(n)), nil)
	v, err := rand.Int(rand.Reader, limit)
	if err != nil {
		return "", fmt.Errorf("read random number: %w", err)
	}
	return fmt.Sprintf("%0*d", n, v), nil
}
