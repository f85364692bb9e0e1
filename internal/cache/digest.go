// Package cache implements the content-addressed result store. Entries are
// keyed by the SHA-256 digest of the original document bytes, created once and
// never updated in place.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

const digestLen = sha256.Size * 2

// Digest returns the lowercase hex SHA-256 of the raw document bytes.
func Digest(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// ValidKey reports whether key looks like a value produced by Digest.
func ValidKey(key string) bool {
	if len(key) != digestLen {
		return false
	}
	for i := 0; i < len(key); i++ {
		c := key[i]
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return false
		}
	}
	return true
}

func checkKey(key string) error {
	if !ValidKey(key) {
		return fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	return nil
}
