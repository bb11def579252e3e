package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// Cache stores opaque values by key
type Cache interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte, ttl time.Duration) error
	Delete(key string) error
	Clear() error
}

// Key builds a namespaced cache key from an arbitrary string.
// The input is hashed so keys are safe as file names.
func Key(namespace, s string) string {
	hash := sha256.Sum256([]byte(s))
	return "riskfeed-v1-" + namespace + "-" + hex.EncodeToString(hash[:])
}
