package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
)

// hashKey generates a cache key by hashing the components.
// The key format is: prefix:hash(parts...)
func hashKey(prefix string, parts ...any) string {
	data, _ := json.Marshal(parts)
	hash := sha256.Sum256(data)
	return fmt.Sprintf("%s:%s", prefix, hex.EncodeToString(hash[:]))
}

// Hash computes a SHA-256 hash of the input data.
// Returns the full 64-character hex string.
func Hash(data []byte) string {
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:])
}

// keyType returns the kind segment of a key built by a Keyer, skipping any
// scope prefix: "api:rewrite:ab12" has type "rewrite".
func keyType(key string) string {
	end := strings.LastIndex(key, ":")
	if end < 0 {
		return "other"
	}
	return key[strings.LastIndex(key[:end], ":")+1 : end]
}
