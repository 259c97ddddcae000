package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
)

// hashKey builds a cache key of the form "prefix:<sha256 of parts>".
// Parts are JSON-encoded so structs and strings hash consistently.
func hashKey(prefix string, parts ...any) string {
	data, _ := json.Marshal(parts)
	return prefix + ":" + Hash(data)
}

// Hash returns the SHA-256 of data as a 64-character hex string.
// The full digest is kept; truncating would invite collisions between
// programs that differ only deep in their instruction lists.
func Hash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
