package hashutil

import (
	"encoding/hex"

	"lukechampine.com/blake3"
)

// KeyDigest is the blake3 hex digest of a string key. Storage adapters use it
// as a fixed-width index column and lock file name.
func KeyDigest(key string) string {
	sum := blake3.Sum256([]byte(key))
	return hex.EncodeToString(sum[:])
}

// ETag formats a strong entity tag from the first 16 bytes of a blake3 body digest.
func ETag(body []byte) string {
	sum := blake3.Sum256(body)
	return `"` + hex.EncodeToString(sum[:16]) + `"`
}
