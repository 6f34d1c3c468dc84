package checksum

import (
	"crypto/sha256"
	"encoding/hex"

	"github.com/cespare/xxhash/v2"
)

// Sum returns the hex-encoded SHA-256 digest of data.
func Sum(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

// Fast returns the xxhash64 digest of data. It is used to detect unchanged
// files cheaply and is not suitable as an externally visible checksum.
func Fast(data []byte) uint64 {
	return xxhash.Sum64(data)
}
