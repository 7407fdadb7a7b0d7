package utils

import (
	"crypto/sha256"
	"crypto/sha512"
	"encoding/hex"
	"hash"
)

// HashAlgorithm represents the hashing algorithm to use
type HashAlgorithm string

const (
	SHA256 HashAlgorithm = "sha256"
	SHA512 HashAlgorithm = "sha512"
)

// Hasher fingerprints rendered documents and graph files.
type Hasher struct {
	algorithm HashAlgorithm
}

// NewHasher creates a new hasher with the specified algorithm
func NewHasher(algorithm HashAlgorithm) *Hasher {
	return &Hasher{algorithm: algorithm}
}

// DefaultHasher returns a hasher with the default algorithm
func DefaultHasher() *Hasher {
	return NewHasher(SHA256)
}

// Algorithm returns the algorithm Hash uses.
func (h *Hasher) Algorithm() HashAlgorithm {
	if h.algorithm == SHA512 {
		return SHA512
	}
	return SHA256
}

// Hash computes a hex digest of data. Unknown algorithms fall back to SHA256.
func (h *Hasher) Hash(data []byte) string {
	var d hash.Hash
	switch h.Algorithm() {
	case SHA512:
		d = sha512.New()
	default:
		d = sha256.New()
	}
	d.Write(data)
	return hex.EncodeToString(d.Sum(nil))
}

// ETag returns a strong HTTP entity tag for data.
func (h *Hasher) ETag(data []byte) string {
	return `"` + h.Hash(data)[:32] + `"`
}
