package core

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"math"
	"sort"
	"strings"
)

// Hash represents a cryptographic hash
type Hash string

// NewHash creates a new hash from data
func NewHash(data []byte) Hash {
	sum := sha256.Sum256(data)
	return Hash(hex.EncodeToString(sum[:]))
}

// String returns the string representation
func (h Hash) String() string {
	return string(h)
}

// IsEmpty checks if the hash is empty
func (h Hash) IsEmpty() bool {
	return h == ""
}

// Equals checks if two hashes are equal
func (h Hash) Equals(other Hash) bool {
	return h == other
}

// ComputeMatrixFingerprint hashes a dense matrix plus its column keys so a
// run can be replayed against the exact inputs that produced it. The float
// bit patterns are hashed directly; equal matrices always fingerprint equal.
func ComputeMatrixFingerprint(data [][]float64, keys []FeatureKey) Hash {
	var buf strings.Builder
	sorted := make([]string, len(keys))
	for i, k := range keys {
		sorted[i] = k.String()
	}
	sort.Strings(sorted)
	for _, k := range sorted {
		buf.WriteString(k)
	}

	raw := make([]byte, 0, 8*len(data)*maxLen(data))
	var word [8]byte
	for _, row := range data {
		for _, v := range row {
			binary.LittleEndian.PutUint64(word[:], math.Float64bits(v))
			raw = append(raw, word[:]...)
		}
	}
	raw = append(raw, []byte(buf.String())...)
	return NewHash(raw)
}

func maxLen(rows [][]float64) int {
	n := 0
	for _, r := range rows {
		if len(r) > n {
			n = len(r)
		}
	}
	return n
}
