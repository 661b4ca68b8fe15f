package primitives

import (
	"crypto/hmac"
	"crypto/sha256"

	"golang.org/x/crypto/sha3"
)

// Keccak256 hashes the concatenation of data and returns a Hash256.
//
// The core injects hashing through this single function rather than a
// process-wide singleton so that trie encoding and the EVM's SHA3 opcode
// share one implementation (see spec's note on avoiding hidden global
// crypto state).
func Keccak256(data ...[]byte) Hash256 {
	h := sha3.NewLegacyKeccak256()
	for _, d := range data {
		h.Write(d)
	}
	var out Hash256
	h.Sum(out[:0])
	return out
}

// SHA256 hashes the concatenation of data using SHA-256.
func SHA256(data ...[]byte) Hash256 {
	h := sha256.New()
	for _, d := range data {
		h.Write(d)
	}
	var out Hash256
	h.Sum(out[:0])
	return out
}

// HMACSHA256 computes HMAC-SHA256(key, data).
func HMACSHA256(key []byte, data ...[]byte) Hash256 {
	mac := hmac.New(sha256.New, key)
	for _, d := range data {
		mac.Write(d)
	}
	var out Hash256
	mac.Sum(out[:0])
	return out
}
