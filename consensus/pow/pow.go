package pow

import (
	"encoding/binary"
	"errors"

	"chaincore/primitives"
)

// ErrNonceExhausted is returned when Seal searches maxAttempts nonces
// without finding one that satisfies the target difficulty.
var ErrNonceExhausted = errors.New("pow: nonce search exhausted")

// Seal searches for a nonce such that keccak256(headerBytes || nonce) has
// at least bits leading zero bits, starting from startNonce and trying at
// most maxAttempts values. It returns the first satisfying nonce.
func Seal(headerBytes []byte, bits uint8, startNonce uint64, maxAttempts uint64) (uint64, error) {
	var nonceBuf [8]byte
	for i := uint64(0); i < maxAttempts; i++ {
		nonce := startNonce + i
		binary.BigEndian.PutUint64(nonceBuf[:], nonce)
		hash := primitives.Keccak256(headerBytes, nonceBuf[:])
		if leadingZeroBits(hash) >= bits {
			return nonce, nil
		}
	}
	return 0, ErrNonceExhausted
}

// Verify reports whether nonce is a valid proof of work for headerBytes at
// the given difficulty.
func Verify(headerBytes []byte, bits uint8, nonce uint64) bool {
	var nonceBuf [8]byte
	binary.BigEndian.PutUint64(nonceBuf[:], nonce)
	hash := primitives.Keccak256(headerBytes, nonceBuf[:])
	return leadingZeroBits(hash) >= bits
}

func leadingZeroBits(h primitives.Hash256) uint8 {
	count := uint8(0)
	for _, b := range h {
		if b == 0 {
			count += 8
			continue
		}
		for mask := byte(0x80); mask > 0; mask >>= 1 {
			if b&mask != 0 {
				return count
			}
			count++
		}
		return count
	}
	return count
}
