package crypto

import (
	"crypto/ecdsa"
	"errors"

	"github.com/ethereum/go-ethereum/crypto"

	"chaincore/primitives"
)

// ErrKeyAgreement is returned when ECDH scalar multiplication yields the
// point at infinity (a malformed or adversarial public key).
var ErrKeyAgreement = errors.New("crypto: key agreement failed")

// Agree performs a Diffie-Hellman key agreement on secp256k1, returning the
// 32-byte big-endian x-coordinate of the shared point. It is the shared
// secret the RLPx handshake's ECIES framing derives session keys from.
func Agree(secret *ecdsa.PrivateKey, public *ecdsa.PublicKey) ([]byte, error) {
	curve := crypto.S256()
	x, y := curve.ScalarMult(public.X, public.Y, secret.D.Bytes())
	if x.Sign() == 0 && y.Sign() == 0 {
		return nil, ErrKeyAgreement
	}
	shared := make([]byte, 32)
	xb := x.Bytes()
	copy(shared[32-len(xb):], xb)
	return shared, nil
}

// Recover recovers the public key that produced signature over message,
// where signature is the 65-byte [R || S || V] recoverable form.
func Recover(signature primitives.Hash520, message primitives.Hash256) (*ecdsa.PublicKey, error) {
	pub, err := crypto.SigToPub(message[:], signature[:])
	if err != nil {
		return nil, err
	}
	return pub, nil
}
