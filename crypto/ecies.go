package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/ecdsa"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"errors"

	"github.com/ethereum/go-ethereum/crypto"
)

// ECIES message layout: [enc_version(1) || ephemeral_pubkey(65) || iv(16) ||
// ciphertext(len(plain)) || hmac(32)], matching the RLPx handshake framing
// this scheme was built for.
const (
	eciesVersion = 0x04
	ivLen        = 16
	macLen       = 32
	keyLen       = 16
)

var (
	// ErrInvalidMessage is returned when an encrypted message is malformed
	// or its HMAC does not verify.
	ErrInvalidMessage = errors.New("ecies: invalid message")
)

// Encrypt encrypts plain for the recipient's public key, authenticating
// authData alongside the ciphertext without including it in the output
// (the same approach as RLPx's handshake framing, where authData is
// reconstructed independently by the peer).
func Encrypt(public *ecdsa.PublicKey, authData, plain []byte) ([]byte, error) {
	ephemeral, err := crypto.GenerateKey()
	if err != nil {
		return nil, err
	}
	z, err := Agree(ephemeral, public)
	if err != nil {
		return nil, err
	}

	var key [32]byte
	kdf(z, nil, key[:])
	ekey, mkey := key[:16], sha256Sum(key[16:32])

	iv := make([]byte, ivLen)
	if _, err := rand.Read(iv); err != nil {
		return nil, err
	}

	ephPub := crypto.FromECDSAPub(&ephemeral.PublicKey)
	msg := make([]byte, 1+len(ephPub)+ivLen+len(plain)+macLen)
	msg[0] = eciesVersion
	copy(msg[1:], ephPub)
	copy(msg[1+len(ephPub):], iv)
	cipherStart := 1 + len(ephPub) + ivLen
	copy(msg[cipherStart:], plain)

	if err := xorKeyStream(ekey, iv, msg[cipherStart:cipherStart+len(plain)]); err != nil {
		return nil, err
	}

	sig := hmacSHA256(mkey, msg[1+len(ephPub):cipherStart+len(plain)], authData)
	copy(msg[cipherStart+len(plain):], sig)
	return msg, nil
}

// Decrypt reverses Encrypt using the recipient's private key, verifying the
// HMAC over authData before releasing the plaintext.
func Decrypt(secret *ecdsa.PrivateKey, authData, encrypted []byte) ([]byte, error) {
	const metaLen = 1 + 65 + ivLen + macLen
	if len(encrypted) < metaLen {
		return nil, ErrInvalidMessage
	}
	if v := encrypted[0]; v < 2 || v > 4 {
		return nil, ErrInvalidMessage
	}

	e := encrypted[1:]
	ephPub, err := crypto.UnmarshalPubkey(e[0:65])
	if err != nil {
		return nil, ErrInvalidMessage
	}
	z, err := Agree(secret, ephPub)
	if err != nil {
		return nil, err
	}

	var key [32]byte
	kdf(z, nil, key[:])
	ekey, mkey := key[:16], sha256Sum(key[16:32])

	cipherLen := len(encrypted) - metaLen
	rest := e[65:]
	iv := rest[0:ivLen]
	ciphertext := rest[ivLen : ivLen+cipherLen]
	msgMAC := rest[ivLen+cipherLen:]

	expected := hmacSHA256(mkey, rest[0:ivLen+cipherLen], authData)
	if subtle.ConstantTimeCompare(msgMAC, expected) != 1 {
		return nil, ErrInvalidMessage
	}

	out := append([]byte(nil), ciphertext...)
	if err := xorKeyStream(ekey, iv, out); err != nil {
		return nil, err
	}
	return out, nil
}

// kdf is the SEC/ISO/Shoup concatenation KDF: repeated SHA-256(counter ||
// secret || s1), counter starting at 1, filling dest one 32-byte block at a
// time.
func kdf(secret, s1, dest []byte) {
	var ctr uint32 = 1
	written := 0
	for written < len(dest) {
		h := sha256.New()
		h.Write([]byte{byte(ctr >> 24), byte(ctr >> 16), byte(ctr >> 8), byte(ctr)})
		h.Write(secret)
		h.Write(s1)
		d := h.Sum(nil)
		n := copy(dest[written:], d)
		written += n
		ctr++
	}
}

func sha256Sum(b []byte) []byte {
	sum := sha256.Sum256(b)
	return sum[:]
}

func hmacSHA256(key, data, authData []byte) []byte {
	h := hmac.New(sha256.New, key)
	h.Write(data)
	h.Write(authData)
	return h.Sum(nil)
}

func xorKeyStream(key, iv, data []byte) error {
	block, err := aes.NewCipher(key)
	if err != nil {
		return err
	}
	cipher.NewCTR(block, iv).XORKeyStream(data, data)
	return nil
}
