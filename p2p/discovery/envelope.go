package discovery

import (
	"crypto/ecdsa"
	"fmt"

	"chaincore/primitives"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
)

// Wire layout: [hash(32) || signature(65) || packet-type(1) || rlp-payload].
// hash is keccak256 over everything from the signature onward, and
// signature is a recoverable secdsa signature over keccak256(packet-type ||
// rlp-payload). A node's ID is recovered from the signature rather than
// carried explicitly, the same trick devp2p v4 uses to save a field.
const (
	headerHashLen = 32
	headerSigLen  = 65
	headerLen     = headerHashLen + headerSigLen
)

func assemblePacket(secret *ecdsa.PrivateKey, packetType byte, payload []byte) ([]byte, error) {
	body := make([]byte, 1+len(payload))
	body[0] = packetType
	copy(body[1:], payload)

	digest := ethcrypto.Keccak256(body)
	sig, err := ethcrypto.Sign(digest, secret)
	if err != nil {
		return nil, fmt.Errorf("discovery: sign packet: %w", err)
	}

	packet := make([]byte, headerLen+len(body))
	copy(packet[headerHashLen:headerLen], sig)
	copy(packet[headerLen:], body)
	signedHash := ethcrypto.Keccak256(packet[headerHashLen:])
	copy(packet[:headerHashLen], signedHash)
	return packet, nil
}

// parsePacket verifies the envelope hash and recovers the sender's node ID
// from the signature, returning the packet type and raw RLP payload.
func parsePacket(data []byte) (sender NodeID, packetType byte, payload []byte, err error) {
	if len(data) < headerLen+1 {
		return sender, 0, nil, fmt.Errorf("discovery: packet too short")
	}
	claimedHash := data[:headerHashLen]
	rest := data[headerHashLen:]
	actualHash := ethcrypto.Keccak256(rest)
	if !bytesEqual(claimedHash, actualHash) {
		return sender, 0, nil, fmt.Errorf("discovery: packet hash mismatch")
	}

	sig := rest[:headerSigLen]
	body := rest[headerSigLen:]
	digest := ethcrypto.Keccak256(body)
	pub, err := ethcrypto.SigToPub(digest, sig)
	if err != nil {
		return sender, 0, nil, fmt.Errorf("discovery: recover sender: %w", err)
	}

	pubBytes := ethcrypto.FromECDSAPub(pub)
	sender = primitives.BytesToHash512(pubBytes[1:])
	return sender, body[0], body[1:], nil
}

func bytesEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
