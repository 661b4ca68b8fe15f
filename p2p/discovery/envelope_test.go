package discovery

import (
	"testing"

	"github.com/stretchr/testify/require"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
)

func TestAssembleAndParsePacketRoundTrip(t *testing.T) {
	key, err := ethcrypto.GenerateKey()
	require.NoError(t, err)

	payload := []byte{0x01, 0x02, 0x03}
	packet, err := assemblePacket(key, packetPing, payload)
	require.NoError(t, err)

	sender, packetType, decodedPayload, err := parsePacket(packet)
	require.NoError(t, err)
	require.Equal(t, packetPing, packetType)
	require.Equal(t, payload, decodedPayload)

	wantID := ethcrypto.FromECDSAPub(&key.PublicKey)[1:]
	require.Equal(t, wantID, sender[:])
}

func TestParsePacketRejectsTamperedHash(t *testing.T) {
	key, err := ethcrypto.GenerateKey()
	require.NoError(t, err)

	packet, err := assemblePacket(key, packetFindNode, []byte{0xAA})
	require.NoError(t, err)
	packet[0] ^= 0xFF

	_, _, _, err = parsePacket(packet)
	require.Error(t, err)
}

func TestParsePacketRejectsShortInput(t *testing.T) {
	_, _, _, err := parsePacket([]byte{1, 2, 3})
	require.Error(t, err)
}
