package types

import (
	"testing"

	"github.com/stretchr/testify/require"

	"chaincore/primitives"
	"chaincore/rlp"
)

func TestHeaderHashChangesWithNonce(t *testing.T) {
	h := &Header{Height: 1, Timestamp: 100, Difficulty: 8}
	first := h.Hash()

	h.Nonce = 1
	second := h.Hash()

	require.NotEqual(t, first, second)
}

func TestBlockHashDelegatesToHeader(t *testing.T) {
	h := &Header{Height: 7}
	b := NewBlock(h, nil)

	require.Equal(t, h.Hash(), b.Hash())
}

func TestTransactionSigningHashExcludesSignature(t *testing.T) {
	tx := &Transaction{
		Nonce:    1,
		GasPrice: primitives.U256FromUint64(1),
		GasLimit: 21000,
		To:       primitives.BytesToAddress160([]byte{0x01}),
		Value:    primitives.U256FromUint64(100),
	}

	unsigned := tx.SigningHash()

	tx.V = primitives.U256FromUint64(27)
	tx.R = primitives.U256FromUint64(0xdead)
	tx.S = primitives.U256FromUint64(0xbeef)

	require.Equal(t, unsigned, tx.SigningHash())
	require.NotEqual(t, tx.Hash(), tx.SigningHash())
}

func TestDecodeHeaderRoundTripsThroughEncode(t *testing.T) {
	h := &Header{
		Height:     42,
		Timestamp:  1700000000,
		PrevHash:   primitives.BytesToHash256([]byte{0xaa}),
		StateRoot:  primitives.BytesToHash256([]byte{0xbb}),
		TxRoot:     primitives.BytesToHash256([]byte{0xcc}),
		Validator:  primitives.BytesToAddress160([]byte{0x01, 0x02}),
		Difficulty: 9,
		Nonce:      7,
	}

	decoded, err := DecodeHeader(h.Encode())
	require.NoError(t, err)
	require.Equal(t, h, decoded)
	require.Equal(t, h.Hash(), decoded.Hash())
}

func TestDecodeTransactionRoundTripsThroughEncode(t *testing.T) {
	tx := &Transaction{
		Nonce:    3,
		GasPrice: primitives.U256FromUint64(5),
		GasLimit: 21000,
		To:       primitives.BytesToAddress160([]byte{0x01}),
		Value:    primitives.U256FromUint64(100),
		Data:     []byte{0xde, 0xad, 0xbe, 0xef},
		V:        primitives.U256FromUint64(27),
		R:        primitives.U256FromUint64(0xdead),
		S:        primitives.U256FromUint64(0xbeef),
	}

	decoded, err := DecodeTransaction(tx.Encode())
	require.NoError(t, err)
	require.Equal(t, tx, decoded)
	require.Equal(t, tx.Hash(), decoded.Hash())
}

func TestDecodeBlockRoundTripsThroughEncode(t *testing.T) {
	h := &Header{Height: 1, Timestamp: 1}
	tx := &Transaction{Nonce: 1, GasPrice: primitives.U256FromUint64(1), GasLimit: 21000, Value: primitives.U256FromUint64(1)}
	b := NewBlock(h, []*Transaction{tx})

	decoded, err := DecodeBlock(b.Encode())
	require.NoError(t, err)
	require.Equal(t, b.Header, decoded.Header)
	require.Len(t, decoded.Transactions, 1)
	require.Equal(t, tx.Hash(), decoded.Transactions[0].Hash())
	require.Equal(t, b.Hash(), decoded.Hash())
}

func TestDecodeHeaderRejectsWrongFieldCount(t *testing.T) {
	badData := rlp.EncodeList(rlp.EncodeUint64(1), rlp.EncodeUint64(2))
	_, err := DecodeHeader(badData)
	require.Error(t, err)
}
