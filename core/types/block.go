// Package types defines the chain's data-carrier types: block headers,
// blocks, and the transactions a block batches. Hashing goes through RLP +
// keccak256 rather than JSON, so a header's hash matches what the trie and
// EVM packages already use to key the world they describe.
package types

import (
	"fmt"

	"chaincore/primitives"
	"chaincore/rlp"
)

// Header is a block's metadata and its commitments to the chain's state and
// transaction set.
type Header struct {
	Height     uint64
	Timestamp  uint64
	PrevHash   primitives.Hash256
	StateRoot  primitives.Hash256
	TxRoot     primitives.Hash256
	Validator  primitives.Address160
	Difficulty uint8
	Nonce      uint64
}

// Encode returns the canonical RLP encoding of the header.
func (h *Header) Encode() []byte {
	return rlp.EncodeList(
		rlp.EncodeUint64(h.Height),
		rlp.EncodeUint64(h.Timestamp),
		rlp.EncodeBytes(h.PrevHash.Bytes()),
		rlp.EncodeBytes(h.StateRoot.Bytes()),
		rlp.EncodeBytes(h.TxRoot.Bytes()),
		rlp.EncodeBytes(h.Validator.Bytes()),
		rlp.EncodeUint64(uint64(h.Difficulty)),
		rlp.EncodeUint64(h.Nonce),
	)
}

// Hash returns the keccak256 hash of the header's RLP encoding. This is the
// block's identity: PrevHash fields elsewhere in the chain point at it.
func (h *Header) Hash() primitives.Hash256 {
	return primitives.Keccak256(h.Encode())
}

// DecodeHeader parses the RLP encoding produced by Header.Encode.
func DecodeHeader(data []byte) (*Header, error) {
	dec, err := rlp.NewDecoder(data)
	if err != nil {
		return nil, fmt.Errorf("decode header: %w", err)
	}
	if dec.Kind() != rlp.KindList {
		return nil, fmt.Errorf("decode header: expected list")
	}
	n, err := dec.ItemCount()
	if err != nil {
		return nil, fmt.Errorf("decode header: %w", err)
	}
	if n != 8 {
		return nil, fmt.Errorf("decode header: expected 8 fields, got %d", n)
	}

	height, err := itemUint64(dec, 0)
	if err != nil {
		return nil, fmt.Errorf("decode header.Height: %w", err)
	}
	timestamp, err := itemUint64(dec, 1)
	if err != nil {
		return nil, fmt.Errorf("decode header.Timestamp: %w", err)
	}
	prevHash, err := dec.ValAt(2)
	if err != nil {
		return nil, fmt.Errorf("decode header.PrevHash: %w", err)
	}
	stateRoot, err := dec.ValAt(3)
	if err != nil {
		return nil, fmt.Errorf("decode header.StateRoot: %w", err)
	}
	txRoot, err := dec.ValAt(4)
	if err != nil {
		return nil, fmt.Errorf("decode header.TxRoot: %w", err)
	}
	validator, err := dec.ValAt(5)
	if err != nil {
		return nil, fmt.Errorf("decode header.Validator: %w", err)
	}
	difficulty, err := itemUint64(dec, 6)
	if err != nil {
		return nil, fmt.Errorf("decode header.Difficulty: %w", err)
	}
	if difficulty > 0xFF {
		return nil, fmt.Errorf("decode header.Difficulty: value %d overflows uint8", difficulty)
	}
	nonce, err := itemUint64(dec, 7)
	if err != nil {
		return nil, fmt.Errorf("decode header.Nonce: %w", err)
	}

	return &Header{
		Height:     height,
		Timestamp:  timestamp,
		PrevHash:   primitives.BytesToHash256(prevHash),
		StateRoot:  primitives.BytesToHash256(stateRoot),
		TxRoot:     primitives.BytesToHash256(txRoot),
		Validator:  primitives.BytesToAddress160(validator),
		Difficulty: uint8(difficulty),
		Nonce:      nonce,
	}, nil
}

// itemUint64 decodes the i-th item of a list decoder as a minimal big-endian
// unsigned integer.
func itemUint64(dec *rlp.Decoder, i int) (uint64, error) {
	item, err := dec.At(i)
	if err != nil {
		return 0, err
	}
	return item.Uint64()
}

// Block pairs a header with the transactions it commits to via TxRoot.
type Block struct {
	Header       *Header
	Transactions []*Transaction
}

// NewBlock constructs a block from a header and its transaction set.
func NewBlock(header *Header, txs []*Transaction) *Block {
	return &Block{Header: header, Transactions: txs}
}

// Hash delegates to the header: a block's identity is its header's hash.
func (b *Block) Hash() primitives.Hash256 {
	return b.Header.Hash()
}

// Encode returns the RLP encoding of the block: its header followed by its
// transaction list, each transaction encoded in full.
func (b *Block) Encode() []byte {
	txItems := make([][]byte, len(b.Transactions))
	for i, tx := range b.Transactions {
		txItems[i] = tx.Encode()
	}
	return rlp.EncodeList(
		rlp.EncodeBytes(b.Header.Encode()),
		rlp.EncodeList(txItems...),
	)
}

// DecodeBlock parses the RLP encoding produced by Block.Encode.
func DecodeBlock(data []byte) (*Block, error) {
	dec, err := rlp.NewDecoder(data)
	if err != nil {
		return nil, fmt.Errorf("decode block: %w", err)
	}
	if dec.Kind() != rlp.KindList {
		return nil, fmt.Errorf("decode block: expected list")
	}
	n, err := dec.ItemCount()
	if err != nil {
		return nil, fmt.Errorf("decode block: %w", err)
	}
	if n != 2 {
		return nil, fmt.Errorf("decode block: expected 2 fields, got %d", n)
	}

	headerBytes, err := dec.ValAt(0)
	if err != nil {
		return nil, fmt.Errorf("decode block.Header: %w", err)
	}
	header, err := DecodeHeader(headerBytes)
	if err != nil {
		return nil, fmt.Errorf("decode block.Header: %w", err)
	}

	txList, err := dec.At(1)
	if err != nil {
		return nil, fmt.Errorf("decode block.Transactions: %w", err)
	}
	txCount, err := txList.ItemCount()
	if err != nil {
		return nil, fmt.Errorf("decode block.Transactions: %w", err)
	}
	txs := make([]*Transaction, txCount)
	for i := range txs {
		txBytes, err := txList.ValAt(i)
		if err != nil {
			return nil, fmt.Errorf("decode block.Transactions[%d]: %w", i, err)
		}
		tx, err := DecodeTransaction(txBytes)
		if err != nil {
			return nil, fmt.Errorf("decode block.Transactions[%d]: %w", i, err)
		}
		txs[i] = tx
	}

	return &Block{Header: header, Transactions: txs}, nil
}

// Transaction is a single signed call into the EVM: a value transfer and/or
// a call to To with Data as calldata.
type Transaction struct {
	Nonce    uint64
	GasPrice primitives.U256
	GasLimit uint64
	To       primitives.Address160
	Value    primitives.U256
	Data     []byte
	V, R, S  primitives.U256
}

// signingPayload returns the RLP encoding of the transaction's signed
// fields, excluding V, R, S.
func (tx *Transaction) signingPayload() []byte {
	return rlp.EncodeList(
		rlp.EncodeUint64(tx.Nonce),
		rlp.EncodeBytes(tx.GasPrice.Bytes()),
		rlp.EncodeUint64(tx.GasLimit),
		rlp.EncodeBytes(tx.To.Bytes()),
		rlp.EncodeBytes(tx.Value.Bytes()),
		rlp.EncodeBytes(tx.Data),
	)
}

// Encode returns the full RLP encoding of the transaction, signature
// included.
func (tx *Transaction) Encode() []byte {
	return rlp.EncodeList(
		rlp.EncodeUint64(tx.Nonce),
		rlp.EncodeBytes(tx.GasPrice.Bytes()),
		rlp.EncodeUint64(tx.GasLimit),
		rlp.EncodeBytes(tx.To.Bytes()),
		rlp.EncodeBytes(tx.Value.Bytes()),
		rlp.EncodeBytes(tx.Data),
		rlp.EncodeBytes(tx.V.Bytes()),
		rlp.EncodeBytes(tx.R.Bytes()),
		rlp.EncodeBytes(tx.S.Bytes()),
	)
}

// Hash returns the keccak256 hash of the transaction's full RLP encoding.
// This is the identifier used to key it in TxRoot and in p2p inventory
// messages.
func (tx *Transaction) Hash() primitives.Hash256 {
	return primitives.Keccak256(tx.Encode())
}

// SigningHash returns the keccak256 hash of the unsigned payload: what a
// sender's signature is produced over.
func (tx *Transaction) SigningHash() primitives.Hash256 {
	return primitives.Keccak256(tx.signingPayload())
}

// DecodeTransaction parses the RLP encoding produced by Transaction.Encode.
func DecodeTransaction(data []byte) (*Transaction, error) {
	dec, err := rlp.NewDecoder(data)
	if err != nil {
		return nil, fmt.Errorf("decode transaction: %w", err)
	}
	if dec.Kind() != rlp.KindList {
		return nil, fmt.Errorf("decode transaction: expected list")
	}
	n, err := dec.ItemCount()
	if err != nil {
		return nil, fmt.Errorf("decode transaction: %w", err)
	}
	if n != 9 {
		return nil, fmt.Errorf("decode transaction: expected 9 fields, got %d", n)
	}

	nonce, err := itemUint64(dec, 0)
	if err != nil {
		return nil, fmt.Errorf("decode transaction.Nonce: %w", err)
	}
	gasPrice, err := dec.ValAt(1)
	if err != nil {
		return nil, fmt.Errorf("decode transaction.GasPrice: %w", err)
	}
	gasLimit, err := itemUint64(dec, 2)
	if err != nil {
		return nil, fmt.Errorf("decode transaction.GasLimit: %w", err)
	}
	to, err := dec.ValAt(3)
	if err != nil {
		return nil, fmt.Errorf("decode transaction.To: %w", err)
	}
	value, err := dec.ValAt(4)
	if err != nil {
		return nil, fmt.Errorf("decode transaction.Value: %w", err)
	}
	data2, err := dec.ValAt(5)
	if err != nil {
		return nil, fmt.Errorf("decode transaction.Data: %w", err)
	}
	v, err := dec.ValAt(6)
	if err != nil {
		return nil, fmt.Errorf("decode transaction.V: %w", err)
	}
	r, err := dec.ValAt(7)
	if err != nil {
		return nil, fmt.Errorf("decode transaction.R: %w", err)
	}
	s, err := dec.ValAt(8)
	if err != nil {
		return nil, fmt.Errorf("decode transaction.S: %w", err)
	}

	return &Transaction{
		Nonce:    nonce,
		GasPrice: primitives.U256FromBytes(gasPrice),
		GasLimit: gasLimit,
		To:       primitives.BytesToAddress160(to),
		Value:    primitives.U256FromBytes(value),
		Data:     append([]byte(nil), data2...),
		V:        primitives.U256FromBytes(v),
		R:        primitives.U256FromBytes(r),
		S:        primitives.U256FromBytes(s),
	}, nil
}
