package collator

import (
	"errors"

	"chaincore/evm"
	"chaincore/primitives"
	"chaincore/trie"
)

// trieExt adapts a *trie.Trie into the evm.Ext a single transaction's call
// executes against. Storage slots are keyed by keccak256(address || slot),
// so every contract's storage lives in the one world trie without
// colliding with another contract's slots.
type trieExt struct {
	trie     *trie.Trie
	address  primitives.Address160
	schedule *evm.Schedule
	refund   uint64
	touched  []touchedKey
}

type touchedKey struct {
	address primitives.Address160
	key     primitives.Hash256
}

func newTrieExt(t *trie.Trie, address primitives.Address160, schedule *evm.Schedule) *trieExt {
	return &trieExt{trie: t, address: address, schedule: schedule}
}

func (e *trieExt) Schedule() *evm.Schedule { return e.schedule }

func (e *trieExt) storageTrieKey(key primitives.Hash256) []byte {
	h := primitives.Keccak256(e.address.Bytes(), key.Bytes())
	return h.Bytes()
}

func (e *trieExt) StorageAt(key primitives.Hash256) (primitives.Hash256, error) {
	v, err := e.trie.TryGet(e.storageTrieKey(key))
	if err != nil {
		return primitives.Hash256{}, err
	}
	if v == nil {
		return primitives.Hash256{}, nil
	}
	return primitives.BytesToHash256(v), nil
}

func (e *trieExt) SetStorage(key, value primitives.Hash256) error {
	if value.IsZero() {
		// Clearing a slot that was never set leaves the trie unchanged.
		if err := e.trie.TryDelete(e.storageTrieKey(key)); err != nil && !errors.Is(err, trie.ErrKeyNotExists) {
			return err
		}
		return nil
	}
	return e.trie.TryUpdate(e.storageTrieKey(key), value.Bytes())
}

func (e *trieExt) AddSstoreRefund(gas uint64) {
	e.refund += gas
}

func (e *trieExt) AlInsertStorageKey(address primitives.Address160, key primitives.Hash256) {
	e.touched = append(e.touched, touchedKey{address: address, key: key})
}
