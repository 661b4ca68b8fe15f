// Package collator batches pending transactions into blocks. A Collator
// accumulates submitted transactions under a mutex; a Worker drains it on a
// timer or size trigger and executes the batch against the state trie and
// EVM interpreter to produce the next block.
package collator

import (
	"sync"

	"chaincore/core/types"
)

// Collator holds the transactions waiting to be included in the next
// block. It is safe for concurrent use: Submit is expected to be called
// from many peer-handling goroutines while a single Worker drains it.
type Collator struct {
	mu  sync.Mutex
	pending []*types.Transaction
}

// New returns an empty Collator.
func New() *Collator {
	return &Collator{}
}

// Submit adds tx to the pending set. It never rejects a transaction on
// validity grounds; that is the caller's responsibility before it reaches
// the collator.
func (c *Collator) Submit(tx *types.Transaction) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pending = append(c.pending, tx)
}

// Size reports how many transactions are pending.
func (c *Collator) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}

// Dump returns a copy of the pending transactions without clearing them.
func (c *Collator) Dump() []*types.Transaction {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]*types.Transaction, len(c.pending))
	copy(out, c.pending)
	return out
}

// DumpAndClear atomically returns the pending transactions and empties the
// set, the way a block producer claims a batch for inclusion.
func (c *Collator) DumpAndClear() []*types.Transaction {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := c.pending
	c.pending = nil
	return out
}
