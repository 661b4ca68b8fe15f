package evm

import "chaincore/primitives"

// Ext is the host environment an Interpreter executes against: storage,
// the active gas schedule, and the refund/access-list bookkeeping SSTORE
// needs. The interpreter never touches state directly — every externally
// visible effect is mediated through this interface, so the core trie/state
// layer and the interpreter stay decoupled.
type Ext interface {
	// Schedule returns the gas schedule in effect for this execution.
	Schedule() *Schedule

	// StorageAt returns the current value of the given storage slot for
	// the executing contract.
	StorageAt(key primitives.Hash256) (primitives.Hash256, error)

	// SetStorage writes value into the given storage slot for the
	// executing contract.
	SetStorage(key, value primitives.Hash256) error

	// AddSstoreRefund credits gas to the refund counter tracked for the
	// enclosing transaction (SSTORE's non-zero-to-zero clear refund).
	AddSstoreRefund(gas uint64)

	// AlInsertStorageKey records key as accessed in address's
	// access-list, for EIP-2929-style warm/cold accounting. A host that
	// does not implement access lists may make this a no-op.
	AlInsertStorageKey(address primitives.Address160, key primitives.Hash256)
}
