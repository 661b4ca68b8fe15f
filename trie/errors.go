package trie

import "errors"

// Sentinel failures surfaced by trie operations. All are non-retryable: a
// caller that hits one has either mis-used the API (empty key, delete of an
// absent key) or tripped over a structural invariant violation.
var (
	ErrKeyCannotBeEmpty  = errors.New("trie: key cannot be empty")
	ErrValueCannotBeEmpty = errors.New("trie: value cannot be empty")
	ErrKeyNotExists      = errors.New("trie: key does not exist")
	ErrInvalidNodeLocation = errors.New("trie: invalid node location")
	ErrInvalidTrieState  = errors.New("trie: invalid trie state")
)
