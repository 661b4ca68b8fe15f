// Package trie implements the core's Merkle-Patricia Trie: a key-value map
// whose root hash commits to every key/value pair it holds. Mutations are
// staged in an in-memory cache and only hashed/persisted on Commit.
package trie

import (
	"chaincore/primitives"
	"chaincore/rlp"
	"chaincore/storage"
)

// emptyTrieRootHash is the root hash of a trie with no entries: the
// keccak-256 of the canonical RLP empty string, matching the convention used
// throughout the Ethereum family so an empty state root is a well-known
// constant rather than a sentinel zero value.
var emptyTrieRootHash = computeEmptyTrieRootHash()

func computeEmptyTrieRootHash() [32]byte {
	h := primitives.Keccak256(rlp.EncodeBytes(nil))
	return [32]byte(h)
}

// EmptyRootHash returns the root hash of the trie containing no entries.
func EmptyRootHash() [32]byte { return emptyTrieRootHash }

// Trie is a single-threaded, not-safe-for-concurrent-use handle onto one
// Merkle-Patricia Trie backed by store. Mutations accumulate in an in-memory
// cache; Commit flushes the dirty subtree and returns the new root.
type Trie struct {
	store       storage.Database
	root        nodeLocation
	cache       *cache
	deletionSet map[[32]byte]struct{}
}

// New returns a handle onto an empty trie.
func New(store storage.Database) *Trie {
	return &Trie{
		store:       store,
		root:        noneLocation(),
		cache:       newCache(),
		deletionSet: make(map[[32]byte]struct{}),
	}
}

// Open returns a handle onto the trie previously committed at root. Passing
// EmptyRootHash() is equivalent to New.
func Open(store storage.Database, root [32]byte) *Trie {
	t := New(store)
	if root != emptyTrieRootHash {
		t.root = persistenceLocation(root)
	}
	return t
}

// RootHash reports the hash of the last commit, if this handle has ever been
// committed (or was opened at a non-empty root) and has no uncommitted
// mutations pending against it.
func (t *Trie) RootHash() ([32]byte, bool) {
	if t.root.isPersistence() {
		return t.root.hash, true
	}
	return [32]byte{}, false
}

// TryGet looks up key and returns its value, or (nil, nil) on a miss.
func (t *Trie) TryGet(key []byte) ([]byte, error) {
	return t.get(t.root, keyToNibbles(key))
}

// TryUpdate inserts or overwrites key with value. Per the core's semantics
// an empty value is equivalent to TryDelete(key).
func (t *Trie) TryUpdate(key, value []byte) error {
	if len(key) == 0 {
		return ErrKeyCannotBeEmpty
	}
	if len(value) == 0 {
		return t.TryDelete(key)
	}
	valIdx := t.cache.insert(updatedSlot(valueNode{value: append([]byte(nil), value...)}))
	newRoot, err := t.insert(t.root, keyToNibbles(key), memoryLocation(valIdx))
	if err != nil {
		return err
	}
	t.root = newRoot
	return nil
}

// TryDelete removes key, failing with ErrKeyNotExists if it is absent.
func (t *Trie) TryDelete(key []byte) error {
	if len(key) == 0 {
		return ErrKeyCannotBeEmpty
	}
	newRoot, err := t.delete(t.root, keyToNibbles(key))
	if err != nil {
		return err
	}
	t.root = newRoot
	return nil
}

// Commit hashes every updated subtree, writes the resulting node bytes to
// the backing store, prunes deletion-set hashes that are no longer
// reachable from the new root, and returns the root hash.
func (t *Trie) Commit() ([32]byte, error) {
	reachable := make(map[[32]byte]struct{})

	var rootHash [32]byte
	if t.root.isNone() {
		rootHash = emptyTrieRootHash
	} else {
		ref, err := t.hashLocation(t.root, reachable)
		if err != nil {
			return [32]byte{}, err
		}
		switch ref.kind {
		case childRefHash:
			rootHash = ref.hash
		case childRefInline:
			h := primitives.Keccak256(ref.inline)
			rootHash = [32]byte(h)
			if err := t.store.Insert(rootHash[:], ref.inline); err != nil {
				return [32]byte{}, err
			}
			reachable[rootHash] = struct{}{}
		default:
			return [32]byte{}, ErrInvalidTrieState
		}
	}

	for h := range t.deletionSet {
		if _, ok := reachable[h]; !ok {
			if err := t.store.Remove(h[:]); err != nil {
				return [32]byte{}, err
			}
		}
	}
	t.deletionSet = make(map[[32]byte]struct{})
	t.root = persistenceLocation(rootHash)
	return rootHash, nil
}

// --- lookup ---

func (t *Trie) get(loc nodeLocation, key []byte) ([]byte, error) {
	if loc.isNone() {
		return nil, nil
	}
	idx, err := t.resolveToCache(loc)
	if err != nil {
		return nil, err
	}
	switch n := t.cache.get(idx).(type) {
	case emptyNode:
		return nil, nil
	case shortNode:
		if len(key) < len(n.key) || prefixLen(key, n.key) != len(n.key) {
			return nil, nil
		}
		return t.get(n.child, key[len(n.key):])
	case *fullNode:
		if len(key) == 0 {
			return nil, ErrInvalidTrieState
		}
		return t.get(n.children[key[0]], key[1:])
	case valueNode:
		if len(key) == 0 {
			return append([]byte(nil), n.value...), nil
		}
		return nil, nil
	}
	return nil, ErrInvalidTrieState
}

// --- insertion (spec 4.3.2) ---

func (t *Trie) insert(loc nodeLocation, key []byte, valueLoc nodeLocation) (nodeLocation, error) {
	if loc.isNone() {
		if len(key) == 0 {
			return valueLoc, nil
		}
		idx := t.cache.insert(updatedSlot(shortNode{key: append([]byte(nil), key...), child: valueLoc}))
		return memoryLocation(idx), nil
	}

	idx, err := t.resolveToCache(loc)
	if err != nil {
		return nodeLocation{}, err
	}

	switch n := t.cache.get(idx).(type) {
	case emptyNode:
		if len(key) == 0 {
			t.destroy(memoryLocation(idx))
			return valueLoc, nil
		}
		t.cache.replace(idx, updatedSlot(shortNode{key: append([]byte(nil), key...), child: valueLoc}))
		return memoryLocation(idx), nil

	case shortNode:
		m := prefixLen(n.key, key)
		if m == len(n.key) {
			newChild, err := t.insert(n.child, key[m:], valueLoc)
			if err != nil {
				return nodeLocation{}, err
			}
			t.cache.replace(idx, updatedSlot(shortNode{key: n.key, child: newChild}))
			return memoryLocation(idx), nil
		}

		// Split: build a Full node housing the two diverging branches.
		var full fullNode
		c1, c2 := key[m], n.key[m]
		n1, err := t.insert(noneLocation(), key[m+1:], valueLoc)
		if err != nil {
			return nodeLocation{}, err
		}
		n2, err := t.insert(noneLocation(), n.key[m+1:], n.child)
		if err != nil {
			return nodeLocation{}, err
		}
		full.children[c1] = n1
		full.children[c2] = n2
		fullIdx := t.cache.insert(updatedSlot(&full))
		t.destroy(memoryLocation(idx))

		if m == 0 {
			return memoryLocation(fullIdx), nil
		}
		wrapIdx := t.cache.insert(updatedSlot(shortNode{key: append([]byte(nil), n.key[:m]...), child: memoryLocation(fullIdx)}))
		return memoryLocation(wrapIdx), nil

	case *fullNode:
		if len(key) == 0 {
			return nodeLocation{}, ErrInvalidTrieState
		}
		nibble := key[0]
		newChild, err := t.insert(n.children[nibble], key[1:], valueLoc)
		if err != nil {
			return nodeLocation{}, err
		}
		n.children[nibble] = newChild
		t.cache.replace(idx, updatedSlot(n))
		return memoryLocation(idx), nil

	case valueNode:
		t.destroy(memoryLocation(idx))
		return valueLoc, nil
	}

	return nodeLocation{}, ErrInvalidTrieState
}

// --- deletion (spec 4.3.4) ---

func (t *Trie) delete(loc nodeLocation, key []byte) (nodeLocation, error) {
	if loc.isNone() {
		return nodeLocation{}, ErrKeyNotExists
	}
	idx, err := t.resolveToCache(loc)
	if err != nil {
		return nodeLocation{}, err
	}

	switch n := t.cache.get(idx).(type) {
	case emptyNode:
		return nodeLocation{}, ErrKeyNotExists

	case valueNode:
		_ = n
		t.destroy(memoryLocation(idx))
		return noneLocation(), nil

	case *fullNode:
		if len(key) == 0 {
			return nodeLocation{}, ErrInvalidTrieState
		}
		nibble := key[0]
		newChild, err := t.delete(n.children[nibble], key[1:])
		if err != nil {
			return nodeLocation{}, err
		}
		n.children[nibble] = newChild

		count, survivorPos := 0, -1
		for i, c := range n.children {
			if !c.isNone() {
				count++
				survivorPos = i
			}
		}
		if count >= 2 {
			t.cache.replace(idx, updatedSlot(n))
			return memoryLocation(idx), nil
		}
		if count == 0 {
			return nodeLocation{}, ErrInvalidTrieState
		}

		survivorLoc := n.children[survivorPos]
		t.destroy(memoryLocation(idx))

		if survivorPos == terminator {
			idx2 := t.cache.insert(updatedSlot(shortNode{key: []byte{terminator}, child: survivorLoc}))
			return memoryLocation(idx2), nil
		}

		survIdx, err := t.resolveToCache(survivorLoc)
		if err != nil {
			return nodeLocation{}, err
		}
		if sn, ok := t.cache.get(survIdx).(shortNode); ok {
			merged := append([]byte{byte(survivorPos)}, sn.key...)
			t.cache.replace(survIdx, updatedSlot(shortNode{key: merged, child: sn.child}))
			return memoryLocation(survIdx), nil
		}
		idx3 := t.cache.insert(updatedSlot(shortNode{key: []byte{byte(survivorPos)}, child: survivorLoc}))
		return memoryLocation(idx3), nil

	case shortNode:
		m := prefixLen(n.key, key)
		if m < len(n.key) {
			return nodeLocation{}, ErrKeyNotExists
		}
		if m == len(key) {
			t.destroy(n.child)
			t.destroy(memoryLocation(idx))
			return noneLocation(), nil
		}

		newChildLoc, err := t.delete(n.child, key[m:])
		if err != nil {
			return nodeLocation{}, err
		}
		if newChildLoc.isNone() {
			return nodeLocation{}, ErrInvalidTrieState
		}

		childIdx, err := t.resolveToCache(newChildLoc)
		if err != nil {
			return nodeLocation{}, err
		}
		t.destroy(memoryLocation(idx))
		if sn, ok := t.cache.get(childIdx).(shortNode); ok {
			merged := append(append([]byte(nil), n.key...), sn.key...)
			t.cache.replace(childIdx, updatedSlot(shortNode{key: merged, child: sn.child}))
			return memoryLocation(childIdx), nil
		}
		idx2 := t.cache.insert(updatedSlot(shortNode{key: append([]byte(nil), n.key...), child: newChildLoc}))
		return memoryLocation(idx2), nil
	}

	return nodeLocation{}, ErrInvalidTrieState
}

// --- destroy / deletion set (spec 4.3.5) ---

// destroy discards loc: a no-op for None, a structural error for a bare
// Persistence location (every mutation path loads into the cache first), and
// for a Memory location, removes it from the cache and, if it was an
// unmodified node loaded from the store, records its hash so Commit can
// consider reclaiming it.
func (t *Trie) destroy(loc nodeLocation) error {
	switch loc.kind {
	case locNone:
		return nil
	case locPersistence:
		return ErrInvalidNodeLocation
	case locMemory:
		slot := t.cache.take(loc.index)
		if !slot.updated {
			t.deletionSet[slot.hash] = struct{}{}
		}
		return nil
	}
	return ErrInvalidTrieState
}

// --- resolution ---

// resolveToCache ensures loc's node is present in the cache (loading it from
// the store on first touch if loc is a Persistence reference) and returns
// its cache index.
func (t *Trie) resolveToCache(loc nodeLocation) (cacheIndex, error) {
	switch loc.kind {
	case locMemory:
		return loc.index, nil
	case locPersistence:
		return t.loadToCache(loc.hash)
	default:
		return 0, ErrInvalidNodeLocation
	}
}

func (t *Trie) loadToCache(hash [32]byte) (cacheIndex, error) {
	raw, ok, err := t.store.Get(hash[:])
	if err != nil {
		return 0, err
	}
	if !ok {
		return t.cache.insert(loadedSlot(hash, emptyNode{})), nil
	}
	n, err := t.decodeNode(raw)
	if err != nil {
		return 0, err
	}
	return t.cache.insert(loadedSlot(hash, n)), nil
}

// --- hashing / encoding (spec 4.3.6 / 4.3.7) ---

func (t *Trie) hashLocation(loc nodeLocation, reachable map[[32]byte]struct{}) (childRef, error) {
	switch loc.kind {
	case locPersistence:
		reachable[loc.hash] = struct{}{}
		return hashRef(loc.hash), nil
	case locMemory:
		slot, ok := t.cache.getSlot(loc.index)
		if !ok {
			return childRef{}, ErrInvalidTrieState
		}
		if !slot.updated {
			reachable[slot.hash] = struct{}{}
			return hashRef(slot.hash), nil
		}
		return t.hashNode(slot.node, reachable)
	default:
		return childRef{}, ErrInvalidTrieState
	}
}

func (t *Trie) hashNode(n node, reachable map[[32]byte]struct{}) (childRef, error) {
	switch nn := n.(type) {
	case valueNode:
		return valueRef(append([]byte(nil), nn.value...)), nil

	case shortNode:
		if nn.child.isNone() {
			return childRef{}, ErrInvalidTrieState
		}
		cref, err := t.hashLocation(nn.child, reachable)
		if err != nil {
			return childRef{}, err
		}
		encoded := encodeShortNode(compactEncode(nn.key), cref)
		return t.finalizeEncoded(encoded, reachable)

	case *fullNode:
		var refs [childSize]*childRef
		for i := 0; i < childSize; i++ {
			if nn.children[i].isNone() {
				continue
			}
			cref, err := t.hashLocation(nn.children[i], reachable)
			if err != nil {
				return childRef{}, err
			}
			refs[i] = &cref
		}
		encoded := encodeFullNode(refs)
		return t.finalizeEncoded(encoded, reachable)

	default:
		return childRef{}, ErrInvalidTrieState
	}
}

func (t *Trie) finalizeEncoded(encoded []byte, reachable map[[32]byte]struct{}) (childRef, error) {
	if len(encoded) < 32 {
		return inlineRef(encoded), nil
	}
	h := [32]byte(primitives.Keccak256(encoded))
	if err := t.store.Insert(h[:], encoded); err != nil {
		return childRef{}, err
	}
	reachable[h] = struct{}{}
	return hashRef(h), nil
}
