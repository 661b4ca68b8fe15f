package trie

// cacheIndex indexes into a Cache's slot table.
type cacheIndex int

// memorySlot is a cached node, tagged with whether it still matches what is
// on disk (loaded, clean) or has been produced by a mutation and needs
// flushing on the next commit (updated, dirty).
type memorySlot struct {
	updated bool
	hash    [32]byte // valid when !updated (i.e. loaded from persistence)
	node    node
}

func updatedSlot(n node) memorySlot {
	return memorySlot{updated: true, node: n}
}

func loadedSlot(h [32]byte, n node) memorySlot {
	return memorySlot{updated: false, hash: h, node: n}
}

// asUpdated returns a copy of the slot, marked dirty, carrying the same node.
// Mirrors the draft's MemorySlot::into_updated: once any ancestor of a loaded
// node is rewritten, the loaded node itself must be treated as dirty too so
// commit re-encodes and re-hashes it.
func (s memorySlot) asUpdated() memorySlot {
	return updatedSlot(s.node)
}

// cache is the in-memory working set of trie nodes touched by the current
// batch of mutations, addressed by small integer indices rather than
// pointers so that node locations are trivially comparable and serializable.
type cache struct {
	slots        []memorySlot
	freeIndices  []cacheIndex
}

func newCache() *cache {
	return &cache{}
}

// insert places slot into the cache, reusing a freed index when available,
// and returns its index.
func (c *cache) insert(slot memorySlot) cacheIndex {
	if n := len(c.freeIndices); n > 0 {
		idx := c.freeIndices[n-1]
		c.freeIndices = c.freeIndices[:n-1]
		c.slots[idx] = slot
		return idx
	}
	c.slots = append(c.slots, slot)
	return cacheIndex(len(c.slots) - 1)
}

// get returns the node currently held at idx. A freed or never-populated
// index reads back as the empty node, matching the draft's Cache::get_node.
func (c *cache) get(idx cacheIndex) node {
	if int(idx) < 0 || int(idx) >= len(c.slots) {
		return emptyNode{}
	}
	return c.slots[idx].node
}

// getSlot returns the full slot (node plus dirty/clean tag) at idx.
func (c *cache) getSlot(idx cacheIndex) (memorySlot, bool) {
	if int(idx) < 0 || int(idx) >= len(c.slots) {
		return memorySlot{}, false
	}
	return c.slots[idx], true
}

// replace overwrites the slot at idx in place.
func (c *cache) replace(idx cacheIndex, slot memorySlot) {
	c.slots[idx] = slot
}

// take removes the slot at idx, freeing the index for reuse, and returns
// what was there. Callers that still need the node must hold onto the
// returned slot; the cache no longer does.
func (c *cache) take(idx cacheIndex) memorySlot {
	slot := c.slots[idx]
	c.slots[idx] = memorySlot{updated: true, node: emptyNode{}}
	c.freeIndices = append(c.freeIndices, idx)
	return slot
}
