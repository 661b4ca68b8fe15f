package trie

import "chaincore/rlp"

// decodeNode inverts the canonical node encoding (spec 4.3.7): a Short node
// is an RLP list of two items, a Full node a list of childSize (17) items.
func (t *Trie) decodeNode(raw []byte) (node, error) {
	dec, err := rlp.NewDecoder(raw)
	if err != nil {
		return nil, err
	}
	return t.decodeListNode(dec)
}

func (t *Trie) decodeListNode(dec *rlp.Decoder) (node, error) {
	if dec.Kind() != rlp.KindList {
		return nil, ErrInvalidNodeLocation
	}
	n, err := dec.ItemCount()
	if err != nil {
		return nil, err
	}
	switch n {
	case 2:
		return t.decodeShort(dec)
	case childSize:
		return t.decodeFull(dec)
	default:
		return nil, ErrInvalidNodeLocation
	}
}

func (t *Trie) decodeShort(dec *rlp.Decoder) (node, error) {
	keyBytes, err := dec.ValAt(0)
	if err != nil {
		return nil, err
	}
	nibbles, terminated := compactDecode(keyBytes)
	childItem, err := dec.At(1)
	if err != nil {
		return nil, err
	}
	loc, err := t.decodeChildRef(childItem, terminated)
	if err != nil {
		return nil, err
	}
	return shortNode{key: nibbles, child: loc}, nil
}

func (t *Trie) decodeFull(dec *rlp.Decoder) (node, error) {
	var fn fullNode
	for i := 0; i < childSize; i++ {
		item, err := dec.At(i)
		if err != nil {
			return nil, err
		}
		loc, err := t.decodeChildRef(item, i == terminator)
		if err != nil {
			return nil, err
		}
		fn.children[i] = loc
	}
	return &fn, nil
}

// decodeChildRef decodes one slot's item into a nodeLocation. valueSlot
// marks a slot that structurally can only ever hold a value (a Full node's
// terminator slot, or a Short node whose key carries the terminator) — for
// such slots the item's bytes are taken as the value verbatim rather than
// interpreted as a hash.
func (t *Trie) decodeChildRef(item *rlp.Decoder, valueSlot bool) (nodeLocation, error) {
	if item.Kind() == rlp.KindList {
		sub, err := t.decodeListNode(item)
		if err != nil {
			return nodeLocation{}, err
		}
		// An inlined sub-node was never independently hashed/stored, so it
		// must be re-derived (not shortcut via a stale hash) on next commit.
		idx := t.cache.insert(updatedSlot(sub))
		return memoryLocation(idx), nil
	}

	b, err := item.Bytes()
	if err != nil {
		return nodeLocation{}, err
	}
	if len(b) == 0 {
		return noneLocation(), nil
	}
	if valueSlot {
		idx := t.cache.insert(updatedSlot(valueNode{value: append([]byte(nil), b...)}))
		return memoryLocation(idx), nil
	}
	if len(b) != 32 {
		return nodeLocation{}, ErrInvalidNodeLocation
	}
	var h [32]byte
	copy(h[:], b)
	return persistenceLocation(h), nil
}
