package trie

import "chaincore/rlp"

// childRefKind distinguishes how a child was resolved during hashing, so the
// encoder knows whether to splice a 32-byte hash, raw inline bytes, or a
// value string into the parent's RLP form.
type childRefKind int

const (
	childRefHash childRefKind = iota
	childRefInline
	childRefValue
)

// childRef is the three-variant value produced while hashing a subtree; it
// only ever exists transiently inside the encoder, never persisted itself.
type childRef struct {
	kind   childRefKind
	hash   [32]byte
	inline []byte
	value  []byte
}

func hashRef(h [32]byte) childRef      { return childRef{kind: childRefHash, hash: h} }
func inlineRef(b []byte) childRef      { return childRef{kind: childRefInline, inline: b} }
func valueRef(v []byte) childRef       { return childRef{kind: childRefValue, value: v} }

// appendRef RLP-appends a child reference the way its kind demands.
func appendRef(s *rlp.Stream, ref childRef) {
	switch ref.kind {
	case childRefHash:
		s.Append(ref.hash[:])
	case childRefInline:
		s.AppendRaw(ref.inline)
	case childRefValue:
		s.Append(ref.value)
	}
}

// encodeShortNode builds the canonical RLP form of a Short node given its
// already hex-prefix-compacted key and its resolved child reference.
func encodeShortNode(compactKey []byte, ref childRef) []byte {
	s := rlp.NewStream()
	s.BeginList(2)
	s.Append(compactKey)
	appendRef(s, ref)
	return s.Out()
}

// encodeFullNode builds the canonical RLP form of a Full node from its 17
// resolved slots; a nil entry means the slot is empty.
func encodeFullNode(refs [childSize]*childRef) []byte {
	s := rlp.NewStream()
	s.BeginList(childSize)
	for _, r := range refs {
		if r == nil {
			s.AppendEmpty()
		} else {
			appendRef(s, *r)
		}
	}
	return s.Out()
}

// encodeValueNode wraps a leaf value in its RLP byte-string form (used only
// when a value reference is emitted standalone, never as a node of its own
// in the store).
func encodeValueNode(value []byte) []byte {
	return rlp.EncodeBytes(value)
}
