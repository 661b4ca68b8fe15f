package trie

// terminator is the synthetic 17th nibble value appended to every key's
// nibble form; its presence is what lets a Short node's key alone (rather
// than some side "is this a leaf" flag) tell values and branches apart.
const terminator = 16

// keyToNibbles converts an arbitrary byte string into its internal nibble
// form: two nibbles per byte, high nibble first, followed by the terminator
// nibble. An empty key still yields the single-element [terminator] slice,
// which is why the empty-key case is structurally impossible to confuse with
// "no key at all".
func keyToNibbles(key []byte) []byte {
	nibbles := make([]byte, len(key)*2+1)
	for i, b := range key {
		nibbles[i*2] = b >> 4
		nibbles[i*2+1] = b & 0x0f
	}
	nibbles[len(nibbles)-1] = terminator
	return nibbles
}

// nibblesToKey reverses keyToNibbles, dropping the terminator. Panics (via
// index out of range) are impossible for well-formed nibble slices produced
// by this package.
func nibblesToKey(nibbles []byte) []byte {
	n := nibbles
	if len(n) > 0 && n[len(n)-1] == terminator {
		n = n[:len(n)-1]
	}
	key := make([]byte, len(n)/2)
	for i := range key {
		key[i] = n[i*2]<<4 | n[i*2+1]
	}
	return key
}

// prefixLen returns the length of the common prefix of a and b.
func prefixLen(a, b []byte) int {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		if a[i] != b[i] {
			return i
		}
	}
	return n
}

// hasTerminator reports whether nibbles ends with the terminator nibble.
func hasTerminator(nibbles []byte) bool {
	return len(nibbles) > 0 && nibbles[len(nibbles)-1] == terminator
}

// compactEncode converts a nibble array to Ethereum's "hex-prefix" compact
// byte encoding (§4.3.7 of the core's on-disk node format).
func compactEncode(nibbles []byte) []byte {
	term := byte(0)
	n := nibbles
	if hasTerminator(n) {
		term = 0x20
		n = n[:len(n)-1]
	}
	odd := len(n)%2 == 1

	var base byte
	if odd {
		base = term | 0x10
	} else {
		base = term
	}

	var out []byte
	if odd {
		out = make([]byte, 1+len(n)/2)
		out[0] = base | n[0]
		n = n[1:]
	} else {
		out = make([]byte, 1+len(n)/2)
		out[0] = base
	}
	for i := 0; i < len(n); i += 2 {
		out[1+i/2] = n[i]<<4 | n[i+1]
	}
	return out
}

// compactDecode reverses compactEncode, reporting whether the key carries
// the terminator flag.
func compactDecode(b []byte) (nibbles []byte, terminated bool) {
	if len(b) == 0 {
		return nil, false
	}
	base := b[0]
	terminated = base&0x20 != 0
	odd := base&0x10 != 0

	var n []byte
	if odd {
		n = append(n, base&0x0f)
	}
	for _, c := range b[1:] {
		n = append(n, c>>4, c&0x0f)
	}
	if terminated {
		n = append(n, terminator)
	}
	return n, terminated
}
