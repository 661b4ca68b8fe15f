package rlp

// Kind distinguishes the two shapes an RLP value can take.
type Kind int

const (
	KindString Kind = iota
	KindList
)

// Decoder is a parsed view over one RLP-encoded value (a byte string or a
// list of values). Lists eagerly split their payload into raw per-item
// sub-slices so ItemCount/At/ValAt are O(1) after construction.
type Decoder struct {
	kind     Kind
	payload  []byte   // string content, for KindString
	children [][]byte // raw encoded sub-items, for KindList
}

// NewDecoder parses data as exactly one RLP value and errors if trailing
// bytes remain.
func NewDecoder(data []byte) (*Decoder, error) {
	d, rest, err := decodeOne(data)
	if err != nil {
		return nil, err
	}
	if len(rest) != 0 {
		return nil, ErrRlpInconsistentLengthAndData
	}
	return d, nil
}

// Kind reports whether the value is a string or a list.
func (d *Decoder) Kind() Kind { return d.kind }

// ItemCount returns the number of items in a list value.
func (d *Decoder) ItemCount() (int, error) {
	if d.kind != KindList {
		return 0, ErrRlpExpectedToBeList
	}
	return len(d.children), nil
}

// At returns a Decoder for the i-th item of a list value.
func (d *Decoder) At(i int) (*Decoder, error) {
	if d.kind != KindList {
		return nil, ErrRlpExpectedToBeList
	}
	if i < 0 || i >= len(d.children) {
		return nil, ErrRlpIncorrectListLen
	}
	return NewDecoder(d.children[i])
}

// ValAt returns the raw byte-string payload of the i-th item of a list
// value; the item itself must be a string, not a nested list.
func (d *Decoder) ValAt(i int) ([]byte, error) {
	item, err := d.At(i)
	if err != nil {
		return nil, err
	}
	return item.Bytes()
}

// Bytes returns the payload of a string value.
func (d *Decoder) Bytes() ([]byte, error) {
	if d.kind != KindString {
		return nil, ErrRlpExpectedToBeData
	}
	return d.payload, nil
}

// Uint64 decodes a string value as a minimal big-endian unsigned integer.
func (d *Decoder) Uint64() (uint64, error) {
	b, err := d.Bytes()
	if err != nil {
		return 0, err
	}
	if len(b) > 0 && b[0] == 0 {
		return 0, ErrRlpInvalidIndirection
	}
	if len(b) > 8 {
		return 0, ErrRlpInvalidLength
	}
	var v uint64
	for _, c := range b {
		v = v<<8 | uint64(c)
	}
	return v, nil
}

// decodeOne parses exactly one RLP item from the head of data, returning the
// parsed Decoder and the unconsumed remainder.
func decodeOne(data []byte) (*Decoder, []byte, error) {
	if len(data) == 0 {
		return nil, nil, ErrRlpIsTooShort
	}
	prefix := data[0]

	switch {
	case prefix < 0x80:
		return &Decoder{kind: KindString, payload: data[0:1]}, data[1:], nil

	case prefix < 0xB8:
		l := int(prefix - 0x80)
		if len(data) < 1+l {
			return nil, nil, ErrRlpIsTooShort
		}
		payload := data[1 : 1+l]
		if l == 1 && payload[0] < 0x80 {
			// Non-canonical: a single byte < 0x80 must self-encode.
			return nil, nil, ErrRlpInvalidIndirection
		}
		return &Decoder{kind: KindString, payload: payload}, data[1+l:], nil

	case prefix < 0xC0:
		lenOfLen := int(prefix - 0xB7)
		if len(data) < 1+lenOfLen {
			return nil, nil, ErrRlpIsTooShort
		}
		lenBytes := data[1 : 1+lenOfLen]
		if lenBytes[0] == 0 {
			return nil, nil, ErrRlpDataLenWithZeroPrefix
		}
		l, err := bytesToLen(lenBytes)
		if err != nil {
			return nil, nil, err
		}
		start := 1 + lenOfLen
		if len(data) < start+l {
			return nil, nil, ErrRlpIsTooShort
		}
		return &Decoder{kind: KindString, payload: data[start : start+l]}, data[start+l:], nil

	case prefix < 0xF8:
		l := int(prefix - 0xC0)
		if len(data) < 1+l {
			return nil, nil, ErrRlpIsTooShort
		}
		children, err := splitList(data[1 : 1+l])
		if err != nil {
			return nil, nil, err
		}
		return &Decoder{kind: KindList, children: children}, data[1+l:], nil

	default:
		lenOfLen := int(prefix - 0xF7)
		if len(data) < 1+lenOfLen {
			return nil, nil, ErrRlpIsTooShort
		}
		lenBytes := data[1 : 1+lenOfLen]
		if lenBytes[0] == 0 {
			return nil, nil, ErrRlpListLenWithZeroPrefix
		}
		l, err := bytesToLen(lenBytes)
		if err != nil {
			return nil, nil, err
		}
		start := 1 + lenOfLen
		if len(data) < start+l {
			return nil, nil, ErrRlpIsTooShort
		}
		children, err := splitList(data[start : start+l])
		if err != nil {
			return nil, nil, err
		}
		return &Decoder{kind: KindList, children: children}, data[start+l:], nil
	}
}

// splitList carves a list's payload into the raw encodings of its items.
func splitList(payload []byte) ([][]byte, error) {
	var children [][]byte
	rest := payload
	for len(rest) > 0 {
		consumed := len(rest)
		_, tail, err := decodeOne(rest)
		if err != nil {
			return nil, err
		}
		consumed -= len(tail)
		children = append(children, rest[:consumed])
		rest = tail
	}
	return children, nil
}

func bytesToLen(b []byte) (int, error) {
	if len(b) > 8 {
		return 0, ErrRlpInvalidLength
	}
	var v uint64
	for _, c := range b {
		v = v<<8 | uint64(c)
	}
	if v > (1<<31)-1 {
		return 0, ErrRlpIsTooBig
	}
	return int(v), nil
}
