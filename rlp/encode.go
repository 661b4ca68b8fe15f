// Package rlp implements the recursive-length-prefix encoding used to
// serialize trie nodes and EVM-boundary data.
package rlp

// EncodeBytes returns the canonical RLP encoding of a byte string.
func EncodeBytes(b []byte) []byte {
	if len(b) == 1 && b[0] < 0x80 {
		return []byte{b[0]}
	}
	header := stringHeader(len(b))
	out := make([]byte, 0, len(header)+len(b))
	out = append(out, header...)
	out = append(out, b...)
	return out
}

// EncodeUint64 encodes v as a minimal big-endian byte string; zero encodes
// as the empty string.
func EncodeUint64(v uint64) []byte {
	return EncodeBytes(trimLeadingZeros(uint64ToBytes(v)))
}

// EncodeList wraps already-encoded items into a single RLP list.
func EncodeList(items ...[]byte) []byte {
	payloadLen := 0
	for _, it := range items {
		payloadLen += len(it)
	}
	header := listHeader(payloadLen)
	out := make([]byte, 0, len(header)+payloadLen)
	out = append(out, header...)
	for _, it := range items {
		out = append(out, it...)
	}
	return out
}

func stringHeader(payloadLen int) []byte {
	if payloadLen <= 55 {
		return []byte{0x80 + byte(payloadLen)}
	}
	lenBytes := trimLeadingZeros(uint64ToBytes(uint64(payloadLen)))
	out := make([]byte, 0, 1+len(lenBytes))
	out = append(out, 0xB7+byte(len(lenBytes)))
	out = append(out, lenBytes...)
	return out
}

func listHeader(payloadLen int) []byte {
	if payloadLen <= 55 {
		return []byte{0xC0 + byte(payloadLen)}
	}
	lenBytes := trimLeadingZeros(uint64ToBytes(uint64(payloadLen)))
	out := make([]byte, 0, 1+len(lenBytes))
	out = append(out, 0xF7+byte(len(lenBytes)))
	out = append(out, lenBytes...)
	return out
}

func uint64ToBytes(v uint64) []byte {
	b := make([]byte, 8)
	for i := 7; i >= 0; i-- {
		b[i] = byte(v)
		v >>= 8
	}
	return b
}

func trimLeadingZeros(b []byte) []byte {
	i := 0
	for i < len(b) && b[i] == 0 {
		i++
	}
	return b[i:]
}

// Stream is an incremental RLP stream builder, used when the shape of the
// encoded value (how many items a list will hold) is known up front.
type Stream struct {
	frames []streamFrame
}

type streamFrame struct {
	buf       []byte
	remaining int // -1 means "not inside a bounded list"
}

// NewStream returns an empty stream ready to receive top-level items.
func NewStream() *Stream {
	return &Stream{frames: []streamFrame{{remaining: -1}}}
}

// BeginList opens a list expected to receive exactly n items.
func (s *Stream) BeginList(n int) {
	s.frames = append(s.frames, streamFrame{remaining: n})
	if n == 0 {
		s.finishList()
	}
}

// Append appends one RLP-encoded byte string item.
func (s *Stream) Append(b []byte) {
	s.appendEncoded(EncodeBytes(b))
}

// AppendUint appends one RLP-encoded unsigned-integer item.
func (s *Stream) AppendUint(v uint64) {
	s.appendEncoded(EncodeUint64(v))
}

// AppendEmpty appends a zero-length byte string.
func (s *Stream) AppendEmpty() {
	s.appendEncoded([]byte{0x80})
}

// AppendRaw splices pre-encoded bytes verbatim; it counts as one item.
func (s *Stream) AppendRaw(encoded []byte) {
	s.appendEncoded(append([]byte(nil), encoded...))
}

// AppendList appends a fully pre-built list (e.g. from EncodeList) as one item.
func (s *Stream) AppendList(encodedList []byte) {
	s.appendEncoded(encodedList)
}

func (s *Stream) appendEncoded(encoded []byte) {
	top := len(s.frames) - 1
	s.frames[top].buf = append(s.frames[top].buf, encoded...)
	if s.frames[top].remaining > 0 {
		s.frames[top].remaining--
		if s.frames[top].remaining == 0 {
			s.finishList()
		}
	}
}

func (s *Stream) finishList() {
	top := len(s.frames) - 1
	f := s.frames[top]
	s.frames = s.frames[:top]
	header := listHeader(len(f.buf))
	full := make([]byte, 0, len(header)+len(f.buf))
	full = append(full, header...)
	full = append(full, f.buf...)
	s.appendEncoded(full)
}

// Out returns the encoded bytes accumulated so far at the top level. It is
// only valid once every BeginList has received all of its items.
func (s *Stream) Out() []byte {
	return s.frames[0].buf
}
