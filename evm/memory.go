package evm

import "chaincore/primitives"

// maxReturnWasteBytes bounds how much slack IntoReturnData will tolerate
// before it copies the requested slice out rather than keeping the whole
// backing buffer alive.
const maxReturnWasteBytes = 16384

// Memory is the interpreter's linear, byte-addressable, zero-filled-on-grow
// working memory.
type Memory struct {
	data []byte
}

// NewMemory returns an empty memory.
func NewMemory() *Memory { return &Memory{} }

// Size returns the current length in bytes.
func (m *Memory) Size() int { return len(m.data) }

// Resize grows (zero-filling) or shrinks memory to exactly newSize bytes.
func (m *Memory) Resize(newSize int) {
	if newSize == len(m.data) {
		return
	}
	if newSize < len(m.data) {
		m.data = m.data[:newSize]
		return
	}
	grown := make([]byte, newSize)
	copy(grown, m.data)
	m.data = grown
}

// Expand grows memory to newSize only if it is currently smaller.
func (m *Memory) Expand(newSize int) {
	if newSize > len(m.data) {
		m.Resize(newSize)
	}
}

// WriteByte writes the low byte of value at offset. Does not resize.
func (m *Memory) WriteByte(offset int, value primitives.U256) {
	m.data[offset] = byte(value.Uint64())
}

// Write writes the 32 big-endian bytes of value at offset. Does not resize.
func (m *Memory) Write(offset int, value primitives.U256) {
	b := value.Bytes32()
	copy(m.data[offset:offset+32], b[:])
}

// Read returns the 32 big-endian bytes at offset as a U256.
func (m *Memory) Read(offset int) primitives.U256 {
	return primitives.U256FromBytes(m.data[offset : offset+32])
}

// WriteSlice copies bytes into memory starting at offset. Does not resize.
func (m *Memory) WriteSlice(offset int, bytes []byte) {
	if len(bytes) == 0 {
		return
	}
	copy(m.data[offset:offset+len(bytes)], bytes)
}

// ReadSlice returns a view of size bytes starting at offset, or an empty
// slice if the requested range is degenerate (size 0).
func (m *Memory) ReadSlice(offset, size int) []byte {
	if size <= 0 {
		return m.data[0:0]
	}
	return m.data[offset : offset+size]
}

// IntoReturnData consumes the memory, producing the byte slice that a
// RETURN/REVERT hands to its caller. When the unused slack exceeds
// maxReturnWasteBytes the data is copied into a right-sized buffer instead
// of keeping the whole working memory alive.
func (m *Memory) IntoReturnData(offset, size int) []byte {
	if size <= 0 {
		return nil
	}
	if len(m.data)-size > maxReturnWasteBytes {
		out := make([]byte, size)
		copy(out, m.data[offset:offset+size])
		return out
	}
	return m.data[offset : offset+size]
}
