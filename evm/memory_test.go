package evm

import (
	"testing"

	"chaincore/primitives"

	"github.com/stretchr/testify/require"
)

func TestMemoryWriteReadRoundTrip(t *testing.T) {
	m := NewMemory()
	m.Resize(64)
	m.Write(0, primitives.U256FromUint64(0x1234))
	got := m.Read(0)
	require.Equal(t, uint64(0x1234), got.Uint64())
}

func TestMemoryGrowthZeroFills(t *testing.T) {
	m := NewMemory()
	m.Resize(32)
	m.Resize(64)
	require.Equal(t, make([]byte, 32), m.ReadSlice(32, 32))
}

func TestMemoryWriteSliceAndReadSlice(t *testing.T) {
	m := NewMemory()
	m.Resize(16)
	m.WriteSlice(4, []byte{1, 2, 3})
	require.Equal(t, []byte{1, 2, 3}, m.ReadSlice(4, 3))
}

func TestMemoryIntoReturnDataTrimsPastWasteThreshold(t *testing.T) {
	m := NewMemory()
	m.Resize(maxReturnWasteBytes + 1024)
	m.WriteSlice(0, []byte{0xaa})
	data := m.IntoReturnData(0, 1)
	require.Equal(t, []byte{0xaa}, data)
}
