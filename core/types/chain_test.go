package types

import (
	"testing"

	"github.com/stretchr/testify/require"

	"chaincore/primitives"
)

func testHeader(height uint64) *Header {
	return &Header{Height: height, Timestamp: height, Validator: primitives.Address160{}}
}

func TestChainAppendTracksTipAndHeight(t *testing.T) {
	c := NewChain()
	require.Nil(t, c.Tip())
	require.Equal(t, uint64(0), c.Height())

	genesis := NewBlock(testHeader(0), nil)
	c.Append(genesis)
	require.Equal(t, genesis, c.Tip())
	require.Equal(t, 1, c.Len())

	next := NewBlock(testHeader(1), nil)
	c.Append(next)
	require.Equal(t, next, c.Tip())
	require.Equal(t, uint64(1), c.Height())
}

func TestChainByHeightAndByHash(t *testing.T) {
	c := NewChain()
	b0 := NewBlock(testHeader(0), nil)
	b1 := NewBlock(testHeader(1), nil)
	c.Append(b0)
	c.Append(b1)

	got, err := c.ByHeight(1)
	require.NoError(t, err)
	require.Equal(t, b1, got)

	_, err = c.ByHeight(5)
	require.Error(t, err)

	found, ok := c.ByHash(b0.Hash())
	require.True(t, ok)
	require.Equal(t, b0, found)

	_, ok = c.ByHash(primitives.Hash256{0xff})
	require.False(t, ok)
}
