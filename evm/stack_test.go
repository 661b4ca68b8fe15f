package evm

import (
	"testing"

	"chaincore/primitives"

	"github.com/stretchr/testify/require"
)

func TestStackPushPopOrder(t *testing.T) {
	s := NewStack()
	require.NoError(t, s.Push(primitives.U256FromUint64(1)))
	require.NoError(t, s.Push(primitives.U256FromUint64(2)))

	top, err := s.Pop()
	require.NoError(t, err)
	require.Equal(t, uint64(2), top.Uint64())

	second, err := s.Pop()
	require.NoError(t, err)
	require.Equal(t, uint64(1), second.Uint64())
}

func TestStackPeekDoesNotRemove(t *testing.T) {
	s := NewStack()
	require.NoError(t, s.Push(primitives.U256FromUint64(10)))
	require.NoError(t, s.Push(primitives.U256FromUint64(20)))

	v, err := s.Peek(1)
	require.NoError(t, err)
	require.Equal(t, uint64(10), v.Uint64())
	require.Equal(t, 2, s.Size())
}

func TestStackSwapWithTop(t *testing.T) {
	s := NewStack()
	require.NoError(t, s.Push(primitives.U256FromUint64(1)))
	require.NoError(t, s.Push(primitives.U256FromUint64(2)))
	require.NoError(t, s.Push(primitives.U256FromUint64(3)))

	require.NoError(t, s.SwapWithTop(2))

	top, err := s.Peek(0)
	require.NoError(t, err)
	require.Equal(t, uint64(1), top.Uint64())
}

func TestStackPopNCapsAtMaxTopics(t *testing.T) {
	s := NewStack()
	for i := uint64(0); i < 6; i++ {
		require.NoError(t, s.Push(primitives.U256FromUint64(i)))
	}
	got, err := s.PopN(6)
	require.NoError(t, err)
	require.Len(t, got, maxNoOfTopics)
}
