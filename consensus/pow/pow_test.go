package pow

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSealFindsVerifiableNonce(t *testing.T) {
	header := []byte("block-header-placeholder")
	nonce, err := Seal(header, 8, 0, 1_000_000)
	require.NoError(t, err)
	require.True(t, Verify(header, 8, nonce))
}

func TestSealExhaustsWithinBudget(t *testing.T) {
	header := []byte("block-header-placeholder")
	_, err := Seal(header, 32, 0, 4)
	require.ErrorIs(t, err, ErrNonceExhausted)
}

func TestVerifyRejectsWrongNonce(t *testing.T) {
	header := []byte("block-header-placeholder")
	nonce, err := Seal(header, 8, 0, 1_000_000)
	require.NoError(t, err)
	require.False(t, Verify(header, 8, nonce+1))
}

func TestNextDifficultyAdjustsOutsideTolerance(t *testing.T) {
	w := Window{TargetBlockSeconds: 10}.WithDefault()

	require.Equal(t, uint8(9), w.NextDifficulty(8, 1)) // way too fast
	require.Equal(t, uint8(7), w.NextDifficulty(8, 100)) // way too slow
	require.Equal(t, uint8(8), w.NextDifficulty(8, 10)) // within tolerance
}
