package discovery

import (
	"testing"

	"github.com/stretchr/testify/require"

	"chaincore/primitives"
)

func TestLogDistanceMatchesKnownVector(t *testing.T) {
	a := primitives.BytesToHash256([]byte{228, 104, 254, 227, 239, 33, 109, 25, 223, 95, 27, 195, 177, 52, 50, 204, 76, 30, 147, 218, 216, 159, 47, 146, 236, 13, 163, 128, 250, 160, 17, 192})
	b := primitives.BytesToHash256([]byte{228, 214, 227, 65, 84, 85, 107, 82, 209, 81, 68, 106, 172, 254, 164, 105, 92, 23, 184, 27, 10, 90, 228, 69, 143, 90, 18, 117, 49, 186, 231, 5})

	dist, ok := logDistance(a, b)
	require.True(t, ok)
	require.Equal(t, 248, dist)
}

func TestLogDistanceIdenticalHashesNotOK(t *testing.T) {
	a := primitives.BytesToHash256([]byte{1, 2, 3})
	_, ok := logDistance(a, a)
	require.False(t, ok)
}
