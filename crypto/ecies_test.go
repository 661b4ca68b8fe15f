package crypto

import (
	"testing"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/require"
)

func TestECIESRoundTrip(t *testing.T) {
	priv, err := crypto.GenerateKey()
	require.NoError(t, err)

	plain := []byte("So many books, so little time")
	authData := []byte("shared")

	encrypted, err := Encrypt(&priv.PublicKey, authData, plain)
	require.NoError(t, err)
	require.NotEqual(t, plain, encrypted)

	decrypted, err := Decrypt(priv, authData, encrypted)
	require.NoError(t, err)
	require.Equal(t, plain, decrypted)
}

func TestECIESRejectsWrongAuthData(t *testing.T) {
	priv, err := crypto.GenerateKey()
	require.NoError(t, err)

	encrypted, err := Encrypt(&priv.PublicKey, []byte("shared"), []byte("message"))
	require.NoError(t, err)

	_, err = Decrypt(priv, []byte("incorrect"), encrypted)
	require.ErrorIs(t, err, ErrInvalidMessage)
}

func TestAgreeIsSymmetric(t *testing.T) {
	a, err := crypto.GenerateKey()
	require.NoError(t, err)
	b, err := crypto.GenerateKey()
	require.NoError(t, err)

	sharedA, err := Agree(a, &b.PublicKey)
	require.NoError(t, err)
	sharedB, err := Agree(b, &a.PublicKey)
	require.NoError(t, err)
	require.Equal(t, sharedA, sharedB)
}
