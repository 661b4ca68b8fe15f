package discovery

import (
	"net"
	"testing"

	"github.com/stretchr/testify/require"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
)

func TestDialAcceptHandshakeAgreeSameSecrets(t *testing.T) {
	initiatorKey, err := ethcrypto.GenerateKey()
	require.NoError(t, err)
	responderKey, err := ethcrypto.GenerateKey()
	require.NoError(t, err)

	clientConn, serverConn := net.Pipe()
	defer clientConn.Close()
	defer serverConn.Close()

	type result struct {
		secrets Secrets
		err     error
	}
	dialResult := make(chan result, 1)
	acceptResult := make(chan result, 1)

	go func() {
		s, err := Dial(clientConn, initiatorKey, &responderKey.PublicKey)
		dialResult <- result{s, err}
	}()
	go func() {
		s, err := Accept(serverConn, responderKey)
		acceptResult <- result{s, err}
	}()

	dr := <-dialResult
	ar := <-acceptResult
	require.NoError(t, dr.err)
	require.NoError(t, ar.err)
	require.Equal(t, dr.secrets.AES, ar.secrets.AES)
}

func TestFrameWriterReaderRoundTrip(t *testing.T) {
	secrets := Secrets{AES: make([]byte, 32)}
	for i := range secrets.AES {
		secrets.AES[i] = byte(i)
	}

	clientConn, serverConn := net.Pipe()
	defer clientConn.Close()
	defer serverConn.Close()

	writer := NewFrameWriter(clientConn, secrets)
	reader := NewFrameReader(serverConn, secrets)

	message := []byte("hello rlpx session")
	errCh := make(chan error, 1)
	go func() { errCh <- writer.WriteMessage(message) }()

	got, err := reader.ReadMessage()
	require.NoError(t, err)
	require.NoError(t, <-errCh)
	require.Equal(t, message, got)
}
