package p2p

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"chaincore/core/types"
	"chaincore/crypto"
	"chaincore/primitives"
)

// recordingHandler collects every message HandleMessage is called with, for
// assertions from the test goroutine.
type recordingHandler struct {
	mu       sync.Mutex
	messages []*Message
}

func (h *recordingHandler) HandleMessage(msg *Message) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.messages = append(h.messages, msg)
	return nil
}

func (h *recordingHandler) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.messages)
}

func (h *recordingHandler) last() *Message {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.messages) == 0 {
		return nil
	}
	return h.messages[len(h.messages)-1]
}

func newTestServer(t *testing.T, handler MessageHandler, chainID uint64) *Server {
	t.Helper()
	key, err := crypto.GeneratePrivateKey()
	require.NoError(t, err)
	s := NewServer("127.0.0.1:0", handler, key, chainID)
	require.NoError(t, s.Start())
	t.Cleanup(func() { s.Close() })
	return s
}

func TestConnectPerformsHandshakeAndRegistersBothSides(t *testing.T) {
	hA := &recordingHandler{}
	hB := &recordingHandler{}
	a := newTestServer(t, hA, 7)
	b := newTestServer(t, hB, 7)

	require.NoError(t, a.Connect(b.listener.Addr().String()))

	require.Eventually(t, func() bool {
		a.mu.Lock()
		defer a.mu.Unlock()
		return len(a.peers) == 1
	}, time.Second, 5*time.Millisecond)

	require.Eventually(t, func() bool {
		b.mu.Lock()
		defer b.mu.Unlock()
		return len(b.peers) == 1
	}, time.Second, 5*time.Millisecond)
}

func TestConnectRejectsChainIDMismatch(t *testing.T) {
	a := newTestServer(t, &recordingHandler{}, 1)
	b := newTestServer(t, &recordingHandler{}, 2)

	err := a.Connect(b.listener.Addr().String())
	require.Error(t, err)
	require.ErrorIs(t, err, ErrHandshakeFailed)
}

func TestBroadcastDeliversDecodableBlockToHandler(t *testing.T) {
	handler := &recordingHandler{}
	a := newTestServer(t, &recordingHandler{}, 9)
	b := newTestServer(t, handler, 9)

	require.NoError(t, a.Connect(b.listener.Addr().String()))
	require.Eventually(t, func() bool {
		a.mu.Lock()
		defer a.mu.Unlock()
		return len(a.peers) == 1
	}, time.Second, 5*time.Millisecond)

	header := &types.Header{Height: 1, Timestamp: 1}
	block := types.NewBlock(header, nil)
	msg, err := NewBlockMessage(block)
	require.NoError(t, err)
	require.NoError(t, a.Broadcast(msg))

	require.Eventually(t, func() bool { return handler.count() == 1 }, time.Second, 5*time.Millisecond)

	got := handler.last()
	require.Equal(t, MsgTypeBlock, got.Type)
	decoded, err := types.DecodeBlock(got.Payload)
	require.NoError(t, err)
	require.Equal(t, block.Header.Height, decoded.Header.Height)
	require.Equal(t, block.Hash(), decoded.Hash())
}

func TestBroadcastDeliversDecodableTransaction(t *testing.T) {
	handler := &recordingHandler{}
	a := newTestServer(t, &recordingHandler{}, 3)
	b := newTestServer(t, handler, 3)

	require.NoError(t, a.Connect(b.listener.Addr().String()))
	require.Eventually(t, func() bool {
		a.mu.Lock()
		defer a.mu.Unlock()
		return len(a.peers) == 1
	}, time.Second, 5*time.Millisecond)

	tx := &types.Transaction{
		Nonce:    1,
		GasPrice: primitives.U256FromUint64(1),
		GasLimit: 21000,
		Value:    primitives.U256FromUint64(100),
	}
	msg, err := NewTxMessage(tx)
	require.NoError(t, err)
	require.NoError(t, a.Broadcast(msg))

	require.Eventually(t, func() bool { return handler.count() == 1 }, time.Second, 5*time.Millisecond)

	got := handler.last()
	require.Equal(t, MsgTypeTx, got.Type)
	decoded, err := types.DecodeTransaction(got.Payload)
	require.NoError(t, err)
	require.Equal(t, tx.Hash(), decoded.Hash())
}

func TestHandleMessageErrorClosesConnectionOnInvalidPayload(t *testing.T) {
	rejecting := handlerFunc(func(msg *Message) error { return ErrInvalidPayload })
	a := newTestServer(t, &recordingHandler{}, 4)
	b := newTestServer(t, rejecting, 4)

	require.NoError(t, a.Connect(b.listener.Addr().String()))
	require.Eventually(t, func() bool {
		a.mu.Lock()
		defer a.mu.Unlock()
		return len(a.peers) == 1
	}, time.Second, 5*time.Millisecond)

	require.NoError(t, a.Broadcast(&Message{Type: MsgTypeBlock, Payload: []byte("not valid rlp")}))

	require.Eventually(t, func() bool {
		b.mu.Lock()
		defer b.mu.Unlock()
		return len(b.peers) == 0
	}, time.Second, 5*time.Millisecond, "peer connection should be dropped after an invalid payload")
}

type handlerFunc func(msg *Message) error

func (f handlerFunc) HandleMessage(msg *Message) error { return f(msg) }
