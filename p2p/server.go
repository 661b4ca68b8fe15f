package p2p

import (
	"crypto/rand"
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net"
	"sync"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"

	"chaincore/crypto"
	"chaincore/primitives"
)

// Server is the node's TCP gossip endpoint: it accepts and dials peer
// connections, authenticates them with a signed chain-ID handshake, and
// hands every decoded frame to handler. It does not negotiate session keys
// the way p2p/discovery's RLPx handshake does — peers here are assumed to
// have already found each other over discovery, so this layer only proves
// the remote end holds the validator key it claims and agrees on chainID
// before any gossip is exchanged in the clear.
type Server struct {
	listenAddr string
	handler    MessageHandler
	privKey    *crypto.PrivateKey
	chainID    uint64

	mu       sync.Mutex
	listener net.Listener
	peers    map[string]*peerConn
	closed   chan struct{}
	closeOne sync.Once
}

// NewServer constructs a gossip server bound to listenAddr. handler receives
// every message decoded from an authenticated peer connection.
func NewServer(listenAddr string, handler MessageHandler, privKey *crypto.PrivateKey, chainID uint64) *Server {
	return &Server{
		listenAddr: listenAddr,
		handler:    handler,
		privKey:    privKey,
		chainID:    chainID,
		peers:      make(map[string]*peerConn),
		closed:     make(chan struct{}),
	}
}

// Start opens the listening socket and begins accepting inbound peers in
// the background.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.listenAddr)
	if err != nil {
		return fmt.Errorf("p2p: listen %s: %w", s.listenAddr, err)
	}
	s.listener = ln
	go s.acceptLoop()
	return nil
}

// Close stops accepting new peers and severs every existing connection.
func (s *Server) Close() error {
	var err error
	s.closeOne.Do(func() {
		close(s.closed)
		if s.listener != nil {
			err = s.listener.Close()
		}
		s.mu.Lock()
		for _, p := range s.peers {
			p.close()
		}
		s.peers = make(map[string]*peerConn)
		s.mu.Unlock()
	})
	return err
}

func (s *Server) acceptLoop() {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			select {
			case <-s.closed:
				return
			default:
				continue
			}
		}
		go s.handleInbound(conn)
	}
}

// Connect dials addr, performs the handshake as the initiator, and starts
// reading gossip frames from the new peer in the background.
func (s *Server) Connect(addr string) error {
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		return fmt.Errorf("p2p: dial %s: %w", addr, err)
	}

	local, err := s.localHandshake()
	if err != nil {
		conn.Close()
		return err
	}
	if err := json.NewEncoder(conn).Encode(local); err != nil {
		conn.Close()
		return fmt.Errorf("p2p: send handshake to %s: %w", addr, err)
	}

	dec := json.NewDecoder(conn)
	var remote handshakeFrame
	if err := dec.Decode(&remote); err != nil {
		conn.Close()
		return fmt.Errorf("p2p: read handshake from %s: %w", addr, err)
	}
	if err := verifyHandshake(remote, s.chainID); err != nil {
		conn.Close()
		return err
	}

	peer := &peerConn{id: remote.NodeID, conn: conn}
	s.registerPeer(peer)
	go s.readLoop(peer, dec)
	return nil
}

// handleInbound completes the handshake for an accepted connection. It
// writes its own frame before validating the remote's, so a chain-ID or
// signature mismatch is still reported to the dialing side as a proper
// handshake error instead of a bare connection reset.
func (s *Server) handleInbound(conn net.Conn) {
	dec := json.NewDecoder(conn)
	var remote handshakeFrame
	if err := dec.Decode(&remote); err != nil {
		conn.Close()
		return
	}

	local, err := s.localHandshake()
	if err != nil {
		conn.Close()
		return
	}
	if err := json.NewEncoder(conn).Encode(local); err != nil {
		conn.Close()
		return
	}

	if err := verifyHandshake(remote, s.chainID); err != nil {
		conn.Close()
		return
	}

	peer := &peerConn{id: remote.NodeID, conn: conn}
	s.registerPeer(peer)
	s.readLoop(peer, dec)
}

// readLoop decodes frames off dec until the connection errors or closes,
// dispatching each to the handler. A handler-reported invalid payload ends
// the connection; any other handler error is logged by the caller's
// wiring, not here, and the loop continues.
func (s *Server) readLoop(peer *peerConn, dec *json.Decoder) {
	defer s.removePeer(peer)
	for {
		var wm wireMessage
		if err := dec.Decode(&wm); err != nil {
			return
		}
		msg := &Message{Type: wm.Type, Payload: wm.Payload}
		if err := s.handler.HandleMessage(msg); err != nil && IsInvalidPayload(err) {
			return
		}
	}
}

// Broadcast sends msg to every currently connected peer, returning the
// first send error encountered (if any) after attempting all of them.
func (s *Server) Broadcast(msg *Message) error {
	s.mu.Lock()
	peers := make([]*peerConn, 0, len(s.peers))
	for _, p := range s.peers {
		peers = append(peers, p)
	}
	s.mu.Unlock()

	var firstErr error
	for _, p := range peers {
		if err := p.send(msg); err != nil {
			s.removePeer(p)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

func (s *Server) registerPeer(p *peerConn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.peers[p.id]; ok {
		existing.close()
	}
	s.peers[p.id] = p
}

func (s *Server) removePeer(p *peerConn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.peers[p.id] == p {
		delete(s.peers, p.id)
	}
	p.close()
}

// wireMessage is the newline-delimited JSON frame exchanged between peers
// once the handshake completes.
type wireMessage struct {
	Type    byte   `json:"type"`
	Payload []byte `json:"payload"`
}

// peerConn wraps one authenticated gossip connection.
type peerConn struct {
	id        string
	conn      net.Conn
	writeMu   sync.Mutex
	closeOnce sync.Once
}

func (p *peerConn) send(msg *Message) error {
	p.writeMu.Lock()
	defer p.writeMu.Unlock()
	return json.NewEncoder(p.conn).Encode(wireMessage{Type: msg.Type, Payload: msg.Payload})
}

func (p *peerConn) close() {
	p.closeOnce.Do(func() { p.conn.Close() })
}

// handshakeFrame is the opening message each side of a connection sends:
// a claimed node identity (uncompressed secp256k1 public key) and chain ID,
// signed over a fresh nonce so the claim can be verified.
type handshakeFrame struct {
	ChainID   uint64 `json:"chainID"`
	NodeID    string `json:"nodeID"`
	Nonce     string `json:"nonce"`
	Signature string `json:"signature"`
}

// localHandshake builds this node's handshake frame, signing a fresh nonce
// together with the chain ID so a replayed frame from a different chain or
// a stale nonce can't be mistaken for a fresh, valid one.
func (s *Server) localHandshake() (handshakeFrame, error) {
	nonce := make([]byte, 32)
	if _, err := rand.Read(nonce); err != nil {
		return handshakeFrame{}, fmt.Errorf("p2p: generate handshake nonce: %w", err)
	}
	digest := handshakeDigest(nonce, s.chainID)
	sig, err := ethcrypto.Sign(digest[:], s.privKey.PrivateKey)
	if err != nil {
		return handshakeFrame{}, fmt.Errorf("p2p: sign handshake: %w", err)
	}
	pubBytes := ethcrypto.FromECDSAPub(s.privKey.PubKey().PublicKey)
	return handshakeFrame{
		ChainID:   s.chainID,
		NodeID:    hex.EncodeToString(pubBytes),
		Nonce:     hex.EncodeToString(nonce),
		Signature: hex.EncodeToString(sig),
	}, nil
}

// verifyHandshake checks that frame declares the expected chain and that
// its signature was produced by the private key behind its claimed NodeID.
func verifyHandshake(frame handshakeFrame, expectedChainID uint64) error {
	if frame.ChainID != expectedChainID {
		return fmt.Errorf("%w: chain id %d, want %d", ErrHandshakeFailed, frame.ChainID, expectedChainID)
	}
	nonce, err := hex.DecodeString(frame.Nonce)
	if err != nil {
		return fmt.Errorf("%w: decode nonce: %v", ErrHandshakeFailed, err)
	}
	sig, err := hex.DecodeString(frame.Signature)
	if err != nil {
		return fmt.Errorf("%w: decode signature: %v", ErrHandshakeFailed, err)
	}
	claimedPub, err := hex.DecodeString(frame.NodeID)
	if err != nil {
		return fmt.Errorf("%w: decode node id: %v", ErrHandshakeFailed, err)
	}

	digest := handshakeDigest(nonce, frame.ChainID)
	recoveredPub, err := ethcrypto.SigToPub(digest[:], sig)
	if err != nil {
		return fmt.Errorf("%w: recover signer: %v", ErrHandshakeFailed, err)
	}
	if hex.EncodeToString(ethcrypto.FromECDSAPub(recoveredPub)) != hex.EncodeToString(claimedPub) {
		return fmt.Errorf("%w: signature does not match claimed node id", ErrHandshakeFailed)
	}
	return nil
}

func handshakeDigest(nonce []byte, chainID uint64) primitives.Hash256 {
	var chainIDBytes [8]byte
	binary.BigEndian.PutUint64(chainIDBytes[:], chainID)
	return primitives.Keccak256(nonce, chainIDBytes[:])
}
