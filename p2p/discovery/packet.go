package discovery

import (
	"fmt"
	"net"
	"time"

	"chaincore/rlp"
)

// Packet type identifiers, matching the devp2p v4 discovery wire format
// (https://github.com/ethereum/devp2p/blob/master/discv4.md).
const (
	packetPing       byte = 0x01
	packetPong       byte = 0x02
	packetFindNode   byte = 0x03
	packetNeighbors  byte = 0x04
	protocolVersion       = 4
	expirationWindow      = 20 * time.Second
)

// Ping is sent to probe whether a node is alive and to advertise the
// sender's own reachable endpoint.
type Ping struct {
	From    Endpoint
	To      Endpoint
	Expires uint64
}

func (p *Ping) encode() []byte {
	return rlp.EncodeList(
		rlp.EncodeUint64(protocolVersion),
		encodeEndpoint(p.From),
		encodeEndpoint(p.To),
		rlp.EncodeUint64(p.Expires),
	)
}

func decodePing(data []byte) (*Ping, error) {
	d, err := rlp.NewDecoder(data)
	if err != nil {
		return nil, err
	}
	fromItem, err := d.At(1)
	if err != nil {
		return nil, err
	}
	from, err := decodeEndpoint(fromItem)
	if err != nil {
		return nil, fmt.Errorf("discovery: decode ping.from: %w", err)
	}
	toItem, err := d.At(2)
	if err != nil {
		return nil, err
	}
	to, err := decodeEndpoint(toItem)
	if err != nil {
		return nil, fmt.Errorf("discovery: decode ping.to: %w", err)
	}
	expiresItem, err := d.At(3)
	if err != nil {
		return nil, err
	}
	expires, err := expiresItem.Uint64()
	if err != nil {
		return nil, err
	}
	return &Ping{From: from, To: to, Expires: expires}, nil
}

// Pong answers a Ping, echoing back the hash of the ping packet it is
// replying to so the sender can match a reply to its request.
type Pong struct {
	To       Endpoint
	PingHash []byte
	Expires  uint64
}

func (p *Pong) encode() []byte {
	return rlp.EncodeList(
		encodeEndpoint(p.To),
		rlp.EncodeBytes(p.PingHash),
		rlp.EncodeUint64(p.Expires),
	)
}

func decodePong(data []byte) (*Pong, error) {
	d, err := rlp.NewDecoder(data)
	if err != nil {
		return nil, err
	}
	toItem, err := d.At(0)
	if err != nil {
		return nil, err
	}
	to, err := decodeEndpoint(toItem)
	if err != nil {
		return nil, fmt.Errorf("discovery: decode pong.to: %w", err)
	}
	pingHash, err := d.ValAt(1)
	if err != nil {
		return nil, err
	}
	expiresItem, err := d.At(2)
	if err != nil {
		return nil, err
	}
	expires, err := expiresItem.Uint64()
	if err != nil {
		return nil, err
	}
	return &Pong{To: to, PingHash: append([]byte(nil), pingHash...), Expires: expires}, nil
}

// FindNode asks the recipient for the nodes in its table closest to
// Target.
type FindNode struct {
	Target  NodeID
	Expires uint64
}

func (f *FindNode) encode() []byte {
	return rlp.EncodeList(
		rlp.EncodeBytes(f.Target[:]),
		rlp.EncodeUint64(f.Expires),
	)
}

func decodeFindNode(data []byte) (*FindNode, error) {
	d, err := rlp.NewDecoder(data)
	if err != nil {
		return nil, err
	}
	target, err := d.ValAt(0)
	if err != nil {
		return nil, err
	}
	expiresItem, err := d.At(1)
	if err != nil {
		return nil, err
	}
	expires, err := expiresItem.Uint64()
	if err != nil {
		return nil, err
	}
	var id NodeID
	copy(id[:], target)
	return &FindNode{Target: id, Expires: expires}, nil
}

// Neighbors answers a FindNode with up to a bucket's worth of candidate
// entries.
type Neighbors struct {
	Nodes   []Entry
	Expires uint64
}

func (n *Neighbors) encode() []byte {
	items := make([][]byte, len(n.Nodes))
	for i, e := range n.Nodes {
		items[i] = rlp.EncodeList(encodeEndpoint(e.Endpoint), rlp.EncodeBytes(e.ID[:]))
	}
	return rlp.EncodeList(
		rlp.EncodeList(items...),
		rlp.EncodeUint64(n.Expires),
	)
}

func decodeNeighbors(data []byte) (*Neighbors, error) {
	d, err := rlp.NewDecoder(data)
	if err != nil {
		return nil, err
	}
	listItem, err := d.At(0)
	if err != nil {
		return nil, err
	}
	count, err := listItem.ItemCount()
	if err != nil {
		return nil, err
	}
	nodes := make([]Entry, 0, count)
	for i := 0; i < count; i++ {
		item, err := listItem.At(i)
		if err != nil {
			return nil, err
		}
		epItem, err := item.At(0)
		if err != nil {
			return nil, err
		}
		ep, err := decodeEndpoint(epItem)
		if err != nil {
			return nil, err
		}
		idBytes, err := item.ValAt(1)
		if err != nil {
			return nil, err
		}
		var id NodeID
		copy(id[:], idBytes)
		nodes = append(nodes, Entry{ID: id, Endpoint: ep})
	}
	expiresItem, err := d.At(1)
	if err != nil {
		return nil, err
	}
	expires, err := expiresItem.Uint64()
	if err != nil {
		return nil, err
	}
	return &Neighbors{Nodes: nodes, Expires: expires}, nil
}

func encodeEndpoint(e Endpoint) []byte {
	ip := e.IP.To4()
	if ip == nil {
		ip = e.IP.To16()
	}
	return rlp.EncodeList(
		rlp.EncodeBytes(ip),
		rlp.EncodeUint64(uint64(e.UDPPort)),
		rlp.EncodeUint64(uint64(e.TCPPort)),
	)
}

func decodeEndpoint(d *rlp.Decoder) (Endpoint, error) {
	ipBytes, err := d.ValAt(0)
	if err != nil {
		return Endpoint{}, err
	}
	udpItem, err := d.At(1)
	if err != nil {
		return Endpoint{}, err
	}
	udpPort, err := udpItem.Uint64()
	if err != nil {
		return Endpoint{}, err
	}
	tcpItem, err := d.At(2)
	if err != nil {
		return Endpoint{}, err
	}
	tcpPort, err := tcpItem.Uint64()
	if err != nil {
		return Endpoint{}, err
	}
	return Endpoint{
		IP:      net.IP(append([]byte(nil), ipBytes...)),
		UDPPort: uint16(udpPort),
		TCPPort: uint16(tcpPort),
	}, nil
}

func expiration(now time.Time) uint64 {
	return uint64(now.Add(expirationWindow).Unix())
}

func expired(value uint64, now time.Time) bool {
	return int64(value) < now.Unix()
}
