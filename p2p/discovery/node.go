// Package discovery implements a devp2p v4-style UDP discovery protocol:
// ping/pong liveness checks and findnode/neighbors lookups over a
// Kademlia-style distance table, plus the RLPx ECIES handshake used to
// authenticate the TCP session a lookup eventually leads to.
package discovery

import (
	"net"

	"chaincore/primitives"
)

// NodeID is a node's uncompressed secp256k1 public key (minus the 0x04
// prefix byte), the same identity convention p2p.Identity derives its
// NodeID string from.
type NodeID = primitives.Hash512

// Endpoint is the network address a node is reachable at: one IP with
// separate UDP (discovery) and TCP (RLPx session) ports, mirroring the
// devp2p v4 endpoint triple.
type Endpoint struct {
	IP      net.IP
	UDPPort uint16
	TCPPort uint16
}

// UDPAddr returns the endpoint's discovery address.
func (e Endpoint) UDPAddr() *net.UDPAddr {
	return &net.UDPAddr{IP: e.IP, Port: int(e.UDPPort)}
}

// Entry pairs a node's identity with where it can be reached.
type Entry struct {
	ID       NodeID
	Endpoint Endpoint
}

// idHash is the keccak256 of a node ID, the value the distance metric and
// bucket index are both computed from.
func idHash(id NodeID) primitives.Hash256 {
	return primitives.Keccak256(id[:])
}

// logDistance returns the index of the most significant differing bit
// between a and b, i.e. 256 minus the number of leading zero bits in a^b.
// It reports ok=false when a and b are identical (no bucket applies).
func logDistance(a, b primitives.Hash256) (dist int, ok bool) {
	leadingZeros := 0
	for i := 0; i < len(a); i++ {
		d := a[i] ^ b[i]
		if d == 0 {
			leadingZeros += 8
			continue
		}
		leadingZeros += leadingZerosByte(d)
		return len(a)*8 - leadingZeros, true
	}
	return 0, false
}

func leadingZerosByte(b byte) int {
	n := 0
	for mask := byte(0x80); mask != 0; mask >>= 1 {
		if b&mask != 0 {
			break
		}
		n++
	}
	return n
}
