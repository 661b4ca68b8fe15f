package discovery

import (
	"crypto/ecdsa"
	"fmt"
	"net"
	"time"

	"golang.org/x/time/rate"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
)

const (
	maxPacketSize     = 1280
	refreshInterval   = 30 * time.Second
	lookupBucketSize  = 16
	lookupRatePerSec  = 10
	lookupBurst       = 20
)

// Service runs the UDP discovery loop: it answers pings and findnode
// requests from other nodes, and issues its own lookups on a timer to
// refresh the table, throttled so a misbehaving peer (or a local bug)
// cannot turn "refresh the table" into a packet flood.
type Service struct {
	conn   net.PacketConn
	secret *ecdsa.PrivateKey
	self   Entry
	table  *Table

	lookupLimiter *rate.Limiter

	quit chan struct{}
	done chan struct{}
}

// Listen opens a UDP socket bound to self.Endpoint.UDPPort and returns a
// Service ready to Start.
func Listen(secret *ecdsa.PrivateKey, self Entry) (*Service, error) {
	addr := &net.UDPAddr{IP: self.Endpoint.IP, Port: int(self.Endpoint.UDPPort)}
	conn, err := net.ListenUDP("udp", addr)
	if err != nil {
		return nil, fmt.Errorf("discovery: listen %s: %w", addr, err)
	}
	return &Service{
		conn:          conn,
		secret:        secret,
		self:          self,
		table:         NewTable(self.ID),
		lookupLimiter: rate.NewLimiter(rate.Limit(lookupRatePerSec), lookupBurst),
		quit:          make(chan struct{}),
		done:          make(chan struct{}),
	}, nil
}

// Table exposes the service's routing table, e.g. so a caller can seed it
// from DNS bootnode records before the first refresh tick fires.
func (s *Service) Table() *Table { return s.table }

// Start launches the receive loop and the periodic table-refresh loop,
// both in their own goroutines.
func (s *Service) Start() {
	go s.receiveLoop()
	go s.refreshLoop()
}

// Close stops both loops and releases the UDP socket.
func (s *Service) Close() error {
	select {
	case <-s.quit:
	default:
		close(s.quit)
	}
	<-s.done
	return s.conn.Close()
}

func (s *Service) receiveLoop() {
	buf := make([]byte, maxPacketSize)
	for {
		select {
		case <-s.quit:
			close(s.done)
			return
		default:
		}
		s.conn.SetReadDeadline(time.Now().Add(time.Second))
		n, addr, err := s.conn.ReadFrom(buf)
		if err != nil {
			continue
		}
		udpAddr, ok := addr.(*net.UDPAddr)
		if !ok {
			continue
		}
		s.handlePacket(udpAddr, append([]byte(nil), buf[:n]...))
	}
}

func (s *Service) refreshLoop() {
	ticker := time.NewTicker(refreshInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			s.refresh()
		case <-s.quit:
			return
		}
	}
}

// refresh issues a FindNode for our own ID against the closest known
// nodes, the standard Kademlia bucket-refresh trick: asking for neighbors
// of yourself discovers the nodes furthest from any single prior lookup.
func (s *Service) refresh() {
	targets := s.table.Closest(s.self.ID, lookupBucketSize)
	for _, e := range targets {
		if err := s.FindNode(e, s.self.ID); err != nil {
			fmt.Printf("discovery: refresh lookup to %x failed: %v\n", e.ID[:4], err)
		}
	}
}

func (s *Service) handlePacket(from *net.UDPAddr, data []byte) {
	sender, packetType, payload, err := parsePacket(data)
	if err != nil {
		return
	}

	entry := Entry{ID: sender, Endpoint: Endpoint{IP: from.IP, UDPPort: uint16(from.Port)}}

	switch packetType {
	case packetPing:
		ping, err := decodePing(payload)
		if err != nil || expired(ping.Expires, time.Now()) {
			return
		}
		s.table.Add(entry)
		s.sendPong(from, payload)

	case packetPong:
		if _, err := decodePong(payload); err != nil {
			return
		}
		s.table.Add(entry)

	case packetFindNode:
		find, err := decodeFindNode(payload)
		if err != nil || expired(find.Expires, time.Now()) {
			return
		}
		if !s.lookupLimiter.Allow() {
			return
		}
		s.table.Add(entry)
		s.sendNeighbors(from, find.Target)

	case packetNeighbors:
		neighbors, err := decodeNeighbors(payload)
		if err != nil || expired(neighbors.Expires, time.Now()) {
			return
		}
		for _, n := range neighbors.Nodes {
			s.table.Add(n)
		}
	}
}

// Ping sends a liveness probe to e.
func (s *Service) Ping(e Entry) error {
	ping := &Ping{
		From:    s.self.Endpoint,
		To:      e.Endpoint,
		Expires: expiration(time.Now()),
	}
	return s.send(e.Endpoint.UDPAddr(), packetPing, ping.encode())
}

func (s *Service) sendPong(to *net.UDPAddr, pingPayload []byte) {
	pingHash := ethcrypto.Keccak256(append([]byte{packetPing}, pingPayload...))
	pong := &Pong{
		To:       s.self.Endpoint,
		PingHash: pingHash,
		Expires:  expiration(time.Now()),
	}
	if err := s.send(to, packetPong, pong.encode()); err != nil {
		fmt.Printf("discovery: sending pong to %s failed: %v\n", to, err)
	}
}

// FindNode asks e for the nodes in its table closest to target.
func (s *Service) FindNode(e Entry, target NodeID) error {
	if !s.lookupLimiter.Allow() {
		return fmt.Errorf("discovery: local lookup rate limit exceeded")
	}
	find := &FindNode{Target: target, Expires: expiration(time.Now())}
	return s.send(e.Endpoint.UDPAddr(), packetFindNode, find.encode())
}

func (s *Service) sendNeighbors(to *net.UDPAddr, target NodeID) {
	closest := s.table.Closest(target, lookupBucketSize)
	neighbors := &Neighbors{Nodes: closest, Expires: expiration(time.Now())}
	if err := s.send(to, packetNeighbors, neighbors.encode()); err != nil {
		fmt.Printf("discovery: sending neighbors to %s failed: %v\n", to, err)
	}
}

func (s *Service) send(to *net.UDPAddr, packetType byte, payload []byte) error {
	packet, err := assemblePacket(s.secret, packetType, payload)
	if err != nil {
		return err
	}
	_, err = s.conn.WriteTo(packet, to)
	return err
}
