package discovery

import (
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestPingEncodeDecodeRoundTrip(t *testing.T) {
	ping := &Ping{
		From:    Endpoint{IP: net.ParseIP("10.0.0.1").To4(), UDPPort: 30303, TCPPort: 30303},
		To:      Endpoint{IP: net.ParseIP("10.0.0.2").To4(), UDPPort: 30304, TCPPort: 30304},
		Expires: expiration(time.Now()),
	}
	decoded, err := decodePing(ping.encode())
	require.NoError(t, err)
	require.Equal(t, ping.From.UDPPort, decoded.From.UDPPort)
	require.True(t, ping.From.IP.Equal(decoded.From.IP))
	require.Equal(t, ping.To.TCPPort, decoded.To.TCPPort)
	require.Equal(t, ping.Expires, decoded.Expires)
}

func TestPongEncodeDecodeRoundTrip(t *testing.T) {
	pong := &Pong{
		To:       Endpoint{IP: net.ParseIP("127.0.0.1").To4(), UDPPort: 1, TCPPort: 2},
		PingHash: []byte{0xde, 0xad, 0xbe, 0xef},
		Expires:  expiration(time.Now()),
	}
	decoded, err := decodePong(pong.encode())
	require.NoError(t, err)
	require.Equal(t, pong.PingHash, decoded.PingHash)
	require.Equal(t, pong.Expires, decoded.Expires)
}

func TestFindNodeEncodeDecodeRoundTrip(t *testing.T) {
	var target NodeID
	target[0] = 0xAB
	find := &FindNode{Target: target, Expires: expiration(time.Now())}
	decoded, err := decodeFindNode(find.encode())
	require.NoError(t, err)
	require.Equal(t, find.Target, decoded.Target)
	require.Equal(t, find.Expires, decoded.Expires)
}

func TestNeighborsEncodeDecodeRoundTrip(t *testing.T) {
	var id1, id2 NodeID
	id1[0], id2[0] = 1, 2
	neighbors := &Neighbors{
		Nodes: []Entry{
			{ID: id1, Endpoint: Endpoint{IP: net.ParseIP("1.1.1.1").To4(), UDPPort: 10, TCPPort: 11}},
			{ID: id2, Endpoint: Endpoint{IP: net.ParseIP("2.2.2.2").To4(), UDPPort: 20, TCPPort: 21}},
		},
		Expires: expiration(time.Now()),
	}
	decoded, err := decodeNeighbors(neighbors.encode())
	require.NoError(t, err)
	require.Len(t, decoded.Nodes, 2)
	require.Equal(t, id1, decoded.Nodes[0].ID)
	require.Equal(t, uint16(21), decoded.Nodes[1].Endpoint.TCPPort)
}

func TestExpiredChecksAgainstClock(t *testing.T) {
	past := uint64(time.Now().Add(-time.Minute).Unix())
	require.True(t, expired(past, time.Now()))

	future := expiration(time.Now())
	require.False(t, expired(future, time.Now()))
}
