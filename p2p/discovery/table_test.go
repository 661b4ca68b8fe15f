package discovery

import (
	"net"
	"testing"

	"github.com/stretchr/testify/require"
)

func nodeID(b byte) NodeID {
	var id NodeID
	id[0] = b
	return id
}

func TestTableAddAndClosestOrdersByDistance(t *testing.T) {
	self := nodeID(0x00)
	table := NewTable(self)

	for i := byte(1); i <= 5; i++ {
		table.Add(Entry{ID: nodeID(i), Endpoint: Endpoint{IP: net.ParseIP("127.0.0.1"), UDPPort: uint16(30000 + i)}})
	}
	require.Equal(t, 5, table.Len())

	closest := table.Closest(self, 3)
	require.Len(t, closest, 3)

	prev := 0
	for _, e := range closest {
		d, ok := logDistance(idHash(self), idHash(e.ID))
		require.True(t, ok)
		require.GreaterOrEqual(t, d, prev)
		prev = d
	}
}

func TestTableAddIgnoresSelf(t *testing.T) {
	self := nodeID(0x09)
	table := NewTable(self)
	table.Add(Entry{ID: self})
	require.Equal(t, 0, table.Len())
}

func TestTableRemove(t *testing.T) {
	self := nodeID(0x00)
	table := NewTable(self)
	other := nodeID(0x01)
	table.Add(Entry{ID: other})
	require.Equal(t, 1, table.Len())

	table.Remove(other)
	require.Equal(t, 0, table.Len())
}

func TestTableAddRefreshesExistingEntry(t *testing.T) {
	self := nodeID(0x00)
	table := NewTable(self)
	other := nodeID(0x01)
	table.Add(Entry{ID: other, Endpoint: Endpoint{UDPPort: 1}})
	table.Add(Entry{ID: other, Endpoint: Endpoint{UDPPort: 2}})
	require.Equal(t, 1, table.Len())

	closest := table.Closest(other, 1)
	require.Equal(t, uint16(2), closest[0].Endpoint.UDPPort)
}
