package discovery

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"chaincore/p2p/seeds"
)

func TestEntryFromSeedParsesNodeIDAndAddress(t *testing.T) {
	nodeIDHex := strings.Repeat("ab", 64)
	seed := seeds.ResolvedSeed{NodeID: "0x" + nodeIDHex, Address: "203.0.113.5:30303"}

	entry, err := EntryFromSeed(seed)
	require.NoError(t, err)
	require.Equal(t, byte(0xab), entry.ID[0])
	require.Equal(t, "203.0.113.5", entry.Endpoint.IP.String())
	require.Equal(t, uint16(30303), entry.Endpoint.UDPPort)
}

func TestEntryFromSeedRejectsBadNodeIDLength(t *testing.T) {
	seed := seeds.ResolvedSeed{NodeID: "0xabcd", Address: "203.0.113.5:30303"}
	_, err := EntryFromSeed(seed)
	require.Error(t, err)
}

func TestSeedTableSkipsMalformedEntriesWithoutAborting(t *testing.T) {
	table := NewTable(nodeID(0x00))
	good := seeds.ResolvedSeed{NodeID: "0x" + strings.Repeat("cd", 64), Address: "198.51.100.2:30303"}
	bad := seeds.ResolvedSeed{NodeID: "not-hex", Address: "198.51.100.3:30303"}

	errs := SeedTable(table, []seeds.ResolvedSeed{good, bad})
	require.Len(t, errs, 1)
	require.Equal(t, 1, table.Len())
}
