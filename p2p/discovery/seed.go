package discovery

import (
	"encoding/hex"
	"fmt"
	"net"
	"strconv"
	"strings"

	"chaincore/p2p/seeds"
	"chaincore/primitives"
)

// EntryFromSeed converts a DNS- or statically-resolved bootnode record into
// a discovery Entry, so a freshly started Service can seed its table from
// network.seeds before its first refresh tick would otherwise discover
// anything on its own.
func EntryFromSeed(seed seeds.ResolvedSeed) (Entry, error) {
	idHex := strings.TrimPrefix(strings.TrimPrefix(seed.NodeID, "0x"), "0X")
	idBytes, err := hex.DecodeString(idHex)
	if err != nil {
		return Entry{}, fmt.Errorf("discovery: decode seed node ID %q: %w", seed.NodeID, err)
	}
	if len(idBytes) != primitives.Hash512Length {
		return Entry{}, fmt.Errorf("discovery: seed node ID must be %d bytes, got %d", primitives.Hash512Length, len(idBytes))
	}

	host, portStr, err := net.SplitHostPort(seed.Address)
	if err != nil {
		return Entry{}, fmt.Errorf("discovery: parse seed address %q: %w", seed.Address, err)
	}
	port, err := strconv.ParseUint(portStr, 10, 16)
	if err != nil {
		return Entry{}, fmt.Errorf("discovery: parse seed port %q: %w", portStr, err)
	}
	ip := net.ParseIP(host)
	if ip == nil {
		resolved, err := net.ResolveIPAddr("ip", host)
		if err != nil {
			return Entry{}, fmt.Errorf("discovery: resolve seed host %q: %w", host, err)
		}
		ip = resolved.IP
	}

	return Entry{
		ID:       primitives.BytesToHash512(idBytes),
		Endpoint: Endpoint{IP: ip, UDPPort: uint16(port), TCPPort: uint16(port)},
	}, nil
}

// SeedTable adds every seed that parses cleanly into table, skipping (and
// returning) any that don't rather than aborting the whole batch — a
// single malformed bootnode record shouldn't block discovery from
// starting with the rest.
func SeedTable(table *Table, resolved []seeds.ResolvedSeed) []error {
	var errs []error
	for _, seed := range resolved {
		entry, err := EntryFromSeed(seed)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		table.Add(entry)
	}
	return errs
}
