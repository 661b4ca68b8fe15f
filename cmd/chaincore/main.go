// Command chaincore runs a single node of the toy chain: it opens the
// state store, loads (or generates) a validator key, and starts the
// collator worker, the devp2p discovery service, and the TCP peer server.
// It is wiring only — every algorithm it calls into lives in the core
// trie/evm/rlp packages or their out-of-scope collaborators.
package main

import (
	"context"
	"encoding/hex"
	"flag"
	"fmt"
	"net"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"chaincore/config"
	"chaincore/core/collator"
	"chaincore/core/types"
	"chaincore/crypto"
	chainlog "chaincore/log"
	otelinit "chaincore/observability/otel"
	"chaincore/p2p"
	"chaincore/p2p/discovery"
	"chaincore/primitives"
	"chaincore/storage"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
)

func main() {
	configPath := flag.String("config", "./config.toml", "path to the node's TOML configuration file")
	logLevel := flag.Int("log-level", int(chainlog.LevelInfo), "minimum log level (0=debug, 1=info, 2=warn, 3=error)")
	otlpEndpoint := flag.String("otlp-endpoint", "", "OTLP HTTP endpoint for trace export; tracing is disabled if empty")
	flag.Parse()

	logger := chainlog.New(chainlog.Config{MinLevel: chainlog.Level(*logLevel), Component: "chaincore", Stdout: true})

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Errorf("load config %s: %v", *configPath, err)
		os.Exit(1)
	}

	if *otlpEndpoint != "" {
		shutdown, err := otelinit.Init(context.Background(), otelinit.Config{ServiceName: "chaincore", Endpoint: *otlpEndpoint, Insecure: true})
		if err != nil {
			logger.Warnf("tracing disabled: %v", err)
		} else {
			defer shutdown(context.Background())
		}
	}

	store, err := openStore(cfg.Store)
	if err != nil {
		logger.Errorf("open store: %v", err)
		os.Exit(1)
	}
	defer store.Close()

	validatorKeyBytes, err := hex.DecodeString(cfg.ValidatorKey)
	if err != nil {
		logger.Errorf("decode validator key: %v", err)
		os.Exit(1)
	}
	validatorKey, err := crypto.PrivateKeyFromBytes(validatorKeyBytes)
	if err != nil {
		logger.Errorf("parse validator key: %v", err)
		os.Exit(1)
	}
	validatorAddr := primitives.BytesToAddress160(validatorKey.PubKey().Address().Bytes())
	logger.Infof("validator address %s", validatorAddr)

	chain := types.NewChain()

	col := collator.New()
	worker := collator.NewWorker(col, store, cfg.Schedule(), validatorAddr, defaultBlockSize, defaultBlockInterval)
	worker.Start()
	defer worker.Stop()

	p2pLogger := logger.With("p2p")
	handler := &gossipHandler{chain: chain, collator: col, logger: p2pLogger}
	server := p2p.NewServer(cfg.P2P.ListenAddress, handler, validatorKey, 0)
	if err := server.Start(); err != nil {
		p2pLogger.Errorf("start TCP peer server: %v", err)
		os.Exit(1)
	}
	defer server.Close()

	go consumeBlocks(worker.Blocks, chain, server, logger.With("collator"))

	discoverySvc, err := startDiscovery(cfg, validatorKey, logger.With("discovery"))
	if err != nil {
		logger.Errorf("start discovery: %v", err)
		os.Exit(1)
	}
	defer discoverySvc.Close()

	logger.Infof("chaincore listening: p2p=%s udp=%d tcp=%d", cfg.P2P.ListenAddress, cfg.P2P.UDPPort, cfg.P2P.TCPPort)

	waitForShutdown(logger)
}

const (
	defaultBlockSize     = 64
	defaultBlockInterval = 2 * time.Second
)

func openStore(cfg config.Store) (storage.Database, error) {
	switch cfg.Backend {
	case config.StoreBackendLevelDB:
		return storage.NewLevelDB(cfg.Path)
	case config.StoreBackendMemory:
		return storage.NewMemDB(), nil
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Backend)
	}
}

// consumeBlocks appends every block the collator worker produces onto the
// in-memory chain, logs its height and transaction count, and gossips it to
// connected peers so the rest of the network can adopt it.
func consumeBlocks(blocks <-chan *types.Block, chain *types.Chain, server *p2p.Server, logger *chainlog.Logger) {
	for b := range blocks {
		chain.Append(b)
		logger.Infof("sealed block height=%d txs=%d stateRoot=%s", b.Header.Height, len(b.Transactions), b.Header.StateRoot)

		msg, err := p2p.NewBlockMessage(b)
		if err != nil {
			logger.Warnf("encode sealed block height=%d: %v", b.Header.Height, err)
			continue
		}
		if err := server.Broadcast(msg); err != nil {
			logger.Warnf("broadcast sealed block height=%d: %v", b.Header.Height, err)
		}
	}
}

// gossipHandler routes inbound gossip into the node's chain index and
// pending-transaction pool: blocks are appended if not already known,
// transactions are queued for the collator to include in a future block.
type gossipHandler struct {
	chain    *types.Chain
	collator *collator.Collator
	logger   *chainlog.Logger
}

func (h *gossipHandler) HandleMessage(msg *p2p.Message) error {
	switch msg.Type {
	case p2p.MsgTypeTx:
		tx, err := types.DecodeTransaction(msg.Payload)
		if err != nil {
			return fmt.Errorf("%w: decode transaction: %v", p2p.ErrInvalidPayload, err)
		}
		h.collator.Submit(tx)
		return nil

	case p2p.MsgTypeBlock:
		b, err := types.DecodeBlock(msg.Payload)
		if err != nil {
			return fmt.Errorf("%w: decode block: %v", p2p.ErrInvalidPayload, err)
		}
		if _, known := h.chain.ByHash(b.Hash()); known {
			return nil
		}
		h.chain.Append(b)
		h.logger.Infof("received block height=%d hash=%s", b.Header.Height, b.Hash())
		return nil

	default:
		return nil
	}
}

// startDiscovery builds this node's identity from its validator key,
// listens on the configured UDP port, seeds the routing table from any
// statically-configured bootstrap entries ("<64-byte-hex-nodeid>@host:port"),
// and starts the background receive/refresh loops.
func startDiscovery(cfg *config.Config, key *crypto.PrivateKey, logger *chainlog.Logger) (*discovery.Service, error) {
	pubBytes := ethcrypto.FromECDSAPub(key.PubKey().PublicKey)
	nodeID := primitives.BytesToHash512(pubBytes[1:]) // drop the 0x04 uncompressed-point prefix

	ip := net.ParseIP(hostOnly(cfg.P2P.ListenAddress))
	if ip == nil {
		ip = net.IPv4zero
	}
	self := discovery.Entry{
		ID: nodeID,
		Endpoint: discovery.Endpoint{
			IP:      ip,
			UDPPort: cfg.P2P.UDPPort,
			TCPPort: cfg.P2P.TCPPort,
		},
	}

	svc, err := discovery.Listen(key.PrivateKey, self)
	if err != nil {
		return nil, err
	}

	for _, seed := range cfg.P2P.BootstrapSeeds {
		entry, err := parseStaticSeed(seed, cfg.P2P.UDPPort)
		if err != nil {
			logger.Warnf("skipping malformed bootstrap seed %q: %v", seed, err)
			continue
		}
		svc.Table().Add(entry)
	}

	svc.Start()
	return svc, nil
}

// parseStaticSeed accepts "<hex-node-id>@host[:port]" bootstrap entries,
// the only form config.P2P.BootstrapSeeds supports; DNS TXT authority
// names (p2p/seeds) are not resolved here and are skipped as malformed.
func parseStaticSeed(raw string, defaultPort uint16) (discovery.Entry, error) {
	at := -1
	for i, r := range raw {
		if r == '@' {
			at = i
			break
		}
	}
	if at < 0 {
		return discovery.Entry{}, fmt.Errorf("expected \"<node-id>@host:port\", got %q", raw)
	}
	idHex, hostPort := raw[:at], raw[at+1:]

	idBytes, err := hex.DecodeString(idHex)
	if err != nil {
		return discovery.Entry{}, fmt.Errorf("decode node id: %w", err)
	}
	if len(idBytes) != primitives.Hash512Length {
		return discovery.Entry{}, fmt.Errorf("node id must be %d bytes, got %d", primitives.Hash512Length, len(idBytes))
	}

	host, portStr, err := net.SplitHostPort(hostPort)
	if err != nil {
		host = hostPort
		portStr = strconv.Itoa(int(defaultPort))
	}
	port, err := strconv.ParseUint(portStr, 10, 16)
	if err != nil {
		return discovery.Entry{}, fmt.Errorf("parse port: %w", err)
	}
	ip := net.ParseIP(host)
	if ip == nil {
		resolved, err := net.ResolveIPAddr("ip", host)
		if err != nil {
			return discovery.Entry{}, fmt.Errorf("resolve host %q: %w", host, err)
		}
		ip = resolved.IP
	}

	return discovery.Entry{
		ID:       primitives.BytesToHash512(idBytes),
		Endpoint: discovery.Endpoint{IP: ip, UDPPort: uint16(port), TCPPort: uint16(port)},
	}, nil
}

func hostOnly(listenAddr string) string {
	host, _, err := net.SplitHostPort(listenAddr)
	if err != nil {
		return listenAddr
	}
	return host
}

func waitForShutdown(logger *chainlog.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	logger.Infof("received %s, shutting down", sig)
}
