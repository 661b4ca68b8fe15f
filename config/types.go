package config

// StoreBackend selects which storage.Database implementation backs the
// node's state trie.
type StoreBackend string

const (
	StoreBackendMemory  StoreBackend = "memory"
	StoreBackendLevelDB StoreBackend = "leveldb"
)

// Store configures where and how world-state trie nodes are persisted.
type Store struct {
	Backend StoreBackend `toml:"Backend"`
	Path    string       `toml:"Path"`
}

// GasSchedule mirrors evm.Schedule field-for-field so a TOML file can tune
// the interpreter's constants without a code change. TierStepGas is
// flattened to eight named fields since BurntSushi/toml has no ergonomic
// array-of-primitives-by-index support worth using for a fixed 8-element
// table.
type GasSchedule struct {
	TierStepGas0     uint64 `toml:"TierStepGas0"`
	TierStepGas1     uint64 `toml:"TierStepGas1"`
	TierStepGas2     uint64 `toml:"TierStepGas2"`
	TierStepGas3     uint64 `toml:"TierStepGas3"`
	TierStepGas4     uint64 `toml:"TierStepGas4"`
	TierStepGas5     uint64 `toml:"TierStepGas5"`
	TierStepGas6     uint64 `toml:"TierStepGas6"`
	TierStepGas7     uint64 `toml:"TierStepGas7"`
	MemoryGas        uint64 `toml:"MemoryGas"`
	QuadCoeffDiv     uint64 `toml:"QuadCoeffDiv"`
	SubGasCapDivisor uint64 `toml:"SubGasCapDivisor"` // 0 means unset (pre-EIP-150)
	SstoreSetGas     uint64 `toml:"SstoreSetGas"`
	SstoreResetGas   uint64 `toml:"SstoreResetGas"`
	SstoreRefundGas  uint64 `toml:"SstoreRefundGas"`
	EIP1283          bool   `toml:"EIP1283"`
}

// P2P configures the devp2p discovery and RLPx session listeners.
type P2P struct {
	ListenAddress  string   `toml:"ListenAddress"`
	UDPPort        uint16   `toml:"UDPPort"`
	TCPPort        uint16   `toml:"TCPPort"`
	BootstrapSeeds []string `toml:"BootstrapSeeds"` // "<hex-node-id>@host[:port]" static bootstrap entries
}

// Config is the full node configuration loaded from a single TOML file.
type Config struct {
	DataDir      string      `toml:"DataDir"`
	GenesisFile  string      `toml:"GenesisFile"`
	ValidatorKey string      `toml:"ValidatorKey"` // hex-encoded secp256k1 private key; generated on first run if blank
	Store        Store       `toml:"Store"`
	Gas          GasSchedule `toml:"Gas"`
	P2P          P2P         `toml:"P2P"`
}
