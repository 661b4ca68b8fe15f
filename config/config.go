package config

import (
	"encoding/hex"
	"fmt"
	"os"

	"github.com/BurntSushi/toml"

	"chaincore/crypto"
	"chaincore/evm"
)

// Load reads the node configuration from path, writing and returning a
// freshly generated default file (with a new validator key) if none
// exists yet.
func Load(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return createDefault(path)
	}

	cfg := &Config{}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("config: decode %s: %w", path, err)
	}

	if cfg.ValidatorKey == "" {
		key, err := crypto.GeneratePrivateKey()
		if err != nil {
			return nil, fmt.Errorf("config: generate validator key: %w", err)
		}
		cfg.ValidatorKey = hex.EncodeToString(key.Bytes())
		if err := save(path, cfg); err != nil {
			return nil, err
		}
	}

	applyDefaults(cfg)
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func createDefault(path string) (*Config, error) {
	key, err := crypto.GeneratePrivateKey()
	if err != nil {
		return nil, fmt.Errorf("config: generate validator key: %w", err)
	}
	cfg := &Config{
		DataDir:      "./chaincore-data",
		GenesisFile:  "genesis.json",
		ValidatorKey: hex.EncodeToString(key.Bytes()),
		Store:        Store{Backend: StoreBackendLevelDB, Path: "./chaincore-data/state"},
		Gas:          scheduleToConfig(evm.DefaultSchedule()),
		P2P: P2P{
			ListenAddress: "0.0.0.0:30303",
			UDPPort:       30303,
			TCPPort:       30303,
		},
	}
	if err := save(path, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func save(path string, cfg *Config) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("config: create %s: %w", path, err)
	}
	defer f.Close()
	if err := toml.NewEncoder(f).Encode(cfg); err != nil {
		return fmt.Errorf("config: encode %s: %w", path, err)
	}
	return nil
}

// applyDefaults fills in fields a hand-written config file left blank: an
// entirely empty Gas block falls back to evm.DefaultSchedule, an empty store
// backend to memory, and zero P2P ports to 30303.
func applyDefaults(cfg *Config) {
	if cfg.Gas == (GasSchedule{}) {
		cfg.Gas = scheduleToConfig(evm.DefaultSchedule())
	}
	if cfg.Store.Backend == "" {
		cfg.Store.Backend = StoreBackendMemory
	}
	if cfg.P2P.UDPPort == 0 {
		cfg.P2P.UDPPort = 30303
	}
	if cfg.P2P.TCPPort == 0 {
		cfg.P2P.TCPPort = 30303
	}
}

// Schedule converts the loaded GasSchedule into the evm package's runtime
// type.
func (c *Config) Schedule() *evm.Schedule {
	g := c.Gas
	s := &evm.Schedule{
		TierStepGas:     [8]uint64{g.TierStepGas0, g.TierStepGas1, g.TierStepGas2, g.TierStepGas3, g.TierStepGas4, g.TierStepGas5, g.TierStepGas6, g.TierStepGas7},
		MemoryGas:       g.MemoryGas,
		QuadCoeffDiv:    g.QuadCoeffDiv,
		SstoreSetGas:    g.SstoreSetGas,
		SstoreResetGas:  g.SstoreResetGas,
		SstoreRefundGas: g.SstoreRefundGas,
		EIP1283:         g.EIP1283,
	}
	if g.SubGasCapDivisor != 0 {
		cap := g.SubGasCapDivisor
		s.SubGasCapDivisor = &cap
	}
	return s
}

func scheduleToConfig(s *evm.Schedule) GasSchedule {
	g := GasSchedule{
		TierStepGas0:    s.TierStepGas[0],
		TierStepGas1:    s.TierStepGas[1],
		TierStepGas2:    s.TierStepGas[2],
		TierStepGas3:    s.TierStepGas[3],
		TierStepGas4:    s.TierStepGas[4],
		TierStepGas5:    s.TierStepGas[5],
		TierStepGas6:    s.TierStepGas[6],
		TierStepGas7:    s.TierStepGas[7],
		MemoryGas:       s.MemoryGas,
		QuadCoeffDiv:    s.QuadCoeffDiv,
		SstoreSetGas:    s.SstoreSetGas,
		SstoreResetGas:  s.SstoreResetGas,
		SstoreRefundGas: s.SstoreRefundGas,
		EIP1283:         s.EIP1283,
	}
	if s.SubGasCapDivisor != nil {
		g.SubGasCapDivisor = *s.SubGasCapDivisor
	}
	return g
}
