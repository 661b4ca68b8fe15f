package config

import "fmt"

// Validate checks a loaded Config for internally-consistent values,
// the same fail-fast-on-startup role the teacher's ValidateConfig played
// for its governance parameters.
func Validate(cfg *Config) error {
	if cfg.DataDir == "" {
		return fmt.Errorf("config: data_dir must not be empty")
	}
	if cfg.GenesisFile == "" {
		return fmt.Errorf("config: genesis_file must not be empty")
	}

	switch cfg.Store.Backend {
	case StoreBackendMemory, StoreBackendLevelDB:
	default:
		return fmt.Errorf("config: store.backend %q is not one of %q, %q", cfg.Store.Backend, StoreBackendMemory, StoreBackendLevelDB)
	}
	if cfg.Store.Backend == StoreBackendLevelDB && cfg.Store.Path == "" {
		return fmt.Errorf("config: store.path must not be empty for the leveldb backend")
	}

	if err := validateGasSchedule(cfg.Gas); err != nil {
		return err
	}

	if cfg.P2P.UDPPort == 0 {
		return fmt.Errorf("config: p2p.udp_port must not be zero")
	}
	if cfg.P2P.TCPPort == 0 {
		return fmt.Errorf("config: p2p.tcp_port must not be zero")
	}

	return nil
}

func validateGasSchedule(g GasSchedule) error {
	if g.MemoryGas == 0 {
		return fmt.Errorf("config: gas.memory_gas must not be zero")
	}
	if g.QuadCoeffDiv == 0 {
		return fmt.Errorf("config: gas.quad_coeff_div must not be zero")
	}
	if g.SstoreSetGas == 0 || g.SstoreResetGas == 0 {
		return fmt.Errorf("config: gas.sstore_set_gas and gas.sstore_reset_gas must not be zero")
	}
	return nil
}
