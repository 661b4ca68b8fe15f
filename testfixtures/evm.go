package testfixtures

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math/big"
	"strings"

	"chaincore/evm"
	"chaincore/primitives"
)

// MemoryExpectation asserts that a 32-byte word at Offset equals the value
// encoded by EqualsU256Hex.
type MemoryExpectation struct {
	Offset        int    `json:"offset"`
	Size          int    `json:"size"`
	EqualsU256Hex string `json:"equalsU256Hex"`
}

// EVMCase is a named program plus the postconditions S5-S7 check for.
type EVMCase struct {
	Name                string              `json:"name"`
	Code                string              `json:"code"`
	GasLimit            uint64              `json:"gasLimit"`
	Value               string              `json:"value"`
	ExpectError         string              `json:"expectError,omitempty"`
	ExpectMemory        []MemoryExpectation `json:"expectMemory,omitempty"`
	ExpectMemoryGrowsTo int                 `json:"expectMemoryGrowsTo,omitempty"`
}

// LoadEVMCases decodes the built-in EVM test-vector file.
func LoadEVMCases() ([]EVMCase, error) {
	raw, err := fixturesFS.ReadFile("testdata/evm_cases.json")
	if err != nil {
		return nil, fmt.Errorf("testfixtures: read evm_cases.json: %w", err)
	}
	var cases []EVMCase
	if err := json.Unmarshal(raw, &cases); err != nil {
		return nil, fmt.Errorf("testfixtures: decode evm_cases.json: %w", err)
	}
	return cases, nil
}

// blankExt is a storage environment with no persistent state: every slot
// reads as zero and writes are discarded. The cases in evm_cases.json never
// touch storage, so this is sufficient to drive them.
type blankExt struct {
	schedule *evm.Schedule
}

func (blankExt) StorageAt(primitives.Hash256) (primitives.Hash256, error) {
	return primitives.Hash256{}, nil
}
func (blankExt) SetStorage(primitives.Hash256, primitives.Hash256) error { return nil }
func (blankExt) AddSstoreRefund(uint64)                                  {}
func (blankExt) AlInsertStorageKey(primitives.Address160, primitives.Hash256) {}
func (e blankExt) Schedule() *evm.Schedule                              { return e.schedule }

// Run executes c's code under a blank storage environment and checks every
// postcondition the case declares. It returns the first violated
// expectation as an error, or nil if c passed.
func (c EVMCase) Run() error {
	code, err := hex.DecodeString(c.Code)
	if err != nil {
		return fmt.Errorf("case %q: decode code: %w", c.Name, err)
	}
	value, ok := new(big.Int).SetString(strings.TrimSpace(c.Value), 10)
	if !ok {
		return fmt.Errorf("case %q: invalid decimal value %q", c.Name, c.Value)
	}

	params := evm.ActionParams{
		Gas:       c.GasLimit,
		Value:     evm.Transfer(primitives.U256FromBytes(value.Bytes())),
		InputData: nil,
		CallType:  evm.CallTypeCall,
	}
	in, err := evm.New(code, params)
	if err != nil {
		return fmt.Errorf("case %q: construct interpreter: %w", c.Name, err)
	}

	_, execErr := in.Exec(blankExt{schedule: evm.DefaultSchedule()})

	if c.ExpectError != "" {
		if execErr == nil {
			return fmt.Errorf("case %q: expected error containing %q, got none", c.Name, c.ExpectError)
		}
		if !strings.Contains(execErr.Error(), c.ExpectError) {
			return fmt.Errorf("case %q: expected error containing %q, got %q", c.Name, c.ExpectError, execErr.Error())
		}
		return nil
	}
	if execErr != nil {
		return fmt.Errorf("case %q: unexpected error: %w", c.Name, execErr)
	}

	for _, exp := range c.ExpectMemory {
		want, err := hex.DecodeString(exp.EqualsU256Hex)
		if err != nil {
			return fmt.Errorf("case %q: decode equalsU256Hex: %w", c.Name, err)
		}
		got := in.MemoryAt(exp.Offset, exp.Size)
		if hex.EncodeToString(got) != hex.EncodeToString(want) {
			return fmt.Errorf("case %q: memory[%d:%d] = %x, want %x", c.Name, exp.Offset, exp.Offset+exp.Size, got, want)
		}
	}
	if c.ExpectMemoryGrowsTo > 0 && in.MemorySize() < c.ExpectMemoryGrowsTo {
		return fmt.Errorf("case %q: memory size %d, want >= %d", c.Name, in.MemorySize(), c.ExpectMemoryGrowsTo)
	}

	return nil
}
