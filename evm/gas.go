package evm

import "chaincore/primitives"

// wordSize is the EVM word width in bytes; memory is metered in whole words.
const wordSize = 32

// Schedule holds the per-fork gas constants the interpreter charges against.
// It is supplied by the host (Ext.Schedule), not hard-coded into the
// interpreter, so different forks can plug in different tables.
type Schedule struct {
	// TierStepGas is indexed by an instruction's gas tier (0-7), the
	// Yellow Paper's Gzero..Gspecial classification for simple ALU ops.
	TierStepGas [8]uint64
	// MemoryGas is Gmemory, the linear coefficient of the memory-expansion
	// cost formula.
	MemoryGas uint64
	// QuadCoeffDiv is the divisor of the quadratic term (512 on mainnet).
	QuadCoeffDiv uint64
	// SubGasCapDivisor is EIP-150's "all but 1/64th" forwarding cap divisor,
	// nil before EIP-150 activates.
	SubGasCapDivisor *uint64
	// SstoreSetGas is the cost of an SSTORE writing a zero slot to non-zero.
	// This interpreter's SSTORE gas requirement does not include it.
	SstoreSetGas uint64
	// SstoreResetGas is the cost of an SSTORE writing a non-zero slot to a
	// different value (zero or non-zero). This interpreter's SSTORE gas
	// requirement does not include it.
	SstoreResetGas uint64
	// SstoreRefundGas is credited when SSTORE clears a non-zero slot to
	// zero.
	SstoreRefundGas uint64
	// EIP1283 selects the net-gas-metering SSTORE cost schedule. Computing
	// that schedule needs the slot's original (pre-transaction) value in
	// addition to its current value, which Ext does not yet expose here;
	// SSTORE reports ErrNotImplemented whenever this is set.
	EIP1283 bool
}

// DefaultSchedule returns the Homestead-era constant-SSTORE-cost schedule,
// the one schedule this interpreter fully implements.
func DefaultSchedule() *Schedule {
	cap := uint64(64)
	return &Schedule{
		TierStepGas:      [8]uint64{0, 2, 3, 5, 8, 10, 20, 0},
		MemoryGas:        3,
		QuadCoeffDiv:     512,
		SubGasCapDivisor: &cap,
		SstoreSetGas:     20000,
		SstoreResetGas:   5000,
		SstoreRefundGas:  15000,
	}
}

// InstructionGasRequirement is what an opcode costs before it executes: a
// flat tier cost, plus optionally the incremental cost of expanding memory
// to mem_size bytes.
type InstructionGasRequirement struct {
	Gas     uint64
	MemGas  uint64
	MemSize int
	HasMem  bool
}

// DefaultGas builds a flat, memory-independent requirement.
func DefaultGas(gas uint64) InstructionGasRequirement {
	return InstructionGasRequirement{Gas: gas}
}

// MemGas builds a requirement that also expands memory to memSize bytes.
func MemGas(gas, memGas uint64, memSize int) InstructionGasRequirement {
	return InstructionGasRequirement{Gas: gas, MemGas: memGas, MemSize: memSize, HasMem: true}
}

// GasMeter tracks gas spent against a fixed limit, splitting the
// memory-expansion portion out so it can be charged incrementally against a
// high-water mark rather than per access.
type GasMeter struct {
	gasLimit      uint64
	currentGas    uint64
	currentMemGas uint64
	// currentMemSize is the word-rounded byte size memory has already been
	// charged up to; MemGasCost only charges the delta past this mark.
	currentMemSize int
}

// NewGasMeter returns a meter with nothing spent yet.
func NewGasMeter(gasLimit uint64) *GasMeter {
	return &GasMeter{gasLimit: gasLimit}
}

// GasLimit returns the meter's starting allowance.
func (m *GasMeter) GasLimit() uint64 { return m.gasLimit }

// TotalGasUsed is the sum of flat and memory gas spent so far.
func (m *GasMeter) TotalGasUsed() uint64 { return m.currentGas + m.currentMemGas }

// Remaining is the gas still available to spend.
func (m *GasMeter) Remaining() uint64 {
	used := m.TotalGasUsed()
	if used >= m.gasLimit {
		return 0
	}
	return m.gasLimit - used
}

// VerifyGas reports ErrOutOfGas if cost exceeds what remains.
func (m *GasMeter) VerifyGas(cost uint64) error {
	if cost > m.Remaining() {
		return ErrOutOfGas
	}
	return nil
}

// CheckLimit reports ErrOutOfGas if total gas spent so far has exceeded the
// meter's limit. Called after Update, since Update itself only guards
// against uint64 overflow, not against the limit.
func (m *GasMeter) CheckLimit() error {
	if m.TotalGasUsed() > m.gasLimit {
		return ErrOutOfGas
	}
	return nil
}

// toWordSize rounds a byte count up to the nearest whole word.
func toWordSize(bytes int) int {
	return (bytes + wordSize - 1) / wordSize
}

// memNeeded returns the byte offset one past the last byte a read/write of
// size bytes starting at offset touches — the size memory must be expanded
// to in order to satisfy that access.
func memNeeded(offset, size int) int {
	if size == 0 {
		return 0
	}
	return offset + size
}

// MemGasCost computes the incremental cost (per spec: Gmemory*w + w^2/quad)
// of expanding memory to cover requiredSize bytes, charging only the delta
// above the meter's current high-water mark. It returns the cost, the new
// (word-rounded) high-water mark, and updates neither — callers apply the
// result via Update once the instruction is confirmed affordable.
func (m *GasMeter) MemGasCost(schedule *Schedule, requiredSize int) (cost uint64, newMemSize int, err error) {
	reqWords := toWordSize(requiredSize)
	reqSizeRounded := reqWords * wordSize
	if reqSizeRounded <= m.currentMemSize {
		return 0, m.currentMemSize, nil
	}
	newMemGas, err := gasForMem(schedule, uint64(reqWords))
	if err != nil {
		return 0, 0, err
	}
	if newMemGas < m.currentMemGas {
		// Cannot happen for a monotonically growing high-water mark, but
		// guards against underflow if it ever did.
		return 0, reqSizeRounded, nil
	}
	return newMemGas - m.currentMemGas, reqSizeRounded, nil
}

func gasForMem(schedule *Schedule, words uint64) (uint64, error) {
	a, overflow := mulOverflows(words, schedule.MemoryGas)
	if overflow {
		return 0, ErrOutOfGas
	}
	b := words * words / schedule.QuadCoeffDiv
	sum, overflow := addOverflows(a, b)
	if overflow {
		return 0, ErrOutOfGas
	}
	return sum, nil
}

func mulOverflows(a, b uint64) (uint64, bool) {
	if a == 0 || b == 0 {
		return 0, false
	}
	r := a * b
	return r, r/a != b
}

func addOverflows(a, b uint64) (uint64, bool) {
	r := a + b
	return r, r < a
}

// Update commits an InstructionGasRequirement, advancing currentGas and (if
// present) currentMemGas/currentMemSize.
func (m *GasMeter) Update(req InstructionGasRequirement) error {
	newGas, overflow := addOverflows(m.currentGas, req.Gas)
	if overflow {
		return ErrOutOfGas
	}
	m.currentGas = newGas
	if req.HasMem {
		newMemGas, overflow := addOverflows(m.currentMemGas, req.MemGas)
		if overflow {
			return ErrOutOfGas
		}
		m.currentMemGas = newMemGas
		if req.MemSize > m.currentMemSize {
			m.currentMemSize = req.MemSize
		}
	}
	return nil
}

// GasCallOrCreate computes how much gas to forward to a CALL/CREATE,
// deducting needed for the operation itself and applying EIP-150's
// all-but-one-64th cap when the schedule enables it. A caller-requested
// amount narrower than the cap is honored as-is; a request that doesn't fit
// in 64 bits is treated as "no explicit request" rather than failing, since
// EIP-150 never lets an over-generous request cause an out-of-gas.
func (m *GasMeter) GasCallOrCreate(schedule *Schedule, needed uint64, requested *primitives.U256) (uint64, error) {
	var requestedU64 *uint64
	if requested != nil && requested.FitsUint64() {
		v := requested.Uint64()
		requestedU64 = &v
	}

	if schedule.SubGasCapDivisor != nil && m.Remaining() >= needed {
		gasRemaining := m.Remaining() - needed
		divisor := *schedule.SubGasCapDivisor
		var maxGasProvided uint64
		if divisor == 64 {
			maxGasProvided = gasRemaining - (gasRemaining >> 6)
		} else {
			maxGasProvided = gasRemaining - gasRemaining/divisor
		}
		if requestedU64 != nil && *requestedU64 < maxGasProvided {
			return *requestedU64, nil
		}
		return maxGasProvided, nil
	}

	if requestedU64 != nil {
		return *requestedU64, nil
	}
	if m.Remaining() >= needed {
		return m.Remaining() - needed, nil
	}
	return 0, nil
}
