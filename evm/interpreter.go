// Package evm implements the core's EVM interpreter: a gas-metered stack
// machine that executes a contract's code against an externally supplied
// storage environment (Ext).
package evm

import "chaincore/primitives"

// CallType distinguishes how a call frame was entered; it affects how
// CALLER/value semantics resolve upstream of this package and is carried
// through unchanged for the host's bookkeeping.
type CallType int

const (
	CallTypeNone CallType = iota
	CallTypeCall
	CallTypeCallCode
	CallTypeDelegateCall
	CallTypeStaticCall
)

// ActionValue is either a value genuinely transferred by this call, or an
// apparent value carried through from the caller (DELEGATECALL/CALLCODE,
// where no new transfer happens but CALLVALUE must still report the
// original amount).
type ActionValue struct {
	amount primitives.U256
}

// Transfer builds an ActionValue representing a real balance transfer.
func Transfer(amount primitives.U256) ActionValue { return ActionValue{amount: amount} }

// Apparent builds an ActionValue carried through without a new transfer.
func Apparent(amount primitives.U256) ActionValue { return ActionValue{amount: amount} }

// Value returns the value CALLVALUE reports, regardless of how it arose.
func (v ActionValue) Value() primitives.U256 { return v.amount }

// ActionParams is the caller-supplied context for one call frame's
// execution; it is consumed once at Interpreter construction and lives for
// that frame's lifetime.
type ActionParams struct {
	CodeAddress primitives.Address160
	CodeHash    primitives.Hash256
	Address     primitives.Address160
	Sender      primitives.Address160
	Origin      primitives.Address160
	Gas         uint64
	GasPrice    primitives.U256
	Value       ActionValue
	InputData   []byte
	CallType    CallType
}

// GasLeft is the outcome of a completed Exec call.
type GasLeft struct {
	// Remaining is the gas left unspent.
	Remaining uint64
	// Returned is true for a RETURN (ReturnData is meaningful and state
	// changes apply); false for a plain end-of-code completion (no return
	// data).
	Returned bool
	// ReturnData is the byte slice carved from memory by RETURN; nil for a
	// plain completion.
	ReturnData []byte
}

// codeReader walks code one instruction at a time, tracking the program
// counter and handing out immediate-data words for PUSH.
type codeReader struct {
	code     []byte
	position int
}

func (r *codeReader) len() int { return len(r.code) }

func (r *codeReader) done() bool { return r.position >= len(r.code) }

func (r *codeReader) setPC(pc int) { r.position = pc }

// nextOpcode reads the opcode at the current position and advances by one.
func (r *codeReader) nextOpcode() Opcode {
	op := Opcode(r.code[r.position])
	r.position++
	return op
}

// readWord reads n bytes of immediate data starting at the current
// position, zero-extending if code ends before n bytes are available, and
// advances the position by n regardless.
func (r *codeReader) readWord(n int) primitives.U256 {
	pos := r.position
	r.position += n
	end := pos + n
	if end > len(r.code) {
		end = len(r.code)
	}
	return primitives.U256FromBytes(r.code[pos:end])
}

// stepOutcome is the result of executing a single instruction.
type stepOutcome int

const (
	stepContinue stepOutcome = iota
	stepSuccess
	stepReturned
)

// Interpreter executes one call frame's code against an Ext.
type Interpreter struct {
	reader    codeReader
	stack     *Stack
	memory    *Memory
	gasMeter  *GasMeter
	params    ActionParams
	jumpCache *JumpCache

	returnOffset int
	returnLength int
	stepCount    uint64
}

// New constructs an Interpreter ready to execute code under params. Gas is
// taken from params.Gas.
func New(code []byte, params ActionParams) (*Interpreter, error) {
	if len(code) == 0 {
		return nil, ErrEmptyCode
	}
	return &Interpreter{
		reader:   codeReader{code: code},
		stack:    NewStack(),
		memory:   NewMemory(),
		gasMeter: NewGasMeter(params.Gas),
		params:   params,
	}, nil
}

// Exec runs the step loop to completion against ext, returning the
// terminal GasLeft or the first fatal error encountered.
func (in *Interpreter) Exec(ext Ext) (GasLeft, error) {
	for {
		outcome, err := in.step(ext)
		in.stepCount++
		if err != nil {
			return GasLeft{}, err
		}
		switch outcome {
		case stepSuccess:
			return GasLeft{Remaining: in.gasMeter.Remaining()}, nil
		case stepReturned:
			data := in.memory.IntoReturnData(in.returnOffset, in.returnLength)
			return GasLeft{Remaining: in.gasMeter.Remaining(), Returned: true, ReturnData: data}, nil
		}
	}
}

// StepCount returns the number of instructions executed so far by Exec,
// for callers that want to record it (e.g. as a metric) without the
// interpreter itself depending on any metrics library.
func (in *Interpreter) StepCount() uint64 { return in.stepCount }

// GasLimit returns the gas the call frame started with, so a caller can
// compute gas used against a GasLeft.Remaining from Exec.
func (in *Interpreter) GasLimit() uint64 { return in.params.Gas }

// MemoryAt returns a view of size bytes of working memory starting at
// offset, for callers (e.g. test-vector checks) that need to inspect state
// Exec left behind. It does not resize memory; offset+size must already be
// in bounds.
func (in *Interpreter) MemoryAt(offset, size int) []byte { return in.memory.ReadSlice(offset, size) }

// MemorySize returns the current length of working memory in bytes.
func (in *Interpreter) MemorySize() int { return in.memory.Size() }

func (in *Interpreter) step(ext Ext) (stepOutcome, error) {
	op := in.reader.nextOpcode()

	requirement, err := in.instructionRequirement(op, ext.Schedule())
	if err != nil {
		return 0, err
	}
	if err := in.gasMeter.Update(requirement); err != nil {
		return 0, err
	}
	if err := in.gasMeter.CheckLimit(); err != nil {
		return 0, err
	}
	if requirement.HasMem {
		in.memory.Expand(requirement.MemSize)
	}

	return in.execInstruction(op, ext)
}

// instructionRequirement computes the gas cost of op before it executes,
// consulting the stack (for operations whose memory footprint depends on
// stack-top operands) but never mutating it.
func (in *Interpreter) instructionRequirement(op Opcode, schedule *Schedule) (InstructionGasRequirement, error) {
	tier := func(idx int) uint64 { return schedule.TierStepGas[idx] }

	if _, ok := pushSize(op); ok {
		return DefaultGas(tier(2)), nil
	}
	if _, ok := isDup(op); ok {
		return DefaultGas(tier(2)), nil
	}
	if _, ok := isSwap(op); ok {
		return DefaultGas(tier(2)), nil
	}

	switch op {
	case OpPop:
		return DefaultGas(tier(1)), nil
	case OpMstore:
		offset, err := in.stack.Peek(0)
		if err != nil {
			return InstructionGasRequirement{}, err
		}
		needed, err := u256ToInt(offset)
		if err != nil {
			return InstructionGasRequirement{}, err
		}
		return in.memRequirement(schedule, tier(2), memNeeded(needed, 32))
	case OpMload:
		offset, err := in.stack.Peek(0)
		if err != nil {
			return InstructionGasRequirement{}, err
		}
		needed, err := u256ToInt(offset)
		if err != nil {
			return InstructionGasRequirement{}, err
		}
		return in.memRequirement(schedule, tier(2), memNeeded(needed, 32))
	case OpCallValue, OpCaller, OpCodeSize:
		return DefaultGas(tier(1)), nil
	case OpCodeCopy:
		destOffset, err := in.stack.Peek(0)
		if err != nil {
			return InstructionGasRequirement{}, err
		}
		length, err := in.stack.Peek(2)
		if err != nil {
			return InstructionGasRequirement{}, err
		}
		destInt, err := u256ToInt(destOffset)
		if err != nil {
			return InstructionGasRequirement{}, err
		}
		lenInt, err := u256ToInt(length)
		if err != nil {
			return InstructionGasRequirement{}, err
		}
		return in.memRequirement(schedule, tier(2), memNeeded(destInt, lenInt))
	case OpIszero, OpAdd, OpSub:
		return DefaultGas(tier(2)), nil
	case OpJump:
		return DefaultGas(tier(4)), nil
	case OpJumpi:
		return DefaultGas(tier(5)), nil
	case OpJumpdest:
		return DefaultGas(tier(1)), nil
	case OpSha3:
		offset, err := in.stack.Peek(0)
		if err != nil {
			return InstructionGasRequirement{}, err
		}
		length, err := in.stack.Peek(1)
		if err != nil {
			return InstructionGasRequirement{}, err
		}
		offsetInt, err := u256ToInt(offset)
		if err != nil {
			return InstructionGasRequirement{}, err
		}
		lenInt, err := u256ToInt(length)
		if err != nil {
			return InstructionGasRequirement{}, err
		}
		return in.memRequirement(schedule, tier(6), memNeeded(offsetInt, lenInt))
	case OpSstore:
		return DefaultGas(0), nil
	case OpReturn:
		return DefaultGas(tier(1)), nil
	default:
		return InstructionGasRequirement{}, ErrInvalidCommand
	}
}

func (in *Interpreter) memRequirement(schedule *Schedule, base uint64, memSize int) (InstructionGasRequirement, error) {
	cost, newSize, err := in.gasMeter.MemGasCost(schedule, memSize)
	if err != nil {
		return InstructionGasRequirement{}, err
	}
	return MemGas(base, cost, newSize), nil
}

// u256ToInt narrows a stack value to a machine int for use as a memory
// offset/length, rejecting values no real memory gas budget could ever
// afford rather than risking a silent wraparound.
func u256ToInt(v primitives.U256) (int, error) {
	if !v.FitsUint64() {
		return 0, ErrOffsetOverflow
	}
	u := v.Uint64()
	if u > 1<<32 {
		return 0, ErrOffsetOverflow
	}
	return int(u), nil
}

func (in *Interpreter) execInstruction(op Opcode, ext Ext) (stepOutcome, error) {
	if size, ok := pushSize(op); ok {
		word := in.reader.readWord(size)
		if err := in.stack.Push(word); err != nil {
			return 0, err
		}
		return in.endOfStep()
	}
	if depth, ok := isDup(op); ok {
		v, err := in.stack.Peek(depth - 1)
		if err != nil {
			return 0, err
		}
		if err := in.stack.Push(v); err != nil {
			return 0, err
		}
		return in.endOfStep()
	}
	if depth, ok := isSwap(op); ok {
		if err := in.stack.SwapWithTop(depth); err != nil {
			return 0, err
		}
		return in.endOfStep()
	}

	switch op {
	case OpPop:
		if _, err := in.stack.Pop(); err != nil {
			return 0, err
		}

	case OpMstore:
		offset, err := popInt(in.stack)
		if err != nil {
			return 0, err
		}
		value, err := in.stack.Pop()
		if err != nil {
			return 0, err
		}
		in.memory.Write(offset, value)

	case OpMload:
		offset, err := popInt(in.stack)
		if err != nil {
			return 0, err
		}
		if err := in.stack.Push(in.memory.Read(offset)); err != nil {
			return 0, err
		}

	case OpCallValue:
		if err := in.stack.Push(in.params.Value.Value()); err != nil {
			return 0, err
		}

	case OpCaller:
		if err := in.stack.Push(addressToU256(in.params.Sender)); err != nil {
			return 0, err
		}

	case OpCodeSize:
		if err := in.stack.Push(primitives.U256FromUint64(uint64(in.reader.len()))); err != nil {
			return 0, err
		}

	case OpCodeCopy:
		destOffset, err := popInt(in.stack)
		if err != nil {
			return 0, err
		}
		codeOffset, err := popInt(in.stack)
		if err != nil {
			return 0, err
		}
		length, err := popInt(in.stack)
		if err != nil {
			return 0, err
		}
		in.memory.WriteSlice(destOffset, sliceCodeZeroPadded(in.reader.code, codeOffset, length))

	case OpIszero:
		v, err := in.stack.Pop()
		if err != nil {
			return 0, err
		}
		if err := in.stack.Push(boolToU256(v.IsZero())); err != nil {
			return 0, err
		}

	case OpAdd:
		a, err := in.stack.Pop()
		if err != nil {
			return 0, err
		}
		b, err := in.stack.Pop()
		if err != nil {
			return 0, err
		}
		if err := in.stack.Push(a.Add(b)); err != nil {
			return 0, err
		}

	case OpSub:
		a, err := in.stack.Pop()
		if err != nil {
			return 0, err
		}
		b, err := in.stack.Pop()
		if err != nil {
			return 0, err
		}
		if err := in.stack.Push(a.Sub(b)); err != nil {
			return 0, err
		}

	case OpJump:
		dest, err := popInt(in.stack)
		if err != nil {
			return 0, err
		}
		if err := in.processJump(true, dest); err != nil {
			return 0, err
		}
		return in.afterJump()

	case OpJumpi:
		dest, err := popInt(in.stack)
		if err != nil {
			return 0, err
		}
		cond, err := in.stack.Pop()
		if err != nil {
			return 0, err
		}
		if err := in.processJump(!cond.IsZero(), dest); err != nil {
			return 0, err
		}
		return in.afterJump()

	case OpJumpdest:
		// no-op

	case OpSha3:
		offset, err := popInt(in.stack)
		if err != nil {
			return 0, err
		}
		size, err := popInt(in.stack)
		if err != nil {
			return 0, err
		}
		h := primitives.Keccak256(in.memory.ReadSlice(offset, size))
		if err := in.stack.Push(primitives.U256FromBytes(h[:])); err != nil {
			return 0, err
		}

	case OpSstore:
		if err := in.execSstore(ext); err != nil {
			return 0, err
		}

	case OpReturn:
		offset, err := popInt(in.stack)
		if err != nil {
			return 0, err
		}
		length, err := popInt(in.stack)
		if err != nil {
			return 0, err
		}
		in.returnOffset, in.returnLength = offset, length
		return stepReturned, nil

	default:
		return 0, ErrInvalidCommand
	}

	return in.endOfStep()
}

func (in *Interpreter) endOfStep() (stepOutcome, error) {
	if in.reader.done() {
		return stepSuccess, nil
	}
	return stepContinue, nil
}

// afterJump reports completion the same way any other instruction does:
// an untaken JUMPI as the last instruction of code ends with Success, while
// a taken jump lands on a JUMPDEST that still executes as a further step.
func (in *Interpreter) afterJump() (stepOutcome, error) {
	if in.reader.done() {
		return stepSuccess, nil
	}
	return stepContinue, nil
}

func (in *Interpreter) processJump(cond bool, dest int) error {
	if !cond {
		return nil
	}
	if in.jumpCache == nil {
		in.jumpCache = NewJumpCache(in.reader.code)
	}
	if err := in.jumpCache.ValidJumpDest(dest); err != nil {
		return err
	}
	in.reader.setPC(dest)
	return nil
}

func (in *Interpreter) execSstore(ext Ext) error {
	keyWord, err := in.stack.Pop()
	if err != nil {
		return err
	}
	value, err := in.stack.Pop()
	if err != nil {
		return err
	}
	key := primitives.Hash256(keyWord.Bytes32())

	schedule := ext.Schedule()
	if schedule.EIP1283 {
		return ErrNotImplemented
	}

	current, err := ext.StorageAt(key)
	if err != nil {
		return err
	}
	if !current.IsZero() && value.IsZero() {
		ext.AddSstoreRefund(schedule.SstoreRefundGas)
	}

	if err := ext.SetStorage(key, primitives.Hash256(value.Bytes32())); err != nil {
		return err
	}
	ext.AlInsertStorageKey(in.params.Address, key)
	return nil
}

func popInt(s *Stack) (int, error) {
	v, err := s.Pop()
	if err != nil {
		return 0, err
	}
	return u256ToInt(v)
}

func boolToU256(v bool) primitives.U256 {
	if v {
		return primitives.One()
	}
	return primitives.ZeroU256()
}

func addressToU256(addr primitives.Address160) primitives.U256 {
	return primitives.U256FromBytes(addr[:])
}

// sliceCodeZeroPadded returns code[offset:offset+length], zero-padding past
// the end of code the way CODECOPY's immediate-data semantics require.
func sliceCodeZeroPadded(code []byte, offset, length int) []byte {
	out := make([]byte, length)
	if offset >= len(code) {
		return out
	}
	end := offset + length
	if end > len(code) {
		end = len(code)
	}
	copy(out, code[offset:end])
	return out
}
