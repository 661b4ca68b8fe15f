package evm

import (
	"testing"

	"chaincore/primitives"

	"github.com/stretchr/testify/require"
)

// fakeExt is a minimal in-memory Ext for tests; it never returns an error.
type fakeExt struct {
	schedule *Schedule
	storage  map[primitives.Hash256]primitives.Hash256
	refund   uint64
	touched  []primitives.Hash256
}

func newFakeExt() *fakeExt {
	return &fakeExt{schedule: DefaultSchedule(), storage: make(map[primitives.Hash256]primitives.Hash256)}
}

func (f *fakeExt) Schedule() *Schedule { return f.schedule }

func (f *fakeExt) StorageAt(key primitives.Hash256) (primitives.Hash256, error) {
	return f.storage[key], nil
}

func (f *fakeExt) SetStorage(key, value primitives.Hash256) error {
	f.storage[key] = value
	return nil
}

func (f *fakeExt) AddSstoreRefund(gas uint64) { f.refund += gas }

func (f *fakeExt) AlInsertStorageKey(address primitives.Address160, key primitives.Hash256) {
	f.touched = append(f.touched, key)
}

func runCode(t *testing.T, code []byte, params ActionParams) (*Interpreter, GasLeft, error) {
	t.Helper()
	if params.Gas == 0 {
		params.Gas = 1_000_000
	}
	in, err := New(code, params)
	require.NoError(t, err)
	result, err := in.Exec(newFakeExt())
	return in, result, err
}

// TestPushCallValueMstore exercises scenario S5.
func TestPushCallValueMstore(t *testing.T) {
	code := []byte{0x60, 0x80, 0x60, 0x40, 0x52} // PUSH1 0x80; PUSH1 0x40; MSTORE
	in, result, err := runCode(t, code, ActionParams{Value: Transfer(primitives.ZeroU256())})
	require.NoError(t, err)
	require.False(t, result.Returned)

	word := in.memory.Read(0x40)
	var want [32]byte
	want[31] = 0x80
	require.Equal(t, want, word.Bytes32())
}

// TestInvalidJumpTarget exercises scenario S6.
func TestInvalidJumpTarget(t *testing.T) {
	code := []byte{0x60, 0x03, 0x56, 0x00} // PUSH1 3; JUMP; STOP(unreachable, unimplemented opcode)
	_, _, err := runCode(t, code, ActionParams{})
	require.ErrorIs(t, err, ErrInvalidJump)
}

// TestCodeCopyGrowthAndGas exercises scenario S7.
func TestCodeCopyGrowthAndGas(t *testing.T) {
	// PUSH1 0x40 (length); PUSH1 0x00 (code_offset); PUSH1 0x20 (dest_offset); CODECOPY
	code := []byte{
		0x60, 0x40,
		0x60, 0x00,
		0x60, 0x20,
		0x39,
	}
	in, result, err := runCode(t, code, ActionParams{})
	require.NoError(t, err)
	require.False(t, result.Returned)

	require.GreaterOrEqual(t, in.memory.Size(), 0x60)
	// CODECOPY zero-pads past the end of code, so code[0:0x40] reads as the
	// 7 code bytes followed by zeros.
	want := make([]byte, 0x40)
	copy(want, code)
	require.Equal(t, want, in.memory.ReadSlice(0x20, 0x40))

	schedule := DefaultSchedule()
	require.Equal(t, schedule.MemoryGas*3+9/schedule.QuadCoeffDiv, in.gasMeter.currentMemGas)
}

// TestGasMonotonicity exercises universal invariant 6.
func TestGasMonotonicity(t *testing.T) {
	code := []byte{0x60, 0x01, 0x60, 0x02, 0x01, 0x60, 0x03, 0x03} // PUSH1 1; PUSH1 2; ADD; PUSH1 3; SUB
	in, err := New(code, ActionParams{Gas: 1_000_000})
	require.NoError(t, err)
	ext := newFakeExt()

	prevUsed := uint64(0)
	for !in.reader.done() {
		_, err := in.step(ext)
		require.NoError(t, err)
		used := in.gasMeter.TotalGasUsed()
		require.GreaterOrEqual(t, used, prevUsed)
		require.LessOrEqual(t, used, in.gasMeter.GasLimit())
		prevUsed = used
	}
}

// TestJumpValidityInvariant exercises universal invariant 7: a successful
// jump always lands on a JUMPDEST.
func TestJumpValidityInvariant(t *testing.T) {
	// PUSH1 4; JUMP; (unreached) ; JUMPDEST
	code := []byte{0x60, 0x04, 0x56, 0x00, 0x5b}
	in, result, err := runCode(t, code, ActionParams{})
	require.NoError(t, err)
	require.False(t, result.Returned)
	require.Equal(t, OpJumpdest, Opcode(code[in.reader.position-1]))
}

// TestMemoryZeroOnGrowth exercises universal invariant 8.
func TestMemoryZeroOnGrowth(t *testing.T) {
	code := []byte{0x60, 0x20, 0x51} // PUSH1 0x20; MLOAD
	in, result, err := runCode(t, code, ActionParams{})
	require.NoError(t, err)
	require.False(t, result.Returned)

	top, err := in.stack.Peek(0)
	require.NoError(t, err)
	require.True(t, top.IsZero())
}

func TestCallerReportsSenderAddress(t *testing.T) {
	code := []byte{0x33} // CALLER
	sender := primitives.BytesToAddress160([]byte{1, 2, 3, 4, 5})
	in, _, err := runCode(t, code, ActionParams{Sender: sender})
	require.NoError(t, err)

	top, err := in.stack.Peek(0)
	require.NoError(t, err)
	require.Equal(t, addressToU256(sender).Bytes32(), top.Bytes32())
}

func TestSstoreRefundsOnClear(t *testing.T) {
	code := []byte{
		0x60, 0x00, // PUSH1 0 (value)
		0x60, 0x01, // PUSH1 1 (key)
		0x55, // SSTORE
	}
	ext := newFakeExt()
	key := primitives.BytesToHash256([]byte{1})
	ext.storage[key] = primitives.BytesToHash256([]byte{0xff})

	in, err := New(code, ActionParams{Gas: 1_000_000})
	require.NoError(t, err)
	_, err = in.Exec(ext)
	require.NoError(t, err)
	require.Equal(t, ext.schedule.SstoreRefundGas, ext.refund)
	require.True(t, ext.storage[key].IsZero())
}

func TestInvalidOpcodeReturnsInvalidCommand(t *testing.T) {
	code := []byte{0xfe} // not in the implemented table
	_, _, err := runCode(t, code, ActionParams{})
	require.ErrorIs(t, err, ErrInvalidCommand)
}

func TestStackOverflowAndUnderflow(t *testing.T) {
	s := NewStack()
	for i := 0; i < maxStackDepth; i++ {
		require.NoError(t, s.Push(primitives.ZeroU256()))
	}
	require.ErrorIs(t, s.Push(primitives.ZeroU256()), ErrStackOverflow)

	empty := NewStack()
	_, err := empty.Pop()
	require.ErrorIs(t, err, ErrStackUnderflow)
}
