package observability

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"chaincore/evm"
	"chaincore/primitives"
	"chaincore/storage"
	"chaincore/trie"
)

type fakeExt struct{ schedule *evm.Schedule }

func (f *fakeExt) Schedule() *evm.Schedule { return f.schedule }
func (f *fakeExt) StorageAt(key primitives.Hash256) (primitives.Hash256, error) {
	return primitives.Hash256{}, nil
}
func (f *fakeExt) SetStorage(key, value primitives.Hash256) error { return nil }
func (f *fakeExt) AddSstoreRefund(gas uint64)                     {}
func (f *fakeExt) AlInsertStorageKey(address primitives.Address160, key primitives.Hash256) {}

func TestTracedCommitReturnsSameRootAsCommit(t *testing.T) {
	store := storage.NewMemDB()
	tr := trie.New(store)
	require.NoError(t, tr.TryUpdate([]byte("key"), []byte("value")))

	root, err := TracedCommit(context.Background(), tr)
	require.NoError(t, err)
	require.NotEqual(t, trie.EmptyRootHash(), root)

	plain := trie.New(storage.NewMemDB())
	require.NoError(t, plain.TryUpdate([]byte("key"), []byte("value")))
	want, err := plain.Commit()
	require.NoError(t, err)
	require.Equal(t, want, root)
}

func TestTracedExecReturnsSameResultAsExec(t *testing.T) {
	code := []byte{0x60, 0x01} // PUSH1 0x01
	in, err := evm.New(code, evm.ActionParams{Gas: 100_000})
	require.NoError(t, err)

	result, err := TracedExec(context.Background(), in, &fakeExt{schedule: evm.DefaultSchedule()})
	require.NoError(t, err)
	require.False(t, result.Returned)
	require.Greater(t, in.StepCount(), uint64(0))

	direct, err := evm.New(code, evm.ActionParams{Gas: 100_000})
	require.NoError(t, err)
	want, err := direct.Exec(&fakeExt{schedule: evm.DefaultSchedule()})
	require.NoError(t, err)
	require.Equal(t, want, result)
}
