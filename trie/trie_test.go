package trie

import (
	"encoding/hex"
	"testing"

	"chaincore/storage"

	"github.com/stretchr/testify/require"
)

func TestSingleKeyRoundTripsAcrossReopen(t *testing.T) {
	db := storage.NewMemDB()
	tr := New(db)
	require.NoError(t, tr.TryUpdate([]byte("foo"), []byte("bar")))
	root, err := tr.Commit()
	require.NoError(t, err)

	reopened := Open(db, root)
	got, err := reopened.TryGet([]byte("foo"))
	require.NoError(t, err)
	require.Equal(t, []byte("bar"), got)
}

func TestBranchCreationOnPrefixDivergence(t *testing.T) {
	db := storage.NewMemDB()
	tr := New(db)
	require.NoError(t, tr.TryUpdate([]byte("foo"), []byte("bar")))
	require.NoError(t, tr.TryUpdate([]byte("fook"), []byte("barr")))

	got, err := tr.TryGet([]byte("foo"))
	require.NoError(t, err)
	require.Equal(t, []byte("bar"), got)

	got, err = tr.TryGet([]byte("fook"))
	require.NoError(t, err)
	require.Equal(t, []byte("barr"), got)

	root1, err := tr.Commit()
	require.NoError(t, err)
	root2, err := tr.Commit()
	require.NoError(t, err)
	require.Equal(t, root1, root2, "committing twice with no intervening mutation is stable")
}

func TestMultiKeyCommitProducesReferenceHash(t *testing.T) {
	tr := New(storage.NewMemDB())
	require.NoError(t, tr.TryUpdate([]byte("foo"), []byte("bar")))
	require.NoError(t, tr.TryUpdate([]byte("fook"), []byte("barr")))
	require.NoError(t, tr.TryUpdate([]byte("fooo"), []byte("bar")))
	require.NoError(t, tr.TryUpdate([]byte("foooks"), []byte("bar")))
	require.NoError(t, tr.TryUpdate([]byte("fooks"), []byte("bar")))
	require.NoError(t, tr.TryDelete([]byte("foooks")))
	require.NoError(t, tr.TryDelete([]byte("fooks")))

	root, err := tr.Commit()
	require.NoError(t, err)

	want, err := hex.DecodeString("655a7504da98aaca39f23885b2b232d4a495315d638738cd6ea084a926f3a307")
	require.NoError(t, err)
	require.Equal(t, want, root[:])
}

func TestDeletionWithFullNodeCollapse(t *testing.T) {
	tr := New(storage.NewMemDB())
	require.NoError(t, tr.TryUpdate([]byte("foo"), []byte("bar")))
	require.NoError(t, tr.TryUpdate([]byte("fook"), []byte("barr")))

	require.NoError(t, tr.TryDelete([]byte("fook")))

	got, err := tr.TryGet([]byte("fook"))
	require.NoError(t, err)
	require.Nil(t, got)

	got, err = tr.TryGet([]byte("foo"))
	require.NoError(t, err)
	require.Equal(t, []byte("bar"), got)
}

func TestDeleteAbsentKeyFails(t *testing.T) {
	tr := New(storage.NewMemDB())
	err := tr.TryDelete([]byte("missing"))
	require.ErrorIs(t, err, ErrKeyNotExists)
}

func TestEmptyKeyRejected(t *testing.T) {
	tr := New(storage.NewMemDB())
	require.ErrorIs(t, tr.TryUpdate(nil, []byte("x")), ErrKeyCannotBeEmpty)
	require.ErrorIs(t, tr.TryDelete(nil), ErrKeyCannotBeEmpty)
}

func TestPutEmptyValueActsAsDelete(t *testing.T) {
	tr := New(storage.NewMemDB())
	require.NoError(t, tr.TryUpdate([]byte("foo"), []byte("bar")))
	require.NoError(t, tr.TryUpdate([]byte("foo"), nil))

	got, err := tr.TryGet([]byte("foo"))
	require.NoError(t, err)
	require.Nil(t, got)
}

func TestEmptyTrieCommitsToEmptyRootHash(t *testing.T) {
	tr := New(storage.NewMemDB())
	root, err := tr.Commit()
	require.NoError(t, err)
	require.Equal(t, EmptyRootHash(), root)
}

// TestRoundTripInvariant exercises universal invariant 1: every inserted
// key is retrievable and untouched keys miss.
func TestRoundTripInvariant(t *testing.T) {
	tr := New(storage.NewMemDB())
	entries := map[string]string{
		"alpha": "1", "beta": "2", "alphabet": "3", "gamma": "4", "a": "5",
	}
	for k, v := range entries {
		require.NoError(t, tr.TryUpdate([]byte(k), []byte(v)))
	}
	for k, v := range entries {
		got, err := tr.TryGet([]byte(k))
		require.NoError(t, err)
		require.Equal(t, []byte(v), got)
	}
	miss, err := tr.TryGet([]byte("nope"))
	require.NoError(t, err)
	require.Nil(t, miss)
}

// TestIdempotence exercises universal invariant 2.
func TestIdempotence(t *testing.T) {
	db1, db2 := storage.NewMemDB(), storage.NewMemDB()
	tr1, tr2 := New(db1), New(db2)

	require.NoError(t, tr1.TryUpdate([]byte("k"), []byte("v")))
	root1, err := tr1.Commit()
	require.NoError(t, err)

	require.NoError(t, tr2.TryUpdate([]byte("k"), []byte("v")))
	require.NoError(t, tr2.TryUpdate([]byte("k"), []byte("v")))
	root2, err := tr2.Commit()
	require.NoError(t, err)

	require.Equal(t, root1, root2)
}

// TestDeletionInverse exercises universal invariant 3.
func TestDeletionInverse(t *testing.T) {
	baseline := New(storage.NewMemDB())
	require.NoError(t, baseline.TryUpdate([]byte("existing"), []byte("v")))
	baselineRoot, err := baseline.Commit()
	require.NoError(t, err)

	mutated := New(storage.NewMemDB())
	require.NoError(t, mutated.TryUpdate([]byte("existing"), []byte("v")))
	require.NoError(t, mutated.TryUpdate([]byte("temp"), []byte("gone")))
	require.NoError(t, mutated.TryDelete([]byte("temp")))
	mutatedRoot, err := mutated.Commit()
	require.NoError(t, err)

	require.Equal(t, baselineRoot, mutatedRoot)
}

// TestCommitDeterminism exercises universal invariant 4: intermediate
// commits don't perturb the final root for the same logical end state.
func TestCommitDeterminism(t *testing.T) {
	oneShot := New(storage.NewMemDB())
	require.NoError(t, oneShot.TryUpdate([]byte("a"), []byte("1")))
	require.NoError(t, oneShot.TryUpdate([]byte("b"), []byte("2")))
	rootOneShot, err := oneShot.Commit()
	require.NoError(t, err)

	staged := New(storage.NewMemDB())
	require.NoError(t, staged.TryUpdate([]byte("a"), []byte("1")))
	_, err = staged.Commit()
	require.NoError(t, err)
	require.NoError(t, staged.TryUpdate([]byte("b"), []byte("2")))
	rootStaged, err := staged.Commit()
	require.NoError(t, err)

	require.Equal(t, rootOneShot, rootStaged)
}

func TestCompactEncodeEdgeCases(t *testing.T) {
	require.Equal(t, []byte{0x00}, compactEncode(nil))
	require.Equal(t, []byte{0x20}, compactEncode([]byte{terminator}))
	require.Equal(t, []byte{0x11, 0x23, 0x45}, compactEncode([]byte{1, 2, 3, 4, 5}))
	require.Equal(t, []byte{0x00, 0x01, 0x23, 0x45}, compactEncode([]byte{0, 1, 2, 3, 4, 5}))
}

func TestCompactDecodeInverse(t *testing.T) {
	for _, nibbles := range [][]byte{
		nil,
		{terminator},
		{1, 2, 3, 4, 5},
		{0, 1, 2, 3, 4, 5},
		{1, 2, 3, 4, 5, terminator},
	} {
		encoded := compactEncode(nibbles)
		decoded, terminated := compactDecode(encoded)
		require.Equal(t, nibbles, decoded)
		require.Equal(t, hasTerminator(nibbles), terminated)
	}
}
