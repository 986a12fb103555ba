package btree

import (
	"fmt"
	"path/filepath"
	"sort"
	"testing"

	"pagekit/bufferpool"
	"pagekit/diskmanager"
	"pagekit/keys"
	"pagekit/txn"

	"github.com/stretchr/testify/require"
)

func newTestTree(t *testing.T, maxSize, poolCapacity int) *Tree {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.idx")
	disk, err := diskmanager.Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { disk.Close() })

	bp := bufferpool.New(poolCapacity, disk)
	tree, err := Open(bp, "test", keys.DecodeIntKey, maxSize, nil)
	require.NoError(t, err)
	return tree
}

func TestEmptyTree(t *testing.T) {
	tree := newTestTree(t, 4, 32)
	require.True(t, tree.IsEmpty())

	_, found, err := tree.Get(txn.None, keys.IntKey(1))
	require.NoError(t, err)
	require.False(t, found)

	it, err := tree.Begin()
	require.NoError(t, err)
	require.False(t, it.Valid())
	require.NoError(t, it.Close())
}

func TestInsertGetManyKeys(t *testing.T) {
	tree := newTestTree(t, 4, 64)

	n := 200
	for i := 0; i < n; i++ {
		ok, err := tree.Insert(txn.None, keys.IntKey(i), []byte(fmt.Sprintf("v%d", i)))
		require.NoError(t, err)
		require.True(t, ok)
	}

	for i := 0; i < n; i++ {
		val, found, err := tree.Get(txn.None, keys.IntKey(i))
		require.NoError(t, err)
		require.True(t, found, "key %d should be found", i)
		require.Equal(t, fmt.Sprintf("v%d", i), string(val))
	}

	_, found, err := tree.Get(txn.None, keys.IntKey(n+5))
	require.NoError(t, err)
	require.False(t, found)
}

func TestInsertDuplicateRejected(t *testing.T) {
	tree := newTestTree(t, 4, 32)

	ok, err := tree.Insert(txn.None, keys.IntKey(1), []byte("a"))
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = tree.Insert(txn.None, keys.IntKey(1), []byte("b"))
	require.NoError(t, err)
	require.False(t, ok)

	val, found, err := tree.Get(txn.None, keys.IntKey(1))
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, "a", string(val)) // original value preserved
}

func TestForwardIteratorOrdersAllKeys(t *testing.T) {
	tree := newTestTree(t, 4, 64)

	keysIn := []int64{5, 3, 8, 1, 9, 2, 7, 4, 6, 0}
	for _, k := range keysIn {
		_, err := tree.Insert(txn.None, keys.IntKey(k), []byte(fmt.Sprintf("v%d", k)))
		require.NoError(t, err)
	}

	it, err := tree.Begin()
	require.NoError(t, err)
	defer it.Close()

	var got []int64
	for it.Valid() {
		k, err := it.Key()
		require.NoError(t, err)
		got = append(got, int64(k.(keys.IntKey)))
		require.NoError(t, it.Next())
	}

	want := append([]int64(nil), keysIn...)
	sort.Slice(want, func(i, j int) bool { return want[i] < want[j] })
	require.Equal(t, want, got)
}

func TestBeginAtSeeksToLowerBound(t *testing.T) {
	tree := newTestTree(t, 4, 64)
	for _, k := range []int64{0, 2, 4, 6, 8, 10} {
		_, err := tree.Insert(txn.None, keys.IntKey(k), []byte("x"))
		require.NoError(t, err)
	}

	it, err := tree.BeginAt(keys.IntKey(5))
	require.NoError(t, err)
	defer it.Close()

	k, err := it.Key()
	require.NoError(t, err)
	require.Equal(t, keys.IntKey(6), k)
}

func TestDeleteMissingKeyIsNoop(t *testing.T) {
	tree := newTestTree(t, 4, 32)
	_, err := tree.Insert(txn.None, keys.IntKey(1), []byte("a"))
	require.NoError(t, err)

	require.NoError(t, tree.Remove(txn.None, keys.IntKey(99)))

	_, found, err := tree.Get(txn.None, keys.IntKey(1))
	require.NoError(t, err)
	require.True(t, found)
}

func TestDeleteAllKeysEmptiesTree(t *testing.T) {
	tree := newTestTree(t, 4, 64)

	n := 100
	for i := 0; i < n; i++ {
		_, err := tree.Insert(txn.None, keys.IntKey(i), []byte(fmt.Sprintf("v%d", i)))
		require.NoError(t, err)
	}

	for i := 0; i < n; i++ {
		require.NoError(t, tree.Remove(txn.None, keys.IntKey(i)))
	}

	require.True(t, tree.IsEmpty())

	it, err := tree.Begin()
	require.NoError(t, err)
	require.False(t, it.Valid())
}

// TestInsertDeleteInterleavedAgainstReference drives the tree through a
// deterministic insert/delete interleaving, forcing splits, merges, and
// redistribution, and checks every surviving key against a plain map.
func TestInsertDeleteInterleavedAgainstReference(t *testing.T) {
	tree := newTestTree(t, 4, 64)
	reference := make(map[int64]string)

	const n = 300
	for i := int64(0); i < n; i++ {
		val := fmt.Sprintf("v%d", i)
		ok, err := tree.Insert(txn.None, keys.IntKey(i), []byte(val))
		require.NoError(t, err)
		require.True(t, ok)
		reference[i] = val

		if i%3 == 0 && i >= 6 {
			victim := i - 6
			if _, live := reference[victim]; live {
				require.NoError(t, tree.Remove(txn.None, keys.IntKey(victim)))
				delete(reference, victim)
			}
		}
	}

	for k, want := range reference {
		got, found, err := tree.Get(txn.None, keys.IntKey(k))
		require.NoError(t, err)
		require.True(t, found, "key %d should survive", k)
		require.Equal(t, want, string(got))
	}

	it, err := tree.Begin()
	require.NoError(t, err)
	defer it.Close()

	var scanned []int64
	for it.Valid() {
		k, err := it.Key()
		require.NoError(t, err)
		scanned = append(scanned, int64(k.(keys.IntKey)))
		require.NoError(t, it.Next())
	}

	var wantKeys []int64
	for k := range reference {
		wantKeys = append(wantKeys, k)
	}
	sort.Slice(wantKeys, func(i, j int) bool { return wantKeys[i] < wantKeys[j] })
	require.Equal(t, wantKeys, scanned)
}

func TestReopenSeesPersistedData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "persist.idx")

	disk, err := diskmanager.Open(path)
	require.NoError(t, err)

	bp := bufferpool.New(16, disk)
	tree, err := Open(bp, "persist", keys.DecodeIntKey, 4, nil)
	require.NoError(t, err)

	for i := int64(0); i < 50; i++ {
		_, err := tree.Insert(txn.None, keys.IntKey(i), []byte(fmt.Sprintf("v%d", i)))
		require.NoError(t, err)
	}
	require.NoError(t, bp.FlushAllPages())
	require.NoError(t, disk.Close())

	disk2, err := diskmanager.Open(path)
	require.NoError(t, err)
	defer disk2.Close()

	bp2 := bufferpool.New(16, disk2)
	tree2, err := Open(bp2, "persist", keys.DecodeIntKey, 4, nil)
	require.NoError(t, err)
	require.False(t, tree2.IsEmpty())

	for i := int64(0); i < 50; i++ {
		val, found, err := tree2.Get(txn.None, keys.IntKey(i))
		require.NoError(t, err)
		require.True(t, found)
		require.Equal(t, fmt.Sprintf("v%d", i), string(val))
	}
}
