package btree

import (
	"errors"
	"testing"

	"pagekit/bufferpool"
	"pagekit/diskmanager"
	"pagekit/keys"
	"pagekit/txn"

	"github.com/stretchr/testify/require"
)

// corruptingDisk is a minimal in-memory diskmanager.Manager whose ReadPage
// returns diskmanager.ErrCorruptPage for one chosen page id, so tests can
// verify that error survives the trip up through bufferpool and btree
// instead of being collapsed into a generic pool-exhaustion sentinel.
type corruptingDisk struct {
	pages   map[diskmanager.PageID][]byte
	next    diskmanager.PageID
	corrupt diskmanager.PageID
}

func newCorruptingDisk() *corruptingDisk {
	// Page 0 is the header page, so allocation starts after it, as in
	// diskmanager.FileManager.
	return &corruptingDisk{pages: map[diskmanager.PageID][]byte{}, next: diskmanager.HeaderPageID + 1, corrupt: diskmanager.InvalidPageID}
}

func (d *corruptingDisk) ReadPage(id diskmanager.PageID, buf []byte) error {
	if id == d.corrupt {
		return diskmanager.ErrCorruptPage
	}
	if data, ok := d.pages[id]; ok {
		copy(buf, data)
		return nil
	}
	for i := range buf {
		buf[i] = 0
	}
	return nil
}

func (d *corruptingDisk) WritePage(id diskmanager.PageID, buf []byte) error {
	data := make([]byte, len(buf))
	copy(data, buf)
	d.pages[id] = data
	return nil
}

func (d *corruptingDisk) AllocatePage() (diskmanager.PageID, error) {
	id := d.next
	d.next++
	return id, nil
}

func (d *corruptingDisk) DeallocatePage(id diskmanager.PageID) error {
	delete(d.pages, id)
	return nil
}

func (d *corruptingDisk) Sync() error  { return nil }
func (d *corruptingDisk) Close() error { return nil }

// TestCorruptPageErrorPropagatesThroughTree verifies that a checksum failure
// surfaces as diskmanager.ErrCorruptPage (via errors.Is) through the tree's
// public API, rather than being overwritten by a generic btree sentinel. A
// single-frame pool forces the root leaf to be evicted (and the header page
// to take its place) as soon as a second page is touched, so the next fetch
// of the root is a genuine disk re-read rather than a pool hit.
func TestCorruptPageErrorPropagatesThroughTree(t *testing.T) {
	disk := newCorruptingDisk()
	bp := bufferpool.New(1, disk)

	tree, err := Open(bp, "test", keys.DecodeIntKey, 4, nil)
	require.NoError(t, err)

	_, err = tree.Insert(txn.None, keys.IntKey(1), []byte("a"))
	require.NoError(t, err)
	require.False(t, tree.IsEmpty())

	disk.corrupt = tree.root

	_, _, err = tree.Get(txn.None, keys.IntKey(1))
	require.Error(t, err)
	require.True(t, errors.Is(err, diskmanager.ErrCorruptPage))
	require.False(t, errors.Is(err, ErrPoolExhausted))
}
