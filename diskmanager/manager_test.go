package diskmanager

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func openTemp(t *testing.T) *FileManager {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	fm, err := Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { fm.Close() })
	return fm
}

func TestWriteReadRoundTrip(t *testing.T) {
	fm := openTemp(t)

	id, err := fm.AllocatePage()
	require.NoError(t, err)

	buf := make([]byte, PageSize)
	copy(buf, "hello page")
	require.NoError(t, fm.WritePage(id, buf))

	out := make([]byte, PageSize)
	require.NoError(t, fm.ReadPage(id, out))
	require.Equal(t, buf, out)
}

func TestReadHoleReturnsZeroes(t *testing.T) {
	fm := openTemp(t)

	out := make([]byte, PageSize)
	for i := range out {
		out[i] = 0xff
	}
	require.NoError(t, fm.ReadPage(PageID(5), out))
	for _, b := range out {
		require.Equal(t, byte(0), b)
	}
}

func TestCorruptionDetected(t *testing.T) {
	fm := openTemp(t)

	id, err := fm.AllocatePage()
	require.NoError(t, err)

	buf := make([]byte, PageSize)
	copy(buf, "original contents")
	require.NoError(t, fm.WritePage(id, buf))

	// Flip a byte directly in the backing file, bypassing WritePage, to
	// simulate on-disk corruption.
	_, err = fm.file.WriteAt([]byte{0xAA}, int64(id)*stride+10)
	require.NoError(t, err)

	out := make([]byte, PageSize)
	err = fm.ReadPage(id, out)
	require.ErrorIs(t, err, ErrCorruptPage)
}

func TestAllocateDeallocateReusesID(t *testing.T) {
	fm := openTemp(t)

	id1, err := fm.AllocatePage()
	require.NoError(t, err)
	id2, err := fm.AllocatePage()
	require.NoError(t, err)
	require.NotEqual(t, id1, id2)

	require.NoError(t, fm.DeallocatePage(id1))

	id3, err := fm.AllocatePage()
	require.NoError(t, err)
	require.Equal(t, id1, id3)
}

func TestOperationsFailAfterClose(t *testing.T) {
	fm := openTemp(t)
	require.NoError(t, fm.Close())

	buf := make([]byte, PageSize)
	require.ErrorIs(t, fm.WritePage(0, buf), ErrClosed)
	_, err := fm.AllocatePage()
	require.ErrorIs(t, err, ErrClosed)
}

func TestShortBufferRejected(t *testing.T) {
	fm := openTemp(t)
	err := fm.WritePage(0, make([]byte, PageSize-1))
	require.ErrorIs(t, err, ErrShortBuffer)
}
