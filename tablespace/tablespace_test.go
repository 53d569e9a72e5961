package tablespace

import (
	"os"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ringo380/idb-utils-sub001/checksum"
	"github.com/ringo380/idb-utils-sub001/format"
	"github.com/ringo380/idb-utils-sub001/internal/testutil"
	"github.com/ringo380/idb-utils-sub001/page"
)

func fixture(t *testing.T, pageSize int, n uint32) string {
	t.Helper()
	pages := [][]byte{testutil.Page0(pageSize, 21, n, 0, checksum.CRC32C)}
	for i := uint32(1); i < n; i++ {
		pages = append(pages, testutil.IndexPage(pageSize, i, 21, 500, 0, uint64(2000+i)))
	}
	return testutil.WriteTablespace(t, t.TempDir(), "t1.ibd", pages...)
}

func TestOpenDerivesGeometry(t *testing.T) {
	for _, size := range format.PageSizes {
		path := fixture(t, size, 4)
		ts, err := Open(path, Options{})
		require.NoError(t, err, "size %d", size)
		assert.Equal(t, size, ts.PageSize())
		assert.Equal(t, uint32(4), ts.PageCount())
		assert.Equal(t, uint32(21), ts.SpaceID())
		assert.Equal(t, format.VendorMySQL, ts.Vendor().Vendor)
		assert.Zero(t, ts.PartialBytes())
		require.NoError(t, ts.Close())
	}
}

func TestReadPage(t *testing.T) {
	path := fixture(t, format.DefaultPageSize, 3)
	ts, err := Open(path, Options{})
	require.NoError(t, err)
	defer ts.Close()

	p, err := ts.ReadPage(2)
	require.NoError(t, err)
	assert.Equal(t, uint32(2), page.PageNumber(p))

	_, err = ts.ReadPage(3)
	assert.True(t, errors.Is(err, ErrPageOutOfRange))
}

func TestWritePageTouchesOnePage(t *testing.T) {
	const size = format.DefaultPageSize
	path := fixture(t, size, 3)
	before0 := testutil.ReadPage(t, path, size, 0)
	before2 := testutil.ReadPage(t, path, size, 2)

	ts, err := Open(path, Options{Writable: true})
	require.NoError(t, err)
	p, err := ts.ReadPage(1)
	require.NoError(t, err)
	require.NoError(t, page.SetChecksum(p, 0xDEADDEAD))
	require.NoError(t, ts.WritePage(1, p))
	require.NoError(t, ts.Sync())
	require.NoError(t, ts.Close())

	assert.Equal(t, before0, testutil.ReadPage(t, path, size, 0))
	assert.Equal(t, before2, testutil.ReadPage(t, path, size, 2))
	assert.Equal(t, uint32(0xDEADDEAD), page.StoredChecksum(testutil.ReadPage(t, path, size, 1)))
}

func TestWritePageRejectsWrongLength(t *testing.T) {
	path := fixture(t, format.DefaultPageSize, 2)
	ts, err := Open(path, Options{Writable: true})
	require.NoError(t, err)
	defer ts.Close()
	err = ts.WritePage(1, make([]byte, 8192))
	assert.True(t, errors.Is(err, page.ErrPageSize))
}

func TestPageSizeOverride(t *testing.T) {
	path := fixture(t, 4096, 8)
	ts, err := Open(path, Options{PageSize: 8192})
	require.NoError(t, err)
	defer ts.Close()
	assert.Equal(t, 8192, ts.PageSize())
	assert.Equal(t, uint32(4), ts.PageCount())

	_, err = Open(path, Options{PageSize: 1000})
	assert.True(t, errors.Is(err, ErrInvalidPageSize))
}

func TestVendorOverride(t *testing.T) {
	path := fixture(t, format.DefaultPageSize, 2)
	v := format.VendorInfo{Vendor: format.VendorPercona}
	ts, err := Open(path, Options{Vendor: &v})
	require.NoError(t, err)
	defer ts.Close()
	assert.Equal(t, format.VendorPercona, ts.Vendor().Vendor)
}

func TestPartialTail(t *testing.T) {
	path := fixture(t, format.DefaultPageSize, 2)
	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0)
	require.NoError(t, err)
	_, err = f.Write(make([]byte, 100))
	require.NoError(t, err)
	require.NoError(t, f.Close())

	ts, err := Open(path, Options{})
	require.NoError(t, err)
	defer ts.Close()
	assert.Equal(t, uint32(2), ts.PageCount())
	assert.Equal(t, int64(100), ts.PartialBytes())
}

func TestTooSmall(t *testing.T) {
	path := testutil.WriteTablespace(t, t.TempDir(), "tiny.ibd", make([]byte, 10))
	_, err := Open(path, Options{})
	assert.True(t, errors.Is(err, ErrTooSmall))
}

func TestWriterAndReadAll(t *testing.T) {
	const size = 4096
	path := t.TempDir() + "/out.ibd"
	w, err := Create(path, size)
	require.NoError(t, err)
	require.NoError(t, w.Append(testutil.Page0(size, 3, 3, 0, checksum.CRC32C)))
	require.NoError(t, w.Append(testutil.IndexPage(size, 1, 3, 9, 0, 10)))
	require.NoError(t, w.Append(testutil.IndexPage(size, 2, 3, 9, 0, 11)))
	assert.Error(t, w.Append(make([]byte, 100)))
	assert.Equal(t, uint32(3), w.Written())
	require.NoError(t, w.Close())

	ts, err := Open(path, Options{})
	require.NoError(t, err)
	defer ts.Close()
	var seen []uint32
	require.NoError(t, ts.ReadAll(func(n uint32, buf []byte) error {
		assert.Equal(t, n, page.PageNumber(buf))
		seen = append(seen, n)
		return nil
	}))
	assert.Equal(t, []uint32{0, 1, 2}, seen)
}

func TestDetectAlgorithm(t *testing.T) {
	const size = format.DefaultPageSize
	dir := t.TempDir()
	empty := make([]byte, size)
	legacy := testutil.Seal(testutil.NewPage(size, testutil.PageSpec{PageNo: 1, Type: format.PageTypeIndex, LSN: 8, Fill: 1}), checksum.InnoDB)

	// page 0 is zero-filled, so detection falls through to page 1
	path := testutil.WriteTablespace(t, dir, "legacy.ibd", empty, legacy)
	ts, err := Open(path, Options{})
	require.NoError(t, err)
	a, ok := ts.DetectAlgorithm()
	require.NoError(t, ts.Close())
	assert.True(t, ok)
	assert.Equal(t, checksum.InnoDB, a)

	path = testutil.WriteTablespace(t, dir, "blank.ibd", empty, empty)
	ts, err = Open(path, Options{})
	require.NoError(t, err)
	defer ts.Close()
	_, ok = ts.DetectAlgorithm()
	assert.False(t, ok)
}
