package checksum_test

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ringo380/idb-utils-sub001/checksum"
	"github.com/ringo380/idb-utils-sub001/format"
	"github.com/ringo380/idb-utils-sub001/internal/testutil"
	"github.com/ringo380/idb-utils-sub001/page"
)

var fullCRC32 = &format.VendorInfo{Vendor: format.VendorMariaDB, MariaDBFormat: format.MariaDBFullCRC32}

func patterned(size int) []byte {
	p := make([]byte, size)
	for i := range p {
		p[i] = byte(i*31 + 7)
	}
	return p
}

func TestKnownValues(t *testing.T) {
	cases := []struct {
		size            int
		crc, fold, full uint32
		oldFold         uint32
	}{
		{16384, 0xe412b49b, 0x88ba7c4c, 0xedf9dec3, 0x01482603},
		{4096, 0x7f949bbd, 0xb02eb44c, 0xfd138994, 0x01482603},
	}
	for _, c := range cases {
		p := patterned(c.size)
		assert.Equal(t, c.crc, checksum.SumCRC32C(p), "crc32c size=%d", c.size)
		assert.Equal(t, c.fold, checksum.InnoDBFold(p), "fold size=%d", c.size)
		assert.Equal(t, c.full, checksum.SumFullCRC32(p), "full_crc32 size=%d", c.size)
		assert.Equal(t, c.oldFold, checksum.InnoDBOldFold(p), "old fold size=%d", c.size)
	}
}

func TestRoundTrip(t *testing.T) {
	for _, size := range format.PageSizes {
		for _, algo := range []checksum.Algorithm{checksum.CRC32C, checksum.InnoDB, checksum.FullCRC32} {
			p := testutil.NewPage(size, testutil.PageSpec{PageNo: 5, SpaceID: 9, Type: format.PageTypeIndex, LSN: 0x1122334455, Fill: 3})
			_, err := checksum.Repair(p, size, algo)
			require.NoError(t, err)

			r, err := checksum.ValidateWith(p, size, algo)
			require.NoError(t, err)
			assert.True(t, r.Valid, "size=%d algo=%s", size, algo)
			assert.Equal(t, algo, r.Algorithm)

			lsn, err := checksum.ValidateLSN(p, size, algo)
			require.NoError(t, err)
			assert.True(t, lsn.Valid)
		}
	}
}

func TestAutoValidation(t *testing.T) {
	const size = format.DefaultPageSize
	p := testutil.NewPage(size, testutil.PageSpec{PageNo: 3, Type: format.PageTypeIndex, LSN: 42, Fill: 9})

	testutil.Seal(p, checksum.CRC32C)
	r, err := checksum.Validate(p, size, nil)
	require.NoError(t, err)
	assert.True(t, r.Valid)
	assert.Equal(t, checksum.CRC32C, r.Algorithm)

	testutil.Seal(p, checksum.InnoDB)
	r, err = checksum.Validate(p, size, nil)
	require.NoError(t, err)
	assert.True(t, r.Valid)
	assert.Equal(t, checksum.InnoDB, r.Algorithm)

	// full_crc32 is only tried with a MariaDB hint
	testutil.Seal(p, checksum.FullCRC32)
	r, err = checksum.Validate(p, size, fullCRC32)
	require.NoError(t, err)
	assert.True(t, r.Valid)
	assert.Equal(t, checksum.FullCRC32, r.Algorithm)
}

func TestFoldDiffersFromCRC(t *testing.T) {
	p := testutil.NewPage(format.DefaultPageSize, testutil.PageSpec{PageNo: 1, Type: format.PageTypeIndex, LSN: 7, Fill: 1})
	assert.NotEqual(t, checksum.SumCRC32C(p), checksum.InnoDBFold(p))
}

func TestFoldTailLengths(t *testing.T) {
	// Each remainder length takes its own path through the tail table and
	// must still fold every byte.
	seen := map[uint32]bool{}
	for n := 0; n <= 16; n++ {
		p := make([]byte, format.FilHeaderSize+n+format.FilTrailerSize)
		for i := range p {
			p[i] = byte(i)
		}
		v := checksum.InnoDBFold(p)
		assert.False(t, seen[v], "length %d collided", n)
		seen[v] = true
	}
}

func TestEmptyAndNoChecksumAlwaysValid(t *testing.T) {
	hints := []*format.VendorInfo{nil, {Vendor: format.VendorMySQL}, {Vendor: format.VendorPercona}, {Vendor: format.VendorMariaDB, MariaDBFormat: format.MariaDBOriginal}, fullCRC32}
	algos := []checksum.Algorithm{checksum.CRC32C, checksum.InnoDB, checksum.FullCRC32, checksum.None}
	for _, size := range format.PageSizes {
		zero := make([]byte, size)
		for _, h := range hints {
			r, err := checksum.Validate(zero, size, h)
			require.NoError(t, err)
			assert.True(t, r.Valid)

			magic := testutil.NewPage(size, testutil.PageSpec{PageNo: 2, Type: format.PageTypeIndex, LSN: 5, Fill: 4})
			binary.BigEndian.PutUint32(magic[0:], format.NoChecksumMagic)
			binary.BigEndian.PutUint32(magic[size-4:], format.NoChecksumMagic)
			r, err = checksum.Validate(magic, size, h)
			require.NoError(t, err)
			assert.True(t, r.Valid)
			assert.Equal(t, checksum.None, r.Algorithm)
		}
		for _, a := range algos {
			r, err := checksum.ValidateWith(zero, size, a)
			require.NoError(t, err)
			assert.True(t, r.Valid, "zero page under %s", a)

			magic := testutil.NewPage(size, testutil.PageSpec{PageNo: 2, Type: format.PageTypeIndex, LSN: 5, Fill: 4})
			binary.BigEndian.PutUint32(magic[0:], format.NoChecksumMagic)
			binary.BigEndian.PutUint32(magic[size-4:], format.NoChecksumMagic)
			r, err = checksum.ValidateWith(magic, size, a)
			require.NoError(t, err)
			assert.True(t, r.Valid, "0xDEADBEEF under %s", a)
		}
	}
}

func TestInvalidReportsCRCBaseline(t *testing.T) {
	const size = format.DefaultPageSize
	p := testutil.ValidPage(size, testutil.PageSpec{PageNo: 2, Type: format.PageTypeIndex, LSN: 77, Fill: 2})
	require.NoError(t, page.SetChecksum(p, 0xDEADDEAD))

	r, err := checksum.Validate(p, size, nil)
	require.NoError(t, err)
	assert.False(t, r.Valid)
	assert.Equal(t, uint32(0xDEADDEAD), r.Stored)
	assert.Equal(t, checksum.SumCRC32C(p), r.Calculated)
	_, ok := r.Confirmed()
	assert.False(t, ok)
}

func TestLengthMismatchIsError(t *testing.T) {
	_, err := checksum.Validate(make([]byte, 100), format.DefaultPageSize, nil)
	assert.ErrorIs(t, err, page.ErrPageSize)
	_, err = checksum.Recalculate(make([]byte, 8192), format.DefaultPageSize, checksum.CRC32C)
	assert.ErrorIs(t, err, page.ErrPageSize)
}

func TestRepairFixesBothIndependently(t *testing.T) {
	const size = format.DefaultPageSize
	p := testutil.ValidPage(size, testutil.PageSpec{PageNo: 4, Type: format.PageTypeIndex, LSN: 0xABCDEF01, Fill: 6})
	binary.BigEndian.PutUint32(p[size-4:], 0)

	ok, err := checksum.Healthy(p, size, checksum.CRC32C, nil)
	require.NoError(t, err)
	assert.False(t, ok, "bad LSN mirror alone must make the page unhealthy")

	out, err := checksum.Repair(p, size, checksum.CRC32C)
	require.NoError(t, err)
	assert.True(t, out.LSNFixed)
	assert.Equal(t, out.OldChecksum, out.NewChecksum, "checksum range excludes the trailer")

	ok, err = checksum.Healthy(p, size, checksum.CRC32C, nil)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestFullCRC32MirrorLayout(t *testing.T) {
	const size = format.DefaultPageSize
	p := testutil.NewPage(size, testutil.PageSpec{PageNo: 4, Type: format.PageTypeIndex, LSN: 0x0102030405, Fill: 6})
	_, err := checksum.Repair(p, size, checksum.FullCRC32)
	require.NoError(t, err)
	assert.Equal(t, uint32(0x02030405), binary.BigEndian.Uint32(p[size-8:]))
	assert.Equal(t, checksum.SumFullCRC32(p), binary.BigEndian.Uint32(p[size-4:]))
}

func TestDetect(t *testing.T) {
	const size = format.DefaultPageSize
	p := testutil.NewPage(size, testutil.PageSpec{Type: format.PageTypeFspHdr, LSN: 3})
	testutil.Seal(p, checksum.InnoDB)
	a, ok := checksum.Detect(p, size, nil)
	assert.True(t, ok)
	assert.Equal(t, checksum.InnoDB, a)

	_, ok = checksum.Detect(make([]byte, size), size, nil)
	assert.False(t, ok)

	a, ok = checksum.Detect(p, size, fullCRC32)
	assert.True(t, ok)
	assert.Equal(t, checksum.FullCRC32, a)
}

func TestParseAlgorithm(t *testing.T) {
	for in, want := range map[string]checksum.Algorithm{
		"auto": checksum.Auto, "crc32": checksum.CRC32C, "innodb": checksum.InnoDB,
		"full_crc32": checksum.FullCRC32, "none": checksum.None,
	} {
		got, err := checksum.ParseAlgorithm(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := checksum.ParseAlgorithm("md5")
	assert.Error(t, err)
}
