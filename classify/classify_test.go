package classify

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ringo380/idb-utils-sub001/checksum"
	"github.com/ringo380/idb-utils-sub001/format"
	"github.com/ringo380/idb-utils-sub001/internal/testutil"
	"github.com/ringo380/idb-utils-sub001/page"
)

const size = format.DefaultPageSize

func dense() []byte {
	return testutil.DensePage(size, testutil.PageSpec{PageNo: 7, SpaceID: 3, Type: format.PageTypeIndex, LSN: 0x5000, Fill: 0x5A})
}

func TestZeroFill(t *testing.T) {
	p := testutil.NewPage(size, testutil.PageSpec{PageNo: 1, Type: format.PageTypeIndex, LSN: 9})
	_ = page.SetChecksum(p, 0x12345678)
	assert.Equal(t, ZeroFill, Classify(p, size, checksum.CRC32C))
}

func TestTornWrite(t *testing.T) {
	for _, fill := range []byte{0x00, 0xFF} {
		p := dense()
		for i := 8192; i < size; i++ {
			p[i] = fill
		}
		assert.Equal(t, TornWrite, Classify(p, size, checksum.CRC32C), "fill %#x", fill)
	}
}

func TestTornWriteNeedsDataBeforeBoundary(t *testing.T) {
	// Only a handful of non-zero header bytes before the first sector: the
	// zero-fill rule catches it first, and without it nothing matches torn.
	p := make([]byte, size)
	for i := 0; i < 5; i++ {
		p[i+4] = 1
	}
	assert.False(t, tornWrite(p))
}

func TestBitrotBoundary(t *testing.T) {
	for _, n := range []int{1, 4, 8} {
		p := dense()
		stored := page.StoredChecksum(p)
		mask := uint32(1)<<n - 1
		_ = page.SetChecksum(p, stored^mask)
		assert.Equal(t, Bitrot, Classify(p, size, checksum.CRC32C), "%d bits", n)
	}
}

func TestHeaderOnlyBeyondBitrotDistance(t *testing.T) {
	p := dense()
	stored := page.StoredChecksum(p)
	_ = page.SetChecksum(p, stored^0x1FF) // 9 bits
	assert.Equal(t, HeaderOnly, Classify(p, size, checksum.CRC32C))

	// a zero LSN never counts as self-consistent
	q := testutil.DensePage(size, testutil.PageSpec{PageNo: 7, Type: format.PageTypeIndex, LSN: 0, Fill: 0x5A})
	_ = page.SetChecksum(q, page.StoredChecksum(q)^0xFFFF)
	assert.NotEqual(t, HeaderOnly, Classify(q, size, checksum.CRC32C))
}

func TestRandomNoise(t *testing.T) {
	p := testutil.RandomPage(size)
	_ = page.SetChecksum(p, ^checksum.SumCRC32C(p))
	assert.Greater(t, Entropy(p[format.FilHeaderSize:size-format.FilTrailerSize]), RandomNoiseEntropy)
	assert.Equal(t, RandomNoise, Classify(p, size, checksum.CRC32C))
}

func TestConstantByteNeverNoise(t *testing.T) {
	p := make([]byte, size)
	for i := range p {
		p[i] = 0xAB
	}
	assert.Equal(t, 0.0, Entropy(p))
	assert.NotEqual(t, RandomNoise, Classify(p, size, checksum.CRC32C))
}

func TestUndersizedIsUnknown(t *testing.T) {
	assert.Equal(t, Unknown, Classify(make([]byte, 20), size, checksum.CRC32C))
	assert.Equal(t, Unknown, Classify(make([]byte, 4096), size, checksum.CRC32C))
}

func TestPatternNames(t *testing.T) {
	for _, p := range []Pattern{Unknown, ZeroFill, TornWrite, Bitrot, HeaderOnly, RandomNoise} {
		assert.NotEmpty(t, p.String())
		assert.NotEmpty(t, Describe(p))
	}
}

func TestFullCRC32UsesTrailerWord(t *testing.T) {
	p := testutil.Seal(dense(), checksum.FullCRC32)
	stored := checksum.StoredAt(p, checksum.FullCRC32)

	_ = format.PutBe32(p, size-4, stored^0x1)
	assert.Equal(t, Bitrot, Classify(p, size, checksum.FullCRC32))

	_ = format.PutBe32(p, size-4, stored^0x1FF)
	assert.Equal(t, HeaderOnly, Classify(p, size, checksum.FullCRC32))
}
