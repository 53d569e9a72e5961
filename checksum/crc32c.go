package checksum

import (
	"hash/crc32"

	"github.com/ringo380/idb-utils-sub001/format"
)

var castagnoli = crc32.MakeTable(crc32.Castagnoli)

// Ranges covered by the two-range algorithms: everything except the checksum
// field, the flush LSN / space id region and the trailer.
const (
	rangeAStart = format.OffPageNo
	rangeAEnd   = format.OffFlushLSN
	rangeBStart = format.OffPageData
)

// SumCRC32C is the MySQL 5.7+ page checksum: two independent CRC-32C values
// over [4,26) and [38, len-8), combined by XOR.
func SumCRC32C(p []byte) uint32 {
	end := len(p) - format.FilTrailerSize
	c1 := crc32.Checksum(p[rangeAStart:rangeAEnd], castagnoli)
	c2 := crc32.Checksum(p[rangeBStart:end], castagnoli)
	return c1 ^ c2
}

// SumFullCRC32 is MariaDB's full_crc32 checksum: one CRC-32C over the whole
// page except the last 4 bytes, where it is stored.
func SumFullCRC32(p []byte) uint32 {
	return crc32.Checksum(p[:len(p)-4], castagnoli)
}
