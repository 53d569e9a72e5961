// types.go - Sizes, offsets and constants of the on-disk page layout
package format

// Sizes and constants
const (
	DefaultPageSize = 16 * 1024 // 16384
	MinPageSize     = 4 * 1024
	MaxPageSize     = 64 * 1024

	FilHeaderSize  = 38
	FilTrailerSize = 8
	SectorSize     = 512

	// FSP header lives in the body of page 0, right after the FIL header.
	FSPHeaderOffset = FilHeaderSize
	FSPHeaderSize   = 112

	// Index (page) header = 36 bytes, FSEG header follows with 20 bytes
	IndexHeaderOffset = FilHeaderSize
	IndexHeaderSize   = 36
	FsegHeaderSize    = 20
)

// FIL header field offsets
const (
	OffChecksum  = 0  // checksum, or space id in very old formats
	OffPageNo    = 4  // page number within the tablespace
	OffPrev      = 8  // previous page at the same B-tree level
	OffNext      = 12 // next page at the same B-tree level
	OffLSN       = 16 // LSN of the newest modification
	OffPageType  = 24
	OffFlushLSN  = 26 // only meaningful on page 0 of the system tablespace
	OffSpaceID   = 34
	OffPageData  = 38
	OffTrailerCk = -8 // relative to page end: legacy checksum
	OffTrailerLS = -4 // relative to page end: low 32 bits of LSN
)

// FSP header field offsets, relative to FSPHeaderOffset
const (
	FSPSpaceID   = 0
	FSPNotUsed   = 4
	FSPSize      = 8
	FSPFreeLimit = 12
	FSPFlags     = 16
	FSPFragNUsed = 20
)

// INDEX page header field offsets, relative to IndexHeaderOffset
const (
	IdxNDirSlots = 0
	IdxHeapTop   = 2
	IdxNHeap     = 4
	IdxNRecs     = 16
	IdxMaxTrxID  = 18
	IdxLevel     = 26
	IdxIndexID   = 28
)

const (
	// FilNull marks an absent prev/next link.
	FilNull uint32 = 0xFFFFFFFF
	// NoChecksumMagic is stored by servers running with checksums disabled.
	NoChecksumMagic uint32 = 0xDEADBEEF
)

// PageSizes lists the page sizes a tablespace may use.
var PageSizes = []int{4096, 8192, 16384, 32768, 65536}

// ValidPageSize reports whether n is one of PageSizes.
func ValidPageSize(n int) bool {
	for _, s := range PageSizes {
		if s == n {
			return true
		}
	}
	return false
}

// TrailerOffset returns the start of the FIL trailer for a page size.
func TrailerOffset(pageSize int) int { return pageSize - FilTrailerSize }
