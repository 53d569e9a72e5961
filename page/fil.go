// fil.go - FIL header and trailer parsing and patching
package page

import (
	"github.com/pkg/errors"

	"github.com/ringo380/idb-utils-sub001/format"
)

var (
	// ErrShortPage is returned when a buffer cannot hold the region being parsed.
	ErrShortPage = errors.New("short page")
	// ErrPageSize is returned when a buffer is not exactly one page long.
	ErrPageSize = errors.New("page length does not match page size")
)

type FilHeader struct {
	Checksum   uint32
	PageNumber uint32
	Prev       *uint32
	Next       *uint32
	LastModLSN uint64
	PageType   format.PageType
	FlushLSN   uint64
	SpaceID    uint32
}

func ParseFilHeader(p []byte) (FilHeader, error) {
	if len(p) < format.FilHeaderSize {
		return FilHeader{}, errors.Wrapf(ErrShortPage, "FIL header needs %d bytes, have %d", format.FilHeaderSize, len(p))
	}
	chk, _ := format.Be32(p, format.OffChecksum)
	pg, _ := format.Be32(p, format.OffPageNo)
	prev, _ := format.Be32(p, format.OffPrev)
	next, _ := format.Be32(p, format.OffNext)
	lsn, _ := format.Be64(p, format.OffLSN)
	pt, _ := format.Be16(p, format.OffPageType)
	flush, _ := format.Be64(p, format.OffFlushLSN)
	space, _ := format.Be32(p, format.OffSpaceID)
	var prevPtr, nextPtr *uint32
	if prev != format.FilNull {
		prevPtr = &prev
	}
	if next != format.FilNull {
		nextPtr = &next
	}
	return FilHeader{
		Checksum: chk, PageNumber: pg, Prev: prevPtr, Next: nextPtr,
		LastModLSN: lsn, PageType: format.PageType(pt), FlushLSN: flush, SpaceID: space,
	}, nil
}

// LinkOrNull flattens an optional link back to its on-disk form.
func LinkOrNull(p *uint32) uint32 {
	if p == nil {
		return format.FilNull
	}
	return *p
}

type FilTrailer struct {
	Checksum uint32
	Low32LSN uint32
}

// ParseFilTrailer reads the last 8 bytes of p.
func ParseFilTrailer(p []byte) (FilTrailer, error) {
	if len(p) < format.FilHeaderSize+format.FilTrailerSize {
		return FilTrailer{}, errors.Wrapf(ErrShortPage, "FIL trailer needs %d bytes, have %d",
			format.FilHeaderSize+format.FilTrailerSize, len(p))
	}
	off := len(p) - format.FilTrailerSize
	chk, _ := format.Be32(p, off+0)
	lsn, _ := format.Be32(p, off+4)
	return FilTrailer{Checksum: chk, Low32LSN: lsn}, nil
}

// Field accessors used on hot paths where a full parse is wasteful.

func PageNumber(p []byte) uint32 {
	v, _ := format.Be32(p, format.OffPageNo)
	return v
}
func LSN(p []byte) uint64 {
	v, _ := format.Be64(p, format.OffLSN)
	return v
}
func SpaceID(p []byte) uint32 {
	v, _ := format.Be32(p, format.OffSpaceID)
	return v
}
func StoredChecksum(p []byte) uint32 {
	v, _ := format.Be32(p, format.OffChecksum)
	return v
}
func Type(p []byte) format.PageType {
	v, _ := format.Be16(p, format.OffPageType)
	return format.PageType(v)
}

// Patch primitives. Each writes one field in place.

func SetChecksum(p []byte, v uint32) error   { return format.PutBe32(p, format.OffChecksum, v) }
func SetPageNumber(p []byte, v uint32) error { return format.PutBe32(p, format.OffPageNo, v) }
func SetPrev(p []byte, v uint32) error       { return format.PutBe32(p, format.OffPrev, v) }
func SetNext(p []byte, v uint32) error       { return format.PutBe32(p, format.OffNext, v) }
func SetLSN(p []byte, v uint64) error        { return format.PutBe64(p, format.OffLSN, v) }
func SetFlushLSN(p []byte, v uint64) error   { return format.PutBe64(p, format.OffFlushLSN, v) }
func SetSpaceID(p []byte, v uint32) error    { return format.PutBe32(p, format.OffSpaceID, v) }
func SetPageType(p []byte, t format.PageType) error {
	return format.PutBe16(p, format.OffPageType, uint16(t))
}

// SetTrailerChecksum writes the legacy checksum slot of the trailer.
func SetTrailerChecksum(p []byte, v uint32) error {
	return format.PutBe32(p, len(p)-format.FilTrailerSize, v)
}

// SetTrailerLSN writes the low 32 bits of lsn into the trailer mirror.
func SetTrailerLSN(p []byte, lsn uint64) error {
	return format.PutBe32(p, len(p)-4, uint32(lsn))
}

// IsAllZero reports whether every byte of p is zero.
func IsAllZero(p []byte) bool {
	for _, b := range p {
		if b != 0 {
			return false
		}
	}
	return true
}
