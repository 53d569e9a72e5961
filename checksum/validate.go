package checksum

import (
	"github.com/ringo380/idb-utils-sub001/format"
	"github.com/ringo380/idb-utils-sub001/page"
)

// Result is the outcome of validating one page. Algorithm names the
// algorithm Calculated was computed with. When Valid is false no algorithm
// matched and Calculated is only the CRC-32C baseline used for diagnostics.
type Result struct {
	Algorithm  Algorithm `json:"algorithm"`
	Valid      bool      `json:"valid"`
	Stored     uint32    `json:"stored"`
	Calculated uint32    `json:"calculated"`
}

// Confirmed returns the algorithm that matched the stored value, if any.
func (r Result) Confirmed() (Algorithm, bool) {
	if !r.Valid {
		return None, false
	}
	return r.Algorithm, true
}

// StoredAt returns the stored checksum for a given algorithm's slot.
func StoredAt(p []byte, a Algorithm) uint32 {
	if a == FullCRC32 {
		v, _ := format.Be32(p, len(p)-4)
		return v
	}
	return page.StoredChecksum(p)
}

// Compute returns the value algorithm a would store for p. None yields the
// no-checksum marker.
func Compute(p []byte, a Algorithm) uint32 {
	switch a {
	case CRC32C:
		return SumCRC32C(p)
	case InnoDB:
		return InnoDBFold(p)
	case FullCRC32:
		return SumFullCRC32(p)
	default:
		return format.NoChecksumMagic
	}
}

// Validate checks p in auto mode:
//
//   - a stored 0xDEADBEEF is always valid (checksums disabled);
//   - an all-zero page is always valid;
//   - with a MariaDB full_crc32 hint only that algorithm is tried;
//   - otherwise CRC-32C, then the legacy fold.
//
// A nil hint disables full_crc32 detection.
func Validate(p []byte, pageSize int, hint *format.VendorInfo) (Result, error) {
	if err := page.CheckSize(p, pageSize); err != nil {
		return Result{}, err
	}
	front := page.StoredChecksum(p)
	if front == format.NoChecksumMagic ||
		(hint.IsFullCRC32() && StoredAt(p, FullCRC32) == format.NoChecksumMagic) {
		return Result{Algorithm: None, Valid: true, Stored: format.NoChecksumMagic, Calculated: format.NoChecksumMagic}, nil
	}
	if page.IsAllZero(p) {
		return Result{Algorithm: None, Valid: true}, nil
	}
	if hint.IsFullCRC32() {
		return check(p, FullCRC32), nil
	}
	if r := check(p, CRC32C); r.Valid {
		return r, nil
	}
	if r := check(p, InnoDB); r.Valid {
		return r, nil
	}
	return Result{Algorithm: CRC32C, Valid: false, Stored: front, Calculated: SumCRC32C(p)}, nil
}

// ValidateWith checks p under a single forced algorithm. Auto falls back to
// Validate with no vendor hint.
func ValidateWith(p []byte, pageSize int, a Algorithm) (Result, error) {
	if a == Auto {
		return Validate(p, pageSize, nil)
	}
	if err := page.CheckSize(p, pageSize); err != nil {
		return Result{}, err
	}
	if StoredAt(p, a) == format.NoChecksumMagic {
		return Result{Algorithm: None, Valid: true, Stored: format.NoChecksumMagic, Calculated: format.NoChecksumMagic}, nil
	}
	if page.IsAllZero(p) {
		return Result{Algorithm: None, Valid: true}, nil
	}
	return check(p, a), nil
}

func check(p []byte, a Algorithm) Result {
	stored := StoredAt(p, a)
	calc := Compute(p, a)
	return Result{Algorithm: a, Valid: stored == calc, Stored: stored, Calculated: calc}
}

// LSNResult describes the trailer LSN mirror of a page.
type LSNResult struct {
	Valid   bool   `json:"valid"`
	Header  uint32 `json:"header_low32"`
	Trailer uint32 `json:"trailer"`
	FullLSN uint64 `json:"lsn"`
}

// lsnMirrorOffset is where the low 32 bits of the LSN are mirrored. The
// full_crc32 layout keeps its checksum in the last word and moves the
// mirror one word earlier.
func lsnMirrorOffset(pageSize int, a Algorithm) int {
	if a == FullCRC32 {
		return pageSize - 8
	}
	return pageSize - 4
}

// ValidateLSN compares the header LSN with its trailer mirror.
func ValidateLSN(p []byte, pageSize int, a Algorithm) (LSNResult, error) {
	if err := page.CheckSize(p, pageSize); err != nil {
		return LSNResult{}, err
	}
	lsn := page.LSN(p)
	trailer, _ := format.Be32(p, lsnMirrorOffset(pageSize, a))
	return LSNResult{Valid: uint32(lsn) == trailer, Header: uint32(lsn), Trailer: trailer, FullLSN: lsn}, nil
}

// Detect returns the algorithm a valid page was written with. ok is false
// for pages that carry no evidence: empty pages and pages no algorithm
// validates.
func Detect(p []byte, pageSize int, hint *format.VendorInfo) (Algorithm, bool) {
	if len(p) != pageSize || page.IsAllZero(p) {
		return Auto, false
	}
	if hint.IsFullCRC32() {
		return FullCRC32, true
	}
	r, err := Validate(p, pageSize, hint)
	if err != nil || !r.Valid {
		return Auto, false
	}
	return r.Algorithm, true
}
