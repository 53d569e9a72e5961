package checksum

import (
	"github.com/pkg/errors"

	"github.com/ringo380/idb-utils-sub001/format"
	"github.com/ringo380/idb-utils-sub001/page"
)

// Resolve turns Auto into a concrete algorithm. full_crc32 tablespaces
// always use full_crc32; everything else defaults to CRC-32C.
func Resolve(a Algorithm, hint *format.VendorInfo) Algorithm {
	if a != Auto {
		return a
	}
	if hint.IsFullCRC32() {
		return FullCRC32
	}
	return CRC32C
}

// FixLSNMirror rewrites the trailer mirror from the header LSN. It reports
// whether anything changed.
func FixLSNMirror(p []byte, pageSize int, a Algorithm) (bool, error) {
	r, err := ValidateLSN(p, pageSize, a)
	if err != nil {
		return false, err
	}
	if r.Valid {
		return false, nil
	}
	if err := format.PutBe32(p, lsnMirrorOffset(pageSize, a), r.Header); err != nil {
		return false, err
	}
	return true, nil
}

// Recalculate computes the checksum for a and stores it: the front word for
// the two-range algorithms (plus the legacy trailer slot), the last word for
// full_crc32. The full_crc32 value covers the LSN mirror, so callers fixing
// both must fix the mirror first; Repair does.
func Recalculate(p []byte, pageSize int, a Algorithm) (uint32, error) {
	if err := page.CheckSize(p, pageSize); err != nil {
		return 0, err
	}
	var v uint32
	switch a {
	case CRC32C:
		v = SumCRC32C(p)
		_ = page.SetChecksum(p, v)
		_ = page.SetTrailerChecksum(p, v)
	case InnoDB:
		v = InnoDBFold(p)
		_ = page.SetChecksum(p, v)
		// the old-style trailer value covers the new checksum field
		_ = page.SetTrailerChecksum(p, InnoDBOldFold(p))
	case FullCRC32:
		v = SumFullCRC32(p)
		_ = format.PutBe32(p, pageSize-4, v)
	case None:
		v = format.NoChecksumMagic
		_ = page.SetChecksum(p, v)
		_ = page.SetTrailerChecksum(p, v)
	default:
		return 0, errors.Errorf("cannot recalculate with algorithm %s", a)
	}
	return v, nil
}

// Outcome reports what Repair changed on a page.
type Outcome struct {
	Algorithm   Algorithm `json:"algorithm"`
	OldChecksum uint32    `json:"old_checksum"`
	NewChecksum uint32    `json:"new_checksum"`
	LSNFixed    bool      `json:"lsn_fixed"`
}

// Repair fixes the LSN mirror and then recomputes the checksum under a.
// Both corrections are applied unconditionally; compare the outcome to see
// what changed.
func Repair(p []byte, pageSize int, a Algorithm) (Outcome, error) {
	if a == Auto {
		return Outcome{}, errors.New("repair needs a concrete algorithm")
	}
	old := StoredAt(p, a)
	fixed, err := FixLSNMirror(p, pageSize, a)
	if err != nil {
		return Outcome{}, err
	}
	v, err := Recalculate(p, pageSize, a)
	if err != nil {
		return Outcome{}, err
	}
	return Outcome{Algorithm: a, OldChecksum: old, NewChecksum: v, LSNFixed: fixed}, nil
}

// Healthy reports whether p validates under a and its LSN mirror matches.
func Healthy(p []byte, pageSize int, a Algorithm, hint *format.VendorInfo) (bool, error) {
	var r Result
	var err error
	if a == Auto {
		r, err = Validate(p, pageSize, hint)
	} else {
		r, err = ValidateWith(p, pageSize, a)
	}
	if err != nil {
		return false, err
	}
	l, err := ValidateLSN(p, pageSize, Resolve(a, hint))
	if err != nil {
		return false, err
	}
	return r.Valid && l.Valid, nil
}
