// Package classify labels pages whose checksum is already known to be bad
// with the most likely cause of the damage.
package classify

import (
	"math"
	"math/bits"

	"github.com/ringo380/idb-utils-sub001/checksum"
	"github.com/ringo380/idb-utils-sub001/format"
)

type Pattern uint8

const (
	Unknown Pattern = iota
	ZeroFill
	TornWrite
	Bitrot
	HeaderOnly
	RandomNoise
)

func (p Pattern) String() string {
	switch p {
	case ZeroFill:
		return "zero-fill"
	case TornWrite:
		return "torn-write"
	case Bitrot:
		return "bitrot"
	case HeaderOnly:
		return "header-only"
	case RandomNoise:
		return "random-noise"
	default:
		return "unknown"
	}
}

func (p Pattern) MarshalText() ([]byte, error) { return []byte(p.String()), nil }

// Describe returns a one-line explanation suitable for reports.
func Describe(p Pattern) string {
	switch p {
	case ZeroFill:
		return "page body is almost entirely zero; the page was likely never written or was zeroed"
	case TornWrite:
		return "page ends in a run of identical sector-aligned bytes; a write was interrupted part way"
	case Bitrot:
		return "stored and computed checksums differ in a few bits; isolated media bit flips"
	case HeaderOnly:
		return "checksum field is wrong but the body and trailer agree; only the header was damaged"
	case RandomNoise:
		return "page body has near-maximal entropy; overwritten with unrelated or encrypted data"
	default:
		return "no known corruption signature"
	}
}

// Thresholds. They were chosen empirically; keep the values for
// compatibility with existing reports.
var (
	ZeroFillRatio      = 0.90
	TornPrefixNonZero  = 10
	BitrotMaxDistance  = 8
	RandomNoiseEntropy = 7.5
)

// Classify assigns one pattern to a page with a confirmed-invalid checksum.
// The first matching rule wins. a selects the trailer layout: full_crc32
// pages are compared on their last word, everything else (Auto included)
// on the front word against CRC-32C.
func Classify(p []byte, pageSize int, a checksum.Algorithm) Pattern {
	if len(p) != pageSize || len(p) < format.FilHeaderSize+format.FilTrailerSize {
		return Unknown
	}
	body := p[format.FilHeaderSize : len(p)-format.FilTrailerSize]

	if zeroRatio(body) > ZeroFillRatio {
		return ZeroFill
	}
	if tornWrite(p) {
		return TornWrite
	}
	sum := checksum.CRC32C
	if a == checksum.FullCRC32 {
		sum = checksum.FullCRC32
	}
	stored := checksum.StoredAt(p, sum)
	calc := checksum.Compute(p, sum)
	if bits.OnesCount32(stored^calc) <= BitrotMaxDistance {
		return Bitrot
	}
	if stored != calc {
		lsn, err := checksum.ValidateLSN(p, pageSize, a)
		if err == nil && lsn.Valid && lsn.FullLSN > 0 {
			return HeaderOnly
		}
	}
	if Entropy(body) > RandomNoiseEntropy {
		return RandomNoise
	}
	return Unknown
}

func zeroRatio(b []byte) float64 {
	if len(b) == 0 {
		return 0
	}
	zeros := 0
	for _, c := range b {
		if c == 0 {
			zeros++
		}
	}
	return float64(zeros) / float64(len(b))
}

// tornWrite looks for a sector boundary after which the page is uniformly
// 0x00 or 0xFF while the part before it still carries data.
func tornWrite(p []byte) bool {
	for b := format.SectorSize; b < len(p); b += format.SectorSize {
		tail := p[b:]
		fill := tail[0]
		if fill != 0x00 && fill != 0xFF {
			continue
		}
		if !uniform(tail, fill) {
			continue
		}
		if nonZero(p[:b]) > TornPrefixNonZero {
			return true
		}
	}
	return false
}

func uniform(b []byte, v byte) bool {
	for _, c := range b {
		if c != v {
			return false
		}
	}
	return true
}

func nonZero(b []byte) int {
	n := 0
	for _, c := range b {
		if c != 0 {
			n++
		}
	}
	return n
}

// Entropy is the Shannon entropy of b in bits per byte.
func Entropy(b []byte) float64 {
	if len(b) == 0 {
		return 0
	}
	var counts [256]int
	for _, c := range b {
		counts[c]++
	}
	n := float64(len(b))
	h := 0.0
	for _, c := range counts {
		if c == 0 {
			continue
		}
		f := float64(c) / n
		h -= f * math.Log2(f)
	}
	return h
}
