package checksum

import "github.com/ringo380/idb-utils-sub001/format"

// Magic constants of the legacy hash. The server computes them on a
// machine word and truncates to 32 bits; only xor, left shift and add are
// involved, so the low 32 bits never depend on the high ones.
const (
	hashRandomMask  uint32 = 1463735687
	hashRandomMask2 uint32 = 1653893711
)

func foldPair(n1, n2 uint32) uint32 {
	return ((((n1 ^ n2 ^ hashRandomMask2) << 8) + n1) ^ hashRandomMask) + n2
}

// foldBinary folds 8 bytes per iteration, then the 1..7 leftover bytes
// through a fixed fall-through table. Keep the shape: the stored values on
// disk depend on it.
func foldBinary(b []byte) uint32 {
	var fold uint32
	i := 0
	end := len(b) &^ 7
	for i < end {
		fold = foldPair(fold, uint32(b[i]))
		fold = foldPair(fold, uint32(b[i+1]))
		fold = foldPair(fold, uint32(b[i+2]))
		fold = foldPair(fold, uint32(b[i+3]))
		fold = foldPair(fold, uint32(b[i+4]))
		fold = foldPair(fold, uint32(b[i+5]))
		fold = foldPair(fold, uint32(b[i+6]))
		fold = foldPair(fold, uint32(b[i+7]))
		i += 8
	}
	switch len(b) & 7 {
	case 7:
		fold = foldPair(fold, uint32(b[i]))
		i++
		fallthrough
	case 6:
		fold = foldPair(fold, uint32(b[i]))
		i++
		fallthrough
	case 5:
		fold = foldPair(fold, uint32(b[i]))
		i++
		fallthrough
	case 4:
		fold = foldPair(fold, uint32(b[i]))
		i++
		fallthrough
	case 3:
		fold = foldPair(fold, uint32(b[i]))
		i++
		fallthrough
	case 2:
		fold = foldPair(fold, uint32(b[i]))
		i++
		fallthrough
	case 1:
		fold = foldPair(fold, uint32(b[i]))
	}
	return fold
}

// InnoDBFold is the legacy "innodb" page checksum: the fold of [4,26) plus
// the fold of [38, len-8), modulo 2^32.
func InnoDBFold(p []byte) uint32 {
	end := len(p) - format.FilTrailerSize
	return foldBinary(p[rangeAStart:rangeAEnd]) + foldBinary(p[rangeBStart:end])
}

// InnoDBOldFold is the pre-5.0 checksum kept in the trailer's first word:
// the fold of [0,26).
func InnoDBOldFold(p []byte) uint32 {
	return foldBinary(p[:format.OffFlushLSN])
}
