// vendor.go - FSP flag decoding and vendor detection
package format

import "strings"

type Vendor uint8

const (
	VendorMySQL Vendor = iota
	VendorPercona
	VendorMariaDB
)

func (v Vendor) String() string {
	switch v {
	case VendorPercona:
		return "Percona"
	case VendorMariaDB:
		return "MariaDB"
	default:
		return "MySQL"
	}
}

// MariaDBFormat distinguishes the two MariaDB tablespace layouts.
type MariaDBFormat uint8

const (
	MariaDBNone MariaDBFormat = iota
	MariaDBOriginal
	MariaDBFullCRC32
)

func (f MariaDBFormat) String() string {
	switch f {
	case MariaDBOriginal:
		return "original"
	case MariaDBFullCRC32:
		return "full_crc32"
	default:
		return "none"
	}
}

// VendorInfo is derived once per tablespace from the page 0 flags.
type VendorInfo struct {
	Vendor        Vendor
	MariaDBFormat MariaDBFormat
}

// IsFullCRC32 reports whether pages carry a MariaDB full_crc32 trailer.
func (v *VendorInfo) IsFullCRC32() bool {
	return v != nil && v.Vendor == VendorMariaDB && v.MariaDBFormat == MariaDBFullCRC32
}

func (v VendorInfo) String() string {
	if v.Vendor == VendorMariaDB {
		return v.Vendor.String() + " (" + v.MariaDBFormat.String() + ")"
	}
	return v.Vendor.String()
}

// ParseVendor accepts "mysql", "percona", "mariadb" and "mariadb-full_crc32".
func ParseVendor(s string) (VendorInfo, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "mysql", "":
		return VendorInfo{Vendor: VendorMySQL}, true
	case "percona", "xtradb":
		return VendorInfo{Vendor: VendorPercona}, true
	case "mariadb", "mariadb-original":
		return VendorInfo{Vendor: VendorMariaDB, MariaDBFormat: MariaDBOriginal}, true
	case "mariadb-full_crc32", "mariadb-full-crc32", "full_crc32":
		return VendorInfo{Vendor: VendorMariaDB, MariaDBFormat: MariaDBFullCRC32}, true
	}
	return VendorInfo{}, false
}

// FSP flag bit layout. MySQL and MariaDB share the low bits; MariaDB adds
// page compression above bit 16, and full_crc32 reuses the low nibble for
// the page size with bit 4 as a marker.
const (
	flagPostAntelope    = 1 << 0
	flagZipSSizeShift   = 1
	flagZipSSizeMask    = 0xF << flagZipSSizeShift
	flagAtomicBlobs     = 1 << 5
	flagPageSSizeShift  = 6
	flagPageSSizeMask   = 0xF << flagPageSSizeShift
	flagDataDir         = 1 << 10
	flagShared          = 1 << 11
	flagTemporary       = 1 << 12
	flagEncryption      = 1 << 13
	flagSDI             = 1 << 14
	flagPageCompression = 1 << 16
	flagCompLevelShift  = 17
	flagCompLevelMask   = 0xF << flagCompLevelShift

	flagFCRC32Marker    = 1 << 4
	flagFCRC32SSizeMask = 0xF
	flagFCRC32AlgoShift = 5
	flagFCRC32AlgoMask  = 0x7 << flagFCRC32AlgoShift
)

// SpaceFlags is the decoded view of the FSP flags word.
type SpaceFlags struct {
	Raw              uint32
	PostAntelope     bool
	ZipSSize         uint32
	AtomicBlobs      bool
	PageSSize        uint32
	DataDir          bool
	Shared           bool
	Temporary        bool
	Encrypted        bool
	SDI              bool
	PageCompressed   bool
	CompressionLevel uint32
	FullCRC32        bool
	CompressionAlgo  uint32
}

func DecodeFlags(flags uint32) SpaceFlags {
	if flags&flagFCRC32Marker != 0 {
		return SpaceFlags{
			Raw:             flags,
			FullCRC32:       true,
			PageSSize:       flags & flagFCRC32SSizeMask,
			CompressionAlgo: (flags & flagFCRC32AlgoMask) >> flagFCRC32AlgoShift,
			PageCompressed:  flags&flagFCRC32AlgoMask != 0,
		}
	}
	return SpaceFlags{
		Raw:              flags,
		PostAntelope:     flags&flagPostAntelope != 0,
		ZipSSize:         (flags & flagZipSSizeMask) >> flagZipSSizeShift,
		AtomicBlobs:      flags&flagAtomicBlobs != 0,
		PageSSize:        (flags & flagPageSSizeMask) >> flagPageSSizeShift,
		DataDir:          flags&flagDataDir != 0,
		Shared:           flags&flagShared != 0,
		Temporary:        flags&flagTemporary != 0,
		Encrypted:        flags&flagEncryption != 0,
		SDI:              flags&flagSDI != 0,
		PageCompressed:   flags&flagPageCompression != 0,
		CompressionLevel: (flags & flagCompLevelMask) >> flagCompLevelShift,
	}
}

// DetectVendor derives the vendor from page 0 flags. Percona writes the
// same layout as MySQL and can only be selected explicitly.
func DetectVendor(flags uint32) VendorInfo {
	f := DecodeFlags(flags)
	switch {
	case f.FullCRC32:
		return VendorInfo{Vendor: VendorMariaDB, MariaDBFormat: MariaDBFullCRC32}
	case f.PageCompressed || f.CompressionLevel != 0:
		return VendorInfo{Vendor: VendorMariaDB, MariaDBFormat: MariaDBOriginal}
	}
	return VendorInfo{Vendor: VendorMySQL}
}

// PageSizeFromFlags returns the logical page size encoded in the flags.
// An ssize of 0 means the historical 16KiB default.
func PageSizeFromFlags(flags uint32) (int, bool) {
	ssize := DecodeFlags(flags).PageSSize
	if ssize == 0 {
		return DefaultPageSize, true
	}
	size := 512 << ssize
	return size, ValidPageSize(size)
}

// FlagsForPageSize encodes a page size into the MySQL flag layout.
func FlagsForPageSize(pageSize int) uint32 {
	if pageSize == DefaultPageSize {
		return 0
	}
	var ssize uint32
	for s := pageSize / 512; s > 1; s >>= 1 {
		ssize++
	}
	return ssize << flagPageSSizeShift
}
