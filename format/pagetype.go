// pagetype.go - Page type codes and their vendor-dependent meaning
package format

import "fmt"

// PageType is the raw 16-bit code stored at OffPageType.
type PageType uint16

const (
	PageTypeAllocated      PageType = 0
	PageTypeUndoLog        PageType = 2
	PageTypeInode          PageType = 3
	PageTypeIbufFreeList   PageType = 4
	PageTypeIbufBitmap     PageType = 5
	PageTypeSys            PageType = 6
	PageTypeTrxSys         PageType = 7
	PageTypeFspHdr         PageType = 8
	PageTypeXdes           PageType = 9
	PageTypeBlob           PageType = 10
	PageTypeZBlob          PageType = 11
	PageTypeZBlob2         PageType = 12
	PageTypeUnknown        PageType = 13
	PageTypeCompressed     PageType = 14
	PageTypeEncrypted      PageType = 15
	PageTypeCompEncrypted  PageType = 16
	PageTypeEncRTree       PageType = 17
	PageType18             PageType = 18 // SDI BLOB on MySQL, instant ALTER marker on MariaDB
	PageTypeSDIZBlob       PageType = 19
	PageTypeLegacyDblwr    PageType = 20
	PageTypeRsegArray      PageType = 21
	PageTypeLobIndex       PageType = 22
	PageTypeLobData        PageType = 23
	PageTypeLobFirst       PageType = 24
	PageTypeZLobFirst      PageType = 25
	PageTypeZLobData       PageType = 26
	PageTypeZLobIndex      PageType = 27
	PageTypeZLobFrag       PageType = 28
	PageTypeZLobFragEntry  PageType = 29
	PageTypeSDI            PageType = 17853
	PageTypeRTree          PageType = 17854
	PageTypeIndex          PageType = 17855
	PageTypePageCompressed PageType = 34354 // MariaDB
	PageTypePageCompEnc    PageType = 37401 // MariaDB
)

// PageKind is the closed set of meanings a page type code resolves to.
type PageKind uint8

const (
	KindUnknown PageKind = iota
	KindAllocated
	KindUndoLog
	KindInode
	KindIbufFreeList
	KindIbufBitmap
	KindSys
	KindTrxSys
	KindFspHdr
	KindXdes
	KindBlob
	KindZBlob
	KindZBlob2
	KindCompressed
	KindEncrypted
	KindCompressedEncrypted
	KindEncryptedRTree
	KindSDIBlob
	KindSDIZBlob
	KindInstant
	KindLegacyDoublewrite
	KindRsegArray
	KindLobIndex
	KindLobData
	KindLobFirst
	KindZLobFirst
	KindZLobData
	KindZLobIndex
	KindZLobFrag
	KindZLobFragEntry
	KindSDI
	KindRTree
	KindIndex
	KindPageCompressed
	KindPageCompressedEncrypted
)

var kindNames = map[PageKind]string{
	KindUnknown:                 "UNKNOWN",
	KindAllocated:               "ALLOCATED",
	KindUndoLog:                 "UNDO_LOG",
	KindInode:                   "INODE",
	KindIbufFreeList:            "IBUF_FREE_LIST",
	KindIbufBitmap:              "IBUF_BITMAP",
	KindSys:                     "SYS",
	KindTrxSys:                  "TRX_SYS",
	KindFspHdr:                  "FSP_HDR",
	KindXdes:                    "XDES",
	KindBlob:                    "BLOB",
	KindZBlob:                   "ZBLOB",
	KindZBlob2:                  "ZBLOB2",
	KindCompressed:              "COMPRESSED",
	KindEncrypted:               "ENCRYPTED",
	KindCompressedEncrypted:     "COMPRESSED_ENCRYPTED",
	KindEncryptedRTree:          "ENCRYPTED_RTREE",
	KindSDIBlob:                 "SDI_BLOB",
	KindSDIZBlob:                "SDI_ZBLOB",
	KindInstant:                 "INSTANT",
	KindLegacyDoublewrite:       "LEGACY_DBLWR",
	KindRsegArray:               "RSEG_ARRAY",
	KindLobIndex:                "LOB_INDEX",
	KindLobData:                 "LOB_DATA",
	KindLobFirst:                "LOB_FIRST",
	KindZLobFirst:               "ZLOB_FIRST",
	KindZLobData:                "ZLOB_DATA",
	KindZLobIndex:               "ZLOB_INDEX",
	KindZLobFrag:                "ZLOB_FRAG",
	KindZLobFragEntry:           "ZLOB_FRAG_ENTRY",
	KindSDI:                     "SDI",
	KindRTree:                   "RTREE",
	KindIndex:                   "INDEX",
	KindPageCompressed:          "PAGE_COMPRESSED",
	KindPageCompressedEncrypted: "PAGE_COMPRESSED_ENCRYPTED",
}

func (k PageKind) String() string {
	if n, ok := kindNames[k]; ok {
		return n
	}
	return fmt.Sprintf("PageKind(%d)", uint8(k))
}

// common holds codes that mean the same thing for every vendor.
var common = map[PageType]PageKind{
	PageTypeAllocated:     KindAllocated,
	PageTypeUndoLog:       KindUndoLog,
	PageTypeInode:         KindInode,
	PageTypeIbufFreeList:  KindIbufFreeList,
	PageTypeIbufBitmap:    KindIbufBitmap,
	PageTypeSys:           KindSys,
	PageTypeTrxSys:        KindTrxSys,
	PageTypeFspHdr:        KindFspHdr,
	PageTypeXdes:          KindXdes,
	PageTypeBlob:          KindBlob,
	PageTypeZBlob:         KindZBlob,
	PageTypeZBlob2:        KindZBlob2,
	PageTypeUnknown:       KindUnknown,
	PageTypeCompressed:    KindCompressed,
	PageTypeEncrypted:     KindEncrypted,
	PageTypeCompEncrypted: KindCompressedEncrypted,
	PageTypeEncRTree:      KindEncryptedRTree,
	PageTypeRTree:         KindRTree,
	PageTypeIndex:         KindIndex,
}

type vendorCode struct {
	code   PageType
	vendor Vendor
}

// byVendor holds the codes whose meaning depends on the engine fork.
var byVendor = map[vendorCode]PageKind{
	{PageType18, VendorMySQL}:               KindSDIBlob,
	{PageType18, VendorPercona}:             KindSDIBlob,
	{PageType18, VendorMariaDB}:             KindInstant,
	{PageTypeSDIZBlob, VendorMySQL}:         KindSDIZBlob,
	{PageTypeSDIZBlob, VendorPercona}:       KindSDIZBlob,
	{PageTypeLegacyDblwr, VendorMySQL}:      KindLegacyDoublewrite,
	{PageTypeLegacyDblwr, VendorPercona}:    KindLegacyDoublewrite,
	{PageTypeRsegArray, VendorMySQL}:        KindRsegArray,
	{PageTypeRsegArray, VendorPercona}:      KindRsegArray,
	{PageTypeLobIndex, VendorMySQL}:         KindLobIndex,
	{PageTypeLobIndex, VendorPercona}:       KindLobIndex,
	{PageTypeLobData, VendorMySQL}:          KindLobData,
	{PageTypeLobData, VendorPercona}:        KindLobData,
	{PageTypeLobFirst, VendorMySQL}:         KindLobFirst,
	{PageTypeLobFirst, VendorPercona}:       KindLobFirst,
	{PageTypeZLobFirst, VendorMySQL}:        KindZLobFirst,
	{PageTypeZLobFirst, VendorPercona}:      KindZLobFirst,
	{PageTypeZLobData, VendorMySQL}:         KindZLobData,
	{PageTypeZLobData, VendorPercona}:       KindZLobData,
	{PageTypeZLobIndex, VendorMySQL}:        KindZLobIndex,
	{PageTypeZLobIndex, VendorPercona}:      KindZLobIndex,
	{PageTypeZLobFrag, VendorMySQL}:         KindZLobFrag,
	{PageTypeZLobFrag, VendorPercona}:       KindZLobFrag,
	{PageTypeZLobFragEntry, VendorMySQL}:    KindZLobFragEntry,
	{PageTypeZLobFragEntry, VendorPercona}:  KindZLobFragEntry,
	{PageTypeSDI, VendorMySQL}:              KindSDI,
	{PageTypeSDI, VendorPercona}:            KindSDI,
	{PageTypePageCompressed, VendorMariaDB}: KindPageCompressed,
	{PageTypePageCompEnc, VendorMariaDB}:    KindPageCompressedEncrypted,
}

// KindOf resolves a raw code for the given vendor.
func KindOf(code PageType, vendor Vendor) PageKind {
	if k, ok := byVendor[vendorCode{code, vendor}]; ok {
		return k
	}
	if k, ok := common[code]; ok {
		return k
	}
	return KindUnknown
}

// PageTypeName is a convenience for printing a raw code.
func PageTypeName(code PageType, vendor Vendor) string {
	return KindOf(code, vendor).String()
}
