// exports.go - Re-exports for main package API
package idbutils

import (
	"github.com/ringo380/idb-utils-sub001/checksum"
	"github.com/ringo380/idb-utils-sub001/classify"
	"github.com/ringo380/idb-utils-sub001/defrag"
	"github.com/ringo380/idb-utils-sub001/format"
	"github.com/ringo380/idb-utils-sub001/page"
	"github.com/ringo380/idb-utils-sub001/repair"
	"github.com/ringo380/idb-utils-sub001/tablespace"
	"github.com/ringo380/idb-utils-sub001/transplant"
)

// Re-export types from format package
type (
	PageType   = format.PageType
	PageKind   = format.PageKind
	VendorInfo = format.VendorInfo
)

// Re-export constants from format package
const (
	DefaultPageSize = format.DefaultPageSize
	PageTypeIndex   = format.PageTypeIndex
	PageTypeFspHdr  = format.PageTypeFspHdr
)

// Re-export types from page package
type (
	InnerPage   = page.InnerPage
	FilHeader   = page.FilHeader
	FilTrailer  = page.FilTrailer
	FSPHeader   = page.FSPHeader
	IndexHeader = page.IndexHeader
)

var (
	NewInnerPage     = page.NewInnerPage
	ParseFilHeader   = page.ParseFilHeader
	ParseFilTrailer  = page.ParseFilTrailer
	ParseIndexHeader = page.ParseIndexHeader
)

// Re-export checksum and classification
type (
	Algorithm      = checksum.Algorithm
	ChecksumResult = checksum.Result
	Pattern        = classify.Pattern
)

const (
	AlgorithmAuto      = checksum.Auto
	AlgorithmCRC32C    = checksum.CRC32C
	AlgorithmInnoDB    = checksum.InnoDB
	AlgorithmFullCRC32 = checksum.FullCRC32
	AlgorithmNone      = checksum.None
)

var (
	ValidatePage   = checksum.Validate
	RepairPage     = checksum.Repair
	ClassifyPage   = classify.Classify
	ParseVendor    = format.ParseVendor
	OpenTablespace = tablespace.Open
)

// Re-export file operations
type (
	RepairOptions     = repair.Options
	RepairResult      = repair.FileResult
	BatchOptions      = repair.BatchOptions
	BatchResult       = repair.BatchResult
	DefragOptions     = defrag.Options
	DefragResult      = defrag.Result
	TransplantOptions = transplant.Options
	TransplantResult  = transplant.Result
)

var (
	RepairFile = repair.RepairFile
	RepairDir  = repair.RepairDir
	Defragment = defrag.Defragment
	Transplant = transplant.Transplant
)

// Diagnose validates p and, when the checksum is bad, labels the damage.
// The pattern is Unknown for valid pages.
func Diagnose(p []byte, pageSize int, hint *VendorInfo) (ChecksumResult, Pattern, error) {
	r, err := checksum.Validate(p, pageSize, hint)
	if err != nil || r.Valid {
		return r, classify.Unknown, err
	}
	return r, classify.Classify(p, pageSize, checksum.Resolve(checksum.Auto, hint)), nil
}
