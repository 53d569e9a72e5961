// index.go - INDEX page header and FSEG header parsing
package page

import (
	"github.com/pkg/errors"

	"github.com/ringo380/idb-utils-sub001/format"
)

// IndexHeader carries the B-tree fields of an INDEX page header. Only the
// fields needed for ordering and counting are decoded.
type IndexHeader struct {
	NumDirSlots uint16
	HeapTop     uint16
	NumHeapRecs uint16 // low 15 bits
	Compact     bool
	NumUserRecs uint16
	MaxTrxID    uint64
	Level       uint16
	IndexID     uint64
}

func (h IndexHeader) IsLeaf() bool { return h.Level == 0 }

func ParseIndexHeader(p []byte) (IndexHeader, error) {
	off := format.IndexHeaderOffset
	if off+format.IndexHeaderSize > len(p) {
		return IndexHeader{}, errors.Wrap(ErrShortPage, "short index header")
	}
	nSlots, _ := format.Be16(p, off+format.IdxNDirSlots)
	heapTop, _ := format.Be16(p, off+format.IdxHeapTop)
	flag, _ := format.Be16(p, off+format.IdxNHeap)
	nRecs, _ := format.Be16(p, off+format.IdxNRecs)
	maxTrx, _ := format.Be64(p, off+format.IdxMaxTrxID)
	level, _ := format.Be16(p, off+format.IdxLevel)
	indexID, _ := format.Be64(p, off+format.IdxIndexID)
	return IndexHeader{
		NumDirSlots: nSlots,
		HeapTop:     heapTop,
		NumHeapRecs: flag & 0x7fff,
		Compact:     flag&0x8000 != 0,
		NumUserRecs: nRecs,
		MaxTrxID:    maxTrx,
		Level:       level,
		IndexID:     indexID,
	}, nil
}

// 20-byte file segment header (root uses it; others are usually zero-filled)
type FsegHeader struct {
	LeafInodeSpace    uint32
	LeafInodePage     uint32
	LeafInodeOff      uint16
	NonLeafInodeSpace uint32
	NonLeafInodePage  uint32
	NonLeafInodeOff   uint16
}

func ParseFsegHeader(p []byte) (FsegHeader, error) {
	off := format.IndexHeaderOffset + format.IndexHeaderSize
	if off+format.FsegHeaderSize > len(p) {
		return FsegHeader{}, errors.Wrap(ErrShortPage, "short fseg header")
	}
	lsp, _ := format.Be32(p, off+0)
	lpg, _ := format.Be32(p, off+4)
	lof, _ := format.Be16(p, off+8)
	nsp, _ := format.Be32(p, off+10)
	npg, _ := format.Be32(p, off+14)
	nof, _ := format.Be16(p, off+18)
	return FsegHeader{
		LeafInodeSpace: lsp, LeafInodePage: lpg, LeafInodeOff: lof,
		NonLeafInodeSpace: nsp, NonLeafInodePage: npg, NonLeafInodeOff: nof,
	}, nil
}

// SetIndexID and SetLevel exist for building fixtures and rewriting headers.
func SetIndexID(p []byte, v uint64) error {
	return format.PutBe64(p, format.IndexHeaderOffset+format.IdxIndexID, v)
}
func SetLevel(p []byte, v uint16) error {
	return format.PutBe16(p, format.IndexHeaderOffset+format.IdxLevel, v)
}
