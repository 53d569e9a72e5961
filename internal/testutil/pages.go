// Package testutil builds synthetic tablespaces for tests.
package testutil

import (
	"crypto/rand"
	"os"
	"path/filepath"
	"testing"

	"github.com/ringo380/idb-utils-sub001/checksum"
	"github.com/ringo380/idb-utils-sub001/format"
	"github.com/ringo380/idb-utils-sub001/page"
)

// PageSpec describes one synthetic page.
type PageSpec struct {
	PageNo  uint32
	SpaceID uint32
	Type    format.PageType
	LSN     uint64
	Prev    uint32
	Next    uint32
	IndexID uint64
	Level   uint16
	// Fill seeds the body so pages differ; zero leaves the body empty.
	Fill byte
}

// NewPage returns an unchecksummed page built from s. Prev/Next of zero
// are written as FIL_NULL.
func NewPage(pageSize int, s PageSpec) []byte {
	p := make([]byte, pageSize)
	prev, next := s.Prev, s.Next
	if prev == 0 {
		prev = format.FilNull
	}
	if next == 0 {
		next = format.FilNull
	}
	_ = page.SetPageNumber(p, s.PageNo)
	_ = page.SetPrev(p, prev)
	_ = page.SetNext(p, next)
	_ = page.SetLSN(p, s.LSN)
	_ = page.SetPageType(p, s.Type)
	_ = page.SetSpaceID(p, s.SpaceID)
	if s.Type == format.PageTypeIndex {
		_ = page.SetIndexID(p, s.IndexID)
		_ = page.SetLevel(p, s.Level)
	}
	if s.Fill != 0 {
		start := format.IndexHeaderOffset + format.IndexHeaderSize + format.FsegHeaderSize
		for i := start; i < start+256 && i < pageSize-format.FilTrailerSize; i++ {
			p[i] = s.Fill + byte(i)
		}
	}
	return p
}

// Seal fixes the LSN mirror and stores a checksum computed with a.
func Seal(p []byte, a checksum.Algorithm) []byte {
	if _, err := checksum.Repair(p, len(p), a); err != nil {
		panic(err)
	}
	return p
}

// ValidPage is NewPage followed by Seal with CRC-32C.
func ValidPage(pageSize int, s PageSpec) []byte {
	return Seal(NewPage(pageSize, s), checksum.CRC32C)
}

// Page0 builds a sealed FSP header page.
func Page0(pageSize int, spaceID, nPages uint32, flags uint32, a checksum.Algorithm) []byte {
	p := NewPage(pageSize, PageSpec{PageNo: 0, SpaceID: spaceID, Type: format.PageTypeFspHdr, LSN: 1000})
	_ = page.SetFSPSpaceID(p, spaceID)
	_ = page.SetSpaceSize(p, nPages)
	_ = page.SetFreeLimit(p, nPages)
	_ = page.SetSpaceFlags(p, flags|format.FlagsForPageSize(pageSize))
	return Seal(p, a)
}

// IndexPage builds a sealed INDEX page.
func IndexPage(pageSize int, pageNo, spaceID uint32, indexID uint64, level uint16, lsn uint64) []byte {
	return ValidPage(pageSize, PageSpec{
		PageNo: pageNo, SpaceID: spaceID, Type: format.PageTypeIndex,
		LSN: lsn, IndexID: indexID, Level: level, Fill: byte(pageNo*7 + 1),
	})
}

// DensePage is ValidPage with every body byte after the FSEG header set,
// so the page looks like a full B-tree page rather than a fresh one.
func DensePage(pageSize int, s PageSpec) []byte {
	p := NewPage(pageSize, s)
	start := format.IndexHeaderOffset + format.IndexHeaderSize + format.FsegHeaderSize
	for i := start; i < pageSize-format.FilTrailerSize; i++ {
		p[i] = byte(i*31+7) ^ s.Fill
	}
	return Seal(p, checksum.CRC32C)
}

// RandomPage returns pageSize cryptographically random bytes.
func RandomPage(pageSize int) []byte {
	p := make([]byte, pageSize)
	if _, err := rand.Read(p); err != nil {
		panic(err)
	}
	return p
}

// WriteTablespace concatenates pages into dir/name and returns the path.
func WriteTablespace(t testing.TB, dir, name string, pages ...[]byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create %s: %v", path, err)
	}
	defer f.Close()
	for i, p := range pages {
		if _, err := f.Write(p); err != nil {
			t.Fatalf("write page %d: %v", i, err)
		}
	}
	return path
}

// ReadPage reads page n of a tablespace file.
func ReadPage(t testing.TB, path string, pageSize int, n uint32) []byte {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open %s: %v", path, err)
	}
	defer f.Close()
	buf := make([]byte, pageSize)
	if _, err := f.ReadAt(buf, int64(n)*int64(pageSize)); err != nil {
		t.Fatalf("read page %d: %v", n, err)
	}
	return buf
}
