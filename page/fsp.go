// fsp.go - FSP header (page 0) parsing and patching
package page

import (
	"github.com/pkg/errors"

	"github.com/ringo380/idb-utils-sub001/format"
)

// FSPHeader is the tablespace-wide metadata stored on page 0.
type FSPHeader struct {
	SpaceID   uint32
	Size      uint32 // pages in the tablespace
	FreeLimit uint32
	Flags     uint32
	FragNUsed uint32
}

func ParseFSPHeader(p []byte) (FSPHeader, error) {
	if len(p) < format.FSPHeaderOffset+format.FSPHeaderSize {
		return FSPHeader{}, errors.Wrapf(ErrShortPage, "FSP header needs %d bytes, have %d",
			format.FSPHeaderOffset+format.FSPHeaderSize, len(p))
	}
	base := format.FSPHeaderOffset
	space, _ := format.Be32(p, base+format.FSPSpaceID)
	size, _ := format.Be32(p, base+format.FSPSize)
	free, _ := format.Be32(p, base+format.FSPFreeLimit)
	flags, _ := format.Be32(p, base+format.FSPFlags)
	frag, _ := format.Be32(p, base+format.FSPFragNUsed)
	return FSPHeader{SpaceID: space, Size: size, FreeLimit: free, Flags: flags, FragNUsed: frag}, nil
}

func (h FSPHeader) Decoded() format.SpaceFlags { return format.DecodeFlags(h.Flags) }

func SetFSPSpaceID(p []byte, v uint32) error {
	return format.PutBe32(p, format.FSPHeaderOffset+format.FSPSpaceID, v)
}
func SetSpaceSize(p []byte, v uint32) error {
	return format.PutBe32(p, format.FSPHeaderOffset+format.FSPSize, v)
}
func SetFreeLimit(p []byte, v uint32) error {
	return format.PutBe32(p, format.FSPHeaderOffset+format.FSPFreeLimit, v)
}
func SetSpaceFlags(p []byte, v uint32) error {
	return format.PutBe32(p, format.FSPHeaderOffset+format.FSPFlags, v)
}
