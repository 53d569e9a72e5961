// inner.go - A page with its FIL envelope decoded
package page

import (
	"github.com/pkg/errors"

	"github.com/ringo380/idb-utils-sub001/format"
)

// InnerPage = FIL header + body + FIL trailer (exactly one page)
type InnerPage struct {
	PageNo  uint32
	FIL     FilHeader
	Trailer FilTrailer
	Data    []byte // full page bytes
}

// NewInnerPage wraps buf, which must be exactly pageSize bytes long.
func NewInnerPage(pageNo uint32, buf []byte, pageSize int) (*InnerPage, error) {
	if len(buf) != pageSize {
		return nil, errors.Wrapf(ErrPageSize, "page %d: expected %dB, got %d", pageNo, pageSize, len(buf))
	}
	h, err := ParseFilHeader(buf)
	if err != nil {
		return nil, err
	}
	t, err := ParseFilTrailer(buf)
	if err != nil {
		return nil, err
	}
	return &InnerPage{PageNo: pageNo, FIL: h, Trailer: t, Data: buf}, nil
}

func (ip *InnerPage) PageType() format.PageType { return ip.FIL.PageType }

func (ip *InnerPage) Kind(v format.Vendor) format.PageKind {
	return format.KindOf(ip.FIL.PageType, v)
}

// LSNMirrorOK reports whether the trailer mirrors the low 32 bits of the
// header LSN.
func (ip *InnerPage) LSNMirrorOK() bool {
	return uint32(ip.FIL.LastModLSN&0xffffffff) == ip.Trailer.Low32LSN
}

// CheckSize enforces the page buffer contract.
func CheckSize(buf []byte, pageSize int) error {
	if len(buf) != pageSize {
		return errors.Wrapf(ErrPageSize, "expected %dB, got %d", pageSize, len(buf))
	}
	return nil
}
