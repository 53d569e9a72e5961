// endian.go - Big-endian byte reading and writing utilities
package format

import (
	"encoding/binary"

	"github.com/pkg/errors"
)

// ErrOutOfBounds is returned when a field would run past the buffer.
var ErrOutOfBounds = errors.New("field out of bounds")

func Be16(b []byte, off int) (uint16, error) {
	if off < 0 || off+2 > len(b) {
		return 0, errors.Wrapf(ErrOutOfBounds, "Be16 at %d (len %d)", off, len(b))
	}
	return binary.BigEndian.Uint16(b[off : off+2]), nil
}
func Be32(b []byte, off int) (uint32, error) {
	if off < 0 || off+4 > len(b) {
		return 0, errors.Wrapf(ErrOutOfBounds, "Be32 at %d (len %d)", off, len(b))
	}
	return binary.BigEndian.Uint32(b[off : off+4]), nil
}
func Be64(b []byte, off int) (uint64, error) {
	if off < 0 || off+8 > len(b) {
		return 0, errors.Wrapf(ErrOutOfBounds, "Be64 at %d (len %d)", off, len(b))
	}
	return binary.BigEndian.Uint64(b[off : off+8]), nil
}

func PutBe16(b []byte, off int, v uint16) error {
	if off < 0 || off+2 > len(b) {
		return errors.Wrapf(ErrOutOfBounds, "PutBe16 at %d (len %d)", off, len(b))
	}
	binary.BigEndian.PutUint16(b[off:off+2], v)
	return nil
}
func PutBe32(b []byte, off int, v uint32) error {
	if off < 0 || off+4 > len(b) {
		return errors.Wrapf(ErrOutOfBounds, "PutBe32 at %d (len %d)", off, len(b))
	}
	binary.BigEndian.PutUint32(b[off:off+4], v)
	return nil
}
func PutBe64(b []byte, off int, v uint64) error {
	if off < 0 || off+8 > len(b) {
		return errors.Wrapf(ErrOutOfBounds, "PutBe64 at %d (len %d)", off, len(b))
	}
	binary.BigEndian.PutUint64(b[off:off+8], v)
	return nil
}
