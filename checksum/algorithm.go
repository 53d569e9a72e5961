// Package checksum implements the three page checksum families found in
// InnoDB-derived tablespaces: CRC-32C over two ranges (MySQL 5.7+),
// the legacy fold checksum ("innodb"), and MariaDB's full_crc32.
package checksum

import (
	"strings"

	"github.com/pkg/errors"
)

// Algorithm identifies a checksum family. The zero value, Auto, asks the
// engine to pick one; results never carry Auto.
type Algorithm uint8

const (
	Auto Algorithm = iota
	CRC32C
	InnoDB
	FullCRC32
	None
)

func (a Algorithm) String() string {
	switch a {
	case CRC32C:
		return "crc32c"
	case InnoDB:
		return "innodb"
	case FullCRC32:
		return "full_crc32"
	case None:
		return "none"
	default:
		return "auto"
	}
}

// MarshalText lets results render as names in JSON output.
func (a Algorithm) MarshalText() ([]byte, error) { return []byte(a.String()), nil }

// ParseAlgorithm accepts the names printed by String plus a few aliases.
func ParseAlgorithm(s string) (Algorithm, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "auto":
		return Auto, nil
	case "crc32", "crc32c", "strict_crc32":
		return CRC32C, nil
	case "innodb", "legacy", "fold":
		return InnoDB, nil
	case "full_crc32", "full-crc32", "mariadb":
		return FullCRC32, nil
	case "none", "strict_none":
		return None, nil
	}
	return Auto, errors.Errorf("unknown checksum algorithm %q", s)
}
