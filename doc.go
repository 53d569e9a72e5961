// Package idbutils checks and repairs InnoDB tablespace files while the
// server is stopped.
//
// The library is organized into logical groups of functionality:
//
// Page Format:
//   - format: offsets, page types, space flags and vendor detection
//   - page: FIL header/trailer, FSP header and INDEX header decode/patch
//
// Integrity:
//   - checksum: CRC-32C, legacy fold and full_crc32 compute/validate/repair
//   - classify: corruption pattern heuristics for invalid pages
//
// File Operations:
//   - tablespace: page-granular access to .ibd files
//   - backup: numbered .bak copies verified with BLAKE3
//   - repair: in-place checksum repair for one file or a directory tree
//   - defrag: compacted copy with renumbered and relinked INDEX pages
//   - transplant: copy pages from a donor file into a target
//
// Basic usage:
//
//	res, err := idbutils.RepairFile("table.ibd", idbutils.RepairOptions{DryRun: true})
//	if err != nil {
//	    return err
//	}
//	fmt.Println(res.Repaired, "pages need a new checksum")
//
package idbutils
