// Package walk finds tablespace files under a directory.
package walk

import (
	"io/fs"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pkg/errors"
)

// Ext is the file extension of per-table tablespaces.
const Ext = ".ibd"

// Options control which files Tablespaces yields.
type Options struct {
	// Depth limits recursion; 0 means unlimited, 1 means dir itself only.
	Depth int
	// Extra lists additional extensions to accept, e.g. ".ibu".
	Extra []string
}

// Tablespaces returns regular files under dir with a tablespace extension,
// sorted by path. Backup copies (.bak, .bak.N) never match.
func Tablespaces(dir string, opts Options) ([]string, error) {
	exts := append([]string{Ext}, opts.Extra...)
	root := filepath.Clean(dir)
	var out []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if opts.Depth > 0 && path != root && depth(root, path) >= opts.Depth {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		for _, e := range exts {
			if strings.EqualFold(filepath.Ext(path), e) {
				out = append(out, path)
				break
			}
		}
		return nil
	})
	if err != nil {
		return nil, errors.Wrapf(err, "walk %s", dir)
	}
	sort.Strings(out)
	return out, nil
}

func depth(root, path string) int {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return 0
	}
	return strings.Count(rel, string(filepath.Separator)) + 1
}
