// Package defrag rewrites a tablespace into a new file with empty and
// corrupt pages dropped and INDEX pages regrouped so each (index, level)
// sibling chain is contiguous.
package defrag

import (
	"os"
	"path/filepath"
	"sort"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/ringo380/idb-utils-sub001/checksum"
	"github.com/ringo380/idb-utils-sub001/format"
	"github.com/ringo380/idb-utils-sub001/internal/logging"
	"github.com/ringo380/idb-utils-sub001/page"
	"github.com/ringo380/idb-utils-sub001/tablespace"
)

var ErrSameFile = errors.New("output path is the source file")

type Options struct {
	Algorithm  checksum.Algorithm // Auto detects from page 0
	Vendor     *format.VendorInfo
	PageSize   int
	SkipVerify bool
	RunID      string
	Logger     logrus.FieldLogger
}

// Move maps an input page to its position in the output.
type Move struct {
	From uint32 `json:"from"`
	To   uint32 `json:"to"`
}

type Result struct {
	Source       string             `json:"source"`
	Output       string             `json:"output"`
	RunID        string             `json:"run_id"`
	PageSize     int                `json:"page_size"`
	Algorithm    checksum.Algorithm `json:"algorithm"`
	InputPages   uint32             `json:"input_pages"`
	OutputPages  uint32             `json:"output_pages"`
	Empty        int                `json:"empty"`
	Corrupt      int                `json:"corrupt"`
	Index        int                `json:"index"`
	Other        int                `json:"other"`
	Groups       int                `json:"groups"`
	MaxLSN       uint64             `json:"max_lsn"`
	Verified     bool               `json:"verified"`
	VerifiedOK   int                `json:"verified_ok"`
	VerifyFailed int                `json:"verify_failed"`
	Moves        []Move             `json:"moves"`
}

// entry is one surviving page on its way to the output. Page bytes are
// not kept; the write pass reads each page again.
type entry struct {
	orig       uint32
	newNo      uint32
	index      bool
	indexID    uint64
	level      uint16
	prev, next uint32
}

func sameGroup(a, b *entry) bool {
	return a.index && b.index && a.indexID == b.indexID && a.level == b.level
}

// Defragment reads src and writes a compacted copy to dst. src is never
// modified. Only failing to read src or write dst is an error; dead pages
// are counted and dropped.
func Defragment(src, dst string, opts Options) (*Result, error) {
	if same, err := samePath(src, dst); err != nil {
		return nil, err
	} else if same {
		return nil, errors.Wrapf(ErrSameFile, "%s", dst)
	}
	runID := opts.RunID
	if runID == "" {
		runID = uuid.NewString()
	}
	log := logging.Or(opts.Logger).WithFields(logrus.Fields{"path": src, "output": dst, "run_id": runID})

	ts, err := tablespace.Open(src, tablespace.Options{PageSize: opts.PageSize, Vendor: opts.Vendor})
	if err != nil {
		return nil, err
	}
	defer ts.Close()

	size := ts.PageSize()
	hint := ts.VendorHint()
	algo := opts.Algorithm
	if algo == checksum.Auto {
		var ok bool
		if algo, ok = ts.DetectAlgorithm(); !ok {
			algo = checksum.Resolve(checksum.Auto, hint)
		}
	}
	res := &Result{
		Source:     src,
		Output:     dst,
		RunID:      runID,
		PageSize:   size,
		Algorithm:  algo,
		InputPages: ts.PageCount(),
	}
	log = log.WithField("algorithm", algo)

	// pass 1: classify survivors, sort INDEX pages, assign new numbers
	var index, other []*entry
	for n := uint32(1); n < ts.PageCount(); n++ {
		buf, err := ts.ReadPage(n)
		if err != nil {
			return nil, err
		}
		e, dead := survey(n, buf, size, hint)
		switch {
		case dead == deadEmpty:
			res.Empty++
		case dead == deadCorrupt:
			res.Corrupt++
			log.WithField("page", n).Debug("dropping corrupt page")
		case e.index:
			index = append(index, e)
		default:
			other = append(other, e)
		}
		if e != nil && page.LSN(buf) > res.MaxLSN {
			res.MaxLSN = page.LSN(buf)
		}
	}
	sort.SliceStable(index, func(i, j int) bool {
		a, b := index[i], index[j]
		if a.indexID != b.indexID {
			return a.indexID < b.indexID
		}
		if a.level != b.level {
			return a.level < b.level
		}
		return a.orig < b.orig
	})
	out := make([]*entry, 0, len(index)+len(other))
	out = append(append(out, index...), other...)
	for i, e := range out {
		e.newNo = uint32(i + 1)
		res.Moves = append(res.Moves, Move{From: e.orig, To: e.newNo})
	}
	res.Index, res.Other = len(index), len(other)
	res.OutputPages = uint32(len(out) + 1)

	// pass 2: relink sibling chains by the new numbers
	for i, e := range index {
		if i > 0 && sameGroup(index[i-1], e) {
			e.prev = index[i-1].newNo
		} else {
			res.Groups++
		}
		if i+1 < len(index) && sameGroup(index[i+1], e) {
			e.next = index[i+1].newNo
		}
	}

	if res.MaxLSN == 0 {
		if p0, err := ts.ReadPage(0); err == nil {
			res.MaxLSN = page.LSN(p0)
		}
	}
	header, err := headerPage(size, ts.FSP(), res.OutputPages, res.MaxLSN, algo)
	if err != nil {
		return nil, err
	}

	w, err := tablespace.Create(dst, size)
	if err != nil {
		return nil, err
	}
	if err := w.Append(header); err != nil {
		w.Close()
		return nil, err
	}
	for _, e := range out {
		buf, err := ts.ReadPage(e.orig)
		if err != nil {
			w.Close()
			return nil, err
		}
		_ = page.SetPageNumber(buf, e.newNo)
		_ = page.SetPrev(buf, e.prev)
		_ = page.SetNext(buf, e.next)
		if _, err := checksum.Repair(buf, size, algo); err != nil {
			w.Close()
			return nil, errors.Wrapf(err, "reseal page %d (was %d)", e.newNo, e.orig)
		}
		if err := w.Append(buf); err != nil {
			w.Close()
			return nil, err
		}
	}
	if err := w.Close(); err != nil {
		return nil, err
	}

	if !opts.SkipVerify {
		if err := verify(dst, size, algo, hint, res); err != nil {
			return res, err
		}
	}
	log.WithFields(logrus.Fields{
		"input": res.InputPages, "output": res.OutputPages, "empty": res.Empty, "corrupt": res.Corrupt,
		"groups": res.Groups, "verify_failed": res.VerifyFailed,
	}).Info("defragment finished")
	return res, nil
}

type deadKind int

const (
	alive deadKind = iota
	deadEmpty
	deadCorrupt
)

// survey decides whether page n survives and, for INDEX pages, captures
// its sort key. A page that fails to parse or validate is corrupt.
func survey(n uint32, buf []byte, size int, hint *format.VendorInfo) (*entry, deadKind) {
	if page.IsAllZero(buf) {
		return nil, deadEmpty
	}
	fil, err := page.ParseFilHeader(buf)
	if err != nil {
		return nil, deadCorrupt
	}
	r, err := checksum.Validate(buf, size, hint)
	if err != nil || !r.Valid {
		return nil, deadCorrupt
	}
	e := &entry{orig: n, prev: format.FilNull, next: format.FilNull}
	if fil.PageType == format.PageTypeIndex {
		ih, err := page.ParseIndexHeader(buf)
		if err != nil {
			return nil, deadCorrupt
		}
		e.index, e.indexID, e.level = true, ih.IndexID, ih.Level
	}
	return e, alive
}

// headerPage builds a fresh page 0 for a tablespace of n pages.
func headerPage(size int, fsp page.FSPHeader, n uint32, lsn uint64, algo checksum.Algorithm) ([]byte, error) {
	p := make([]byte, size)
	_ = page.SetPageNumber(p, 0)
	_ = page.SetPrev(p, format.FilNull)
	_ = page.SetNext(p, format.FilNull)
	_ = page.SetLSN(p, lsn)
	_ = page.SetPageType(p, format.PageTypeFspHdr)
	_ = page.SetFlushLSN(p, lsn)
	_ = page.SetSpaceID(p, fsp.SpaceID)
	_ = page.SetFSPSpaceID(p, fsp.SpaceID)
	_ = page.SetSpaceSize(p, n)
	_ = page.SetFreeLimit(p, n)
	_ = page.SetSpaceFlags(p, fsp.Flags)
	if _, err := checksum.Repair(p, size, algo); err != nil {
		return nil, errors.Wrap(err, "seal page 0")
	}
	return p, nil
}

// verify re-reads dst and counts pages that validate under algo.
func verify(dst string, size int, algo checksum.Algorithm, hint *format.VendorInfo, res *Result) error {
	ts, err := tablespace.Open(dst, tablespace.Options{PageSize: size, Vendor: hint})
	if err != nil {
		return errors.Wrap(err, "reopen output for verification")
	}
	defer ts.Close()
	err = ts.ReadAll(func(n uint32, buf []byte) error {
		ok, err := checksum.Healthy(buf, size, algo, hint)
		if err != nil {
			return err
		}
		if ok {
			res.VerifiedOK++
		} else {
			res.VerifyFailed++
		}
		return nil
	})
	res.Verified = err == nil
	return err
}

func samePath(a, b string) (bool, error) {
	absA, err := filepath.Abs(a)
	if err != nil {
		return false, errors.Wrapf(err, "resolve %s", a)
	}
	absB, err := filepath.Abs(b)
	if err != nil {
		return false, errors.Wrapf(err, "resolve %s", b)
	}
	if absA == absB {
		return true, nil
	}
	sa, errA := os.Stat(a)
	sb, errB := os.Stat(b)
	if errA != nil || errB != nil {
		return false, nil
	}
	return os.SameFile(sa, sb), nil
}
