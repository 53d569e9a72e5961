// Package repair recomputes checksums and LSN mirrors of damaged pages in
// place, one file at a time or across a directory.
package repair

import (
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/ringo380/idb-utils-sub001/backup"
	"github.com/ringo380/idb-utils-sub001/checksum"
	"github.com/ringo380/idb-utils-sub001/classify"
	"github.com/ringo380/idb-utils-sub001/format"
	"github.com/ringo380/idb-utils-sub001/internal/logging"
	"github.com/ringo380/idb-utils-sub001/page"
	"github.com/ringo380/idb-utils-sub001/tablespace"
)

type Options struct {
	Algorithm  checksum.Algorithm // Auto detects from page 0
	DryRun     bool
	NoBackup   bool
	Page       *uint32 // repair only this page
	Vendor     *format.VendorInfo
	PageSize   int
	MaxBackups int
	RunID      string
	Logger     logrus.FieldLogger
}

type Action string

const (
	ActionValid       Action = "valid"
	ActionRepaired    Action = "repaired"
	ActionWouldRepair Action = "would-repair"
	ActionEmpty       Action = "empty"
)

// PageRecord is the per-page outcome. Pattern is only set for pages whose
// checksum was wrong.
type PageRecord struct {
	Page          uint32             `json:"page"`
	ChecksumValid bool               `json:"checksum_valid"`
	LSNValid      bool               `json:"lsn_valid"`
	Algorithm     checksum.Algorithm `json:"algorithm"`
	OldChecksum   uint32             `json:"old_checksum"`
	NewChecksum   uint32             `json:"new_checksum"`
	LSNFixed      bool               `json:"lsn_fixed"`
	Action        Action             `json:"action"`
	Pattern       *classify.Pattern  `json:"pattern,omitempty"`
}

// Tally counts data pages; page 0 is reported separately in FileResult.Header.
type Tally struct {
	AlreadyValid int `json:"already_valid"`
	Repaired     int `json:"repaired"`
	Empty        int `json:"empty"`
}

func (t *Tally) add(o Tally) {
	t.AlreadyValid += o.AlreadyValid
	t.Repaired += o.Repaired
	t.Empty += o.Empty
}

type FileResult struct {
	Path       string             `json:"path"`
	RunID      string             `json:"run_id"`
	PageSize   int                `json:"page_size"`
	PageCount  uint32             `json:"page_count"`
	Vendor     string             `json:"vendor"`
	Algorithm  checksum.Algorithm `json:"algorithm"`
	Detected   bool               `json:"algorithm_detected"`
	DryRun     bool               `json:"dry_run"`
	BackupPath string             `json:"backup_path,omitempty"`
	Header     *PageRecord        `json:"header,omitempty"`
	Pages      []PageRecord       `json:"pages"`
	Tally
}

// Changed reports whether any page needed a fix.
func (r *FileResult) Changed() bool {
	return r.Repaired > 0 || (r.Header != nil && r.Header.Action != ActionValid && r.Header.Action != ActionEmpty)
}

// RepairFile validates every page of path (or only opts.Page) and rewrites
// the checksum and LSN mirror of each page that fails either check. The
// original file is backed up once, just before the first write.
func RepairFile(path string, opts Options) (*FileResult, error) {
	runID := opts.RunID
	if runID == "" {
		runID = uuid.NewString()
	}
	log := logging.Or(opts.Logger).WithFields(logrus.Fields{"path": path, "run_id": runID})

	ts, err := tablespace.Open(path, tablespace.Options{
		PageSize: opts.PageSize,
		Vendor:   opts.Vendor,
		Writable: !opts.DryRun,
	})
	if err != nil {
		return nil, err
	}
	defer ts.Close()

	size := ts.PageSize()
	hint := ts.VendorHint()
	res := &FileResult{
		Path:      path,
		RunID:     runID,
		PageSize:  size,
		PageCount: ts.PageCount(),
		Vendor:    ts.Vendor().String(),
		DryRun:    opts.DryRun,
	}

	algo := opts.Algorithm
	if algo == checksum.Auto {
		algo, res.Detected = ts.DetectAlgorithm()
		if !res.Detected {
			algo = checksum.Resolve(checksum.Auto, hint)
		}
	}
	res.Algorithm = algo
	log = log.WithField("algorithm", algo)

	first, last := uint32(0), ts.PageCount()
	if opts.Page != nil {
		if *opts.Page >= ts.PageCount() {
			return res, errors.Wrapf(tablespace.ErrPageOutOfRange, "%s: page %d of %d", path, *opts.Page, ts.PageCount())
		}
		first, last = *opts.Page, *opts.Page+1
	}

	wrote := false
	for n := first; n < last; n++ {
		buf, err := ts.ReadPage(n)
		if err != nil {
			return res, err
		}
		rec, err := inspect(n, buf, size, opts.Algorithm, algo, hint)
		if err != nil {
			return res, err
		}
		if rec.Action == ActionRepaired {
			if opts.DryRun {
				rec.Action = ActionWouldRepair
			} else {
				if res.BackupPath == "" && !opts.NoBackup {
					if res.BackupPath, err = backup.Create(path, opts.MaxBackups); err != nil {
						return res, err
					}
					log.WithField("backup", res.BackupPath).Info("backup created")
				}
				if err := ts.WritePage(n, buf); err != nil {
					return res, err
				}
				wrote = true
			}
			log.WithFields(logrus.Fields{
				"page": n, "old": rec.OldChecksum, "new": rec.NewChecksum, "lsn_fixed": rec.LSNFixed,
			}).Debug("page repaired")
		}
		res.record(rec)
	}
	if wrote {
		if err := ts.Sync(); err != nil {
			return res, err
		}
	}
	log.WithFields(logrus.Fields{
		"already_valid": res.AlreadyValid, "repaired": res.Repaired, "empty": res.Empty, "dry_run": opts.DryRun,
	}).Info("repair finished")
	return res, nil
}

func (r *FileResult) record(rec PageRecord) {
	if rec.Page == 0 {
		r.Header = &rec
		return
	}
	r.Pages = append(r.Pages, rec)
	switch rec.Action {
	case ActionEmpty:
		r.Empty++
	case ActionValid:
		r.AlreadyValid++
	default:
		r.Repaired++
	}
}

// inspect validates buf and, when it is damaged, repairs it in memory
// under algo. requested is the caller's algorithm choice: Auto accepts any
// algorithm that validates the page.
func inspect(n uint32, buf []byte, size int, requested, algo checksum.Algorithm, hint *format.VendorInfo) (PageRecord, error) {
	rec := PageRecord{Page: n, Algorithm: algo}
	if page.IsAllZero(buf) {
		rec.Action = ActionEmpty
		rec.ChecksumValid, rec.LSNValid = true, true
		return rec, nil
	}

	var r checksum.Result
	var err error
	if requested == checksum.Auto {
		r, err = checksum.Validate(buf, size, hint)
	} else {
		r, err = checksum.ValidateWith(buf, size, algo)
	}
	if err != nil {
		return rec, err
	}
	lsn, err := checksum.ValidateLSN(buf, size, algo)
	if err != nil {
		return rec, err
	}
	rec.ChecksumValid, rec.LSNValid = r.Valid, lsn.Valid
	rec.OldChecksum, rec.NewChecksum = r.Stored, r.Stored
	if r.Valid && lsn.Valid {
		rec.Action = ActionValid
		return rec, nil
	}

	if !r.Valid {
		p := classify.Classify(buf, size, algo)
		rec.Pattern = &p
	}
	out, err := checksum.Repair(buf, size, algo)
	if err != nil {
		return rec, err
	}
	rec.OldChecksum, rec.NewChecksum, rec.LSNFixed = out.OldChecksum, out.NewChecksum, out.LSNFixed
	rec.Action = ActionRepaired
	return rec, nil
}
