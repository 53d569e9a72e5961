// Package transplant copies pages from a donor tablespace into the same
// page numbers of a target tablespace.
package transplant

import (
	"bytes"
	"fmt"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/ringo380/idb-utils-sub001/backup"
	"github.com/ringo380/idb-utils-sub001/checksum"
	"github.com/ringo380/idb-utils-sub001/format"
	"github.com/ringo380/idb-utils-sub001/internal/logging"
	"github.com/ringo380/idb-utils-sub001/tablespace"
)

var (
	ErrNoPages          = errors.New("no pages requested")
	ErrPageSizeMismatch = errors.New("donor and target page sizes differ")
	ErrSpaceIDMismatch  = errors.New("donor and target space ids differ")
)

type Options struct {
	// Force copies donor pages that fail validation.
	Force         bool
	// IgnoreSpaceID downgrades a donor/target space id mismatch to a warning.
	IgnoreSpaceID bool
	AllowPageZero bool
	DryRun        bool
	NoBackup      bool
	MaxBackups    int
	Vendor        *format.VendorInfo
	PageSize      int
	RunID         string
	Logger        logrus.FieldLogger
}

type Action string

const (
	ActionTransplanted    Action = "transplanted"
	ActionWouldTransplant Action = "would-transplant"
	ActionSkipped         Action = "skipped"
)

type Entry struct {
	Page           uint32 `json:"page"`
	Action         Action `json:"action"`
	Reason         string `json:"reason,omitempty"`
	DonorValid     bool   `json:"donor_checksum_valid"`
	PostWriteValid *bool  `json:"post_write_valid,omitempty"`
	Forced         bool   `json:"forced"`
}

type Result struct {
	Donor        string   `json:"donor"`
	Target       string   `json:"target"`
	RunID        string   `json:"run_id"`
	PageSize     int      `json:"page_size"`
	DryRun       bool     `json:"dry_run"`
	Transplanted int      `json:"transplanted"`
	Skipped      int      `json:"skipped"`
	Entries      []Entry  `json:"entries"`
	Warnings     []string `json:"warnings,omitempty"`
	BackupPath   string   `json:"backup_path,omitempty"`
}

func (r *Result) skip(n uint32, valid bool, reason string, args ...interface{}) {
	r.Skipped++
	r.Entries = append(r.Entries, Entry{Page: n, Action: ActionSkipped, DonorValid: valid, Reason: fmt.Sprintf(reason, args...)})
}

// Transplant replaces pages of target with the donor's pages of the same
// number. All preconditions are checked before the first write; per-page
// problems skip that page only.
func Transplant(donor, target string, pages []uint32, opts Options) (*Result, error) {
	if len(pages) == 0 {
		return nil, ErrNoPages
	}
	runID := opts.RunID
	if runID == "" {
		runID = uuid.NewString()
	}
	log := logging.Or(opts.Logger).WithFields(logrus.Fields{"donor": donor, "path": target, "run_id": runID})

	d, err := tablespace.Open(donor, tablespace.Options{PageSize: opts.PageSize, Vendor: opts.Vendor})
	if err != nil {
		return nil, err
	}
	defer d.Close()
	t, err := tablespace.Open(target, tablespace.Options{PageSize: opts.PageSize, Vendor: opts.Vendor, Writable: !opts.DryRun})
	if err != nil {
		return nil, err
	}
	defer t.Close()

	if d.PageSize() != t.PageSize() {
		return nil, errors.Wrapf(ErrPageSizeMismatch, "donor %d, target %d", d.PageSize(), t.PageSize())
	}
	res := &Result{Donor: donor, Target: target, RunID: runID, PageSize: t.PageSize(), DryRun: opts.DryRun}
	if d.SpaceID() != t.SpaceID() {
		if !opts.IgnoreSpaceID {
			return nil, errors.Wrapf(ErrSpaceIDMismatch, "donor %d, target %d", d.SpaceID(), t.SpaceID())
		}
		w := fmt.Sprintf("space id mismatch ignored: donor %d, target %d", d.SpaceID(), t.SpaceID())
		res.Warnings = append(res.Warnings, w)
		log.Warn(w)
	}

	size := t.PageSize()
	hint := d.VendorHint()
	wrote := false
	for _, n := range pages {
		if n == 0 && !opts.AllowPageZero {
			res.skip(n, false, "page 0 holds tablespace metadata")
			continue
		}
		if n >= d.PageCount() {
			res.skip(n, false, "beyond donor (%d pages)", d.PageCount())
			continue
		}
		if n >= t.PageCount() {
			res.skip(n, false, "beyond target (%d pages)", t.PageCount())
			continue
		}
		buf, err := d.ReadPage(n)
		if err != nil {
			return res, err
		}
		r, err := checksum.Validate(buf, size, hint)
		if err != nil {
			return res, err
		}
		e := Entry{Page: n, DonorValid: r.Valid}
		if !r.Valid {
			if !opts.Force {
				res.skip(n, false, "donor checksum invalid (stored %#08x, calculated %#08x)", r.Stored, r.Calculated)
				continue
			}
			e.Forced = true
			e.Reason = "donor checksum invalid, copied by force"
		}

		if opts.DryRun {
			e.Action = ActionWouldTransplant
			res.Transplanted++
			res.Entries = append(res.Entries, e)
			continue
		}
		if !wrote && !opts.NoBackup {
			if res.BackupPath, err = backup.Create(target, opts.MaxBackups); err != nil {
				return res, err
			}
			log.WithField("backup", res.BackupPath).Info("backup created")
		}
		if err := t.WritePage(n, buf); err != nil {
			return res, err
		}
		wrote = true

		back, err := t.ReadPage(n)
		if err != nil {
			return res, err
		}
		post, err := checksum.Validate(back, size, hint)
		if err != nil {
			return res, err
		}
		ok := post.Valid && bytes.Equal(back, buf)
		e.PostWriteValid = &ok
		e.Action = ActionTransplanted
		res.Transplanted++
		res.Entries = append(res.Entries, e)
		log.WithFields(logrus.Fields{"page": n, "forced": e.Forced, "post_write_valid": ok}).Debug("page transplanted")
	}
	if wrote {
		if err := t.Sync(); err != nil {
			return res, err
		}
	}
	log.WithFields(logrus.Fields{"transplanted": res.Transplanted, "skipped": res.Skipped, "dry_run": opts.DryRun}).
		Info("transplant finished")
	return res, nil
}
