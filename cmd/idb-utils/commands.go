package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/pkg/errors"

	"github.com/ringo380/idb-utils-sub001/checksum"
	"github.com/ringo380/idb-utils-sub001/classify"
	"github.com/ringo380/idb-utils-sub001/defrag"
	"github.com/ringo380/idb-utils-sub001/format"
	"github.com/ringo380/idb-utils-sub001/page"
	"github.com/ringo380/idb-utils-sub001/repair"
	"github.com/ringo380/idb-utils-sub001/tablespace"
	"github.com/ringo380/idb-utils-sub001/transplant"
)

var errInvalidPages = errors.New("invalid pages found")

func (a *app) emit(v interface{}, text func(w io.Writer)) error {
	if a.json {
		enc := json.NewEncoder(a.out)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	w := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
	text(w)
	return w.Flush()
}

func (a *app) open(path string) (*tablespace.Tablespace, error) {
	return tablespace.Open(path, tablespace.Options{PageSize: a.size, Vendor: a.vendor})
}

// resolve picks the algorithm used for LSN layout and reporting: an
// explicit choice wins, then detection, then the vendor default.
func resolve(ts *tablespace.Tablespace, requested checksum.Algorithm) checksum.Algorithm {
	if requested != checksum.Auto {
		return requested
	}
	if algo, ok := ts.DetectAlgorithm(); ok {
		return algo
	}
	return checksum.Resolve(checksum.Auto, ts.VendorHint())
}

func link(v *uint32) string {
	if v == nil {
		return "NULL"
	}
	return fmt.Sprint(*v)
}

// InfoCmd prints page 0 metadata and a histogram of page kinds.
type InfoCmd struct {
	File string `arg:"" type:"existingfile" help:"Tablespace file"`
}

type infoOut struct {
	Path      string            `json:"path"`
	Bytes     int64             `json:"bytes"`
	PageSize  int               `json:"page_size"`
	Pages     uint32            `json:"pages"`
	Partial   int64             `json:"partial_bytes"`
	SpaceID   uint32            `json:"space_id"`
	Vendor    string            `json:"vendor"`
	Algorithm string            `json:"algorithm"`
	FSP       page.FSPHeader    `json:"fsp"`
	Flags     format.SpaceFlags `json:"flags"`
	Kinds     map[string]int    `json:"kinds"`
	Empty     int               `json:"empty"`
}

func (c *InfoCmd) Run(a *app) error {
	ts, err := a.open(c.File)
	if err != nil {
		return err
	}
	defer ts.Close()
	st, err := os.Stat(c.File)
	if err != nil {
		return err
	}
	out := infoOut{
		Path:      c.File,
		Bytes:     st.Size(),
		PageSize:  ts.PageSize(),
		Pages:     ts.PageCount(),
		Partial:   ts.PartialBytes(),
		SpaceID:   ts.SpaceID(),
		Vendor:    ts.Vendor().String(),
		Algorithm: resolve(ts, checksum.Auto).String(),
		FSP:       ts.FSP(),
		Flags:     ts.FSP().Decoded(),
		Kinds:     map[string]int{},
	}
	vendor := ts.Vendor().Vendor
	err = ts.ReadAll(func(n uint32, buf []byte) error {
		if page.IsAllZero(buf) {
			out.Empty++
			return nil
		}
		out.Kinds[format.KindOf(page.Type(buf), vendor).String()]++
		return nil
	})
	if err != nil {
		return err
	}
	return a.emit(out, func(w io.Writer) {
		fmt.Fprintf(w, "File:\t%s (%s)\n", out.Path, humanize.IBytes(uint64(out.Bytes)))
		fmt.Fprintf(w, "Page size:\t%s\n", humanize.IBytes(uint64(out.PageSize)))
		fmt.Fprintf(w, "Pages:\t%s\n", humanize.Comma(int64(out.Pages)))
		if out.Partial > 0 {
			fmt.Fprintf(w, "Trailing bytes:\t%d\n", out.Partial)
		}
		fmt.Fprintf(w, "Space ID:\t%d\n", out.SpaceID)
		fmt.Fprintf(w, "Vendor:\t%s\n", out.Vendor)
		fmt.Fprintf(w, "Checksum:\t%s\n", out.Algorithm)
		fmt.Fprintf(w, "Flags:\t0x%08x\n", out.FSP.Flags)
		fmt.Fprintf(w, "Free limit:\t%d\n", out.FSP.FreeLimit)
		fmt.Fprintf(w, "\nType\tPages\n")
		names := make([]string, 0, len(out.Kinds))
		for k := range out.Kinds {
			names = append(names, k)
		}
		sort.Strings(names)
		for _, k := range names {
			fmt.Fprintf(w, "%s\t%d\n", k, out.Kinds[k])
		}
		fmt.Fprintf(w, "(empty)\t%d\n", out.Empty)
	})
}

type pageCheck struct {
	Page     uint32             `json:"page"`
	Type     string             `json:"type"`
	Checksum checksum.Result    `json:"checksum"`
	LSN      checksum.LSNResult `json:"lsn"`
	Pattern  string             `json:"pattern,omitempty"`
	Detail   string             `json:"detail,omitempty"`
}

func (p pageCheck) ok() bool { return p.Checksum.Valid && p.LSN.Valid }

type scanSummary struct {
	Path      string             `json:"path"`
	Algorithm checksum.Algorithm `json:"algorithm"`
	Total     uint32             `json:"total"`
	Valid     int                `json:"valid"`
	Invalid   int                `json:"invalid"`
	Empty     int                `json:"empty"`
	Pages     []pageCheck        `json:"pages"`
}

// scan validates every page (or only one) and keeps the failures, or every
// page when all is set.
func scan(ts *tablespace.Tablespace, requested checksum.Algorithm, only int64, all bool, label bool) (*scanSummary, error) {
	if only >= int64(ts.PageCount()) {
		return nil, errors.Wrapf(tablespace.ErrPageOutOfRange, "page %d of %d", only, ts.PageCount())
	}
	algo := resolve(ts, requested)
	hint := ts.VendorHint()
	size := ts.PageSize()
	sum := &scanSummary{Path: ts.Path(), Algorithm: algo, Total: ts.PageCount()}
	vendor := ts.Vendor().Vendor

	err := ts.ReadAll(func(n uint32, buf []byte) error {
		if only >= 0 && int64(n) != only {
			return nil
		}
		if page.IsAllZero(buf) {
			sum.Empty++
			return nil
		}
		var r checksum.Result
		var err error
		if requested == checksum.Auto {
			r, err = checksum.Validate(buf, size, hint)
		} else {
			r, err = checksum.ValidateWith(buf, size, requested)
		}
		if err != nil {
			return err
		}
		l, err := checksum.ValidateLSN(buf, size, algo)
		if err != nil {
			return err
		}
		pc := pageCheck{Page: n, Type: format.PageTypeName(page.Type(buf), vendor), Checksum: r, LSN: l}
		if pc.ok() {
			sum.Valid++
		} else {
			sum.Invalid++
			if label && !r.Valid {
				p := classify.Classify(buf, size, algo)
				pc.Pattern, pc.Detail = p.String(), classify.Describe(p)
			}
		}
		if all || !pc.ok() {
			sum.Pages = append(sum.Pages, pc)
		}
		return nil
	})
	return sum, err
}

// ChecksumCmd validates pages and exits non-zero when any fail.
type ChecksumCmd struct {
	File      string `arg:"" type:"existingfile" help:"Tablespace file"`
	Algorithm string `name:"algorithm" short:"a" help:"auto, crc32c, innodb, full_crc32 or none"`
	Page      int64  `name:"page" short:"p" default:"-1" help:"Check only this page"`
	All       bool   `name:"all" help:"List valid pages too"`
}

func (c *ChecksumCmd) Run(a *app) error {
	algo, err := a.algorithm(c.Algorithm)
	if err != nil {
		return err
	}
	ts, err := a.open(c.File)
	if err != nil {
		return err
	}
	defer ts.Close()
	sum, err := scan(ts, algo, c.Page, c.All, false)
	if err != nil {
		return err
	}
	err = a.emit(sum, func(w io.Writer) {
		fmt.Fprintf(w, "Page\tType\tAlgorithm\tStored\tCalculated\tChecksum\tLSN\n")
		for _, p := range sum.Pages {
			fmt.Fprintf(w, "%d\t%s\t%s\t0x%08x\t0x%08x\t%s\t%s\n", p.Page, p.Type, p.Checksum.Algorithm,
				p.Checksum.Stored, p.Checksum.Calculated, okBad(p.Checksum.Valid), okBad(p.LSN.Valid))
		}
		fmt.Fprintf(w, "\n%s: %d pages, %d valid, %d invalid, %d empty (%s)\n",
			sum.Path, sum.Total, sum.Valid, sum.Invalid, sum.Empty, sum.Algorithm)
	})
	if err != nil {
		return err
	}
	if sum.Invalid > 0 {
		return errors.Wrapf(errInvalidPages, "%d of %d", sum.Invalid, sum.Total)
	}
	return nil
}

func okBad(v bool) string {
	if v {
		return "ok"
	}
	return "BAD"
}

type ClassifyCmd struct {
	File      string `arg:"" type:"existingfile" help:"Tablespace file"`
	Algorithm string `name:"algorithm" short:"a" help:"auto, crc32c, innodb, full_crc32 or none"`
}

func (c *ClassifyCmd) Run(a *app) error {
	algo, err := a.algorithm(c.Algorithm)
	if err != nil {
		return err
	}
	ts, err := a.open(c.File)
	if err != nil {
		return err
	}
	defer ts.Close()
	sum, err := scan(ts, algo, -1, false, true)
	if err != nil {
		return err
	}
	return a.emit(sum, func(w io.Writer) {
		fmt.Fprintf(w, "Page\tType\tPattern\tDetail\n")
		for _, p := range sum.Pages {
			pattern := p.Pattern
			if pattern == "" {
				pattern = "lsn-mismatch"
			}
			fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", p.Page, p.Type, pattern, p.Detail)
		}
		fmt.Fprintf(w, "\n%d damaged of %d pages\n", sum.Invalid, sum.Total)
	})
}

type RepairCmd struct {
	File      string `arg:"" optional:"" type:"existingfile" help:"Tablespace file"`
	Dir       string `name:"dir" short:"d" type:"existingdir" help:"Repair every tablespace under this directory"`
	Algorithm string `name:"algorithm" short:"a" help:"auto, crc32c, innodb, full_crc32 or none"`
	DryRun    bool   `name:"dry-run" short:"n" help:"Report what would change without writing"`
	NoBackup  bool   `name:"no-backup" help:"Do not copy the file to .bak first"`
	Page      int64  `name:"page" short:"p" default:"-1" help:"Repair only this page"`
	Workers   int    `name:"workers" short:"w" help:"Parallel files in --dir mode"`
}

func (c *RepairCmd) options(a *app) (repair.Options, error) {
	algo, err := a.algorithm(c.Algorithm)
	if err != nil {
		return repair.Options{}, err
	}
	opts := repair.Options{
		Algorithm:  algo,
		DryRun:     c.DryRun,
		NoBackup:   c.NoBackup || !a.cfg.Backup,
		Vendor:     a.vendor,
		PageSize:   a.size,
		MaxBackups: a.cfg.MaxBackups,
		Logger:     a.log,
	}
	if c.Page >= 0 {
		p := uint32(c.Page)
		opts.Page = &p
	}
	return opts, nil
}

func (c *RepairCmd) Run(a *app) error {
	if (c.File == "") == (c.Dir == "") {
		return errors.New("give either a file or --dir")
	}
	opts, err := c.options(a)
	if err != nil {
		return err
	}
	if c.File != "" {
		res, err := repair.RepairFile(c.File, opts)
		if err != nil {
			return err
		}
		return a.emit(res, func(w io.Writer) { printRepair(w, res) })
	}

	if opts.Page != nil {
		return errors.New("--page cannot be combined with --dir")
	}
	workers := c.Workers
	if workers <= 0 {
		workers = a.cfg.RepairWorkers
	}
	res, err := repair.RepairDir(c.Dir, repair.BatchOptions{Options: opts, Workers: workers})
	if err != nil {
		return err
	}
	err = a.emit(res, func(w io.Writer) {
		fmt.Fprintf(w, "File\tValid\tRepaired\tEmpty\tBackup\tError\n")
		for _, f := range res.Files {
			if f.Result == nil {
				fmt.Fprintf(w, "%s\t-\t-\t-\t-\t%s\n", f.Path, f.Error)
				continue
			}
			fmt.Fprintf(w, "%s\t%d\t%d\t%d\t%s\t%s\n", f.Path, f.Result.AlreadyValid, f.Result.Repaired,
				f.Result.Empty, f.Result.BackupPath, f.Error)
		}
		fmt.Fprintf(w, "\n%d files, %d failed, %d pages repaired\n", len(res.Files), res.Failed, res.Totals.Repaired)
	})
	if err != nil {
		return err
	}
	if res.Failed > 0 {
		return errors.Errorf("%d of %d files failed", res.Failed, len(res.Files))
	}
	return nil
}

func printRepair(w io.Writer, res *repair.FileResult) {
	fmt.Fprintf(w, "Page\tAction\tOld\tNew\tLSN fixed\tPattern\n")
	rows := res.Pages
	if res.Header != nil {
		rows = append([]repair.PageRecord{*res.Header}, rows...)
	}
	for _, p := range rows {
		if p.Action == repair.ActionValid || p.Action == repair.ActionEmpty {
			continue
		}
		pattern := ""
		if p.Pattern != nil {
			pattern = p.Pattern.String()
		}
		fmt.Fprintf(w, "%d\t%s\t0x%08x\t0x%08x\t%v\t%s\n", p.Page, p.Action, p.OldChecksum, p.NewChecksum, p.LSNFixed, pattern)
	}
	fmt.Fprintf(w, "\n%s: %d already valid, %d repaired, %d empty (%s)\n",
		res.Path, res.AlreadyValid, res.Repaired, res.Empty, res.Algorithm)
	if res.BackupPath != "" {
		fmt.Fprintf(w, "Backup: %s\n", res.BackupPath)
	}
	if res.DryRun {
		fmt.Fprintf(w, "Dry run: nothing written\n")
	}
}

type DefragCmd struct {
	Source    string `arg:"" type:"existingfile" help:"Tablespace to read"`
	Output    string `arg:"" help:"New file to write"`
	Algorithm string `name:"algorithm" short:"a" help:"auto, crc32c, innodb, full_crc32 or none"`
	NoVerify  bool   `name:"no-verify" help:"Skip re-reading the output"`
}

func (c *DefragCmd) Run(a *app) error {
	algo, err := a.algorithm(c.Algorithm)
	if err != nil {
		return err
	}
	res, err := defrag.Defragment(c.Source, c.Output, defrag.Options{
		Algorithm:  algo,
		Vendor:     a.vendor,
		PageSize:   a.size,
		SkipVerify: c.NoVerify || !a.cfg.DefragVerify,
		Logger:     a.log,
	})
	if err != nil {
		return err
	}
	return a.emit(res, func(w io.Writer) {
		fmt.Fprintf(w, "Input pages:\t%d\n", res.InputPages)
		fmt.Fprintf(w, "Output pages:\t%d (%s)\n", res.OutputPages,
			humanize.IBytes(uint64(res.OutputPages)*uint64(res.PageSize)))
		fmt.Fprintf(w, "Dropped:\t%d empty, %d corrupt\n", res.Empty, res.Corrupt)
		fmt.Fprintf(w, "INDEX pages:\t%d in %d chains\n", res.Index, res.Groups)
		fmt.Fprintf(w, "Other pages:\t%d\n", res.Other)
		fmt.Fprintf(w, "Checksum:\t%s\n", res.Algorithm)
		if res.Verified {
			fmt.Fprintf(w, "Verified:\t%d ok, %d failed\n", res.VerifiedOK, res.VerifyFailed)
		}
	})
}

type TransplantCmd struct {
	Donor         string   `arg:"" type:"existingfile" help:"Tablespace to copy pages from"`
	Target        string   `arg:"" type:"existingfile" help:"Tablespace to write pages into"`
	Pages         []uint32 `name:"pages" short:"p" sep:"," required:"" help:"Comma separated page numbers"`
	Force         bool     `name:"force" short:"f" help:"Copy donor pages that fail checksum validation"`
	IgnoreSpaceID bool     `name:"ignore-space-id" help:"Warn instead of failing when space ids differ"`
	AllowPageZero bool     `name:"allow-page-zero" help:"Allow replacing page 0"`
	DryRun        bool     `name:"dry-run" short:"n" help:"Report what would change without writing"`
	NoBackup      bool     `name:"no-backup" help:"Do not copy the target to .bak first"`
}

func (c *TransplantCmd) Run(a *app) error {
	res, err := transplant.Transplant(c.Donor, c.Target, c.Pages, transplant.Options{
		Force:         c.Force,
		IgnoreSpaceID: c.IgnoreSpaceID,
		AllowPageZero: c.AllowPageZero,
		DryRun:        c.DryRun,
		NoBackup:      c.NoBackup || !a.cfg.Backup,
		MaxBackups:    a.cfg.MaxBackups,
		Vendor:        a.vendor,
		PageSize:      a.size,
		Logger:        a.log,
	})
	if err != nil {
		return err
	}
	return a.emit(res, func(w io.Writer) {
		for _, warn := range res.Warnings {
			fmt.Fprintf(w, "Warning: %s\n", warn)
		}
		fmt.Fprintf(w, "Page\tAction\tDonor valid\tReason\n")
		for _, e := range res.Entries {
			fmt.Fprintf(w, "%d\t%s\t%v\t%s\n", e.Page, e.Action, e.DonorValid, e.Reason)
		}
		fmt.Fprintf(w, "\n%d transplanted, %d skipped\n", res.Transplanted, res.Skipped)
		if res.BackupPath != "" {
			fmt.Fprintf(w, "Backup: %s\n", res.BackupPath)
		}
	})
}

// PageCmd dumps the headers of a single page.
type PageCmd struct {
	File string `arg:"" type:"existingfile" help:"Tablespace file"`
	Page uint32 `arg:"" help:"Page number"`
}

type pageOut struct {
	Page     uint32             `json:"page"`
	Kind     string             `json:"kind"`
	FIL      page.FilHeader     `json:"fil"`
	Trailer  page.FilTrailer    `json:"trailer"`
	Index    *page.IndexHeader  `json:"index,omitempty"`
	Checksum checksum.Result    `json:"checksum"`
	LSN      checksum.LSNResult `json:"lsn"`
	Algo     checksum.Algorithm `json:"lsn_layout"`
}

func (c *PageCmd) Run(a *app) error {
	ts, err := a.open(c.File)
	if err != nil {
		return err
	}
	defer ts.Close()
	buf, err := ts.ReadPage(c.Page)
	if err != nil {
		return err
	}
	ip, err := page.NewInnerPage(c.Page, buf, ts.PageSize())
	if err != nil {
		return err
	}
	algo := resolve(ts, checksum.Auto)
	out := pageOut{Page: c.Page, Kind: ip.Kind(ts.Vendor().Vendor).String(), FIL: ip.FIL, Trailer: ip.Trailer, Algo: algo}
	if out.Checksum, err = checksum.Validate(buf, ts.PageSize(), ts.VendorHint()); err != nil {
		return err
	}
	if out.LSN, err = checksum.ValidateLSN(buf, ts.PageSize(), algo); err != nil {
		return err
	}
	if ip.PageType() == format.PageTypeIndex {
		if ih, err := page.ParseIndexHeader(buf); err == nil {
			out.Index = &ih
		}
	}
	return a.emit(out, func(w io.Writer) {
		fmt.Fprintf(w, "=== Page %d ===\n", out.Page)
		fmt.Fprintf(w, "Checksum:\t0x%08x (%s, %s)\n", out.FIL.Checksum, okBad(out.Checksum.Valid), out.Checksum.Algorithm)
		fmt.Fprintf(w, "Page Number:\t%d\n", out.FIL.PageNumber)
		fmt.Fprintf(w, "Page Type:\t%s (%d)\n", out.Kind, out.FIL.PageType)
		fmt.Fprintf(w, "Space ID:\t%d\n", out.FIL.SpaceID)
		fmt.Fprintf(w, "LSN:\t%d (mirror %s)\n", out.FIL.LastModLSN, okBad(out.LSN.Valid))
		fmt.Fprintf(w, "Prev Page:\t%s\n", link(out.FIL.Prev))
		fmt.Fprintf(w, "Next Page:\t%s\n", link(out.FIL.Next))
		fmt.Fprintf(w, "Trailer:\t0x%08x 0x%08x\n", out.Trailer.Checksum, out.Trailer.Low32LSN)
		if ih := out.Index; ih != nil {
			fmt.Fprintf(w, "Index ID:\t%d\n", ih.IndexID)
			fmt.Fprintf(w, "Level:\t%d\n", ih.Level)
			fmt.Fprintf(w, "Records:\t%d user, %d heap\n", ih.NumUserRecs, ih.NumHeapRecs)
		}
	})
}
