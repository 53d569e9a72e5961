// Package tablespace reads and writes whole pages of a tablespace file.
// Page N lives at byte offset N × page size; nothing is cached, every
// ReadPage goes back to the file.
package tablespace

import (
	"bufio"
	"io"
	"os"

	"github.com/pkg/errors"

	"github.com/ringo380/idb-utils-sub001/checksum"
	"github.com/ringo380/idb-utils-sub001/format"
	"github.com/ringo380/idb-utils-sub001/page"
)

var (
	ErrInvalidPageSize = errors.New("invalid page size")
	ErrPageOutOfRange  = errors.New("page number out of range")
	ErrTooSmall        = errors.New("file smaller than one page")
)

// Options override what would otherwise be derived from page 0.
type Options struct {
	PageSize int                // 0 derives it from the FSP flags
	Vendor   *format.VendorInfo // nil derives it from the FSP flags
	Writable bool
}

type Tablespace struct {
	path      string
	f         *os.File
	pageSize  int
	pageCount uint32
	partial   int64 // trailing bytes that do not form a whole page
	vendor    format.VendorInfo
	fsp       page.FSPHeader
}

// Open derives the page size and vendor from page 0 and returns a handle.
func Open(path string, opts Options) (*Tablespace, error) {
	flag := os.O_RDONLY
	if opts.Writable {
		flag = os.O_RDWR
	}
	f, err := os.OpenFile(path, flag, 0)
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", path)
	}
	ts, err := open(path, f, opts)
	if err != nil {
		f.Close()
		return nil, err
	}
	return ts, nil
}

func open(path string, f *os.File, opts Options) (*Tablespace, error) {
	st, err := f.Stat()
	if err != nil {
		return nil, errors.Wrapf(err, "stat %s", path)
	}
	head := make([]byte, format.FSPHeaderOffset+format.FSPHeaderSize)
	if st.Size() < int64(len(head)) {
		return nil, errors.Wrapf(ErrTooSmall, "%s is %d bytes", path, st.Size())
	}
	if _, err := f.ReadAt(head, 0); err != nil {
		return nil, errors.Wrapf(err, "read page 0 header of %s", path)
	}
	fsp, err := page.ParseFSPHeader(head)
	if err != nil {
		return nil, errors.Wrapf(err, "parse page 0 of %s", path)
	}

	size := opts.PageSize
	if size == 0 {
		var ok bool
		if size, ok = format.PageSizeFromFlags(fsp.Flags); !ok {
			return nil, errors.Wrapf(ErrInvalidPageSize, "%s: flags %#x encode page size %d", path, fsp.Flags, size)
		}
	}
	if !format.ValidPageSize(size) {
		return nil, errors.Wrapf(ErrInvalidPageSize, "%s: %d", path, size)
	}
	if st.Size() < int64(size) {
		return nil, errors.Wrapf(ErrTooSmall, "%s is %d bytes, page size %d", path, st.Size(), size)
	}

	vendor := format.DetectVendor(fsp.Flags)
	if opts.Vendor != nil {
		vendor = *opts.Vendor
	}
	return &Tablespace{
		path:      path,
		f:         f,
		pageSize:  size,
		pageCount: uint32(st.Size() / int64(size)),
		partial:   st.Size() % int64(size),
		vendor:    vendor,
		fsp:       fsp,
	}, nil
}

func (ts *Tablespace) Path() string { return ts.path }
func (ts *Tablespace) PageSize() int { return ts.pageSize }
func (ts *Tablespace) PageCount() uint32 { return ts.pageCount }
func (ts *Tablespace) SpaceID() uint32 { return ts.fsp.SpaceID }
func (ts *Tablespace) Flags() uint32 { return ts.fsp.Flags }
func (ts *Tablespace) FSP() page.FSPHeader { return ts.fsp }
func (ts *Tablespace) PartialBytes() int64 { return ts.partial }
func (ts *Tablespace) Vendor() format.VendorInfo { return ts.vendor }

// VendorHint returns a pointer suitable for checksum calls.
func (ts *Tablespace) VendorHint() *format.VendorInfo {
	v := ts.vendor
	return &v
}

func (ts *Tablespace) offset(n uint32) int64 { return int64(n) * int64(ts.pageSize) }

// ReadPage returns a fresh buffer holding page n.
func (ts *Tablespace) ReadPage(n uint32) ([]byte, error) {
	if n >= ts.pageCount {
		return nil, errors.Wrapf(ErrPageOutOfRange, "%s: page %d of %d", ts.path, n, ts.pageCount)
	}
	buf := make([]byte, ts.pageSize)
	off := ts.offset(n)
	if _, err := ts.f.ReadAt(buf, off); err != nil {
		return nil, errors.Wrapf(err, "read page %d of %s at offset %d", n, ts.path, off)
	}
	return buf, nil
}

// WritePage writes exactly one page at its fixed offset.
func (ts *Tablespace) WritePage(n uint32, buf []byte) error {
	if err := page.CheckSize(buf, ts.pageSize); err != nil {
		return errors.Wrapf(err, "write page %d of %s", n, ts.path)
	}
	if n >= ts.pageCount {
		return errors.Wrapf(ErrPageOutOfRange, "%s: page %d of %d", ts.path, n, ts.pageCount)
	}
	off := ts.offset(n)
	if _, err := ts.f.WriteAt(buf, off); err != nil {
		return errors.Wrapf(err, "write page %d of %s at offset %d", n, ts.path, off)
	}
	return nil
}

func (ts *Tablespace) Sync() error {
	return errors.Wrapf(ts.f.Sync(), "sync %s", ts.path)
}

func (ts *Tablespace) Close() error {
	return ts.f.Close()
}

// Writer appends pages sequentially to a new file.
type Writer struct {
	path     string
	f        *os.File
	w        *bufio.Writer
	pageSize int
	written  uint32
}

// Create truncates or creates path for sequential page output.
func Create(path string, pageSize int) (*Writer, error) {
	if !format.ValidPageSize(pageSize) {
		return nil, errors.Wrapf(ErrInvalidPageSize, "%d", pageSize)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, errors.Wrapf(err, "create %s", path)
	}
	return &Writer{path: path, f: f, w: bufio.NewWriterSize(f, pageSize*4), pageSize: pageSize}, nil
}

func (w *Writer) Append(buf []byte) error {
	if err := page.CheckSize(buf, w.pageSize); err != nil {
		return errors.Wrapf(err, "append page %d to %s", w.written, w.path)
	}
	if _, err := w.w.Write(buf); err != nil {
		return errors.Wrapf(err, "append page %d to %s", w.written, w.path)
	}
	w.written++
	return nil
}

func (w *Writer) Written() uint32 { return w.written }

// Close flushes, syncs and closes the file.
func (w *Writer) Close() error {
	if err := w.w.Flush(); err != nil {
		w.f.Close()
		return errors.Wrapf(err, "flush %s", w.path)
	}
	if err := w.f.Sync(); err != nil {
		w.f.Close()
		return errors.Wrapf(err, "sync %s", w.path)
	}
	return w.f.Close()
}

// ReadAll streams every page of ts to fn in ascending order.
func (ts *Tablespace) ReadAll(fn func(n uint32, buf []byte) error) error {
	r := io.NewSectionReader(ts.f, 0, ts.offset(ts.pageCount))
	br := bufio.NewReaderSize(r, ts.pageSize*4)
	for n := uint32(0); n < ts.pageCount; n++ {
		buf := make([]byte, ts.pageSize)
		if _, err := io.ReadFull(br, buf); err != nil {
			return errors.Wrapf(err, "read page %d of %s at offset %d", n, ts.path, ts.offset(n))
		}
		if err := fn(n, buf); err != nil {
			return err
		}
	}
	return nil
}

// DetectScan is how many pages after page 0 DetectAlgorithm tries when page
// 0 carries no checksum evidence.
const DetectScan = 16

// DetectAlgorithm reads the checksum algorithm from page 0, falling back to
// the next pages that validate. ok is false when none of them do.
func (ts *Tablespace) DetectAlgorithm() (checksum.Algorithm, bool) {
	hint := ts.VendorHint()
	limit := ts.pageCount
	if limit > DetectScan+1 {
		limit = DetectScan + 1
	}
	for n := uint32(0); n < limit; n++ {
		buf, err := ts.ReadPage(n)
		if err != nil {
			break
		}
		if a, ok := checksum.Detect(buf, ts.pageSize, hint); ok && a != checksum.None {
			return a, true
		}
	}
	return checksum.Auto, false
}
