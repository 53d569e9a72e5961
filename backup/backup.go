// Package backup makes verified side copies of a tablespace before it is
// modified in place.
package backup

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"github.com/pkg/errors"
	"github.com/zeebo/blake3"
)

// DefaultMaxAttempts bounds the .bak.N suffix search.
const DefaultMaxAttempts = 100

var (
	ErrTooManyBackups = errors.New("no free backup name")
	ErrVerify         = errors.New("backup digest mismatch")
)

// Name returns the candidate backup name for attempt i: <path>.bak for 0,
// <path>.bak.i otherwise.
func Name(path string, i int) string {
	if i == 0 {
		return path + ".bak"
	}
	return fmt.Sprintf("%s.bak.%d", path, i)
}

// Create copies path to the first free backup name, syncs it and checks
// the copy's BLAKE3 digest against the source. Names are claimed with
// O_EXCL, so an existing backup is never overwritten.
func Create(path string, maxAttempts int) (string, error) {
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	src, err := os.Open(path)
	if err != nil {
		return "", errors.Wrapf(err, "open %s for backup", path)
	}
	defer src.Close()
	st, err := src.Stat()
	if err != nil {
		return "", errors.Wrapf(err, "stat %s", path)
	}

	for i := 0; i < maxAttempts; i++ {
		name := Name(path, i)
		dst, err := os.OpenFile(name, os.O_WRONLY|os.O_CREATE|os.O_EXCL, st.Mode().Perm())
		if os.IsExist(err) {
			continue
		}
		if err != nil {
			return "", errors.Wrapf(err, "create backup %s", name)
		}
		if err := fill(src, dst, name); err != nil {
			os.Remove(name)
			return "", err
		}
		return name, nil
	}
	return "", errors.Wrapf(ErrTooManyBackups, "%s after %d attempts", path, maxAttempts)
}

func fill(src *os.File, dst *os.File, name string) error {
	h := blake3.New()
	if _, err := io.Copy(io.MultiWriter(dst, h), io.NewSectionReader(src, 0, 1<<62)); err != nil {
		dst.Close()
		return errors.Wrapf(err, "copy to %s", name)
	}
	if err := dst.Sync(); err != nil {
		dst.Close()
		return errors.Wrapf(err, "sync %s", name)
	}
	if err := dst.Close(); err != nil {
		return errors.Wrapf(err, "close %s", name)
	}
	want := h.Sum(nil)
	got, err := Digest(name)
	if err != nil {
		return err
	}
	if !bytes.Equal(want, got) {
		return errors.Wrapf(ErrVerify, "%s: %x != %x", name, got, want)
	}
	return nil
}

// Digest returns the BLAKE3-256 digest of a file.
func Digest(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", path)
	}
	defer f.Close()
	h := blake3.New()
	if _, err := io.Copy(h, f); err != nil {
		return nil, errors.Wrapf(err, "hash %s", path)
	}
	return h.Sum(nil), nil
}
