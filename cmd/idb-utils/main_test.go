package main

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ringo380/idb-utils-sub001/checksum"
	"github.com/ringo380/idb-utils-sub001/format"
	"github.com/ringo380/idb-utils-sub001/internal/testutil"
	"github.com/ringo380/idb-utils-sub001/page"
)

const size = format.DefaultPageSize

func tablespaceFile(t *testing.T, dir, name string, broken bool) string {
	t.Helper()
	pages := [][]byte{testutil.Page0(size, 12, 4, 0, checksum.CRC32C)}
	for i := uint32(1); i < 4; i++ {
		pages = append(pages, testutil.IndexPage(size, i, 12, uint64(40+i%2), 0, uint64(300+i)))
	}
	if broken {
		require.NoError(t, page.SetChecksum(pages[2], 0xDEADDEAD))
	}
	return testutil.WriteTablespace(t, dir, name, pages...)
}

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	err := run(args, &out)
	return out.String(), err
}

func TestVersion(t *testing.T) {
	out, err := runCLI(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, version)
}

func TestChecksumAndRepair(t *testing.T) {
	path := tablespaceFile(t, t.TempDir(), "t.ibd", true)

	out, err := runCLI(t, "checksum", path)
	assert.True(t, errors.Is(err, errInvalidPages))
	assert.Contains(t, out, "1 invalid")

	out, err = runCLI(t, "classify", path)
	require.NoError(t, err)
	assert.Contains(t, out, "zero-fill")

	out, err = runCLI(t, "repair", "--dry-run", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Dry run")

	out, err = runCLI(t, "repair", path)
	require.NoError(t, err)
	assert.Contains(t, out, "1 repaired")
	assert.FileExists(t, path+".bak")

	out, err = runCLI(t, "checksum", "--all", path)
	require.NoError(t, err)
	assert.Contains(t, out, "0 invalid")
}

func TestRepairDirJSON(t *testing.T) {
	dir := t.TempDir()
	tablespaceFile(t, dir, "a.ibd", true)
	tablespaceFile(t, dir, "b.ibd", false)

	out, err := runCLI(t, "--json", "repair", "--no-backup", "--dir", dir, "--workers", "2")
	require.NoError(t, err)
	var res struct {
		Files []struct {
			Path string `json:"path"`
		} `json:"files"`
		Totals struct {
			Repaired int `json:"repaired"`
		} `json:"totals"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	require.Len(t, res.Files, 2)
	assert.Equal(t, filepath.Join(dir, "a.ibd"), res.Files[0].Path)
	assert.Equal(t, 1, res.Totals.Repaired)
}

func TestRepairNeedsOneTarget(t *testing.T) {
	dir := t.TempDir()
	path := tablespaceFile(t, dir, "t.ibd", false)
	_, err := runCLI(t, "repair")
	assert.Error(t, err)
	_, err = runCLI(t, "repair", "--dir", dir, path)
	assert.Error(t, err)
}

func TestInfoAndPage(t *testing.T) {
	path := tablespaceFile(t, t.TempDir(), "t.ibd", false)
	out, err := runCLI(t, "--json", "info", path)
	require.NoError(t, err)
	var info infoOut
	require.NoError(t, json.Unmarshal([]byte(out), &info))
	assert.Equal(t, uint32(4), info.Pages)
	assert.Equal(t, 3, info.Kinds["INDEX"])
	assert.Equal(t, "crc32c", info.Algorithm)

	out, err = runCLI(t, "page", path, "2")
	require.NoError(t, err)
	assert.Contains(t, out, "INDEX")
	assert.Contains(t, out, "Index ID:")
}

func TestDefragAndTransplant(t *testing.T) {
	dir := t.TempDir()
	src := tablespaceFile(t, dir, "src.ibd", false)
	dst := filepath.Join(dir, "out.ibd")
	out, err := runCLI(t, "defrag", src, dst)
	require.NoError(t, err)
	assert.Contains(t, out, "4 ok, 0 failed")

	target := tablespaceFile(t, dir, "target.ibd", true)
	out, err = runCLI(t, "transplant", "--no-backup", "--pages", "0,2", src, target)
	require.NoError(t, err)
	assert.Contains(t, out, "1 transplanted, 1 skipped")
	assert.Equal(t, testutil.ReadPage(t, src, size, 2), testutil.ReadPage(t, target, size, 2))
}

func TestUnknownVendor(t *testing.T) {
	path := tablespaceFile(t, t.TempDir(), "t.ibd", false)
	_, err := runCLI(t, "--vendor", "oracle", "info", path)
	assert.Error(t, err)
}
