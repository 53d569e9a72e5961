package repair

import (
	"sort"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ringo380/idb-utils-sub001/internal/logging"
	"github.com/ringo380/idb-utils-sub001/internal/walk"
	"github.com/ringo380/idb-utils-sub001/internal/workpool"
)

type BatchOptions struct {
	Options
	Workers int // <= 0 uses GOMAXPROCS
	Walk    walk.Options
}

// BatchEntry is one file's outcome. Err is set instead of failing the batch.
type BatchEntry struct {
	Path   string      `json:"path"`
	Result *FileResult `json:"result,omitempty"`
	Err    error       `json:"-"`
	Error  string      `json:"error,omitempty"`
}

type BatchResult struct {
	RunID  string       `json:"run_id"`
	Dir    string       `json:"dir"`
	Files  []BatchEntry `json:"files"`
	Failed int          `json:"failed"`
	Totals Tally        `json:"totals"`
}

// RepairDir runs RepairFile over every tablespace under dir in parallel.
// Only a failure to list dir is returned as an error; per-file failures
// land in their entry. Files are reported sorted by path.
func RepairDir(dir string, opts BatchOptions) (*BatchResult, error) {
	paths, err := walk.Tablespaces(dir, opts.Walk)
	if err != nil {
		return nil, err
	}
	return RepairFiles(dir, paths, opts), nil
}

// RepairFiles is RepairDir over an explicit file list.
func RepairFiles(dir string, paths []string, opts BatchOptions) *BatchResult {
	runID := opts.RunID
	if runID == "" {
		runID = uuid.NewString()
	}
	log := logging.Or(opts.Logger).WithFields(logrus.Fields{"dir": dir, "run_id": runID})
	log.WithFields(logrus.Fields{"files": len(paths), "workers": opts.Workers}).Info("batch repair started")

	fileOpts := opts.Options
	fileOpts.RunID = runID
	fileOpts.Page = nil

	entries := workpool.Map(opts.Workers, paths, func(path string) BatchEntry {
		res, err := RepairFile(path, fileOpts)
		e := BatchEntry{Path: path, Result: res, Err: err}
		if err != nil {
			e.Error = err.Error()
			log.WithError(err).WithField("path", path).Warn("repair failed")
		}
		return e
	})
	sort.Slice(entries, func(i, j int) bool { return entries[i].Path < entries[j].Path })

	out := &BatchResult{RunID: runID, Dir: dir, Files: entries}
	for _, e := range entries {
		if e.Err != nil {
			out.Failed++
		}
		if e.Result != nil {
			out.Totals.add(e.Result.Tally)
		}
	}
	log.WithFields(logrus.Fields{
		"failed": out.Failed, "repaired": out.Totals.Repaired, "already_valid": out.Totals.AlreadyValid,
	}).Info("batch repair finished")
	return out
}
